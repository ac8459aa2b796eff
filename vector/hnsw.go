/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package vector

import (
	"io"
	"os"

	"github.com/coder/hnsw"
)

// hnswGraph isolates the coder/hnsw API surface behind a narrow
// adapter so the rest of the package only deals in internal ids and
// raw float32 backings.
type hnswGraph struct {
	g *hnsw.Graph[int]
}

// newHNSWGraph builds a fresh graph parameterized the way spec §4.3
// mandates: M=16, the caller's ef_construction as the initial
// ef_search.
func newHNSWGraph(m, efConstruction int) *hnswGraph {
	g := hnsw.NewGraph[int]()
	g.M = m
	g.Ml = 1.0 / float64(m)
	g.EfSearch = efConstruction
	g.Distance = hnsw.EuclideanDistance
	return &hnswGraph{g: g}
}

func (h *hnswGraph) insert(internalID int, backing []float32) {
	h.g.Add(hnsw.MakeNode(internalID, backing))
}

func (h *hnswGraph) delete(internalID int) {
	h.g.Delete(internalID)
}

type hnswHit struct {
	internalID int
	backing    []float32
}

// search returns up to k approximate nearest neighbors of query.
func (h *hnswGraph) search(query []float32, ef, k int) []hnswHit {
	h.g.EfSearch = ef
	nodes := h.g.Search(query, k)
	hits := make([]hnswHit, len(nodes))
	for i, n := range nodes {
		hits[i] = hnswHit{internalID: n.Key, backing: n.Value}
	}
	return hits
}

// save dumps the graph to path.
func (h *hnswGraph) save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.saveTo(f)
}

// saveTo is save against an arbitrary writer.
func (h *hnswGraph) saveTo(w io.Writer) error {
	return h.g.Export(w)
}

// loadHNSWGraph loads a graph previously written by save. A missing
// file is reported via os.IsNotExist so callers can treat it as "no
// prior dump" rather than a hard failure.
func loadHNSWGraph(path string) (*hnswGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadHNSWGraphFrom(f)
}

// loadHNSWGraphFrom is loadHNSWGraph against an arbitrary reader.
func loadHNSWGraphFrom(r io.Reader) (*hnswGraph, error) {
	g := hnsw.NewGraph[int]()
	if err := g.Import(r); err != nil && err != io.EOF {
		return nil, err
	}
	return &hnswGraph{g: g}, nil
}
