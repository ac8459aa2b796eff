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

// Package graph is the in-memory weighted directed adjacency store
// backing BFS/DFS traversal and auto-linked vector neighbors.
package graph

import (
	"sync"

	"github.com/google/uuid"
)

// Edge is a weighted directed graph edge.
type Edge struct {
	Src    uuid.UUID
	Dst    uuid.UUID
	Weight float32
}

// Store is src -> ordered list of edges. Not hash-sharded by dst;
// edges live on the shard owning src.
type Store struct {
	mu  sync.RWMutex
	adj map[uuid.UUID][]Edge
}

// New returns an empty graph store.
func New() *Store {
	return &Store{adj: make(map[uuid.UUID][]Edge)}
}

// AddEdge overwrites the weight of an existing (src,dst) pair, or
// appends a new edge in insertion order.
func (s *Store) AddEdge(src, dst uuid.UUID, weight float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.adj[src]
	for i := range bucket {
		if bucket[i].Dst == dst {
			bucket[i].Weight = weight
			return
		}
	}
	s.adj[src] = append(bucket, Edge{Src: src, Dst: dst, Weight: weight})
}

// Neighbors returns up to limit edges out of id, in insertion order.
func (s *Store) Neighbors(id uuid.UUID, limit int) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.adj[id]
	if limit > len(bucket) {
		limit = len(bucket)
	}
	out := make([]Edge, limit)
	copy(out, bucket[:limit])
	return out
}

// BFS walks breadth-first from start, visiting each node once and
// stopping once limit edges have been collected.
func (s *Store) BFS(start uuid.UUID, limit int) []Edge {
	visited := map[uuid.UUID]struct{}{start: {}}
	queue := []uuid.UUID{start}
	var out []Edge
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, e := range s.Neighbors(node, limit) {
			if _, seen := visited[e.Dst]; seen {
				continue
			}
			visited[e.Dst] = struct{}{}
			out = append(out, e)
			if len(out) >= limit {
				return out
			}
			queue = append(queue, e.Dst)
		}
	}
	return out
}

// DFS walks depth-first from start using an explicit stack, pushing
// neighbors in reverse so traversal order matches left-to-right
// insertion order, stopping once limit edges have been collected.
func (s *Store) DFS(start uuid.UUID, limit int) []Edge {
	visited := make(map[uuid.UUID]struct{})
	stack := []uuid.UUID{start}
	var out []Edge
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[node]; seen {
			continue
		}
		visited[node] = struct{}{}
		neighbors := s.Neighbors(node, limit)
		for _, e := range neighbors {
			out = append(out, e)
			if len(out) >= limit {
				return out
			}
		}
		for i := len(neighbors) - 1; i >= 0; i-- {
			stack = append(stack, neighbors[i].Dst)
		}
	}
	return out
}
