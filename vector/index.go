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

// Package vector is a per-namespace dense vector index: an exact flat
// store backed by an HNSW accelerator for approximate search. Lock
// acquisition always follows the order primary -> meta -> tombstones
// -> ids -> arena -> hnsw, to keep Insert/Delete/RebuildHNSW from
// deadlocking against concurrent searches.
package vector

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/errs"
)

const (
	defaultM              = 16
	defaultMaxLayer       = 16
	minEfSearch           = 1
	minEfConstruction     = 4
	defaultMaxElements    = 100_000
	autoRebuildFloor      = 1000
)

// Index is a namespace-scoped vector collection: id -> vector plus
// optional string metadata, searchable exactly or via HNSW.
type Index struct {
	metric Metric

	dimMu sync.RWMutex
	dim   int // 0 means unset

	primaryMu sync.RWMutex
	primary   map[uuid.UUID][]float32

	metaMu sync.RWMutex
	meta   map[uuid.UUID]map[string]string

	tombMu     sync.RWMutex
	tombstoned map[uuid.UUID]struct{}

	idMu   sync.RWMutex
	toInt  map[uuid.UUID]int
	toUUID map[int]uuid.UUID
	nextID int

	arenaMu sync.RWMutex
	arena   [][]float32 // grow-only; internal id indexes directly into it

	hnswMu sync.RWMutex
	hnsw   *hnswGraph

	efConstruction int32
	efSearch       int32
	maxElements    int
}

// New creates an empty index scoring with the given metric.
func New(metric Metric) *Index {
	return &Index{
		metric:         metric,
		primary:        make(map[uuid.UUID][]float32),
		meta:           make(map[uuid.UUID]map[string]string),
		tombstoned:     make(map[uuid.UUID]struct{}),
		toInt:          make(map[uuid.UUID]int),
		toUUID:         make(map[int]uuid.UUID),
		efConstruction: 200,
		efSearch:       64,
		maxElements:    defaultMaxElements,
	}
}

// Len reports how many live (non-tombstoned) vectors are stored.
func (ix *Index) Len() int {
	ix.primaryMu.RLock()
	defer ix.primaryMu.RUnlock()
	return len(ix.primary)
}

// Dim reports the index's fixed dimensionality, or 0 if unset.
func (ix *Index) Dim() int {
	ix.dimMu.RLock()
	defer ix.dimMu.RUnlock()
	return ix.dim
}

// TombstoneCount reports how many deleted vectors are still occupying
// the arena and HNSW graph, awaiting the next RebuildHNSW.
func (ix *Index) TombstoneCount() int {
	ix.tombMu.RLock()
	defer ix.tombMu.RUnlock()
	return len(ix.tombstoned)
}

// Vector returns the stored (possibly normalized) backing for id.
func (ix *Index) Vector(id uuid.UUID) ([]float32, bool) {
	ix.primaryMu.RLock()
	defer ix.primaryMu.RUnlock()
	v, ok := ix.primary[id]
	return v, ok
}

// Meta returns the stored metadata for id, if any.
func (ix *Index) Meta(id uuid.UUID) (map[string]string, bool) {
	ix.metaMu.RLock()
	defer ix.metaMu.RUnlock()
	m, ok := ix.meta[id]
	return m, ok
}

// SetEfSearch clamps and applies the ef_search knob used by future ANN queries.
func (ix *Index) SetEfSearch(ef int) {
	if ef < minEfSearch {
		ef = minEfSearch
	}
	atomic.StoreInt32(&ix.efSearch, int32(ef))
}

// SetEfConstruction clamps and applies the ef_construction knob used
// the next time the HNSW graph is (re)built.
func (ix *Index) SetEfConstruction(ef int) {
	if ef < minEfConstruction {
		ef = minEfConstruction
	}
	atomic.StoreInt32(&ix.efConstruction, int32(ef))
}

// Insert adds or replaces the vector stored under id. The first
// insert into an empty index fixes the index's dimensionality;
// subsequent inserts of a mismatched length are rejected without
// mutating any state.
func (ix *Index) Insert(id uuid.UUID, v []float32, meta map[string]string) error {
	ix.dimMu.Lock()
	if ix.dim == 0 {
		ix.dim = len(v)
	} else if len(v) != ix.dim {
		ix.dimMu.Unlock()
		return errs.DimensionMismatch{Expected: ix.dim, Got: len(v)}
	}
	ix.dimMu.Unlock()

	backing := make([]float32, len(v))
	copy(backing, v)
	if ix.metric == Cosine {
		normalize(backing)
	}

	ix.primaryMu.Lock()
	ix.primary[id] = backing
	ix.primaryMu.Unlock()

	ix.metaMu.Lock()
	if meta != nil {
		ix.meta[id] = meta
	} else {
		delete(ix.meta, id)
	}
	ix.metaMu.Unlock()

	ix.tombMu.Lock()
	delete(ix.tombstoned, id)
	ix.tombMu.Unlock()

	internalID := ix.assignInternalID(id)

	ix.arenaMu.Lock()
	for internalID >= len(ix.arena) {
		ix.arena = append(ix.arena, nil)
	}
	ix.arena[internalID] = backing
	arenaEntry := ix.arena[internalID]
	ix.arenaMu.Unlock()

	ix.hnswMu.Lock()
	if ix.hnsw == nil {
		ix.hnsw = newHNSWGraph(defaultM, int(atomic.LoadInt32(&ix.efConstruction)))
	}
	ix.hnsw.insert(internalID, arenaEntry)
	ix.hnswMu.Unlock()

	return nil
}

// assignInternalID returns the existing internal id for uuid, or
// allocates the next free one.
func (ix *Index) assignInternalID(id uuid.UUID) int {
	ix.idMu.Lock()
	defer ix.idMu.Unlock()
	if existing, ok := ix.toInt[id]; ok {
		return existing
	}
	internalID := ix.nextID
	ix.nextID++
	ix.toInt[id] = internalID
	ix.toUUID[internalID] = id
	return internalID
}

// Delete tombstones id. The vector stays in the arena and HNSW graph
// until the next rebuild so internal ids never shift underfoot.
func (ix *Index) Delete(id uuid.UUID) bool {
	ix.primaryMu.Lock()
	_, existed := ix.primary[id]
	delete(ix.primary, id)
	ix.primaryMu.Unlock()
	if !existed {
		return false
	}

	ix.metaMu.Lock()
	delete(ix.meta, id)
	ix.metaMu.Unlock()

	ix.tombMu.Lock()
	ix.tombstoned[id] = struct{}{}
	tombCount := len(ix.tombstoned)
	ix.tombMu.Unlock()

	if tombCount >= ix.rebuildThreshold() {
		ix.RebuildHNSW()
	}
	return true
}

func (ix *Index) rebuildThreshold() int {
	n := ix.maxElements / 10
	if n < autoRebuildFloor {
		n = autoRebuildFloor
	}
	return n
}

type scored struct {
	id    uuid.UUID
	score float32
}

// Search performs an exact linear scan over all live vectors, scoring
// with the index's configured metric, returning the top k by
// descending score.
func (ix *Index) Search(query []float32, k int) ([]uuid.UUID, []float32, error) {
	return ix.SearchFiltered(query, k, nil)
}

// SearchFiltered is Search restricted to vectors whose metadata is a
// superset of filter.
func (ix *Index) SearchFiltered(query []float32, k int, filter map[string]string) ([]uuid.UUID, []float32, error) {
	return ix.searchFilteredWith(ix.metric, query, k, filter)
}

func (ix *Index) searchFilteredWith(metric Metric, query []float32, k int, filter map[string]string) ([]uuid.UUID, []float32, error) {
	if ix.Dim() != 0 && len(query) != ix.Dim() {
		return nil, nil, errs.DimensionMismatch{Expected: ix.Dim(), Got: len(query)}
	}
	q := make([]float32, len(query))
	copy(q, query)
	if metric == Cosine {
		normalize(q)
	}

	ix.primaryMu.RLock()
	snapshot := make([]scored, 0, len(ix.primary))
	for id, v := range ix.primary {
		if !ix.matchesFilter(id, filter) {
			continue
		}
		snapshot = append(snapshot, scored{id: id, score: metric.score(q, v)})
	}
	ix.primaryMu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].score > snapshot[j].score })
	if k < len(snapshot) {
		snapshot = snapshot[:k]
	}
	ids := make([]uuid.UUID, len(snapshot))
	scores := make([]float32, len(snapshot))
	for i, s := range snapshot {
		ids[i] = s.id
		scores[i] = s.score
	}
	return ids, scores, nil
}

func (ix *Index) matchesFilter(id uuid.UUID, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	ix.metaMu.RLock()
	defer ix.metaMu.RUnlock()
	m := ix.meta[id]
	for k, v := range filter {
		if m[k] != v {
			return false
		}
	}
	return true
}

// SearchANN performs an approximate nearest-neighbor search via the
// HNSW graph, skipping tombstoned ids.
func (ix *Index) SearchANN(query []float32, k int) ([]uuid.UUID, []float32, error) {
	return ix.SearchANNFiltered(query, k, nil)
}

// SearchANNFiltered is SearchANN restricted to vectors whose metadata
// is a superset of filter.
func (ix *Index) SearchANNFiltered(query []float32, k int, filter map[string]string) ([]uuid.UUID, []float32, error) {
	if ix.Dim() != 0 && len(query) != ix.Dim() {
		return nil, nil, errs.DimensionMismatch{Expected: ix.Dim(), Got: len(query)}
	}
	q := make([]float32, len(query))
	copy(q, query)
	if ix.metric == Cosine {
		normalize(q)
	}

	ix.hnswMu.RLock()
	g := ix.hnsw
	ix.hnswMu.RUnlock()
	if g == nil {
		return nil, nil, nil
	}

	hits := g.search(q, int(atomic.LoadInt32(&ix.efSearch)), k)

	ids := make([]uuid.UUID, 0, len(hits))
	scores := make([]float32, 0, len(hits))
	for _, h := range hits {
		ix.idMu.RLock()
		id, ok := ix.toUUID[h.internalID]
		ix.idMu.RUnlock()
		if !ok {
			continue
		}
		ix.tombMu.RLock()
		_, dead := ix.tombstoned[id]
		ix.tombMu.RUnlock()
		if dead {
			continue
		}
		if !ix.matchesFilter(id, filter) {
			continue
		}
		ids = append(ids, id)
		scores = append(scores, ix.metric.score(q, h.backing))
	}
	return ids, scores, nil
}

// SearchWith runs an exact search using an explicit metric and filter
// rather than the index's own configured metric. The metric is
// threaded through as a parameter, not written into shared state, so
// concurrent SearchWith calls with different metrics never race.
func (ix *Index) SearchWith(metric Metric, query []float32, k int, filter map[string]string) ([]uuid.UUID, []float32, error) {
	return ix.searchFilteredWith(metric, query, k, filter)
}

// RebuildHNSW drops all tombstoned vectors and rebuilds the HNSW graph
// from scratch, preserving existing internal-id assignments for
// surviving vectors.
func (ix *Index) RebuildHNSW() {
	ix.primaryMu.RLock()
	live := make(map[uuid.UUID][]float32, len(ix.primary))
	for id, v := range ix.primary {
		live[id] = v
	}
	ix.primaryMu.RUnlock()

	fresh := newHNSWGraph(defaultM, int(atomic.LoadInt32(&ix.efConstruction)))

	ix.idMu.Lock()
	ix.arenaMu.Lock()
	for id, v := range live {
		internalID, ok := ix.toInt[id]
		if !ok {
			internalID = ix.nextID
			ix.nextID++
			ix.toInt[id] = internalID
			ix.toUUID[internalID] = id
		}
		for internalID >= len(ix.arena) {
			ix.arena = append(ix.arena, nil)
		}
		ix.arena[internalID] = v
		fresh.insert(internalID, v)
	}
	ix.arenaMu.Unlock()
	ix.idMu.Unlock()

	ix.tombMu.Lock()
	ix.tombstoned = make(map[uuid.UUID]struct{})
	ix.tombMu.Unlock()

	ix.hnswMu.Lock()
	ix.hnsw = fresh
	ix.hnswMu.Unlock()
}
