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

// Package shardpool hash-routes keyed operations to one of several
// engine.Engine shards and fans non-keyed operations out across all of
// them, with an online Reshard that rebuilds the pool at a new shard
// count.
package shardpool

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/launix-de/NonLockingReadMap"
	"github.com/shrijacked/Pieskieo/engine"
)

// shardEntry adapts an *engine.Engine into NonLockingReadMap's
// KeyGetter so the pool's shard table can be read lock-free on the
// hot path and only rebuilt wholesale on Reshard.
type shardEntry struct {
	id int
	e  *engine.Engine
}

func (s *shardEntry) GetKey() int      { return s.id }
func (s *shardEntry) ComputeSize() uint { return 64 }

// Pool owns one engine.Engine per shard and routes operations across
// them by the same hash engine.Engine uses internally.
type Pool struct {
	basePath string
	params   engine.Params

	reshardMu sync.RWMutex // held for read during normal ops, for write during Reshard
	total     int
	shards    NonLockingReadMap.NonLockingReadMap[shardEntry, int]
}

// Open creates or reopens a pool of shardTotal shards rooted at
// basePath, one subdirectory per shard (shard-0, shard-1, ...).
func Open(basePath string, shardTotal int, params engine.Params) (*Pool, error) {
	if shardTotal < 1 {
		shardTotal = 1
	}
	p := &Pool{
		basePath: basePath,
		params:   params,
		total:    shardTotal,
		shards:   NonLockingReadMap.New[shardEntry, int](),
	}
	for i := 0; i < shardTotal; i++ {
		shardParams := params
		shardParams.ShardID = i
		shardParams.ShardTotal = shardTotal
		e, err := engine.Open(shardDir(basePath, i), shardParams)
		if err != nil {
			return nil, err
		}
		p.shards.Set(&shardEntry{id: i, e: e})
	}
	return p, nil
}

func shardDir(basePath string, id int) string {
	return filepath.Join(basePath, fmt.Sprintf("shard-%d", id))
}

// ShardFor returns the engine that owns id under the pool's current
// shard count.
func (p *Pool) ShardFor(id uuid.UUID) *engine.Engine {
	p.reshardMu.RLock()
	defer p.reshardMu.RUnlock()
	return p.shardForLocked(id)
}

func (p *Pool) shardForLocked(id uuid.UUID) *engine.Engine {
	entry := p.shards.Get(int(engine.ShardHash(id) % uint64(p.total)))
	if entry == nil {
		return nil
	}
	return entry.e
}

// ShardCount reports the current number of shards.
func (p *Pool) ShardCount() int {
	p.reshardMu.RLock()
	defer p.reshardMu.RUnlock()
	return p.total
}

// Shards returns every live engine in shard-id order, for callers that
// need to enumerate rather than broadcast (e.g. Metrics).
func (p *Pool) Shards() []*engine.Engine {
	p.reshardMu.RLock()
	defer p.reshardMu.RUnlock()
	out := make([]*engine.Engine, 0, p.total)
	for i := 0; i < p.total; i++ {
		if entry := p.shards.Get(i); entry != nil {
			out = append(out, entry.e)
		}
	}
	return out
}

// PutDoc/PutRow/PutVector/AddEdge resolve the owning shard by key and
// dispatch directly — the WrongShard path inside Engine never
// triggers because Pool always asks the right shard.
func (p *Pool) PutDocNs(namespace, collection string, id uuid.UUID, value map[string]interface{}) error {
	return p.ShardFor(id).PutDocNs(namespace, collection, id, value)
}

func (p *Pool) PutRowNs(namespace, table string, id uuid.UUID, value map[string]interface{}) error {
	return p.ShardFor(id).PutRowNs(namespace, table, id, value)
}

func (p *Pool) DeleteDocNs(namespace, collection string, id uuid.UUID) error {
	return p.ShardFor(id).DeleteDocNs(namespace, collection, id)
}

func (p *Pool) DeleteRowNs(namespace, table string, id uuid.UUID) error {
	return p.ShardFor(id).DeleteRowNs(namespace, table, id)
}

func (p *Pool) GetDocNs(namespace, collection string, id uuid.UUID) (map[string]interface{}, bool) {
	return p.ShardFor(id).GetDocNs(namespace, collection, id)
}

func (p *Pool) GetRowNs(namespace, table string, id uuid.UUID) (map[string]interface{}, bool) {
	return p.ShardFor(id).GetRowNs(namespace, table, id)
}

func (p *Pool) PutVectorNs(ns string, id uuid.UUID, v []float32, meta map[string]string) error {
	return p.ShardFor(id).PutVectorNs(ns, id, v, meta)
}

func (p *Pool) DeleteVectorNs(ns string, id uuid.UUID) error {
	return p.ShardFor(id).DeleteVectorNs(ns, id)
}

// AddEdge routes by src, matching Engine.AddEdge's ownership check.
func (p *Pool) AddEdge(src, dst uuid.UUID, weight float32) error {
	return p.ShardFor(src).AddEdge(src, dst, weight)
}

// Close flushes every shard's WAL writer.
func (p *Pool) Close() error {
	var firstErr error
	for _, e := range p.Shards() {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
