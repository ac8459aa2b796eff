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

package shardpool

import (
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jtolds/gls"
	"github.com/shrijacked/Pieskieo/collections"
	"github.com/shrijacked/Pieskieo/engine"
	"github.com/shrijacked/Pieskieo/vector"
	"golang.org/x/sync/errgroup"
)

// broadcast runs fn against every shard, throttled to one goroutine
// per CPU core exactly like storage/partition.go's iterateShards, and
// tags each fan-out goroutine with its shard id via gls so tracing
// hooked into the call chain can recover which shard is running.
func (p *Pool) broadcast(fn func(e *engine.Engine) error) error {
	shards := p.Shards()
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	if workers > len(shards) {
		workers = len(shards)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, e := range shards {
		shardID, shard := i, e
		g.Go(func() error {
			var callErr error
			gls.SetValues(gls.Values{"shard": shardID}, func() {
				callErr = fn(shard)
			})
			return callErr
		})
	}
	return g.Wait()
}

// Vacuum rebuilds every shard's HNSW graph, snapshots it, and
// truncates its WAL.
func (p *Pool) Vacuum() error {
	return p.broadcast(func(e *engine.Engine) error { return e.Vacuum() })
}

// SaveVectorSnapshots persists every shard's vector snapshots.
func (p *Pool) SaveVectorSnapshots() error {
	return p.broadcast(func(e *engine.Engine) error { return e.SaveVectorSnapshots() })
}

// SetSchema installs a schema on every shard so it is enforced however
// a row happens to land.
func (p *Pool) SetSchema(family collections.Family, namespace, collection string, schema collections.Schema) error {
	return p.broadcast(func(e *engine.Engine) error {
		return e.SetSchema(family, namespace, collection, schema)
	})
}

// Metrics gathers a MetricsSnapshot from every shard, in shard-id order.
func (p *Pool) Metrics() []engine.MetricsSnapshot {
	shards := p.Shards()
	out := make([]engine.MetricsSnapshot, len(shards))
	var wg sync.WaitGroup
	wg.Add(len(shards))
	for i, e := range shards {
		i, e := i, e
		gls.Go(func() {
			defer wg.Done()
			out[i] = e.Metrics()
		})
	}
	wg.Wait()
	return out
}

// SearchVectorNs fans an ANN search out to every shard (vectors are
// hash-sharded by id, so no single shard holds the global top-k) and
// merges per-shard hits into one globally ranked top-k. Does not
// deduplicate across namespaces carrying the same id on purpose, per
// the pool's single-namespace-per-call contract.
func (p *Pool) SearchVectorNs(ns string, query []float32, k int) ([]uuid.UUID, []float32, error) {
	shards := p.Shards()
	type hit struct {
		id    uuid.UUID
		score float32
	}
	results := make([][]hit, len(shards))

	var g errgroup.Group
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, e := range shards {
		i, e := i, e
		g.Go(func() error {
			ids, scores, err := e.SearchVectorNs(ns, query, k)
			if err != nil {
				return err
			}
			hits := make([]hit, len(ids))
			for j := range ids {
				hits[j] = hit{id: ids[j], score: scores[j]}
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var merged []hit
	for _, hits := range results {
		merged = append(merged, hits...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].score > merged[j].score })
	if len(merged) > k {
		merged = merged[:k]
	}
	ids := make([]uuid.UUID, len(merged))
	scores := make([]float32, len(merged))
	for i, h := range merged {
		ids[i] = h.id
		scores[i] = h.score
	}
	return ids, scores, nil
}

// SearchVectorMetricNs is SearchVectorNs with an explicit metric and
// metadata filter, merged the same way.
func (p *Pool) SearchVectorMetricNs(ns string, query []float32, k int, metric vector.Metric, filter map[string]string) ([]uuid.UUID, []float32, error) {
	shards := p.Shards()
	type hit struct {
		id    uuid.UUID
		score float32
	}
	results := make([][]hit, len(shards))

	var g errgroup.Group
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, e := range shards {
		i, e := i, e
		g.Go(func() error {
			ids, scores, err := e.SearchVectorMetricNs(ns, query, k, metric, filter)
			if err != nil {
				return err
			}
			hits := make([]hit, len(ids))
			for j := range ids {
				hits[j] = hit{id: ids[j], score: scores[j]}
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var merged []hit
	for _, hits := range results {
		merged = append(merged, hits...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].score > merged[j].score })
	if len(merged) > k {
		merged = merged[:k]
	}
	ids := make([]uuid.UUID, len(merged))
	scores := make([]float32, len(merged))
	for i, h := range merged {
		ids[i] = h.id
		scores[i] = h.score
	}
	return ids, scores, nil
}
