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
	"os"

	"github.com/google/uuid"
	"github.com/launix-de/NonLockingReadMap"
	"github.com/shrijacked/Pieskieo/engine"
	"github.com/shrijacked/Pieskieo/wal"
)

// Reshard rebuilds the pool at newTotal shards: every existing shard's
// WAL is dumped in full, each record is routed to the shard that owns
// its key under the new hash and applied via Engine.ApplyRecords
// (bypassing the normal ownership check, since the record is being
// replayed rather than freshly written), and the old shard directories
// are then discarded. Held under an exclusive pool lock: no keyed or
// broadcast operation observes a half-migrated pool.
func (p *Pool) Reshard(newTotal int) error {
	if newTotal < 1 {
		newTotal = 1
	}
	p.reshardMu.Lock()
	defer p.reshardMu.Unlock()

	oldShards := make([]*engine.Engine, p.total)
	for i := 0; i < p.total; i++ {
		entry := p.shards.Get(i)
		if entry == nil {
			continue
		}
		oldShards[i] = entry.e
	}
	oldPaths := make([]string, p.total)
	for i := 0; i < p.total; i++ {
		oldPaths[i] = shardDir(p.basePath, i)
	}

	newShards := NonLockingReadMap.New[shardEntry, int]()
	for i := 0; i < newTotal; i++ {
		shardParams := p.params
		shardParams.ShardID = i
		shardParams.ShardTotal = newTotal
		e, err := engine.Open(shardDir(p.basePath, i)+".new", shardParams)
		if err != nil {
			return err
		}
		newShards.Set(&shardEntry{id: i, e: e})
	}

	for _, old := range oldShards {
		if old == nil {
			continue
		}
		records, _, err := old.WALReplaySince(0)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if _, isSchema := rec.(wal.SchemaRecord); isSchema {
				// schema records aren't keyed by id: every new shard must
				// enforce the same schema regardless of which rows land on it.
				if err := p.broadcastTo(newShards, newTotal, func(e *engine.Engine) error {
					return e.ApplyRecords([]wal.Record{rec})
				}); err != nil {
					return err
				}
				continue
			}
			key, ok := recordKey(rec)
			if !ok {
				continue
			}
			target := newShards.Get(int(engine.ShardHash(key) % uint64(newTotal)))
			if target == nil {
				continue
			}
			if err := target.e.ApplyRecords([]wal.Record{rec}); err != nil {
				return err
			}
		}
	}

	if err := p.broadcastTo(newShards, newTotal, func(e *engine.Engine) error {
		return e.SaveVectorSnapshots()
	}); err != nil {
		return err
	}

	for _, old := range oldShards {
		if old != nil {
			_ = old.Close()
		}
	}

	for i := 0; i < newTotal; i++ {
		entry := newShards.Get(i)
		if entry == nil {
			continue
		}
		finalPath := shardDir(p.basePath, i)
		if err := os.RemoveAll(finalPath); err != nil {
			return err
		}
		if err := os.Rename(finalPath+".new", finalPath); err != nil {
			return err
		}
	}

	for i := newTotal; i < len(oldPaths); i++ {
		_ = os.RemoveAll(oldPaths[i])
	}

	p.shards = newShards
	p.total = newTotal
	return nil
}

// recordKey extracts the routing key from a WAL record. AddEdgeRecord
// routes by Src, matching Engine.AddEdge's ownership check.
func recordKey(rec wal.Record) (uuid.UUID, bool) {
	switch r := rec.(type) {
	case wal.PutRecord:
		return r.Key, true
	case wal.DeleteRecord:
		return r.Key, true
	case wal.AddEdgeRecord:
		return r.Src, true
	default:
		return uuid.UUID{}, false
	}
}

func (p *Pool) broadcastTo(shards NonLockingReadMap.NonLockingReadMap[shardEntry, int], total int, fn func(e *engine.Engine) error) error {
	for i := 0; i < total; i++ {
		entry := shards.Get(i)
		if entry == nil {
			continue
		}
		if err := fn(entry.e); err != nil {
			return err
		}
	}
	return nil
}
