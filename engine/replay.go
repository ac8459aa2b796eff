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

package engine

import (
	"bytes"
	"encoding/json"

	"github.com/shrijacked/Pieskieo/collections"
	"github.com/shrijacked/Pieskieo/errs"
	"github.com/shrijacked/Pieskieo/wal"
)

// applyLocked mutates in-memory state from records already durable in
// this engine's own WAL, without re-appending them. Used only on open,
// to replay the WAL written by previous sessions.
func (e *Engine) applyLocked(records []wal.Record) error {
	for _, rec := range records {
		if err := e.applyOne(rec); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyOne(rec wal.Record) error {
	switch r := rec.(type) {
	case wal.PutRecord:
		switch r.Family {
		case wal.FamilyDoc, wal.FamilyRow:
			var value map[string]interface{}
			dec := json.NewDecoder(bytes.NewReader(r.Payload))
			if err := dec.Decode(&value); err != nil {
				return errs.Codec{Cause: err}
			}
			cf := collections.FamilyDoc
			if r.Family == wal.FamilyRow {
				cf = collections.FamilyRow
			}
			return e.coll.Put(cf, r.Namespace, r.Collection, r.Key, value)
		case wal.FamilyVec:
			var payload vecWalPayload
			if err := wal.DecodeGob(r.Payload, &payload); err != nil {
				return errs.Codec{Cause: err}
			}
			return e.namespaceIndex(r.Namespace).Insert(r.Key, payload.Vector, payload.Meta)
		}
	case wal.DeleteRecord:
		switch r.Family {
		case wal.FamilyDoc:
			e.coll.Delete(collections.FamilyDoc, r.Namespace, r.Collection, r.Key)
		case wal.FamilyRow:
			e.coll.Delete(collections.FamilyRow, r.Namespace, r.Collection, r.Key)
		case wal.FamilyVec:
			e.namespaceIndex(r.Namespace).Delete(r.Key)
		}
	case wal.SchemaRecord:
		var fields map[string]collections.FieldSchema
		if err := json.Unmarshal(r.SchemaBytes, &fields); err != nil {
			return errs.Codec{Cause: err}
		}
		cf := collections.FamilyDoc
		if r.Family == wal.FamilyRow {
			cf = collections.FamilyRow
		}
		e.coll.SetSchema(cf, r.Namespace, r.Collection, collections.Schema{Fields: fields})
	case wal.AddEdgeRecord:
		e.g.AddEdge(r.Src, r.Dst, r.Weight)
	}
	return nil
}

// ApplyRecords appends each record to this engine's own WAL and then
// replays its effect in memory — the mechanism both a follower
// mirroring a leader's WAL and Reshard populating a fresh shard use to
// adopt records produced somewhere else.
func (e *Engine) ApplyRecords(records []wal.Record) error {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	for _, rec := range records {
		if err := e.w.Append(rec); err != nil {
			return err
		}
		if err := e.applyOne(rec); err != nil {
			return err
		}
	}
	return nil
}

// WALReplaySince returns every record appended to this shard's WAL
// since byte offset, plus the new end offset, for streaming
// replication to a follower.
func (e *Engine) WALReplaySince(offset int64) ([]wal.Record, int64, error) {
	return e.w.ReplaySince(offset)
}
