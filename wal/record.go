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

package wal

import (
	"encoding/gob"

	"github.com/google/uuid"
)

// Family is the logical class of a WAL record and query target.
type Family int

const (
	FamilyRow Family = iota
	FamilyDoc
	FamilyVec
	FamilyGraph
)

func (f Family) String() string {
	switch f {
	case FamilyRow:
		return "row"
	case FamilyDoc:
		return "doc"
	case FamilyVec:
		return "vector"
	case FamilyGraph:
		return "graph"
	default:
		return "unknown"
	}
}

// Record is the tagged union of everything that can be appended to the
// log. Concrete types are registered with gob so a single log can mix
// families without a side-channel.
type Record interface {
	isRecord()
}

// PutRecord upserts key's payload. The payload's format depends on
// Family (JSON for Doc/Row, a gob-encoded vector envelope for Vec).
type PutRecord struct {
	Family     Family
	Key        uuid.UUID
	Payload    []byte
	Namespace  string
	Collection string
	Table      string
}

func (PutRecord) isRecord() {}

// DeleteRecord removes key from Family's collection.
type DeleteRecord struct {
	Family     Family
	Key        uuid.UUID
	Namespace  string
	Collection string
	Table      string
}

func (DeleteRecord) isRecord() {}

// SchemaRecord installs a schema for (Family, Namespace, Collection/Table).
type SchemaRecord struct {
	Family       Family
	Namespace    string
	Collection   string
	Table        string
	SchemaBytes  []byte
}

func (SchemaRecord) isRecord() {}

// AddEdgeRecord is the graph-edge record kind that Engine.AddEdge
// appends. The engine's replay reads edges only from this record, not
// from a Put{Family: FamilyGraph}.
type AddEdgeRecord struct {
	Src    uuid.UUID
	Dst    uuid.UUID
	Weight float32
}

func (AddEdgeRecord) isRecord() {}

func init() {
	gob.Register(PutRecord{})
	gob.Register(DeleteRecord{})
	gob.Register(SchemaRecord{})
	gob.Register(AddEdgeRecord{})
}
