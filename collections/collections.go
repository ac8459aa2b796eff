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

// Package collections is the namespaced in-memory data model: docs and
// rows keyed namespace -> collection/table -> UUID -> JSON, a schema
// registry, and a secondary equality index. A single RWMutex protects
// the whole structure so schema/index/counter updates stay atomic
// with the data mutation they accompany.
package collections

import (
	"github.com/google/btree"
	"github.com/google/uuid"
)

const defaultNamespace = "default"

// Family distinguishes the doc and row address spaces. They are
// stored identically; the tag exists so clients can address them
// separately end to end (WAL, SQL, API).
type Family int

const (
	FamilyDoc Family = iota
	FamilyRow
)

type nsKey struct {
	family     Family
	namespace  string
	collection string
}

// FieldSchema is one field's validation rule within a Schema.
type FieldSchema struct {
	Required bool
	Unique   bool
	Type     string // advisory only
}

// Schema is a per-(family, namespace, name) validation contract.
type Schema struct {
	Fields map[string]FieldSchema
}

// indexEntry is one ordered row in the secondary index's btree: a
// (field, value, id) triple. Entries sort by field, then value, then
// id, so an equality lookup is a bounded AscendRange over one field.
type indexEntry struct {
	field string
	value string
	id    uuid.UUID
}

func indexEntryLess(a, b indexEntry) bool {
	if a.field != b.field {
		return a.field < b.field
	}
	if a.value != b.value {
		return a.value < b.value
	}
	return a.id.String() < b.id.String()
}

// Store holds every doc/row collection plus the schema registry and
// secondary index for one shard. The secondary index is one ordered
// btree per (family, namespace, collection), mirroring how a B-tree
// range index is built over a single column in a table shard.
type Store struct {
	data     map[nsKey]map[uuid.UUID]map[string]interface{}
	schemas  map[nsKey]Schema
	index    map[nsKey]*btree.BTreeG[indexEntry]
	counters map[nsKey]int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		data:     make(map[nsKey]map[uuid.UUID]map[string]interface{}),
		schemas:  make(map[nsKey]Schema),
		index:    make(map[nsKey]*btree.BTreeG[indexEntry]),
		counters: make(map[nsKey]int),
	}
}

func normalizeNamespace(ns string) string {
	if ns == "" {
		return defaultNamespace
	}
	return ns
}

func (s *Store) key(family Family, namespace, collection string) nsKey {
	return nsKey{family: family, namespace: normalizeNamespace(namespace), collection: collection}
}

func (s *Store) bucket(k nsKey) map[uuid.UUID]map[string]interface{} {
	b, ok := s.data[k]
	if !ok {
		b = make(map[uuid.UUID]map[string]interface{})
		s.data[k] = b
	}
	return b
}

// SetSchema installs or replaces the schema for (family, namespace, collection).
func (s *Store) SetSchema(family Family, namespace, collection string, schema Schema) {
	s.schemas[s.key(family, namespace, collection)] = schema
}

// Counter returns the live document/row count for a (family, namespace, collection).
func (s *Store) Counter(family Family, namespace, collection string) int {
	return s.counters[s.key(family, namespace, collection)]
}

// Get returns a value by id, or false if absent.
func (s *Store) Get(family Family, namespace, collection string, id uuid.UUID) (map[string]interface{}, bool) {
	k := s.key(family, namespace, collection)
	v, ok := s.data[k][id]
	return v, ok
}

// scalarValues extracts every scalar-valued field of value as a
// string-keyed index entry. Non-scalar values (objects, arrays, null)
// are not indexed.
func scalarValues(value map[string]interface{}) map[string]string {
	out := make(map[string]string)
	for field, raw := range value {
		switch v := raw.(type) {
		case string:
			out[field] = v
		case bool:
			if v {
				out[field] = "true"
			} else {
				out[field] = "false"
			}
		case float64:
			out[field] = formatNumber(v)
		default:
			// json.Number and other values with a String method are indexed
			// by that string; ints, objects, arrays and nil are not indexed
			if n, ok := raw.(interface{ String() string }); ok {
				out[field] = n.String()
			}
		}
	}
	return out
}

func (s *Store) treeFor(k nsKey) *btree.BTreeG[indexEntry] {
	t, ok := s.index[k]
	if !ok {
		t = btree.NewG(32, indexEntryLess)
		s.index[k] = t
	}
	return t
}

func (s *Store) indexAdd(k nsKey, id uuid.UUID, value map[string]interface{}) {
	scalars := scalarValues(value)
	if len(scalars) == 0 {
		return
	}
	t := s.treeFor(k)
	for field, val := range scalars {
		t.ReplaceOrInsert(indexEntry{field: field, value: val, id: id})
	}
}

func (s *Store) indexRemove(k nsKey, id uuid.UUID, value map[string]interface{}) {
	t, ok := s.index[k]
	if !ok {
		return
	}
	for field, val := range scalarValues(value) {
		t.Delete(indexEntry{field: field, value: val, id: id})
	}
}

// Lookup returns the ids whose field equals value, via the secondary
// equality index. The second return is false if the field/value pair
// has no index entries at all (as opposed to a genuinely empty set).
func (s *Store) Lookup(family Family, namespace, collection, field, value string) ([]uuid.UUID, bool) {
	k := s.key(family, namespace, collection)
	t, ok := s.index[k]
	if !ok {
		return nil, false
	}
	lo := indexEntry{field: field, value: value}
	hi := indexEntry{field: field, value: value + "\xff"}
	var out []uuid.UUID
	t.AscendRange(lo, hi, func(e indexEntry) bool {
		if e.field == field && e.value == value {
			out = append(out, e.id)
		}
		return true
	})
	if out == nil {
		return nil, false
	}
	return out, true
}

// All returns every (id, value) pair in a collection, for full scans.
func (s *Store) All(family Family, namespace, collection string) map[uuid.UUID]map[string]interface{} {
	k := s.key(family, namespace, collection)
	return s.data[k]
}
