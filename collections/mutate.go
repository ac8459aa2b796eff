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

package collections

import (
	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/errs"
)

// validate checks a prospective value against the schema registered
// for k, if any. On a unique-field conflict against a different id,
// it returns errs.UniqueViolation.
func (s *Store) validate(k nsKey, id uuid.UUID, value map[string]interface{}) error {
	schema, ok := s.schemas[k]
	if !ok {
		return nil
	}
	for field, rule := range schema.Fields {
		_, present := value[field]
		if rule.Required && !present {
			return errs.Validation{Message: "missing required field " + field}
		}
		if !rule.Unique || !present {
			continue
		}
		scalars := scalarValues(value)
		val, scalar := scalars[field]
		if !scalar {
			continue
		}
		existingIDs, found := s.Lookup(k.family, k.namespace, k.collection, field, val)
		if found {
			for _, existing := range existingIDs {
				if existing != id {
					return errs.UniqueViolation{Field: field}
				}
			}
		}
	}
	return nil
}

// Validate checks value against the schema registered for (family,
// namespace, collection), without mutating anything. Callers that
// must WAL-append before mutating call this first.
func (s *Store) Validate(family Family, namespace, collection string, id uuid.UUID, value map[string]interface{}) error {
	return s.validate(s.key(family, namespace, collection), id, value)
}

// Put inserts or replaces value under id, updating the secondary
// index and the live counter, re-validating against any registered
// schema. Callers are responsible for WAL durability before calling Put.
func (s *Store) Put(family Family, namespace, collection string, id uuid.UUID, value map[string]interface{}) error {
	k := s.key(family, namespace, collection)
	if err := s.validate(k, id, value); err != nil {
		return err
	}
	bucket := s.bucket(k)
	if old, existed := bucket[id]; existed {
		s.indexRemove(k, id, old)
	} else {
		s.counters[k]++
	}
	bucket[id] = value
	s.indexAdd(k, id, value)
	return nil
}

// Delete removes id from a collection, scrubbing the secondary index
// and decrementing the counter. Reports whether the id existed.
func (s *Store) Delete(family Family, namespace, collection string, id uuid.UUID) bool {
	k := s.key(family, namespace, collection)
	bucket, ok := s.data[k]
	if !ok {
		return false
	}
	old, existed := bucket[id]
	if !existed {
		return false
	}
	delete(bucket, id)
	s.indexRemove(k, id, old)
	s.counters[k]--
	return true
}
