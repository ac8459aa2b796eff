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
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/errs"
	"github.com/ulikunitz/xz"
)

const snapshotVersion = 2

// vectorEntry is one record in a vector snapshot.
type vectorEntry struct {
	ID     uuid.UUID
	Vector []float32
	Meta   map[string]string
}

// snapshotFile is the gob-encoded, xz-compressed body written by
// SaveSnapshot. Version 1 had no Meta field; LoadSnapshot fills it in
// as nil when reading an old file.
type snapshotFile struct {
	Version int
	Dim     int
	Entries []vectorEntry
}

// vectorEntryV1 is a v1 snapshot's entry shape, before Meta existed.
type vectorEntryV1 struct {
	ID     uuid.UUID
	Vector []float32
}

// snapshotFileV1 is the pre-Meta snapshot body. LoadSnapshotFrom falls
// back to decoding this when the current snapshotFile fails to decode.
type snapshotFileV1 struct {
	Version int
	Dim     int
	Entries []vectorEntryV1
}

// SaveSnapshot writes every live (non-tombstoned) vector to path,
// gob-encoded and xz-compressed.
func (ix *Index) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Io{Cause: err}
	}
	defer f.Close()
	return ix.SaveSnapshotTo(f)
}

// SaveSnapshotTo writes the same gob+xz body SaveSnapshot writes to a
// file, to an arbitrary writer — the hook persistence.Backend
// implementations other than the local filesystem use.
func (ix *Index) SaveSnapshotTo(w io.Writer) error {
	ix.primaryMu.RLock()
	entries := make([]vectorEntry, 0, len(ix.primary))
	ix.metaMu.RLock()
	for id, v := range ix.primary {
		cp := make([]float32, len(v))
		copy(cp, v)
		entries = append(entries, vectorEntry{ID: id, Vector: cp, Meta: ix.meta[id]})
	}
	ix.metaMu.RUnlock()
	ix.primaryMu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshotFile{Version: snapshotVersion, Dim: ix.Dim(), Entries: entries}); err != nil {
		return errs.Codec{Cause: err}
	}

	xw, err := xz.NewWriter(w)
	if err != nil {
		return errs.Io{Cause: err}
	}
	if _, err := xw.Write(buf.Bytes()); err != nil {
		xw.Close()
		return errs.Io{Cause: err}
	}
	if err := xw.Close(); err != nil {
		return errs.Io{Cause: err}
	}
	return nil
}

// LoadSnapshot replaces the index's contents with the vectors stored
// at path, rebuilding internal ids and the HNSW graph from scratch. A
// missing file is not an error; the index is simply left empty.
func (ix *Index) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Io{Cause: err}
	}
	defer f.Close()
	return ix.LoadSnapshotFrom(f)
}

// LoadSnapshotFrom is LoadSnapshot against an arbitrary reader, for
// persistence.Backend implementations that don't expose a local path.
// Unlike LoadSnapshot it reports a read error as-is; "snapshot does
// not exist yet" is the backend's concern, not this method's.
func (ix *Index) LoadSnapshotFrom(r io.Reader) error {
	xr, err := xz.NewReader(r)
	if err != nil {
		return errs.Codec{Cause: err}
	}
	raw, err := io.ReadAll(xr)
	if err != nil {
		return errs.Codec{Cause: err}
	}

	var snap snapshotFile
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		var v1 snapshotFileV1
		if v1Err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v1); v1Err != nil {
			return errs.Codec{Cause: err}
		}
		snap.Version = v1.Version
		snap.Dim = v1.Dim
		snap.Entries = make([]vectorEntry, len(v1.Entries))
		for i, e := range v1.Entries {
			snap.Entries[i] = vectorEntry{ID: e.ID, Vector: e.Vector}
		}
	}

	ix.primaryMu.Lock()
	ix.metaMu.Lock()
	ix.tombMu.Lock()
	ix.idMu.Lock()
	ix.arenaMu.Lock()
	ix.dimMu.Lock()

	ix.primary = make(map[uuid.UUID][]float32, len(snap.Entries))
	ix.meta = make(map[uuid.UUID]map[string]string, len(snap.Entries))
	ix.tombstoned = make(map[uuid.UUID]struct{})
	ix.toInt = make(map[uuid.UUID]int, len(snap.Entries))
	ix.toUUID = make(map[int]uuid.UUID, len(snap.Entries))
	ix.nextID = 0
	ix.arena = make([][]float32, 0, len(snap.Entries))
	ix.dim = snap.Dim

	fresh := newHNSWGraph(defaultM, int(atomic.LoadInt32(&ix.efConstruction)))
	for _, e := range snap.Entries {
		ix.primary[e.ID] = e.Vector
		if e.Meta != nil {
			ix.meta[e.ID] = e.Meta
		}
		internalID := ix.nextID
		ix.nextID++
		ix.toInt[e.ID] = internalID
		ix.toUUID[internalID] = e.ID
		ix.arena = append(ix.arena, e.Vector)
		fresh.insert(internalID, e.Vector)
	}

	ix.dimMu.Unlock()
	ix.arenaMu.Unlock()
	ix.idMu.Unlock()
	ix.tombMu.Unlock()
	ix.metaMu.Unlock()
	ix.primaryMu.Unlock()

	ix.hnswMu.Lock()
	ix.hnsw = fresh
	ix.hnswMu.Unlock()

	return nil
}

// SaveHNSW persists the live HNSW graph to path, independent of the
// flat vector snapshot.
func (ix *Index) SaveHNSW(path string) error {
	ix.hnswMu.RLock()
	g := ix.hnsw
	ix.hnswMu.RUnlock()
	if g == nil {
		return nil
	}
	if err := g.save(path); err != nil {
		return errs.Io{Cause: err}
	}
	return nil
}

// SaveHNSWTo is SaveHNSW against an arbitrary writer.
func (ix *Index) SaveHNSWTo(w io.Writer) error {
	ix.hnswMu.RLock()
	g := ix.hnsw
	ix.hnswMu.RUnlock()
	if g == nil {
		return nil
	}
	if err := g.saveTo(w); err != nil {
		return errs.Io{Cause: err}
	}
	return nil
}

// LoadHNSW loads a previously saved HNSW graph from path. A missing
// file is not an error: callers fall back to RebuildHNSW.
func (ix *Index) LoadHNSW(path string) error {
	g, err := loadHNSWGraph(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Io{Cause: err}
	}
	ix.hnswMu.Lock()
	ix.hnsw = g
	ix.hnswMu.Unlock()
	return nil
}

// LoadHNSWFrom is LoadHNSW against an arbitrary reader; a missing dump
// is the backend's concern; this method reports read errors as-is.
func (ix *Index) LoadHNSWFrom(r io.Reader) error {
	g, err := loadHNSWGraphFrom(r)
	if err != nil {
		return errs.Io{Cause: err}
	}
	ix.hnswMu.Lock()
	ix.hnsw = g
	ix.hnswMu.Unlock()
	return nil
}
