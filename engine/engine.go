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

// Package engine coordinates the WAL, collections, per-namespace
// vector indexes, and graph store behind one keyed API. It enforces
// shard ownership, writes the WAL before mutating memory, performs
// auto-linking, and owns vacuum and metrics.
package engine

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/collections"
	"github.com/shrijacked/Pieskieo/errs"
	"github.com/shrijacked/Pieskieo/graph"
	"github.com/shrijacked/Pieskieo/persistence"
	"github.com/shrijacked/Pieskieo/vector"
	"github.com/shrijacked/Pieskieo/wal"
)

// Params configures a shard's vector behavior and its position within
// a shard pool.
type Params struct {
	Metric         vector.Metric
	EfConstruction int
	EfSearch       int
	MaxElements    int
	LinkTopK       int
	ShardID        int
	ShardTotal     int

	// Backend stores vector snapshots and HNSW dumps. Nil (the
	// default) keeps them as plain files under path/vectors, exactly
	// as before persistence.Backend existed. The WAL always stays on
	// local disk regardless of Backend.
	Backend persistence.Backend

	// GroupCommitInterval is how often StartBackgroundTasks flushes the
	// WAL to disk. DefaultParams sets 50ms; a zero value is replaced
	// with that same 50ms by StartBackgroundTasks.
	GroupCommitInterval time.Duration
}

// DefaultParams is Params{Metric: L2, EfConstruction: 200, EfSearch: 50,
// MaxElements: 100000, ShardTotal: 1}.
func DefaultParams() Params {
	return Params{
		Metric:              vector.L2,
		EfConstruction:      200,
		EfSearch:            50,
		MaxElements:         100_000,
		LinkTopK:            0,
		ShardID:             0,
		ShardTotal:          1,
		GroupCommitInterval: defaultGroupCommitInterval,
	}
}

const defaultGroupCommitInterval = 50 * time.Millisecond

// Engine is one shard: its own WAL, Collections, GraphStore, and a
// vector Index per namespace.
type Engine struct {
	path     string
	params   Params
	backend  persistence.Backend
	shardKey string

	w *wal.Wal

	dataMu sync.RWMutex // guards coll; doc/row/schema writes hold it across WAL append and mutation for atomic schema/index/counter updates
	coll   *collections.Store

	vecMu   sync.RWMutex
	vectors map[string]*vector.Index

	g *graph.Store

	linkTopK int
}

// vecWalPayload is the gob-encoded WAL payload for a vector put.
type vecWalPayload struct {
	Vector []float32
	Meta   map[string]string
}

// Open creates or reopens an engine rooted at path, replaying its WAL
// and then restoring vector snapshots where present: from the Backend
// when one is set, otherwise from the per-namespace files under
// path/vectors and the legacy flat vector snapshot.
func Open(path string, params Params) (*Engine, error) {
	if params.ShardTotal < 1 {
		params.ShardTotal = 1
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errs.Io{Cause: err}
	}
	w, err := wal.Open(path)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		path:     path,
		params:   params,
		backend:  params.Backend,
		shardKey: filepath.Base(path),
		w:        w,
		coll:     collections.New(),
		vectors:  make(map[string]*vector.Index),
		g:        graph.New(),
		linkTopK: params.LinkTopK,
	}

	records, err := w.Replay()
	if err != nil {
		return nil, err
	}
	if err := e.applyLocked(records); err != nil {
		return nil, err
	}

	if e.backend != nil {
		if err := e.loadVectorSnapshotsFromBackend(); err != nil {
			return nil, err
		}
	} else {
		if err := e.loadLocalVectorSnapshots(); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// loadLocalVectorSnapshots restores every namespace dumped under
// path/vectors by a prior SaveVectorSnapshots, plus the pre-namespace
// single flat file format kept for backward compatibility.
func (e *Engine) loadLocalVectorSnapshots() error {
	legacy := filepath.Join(e.path, "vectors.snapshot")
	if _, err := os.Stat(legacy); err == nil {
		ix := e.namespaceIndex("default")
		if loadErr := ix.LoadSnapshot(legacy); loadErr == nil {
			ix.RebuildHNSW()
		}
	}

	dir := filepath.Join(e.path, "vectors")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Io{Cause: err}
	}
	for _, entry := range entries {
		name := entry.Name()
		const suffix = ".snapshot"
		if entry.IsDir() || len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
			continue
		}
		ns := name[:len(name)-len(suffix)]
		ix := e.namespaceIndex(ns)
		if err := ix.LoadSnapshot(filepath.Join(dir, name)); err != nil {
			return err
		}
		// LoadSnapshot already rebuilt the HNSW graph from the loaded
		// vectors; LoadHNSW replaces it with the exact persisted graph
		// when a dump exists, and is a no-op otherwise.
		if err := ix.LoadHNSW(filepath.Join(dir, ns+".hnsw")); err != nil {
			return err
		}
	}
	return nil
}

// vectorNamespaceManifest is the small blob recording which
// namespaces SaveVectorSnapshots wrote, so a Backend-backed engine
// knows what to restore on Open without a directory listing.
type vectorNamespaceManifest struct {
	Namespaces []string
}

func (e *Engine) loadVectorSnapshotsFromBackend() error {
	r, err := e.backend.ReadBlob(e.shardKey, "namespaces")
	if err != nil {
		if err == persistence.ErrNotExist {
			return nil
		}
		return errs.Io{Cause: err}
	}
	var manifest vectorNamespaceManifest
	decErr := json.NewDecoder(r).Decode(&manifest)
	r.Close()
	if decErr != nil {
		return errs.Codec{Cause: decErr}
	}

	for _, ns := range manifest.Namespaces {
		ix := e.namespaceIndex(ns)
		if err := e.loadBackendBlob(ns+".snapshot", ix.LoadSnapshotFrom); err != nil {
			return err
		}
		// LoadSnapshotFrom already rebuilt the HNSW graph from the
		// loaded vectors; a persisted HNSW dump, if present, replaces
		// it with the exact prior graph.
		if err := e.loadBackendBlob(ns+".hnsw", ix.LoadHNSWFrom); err != nil {
			return err
		}
	}
	return nil
}

// loadBackendBlob reads shardKey/name through the backend and applies
// apply to its body; a blob that was never written is not an error.
func (e *Engine) loadBackendBlob(name string, apply func(io.Reader) error) error {
	r, err := e.backend.ReadBlob(e.shardKey, name)
	if err != nil {
		if err == persistence.ErrNotExist {
			return nil
		}
		return errs.Io{Cause: err}
	}
	defer r.Close()
	if err := apply(r); err != nil {
		return err
	}
	return nil
}

func (e *Engine) namespaceIndex(ns string) *vector.Index {
	if ns == "" {
		ns = "default"
	}
	e.vecMu.Lock()
	defer e.vecMu.Unlock()
	ix, ok := e.vectors[ns]
	if !ok {
		ix = vector.New(e.params.Metric)
		ix.SetEfConstruction(e.params.EfConstruction)
		ix.SetEfSearch(e.params.EfSearch)
		e.vectors[ns] = ix
	}
	return ix
}

// owns reports whether id hashes to this engine's shard.
func (e *Engine) owns(id uuid.UUID) bool {
	if e.params.ShardTotal <= 1 {
		return true
	}
	return int(ShardHash(id)%uint64(e.params.ShardTotal)) == e.params.ShardID
}

// ShardHash is u64_le(id[0:8]), the raw unsigned hash every
// shard-aware caller (Engine.owns, shardpool.Pool.ShardFor) reduces
// with its own shard count via `% total`. Kept unsigned (matching the
// original's usize) so the modulo can never go negative the way a
// signed int64 conversion would for roughly half of all ids.
func ShardHash(id uuid.UUID) uint64 {
	return binary.LittleEndian.Uint64(id[:8])
}

func (e *Engine) append(rec wal.Record) error {
	return e.w.Append(rec)
}

// PutDocNs upserts a JSON document under id in namespace/collection,
// enforcing any registered schema.
func (e *Engine) PutDocNs(namespace, collection string, id uuid.UUID, value map[string]interface{}) error {
	return e.putNs(collections.FamilyDoc, wal.FamilyDoc, namespace, collection, id, value)
}

// PutRowNs upserts a JSON row under id in namespace/table.
func (e *Engine) PutRowNs(namespace, table string, id uuid.UUID, value map[string]interface{}) error {
	return e.putNs(collections.FamilyRow, wal.FamilyRow, namespace, table, id, value)
}

func (e *Engine) putNs(cf collections.Family, wf wal.Family, namespace, collection string, id uuid.UUID, value map[string]interface{}) error {
	if !e.owns(id) {
		return errs.WrongShard{ID: id.String(), ShardID: e.params.ShardID}
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return errs.Codec{Cause: err}
	}

	e.dataMu.Lock()
	defer e.dataMu.Unlock()

	if err := e.coll.Validate(cf, namespace, collection, id, value); err != nil {
		return err
	}
	if err := e.append(wal.PutRecord{Family: wf, Key: id, Payload: payload, Namespace: namespace, Collection: collection}); err != nil {
		return err
	}
	return e.coll.Put(cf, namespace, collection, id, value)
}

// DeleteDocNs removes a document.
func (e *Engine) DeleteDocNs(namespace, collection string, id uuid.UUID) error {
	return e.deleteNs(collections.FamilyDoc, wal.FamilyDoc, namespace, collection, id)
}

// DeleteRowNs removes a row.
func (e *Engine) DeleteRowNs(namespace, table string, id uuid.UUID) error {
	return e.deleteNs(collections.FamilyRow, wal.FamilyRow, namespace, table, id)
}

func (e *Engine) deleteNs(cf collections.Family, wf wal.Family, namespace, collection string, id uuid.UUID) error {
	if !e.owns(id) {
		return errs.WrongShard{ID: id.String(), ShardID: e.params.ShardID}
	}
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	if err := e.append(wal.DeleteRecord{Family: wf, Key: id, Namespace: namespace, Collection: collection}); err != nil {
		return err
	}
	e.coll.Delete(cf, namespace, collection, id)
	return nil
}

// PutFamilyNs upserts a value under the given collections.Family,
// for callers (the SQL executor) that resolve family dynamically.
func (e *Engine) PutFamilyNs(family collections.Family, namespace, collection string, id uuid.UUID, value map[string]interface{}) error {
	wf := wal.FamilyDoc
	if family == collections.FamilyRow {
		wf = wal.FamilyRow
	}
	return e.putNs(family, wf, namespace, collection, id, value)
}

// DeleteFamilyNs removes a value under the given collections.Family.
func (e *Engine) DeleteFamilyNs(family collections.Family, namespace, collection string, id uuid.UUID) error {
	wf := wal.FamilyDoc
	if family == collections.FamilyRow {
		wf = wal.FamilyRow
	}
	return e.deleteNs(family, wf, namespace, collection, id)
}

// GetFamilyNs returns a value under the given collections.Family.
func (e *Engine) GetFamilyNs(family collections.Family, namespace, collection string, id uuid.UUID) (map[string]interface{}, bool) {
	if !e.owns(id) {
		return nil, false
	}
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.coll.Get(family, namespace, collection, id)
}

// AllFamilyNs returns every (id, value) pair in a collection, for
// full-scan query plans.
func (e *Engine) AllFamilyNs(family collections.Family, namespace, collection string) map[uuid.UUID]map[string]interface{} {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	out := make(map[uuid.UUID]map[string]interface{}, len(e.coll.All(family, namespace, collection)))
	for id, v := range e.coll.All(family, namespace, collection) {
		out[id] = v
	}
	return out
}

// LookupFamilyNs resolves an equality predicate via the secondary
// index, for the index-vs-scan query plan choice.
func (e *Engine) LookupFamilyNs(family collections.Family, namespace, collection, field, value string) ([]uuid.UUID, bool) {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.coll.Lookup(family, namespace, collection, field, value)
}

// CounterFamilyNs reports the live row/document count, for the
// index-vs-scan query plan choice.
func (e *Engine) CounterFamilyNs(family collections.Family, namespace, collection string) int {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.coll.Counter(family, namespace, collection)
}

// GetDocNs returns a document by id, or (nil, false) if missing or
// owned by a different shard.
func (e *Engine) GetDocNs(namespace, collection string, id uuid.UUID) (map[string]interface{}, bool) {
	if !e.owns(id) {
		return nil, false
	}
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.coll.Get(collections.FamilyDoc, namespace, collection, id)
}

// GetRowNs returns a row by id, or (nil, false) if missing or owned
// by a different shard.
func (e *Engine) GetRowNs(namespace, table string, id uuid.UUID) (map[string]interface{}, bool) {
	if !e.owns(id) {
		return nil, false
	}
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.coll.Get(collections.FamilyRow, namespace, table, id)
}

// SetSchema installs a schema for (family, namespace, collection).
func (e *Engine) SetSchema(family collections.Family, namespace, collection string, schema collections.Schema) error {
	schemaBytes, err := json.Marshal(schema.Fields)
	if err != nil {
		return errs.Codec{Cause: err}
	}
	wf := wal.FamilyDoc
	if family == collections.FamilyRow {
		wf = wal.FamilyRow
	}
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	if err := e.append(wal.SchemaRecord{Family: wf, Namespace: namespace, Collection: collection, SchemaBytes: schemaBytes}); err != nil {
		return err
	}
	e.coll.SetSchema(family, namespace, collection, schema)
	return nil
}

// PutVector upserts a vector in the default namespace with no metadata.
func (e *Engine) PutVector(id uuid.UUID, v []float32) error {
	return e.PutVectorNs("default", id, v, nil)
}

// PutVectorNs upserts a vector with optional metadata in namespace ns,
// rejecting a length that differs from the namespace's dimensionality
// with errs.Validation before anything is written, WAL-appending
// before the in-memory insert, then best-effort
// auto-links it to its nearest neighbors.
func (e *Engine) PutVectorNs(ns string, id uuid.UUID, v []float32, meta map[string]string) error {
	if !e.owns(id) {
		return errs.WrongShard{ID: id.String(), ShardID: e.params.ShardID}
	}
	payload, err := wal.EncodeGob(vecWalPayload{Vector: v, Meta: meta})
	if err != nil {
		return errs.Codec{Cause: err}
	}
	ix := e.namespaceIndex(ns)
	if d := ix.Dim(); d != 0 && len(v) != d {
		return errs.DimensionMismatch{Expected: d, Got: len(v)}.AsValidation()
	}
	e.dataMu.Lock()
	if err := e.append(wal.PutRecord{Family: wal.FamilyVec, Key: id, Payload: payload, Namespace: ns}); err != nil {
		e.dataMu.Unlock()
		return err
	}
	e.dataMu.Unlock()

	if err := ix.Insert(id, v, meta); err != nil {
		if dm, ok := err.(errs.DimensionMismatch); ok {
			return dm.AsValidation()
		}
		return err
	}
	e.autoLinkNeighbors(ns, id, ix)
	return nil
}

func (e *Engine) autoLinkNeighbors(ns string, id uuid.UUID, ix *vector.Index) {
	if e.linkTopK <= 0 {
		return
	}
	ids, scores, err := ix.SearchANN(lookupVector(ix, id), e.linkTopK+1)
	if err != nil {
		return
	}
	linked := 0
	for i, other := range ids {
		if other == id {
			continue
		}
		if linked >= e.linkTopK {
			break
		}
		weight := float32(1.0 / (1.0 + math.Abs(float64(scores[i]))))
		_ = e.AddEdge(id, other, weight)
		_ = e.AddEdge(other, id, weight)
		linked++
	}
}

// lookupVector fetches the stored (already normalized) vector for id
// so auto-linking queries the index with the exact stored backing.
func lookupVector(ix *vector.Index, id uuid.UUID) []float32 {
	v, _ := ix.Vector(id)
	return v
}

// DeleteVectorNs tombstones a vector in namespace ns.
func (e *Engine) DeleteVectorNs(ns string, id uuid.UUID) error {
	if !e.owns(id) {
		return errs.WrongShard{ID: id.String(), ShardID: e.params.ShardID}
	}
	e.dataMu.Lock()
	if err := e.append(wal.DeleteRecord{Family: wal.FamilyVec, Key: id, Namespace: ns}); err != nil {
		e.dataMu.Unlock()
		return err
	}
	e.dataMu.Unlock()
	e.namespaceIndex(ns).Delete(id)
	return nil
}

// SearchVectorNs performs an ANN search in namespace ns.
func (e *Engine) SearchVectorNs(ns string, query []float32, k int) ([]uuid.UUID, []float32, error) {
	return e.namespaceIndex(ns).SearchANN(query, k)
}

// SearchVectorMetricNs performs a search in namespace ns with an
// explicit metric and metadata filter, without mutating the
// namespace's configured metric.
func (e *Engine) SearchVectorMetricNs(ns string, query []float32, k int, metric vector.Metric, filter map[string]string) ([]uuid.UUID, []float32, error) {
	return e.namespaceIndex(ns).SearchWith(metric, query, k, filter)
}

// AddEdge appends a weighted directed edge, WAL-first.
func (e *Engine) AddEdge(src, dst uuid.UUID, weight float32) error {
	if !e.owns(src) {
		return errs.WrongShard{ID: src.String(), ShardID: e.params.ShardID}
	}
	if err := e.append(wal.AddEdgeRecord{Src: src, Dst: dst, Weight: weight}); err != nil {
		return err
	}
	e.g.AddEdge(src, dst, weight)
	return nil
}

// Neighbors, BFS, DFS delegate to the graph store.
func (e *Engine) Neighbors(id uuid.UUID, limit int) []graph.Edge { return e.g.Neighbors(id, limit) }
func (e *Engine) BFS(start uuid.UUID, limit int) []graph.Edge     { return e.g.BFS(start, limit) }
func (e *Engine) DFS(start uuid.UUID, limit int) []graph.Edge     { return e.g.DFS(start, limit) }

// RebuildVectorsNs rebuilds the HNSW graph for one namespace.
func (e *Engine) RebuildVectorsNs(ns string) {
	e.namespaceIndex(ns).RebuildHNSW()
}

// SaveVectorSnapshots persists every namespace's flat snapshot and
// HNSW dump, either under {path}/vectors/{namespace}.{snapshot,hnsw}
// or through the configured persistence.Backend.
func (e *Engine) SaveVectorSnapshots() error {
	e.vecMu.RLock()
	namespaces := make(map[string]*vector.Index, len(e.vectors))
	for ns, ix := range e.vectors {
		namespaces[ns] = ix
	}
	e.vecMu.RUnlock()

	if e.backend != nil {
		return e.saveVectorSnapshotsToBackend(namespaces)
	}

	dir := filepath.Join(e.path, "vectors")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Io{Cause: err}
	}
	for ns, ix := range namespaces {
		if err := ix.SaveSnapshot(filepath.Join(dir, ns+".snapshot")); err != nil {
			return err
		}
		if err := ix.SaveHNSW(filepath.Join(dir, ns+".hnsw")); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) saveVectorSnapshotsToBackend(namespaces map[string]*vector.Index) error {
	manifest := vectorNamespaceManifest{Namespaces: make([]string, 0, len(namespaces))}
	for ns := range namespaces {
		manifest.Namespaces = append(manifest.Namespaces, ns)
	}
	w, err := e.backend.WriteBlob(e.shardKey, "namespaces")
	if err != nil {
		return errs.Io{Cause: err}
	}
	encErr := json.NewEncoder(w).Encode(manifest)
	closeErr := w.Close()
	if encErr != nil {
		return errs.Codec{Cause: encErr}
	}
	if closeErr != nil {
		return errs.Io{Cause: closeErr}
	}

	for ns, ix := range namespaces {
		if err := e.saveBackendBlob(ns+".snapshot", ix.SaveSnapshotTo); err != nil {
			return err
		}
		if err := e.saveBackendBlob(ns+".hnsw", ix.SaveHNSWTo); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) saveBackendBlob(name string, write func(io.Writer) error) error {
	w, err := e.backend.WriteBlob(e.shardKey, name)
	if err != nil {
		return errs.Io{Cause: err}
	}
	writeErr := write(w)
	closeErr := w.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return errs.Io{Cause: closeErr}
	}
	return nil
}

// FlushWal forces the WAL writer to disk.
func (e *Engine) FlushWal() error {
	return e.w.FlushSync()
}

// StartBackgroundTasks launches two ticker-driven goroutines scoped to
// ctx: a group-commit loop flushing the WAL every GroupCommitInterval
// (filled in with the 50ms default if left zero), and a sweep that
// rebuilds any namespace's HNSW graph once it holds live tombstones,
// catching namespaces whose deletes trickle in too slowly to ever hit
// Index.rebuildThreshold on their own. Both goroutines observe
// ctx.Done() between ticks and return without starting another flush
// or sweep once it fires.
func (e *Engine) StartBackgroundTasks(ctx context.Context) {
	interval := e.params.GroupCommitInterval
	if interval <= 0 {
		interval = defaultGroupCommitInterval
	}
	go e.groupCommitLoop(ctx, interval)
	go e.tombstoneSweepLoop(ctx, interval)
}

func (e *Engine) groupCommitLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.FlushWal(); err != nil {
				log.Printf("engine: group-commit flush failed: %v", err)
			}
		}
	}
}

func (e *Engine) tombstoneSweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepTombstones()
		}
	}
}

func (e *Engine) sweepTombstones() {
	e.vecMu.RLock()
	namespaces := make([]*vector.Index, 0, len(e.vectors))
	for _, ix := range e.vectors {
		namespaces = append(namespaces, ix)
	}
	e.vecMu.RUnlock()
	for _, ix := range namespaces {
		if ix.TombstoneCount() > 0 {
			ix.RebuildHNSW()
		}
	}
}

// Vacuum rebuilds every namespace's HNSW graph (dropping tombstones),
// persists fresh snapshots, and truncates the WAL. Snapshot happens
// before truncate so a crash mid-vacuum never loses acknowledged
// writes that made it into the new snapshot.
func (e *Engine) Vacuum() error {
	e.vecMu.RLock()
	namespaces := make([]*vector.Index, 0, len(e.vectors))
	for _, ix := range e.vectors {
		namespaces = append(namespaces, ix)
	}
	e.vecMu.RUnlock()
	for _, ix := range namespaces {
		ix.RebuildHNSW()
	}
	if err := e.SaveVectorSnapshots(); err != nil {
		return err
	}
	return e.w.Truncate()
}

// MetricsSnapshot is a point-in-time view of engine health.
type MetricsSnapshot struct {
	VectorNamespaces int
	WalBytes         int64
	SnapshotMTime    time.Time
	LinkTopK         int
	ShardID          int
	ShardTotal       int
}

// Metrics reports a point-in-time view of the shard's state.
func (e *Engine) Metrics() MetricsSnapshot {
	length, _ := e.w.Len()
	var mtime time.Time
	if fi, err := os.Stat(filepath.Join(e.path, "vectors")); err == nil {
		mtime = fi.ModTime()
	}
	e.vecMu.RLock()
	n := len(e.vectors)
	e.vecMu.RUnlock()
	return MetricsSnapshot{
		VectorNamespaces: n,
		WalBytes:         length,
		SnapshotMTime:    mtime,
		LinkTopK:         e.linkTopK,
		ShardID:          e.params.ShardID,
		ShardTotal:       e.params.ShardTotal,
	}
}

// SetLinkTopK changes how many auto-link neighbors future vector
// inserts connect to.
func (e *Engine) SetLinkTopK(k int) { e.linkTopK = k }

// SetEfSearchNs / SetEfConstructionNs tune a namespace's ANN knobs.
func (e *Engine) SetEfSearchNs(ns string, ef int)       { e.namespaceIndex(ns).SetEfSearch(ef) }
func (e *Engine) SetEfConstructionNs(ns string, ef int) { e.namespaceIndex(ns).SetEfConstruction(ef) }

// Close flushes the WAL writer's buffered bytes without truncating.
func (e *Engine) Close() error {
	return e.w.FlushSync()
}
