package vector

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestSearchReturnsSelfAsTopHit(t *testing.T) {
	ix := New(Cosine)
	target := uuid.New()
	if err := ix.Insert(target, []float32{1, 0, 0, 0}, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if err := ix.Insert(uuid.New(), []float32{0, 1, float32(i) * 0.01, 0}, nil); err != nil {
			t.Fatal(err)
		}
	}
	ids, _, err := ix.Search([]float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) == 0 || ids[0] != target {
		t.Fatalf("expected self as top hit, got %#v", ids)
	}
}

func TestDimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	ix := New(L2)
	id := uuid.New()
	if err := ix.Insert(id, []float32{1, 2, 3}, nil); err != nil {
		t.Fatal(err)
	}
	before := ix.Len()
	err := ix.Insert(uuid.New(), []float32{1, 2}, nil)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if ix.Len() != before {
		t.Fatalf("index mutated on rejected insert: before=%d after=%d", before, ix.Len())
	}
}

func TestCosineNormalizeIsUnitNorm(t *testing.T) {
	ix := New(Cosine)
	id := uuid.New()
	if err := ix.Insert(id, []float32{3, 4, 0}, nil); err != nil {
		t.Fatal(err)
	}
	ix.primaryMu.RLock()
	v := ix.primary[id]
	ix.primaryMu.RUnlock()
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-5 {
		t.Fatalf("expected unit norm, got %v", norm)
	}
}

func TestDeleteTombstonesAndExcludesFromSearch(t *testing.T) {
	ix := New(L2)
	id := uuid.New()
	if err := ix.Insert(id, []float32{1, 1}, nil); err != nil {
		t.Fatal(err)
	}
	ix.Insert(uuid.New(), []float32{5, 5}, nil)
	if !ix.Delete(id) {
		t.Fatal("expected delete to report existed=true")
	}
	ids, _, err := ix.Search([]float32{1, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, got := range ids {
		if got == id {
			t.Fatal("deleted id should not appear in exact search results")
		}
	}
}

func TestSearchFilteredHonorsMetadata(t *testing.T) {
	ix := New(L2)
	keep := uuid.New()
	drop := uuid.New()
	ix.Insert(keep, []float32{0, 0}, map[string]string{"tenant": "a"})
	ix.Insert(drop, []float32{0, 0}, map[string]string{"tenant": "b"})
	ids, _, err := ix.SearchFiltered([]float32{0, 0}, 10, map[string]string{"tenant": "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != keep {
		t.Fatalf("expected only tenant a result, got %#v", ids)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ix := New(Cosine)
	id := uuid.New()
	ix.Insert(id, []float32{1, 2, 3}, map[string]string{"k": "v"})

	path := filepath.Join(t.TempDir(), "snap.bin")
	if err := ix.SaveSnapshot(path); err != nil {
		t.Fatal(err)
	}

	loaded := New(Cosine)
	if err := loaded.LoadSnapshot(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("expected 1 vector after load, got %d", loaded.Len())
	}
	ids, _, err := loaded.Search([]float32{1, 2, 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected loaded id to round-trip, got %#v", ids)
	}
}

func TestRebuildHNSWDropsTombstones(t *testing.T) {
	ix := New(L2)
	keep := uuid.New()
	drop := uuid.New()
	ix.Insert(keep, []float32{1, 1}, nil)
	ix.Insert(drop, []float32{2, 2}, nil)
	ix.Delete(drop)
	ix.RebuildHNSW()

	ix.tombMu.RLock()
	n := len(ix.tombstoned)
	ix.tombMu.RUnlock()
	if n != 0 {
		t.Fatalf("expected tombstones cleared after rebuild, got %d", n)
	}
}
