package persistence

import (
	"errors"
	"io"
	"testing"
)

func TestFileBackendWriteReadRoundTrip(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	w, err := b.WriteBlob("shard-0", "snapshot")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := b.ReadBlob("shard-0", "snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestFileBackendReadMissingBlobReturnsErrNotExist(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	_, err := b.ReadBlob("shard-0", "snapshot")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestFileBackendRemoveBlobAndShard(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	for _, name := range []string{"snapshot", "hnsw"} {
		w, err := b.WriteBlob("shard-0", name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("x"))
		w.Close()
	}
	w, err := b.WriteBlob("shard-1", "snapshot")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("y"))
	w.Close()

	if err := b.RemoveShard("shard-0"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ReadBlob("shard-0", "snapshot"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected shard-0/snapshot removed, got %v", err)
	}
	if _, err := b.ReadBlob("shard-0", "hnsw"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected shard-0/hnsw removed, got %v", err)
	}
	r, err := b.ReadBlob("shard-1", "snapshot")
	if err != nil {
		t.Fatalf("expected shard-1/snapshot untouched, got %v", err)
	}
	r.Close()
}
