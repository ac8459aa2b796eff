package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestAppendReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.New()
	if err := w.Append(PutRecord{Family: FamilyDoc, Key: id, Payload: []byte(`{"a":1}`), Namespace: "default", Collection: "people"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(DeleteRecord{Family: FamilyDoc, Key: id}); err != nil {
		t.Fatal(err)
	}
	records, err := w.Replay()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if p, ok := records[0].(PutRecord); !ok || p.Key != id {
		t.Fatalf("unexpected first record: %#v", records[0])
	}
}

func TestReplayToleratesTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.New()
	if err := w.Append(PutRecord{Family: FamilyDoc, Key: id, Payload: []byte(`{"a":1}`)}); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(PutRecord{Family: FamilyDoc, Key: uuid.New(), Payload: []byte(`{"b":2}`)}); err != nil {
		t.Fatal(err)
	}
	if err := w.FlushSync(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "wal.log")
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// tear off the last few bytes to simulate a crash mid-append
	if err := os.Truncate(path, fi.Size()-3); err != nil {
		t.Fatal(err)
	}

	w2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	records, err := w2.Replay()
	if err != nil {
		t.Fatalf("replay of torn tail must not error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly the one complete prior record, got %d", len(records))
	}
}

func TestReplaySinceReturnsEndOffset(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(PutRecord{Family: FamilyDoc, Key: uuid.New(), Payload: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
	records, end, err := w.ReplaySince(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	length, err := w.Len()
	if err != nil {
		t.Fatal(err)
	}
	if end != length {
		t.Fatalf("expected end offset %d to equal wal length %d", end, length)
	}
}

func TestTruncateResetsLength(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(PutRecord{Family: FamilyDoc, Key: uuid.New(), Payload: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if err := w.Truncate(); err != nil {
		t.Fatal(err)
	}
	length, err := w.Len()
	if err != nil {
		t.Fatal(err)
	}
	if length != 0 {
		t.Fatalf("expected zero length after truncate, got %d", length)
	}
}
