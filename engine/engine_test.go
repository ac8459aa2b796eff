package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/errs"
	"github.com/shrijacked/Pieskieo/persistence"
)

func openTest(t *testing.T, params Params) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), params)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestPutGetDocRoundTrip(t *testing.T) {
	e := openTest(t, DefaultParams())
	id := uuid.New()
	if err := e.PutDocNs("default", "people", id, map[string]interface{}{"name": "alice"}); err != nil {
		t.Fatal(err)
	}
	v, ok := e.GetDocNs("default", "people", id)
	if !ok || v["name"] != "alice" {
		t.Fatalf("unexpected doc: %#v ok=%v", v, ok)
	}
}

func TestPutVectorAndSearch(t *testing.T) {
	e := openTest(t, DefaultParams())
	id := uuid.New()
	if err := e.PutVectorNs("default", id, []float32{1, 2, 3}, nil); err != nil {
		t.Fatal(err)
	}
	ids, _, err := e.SearchVectorNs("default", []float32{1, 2, 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected self as top hit, got %#v", ids)
	}
}

func TestAutoLinkProducesBidirectionalEdges(t *testing.T) {
	params := DefaultParams()
	params.LinkTopK = 1
	e := openTest(t, params)
	a, b := uuid.New(), uuid.New()
	if err := e.PutVectorNs("default", a, []float32{0, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.PutVectorNs("default", b, []float32{0, 0.1}, nil); err != nil {
		t.Fatal(err)
	}
	neighbors := e.Neighbors(a, 10)
	found := false
	for _, n := range neighbors {
		if n.Dst == b {
			found = true
		}
	}
	if !found {
		t.Fatal("expected auto-linked neighbor from a to b")
	}
	back := e.Neighbors(b, 10)
	found = false
	for _, n := range back {
		if n.Dst == a {
			found = true
		}
	}
	if !found {
		t.Fatal("expected auto-linked neighbor back from b to a")
	}
}

func TestWrongShardRejectsMisroutedWrite(t *testing.T) {
	params := DefaultParams()
	params.ShardTotal = 4
	params.ShardID = 0
	e := openTest(t, params)

	var foreign uuid.UUID
	for i := 0; i < 10000; i++ {
		id := uuid.New()
		if ShardHash(id)%4 != 0 {
			foreign = id
			break
		}
	}
	err := e.PutDocNs("default", "people", foreign, map[string]interface{}{"x": 1.0})
	if _, ok := err.(errs.WrongShard); !ok {
		t.Fatalf("expected WrongShard error, got %v", err)
	}
}

func TestVacuumClearsTombstonesAndWal(t *testing.T) {
	e := openTest(t, DefaultParams())
	a, b := uuid.New(), uuid.New()
	e.PutVectorNs("default", a, []float32{0, 0}, nil)
	e.PutVectorNs("default", b, []float32{1, 1}, nil)
	if err := e.DeleteVectorNs("default", a); err != nil {
		t.Fatal(err)
	}
	if err := e.Vacuum(); err != nil {
		t.Fatal(err)
	}
	length, err := e.w.Len()
	if err != nil {
		t.Fatal(err)
	}
	if length != 0 {
		t.Fatalf("expected WAL truncated after vacuum, got %d bytes", length)
	}
}

func TestReplayRestoresStateAfterReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard0")
	e := openTest2(t, dir, DefaultParams())
	id := uuid.New()
	if err := e.PutDocNs("default", "people", id, map[string]interface{}{"name": "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	v, ok := reopened.GetDocNs("default", "people", id)
	if !ok || v["name"] != "alice" {
		t.Fatalf("expected doc to survive reopen, got %#v ok=%v", v, ok)
	}
}

func TestVacuumSurvivesReopenOnLocalDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard0")
	e := openTest2(t, dir, DefaultParams())
	id := uuid.New()
	if err := e.PutVectorNs("default", id, []float32{4, 5, 6}, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.Vacuum(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	ids, _, err := reopened.SearchVectorNs("default", []float32{4, 5, 6}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected vector to survive vacuum+reopen on local disk, got %#v", ids)
	}
}

func TestVacuumSurvivesReopenThroughBackend(t *testing.T) {
	shardDir := filepath.Join(t.TempDir(), "shard0")
	backend := persistence.NewFileBackend(filepath.Join(t.TempDir(), "blobs"))
	params := DefaultParams()
	params.Backend = backend

	e := openTest2(t, shardDir, params)
	id := uuid.New()
	if err := e.PutVectorNs("default", id, []float32{1, 2, 3}, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.Vacuum(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(shardDir, params)
	if err != nil {
		t.Fatal(err)
	}
	ids, _, err := reopened.SearchVectorNs("default", []float32{1, 2, 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected vector to survive vacuum+reopen through backend, got %#v", ids)
	}
}

func TestStartBackgroundTasksFlushesWalAndSweepsTombstones(t *testing.T) {
	params := DefaultParams()
	params.GroupCommitInterval = 5 * time.Millisecond
	e := openTest(t, params)

	a, b := uuid.New(), uuid.New()
	if err := e.PutVectorNs("default", a, []float32{0, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.PutVectorNs("default", b, []float32{1, 1}, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteVectorNs("default", a); err != nil {
		t.Fatal(err)
	}

	ix := e.namespaceIndex("default")
	if ix.TombstoneCount() == 0 {
		t.Fatal("expected a pending tombstone before the sweep runs")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.StartBackgroundTasks(ctx)
	defer cancel()

	deadline := time.After(2 * time.Second)
	for ix.TombstoneCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for background sweep to rebuild the tombstoned namespace")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func openTest2(t *testing.T, dir string, params Params) *Engine {
	t.Helper()
	e, err := Open(dir, params)
	if err != nil {
		t.Fatal(err)
	}
	return e
}
