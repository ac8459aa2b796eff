package shardpool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/engine"
)

func openTestPool(t *testing.T, total int) *Pool {
	t.Helper()
	p, err := Open(t.TempDir(), total, engine.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestShardForIsStableAndMatchesEngineHash(t *testing.T) {
	p := openTestPool(t, 4)
	id := uuid.New()
	e1 := p.ShardFor(id)
	e2 := p.ShardFor(id)
	if e1 != e2 {
		t.Fatal("ShardFor must be deterministic for the same id")
	}
}

func TestPutGetRoutesToOwningShard(t *testing.T) {
	p := openTestPool(t, 4)
	id := uuid.New()
	if err := p.PutDocNs("default", "people", id, map[string]interface{}{"name": "alice"}); err != nil {
		t.Fatal(err)
	}
	v, ok := p.GetDocNs("default", "people", id)
	if !ok || v["name"] != "alice" {
		t.Fatalf("unexpected doc: %#v ok=%v", v, ok)
	}
}

func TestSearchVectorNsMergesAcrossShards(t *testing.T) {
	p := openTestPool(t, 4)
	var ids []uuid.UUID
	for i := 0; i < 20; i++ {
		id := uuid.New()
		ids = append(ids, id)
		v := []float32{float32(i), 0, 0}
		if err := p.PutVectorNs("default", id, v, nil); err != nil {
			t.Fatal(err)
		}
	}
	gotIDs, _, err := p.SearchVectorNs("default", []float32{0, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotIDs) != 5 {
		t.Fatalf("expected 5 merged hits, got %d", len(gotIDs))
	}
}

func TestVacuumRunsAcrossAllShards(t *testing.T) {
	p := openTestPool(t, 3)
	for i := 0; i < 10; i++ {
		id := uuid.New()
		if err := p.PutVectorNs("default", id, []float32{float32(i), 1, 1}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Vacuum(); err != nil {
		t.Fatal(err)
	}
}

func TestReshardPreservesData(t *testing.T) {
	p := openTestPool(t, 2)
	ids := make([]uuid.UUID, 0, 30)
	for i := 0; i < 30; i++ {
		id := uuid.New()
		ids = append(ids, id)
		if err := p.PutDocNs("default", "items", id, map[string]interface{}{"n": float64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := p.Reshard(5); err != nil {
		t.Fatal(err)
	}
	if p.ShardCount() != 5 {
		t.Fatalf("expected 5 shards after reshard, got %d", p.ShardCount())
	}

	for i, id := range ids {
		v, ok := p.GetDocNs("default", "items", id)
		if !ok {
			t.Fatalf("doc %s missing after reshard", id)
		}
		if v["n"] != float64(i) {
			t.Fatalf("doc %s value changed after reshard: %#v", id, v)
		}
	}
}
