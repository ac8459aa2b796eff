package collections

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/errs"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	id := uuid.New()
	if err := s.Put(FamilyDoc, "default", "people", id, map[string]interface{}{"name": "alice", "age": 30.0}); err != nil {
		t.Fatal(err)
	}
	v, ok := s.Get(FamilyDoc, "default", "people", id)
	if !ok || v["name"] != "alice" {
		t.Fatalf("unexpected get result: %#v ok=%v", v, ok)
	}
	if s.Counter(FamilyDoc, "default", "people") != 1 {
		t.Fatalf("expected counter 1, got %d", s.Counter(FamilyDoc, "default", "people"))
	}
}

func TestLookupMatchesFullScan(t *testing.T) {
	s := New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	s.Put(FamilyDoc, "default", "people", a, map[string]interface{}{"age": 30.0})
	s.Put(FamilyDoc, "default", "people", b, map[string]interface{}{"age": 20.0})
	s.Put(FamilyDoc, "default", "people", c, map[string]interface{}{"age": 30.0})

	indexed, ok := s.Lookup(FamilyDoc, "default", "people", "age", "30")
	if !ok {
		t.Fatal("expected index entries for age=30")
	}
	byIndex := map[uuid.UUID]bool{}
	for _, id := range indexed {
		byIndex[id] = true
	}

	byScan := map[uuid.UUID]bool{}
	for id, v := range s.All(FamilyDoc, "default", "people") {
		if v["age"] == 30.0 {
			byScan[id] = true
		}
	}
	if len(byIndex) != len(byScan) {
		t.Fatalf("index result (%d) disagrees with full scan (%d)", len(byIndex), len(byScan))
	}
	for id := range byScan {
		if !byIndex[id] {
			t.Fatalf("id %v found by scan but missing from index", id)
		}
	}
}

func TestDeleteScrubsIndex(t *testing.T) {
	s := New()
	id := uuid.New()
	s.Put(FamilyDoc, "default", "people", id, map[string]interface{}{"name": "alice"})
	if !s.Delete(FamilyDoc, "default", "people", id) {
		t.Fatal("expected delete to report existed")
	}
	results, ok := s.Lookup(FamilyDoc, "default", "people", "name", "alice")
	if ok && len(results) != 0 {
		t.Fatalf("expected index scrubbed after delete, got %#v", results)
	}
	if s.Counter(FamilyDoc, "default", "people") != 0 {
		t.Fatalf("expected counter back to 0, got %d", s.Counter(FamilyDoc, "default", "people"))
	}
}

func TestSchemaRequiredField(t *testing.T) {
	s := New()
	s.SetSchema(FamilyDoc, "default", "users", Schema{Fields: map[string]FieldSchema{
		"email": {Required: true},
	}})
	err := s.Put(FamilyDoc, "default", "users", uuid.New(), map[string]interface{}{"name": "alice"})
	if _, ok := err.(errs.Validation); !ok {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

func TestSchemaUniqueViolation(t *testing.T) {
	s := New()
	s.SetSchema(FamilyDoc, "default", "users", Schema{Fields: map[string]FieldSchema{
		"email": {Required: true, Unique: true},
	}})
	u1 := uuid.New()
	if err := s.Put(FamilyDoc, "default", "users", u1, map[string]interface{}{"email": "x@y"}); err != nil {
		t.Fatal(err)
	}
	err := s.Put(FamilyDoc, "default", "users", uuid.New(), map[string]interface{}{"email": "x@y"})
	uv, ok := err.(errs.UniqueViolation)
	if !ok {
		t.Fatalf("expected UniqueViolation, got %v", err)
	}
	if uv.Field != "email" {
		t.Fatalf("expected field email, got %s", uv.Field)
	}

	ids, ok := s.Lookup(FamilyDoc, "default", "users", "email", "x@y")
	if !ok || len(ids) != 1 || ids[0] != u1 {
		t.Fatalf("expected lookup to resolve exactly u1, got %#v", ids)
	}
}

func TestSchemaAllowsReinsertingSameID(t *testing.T) {
	s := New()
	s.SetSchema(FamilyDoc, "default", "users", Schema{Fields: map[string]FieldSchema{
		"email": {Required: true, Unique: true},
	}})
	id := uuid.New()
	if err := s.Put(FamilyDoc, "default", "users", id, map[string]interface{}{"email": "x@y"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(FamilyDoc, "default", "users", id, map[string]interface{}{"email": "x@y", "name": "alice"}); err != nil {
		t.Fatalf("updating the same id under its own unique value should not conflict: %v", err)
	}
}

func TestEmptyNamespaceDefaultsToDefault(t *testing.T) {
	s := New()
	id := uuid.New()
	s.Put(FamilyDoc, "", "people", id, map[string]interface{}{"name": "alice"})
	v, ok := s.Get(FamilyDoc, "default", "people", id)
	if !ok || v["name"] != "alice" {
		t.Fatal("expected empty namespace to resolve to \"default\"")
	}
}
