package migrate

import "testing"

func TestToValueConvertsDriverTypes(t *testing.T) {
	if toValue(nil) != nil {
		t.Fatal("nil should map to nil")
	}
	if got := toValue(int64(7)); got != float64(7) {
		t.Fatalf("int64: got %v", got)
	}
	if got := toValue([]byte("hi")); got != "hi" {
		t.Fatalf("[]byte: got %v", got)
	}
	if got := toValue(true); got != true {
		t.Fatalf("bool: got %v", got)
	}
}

func TestRowToValueZipsColumnsAndValues(t *testing.T) {
	cols := []string{"id", "name"}
	raw := []interface{}{int64(1), "alice"}
	got := rowToValue(cols, raw)
	if got["id"] != float64(1) || got["name"] != "alice" {
		t.Fatalf("unexpected row: %#v", got)
	}
}

func TestEscapeBacktickDoublesEmbeddedBacktick(t *testing.T) {
	if got := escapeBacktick("a`b"); got != "a``b" {
		t.Fatalf("got %q", got)
	}
}

func TestEscapeDoubleQuoteDoublesEmbeddedQuote(t *testing.T) {
	if got := escapeDoubleQuote(`a"b`); got != `a""b` {
		t.Fatalf("got %q", got)
	}
}
