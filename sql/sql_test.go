package sql

import (
	"testing"

	"github.com/shrijacked/Pieskieo/collections"
	"github.com/shrijacked/Pieskieo/engine"
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Open(t.TempDir(), engine.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestInsertSelectOrderByLimit(t *testing.T) {
	e := openTestEngine(t)
	names := []string{"carol", "alice", "bob"}
	for i, name := range names {
		stmt := "INSERT INTO people (name, age) VALUES ('" + name + "', " + itoa(20+i) + ")"
		if _, err := Exec(e, stmt); err != nil {
			t.Fatalf("insert %q: %v", name, err)
		}
	}

	res, err := Exec(e, "SELECT name FROM people ORDER BY name ASC LIMIT 2")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if res.Rows[0]["name"] != "alice" || res.Rows[1]["name"] != "bob" {
		t.Fatalf("unexpected order: %#v", res.Rows)
	}
}

func TestSchemaUniqueViolationAndIndexLookup(t *testing.T) {
	e := openTestEngine(t)
	if err := e.SetSchema(collections.FamilyDoc, "default", "users", collections.Schema{
		Fields: map[string]collections.FieldSchema{
			"email": {Required: true, Unique: true},
		},
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := Exec(e, "INSERT INTO users (email) VALUES ('a@example.com')"); err != nil {
		t.Fatal(err)
	}
	if _, err := Exec(e, "INSERT INTO users (email) VALUES ('a@example.com')"); err == nil {
		t.Fatal("expected unique violation on duplicate email")
	}

	res, err := Exec(e, "SELECT email FROM users WHERE email = 'a@example.com'")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["email"] != "a@example.com" {
		t.Fatalf("unexpected lookup result: %#v", res.Rows)
	}
}

func TestUpdateAndDeleteRoundTrip(t *testing.T) {
	e := openTestEngine(t)
	if _, err := Exec(e, "INSERT INTO widgets (color) VALUES ('red')"); err != nil {
		t.Fatal(err)
	}

	upd, err := Exec(e, "UPDATE widgets SET color = 'blue' WHERE color = 'red'")
	if err != nil {
		t.Fatal(err)
	}
	if upd.Affected != 1 {
		t.Fatalf("expected 1 row updated, got %d", upd.Affected)
	}

	res, err := Exec(e, "SELECT color FROM widgets WHERE color = 'blue'")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row after update, got %d", len(res.Rows))
	}

	del, err := Exec(e, "DELETE FROM widgets WHERE color = 'blue'")
	if err != nil {
		t.Fatal(err)
	}
	if del.Affected != 1 {
		t.Fatalf("expected 1 row deleted, got %d", del.Affected)
	}

	res, err = Exec(e, "SELECT color FROM widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 0 {
		t.Fatalf("expected no rows left, got %#v", res.Rows)
	}
}

func TestCountAggregate(t *testing.T) {
	e := openTestEngine(t)
	for i := 0; i < 5; i++ {
		if _, err := Exec(e, "INSERT INTO items (n) VALUES ("+itoa(i)+")"); err != nil {
			t.Fatal(err)
		}
	}
	res, err := Exec(e, "SELECT COUNT(*) AS total FROM items")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["total"] != float64(5) {
		t.Fatalf("unexpected count result: %#v", res.Rows)
	}
}

func TestSumAvgMinMaxAggregates(t *testing.T) {
	e := openTestEngine(t)
	for _, n := range []int{3, 7, 5} {
		if _, err := Exec(e, "INSERT INTO items (n) VALUES ("+itoa(n)+")"); err != nil {
			t.Fatal(err)
		}
	}
	res, err := Exec(e, "SELECT SUM(n) AS s, AVG(n) AS a, MIN(n) AS mn, MAX(n) AS mx FROM items")
	if err != nil {
		t.Fatal(err)
	}
	row := res.Rows[0]
	if row["s"] != float64(15) || row["a"] != float64(5) || row["mn"] != float64(3) || row["mx"] != float64(7) {
		t.Fatalf("unexpected aggregate result: %#v", row)
	}
}

func TestSumAvgMinMaxAggregatesOnEmptySetYieldNull(t *testing.T) {
	e := openTestEngine(t)
	res, err := Exec(e, "SELECT COUNT(*) AS c, SUM(n) AS s, AVG(n) AS a, MIN(n) AS mn, MAX(n) AS mx FROM items")
	if err != nil {
		t.Fatal(err)
	}
	row := res.Rows[0]
	if row["c"] != float64(0) {
		t.Fatalf("expected count 0, got %#v", row["c"])
	}
	for _, alias := range []string{"s", "a", "mn", "mx"} {
		if row[alias] != nil {
			t.Fatalf("expected %s to be nil on empty set, got %#v", alias, row[alias])
		}
	}
}

func TestIndexVsScanHeuristicBoundary(t *testing.T) {
	e := openTestEngine(t)
	for i := 0; i < 30; i++ {
		status := "active"
		if i%2 == 0 {
			status = "inactive"
		}
		stmt := "INSERT INTO accounts (status) VALUES ('" + status + "')"
		if _, err := Exec(e, stmt); err != nil {
			t.Fatal(err)
		}
	}
	// total=30, threshold=max(15,10)=15; "active" has 15 hits, right at the boundary.
	res, err := Exec(e, "SELECT status FROM accounts WHERE status = 'active'")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 15 {
		t.Fatalf("expected 15 active accounts, got %d", len(res.Rows))
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
