package graph

import (
	"testing"

	"github.com/google/uuid"
)

func TestAddEdgeOverwritesWeight(t *testing.T) {
	g := New()
	a, b := uuid.New(), uuid.New()
	g.AddEdge(a, b, 1.0)
	g.AddEdge(a, b, 2.0)
	neighbors := g.Neighbors(a, 10)
	if len(neighbors) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(neighbors))
	}
	if neighbors[0].Weight != 2.0 {
		t.Fatalf("expected overwritten weight 2.0, got %v", neighbors[0].Weight)
	}
}

func TestBFSVisitsEachNodeOnce(t *testing.T) {
	g := New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	g.AddEdge(a, b, 1)
	g.AddEdge(a, c, 1)
	g.AddEdge(b, c, 1)
	g.AddEdge(c, a, 1)
	edges := g.BFS(a, 10)
	seen := map[uuid.UUID]bool{}
	for _, e := range edges {
		if seen[e.Dst] {
			t.Fatalf("node %v expanded more than once", e.Dst)
		}
		seen[e.Dst] = true
	}
}

func TestBFSRespectsLimit(t *testing.T) {
	g := New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	g.AddEdge(a, b, 1)
	g.AddEdge(a, c, 1)
	edges := g.BFS(a, 1)
	if len(edges) != 1 {
		t.Fatalf("expected exactly 1 edge under limit, got %d", len(edges))
	}
}

func TestDFSOrderMatchesInsertion(t *testing.T) {
	g := New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	g.AddEdge(a, b, 1)
	g.AddEdge(a, c, 1)
	edges := g.DFS(a, 10)
	if len(edges) != 2 || edges[0].Dst != b || edges[1].Dst != c {
		t.Fatalf("expected left-to-right insertion order [b,c], got %#v", edges)
	}
}
