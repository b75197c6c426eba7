package graph

import (
	"errors"
	"testing"
)

func TestBuildSimpleGraph(t *testing.T) {
	// Triangle graph: 0 -> 1 -> 2 -> 0
	b := NewBuilder()
	n0 := b.AddNode(103.0, 1.0, 0)
	n1 := b.AddNode(103.0, 1.1, 0)
	n2 := b.AddNode(103.1, 1.0, 0)
	b.AddEdge(n0, n1, 1000)
	b.AddEdge(n1, n2, 2000)
	b.AddEdge(n2, n0, 3000)

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if s.NodeCount() != 3 {
		t.Fatalf("NodeCount() = %d, want 3", s.NodeCount())
	}
	if s.EdgeCount() != 3 {
		t.Fatalf("EdgeCount() = %d, want 3", s.EdgeCount())
	}

	// Each node has exactly one outgoing and one incoming edge.
	for n := NodeID(0); n < 3; n++ {
		if got := len(s.OutgoingEdges(n)); got != 1 {
			t.Errorf("node %d has %d outgoing edges, want 1", n, got)
		}
		if got := len(s.IncomingEdges(n)); got != 1 {
			t.Errorf("node %d has %d incoming edges, want 1", n, got)
		}
	}

	var totalWeight float64
	for id := EdgeID(0); int(id) < s.EdgeCount(); id++ {
		e, _ := s.Edge(id)
		totalWeight += e.Weight
	}
	if totalWeight != 6000 {
		t.Errorf("total weight = %f, want 6000", totalWeight)
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	s, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if s.NodeCount() != 0 {
		t.Errorf("NodeCount() = %d, want 0", s.NodeCount())
	}
	if s.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0", s.EdgeCount())
	}
}

func TestBuildAdjacencyOrder(t *testing.T) {
	// Star graph: center -> A, center -> B, center -> C. Adjacency must
	// list edges in insertion (edge id) order.
	b := NewBuilder()
	center := b.AddNode(103.0, 1.0, 0)
	a := b.AddNode(103.1, 1.1, 0)
	bb := b.AddNode(103.2, 1.2, 0)
	c := b.AddNode(103.3, 1.3, 0)
	e0 := b.AddEdge(center, a, 100)
	e1 := b.AddEdge(center, bb, 200)
	e2 := b.AddEdge(center, c, 300)

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	out := s.OutgoingEdges(center)
	want := []EdgeID{e0, e1, e2}
	if len(out) != len(want) {
		t.Fatalf("outgoing edges = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("outgoing edges = %v, want %v", out, want)
		}
	}
}

func TestBuildUnknownNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode(103.0, 1.0, 0)
	b.AddEdge(0, 7, 100)

	if _, err := b.Build(); !errors.Is(err, ErrStructure) {
		t.Fatalf("Build() error = %v, want ErrStructure", err)
	}
}

func TestBuildBadWeight(t *testing.T) {
	b := NewBuilder()
	n0 := b.AddNode(103.0, 1.0, 0)
	n1 := b.AddNode(103.1, 1.0, 0)
	b.AddEdge(n0, n1, -5)

	if _, err := b.Build(); !errors.Is(err, ErrStructure) {
		t.Fatalf("Build() error = %v, want ErrStructure", err)
	}
}

func TestBuildRestrictionUnknownEdge(t *testing.T) {
	b := NewBuilder()
	n0 := b.AddNode(103.0, 1.0, 0)
	n1 := b.AddNode(103.1, 1.0, 0)
	b.AddEdge(n0, n1, 10)
	b.AddTurnRestriction(0, n1, 99)

	if _, err := b.Build(); !errors.Is(err, ErrEdgeNotFound) {
		t.Fatalf("Build() error = %v, want ErrEdgeNotFound", err)
	}
}

func TestBuildRestrictionUnknownVia(t *testing.T) {
	b := NewBuilder()
	n0 := b.AddNode(103.0, 1.0, 0)
	n1 := b.AddNode(103.1, 1.0, 0)
	e0 := b.AddEdge(n0, n1, 10)
	e1 := b.AddEdge(n1, n0, 10)
	b.AddTurnRestriction(e0, NodeID(9999), e1)

	if _, err := b.Build(); !errors.Is(err, ErrStructure) {
		t.Fatalf("Build() error = %v, want ErrStructure", err)
	}
}

func TestBuildRestrictionViaMismatch(t *testing.T) {
	// Restriction whose edges do not meet at the via node must fail
	// validation.
	b := NewBuilder()
	n0 := b.AddNode(103.0, 1.0, 0)
	n1 := b.AddNode(103.1, 1.0, 0)
	n2 := b.AddNode(103.2, 1.0, 0)
	e0 := b.AddEdge(n0, n1, 10)
	e1 := b.AddEdge(n1, n2, 10)
	b.AddTurnRestriction(e0, n2, e1)

	if _, err := b.Build(); !errors.Is(err, ErrStructure) {
		t.Fatalf("Build() error = %v, want ErrStructure", err)
	}
}

func TestBuildWithRestriction(t *testing.T) {
	b := NewBuilder()
	n0 := b.AddNode(103.0, 1.0, 0)
	n1 := b.AddNode(103.1, 1.0, 0)
	n2 := b.AddNode(103.2, 1.0, 0)
	e0 := b.AddEdge(n0, n1, 10)
	e1 := b.AddEdge(n1, n2, 10)
	b.AddTurnRestriction(e0, n1, e1)

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !s.IsTurnRestricted(e0, n1, e1) {
		t.Error("expected transition e0 -> n1 -> e1 to be restricted")
	}
	if s.IsTurnRestricted(e1, n1, e0) {
		t.Error("reverse transition must not be restricted")
	}
	if !s.HasRestrictionVia(n1) {
		t.Error("expected n1 to be flagged as a restriction via node")
	}
	if s.HasRestrictionVia(n0) {
		t.Error("n0 must not be flagged as a restriction via node")
	}
}
