package ch

import (
	"errors"
	"testing"

	"route_engine/pkg/graph"
)

func TestNewNodeOrder(t *testing.T) {
	o, err := NewNodeOrder([]graph.NodeID{2, 0, 1})
	if err != nil {
		t.Fatalf("NewNodeOrder() error: %v", err)
	}
	if o.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", o.Len())
	}

	wantRank := []uint32{1, 2, 0}
	for node, r := range wantRank {
		if o.Rank[node] != r {
			t.Errorf("Rank[%d] = %d, want %d", node, o.Rank[node], r)
		}
	}
	for r, node := range o.ByRank {
		if o.Rank[node] != uint32(r) {
			t.Errorf("ByRank[%d] = %d but Rank[%d] = %d", r, node, node, o.Rank[node])
		}
	}
}

func TestNewNodeOrderRejectsDuplicates(t *testing.T) {
	if _, err := NewNodeOrder([]graph.NodeID{0, 1, 1}); !errors.Is(err, ErrBadOrder) {
		t.Fatalf("NewNodeOrder() error = %v, want ErrBadOrder", err)
	}
}

func TestNewNodeOrderRejectsOutOfRange(t *testing.T) {
	if _, err := NewNodeOrder([]graph.NodeID{0, 1, 5}); !errors.Is(err, ErrBadOrder) {
		t.Fatalf("NewNodeOrder() error = %v, want ErrBadOrder", err)
	}
}

// buildStarStore builds a hub node 0 connected both ways to 4 leaves.
func buildStarStore(t *testing.T) *graph.Store {
	t.Helper()
	b := graph.NewBuilder()
	hub := b.AddNode(103.0, 1.0, 0)
	for i := 0; i < 4; i++ {
		leaf := b.AddNode(103.0+float64(i+1)*0.01, 1.0, 0)
		b.AddEdge(hub, leaf, 10)
		b.AddEdge(leaf, hub, 10)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return s
}

func TestDegreeOrderer(t *testing.T) {
	s := buildStarStore(t)

	o, err := DegreeOrderer{}.Order(s)
	if err != nil {
		t.Fatalf("Order() error: %v", err)
	}
	if o.Len() != s.NodeCount() {
		t.Fatalf("Len() = %d, want %d", o.Len(), s.NodeCount())
	}

	// The hub has degree 8, every leaf degree 2: the hub must rank last.
	if o.ByRank[o.Len()-1] != 0 {
		t.Errorf("highest rank node = %d, want hub 0", o.ByRank[o.Len()-1])
	}
	// Leaves tie on degree; ties break by node id.
	for r := 0; r < 4; r++ {
		if o.ByRank[r] != graph.NodeID(r+1) {
			t.Errorf("ByRank[%d] = %d, want %d", r, o.ByRank[r], r+1)
		}
	}
}

func TestEdgeDifferenceOrderer(t *testing.T) {
	s := buildStarStore(t)

	o, err := EdgeDifferenceOrderer{}.Order(s)
	if err != nil {
		t.Fatalf("Order() error: %v", err)
	}

	// Leaves: 1*1 - 2 = -1. Hub: 4*4 - 8 = 8. Hub ranks last again.
	if o.ByRank[o.Len()-1] != 0 {
		t.Errorf("highest rank node = %d, want hub 0", o.ByRank[o.Len()-1])
	}

	// The result must always be a valid bijection.
	if _, err := NewNodeOrder(o.ByRank); err != nil {
		t.Errorf("orderer output is not a bijection: %v", err)
	}
}

func TestOrderersOnEmptyStore(t *testing.T) {
	s, err := graph.NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	for _, ord := range []Orderer{DegreeOrderer{}, EdgeDifferenceOrderer{}} {
		o, err := ord.Order(s)
		if err != nil {
			t.Fatalf("Order() error: %v", err)
		}
		if o.Len() != 0 {
			t.Errorf("Len() = %d, want 0", o.Len())
		}
	}
}
