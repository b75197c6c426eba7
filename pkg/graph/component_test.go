package graph

import "testing"

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	if !uf.Union(0, 1) {
		t.Error("Union(0, 1) = false, want true (first merge)")
	}
	if uf.Union(0, 1) {
		t.Error("Union(0, 1) repeated should return false")
	}
	uf.Union(1, 2)

	if uf.Find(0) != uf.Find(2) {
		t.Error("0 and 2 should share a representative after unions")
	}
	if uf.Find(3) == uf.Find(0) {
		t.Error("3 should remain in its own set")
	}
}

// buildTwoComponents builds a 3-node cycle plus a separate 2-node pair.
func buildTwoComponents(t *testing.T) *Store {
	t.Helper()
	b := NewBuilder()
	for i := 0; i < 5; i++ {
		b.AddNode(103.0+float64(i)*0.01, 1.0, 0)
	}
	// Component {0,1,2}.
	b.AddEdge(0, 1, 10)
	b.AddEdge(1, 2, 10)
	b.AddEdge(2, 0, 10)
	// Component {3,4}.
	b.AddEdge(3, 4, 10)
	b.AddEdge(4, 3, 10)

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return s
}

func TestLargestComponent(t *testing.T) {
	s := buildTwoComponents(t)

	got := LargestComponent(s)
	want := []NodeID{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("LargestComponent() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LargestComponent() = %v, want %v", got, want)
		}
	}
}

func TestLargestComponentEmpty(t *testing.T) {
	s, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := LargestComponent(s); got != nil {
		t.Errorf("LargestComponent() on empty store = %v, want nil", got)
	}
}

func TestFilterToComponent(t *testing.T) {
	s := buildTwoComponents(t)

	filtered, err := FilterToComponent(s, LargestComponent(s))
	if err != nil {
		t.Fatalf("FilterToComponent() error: %v", err)
	}

	if filtered.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", filtered.NodeCount())
	}
	if filtered.EdgeCount() != 3 {
		t.Errorf("EdgeCount() = %d, want 3", filtered.EdgeCount())
	}
	if err := filtered.Validate(); err != nil {
		t.Errorf("filtered store fails validation: %v", err)
	}
}

func TestFilterToComponentKeepsRestrictions(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 4; i++ {
		b.AddNode(103.0+float64(i)*0.01, 1.0, 0)
	}
	e0 := b.AddEdge(0, 1, 10)
	e1 := b.AddEdge(1, 2, 10)
	b.AddEdge(2, 0, 10)
	b.AddTurnRestriction(e0, 1, e1)
	// Node 3 is isolated and will be dropped.

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	filtered, err := FilterToComponent(s, LargestComponent(s))
	if err != nil {
		t.Fatalf("FilterToComponent() error: %v", err)
	}
	if filtered.NodeCount() != 3 {
		t.Fatalf("NodeCount() = %d, want 3", filtered.NodeCount())
	}

	trs := filtered.TurnRestrictions()
	if len(trs) != 1 {
		t.Fatalf("TurnRestrictions() returned %d entries, want 1", len(trs))
	}
	tr := trs[0]
	fromEdge, _ := filtered.Edge(tr.FromEdge)
	toEdge, _ := filtered.Edge(tr.ToEdge)
	if fromEdge.To != tr.Via || toEdge.From != tr.Via {
		t.Errorf("remapped restriction %+v does not meet at its via node", tr)
	}
}

func TestFilterToComponentEmptySelection(t *testing.T) {
	s := buildTwoComponents(t)
	filtered, err := FilterToComponent(s, nil)
	if err != nil {
		t.Fatalf("FilterToComponent() error: %v", err)
	}
	if filtered.NodeCount() != 0 || filtered.EdgeCount() != 0 {
		t.Errorf("filtered store has %d nodes, %d edges, want empty",
			filtered.NodeCount(), filtered.EdgeCount())
	}
}
