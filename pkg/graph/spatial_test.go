package graph

import "testing"

// buildClusterStore lays out a small cluster of nodes around a center
// point roughly 110 m apart per 0.001 degrees.
func buildClusterStore(t *testing.T) *Store {
	t.Helper()
	b := NewBuilder()
	coords := [][2]float64{
		{103.8200, 1.3500}, // 0: center
		{103.8210, 1.3500}, // 1: ~111 m east
		{103.8200, 1.3510}, // 2: ~111 m north
		{103.8250, 1.3550}, // 3: ~780 m northeast
		{103.9000, 1.4000}, // 4: far away
	}
	for _, c := range coords {
		b.AddNode(c[0], c[1], 0)
	}
	// Chain the nodes so the store has valid edges.
	for i := 0; i < len(coords)-1; i++ {
		b.AddEdge(NodeID(i), NodeID(i+1), 10)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return s
}

func TestNearestNode(t *testing.T) {
	s := buildClusterStore(t)

	tests := []struct {
		name     string
		lon, lat float64
		want     NodeID
	}{
		{"exact hit on center", 103.8200, 1.3500, 0},
		{"just east of center", 103.8204, 1.3500, 0},
		{"closer to node 1", 103.8209, 1.3500, 1},
		{"closer to node 2", 103.8200, 1.3509, 2},
		{"near the far node", 103.9001, 1.4001, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.NearestNode(tt.lon, tt.lat)
			if !ok {
				t.Fatal("NearestNode() ok = false, want true")
			}
			if got != tt.want {
				t.Errorf("NearestNode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNearestNodeEmpty(t *testing.T) {
	s, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if _, ok := s.NearestNode(103.82, 1.35); ok {
		t.Error("NearestNode() on an empty store should report ok=false")
	}
}

func TestNearestNodeBeyondWindow(t *testing.T) {
	s := buildClusterStore(t)

	// A point many cells away from every node finds nothing: the scan
	// covers only the 3x3 window around the query cell.
	if _, ok := s.NearestNode(100.0, 10.0); ok {
		t.Error("NearestNode() far from all nodes should report ok=false")
	}
}

func TestNodesWithinRadius(t *testing.T) {
	s := buildClusterStore(t)

	tests := []struct {
		name   string
		radius float64
		want   []NodeID
	}{
		{"tight radius catches center only", 50, []NodeID{0}},
		{"200m catches the close trio", 200, []NodeID{0, 1, 2}},
		{"1km adds the northeast node", 1000, []NodeID{0, 1, 2, 3}},
		{"20km catches everything", 20_000, []NodeID{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.NodesWithinRadius(103.8200, 1.3500, tt.radius)
			if len(got) != len(tt.want) {
				t.Fatalf("NodesWithinRadius() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("NodesWithinRadius() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNodesWithinRadiusNegative(t *testing.T) {
	s := buildClusterStore(t)
	if got := s.NodesWithinRadius(103.82, 1.35, -1); got != nil {
		t.Errorf("NodesWithinRadius() with negative radius = %v, want nil", got)
	}
}
