package osm

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestIsCarAccessible(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{
			name: "residential road",
			tags: osm.Tags{{Key: "highway", Value: "residential"}},
			want: true,
		},
		{
			name: "motorway",
			tags: osm.Tags{{Key: "highway", Value: "motorway"}},
			want: true,
		},
		{
			name: "footway (not car accessible)",
			tags: osm.Tags{{Key: "highway", Value: "footway"}},
			want: false,
		},
		{
			name: "cycleway",
			tags: osm.Tags{{Key: "highway", Value: "cycleway"}},
			want: false,
		},
		{
			name: "private access",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "access", Value: "private"},
			},
			want: false,
		},
		{
			name: "no access",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "access", Value: "no"},
			},
			want: false,
		},
		{
			name: "motor_vehicle=no",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "motor_vehicle", Value: "no"},
			},
			want: false,
		},
		{
			name: "area=yes (pedestrian plaza)",
			tags: osm.Tags{
				{Key: "highway", Value: "service"},
				{Key: "area", Value: "yes"},
			},
			want: false,
		},
		{
			name: "service road",
			tags: osm.Tags{{Key: "highway", Value: "service"}},
			want: true,
		},
		{
			name: "living_street",
			tags: osm.Tags{{Key: "highway", Value: "living_street"}},
			want: true,
		},
		{
			name: "no highway tag",
			tags: osm.Tags{{Key: "name", Value: "Some Street"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isCarAccessible(tt.tags)
			if got != tt.want {
				t.Errorf("isCarAccessible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectionFlags(t *testing.T) {
	tests := []struct {
		name        string
		tags        osm.Tags
		wantForward bool
		wantBackward bool
	}{
		{
			name:        "default bidirectional",
			tags:        osm.Tags{{Key: "highway", Value: "residential"}},
			wantForward: true,
			wantBackward: true,
		},
		{
			name:        "motorway implied oneway",
			tags:        osm.Tags{{Key: "highway", Value: "motorway"}},
			wantForward: true,
			wantBackward: false,
		},
		{
			name:        "motorway_link implied oneway",
			tags:        osm.Tags{{Key: "highway", Value: "motorway_link"}},
			wantForward: true,
			wantBackward: false,
		},
		{
			name:        "roundabout implied oneway",
			tags:        osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "junction", Value: "roundabout"},
			},
			wantForward: true,
			wantBackward: false,
		},
		{
			name:        "explicit oneway=yes",
			tags:        osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "yes"},
			},
			wantForward: true,
			wantBackward: false,
		},
		{
			name:        "explicit oneway=true",
			tags:        osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "true"},
			},
			wantForward: true,
			wantBackward: false,
		},
		{
			name:        "explicit oneway=1",
			tags:        osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "1"},
			},
			wantForward: true,
			wantBackward: false,
		},
		{
			name:        "explicit oneway=-1 (reverse)",
			tags:        osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "-1"},
			},
			wantForward: false,
			wantBackward: true,
		},
		{
			name:        "explicit oneway=reverse",
			tags:        osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "reverse"},
			},
			wantForward: false,
			wantBackward: true,
		},
		{
			name:        "explicit oneway=no overrides implied",
			tags:        osm.Tags{
				{Key: "highway", Value: "motorway"},
				{Key: "oneway", Value: "no"},
			},
			wantForward: true,
			wantBackward: true,
		},
		{
			name:        "oneway=reversible skips entirely",
			tags:        osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "reversible"},
			},
			wantForward: false,
			wantBackward: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.tags)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestParseNoRestriction(t *testing.T) {
	members := osm.Members{
		{Type: osm.TypeWay, Ref: 100, Role: "from"},
		{Type: osm.TypeNode, Ref: 5, Role: "via"},
		{Type: osm.TypeWay, Ref: 200, Role: "to"},
	}

	tests := []struct {
		name string
		rel  *osm.Relation
		want bool
	}{
		{
			name: "no_left_turn",
			rel: &osm.Relation{
				Tags: osm.Tags{
					{Key: "type", Value: "restriction"},
					{Key: "restriction", Value: "no_left_turn"},
				},
				Members: members,
			},
			want: true,
		},
		{
			name: "no_u_turn",
			rel: &osm.Relation{
				Tags: osm.Tags{
					{Key: "type", Value: "restriction"},
					{Key: "restriction", Value: "no_u_turn"},
				},
				Members: members,
			},
			want: true,
		},
		{
			name: "only_straight_on skipped",
			rel: &osm.Relation{
				Tags: osm.Tags{
					{Key: "type", Value: "restriction"},
					{Key: "restriction", Value: "only_straight_on"},
				},
				Members: members,
			},
			want: false,
		},
		{
			name: "not a restriction relation",
			rel: &osm.Relation{
				Tags:    osm.Tags{{Key: "type", Value: "route"}},
				Members: members,
			},
			want: false,
		},
		{
			name: "missing via member",
			rel: &osm.Relation{
				Tags: osm.Tags{
					{Key: "type", Value: "restriction"},
					{Key: "restriction", Value: "no_right_turn"},
				},
				Members: osm.Members{
					{Type: osm.TypeWay, Ref: 100, Role: "from"},
					{Type: osm.TypeWay, Ref: 200, Role: "to"},
				},
			},
			want: false,
		},
		{
			name: "via is a way (not supported)",
			rel: &osm.Relation{
				Tags: osm.Tags{
					{Key: "type", Value: "restriction"},
					{Key: "restriction", Value: "no_left_turn"},
				},
				Members: osm.Members{
					{Type: osm.TypeWay, Ref: 100, Role: "from"},
					{Type: osm.TypeWay, Ref: 50, Role: "via"},
					{Type: osm.TypeWay, Ref: 200, Role: "to"},
				},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, okGot := parseNoRestriction(tt.rel)
			if okGot != tt.want {
				t.Fatalf("parseNoRestriction() ok = %v, want %v", okGot, tt.want)
			}
			if okGot {
				if got.FromWay != 100 || got.Via != 5 || got.ToWay != 200 {
					t.Errorf("parseNoRestriction() = %+v, want {100 5 200}", got)
				}
			}
		})
	}
}

func TestBuildStore(t *testing.T) {
	result := &ParseResult{
		Nodes: []ParsedNode{
			{Lon: -122.40, Lat: 37.78},
			{Lon: -122.41, Lat: 37.78},
			{Lon: -122.41, Lat: 37.79},
		},
		Edges: []ParsedEdge{
			{From: 0, To: 1, Weight: 10.5, Distance: 120, Bearing: 270},
			{From: 1, To: 2, Weight: 8.0, Distance: 95, Bearing: 0},
		},
		Restrictions: []ParsedRestriction{
			{FromEdge: 0, Via: 1, ToEdge: 1},
		},
	}

	s, err := result.BuildStore()
	if err != nil {
		t.Fatalf("BuildStore() error: %v", err)
	}
	if s.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", s.NodeCount())
	}
	if s.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", s.EdgeCount())
	}
	if !s.IsTurnRestricted(0, 1, 1) {
		t.Error("expected turn restriction 0 -> via 1 -> 1")
	}
}

func TestBuildStoreBadEdge(t *testing.T) {
	result := &ParseResult{
		Nodes: []ParsedNode{{Lon: 0, Lat: 0}},
		Edges: []ParsedEdge{{From: 0, To: 7, Weight: 1, Distance: 1}},
	}
	if _, err := result.BuildStore(); err == nil {
		t.Fatal("BuildStore() with out-of-range edge should fail")
	}
}
