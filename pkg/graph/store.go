package graph

import (
	"errors"
	"fmt"

	"route_engine/pkg/geo"
)

// NodeID is a dense zero-based node index.
type NodeID uint32

// EdgeID is a dense zero-based edge index.
type EdgeID uint32

// Node is a graph vertex with a geographic location.
type Node struct {
	Lon       float64
	Lat       float64
	Elevation float64
}

// Edge is a single directed edge. Two-way streets are stored as two edges.
// Weight is the traversal cost the search optimizes (time units), Distance
// is the edge length in meters, Bearing is the initial heading in degrees.
type Edge struct {
	From     NodeID
	To       NodeID
	Weight   float64
	Distance float64
	Bearing  float64
}

// TurnRestriction forbids the transition FromEdge -> Via -> ToEdge.
type TurnRestriction struct {
	FromEdge EdgeID
	Via      NodeID
	ToEdge   EdgeID
}

// ErrEdgeNotFound reports an edge id that does not exist in the store.
var ErrEdgeNotFound = errors.New("edge not found")

// ErrStructure reports an adjacency/edge inconsistency. A store failing
// validation is unusable; preprocessing must not run on it.
var ErrStructure = errors.New("graph structure invalid")

// Store is the canonical node/edge arena with forward and backward
// adjacency, a grid spatial index and turn-restriction lookup.
// Immutable once built.
type Store struct {
	nodes []Node
	edges []Edge

	fwd [][]EdgeID // fwd[n]: edges with From == n
	bwd [][]EdgeID // bwd[n]: edges with To == n

	restrictions  map[TurnRestriction]struct{}
	restrictedVia []bool // restrictedVia[n]: n is the via node of some restriction

	grid *gridIndex
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of directed edges.
func (s *Store) EdgeCount() int { return len(s.edges) }

// Node returns the node with the given id, or ok=false if out of range.
func (s *Store) Node(id NodeID) (Node, bool) {
	if int(id) >= len(s.nodes) {
		return Node{}, false
	}
	return s.nodes[id], true
}

// Edge returns the edge with the given id, or ok=false if out of range.
func (s *Store) Edge(id EdgeID) (Edge, bool) {
	if int(id) >= len(s.edges) {
		return Edge{}, false
	}
	return s.edges[id], true
}

// OutgoingEdges returns the edge ids leaving node. Empty for isolated or
// out-of-range nodes. The returned slice must not be mutated.
func (s *Store) OutgoingEdges(node NodeID) []EdgeID {
	if int(node) >= len(s.fwd) {
		return nil
	}
	return s.fwd[node]
}

// IncomingEdges returns the edge ids entering node. Empty for isolated or
// out-of-range nodes. The returned slice must not be mutated.
func (s *Store) IncomingEdges(node NodeID) []EdgeID {
	if int(node) >= len(s.bwd) {
		return nil
	}
	return s.bwd[node]
}

// TurnRestrictions returns all restriction triples.
func (s *Store) TurnRestrictions() []TurnRestriction {
	out := make([]TurnRestriction, 0, len(s.restrictions))
	for tr := range s.restrictions {
		out = append(out, tr)
	}
	return out
}

// IsTurnRestricted reports whether the transition from -> via -> to is forbidden.
func (s *Store) IsTurnRestricted(from EdgeID, via NodeID, to EdgeID) bool {
	_, ok := s.restrictions[TurnRestriction{FromEdge: from, Via: via, ToEdge: to}]
	return ok
}

// HasRestrictionVia reports whether node is the via node of any restriction.
func (s *Store) HasRestrictionVia(node NodeID) bool {
	return int(node) < len(s.restrictedVia) && s.restrictedVia[node]
}

// Turn penalty buckets in the same time units as edge weights (seconds).
const (
	penaltySlight = 2.0
	penaltyMedium = 6.0
	penaltySharp  = 12.0
	penaltyUTurn  = 45.0
)

// TurnPenalty buckets the bearing difference between two edges into a fixed
// penalty: straight, slight, medium, sharp or U-turn. Out-of-range ids get 0.
func (s *Store) TurnPenalty(from, to EdgeID) float64 {
	if int(from) >= len(s.edges) || int(to) >= len(s.edges) {
		return 0
	}
	diff := geo.BearingDiff(s.edges[from].Bearing, s.edges[to].Bearing)
	switch {
	case diff < 30:
		return 0
	case diff < 75:
		return penaltySlight
	case diff < 135:
		return penaltyMedium
	case diff < 165:
		return penaltySharp
	default:
		return penaltyUTurn
	}
}

// Validate checks that the adjacency lists and the edge list agree:
// every adjacency entry references an existing edge, every edge is filed
// under its recorded endpoints, and every edge appears in both lists
// exactly once. Run after load and before preprocessing.
func (s *Store) Validate() error {
	n := len(s.nodes)
	if len(s.fwd) != n || len(s.bwd) != n {
		return fmt.Errorf("%w: adjacency has %d/%d buckets for %d nodes",
			ErrStructure, len(s.fwd), len(s.bwd), n)
	}

	seenFwd := make([]bool, len(s.edges))
	seenBwd := make([]bool, len(s.edges))

	for u := range s.fwd {
		for _, e := range s.fwd[u] {
			if int(e) >= len(s.edges) {
				return fmt.Errorf("%w: node %d forward adjacency references edge %d (%w)",
					ErrStructure, u, e, ErrEdgeNotFound)
			}
			if s.edges[e].From != NodeID(u) {
				return fmt.Errorf("%w: edge %d filed under node %d but has source %d",
					ErrStructure, e, u, s.edges[e].From)
			}
			if seenFwd[e] {
				return fmt.Errorf("%w: edge %d appears twice in forward adjacency", ErrStructure, e)
			}
			seenFwd[e] = true
		}
	}
	for v := range s.bwd {
		for _, e := range s.bwd[v] {
			if int(e) >= len(s.edges) {
				return fmt.Errorf("%w: node %d backward adjacency references edge %d (%w)",
					ErrStructure, v, e, ErrEdgeNotFound)
			}
			if s.edges[e].To != NodeID(v) {
				return fmt.Errorf("%w: edge %d filed under node %d but has target %d",
					ErrStructure, e, v, s.edges[e].To)
			}
			if seenBwd[e] {
				return fmt.Errorf("%w: edge %d appears twice in backward adjacency", ErrStructure, e)
			}
			seenBwd[e] = true
		}
	}
	for e := range s.edges {
		if !seenFwd[e] || !seenBwd[e] {
			return fmt.Errorf("%w: edge %d missing from adjacency", ErrStructure, e)
		}
	}

	for tr := range s.restrictions {
		if int(tr.FromEdge) >= len(s.edges) || int(tr.ToEdge) >= len(s.edges) {
			return fmt.Errorf("%w: turn restriction references %w", ErrStructure, ErrEdgeNotFound)
		}
		if s.edges[tr.FromEdge].To != tr.Via || s.edges[tr.ToEdge].From != tr.Via {
			return fmt.Errorf("%w: turn restriction (%d,%d,%d) does not meet at its via node",
				ErrStructure, tr.FromEdge, tr.Via, tr.ToEdge)
		}
	}

	return nil
}
