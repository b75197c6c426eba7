package ch

import (
	"errors"
	"fmt"
	"sort"

	"route_engine/pkg/graph"
)

// NodeOrder is a total contraction order: a bijection between node ids and
// ranks in [0, n). Fixed once preprocessing starts.
type NodeOrder struct {
	Rank   []uint32       // Rank[node] = rank
	ByRank []graph.NodeID // ByRank[rank] = node
}

// ErrBadOrder reports an order that is not a bijection over the node set.
var ErrBadOrder = errors.New("node order is not a total bijection")

// NewNodeOrder builds a NodeOrder from a rank->node sequence, verifying
// totality and uniqueness.
func NewNodeOrder(byRank []graph.NodeID) (*NodeOrder, error) {
	n := len(byRank)
	rank := make([]uint32, n)
	seen := make([]bool, n)
	for r, node := range byRank {
		if int(node) >= n {
			return nil, fmt.Errorf("%w: node %d out of range", ErrBadOrder, node)
		}
		if seen[node] {
			return nil, fmt.Errorf("%w: node %d ranked twice", ErrBadOrder, node)
		}
		seen[node] = true
		rank[node] = uint32(r)
	}
	return &NodeOrder{Rank: rank, ByRank: byRank}, nil
}

// Len returns the number of ranked nodes.
func (o *NodeOrder) Len() int { return len(o.ByRank) }

// Orderer computes a contraction order for a graph. The order's quality
// affects preprocessing time and shortcut count, never query correctness;
// the only hard requirement is a total, unique ranking.
type Orderer interface {
	Order(s *graph.Store) (*NodeOrder, error)
}

// DegreeOrderer ranks nodes ascending by total degree (in + out), ties
// broken by node id, contracting low-connectivity nodes first.
type DegreeOrderer struct{}

func (DegreeOrderer) Order(s *graph.Store) (*NodeOrder, error) {
	n := s.NodeCount()
	byRank := make([]graph.NodeID, n)
	for i := range byRank {
		byRank[i] = graph.NodeID(i)
	}
	degree := func(node graph.NodeID) int {
		return len(s.OutgoingEdges(node)) + len(s.IncomingEdges(node))
	}
	sort.SliceStable(byRank, func(i, j int) bool {
		di, dj := degree(byRank[i]), degree(byRank[j])
		if di != dj {
			return di < dj
		}
		return byRank[i] < byRank[j]
	})
	return NewNodeOrder(byRank)
}

// EdgeDifferenceOrderer ranks nodes ascending by the static edge-difference
// estimate in*out - (in + out): the worst-case shortcut count minus the
// removed edges. Ties broken by node id.
type EdgeDifferenceOrderer struct{}

func (EdgeDifferenceOrderer) Order(s *graph.Store) (*NodeOrder, error) {
	n := s.NodeCount()
	byRank := make([]graph.NodeID, n)
	for i := range byRank {
		byRank[i] = graph.NodeID(i)
	}
	diff := func(node graph.NodeID) int {
		in := len(s.IncomingEdges(node))
		out := len(s.OutgoingEdges(node))
		return in*out - (in + out)
	}
	sort.SliceStable(byRank, func(i, j int) bool {
		di, dj := diff(byRank[i]), diff(byRank[j])
		if di != dj {
			return di < dj
		}
		return byRank[i] < byRank[j]
	})
	return NewNodeOrder(byRank)
}
