package graph

import (
	"fmt"
	"math"
)

// defaultCellSize is the spatial grid cell size in degrees.
// 0.01 degrees is roughly 1.1 km at the equator, so a 3x3 cell search
// covers about +-1.1 km around the query point.
const defaultCellSize = 0.01

// Builder accumulates raw nodes, edges and turn restrictions and produces
// a validated, immutable Store.
type Builder struct {
	nodes        []Node
	edges        []Edge
	restrictions []TurnRestriction
	cellSize     float64
	err          error
}

// NewBuilder creates an empty Builder with the default grid cell size.
func NewBuilder() *Builder {
	return &Builder{cellSize: defaultCellSize}
}

// SetCellSize overrides the spatial grid cell size in degrees. Callers that
// need NearestNode to be exact must pick a cell size larger than the
// maximum expected node spacing.
func (b *Builder) SetCellSize(deg float64) *Builder {
	if deg > 0 {
		b.cellSize = deg
	}
	return b
}

// AddNode appends a node and returns its id.
func (b *Builder) AddNode(lon, lat, elevation float64) NodeID {
	b.nodes = append(b.nodes, Node{Lon: lon, Lat: lat, Elevation: elevation})
	return NodeID(len(b.nodes) - 1)
}

// AddEdge appends a directed edge with the given traversal weight.
// Distance and bearing are left zero; use AddRoadEdge when they matter.
func (b *Builder) AddEdge(from, to NodeID, weight float64) EdgeID {
	return b.AddRoadEdge(from, to, weight, 0, 0)
}

// AddRoadEdge appends a directed edge carrying the full cost record.
func (b *Builder) AddRoadEdge(from, to NodeID, weight, distance, bearing float64) EdgeID {
	if int(from) >= len(b.nodes) || int(to) >= len(b.nodes) {
		b.fail(fmt.Errorf("%w: edge %d->%d references unknown node", ErrStructure, from, to))
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		b.fail(fmt.Errorf("%w: edge %d->%d has weight %v", ErrStructure, from, to, weight))
	}
	b.edges = append(b.edges, Edge{From: from, To: to, Weight: weight, Distance: distance, Bearing: bearing})
	return EdgeID(len(b.edges) - 1)
}

// AddTurnRestriction forbids the transition from -> via -> to.
func (b *Builder) AddTurnRestriction(from EdgeID, via NodeID, to EdgeID) {
	if int(from) >= len(b.edges) || int(to) >= len(b.edges) {
		b.fail(fmt.Errorf("%w: turn restriction references %w", ErrStructure, ErrEdgeNotFound))
		return
	}
	if int(via) >= len(b.nodes) {
		b.fail(fmt.Errorf("%w: turn restriction references unknown via node %d", ErrStructure, via))
		return
	}
	b.restrictions = append(b.restrictions, TurnRestriction{FromEdge: from, Via: via, ToEdge: to})
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build assembles adjacency lists and the spatial index, validates the
// result and returns the immutable Store. The Builder must not be reused.
func (b *Builder) Build() (*Store, error) {
	if b.err != nil {
		return nil, b.err
	}

	n := len(b.nodes)
	s := &Store{
		nodes:         b.nodes,
		edges:         b.edges,
		fwd:           make([][]EdgeID, n),
		bwd:           make([][]EdgeID, n),
		restrictions:  make(map[TurnRestriction]struct{}, len(b.restrictions)),
		restrictedVia: make([]bool, n),
	}

	// Adjacency in edge-id order keeps builds deterministic.
	for i, e := range b.edges {
		id := EdgeID(i)
		s.fwd[e.From] = append(s.fwd[e.From], id)
		s.bwd[e.To] = append(s.bwd[e.To], id)
	}

	for _, tr := range b.restrictions {
		s.restrictions[tr] = struct{}{}
		s.restrictedVia[tr.Via] = true
	}

	s.grid = newGridIndex(s.nodes, b.cellSize)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
