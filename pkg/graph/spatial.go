package graph

import (
	"math"
	"sort"

	"route_engine/pkg/geo"
)

// gridCell returns the integer cell coordinates for a lat/lon at the given
// cell size in degrees.
func gridCell(lat, lon, cellSize float64) (latIdx, lonIdx int32) {
	return int32(math.Floor(lat / cellSize)), int32(math.Floor(lon / cellSize))
}

// cellKey packs two int32 cell indices into a single uint64 sort key.
func cellKey(latIdx, lonIdx int32) uint64 {
	return uint64(uint32(latIdx))<<32 | uint64(uint32(lonIdx))
}

// cellNode pairs a cell key with a node in a flat sortable structure.
type cellNode struct {
	key  uint64
	node NodeID
}

// gridIndex is a flat sorted grid over node coordinates. All nodes live in
// a single slice sorted by cell key, avoiding per-cell slice allocations
// and map pointer overhead.
type gridIndex struct {
	cells    []cellNode
	cellSize float64
}

func newGridIndex(nodes []Node, cellSize float64) *gridIndex {
	cells := make([]cellNode, len(nodes))
	for i, nd := range nodes {
		la, lo := gridCell(nd.Lat, nd.Lon, cellSize)
		cells[i] = cellNode{key: cellKey(la, lo), node: NodeID(i)}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].key != cells[j].key {
			return cells[i].key < cells[j].key
		}
		return cells[i].node < cells[j].node
	})
	return &gridIndex{cells: cells, cellSize: cellSize}
}

// cellRange returns the nodes in the given cell using binary search.
func (gi *gridIndex) cellRange(key uint64) []cellNode {
	lo := sort.Search(len(gi.cells), func(i int) bool {
		return gi.cells[i].key >= key
	})
	if lo >= len(gi.cells) || gi.cells[lo].key != key {
		return nil
	}
	hi := sort.Search(len(gi.cells), func(i int) bool {
		return gi.cells[i].key > key
	})
	return gi.cells[lo:hi]
}

// NearestNode snaps a coordinate to the closest graph node, inspecting the
// containing grid cell and its 8 neighbors and comparing exact haversine
// distances. Returns ok=false on an empty graph or when no node lies within
// the 3x3 cell window; a true nearest node beyond one cell radius is not
// found, so callers needing exactness must size cells above the maximum
// node spacing.
func (s *Store) NearestNode(lon, lat float64) (NodeID, bool) {
	if len(s.nodes) == 0 || s.grid == nil {
		return 0, false
	}
	return s.grid.nearest(s.nodes, lon, lat, 1)
}

// NodesWithinRadius returns all nodes within radius meters of the point,
// expanding the searched cell window proportionally to radius / cell size
// and filtering by exact haversine distance. Result is ordered by node id.
func (s *Store) NodesWithinRadius(lon, lat, radius float64) []NodeID {
	if len(s.nodes) == 0 || s.grid == nil || radius < 0 {
		return nil
	}
	gi := s.grid

	// 1 degree of latitude is ~111 km; use it for both axes, which
	// over-scans in longitude away from the equator but never misses.
	cellMeters := gi.cellSize * 111_320.0
	halfWidth := int32(math.Ceil(radius/cellMeters)) + 1

	centerLat, centerLon := gridCell(lat, lon, gi.cellSize)

	var out []NodeID
	for dLat := -halfWidth; dLat <= halfWidth; dLat++ {
		for dLon := -halfWidth; dLon <= halfWidth; dLon++ {
			for _, cn := range gi.cellRange(cellKey(centerLat+dLat, centerLon+dLon)) {
				nd := s.nodes[cn.node]
				if geo.Haversine(lat, lon, nd.Lat, nd.Lon) <= radius {
					out = append(out, cn.node)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// nearest scans a (2*halfWidth+1)^2 cell window for the closest node.
func (gi *gridIndex) nearest(nodes []Node, lon, lat float64, halfWidth int32) (NodeID, bool) {
	centerLat, centerLon := gridCell(lat, lon, gi.cellSize)

	best := NodeID(0)
	bestDist := math.Inf(1)
	found := false

	for dLat := -halfWidth; dLat <= halfWidth; dLat++ {
		for dLon := -halfWidth; dLon <= halfWidth; dLon++ {
			for _, cn := range gi.cellRange(cellKey(centerLat+dLat, centerLon+dLon)) {
				nd := nodes[cn.node]
				d := geo.Haversine(lat, lon, nd.Lat, nd.Lon)
				if d < bestDist {
					bestDist = d
					best = cn.node
					found = true
				}
			}
		}
	}

	return best, found
}
