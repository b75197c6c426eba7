package routing

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"route_engine/pkg/geo"
	"route_engine/pkg/graph"
)

// snapSearchPad is the half-width in degrees of the R-tree search window,
// roughly 550 m of latitude. Points farther than that from every edge are
// reported as not snappable.
const snapSearchPad = 0.005

// SnapResult is a point projected onto the nearest road segment.
type SnapResult struct {
	Edge  graph.EdgeID
	Ratio float64   // 0.0 = at the edge source, 1.0 = at the edge target
	Point orb.Point // projected location on the segment
	Dist  float64   // meters from the query point to Point
}

// Snapper projects arbitrary coordinates onto the nearest edge using an
// R-tree over edge bounding boxes. It refines the node-level snapping the
// grid index provides; waypoint geometry comes from here.
type Snapper struct {
	tr    rtree.RTree
	store *graph.Store
}

// NewSnapper indexes every edge's bounding box.
func NewSnapper(s *graph.Store) *Snapper {
	sn := &Snapper{store: s}
	for i := 0; i < s.EdgeCount(); i++ {
		id := graph.EdgeID(i)
		e, _ := s.Edge(id)
		u, _ := s.Node(e.From)
		v, _ := s.Node(e.To)
		min := [2]float64{math.Min(u.Lon, v.Lon), math.Min(u.Lat, v.Lat)}
		max := [2]float64{math.Max(u.Lon, v.Lon), math.Max(u.Lat, v.Lat)}
		sn.tr.Insert(min, max, id)
	}
	return sn
}

// Snap finds the nearest road segment to the given coordinate. Returns
// ok=false when no edge bounding box intersects the search window.
func (sn *Snapper) Snap(lon, lat float64) (SnapResult, bool) {
	bestDist := math.Inf(1)
	var best SnapResult
	found := false

	sn.tr.Search(
		[2]float64{lon - snapSearchPad, lat - snapSearchPad},
		[2]float64{lon + snapSearchPad, lat + snapSearchPad},
		func(_, _ [2]float64, data interface{}) bool {
			id := data.(graph.EdgeID)
			e, _ := sn.store.Edge(id)
			u, _ := sn.store.Node(e.From)
			v, _ := sn.store.Node(e.To)

			dist, ratio := geo.PointToSegmentDist(lat, lon, u.Lat, u.Lon, v.Lat, v.Lon)
			if dist < bestDist {
				bestDist = dist
				best = SnapResult{
					Edge:  id,
					Ratio: ratio,
					Point: orb.Point{
						u.Lon + ratio*(v.Lon-u.Lon),
						u.Lat + ratio*(v.Lat-u.Lat),
					},
					Dist: dist,
				}
				found = true
			}
			return true
		},
	)

	return best, found
}
