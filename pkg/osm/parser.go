package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"route_engine/pkg/geo"
	"route_engine/pkg/graph"
)

// ParsedNode is a graph node with dense index assigned during parsing.
type ParsedNode struct {
	Lon float64
	Lat float64
}

// ParsedEdge is a directed edge between dense node indexes. Weight is the
// traversal time in seconds, Distance the length in meters, Bearing the
// initial heading in degrees.
type ParsedEdge struct {
	From     uint32
	To       uint32
	Weight   float64
	Distance float64
	Bearing  float64
}

// ParsedRestriction forbids the transition FromEdge -> via -> ToEdge,
// with edge values indexing into ParseResult.Edges.
type ParsedRestriction struct {
	FromEdge uint32
	Via      uint32
	ToEdge   uint32
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Nodes        []ParsedNode
	Edges        []ParsedEdge
	Restrictions []ParsedRestriction
}

// BuildStore assembles a validated graph store from the parse result.
func (r *ParseResult) BuildStore() (*graph.Store, error) {
	b := graph.NewBuilder()
	for _, n := range r.Nodes {
		b.AddNode(n.Lon, n.Lat, 0)
	}
	for _, e := range r.Edges {
		b.AddRoadEdge(graph.NodeID(e.From), graph.NodeID(e.To), e.Weight, e.Distance, e.Bearing)
	}
	for _, tr := range r.Restrictions {
		b.AddTurnRestriction(graph.EdgeID(tr.FromEdge), graph.NodeID(tr.Via), graph.EdgeID(tr.ToEdge))
	}
	return b.Build()
}

// carSpeedsKmh maps drivable highway tag values to assumed speeds.
var carSpeedsKmh = map[string]float64{
	"motorway":       100,
	"motorway_link":  60,
	"trunk":          80,
	"trunk_link":     50,
	"primary":        60,
	"primary_link":   45,
	"secondary":      50,
	"secondary_link": 40,
	"tertiary":       40,
	"tertiary_link":  35,
	"unclassified":   40,
	"residential":    30,
	"living_street":  10,
	"service":        20,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if _, ok := carSpeedsKmh[hw]; !ok {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent — skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	ID       osm.WayID
	NodeIDs  []osm.NodeID
	SpeedKmh float64
	Forward  bool
	Backward bool
}

// rawRestriction is a restriction relation before edge resolution.
type rawRestriction struct {
	FromWay osm.WayID
	Via     osm.NodeID
	ToWay   osm.WayID
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box
}

// parseNoRestriction extracts (from way, via node, to way) from a
// "no_*" turn restriction relation. "only_*" restrictions have inverse
// semantics and are skipped.
func parseNoRestriction(rel *osm.Relation) (rawRestriction, bool) {
	if rel.Tags.Find("type") != "restriction" {
		return rawRestriction{}, false
	}
	kind := rel.Tags.Find("restriction")
	if !strings.HasPrefix(kind, "no_") {
		return rawRestriction{}, false
	}

	var r rawRestriction
	var haveFrom, haveVia, haveTo bool
	for _, m := range rel.Members {
		switch {
		case m.Role == "from" && m.Type == osm.TypeWay:
			r.FromWay = osm.WayID(m.Ref)
			haveFrom = true
		case m.Role == "via" && m.Type == osm.TypeNode:
			r.Via = osm.NodeID(m.Ref)
			haveVia = true
		case m.Role == "to" && m.Type == osm.TypeWay:
			r.ToWay = osm.WayID(m.Ref)
			haveTo = true
		}
	}
	return r, haveFrom && haveVia && haveTo
}

// Parse reads an OSM PBF file and returns dense nodes, directed edges and
// turn restrictions for car routing. The reader is consumed twice (seeks
// back to start for the second pass), so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: Scan ways and relations to collect way info and restrictions.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo
	var rawRestrictions []rawRestriction

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true

	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Way:
			if !isCarAccessible(obj.Tags) || len(obj.Nodes) < 2 {
				continue
			}

			fwd, bwd := directionFlags(obj.Tags)
			if !fwd && !bwd {
				continue
			}

			nodeIDs := make([]osm.NodeID, len(obj.Nodes))
			for i, wn := range obj.Nodes {
				nodeIDs[i] = wn.ID
				referencedNodes[wn.ID] = struct{}{}
			}

			ways = append(ways, wayInfo{
				ID:       obj.ID,
				NodeIDs:  nodeIDs,
				SpeedKmh: carSpeedsKmh[obj.Tags.Find("highway")],
				Forward:  fwd,
				Backward: bwd,
			})
		case *osm.Relation:
			if r, ok := parseNoRestriction(obj); ok {
				rawRestrictions = append(rawRestrictions, r)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways/relations): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d restriction relations, %d referenced nodes",
		len(ways), len(rawRestrictions), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	// Build dense nodes and edges from ways.
	result := &ParseResult{}

	denseID := make(map[osm.NodeID]uint32)
	addNode := func(id osm.NodeID) uint32 {
		if idx, ok := denseID[id]; ok {
			return idx
		}
		idx := uint32(len(result.Nodes))
		denseID[id] = idx
		result.Nodes = append(result.Nodes, ParsedNode{Lon: nodeLon[id], Lat: nodeLat[id]})
		return idx
	}

	// Edge lookups for restriction resolution: the edge of a way ending
	// at a node, and the edge of a way starting at a node.
	type wayNode struct {
		way  osm.WayID
		node osm.NodeID
	}
	edgeEndingAt := make(map[wayNode]uint32)
	edgeStartingAt := make(map[wayNode]uint32)

	var skippedEdges, bboxFiltered int

	for _, w := range ways {
		speedMS := w.SpeedKmh / 3.6
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]

			if !fromOk || !toOk {
				skippedEdges++
				continue
			}

			if useBBox && (!opt.BBox.Contains(fromLat, fromLon) || !opt.BBox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			dist := geo.Haversine(fromLat, fromLon, toLat, toLon)
			weight := dist / speedMS
			if weight <= 0 {
				weight = 1e-3 // avoid zero-weight edges on degenerate geometry
			}

			from := addNode(fromID)
			to := addNode(toID)

			if w.Forward {
				id := uint32(len(result.Edges))
				result.Edges = append(result.Edges, ParsedEdge{
					From: from, To: to, Weight: weight, Distance: dist,
					Bearing: geo.Bearing(fromLat, fromLon, toLat, toLon),
				})
				edgeEndingAt[wayNode{w.ID, toID}] = id
				edgeStartingAt[wayNode{w.ID, fromID}] = id
			}
			if w.Backward {
				id := uint32(len(result.Edges))
				result.Edges = append(result.Edges, ParsedEdge{
					From: to, To: from, Weight: weight, Distance: dist,
					Bearing: geo.Bearing(toLat, toLon, fromLat, fromLon),
				})
				edgeEndingAt[wayNode{w.ID, fromID}] = id
				edgeStartingAt[wayNode{w.ID, toID}] = id
			}
		}
	}

	// Resolve restriction relations to edge pairs. Relations touching
	// ways or nodes that did not survive filtering are dropped.
	var unresolved int
	for _, r := range rawRestrictions {
		fromEdge, okF := edgeEndingAt[wayNode{r.FromWay, r.Via}]
		toEdge, okT := edgeStartingAt[wayNode{r.ToWay, r.Via}]
		via, okV := denseID[r.Via]
		if !okF || !okT || !okV {
			unresolved++
			continue
		}
		result.Restrictions = append(result.Restrictions, ParsedRestriction{
			FromEdge: fromEdge,
			Via:      via,
			ToEdge:   toEdge,
		})
	}

	if skippedEdges > 0 {
		log.Printf("Warning: skipped %d edges due to missing node coordinates", skippedEdges)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d edges outside bounding box", bboxFiltered)
	}
	if unresolved > 0 {
		log.Printf("Dropped %d unresolvable turn restrictions", unresolved)
	}
	log.Printf("Built %d nodes, %d directed edges, %d turn restrictions",
		len(result.Nodes), len(result.Edges), len(result.Restrictions))

	return result, nil
}
