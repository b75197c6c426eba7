package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"

	"route_engine/pkg/ch"
	"route_engine/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two endpoints.
// Disconnected components are a legitimate query outcome, not a graph error.
var ErrNoRoute = errors.New("no route found")

// ErrInvalidCoordinates is returned when an endpoint cannot be snapped to
// any graph node (empty graph, or point too far from the network for the
// spatial index's cell size).
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Request is a coordinate-to-coordinate routing query. Points are
// (lon, lat), orb convention.
type Request struct {
	Origin      orb.Point
	Destination orb.Point
	Options     Options
}

// Options tunes per-query behavior.
type Options struct {
	// SkipTurnPenalties leaves junction penalties out of the duration.
	SkipTurnPenalties bool
}

// Waypoint is a query endpoint resolved onto the network.
type Waypoint struct {
	Location orb.Point // as requested
	Snapped  orb.Point // on the road network
	Node     graph.NodeID
}

// Segment is one original edge of the final route.
type Segment struct {
	Edge     graph.EdgeID
	Distance float64 // meters
	Duration float64 // time units, including the turn penalty into this edge
	Geometry orb.LineString
}

// Response is a fully reconstructed route.
type Response struct {
	Distance  float64 // meters
	Duration  float64 // time units
	Geometry  orb.LineString
	Segments  []Segment
	Waypoints []Waypoint
}

// QueryResult is the raw outcome of a node-to-node distance query.
type QueryResult struct {
	Distance    float64
	MeetingNode graph.NodeID
}

// noMeet marks a query where the two searches never met.
const noMeet = graph.NodeID(noNode)

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, req Request) (*Response, error)
}

// Engine answers queries over a built hierarchy. It holds only read-only
// references and a pool of per-query state, so one Engine serves any
// number of goroutines.
type Engine struct {
	store     *graph.Store
	h         *ch.Hierarchy
	rank      []uint32
	coreStart uint32
	snapper   *Snapper
	pool      sync.Pool
}

// NewEngine creates a routing engine from a store and its hierarchy.
func NewEngine(store *graph.Store, h *ch.Hierarchy) *Engine {
	e := &Engine{
		store:     store,
		h:         h,
		rank:      h.Order.Rank,
		coreStart: h.CoreStart(),
		snapper:   NewSnapper(store),
	}
	e.pool.New = func() any { return NewQueryState(h.NodeCount()) }
	return e
}

func (e *Engine) acquire() *QueryState {
	return e.pool.Get().(*QueryState)
}

func (e *Engine) release(qs *QueryState) {
	qs.Reset()
	e.pool.Put(qs)
}

// ShortestPath answers a node-to-node distance query. Returns ErrNoRoute
// when the two nodes are in disjoint components.
func (e *Engine) ShortestPath(ctx context.Context, source, target graph.NodeID) (QueryResult, error) {
	if int(source) >= e.h.NodeCount() || int(target) >= e.h.NodeCount() {
		return QueryResult{}, fmt.Errorf("%w: node out of range", ErrInvalidCoordinates)
	}

	qs := e.acquire()
	defer e.release(qs)

	qs.touchFwd(source, 0)
	qs.FwdPQ.Push(source, 0)
	qs.touchBwd(target, 0)
	qs.BwdPQ.Push(target, 0)

	dist, meet, err := e.search(ctx, qs)
	if err != nil {
		return QueryResult{}, err
	}
	if meet == noMeet {
		return QueryResult{}, ErrNoRoute
	}
	return QueryResult{Distance: dist, MeetingNode: meet}, nil
}

// Route computes the shortest path between two coordinates and
// reconstructs its geometry.
func (e *Engine) Route(ctx context.Context, req Request) (*Response, error) {
	source, ok := e.store.NearestNode(req.Origin.Lon(), req.Origin.Lat())
	if !ok {
		return nil, fmt.Errorf("%w: origin", ErrInvalidCoordinates)
	}
	target, ok := e.store.NearestNode(req.Destination.Lon(), req.Destination.Lat())
	if !ok {
		return nil, fmt.Errorf("%w: destination", ErrInvalidCoordinates)
	}

	waypoints := []Waypoint{
		e.makeWaypoint(req.Origin, source),
		e.makeWaypoint(req.Destination, target),
	}

	if source == target {
		nd, _ := e.store.Node(source)
		pt := orb.Point{nd.Lon, nd.Lat}
		return &Response{Geometry: orb.LineString{pt}, Waypoints: waypoints}, nil
	}

	qs := e.acquire()
	defer e.release(qs)

	qs.touchFwd(source, 0)
	qs.FwdPQ.Push(source, 0)
	qs.touchBwd(target, 0)
	qs.BwdPQ.Push(target, 0)

	_, meet, err := e.search(ctx, qs)
	if err != nil {
		return nil, err
	}
	if meet == noMeet {
		return nil, ErrNoRoute
	}

	nodes := reconstructPath(qs, meet)
	edges := unpackPath(e.h, nodes)

	return e.buildResponse(edges, source, waypoints, req.Options), nil
}

// makeWaypoint refines an endpoint against the edge snapper; when the
// point is off the indexed network the node coordinate is used instead.
func (e *Engine) makeWaypoint(loc orb.Point, node graph.NodeID) Waypoint {
	wp := Waypoint{Location: loc, Node: node}
	if snap, ok := e.snapper.Snap(loc.Lon(), loc.Lat()); ok {
		wp.Snapped = snap.Point
	} else {
		nd, _ := e.store.Node(node)
		wp.Snapped = orb.Point{nd.Lon, nd.Lat}
	}
	return wp
}

// buildResponse assembles geometry, distance and duration from the
// unpacked original edges.
func (e *Engine) buildResponse(edges []graph.EdgeID, start graph.NodeID, waypoints []Waypoint, opts Options) *Response {
	resp := &Response{Waypoints: waypoints}

	nd, _ := e.store.Node(start)
	resp.Geometry = append(resp.Geometry, orb.Point{nd.Lon, nd.Lat})

	for i, id := range edges {
		edge, _ := e.store.Edge(id)
		from, _ := e.store.Node(edge.From)
		to, _ := e.store.Node(edge.To)

		duration := edge.Weight
		if i > 0 && !opts.SkipTurnPenalties {
			duration += e.store.TurnPenalty(edges[i-1], id)
		}

		resp.Distance += edge.Distance
		resp.Duration += duration
		resp.Geometry = append(resp.Geometry, orb.Point{to.Lon, to.Lat})
		resp.Segments = append(resp.Segments, Segment{
			Edge:     id,
			Distance: edge.Distance,
			Duration: duration,
			Geometry: orb.LineString{{from.Lon, from.Lat}, {to.Lon, to.Lat}},
		})
	}

	return resp
}

// reconstructPath builds the hierarchy-level node path
// source -> meet -> target from the two predecessor chains.
func reconstructPath(qs *QueryState, meet graph.NodeID) []graph.NodeID {
	// Forward chain: meet <- ... <- source, then reverse.
	var path []graph.NodeID
	node := meet
	for {
		path = append(path, node)
		pred := qs.PredFwd[node]
		if pred == noNode {
			break
		}
		node = graph.NodeID(pred)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	// Backward chain: meet -> ... -> target.
	node = meet
	for {
		pred := qs.PredBwd[node]
		if pred == noNode {
			break
		}
		path = append(path, graph.NodeID(pred))
		node = graph.NodeID(pred)
	}

	return path
}

// search runs the bidirectional rank-pruned Dijkstra, alternating one
// relaxation step per direction. Arcs are relaxed toward higher ranks
// only, except out of core nodes where every direction stays open.
// Returns the best distance and the meeting node (noMeet if the searches
// never met).
func (e *Engine) search(ctx context.Context, qs *QueryState) (float64, graph.NodeID, error) {
	mu := math.Inf(1)
	meet := noMeet

	iterations := 0

	for qs.FwdPQ.Len() > 0 || qs.BwdPQ.Len() > 0 {
		iterations++
		if iterations%256 == 0 {
			if err := ctx.Err(); err != nil {
				return mu, noMeet, err
			}
		}

		// Forward step.
		if qs.FwdPQ.Len() > 0 && qs.FwdPQ.PeekDist() < mu {
			item := qs.FwdPQ.Pop()
			u, d := item.Node, item.Dist

			if d <= qs.DistFwd[u] { // not stale
				if !math.IsInf(qs.DistBwd[u], 1) && e.joinAllowed(qs, u) {
					if candidate := d + qs.DistBwd[u]; candidate < mu {
						mu = candidate
						meet = u
					}
				}

				for _, a := range e.h.Fwd[u] {
					if !e.relaxable(u, a.Head) {
						continue
					}
					if prev := qs.EdgeFwd[u]; prev >= 0 && e.store.IsTurnRestricted(graph.EdgeID(prev), u, a.FirstEdge) {
						continue
					}
					if newDist := d + a.Cost; newDist < qs.DistFwd[a.Head] {
						qs.touchFwd(a.Head, newDist)
						qs.FwdPQ.Push(a.Head, newDist)
						qs.PredFwd[a.Head] = uint32(u)
						qs.EdgeFwd[a.Head] = int32(a.LastEdge)
					}
				}
			}
		}

		// Backward step.
		if qs.BwdPQ.Len() > 0 && qs.BwdPQ.PeekDist() < mu {
			item := qs.BwdPQ.Pop()
			u, d := item.Node, item.Dist

			if d <= qs.DistBwd[u] { // not stale
				if !math.IsInf(qs.DistFwd[u], 1) && e.joinAllowed(qs, u) {
					if candidate := qs.DistFwd[u] + d; candidate < mu {
						mu = candidate
						meet = u
					}
				}

				for _, a := range e.h.Bwd[u] {
					if !e.relaxable(u, a.Head) {
						continue
					}
					if next := qs.EdgeBwd[u]; next >= 0 && e.store.IsTurnRestricted(a.LastEdge, u, graph.EdgeID(next)) {
						continue
					}
					if newDist := d + a.Cost; newDist < qs.DistBwd[a.Head] {
						qs.touchBwd(a.Head, newDist)
						qs.BwdPQ.Push(a.Head, newDist)
						qs.PredBwd[a.Head] = uint32(u)
						qs.EdgeBwd[a.Head] = int32(a.FirstEdge)
					}
				}
			}
		}

		// Neither frontier can improve the best meeting anymore.
		if qs.FwdPQ.PeekDist() >= mu && qs.BwdPQ.PeekDist() >= mu {
			break
		}
	}

	return mu, meet, nil
}

// joinAllowed checks the junction where the two searches meet: the last
// edge the forward label arrived by must be allowed to continue onto the
// first edge the backward label leaves by.
func (e *Engine) joinAllowed(qs *QueryState, u graph.NodeID) bool {
	in, out := qs.EdgeFwd[u], qs.EdgeBwd[u]
	if in < 0 || out < 0 {
		return true
	}
	return !e.store.IsTurnRestricted(graph.EdgeID(in), u, graph.EdgeID(out))
}

// relaxable applies the upward-only rule with the core exception: no
// distances were folded into shortcuts at core nodes, so a search may
// leave them in any direction. A turn restriction at a core via node can
// force a detour that dips below the core; pure upward search would miss
// it.
func (e *Engine) relaxable(from, to graph.NodeID) bool {
	rf := e.rank[from]
	return e.rank[to] > rf || rf >= e.coreStart
}
