package routing

import (
	"fmt"

	"route_engine/pkg/ch"
	"route_engine/pkg/graph"
)

// unpackPath expands a sequence of hierarchy-level nodes into the original
// edge ids along the route, substituting every shortcut hop by its two
// halves until only original edges remain.
func unpackPath(h *ch.Hierarchy, nodes []graph.NodeID) []graph.EdgeID {
	if len(nodes) < 2 {
		return nil
	}

	var edges []graph.EdgeID
	for i := 0; i < len(nodes)-1; i++ {
		edges = append(edges, unpackHop(h, nodes[i], nodes[i+1])...)
	}
	return edges
}

// unpackHop expands a single hop from->to into original edge ids. Shortcut
// chains are walked with an explicit work stack against the flat shortcut
// table; no recursion and no depth bound, so arbitrarily deep chains
// expand fully.
func unpackHop(h *ch.Hierarchy, from, to graph.NodeID) []graph.EdgeID {
	type item struct {
		from, to graph.NodeID
	}

	stack := []item{{from, to}}
	var edges []graph.EdgeID

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		arc := findArc(h, it.from, it.to)
		if arc == nil {
			// The search only ever follows arcs present in the adjacency,
			// so a missing arc means the hierarchy is corrupt.
			panic(fmt.Sprintf("unpack: no arc %d->%d in hierarchy", it.from, it.to))
		}
		if arc.Shortcut < 0 {
			edges = append(edges, arc.FirstEdge)
			continue
		}

		via := h.Shortcuts[arc.Shortcut].Via
		// Push right half first (via->to), then left half (from->via),
		// so the left is processed first (LIFO).
		stack = append(stack, item{via, it.to})
		stack = append(stack, item{it.from, via})
	}

	return edges
}

// findArc returns the cheapest arc from->to in the forward adjacency.
// The forward lists hold the full augmented graph (originals plus every
// shortcut), so any hop the search used is present. Among parallel arcs
// the cheapest one matches the distance the search computed.
func findArc(h *ch.Hierarchy, from, to graph.NodeID) *ch.Arc {
	var best *ch.Arc
	arcs := h.Fwd[from]
	for i := range arcs {
		if arcs[i].Head == to && (best == nil || arcs[i].Cost < best.Cost) {
			best = &arcs[i]
		}
	}
	return best
}
