package ch

import (
	"fmt"
	"log"

	"route_engine/pkg/graph"
)

// Config holds the tunable bounds of preprocessing. The witness bounds
// trade preprocessing speed against shortcut-set size; they never affect
// query correctness.
type Config struct {
	// WitnessHops is the hop budget of a witness search.
	WitnessHops int
	// WitnessMaxSettled caps the nodes settled per witness search.
	WitnessMaxSettled int
	// MaxShortcutsPerNode stops contraction once a node would create more
	// shortcuts than this; the remaining nodes form an uncontracted core
	// at the top of the hierarchy.
	MaxShortcutsPerNode int
}

// DefaultConfig returns the production bounds.
func DefaultConfig() Config {
	return Config{
		WitnessHops:         5,
		WitnessMaxSettled:   500,
		MaxShortcutsPerNode: 1000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WitnessHops <= 0 {
		c.WitnessHops = d.WitnessHops
	}
	if c.WitnessMaxSettled <= 0 {
		c.WitnessMaxSettled = d.WitnessMaxSettled
	}
	if c.MaxShortcutsPerNode <= 0 {
		c.MaxShortcutsPerNode = d.MaxShortcutsPerNode
	}
	return c
}

// Shortcut is a synthetic edge standing in for the two-arc path
// From -> Via -> To as it existed when Via was contracted. Cost is the
// exact sum of the two constituent arc costs. FirstEdge and LastEdge are
// the outermost original edges of the full expansion.
type Shortcut struct {
	From      graph.NodeID
	To        graph.NodeID
	Cost      float64
	Via       graph.NodeID
	FirstEdge graph.EdgeID
	LastEdge  graph.EdgeID
}

// Arc is one adjacency entry of the augmented graph. Forward arcs point at
// the edge target, backward arcs at the edge source; FirstEdge/LastEdge
// are always in forward orientation. Shortcut is the index into the
// hierarchy's shortcut table, or -1 for an original edge (in which case
// FirstEdge == LastEdge == the edge id).
type Arc struct {
	Head      graph.NodeID
	Cost      float64
	Shortcut  int32
	FirstEdge graph.EdgeID
	LastEdge  graph.EdgeID
}

// Hierarchy is the immutable output of preprocessing: the contraction
// order, the flat shortcut table and the augmented forward/backward
// adjacency. Safe to share by reference across any number of concurrent
// queries; nothing mutates it after Contract returns.
type Hierarchy struct {
	Order     *NodeOrder
	Shortcuts []Shortcut
	Fwd       [][]Arc
	Bwd       [][]Arc

	// CoreSize is the number of top-ranked nodes never contracted
	// (shortcut-limit overflow plus turn-restriction via nodes).
	CoreSize int
}

// NodeCount returns the number of nodes covered by the hierarchy.
func (h *Hierarchy) NodeCount() int { return len(h.Fwd) }

// CoreStart returns the lowest rank belonging to the uncontracted core.
// Ranks at or above it form the core; a query may relax any arc leaving
// a core node, not just upward ones, because no distances were folded
// into shortcuts there.
func (h *Hierarchy) CoreStart() uint32 {
	return uint32(h.NodeCount() - h.CoreSize)
}

// Preprocess validates the store, computes an order with the given
// strategy and contracts. The store must not change afterwards; any graph
// mutation requires a full re-run (there is no incremental update path).
func Preprocess(s *graph.Store, ord Orderer, cfg Config) (*Hierarchy, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	order, err := ord.Order(s)
	if err != nil {
		return nil, err
	}
	return Contract(s, order, cfg)
}

// Contract runs node contraction over the store in ascending rank order,
// inserting shortcuts that preserve shortest-path distances between the
// still-active nodes. Nodes that are the via node of a turn restriction
// are lifted (stably) to the top ranks and never contracted, so no
// shortcut can bypass a restriction.
func Contract(s *graph.Store, order *NodeOrder, cfg Config) (*Hierarchy, error) {
	cfg = cfg.withDefaults()

	n := s.NodeCount()
	if order.Len() != n {
		return nil, fmt.Errorf("%w: order covers %d of %d nodes", ErrBadOrder, order.Len(), n)
	}

	order, restricted := liftRestrictedNodes(s, order)
	contractible := n - restricted

	h := &Hierarchy{Order: order}
	h.Fwd, h.Bwd = buildArcs(s)
	if n == 0 {
		return h, nil
	}

	contracted := make([]bool, n)
	ws := newWitnessState(n)

	log.Printf("Starting contraction of %d nodes (%d restriction via nodes lifted to core)...", n, restricted)

	var totalShortcuts int
	done := 0

	for r := 0; r < contractible; r++ {
		node := order.ByRank[r]

		shortcuts := findShortcuts(ws, h.Fwd, h.Bwd, node, contracted, cfg)

		// A node this expensive stops contraction entirely; everything
		// from here up stays in the uncontracted core with its original
		// arcs preserved.
		if len(shortcuts) > cfg.MaxShortcutsPerNode {
			log.Printf("Stopping contraction: node %d would create %d shortcuts (limit %d). %d nodes remain in core.",
				node, len(shortcuts), cfg.MaxShortcutsPerNode, n-done)
			break
		}

		contracted[node] = true
		done++
		totalShortcuts += len(shortcuts)

		for _, sc := range shortcuts {
			idx := int32(len(h.Shortcuts))
			h.Shortcuts = append(h.Shortcuts, sc)
			h.Fwd[sc.From] = append(h.Fwd[sc.From], Arc{
				Head: sc.To, Cost: sc.Cost, Shortcut: idx,
				FirstEdge: sc.FirstEdge, LastEdge: sc.LastEdge,
			})
			h.Bwd[sc.To] = append(h.Bwd[sc.To], Arc{
				Head: sc.From, Cost: sc.Cost, Shortcut: idx,
				FirstEdge: sc.FirstEdge, LastEdge: sc.LastEdge,
			})
		}

		if done%50000 == 0 {
			log.Printf("Contracted %d/%d nodes, %d shortcuts so far", done, n, totalShortcuts)
		}
	}

	h.CoreSize = n - done
	log.Printf("Contraction complete: %d shortcuts created, %d core nodes", totalShortcuts, h.CoreSize)

	return h, nil
}

// liftRestrictedNodes moves every turn-restriction via node to the top of
// the order, preserving relative rank on both sides. Returns the adjusted
// order and the number of lifted nodes.
func liftRestrictedNodes(s *graph.Store, order *NodeOrder) (*NodeOrder, int) {
	var restricted []graph.NodeID
	byRank := make([]graph.NodeID, 0, order.Len())
	for _, node := range order.ByRank {
		if s.HasRestrictionVia(node) {
			restricted = append(restricted, node)
		} else {
			byRank = append(byRank, node)
		}
	}
	if len(restricted) == 0 {
		return order, 0
	}
	byRank = append(byRank, restricted...)
	lifted, err := NewNodeOrder(byRank)
	if err != nil {
		// order was already a verified bijection; a stable partition of it
		// cannot fail.
		panic(err)
	}
	return lifted, len(restricted)
}

// buildArcs converts the store's adjacency into mutable forward and
// backward arc lists.
func buildArcs(s *graph.Store) (fwd, bwd [][]Arc) {
	n := s.NodeCount()
	fwd = make([][]Arc, n)
	bwd = make([][]Arc, n)
	for u := 0; u < n; u++ {
		for _, id := range s.OutgoingEdges(graph.NodeID(u)) {
			e, _ := s.Edge(id)
			fwd[u] = append(fwd[u], Arc{Head: e.To, Cost: e.Weight, Shortcut: -1, FirstEdge: id, LastEdge: id})
			bwd[e.To] = append(bwd[e.To], Arc{Head: graph.NodeID(u), Cost: e.Weight, Shortcut: -1, FirstEdge: id, LastEdge: id})
		}
	}
	return fwd, bwd
}

// findShortcuts determines which shortcuts contracting node requires.
// One batch witness search per incoming neighbor; every (in, out) pair
// without a witness at or below the candidate cost gets a shortcut.
func findShortcuts(ws *witnessState, fwd, bwd [][]Arc, node graph.NodeID, contracted []bool, cfg Config) []Shortcut {
	var incoming []Arc
	for _, a := range bwd[node] {
		if !contracted[a.Head] {
			incoming = append(incoming, a)
		}
	}

	var outgoing []Arc
	for _, a := range fwd[node] {
		if !contracted[a.Head] {
			outgoing = append(outgoing, a)
		}
	}

	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []Shortcut

	for _, in := range incoming {
		// Max outgoing cost bounds this batch search.
		maxOut := -1.0
		for _, out := range outgoing {
			if out.Head != in.Head && out.Cost > maxOut {
				maxOut = out.Cost
			}
		}
		if maxOut < 0 {
			continue // all outgoing arcs loop back to in.Head
		}

		maxCost := in.Cost + maxOut

		batchWitnessSearch(ws, fwd, in.Head, node, maxCost, contracted, cfg.WitnessHops, cfg.WitnessMaxSettled)

		for _, out := range outgoing {
			if out.Head == in.Head {
				continue // skip self-loops
			}

			scCost := in.Cost + out.Cost

			// dist[out.Head] <= scCost means a witness path at least as
			// good as the shortcut exists; a truncated search leaves +Inf
			// and falls through to inserting the shortcut.
			if ws.dist[out.Head] > scCost {
				shortcuts = append(shortcuts, Shortcut{
					From:      in.Head,
					To:        out.Head,
					Cost:      scCost,
					Via:       node,
					FirstEdge: in.FirstEdge,
					LastEdge:  out.LastEdge,
				})
			}
		}
	}

	return shortcuts
}
