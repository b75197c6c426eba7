package ch

import (
	"math"

	"route_engine/pkg/graph"
)

// witnessHeapItem is an entry in the witness search min-heap.
type witnessHeapItem struct {
	node graph.NodeID
	dist float64
	hops int
}

// witnessHeap is a concrete-typed binary min-heap for witness search.
type witnessHeap struct {
	items []witnessHeapItem
}

func (h *witnessHeap) Len() int { return len(h.items) }

func (h *witnessHeap) Push(node graph.NodeID, dist float64, hops int) {
	h.items = append(h.items, witnessHeapItem{node, dist, hops})
	h.siftUp(len(h.items) - 1)
}

func (h *witnessHeap) Pop() witnessHeapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

// siftUp uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *witnessHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.dist >= h.items[parent].dist {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

// siftDown uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *witnessHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].dist < h.items[child].dist {
			child = right
		}
		if item.dist <= h.items[child].dist {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

func (h *witnessHeap) Reset() {
	h.items = h.items[:0]
}

// witnessState holds reusable state for batch witness searches.
// Avoids per-call map allocation by using a touched-list pattern.
type witnessState struct {
	dist    []float64      // distance array indexed by node id
	touched []graph.NodeID // nodes touched (for fast reset)
	heap    witnessHeap
}

func newWitnessState(numNodes int) *witnessState {
	dist := make([]float64, numNodes)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	return &witnessState{
		dist: dist,
		heap: witnessHeap{items: make([]witnessHeapItem, 0, 256)},
	}
}

func (ws *witnessState) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = math.Inf(1)
	}
	ws.touched = ws.touched[:0]
	ws.heap.Reset()
}

// batchWitnessSearch runs a single cost/hop/settled-bounded Dijkstra from
// source over the current (uncontracted) forward arcs, excluding the node
// being contracted, and leaves the distances in ws.dist. The caller checks
// which outgoing targets already have a witness path.
//
// One search per incoming neighbor replaces a per-(in,out)-pair search,
// reducing the search count from O(|in|*|out|) to O(|in|).
//
// The bounds make this a sufficient condition for omitting a shortcut, not
// a necessary one: a truncated search leaves ws.dist at +Inf, which the
// caller reads as "no witness" and inserts the shortcut. Extra shortcuts
// are harmless; a missing one would not be.
func batchWitnessSearch(ws *witnessState, fwd [][]Arc, source, excluded graph.NodeID, maxCost float64, contracted []bool, maxHops, maxSettled int) {
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.Push(source, 0, 0)

	settled := 0

	for ws.heap.Len() > 0 {
		cur := ws.heap.Pop()

		// Skip stale entries.
		if cur.dist > ws.dist[cur.node] {
			continue
		}

		settled++
		if settled >= maxSettled {
			break
		}

		if cur.dist > maxCost {
			continue
		}

		if cur.hops >= maxHops {
			continue
		}

		for _, a := range fwd[cur.node] {
			if a.Head == excluded || contracted[a.Head] {
				continue
			}

			newDist := cur.dist + a.Cost
			if newDist > maxCost {
				continue
			}

			if newDist < ws.dist[a.Head] {
				if math.IsInf(ws.dist[a.Head], 1) {
					ws.touched = append(ws.touched, a.Head)
				}
				ws.dist[a.Head] = newDist
				ws.heap.Push(a.Head, newDist, cur.hops+1)
			}
		}
	}
}
