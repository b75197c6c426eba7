package routing

import (
	"math"

	"route_engine/pkg/graph"
)

const noNode = ^uint32(0) // sentinel for "no node"

// MinHeap is a concrete-typed min-heap for the query priority queues.
// Avoids interface boxing overhead of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node graph.NodeID
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node graph.NodeID, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

// PeekDist returns the minimum key, or +Inf when empty.
func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// QueryState holds per-query state for the bidirectional search. States
// come from the engine's pool; a single state is never used concurrently.
type QueryState struct {
	DistFwd []float64
	DistBwd []float64
	PredFwd []uint32 // predecessor node in the forward search (noNode = none)
	PredBwd []uint32 // predecessor node in the backward search (noNode = none)

	// Last/first original edge of the arc each node was reached by,
	// used for turn-restriction checks during relaxation. -1 = seed.
	EdgeFwd []int32
	EdgeBwd []int32

	Touched []graph.NodeID // nodes touched during this query (for fast reset)
	FwdPQ   MinHeap
	BwdPQ   MinHeap
}

// NewQueryState creates a QueryState for a graph with n nodes.
func NewQueryState(n int) *QueryState {
	distFwd := make([]float64, n)
	distBwd := make([]float64, n)
	predFwd := make([]uint32, n)
	predBwd := make([]uint32, n)
	edgeFwd := make([]int32, n)
	edgeBwd := make([]int32, n)
	for i := range distFwd {
		distFwd[i] = math.Inf(1)
		distBwd[i] = math.Inf(1)
		predFwd[i] = noNode
		predBwd[i] = noNode
		edgeFwd[i] = -1
		edgeBwd[i] = -1
	}
	return &QueryState{
		DistFwd: distFwd,
		DistBwd: distBwd,
		PredFwd: predFwd,
		PredBwd: predBwd,
		EdgeFwd: edgeFwd,
		EdgeBwd: edgeBwd,
		Touched: make([]graph.NodeID, 0, 1024),
		FwdPQ:   MinHeap{items: make([]PQItem, 0, 256)},
		BwdPQ:   MinHeap{items: make([]PQItem, 0, 256)},
	}
}

// Reset clears only the touched entries for fast reuse.
func (qs *QueryState) Reset() {
	for _, node := range qs.Touched {
		qs.DistFwd[node] = math.Inf(1)
		qs.DistBwd[node] = math.Inf(1)
		qs.PredFwd[node] = noNode
		qs.PredBwd[node] = noNode
		qs.EdgeFwd[node] = -1
		qs.EdgeBwd[node] = -1
	}
	qs.Touched = qs.Touched[:0]
	qs.FwdPQ.Reset()
	qs.BwdPQ.Reset()
}

func (qs *QueryState) touchFwd(node graph.NodeID, dist float64) {
	if math.IsInf(qs.DistFwd[node], 1) && math.IsInf(qs.DistBwd[node], 1) {
		qs.Touched = append(qs.Touched, node)
	}
	qs.DistFwd[node] = dist
}

func (qs *QueryState) touchBwd(node graph.NodeID, dist float64) {
	if math.IsInf(qs.DistFwd[node], 1) && math.IsInf(qs.DistBwd[node], 1) {
		qs.Touched = append(qs.Touched, node)
	}
	qs.DistBwd[node] = dist
}
