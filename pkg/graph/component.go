package graph

// UnionFind implements a disjoint-set data structure with path halving
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient; max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node ids belonging to the largest weakly
// connected component (treating the directed graph as undirected),
// ascending by id.
func LargestComponent(s *Store) []NodeID {
	n := uint32(s.NodeCount())
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for _, e := range s.edges {
		uf.Union(uint32(e.From), uint32(e.To))
	}

	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := uint32(0); i < n; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]NodeID, 0, bestSize)
	for i := uint32(0); i < n; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, NodeID(i))
		}
	}
	return nodes
}

// FilterToComponent builds a new store containing only the given nodes and
// the edges fully inside the set. Turn restrictions whose edges survive are
// remapped; the rest are dropped.
func FilterToComponent(s *Store, nodes []NodeID) (*Store, error) {
	b := NewBuilder()
	if s.grid != nil {
		b.SetCellSize(s.grid.cellSize)
	}
	if len(nodes) == 0 {
		return b.Build()
	}

	oldToNew := make(map[NodeID]NodeID, len(nodes))
	for _, old := range nodes {
		nd := s.nodes[old]
		oldToNew[old] = b.AddNode(nd.Lon, nd.Lat, nd.Elevation)
	}

	edgeMap := make(map[EdgeID]EdgeID)
	for _, old := range nodes {
		for _, e := range s.fwd[old] {
			edge := s.edges[e]
			newTo, ok := oldToNew[edge.To]
			if !ok {
				continue
			}
			edgeMap[e] = b.AddRoadEdge(oldToNew[old], newTo, edge.Weight, edge.Distance, edge.Bearing)
		}
	}

	for tr := range s.restrictions {
		from, okF := edgeMap[tr.FromEdge]
		to, okT := edgeMap[tr.ToEdge]
		via, okV := oldToNew[tr.Via]
		if okF && okT && okV {
			b.AddTurnRestriction(from, via, to)
		}
	}

	return b.Build()
}
