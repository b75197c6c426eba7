package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route_engine/pkg/graph"
)

func buildSnapStore(t *testing.T) *graph.Store {
	t.Helper()
	b := graph.NewBuilder()
	// One horizontal edge and one vertical edge meeting at a corner.
	b.AddNode(103.8200, 1.3500, 0) // 0
	b.AddNode(103.8300, 1.3500, 0) // 1
	b.AddNode(103.8300, 1.3600, 0) // 2
	b.AddRoadEdge(0, 1, 10, 1113, 90)
	b.AddRoadEdge(1, 2, 10, 1106, 0)
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestSnapOntoEdge(t *testing.T) {
	s := buildSnapStore(t)
	sn := NewSnapper(s)

	// A point slightly north of the horizontal edge's midpoint snaps onto
	// that edge near ratio 0.5.
	res, ok := sn.Snap(103.8250, 1.3502)
	require.True(t, ok)
	assert.Equal(t, graph.EdgeID(0), res.Edge)
	assert.InDelta(t, 0.5, res.Ratio, 0.05)
	assert.InDelta(t, 103.8250, res.Point.Lon(), 1e-4)
	assert.InDelta(t, 1.3500, res.Point.Lat(), 1e-4)
	assert.Less(t, res.Dist, 50.0)
}

func TestSnapPicksNearestEdge(t *testing.T) {
	s := buildSnapStore(t)
	sn := NewSnapper(s)

	// East of the vertical edge: the vertical edge is closest.
	res, ok := sn.Snap(103.8302, 1.3550)
	require.True(t, ok)
	assert.Equal(t, graph.EdgeID(1), res.Edge)
}

func TestSnapClampsToEndpoint(t *testing.T) {
	s := buildSnapStore(t)
	sn := NewSnapper(s)

	// A point west of the horizontal edge's start clamps to ratio 0.
	res, ok := sn.Snap(103.8180, 1.3500)
	require.True(t, ok)
	assert.Equal(t, graph.EdgeID(0), res.Edge)
	assert.InDelta(t, 0.0, res.Ratio, 1e-9)
	assert.InDelta(t, 103.8200, res.Point.Lon(), 1e-9)
}

func TestSnapOffNetwork(t *testing.T) {
	s := buildSnapStore(t)
	sn := NewSnapper(s)

	_, ok := sn.Snap(100.0, 10.0)
	assert.False(t, ok, "a point far from every edge must not snap")
}
