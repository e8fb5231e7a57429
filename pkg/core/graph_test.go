package core

import (
	"slices"
	"testing"

	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(id int64) graph.Vertex {
	return graph.Vertex{Label: schema.Person, ID: id}
}

func TestPutVertexAndEdge(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.PutVertex(person(2)))
	require.NoError(t, g.PutVertex(person(1)))
	require.NoError(t, g.PutVertex(graph.Vertex{Label: schema.Place, ID: 10}))

	err := g.PutVertex(person(1))
	assert.ErrorIs(t, err, graph.ErrDuplicateVertex)

	a, b := graph.K(schema.Person, 1), graph.K(schema.Person, 2)
	require.NoError(t, g.PutEdge(graph.Edge{Label: schema.Knows, From: a, To: b}))
	require.NoError(t, g.PutEdge(graph.Edge{Label: schema.IsLocatedIn, From: a, To: graph.K(schema.Place, 10)}))

	err = g.PutEdge(graph.Edge{Label: schema.Knows, From: a, To: graph.K(schema.Person, 3)})
	assert.ErrorIs(t, err, graph.ErrMissingEndpoint)

	v, ok := g.Vertex(schema.Person, 1)
	require.True(t, ok)
	assert.NotNil(t, v.Props)

	out := slices.Collect(g.Edges(a, schema.Knows, graph.Out))
	require.Len(t, out, 1)
	assert.Equal(t, b, out[0].To)

	in := slices.Collect(g.Edges(b, schema.Knows, graph.In))
	require.Len(t, in, 1)
	assert.Equal(t, a, in[0].From)

	assert.Empty(t, slices.Collect(g.Edges(b, schema.Knows, graph.Out)))

	s := g.Stats()
	assert.Equal(t, int64(2), s.Vertices[schema.Person])
	assert.Equal(t, int64(1), s.Edges[schema.Knows])
	assert.Equal(t, int64(1), s.Edges[schema.IsLocatedIn])
}

func TestScanOrder(t *testing.T) {
	g := NewGraph()
	for _, id := range []int64{5, 1, 3} {
		require.NoError(t, g.PutVertex(person(id)))
	}
	require.NoError(t, g.PutVertex(graph.Vertex{Label: "Custom", ID: 1}))

	var ids []int64
	g.ScanVertices(schema.Person, func(v *graph.Vertex) bool {
		ids = append(ids, v.ID)
		return true
	})
	assert.Equal(t, []int64{1, 3, 5}, ids)

	ids = ids[:0]
	g.ScanVertices(schema.Person, func(v *graph.Vertex) bool {
		ids = append(ids, v.ID)
		return len(ids) < 2
	})
	assert.Equal(t, []int64{1, 3}, ids)

	labels := g.Labels()
	assert.Equal(t, "Custom", labels[len(labels)-1])

	require.NoError(t, g.PutEdge(graph.Edge{Label: schema.Knows, From: graph.K(schema.Person, 5), To: graph.K(schema.Person, 1)}))
	require.NoError(t, g.PutEdge(graph.Edge{Label: schema.Knows, From: graph.K(schema.Person, 1), To: graph.K(schema.Person, 3)}))
	var froms []int64
	g.ScanEdges(func(e graph.Edge) bool {
		froms = append(froms, e.From.ID)
		return true
	})
	assert.Equal(t, []int64{1, 5}, froms)

	g.Reset()
	assert.Empty(t, g.Stats().Vertices)
}
