package graph_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() graph.Option {
	n := 0
	return graph.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
}

func TestNewStore_SeedsStart(t *testing.T) {
	s := graph.NewStore(sequentialIDs())
	g := s.Snapshot()

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, domain.Node{ID: "id1", Kind: domain.KindStart}, g.Nodes[0])
	assert.Empty(t, g.Connections)
}

func TestStore_DefaultIDsAreUnique(t *testing.T) {
	s := graph.NewStore()
	a := s.AddNode(domain.KindMessage, domain.Position{})
	b := s.AddNode(domain.KindMessage, domain.Position{})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_AddNodeUsesDefaultText(t *testing.T) {
	s := graph.NewStore(sequentialIDs())
	n := s.AddNode(domain.KindQuestion, domain.Position{X: 4, Y: 2})
	assert.Equal(t, "New question?", n.Text)
	assert.Equal(t, domain.Position{X: 4, Y: 2}, n.Position)
}

func TestStore_MoveAndUpdate(t *testing.T) {
	s := graph.NewStore(sequentialIDs())
	require.NoError(t, s.MoveNode("id1", domain.Position{X: 1, Y: 1}))
	require.NoError(t, s.UpdateText("id1", "Welcome"))

	n, ok := s.Node("id1")
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 1, Y: 1}, n.Position)
	assert.Equal(t, "Welcome", n.Text)

	assert.ErrorIs(t, s.MoveNode("nope", domain.Position{}), domain.ErrNotFound)
	assert.ErrorIs(t, s.UpdateText("nope", "x"), domain.ErrNotFound)
}

func TestStore_AddConnection(t *testing.T) {
	s := graph.NewStore(sequentialIDs())
	m := s.AddNode(domain.KindMessage, domain.Position{})

	c1, err := s.AddConnection("id1", m.ID)
	require.NoError(t, err)
	c2, err := s.AddConnection("id1", m.ID)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID, "duplicate pairs are distinct connections")

	_, err = s.AddConnection(m.ID, m.ID)
	assert.NoError(t, err, "self loops are allowed")

	_, err = s.AddConnection("id1", "ghost")
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
	_, err = s.AddConnection("ghost", "id1")
	assert.ErrorIs(t, err, domain.ErrUnknownNode)

	_, conns := s.Len()
	assert.Equal(t, 3, conns)
}

func TestStore_RemoveNodeCascades(t *testing.T) {
	s := graph.NewStore(sequentialIDs())
	a := s.AddNode(domain.KindMessage, domain.Position{})
	b := s.AddNode(domain.KindMessage, domain.Position{})
	_, _ = s.AddConnection("id1", a.ID)
	_, _ = s.AddConnection(a.ID, b.ID)
	keep, _ := s.AddConnection("id1", b.ID)

	require.NoError(t, s.RemoveNode(a.ID))

	g := s.Snapshot()
	assert.Len(t, g.Nodes, 2)
	assert.Equal(t, []domain.Connection{keep}, g.Connections)
	assert.ErrorIs(t, s.RemoveNode(a.ID), domain.ErrNotFound)
}

func TestStore_RemoveConnection(t *testing.T) {
	s := graph.NewStore(sequentialIDs())
	a := s.AddNode(domain.KindMessage, domain.Position{})
	c, err := s.AddConnection("id1", a.ID)
	require.NoError(t, err)

	require.NoError(t, s.RemoveConnection(c.ID))
	assert.ErrorIs(t, s.RemoveConnection(c.ID), domain.ErrNotFound)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := graph.NewStore(sequentialIDs())
	snap := s.Snapshot()
	require.NoError(t, s.UpdateText("id1", "after"))
	s.AddNode(domain.KindAction, domain.Position{})

	assert.Len(t, snap.Nodes, 1)
	assert.Equal(t, "", snap.Nodes[0].Text)

	snap.Nodes[0].Text = "mutated"
	n, _ := s.Node("id1")
	assert.Equal(t, "after", n.Text)
}

func TestNewStoreFrom_CopiesGraph(t *testing.T) {
	g := domain.Graph{Nodes: []domain.Node{{ID: "x", Kind: domain.KindStart}}}
	s := graph.NewStoreFrom(g)
	g.Nodes[0].Text = "changed"

	n, ok := s.Node("x")
	require.True(t, ok)
	assert.Equal(t, "", n.Text)
}
