package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore
// implementation adheres to the interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()
	name := "contract-graph-" + time.Now().Format("20060102150405")

	sample := func() *domain.GraphDoc {
		return &domain.GraphDoc{
			Nodes: []domain.NodeDoc{
				{
					ID:      "Start",
					Command: "Flow/Start",
					Rect:    domain.Rect{X: 10, Y: 20},
					Ports: []domain.PortDoc{{
						Name: domain.PortNext,
						Connections: []domain.Connection{
							{To: domain.PortRef{Node: "n1", Port: domain.PortFrom}},
						},
					}},
				},
				{
					ID:      "n1",
					Command: "Debug/Log",
					Ports: []domain.PortDoc{
						{Name: domain.PortFrom, Connections: []domain.Connection{
							{To: domain.PortRef{Node: "Start", Port: domain.PortNext}},
						}},
						{Name: "obj", Literal: "hello"},
					},
				},
			},
			Values: map[string]any{"player": "ana"},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, name, sample())
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "Start", loaded.Nodes[0].ID)
		assert.Equal(t, 10.0, loaded.Nodes[0].Rect.X)
		n1, ok := loaded.Node("n1")
		require.True(t, ok)
		obj, ok := n1.Port("obj")
		require.True(t, ok)
		assert.Equal(t, "hello", obj.Literal)
		next, ok := loaded.Nodes[0].Port(domain.PortNext)
		require.True(t, ok)
		assert.Equal(t, "n1", next.Connections[0].To.Node)
		assert.Equal(t, "ana", loaded.Values["player"])
	})

	t.Run("Save Replaces", func(t *testing.T) {
		doc := sample()
		doc.Nodes = doc.Nodes[:1]
		require.NoError(t, store.Save(ctx, name, doc))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Len(t, loaded.Nodes, 1)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, sample()))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound, "Load after Delete should return ErrGraphNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		require.NoError(t, store.Save(ctx, id1, sample()))
		require.NoError(t, store.Save(ctx, id2, sample()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}
