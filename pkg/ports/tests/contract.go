package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleDocument returns a small document exercising every field.
func sampleDocument() codec.Document {
	return codec.Document{
		Version: codec.CurrentVersion,
		Nodes: []codec.NodeDoc{
			{ID: "n1", Kind: "start", X: 0, Y: 0},
			{ID: "n2", Kind: "message", Text: "Hi", X: -12.5, Y: 40},
			{ID: "n3", Kind: "question", Text: "Name?", X: 100, Y: 100},
		},
		Connections: []codec.ConnectionDoc{
			{ID: "c1", From: "n1", To: "n2"},
			{ID: "c2", From: "n2", To: "n3"},
		},
	}
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store ports.SnapshotStore) {
	t.Helper()
	ctx := context.Background()
	owner := "contract-owner-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := sampleDocument()

		err := store.Save(ctx, owner, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, owner)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, doc, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		doc := sampleDocument()
		doc.Nodes[1].Text = "Hello again"
		require.NoError(t, store.Save(ctx, owner, doc))

		loaded, err := store.Load(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, "Hello again", loaded.Nodes[1].Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+owner)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, owner, sampleDocument()))

		err := store.Delete(ctx, owner)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, owner)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	lister, ok := store.(ports.ListableStore)
	if !ok {
		return
	}

	t.Run("List", func(t *testing.T) {
		id1 := owner + "-1"
		id2 := owner + "-2"
		require.NoError(t, store.Save(ctx, id1, sampleDocument()))
		require.NoError(t, store.Save(ctx, id2, sampleDocument()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		owners, err := lister.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, owners, id1)
		assert.Contains(t, owners, id2)
	})
}
