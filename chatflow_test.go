package chatflow_test

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudio_EditSaveAndPreview(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	studio := chatflow.New(chatflow.WithStore(store), chatflow.WithDelay(0))

	ed, err := studio.Open(ctx, "acme")
	require.NoError(t, err)

	hi, ok := ed.AddStep(domain.KindMessage)
	require.True(t, ok)
	ed.SetText(hi.ID, "Hi")
	name, ok := ed.AddStep(domain.KindQuestion)
	require.True(t, ok)
	ed.SetText(name.ID, "Name?")

	start, ok := ed.Snapshot().Start()
	require.True(t, ok)
	_, err = ed.Connect(start.ID, hi.ID)
	require.NoError(t, err)
	_, err = ed.Connect(hi.ID, name.ID)
	require.NoError(t, err)

	require.NoError(t, studio.Save(ctx, "acme", ed))

	preview, err := studio.PreviewSaved(ctx, "acme")
	require.NoError(t, err)
	defer preview.Close()

	require.NoError(t, preview.Reset(ctx))
	assert.Equal(t, domain.StatusSuspended, preview.Status())
	assert.Equal(t, name.ID, preview.Current())

	require.NoError(t, preview.SubmitReply(ctx, "Ana"))
	assert.Equal(t, domain.StatusTerminal, preview.Status())
	assert.Len(t, preview.Transcript(), 3)
}

func TestStudio_OpenUnknownOwnerIsBlank(t *testing.T) {
	studio := chatflow.New()

	ed, err := studio.Open(context.Background(), "nobody")
	require.NoError(t, err)

	g := ed.Snapshot()
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, domain.KindStart, g.Nodes[0].Kind)
	assert.Empty(t, g.Connections)
}

func TestStudio_PreviewSavedMissing(t *testing.T) {
	studio := chatflow.New()

	_, err := studio.PreviewSaved(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestStudio_HooksReachPreviews(t *testing.T) {
	var entered []string
	studio := chatflow.New(
		chatflow.WithDelay(0),
		chatflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeID) },
		}),
	)

	g := domain.Graph{
		Nodes: []domain.Node{
			{ID: "s", Kind: domain.KindStart},
			{ID: "m", Kind: domain.KindMessage, Text: "Hello"},
		},
		Connections: []domain.Connection{{ID: "c", From: "s", To: "m"}},
	}
	preview := studio.Preview(g)
	defer preview.Close()

	require.NoError(t, preview.Reset(context.Background()))
	assert.Equal(t, []string{"s", "m"}, entered)
}
