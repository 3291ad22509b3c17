package lattice_test

import (
	"context"
	"testing"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacadeIntegration(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	var notified []string
	var changes []domain.ChangeKind

	key := make([]byte, 32)
	eng, err := lattice.New(
		lattice.WithName("test"),
		lattice.WithStore(store),
		lattice.WithStoreMiddleware(middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})),
		lattice.WithOnFileChange(func(ctx context.Context, name string) { notified = append(notified, name) }),
		lattice.WithLifecycleHooks(domain.LifecycleHooks{
			OnChange: func(ctx context.Context, ev *domain.ChangeEvent) { changes = append(changes, ev.Kind) },
		}),
		lattice.WithMetrics(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	_, err = eng.AddLayer(ctx, "c", "Constant", 0, 0)
	require.NoError(t, err)
	_, err = eng.AddLayer(ctx, "add", "Add", 10, 0)
	require.NoError(t, err)
	require.NoError(t, eng.SetLayerFields(ctx, "c", map[string]string{"value": "4"}))
	_, err = eng.CreateEdge(ctx, "e", "c", "output", "add", "a")
	require.NoError(t, err)

	view := eng.View()
	require.Len(t, view.Edges, 1)
	assert.Equal(t, graph.Inconsistent, view.Edges[0].Consistency)
	assert.True(t, view.CanUndo)

	require.NoError(t, eng.SaveFile(ctx, "demo"))
	assert.True(t, eng.AreAllChangesSaved())
	assert.Equal(t, []string{"demo"}, notified)

	raw, err := store.Get(ctx, "demo")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Constant", "blobs are encrypted at rest")

	names, err := eng.SavedFileNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)

	require.NoError(t, eng.DeleteVertex(ctx, "c"))
	require.NoError(t, eng.OpenFile(ctx, "demo"))
	assert.Contains(t, eng.Document().Layers, "c")

	assert.Equal(t, []domain.ChangeKind{
		domain.ChangeAddLayer, domain.ChangeAddLayer, domain.ChangeSetFields, domain.ChangeCreateEdge,
		domain.ChangeSaveFile, domain.ChangeDeleteVertex, domain.ChangeOpenFile,
	}, changes)
}

func TestFacadeOptions(t *testing.T) {
	ctx := context.Background()
	eng, err := lattice.New(
		lattice.WithGraphOptions(graph.WithSelfLoops(true)),
		lattice.WithDisabledLayers(map[string]string{"Input": "no dataset loaded"}),
		lattice.WithMaxHistory(1),
		lattice.WithPropagation(true),
	)
	require.NoError(t, err)

	_, err = eng.AddLayer(ctx, "i", "Input", 0, 0)
	assert.ErrorIs(t, err, lattice.ErrUnavailable)

	_, err = eng.AddLayer(ctx, "a", "Add", 0, 0)
	require.NoError(t, err)
	assert.True(t, eng.ValidateEdge("a", "sum", "a", "a").Valid, "self loops allowed")

	require.NoError(t, eng.MoveVertex(ctx, "a", 1, 1))
	require.NoError(t, eng.Undo(ctx))
	assert.False(t, eng.CanUndo(), "history holds a single step")

	assert.ErrorIs(t, eng.RemoteCompute(ctx, "a"), lattice.ErrNoComputer)
}
