package runtime_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/history"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	opts = append([]runtime.EngineOption{runtime.WithFiles(session.NewManager(memory.NewStore()))}, opts...)
	e, err := runtime.NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func fieldOf(t *testing.T, e *runtime.Engine, vertex, field string) string {
	t.Helper()
	rec, ok := e.Document().Layers[vertex]
	require.True(t, ok, "vertex %q", vertex)
	return rec.ValDict[field]
}

func TestAddAndUpdateScenario(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.AddLayer(ctx, "A", "Add", 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.SetLayerFields(ctx, "A", map[string]string{"a": "2", "b": "3"}))
	assert.Equal(t, "5", fieldOf(t, e, "A", "sum"))

	_, err = e.AddLayer(ctx, "B", "Repeat", 100, 0)
	require.NoError(t, err)
	require.NoError(t, e.SetLayerFields(ctx, "B", map[string]string{"input_shape": "(1,1,1)"}))

	validity := e.ValidateEdge("A", "sum", "B", "input")
	assert.False(t, validity.Valid)
	assert.NotEmpty(t, validity.Reason)

	_, err = e.CreateEdge(ctx, "", "A", "sum", "B", "input")
	assert.ErrorIs(t, err, domain.ErrStructural)
	assert.Empty(t, e.Document().Graph.Edges)
}

func TestFailedRequestLeavesNoTrace(t *testing.T) {
	var rejected []domain.ChangeKind
	e := newEngine(t, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnRejected: func(ctx context.Context, kind domain.ChangeKind, err error) {
			rejected = append(rejected, kind)
		},
	}))
	ctx := context.Background()

	_, err := e.AddLayer(ctx, "A", "Add", 0, 0)
	require.NoError(t, err)
	before := e.Document()

	assert.ErrorIs(t, e.SetLayerFields(ctx, "A", map[string]string{"a": "1", "b": "oops"}), domain.ErrParse)
	assert.ErrorIs(t, e.MoveVertex(ctx, "missing", 1, 1), domain.ErrNotFound)
	_, err = e.AddLayer(ctx, "A", "Add", 0, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = e.AddLayer(ctx, "Z", "Conv9D", 0, 0)
	assert.ErrorIs(t, err, domain.ErrUnknownType)
	assert.ErrorIs(t, e.DeleteVertices(ctx, []string{"A", "missing"}), domain.ErrNotFound)

	assert.Equal(t, before, e.Document())
	require.NoError(t, e.Undo(ctx))
	assert.Empty(t, e.Document().Graph.Vertices, "only the successful add is undoable")
	assert.Equal(t, []domain.ChangeKind{
		domain.ChangeSetFields, domain.ChangeMoveVertex, domain.ChangeAddLayer,
		domain.ChangeAddLayer, domain.ChangeDeleteVertex,
	}, rejected)
}

func TestGeneratedIDs(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	a, err := e.AddLayer(ctx, "", "Constant", 0, 0)
	require.NoError(t, err)
	b, err := e.AddLayer(ctx, "", "Add", 0, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	edge, err := e.CreateEdge(ctx, "", a, "output", b, "a")
	require.NoError(t, err)
	assert.Contains(t, e.Document().Graph.Edges, edge)

	c, err := e.CloneVertex(ctx, "", b, 10, 10)
	require.NoError(t, err)
	assert.Contains(t, e.Document().Layers, c)
}

func TestDeleteVerticesIsOneStep(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		_, err := e.AddLayer(ctx, id, "Add", 0, 0)
		require.NoError(t, err)
	}
	_, err := e.CreateEdge(ctx, "ab", "A", "sum", "B", "a")
	require.NoError(t, err)
	_, err = e.CreateEdge(ctx, "bc", "B", "sum", "C", "a")
	require.NoError(t, err)

	assert.Equal(t, []string{"ab"}, e.EdgesBetweenVertices([]string{"A", "B"}))
	require.NoError(t, e.DeleteVertices(ctx, []string{"A", "B"}))

	doc := e.Document()
	assert.Equal(t, []string{"C"}, keys(doc.Graph.Vertices))
	assert.Empty(t, doc.Graph.Edges, "no dangling edges")

	require.NoError(t, e.Undo(ctx))
	assert.Len(t, e.Document().Graph.Vertices, 3)
	assert.Len(t, e.Document().Graph.Edges, 2)

	require.NoError(t, e.DeleteVertices(ctx, []string{"C", "A", "C"}), "repeated ids")
	assert.Equal(t, []string{"B"}, keys(e.Document().Graph.Vertices))
	require.NoError(t, e.Undo(ctx))
	assert.Len(t, e.Document().Graph.Vertices, 3)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestUndoRedoRestoresConsistency(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, _ = e.AddLayer(ctx, "A", "Add", 0, 0)
	_, _ = e.AddLayer(ctx, "C", "Add", 0, 0)
	require.NoError(t, e.SetLayerFields(ctx, "A", map[string]string{"a": "2", "b": "3"}))
	require.NoError(t, e.SetLayerFields(ctx, "C", map[string]string{"a": "5"}))
	_, err := e.CreateEdge(ctx, "e1", "A", "sum", "C", "a")
	require.NoError(t, err)
	assert.Equal(t, graph.Consistent, e.View().Edges[0].Consistency)

	require.NoError(t, e.SetLayerFields(ctx, "A", map[string]string{"a": "3"}))
	assert.Equal(t, graph.Inconsistent, e.View().Edges[0].Consistency)

	require.NoError(t, e.Undo(ctx))
	assert.Equal(t, "5", fieldOf(t, e, "A", "sum"))
	assert.Equal(t, graph.Consistent, e.View().Edges[0].Consistency)

	require.NoError(t, e.Redo(ctx))
	assert.Equal(t, "6", fieldOf(t, e, "A", "sum"))
	assert.Equal(t, graph.Inconsistent, e.View().Edges[0].Consistency)
}

func TestPropagation(t *testing.T) {
	e := newEngine(t, runtime.WithPropagation(true))
	ctx := context.Background()
	_, _ = e.AddLayer(ctx, "A", "Add", 0, 0)
	_, _ = e.AddLayer(ctx, "C", "Add", 0, 0)
	_, err := e.CreateEdge(ctx, "e1", "A", "sum", "C", "a")
	require.NoError(t, err)

	require.NoError(t, e.SetLayerFields(ctx, "A", map[string]string{"a": "2", "b": "3"}))
	assert.Equal(t, "5", fieldOf(t, e, "C", "a"))
	assert.Equal(t, graph.Consistent, e.View().Edges[0].Consistency)

	require.NoError(t, e.Undo(ctx))
	assert.Equal(t, "0", fieldOf(t, e, "C", "a"), "propagation is part of the same step")
}

func TestPropagationWithCyclesStillEdits(t *testing.T) {
	e := newEngine(t, runtime.WithPropagation(true), runtime.WithGraphOptions(graph.WithCycles(true)))
	ctx := context.Background()
	_, _ = e.AddLayer(ctx, "A", "Add", 0, 0)
	_, _ = e.AddLayer(ctx, "B", "Add", 0, 0)
	_, err := e.CreateEdge(ctx, "ab", "A", "sum", "B", "a")
	require.NoError(t, err)
	_, err = e.CreateEdge(ctx, "ba", "B", "sum", "A", "a")
	require.NoError(t, err)

	require.NoError(t, e.SetLayerFields(ctx, "A", map[string]string{"b": "1"}))
	assert.Equal(t, "1", fieldOf(t, e, "A", "sum"))
	assert.Equal(t, "0", fieldOf(t, e, "B", "a"), "no propagation around a cycle")
	assert.True(t, e.CanUndo())
}

func TestListLayers(t *testing.T) {
	e := newEngine(t, runtime.WithDisabledLayers(map[string]string{"Repeat": "requires a remote backend"}))

	layers := e.ListLayers()
	require.Len(t, layers, 4)
	byName := map[string]string{}
	for _, l := range layers {
		byName[l.Name] = l.ReasonNotAvailable
	}
	assert.Equal(t, "requires a remote backend", byName["Repeat"])
	assert.Empty(t, byName["Add"])

	_, err := e.AddLayer(context.Background(), "R", "Repeat", 0, 0)
	assert.ErrorIs(t, err, runtime.ErrUnavailable)
}

func TestValidateLayerFieldsDoesNotMutate(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, _ = e.AddLayer(ctx, "A", "Add", 0, 0)

	report, err := e.ValidateLayerFields("A", map[string]string{"a": "9007199254740991", "b": "9007199254740991"})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, "0", fieldOf(t, e, "A", "a"))
	assert.False(t, e.CanRedo())

	_, err = e.ValidateLayerFields("missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryBoundFromOptions(t *testing.T) {
	e := newEngine(t, runtime.WithHistoryOptions(history.WithMaxSize(3)))
	ctx := context.Background()
	_, _ = e.AddLayer(ctx, "A", "Constant", 0, 0)
	for i := 1; i <= 5; i++ {
		require.NoError(t, e.MoveVertex(ctx, "A", float64(i), 0))
	}
	for range 10 {
		require.NoError(t, e.Undo(ctx))
	}
	assert.Equal(t, domain.VertexRecord{X: 2, Y: 0}, e.Document().Graph.Vertices["A"])
	assert.False(t, e.CanUndo())
}

func TestSubscribeReceivesDiffs(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	events, cancel := e.Subscribe()
	defer cancel()

	_, err := e.AddLayer(ctx, "A", "Constant", 0, 0)
	require.NoError(t, err)
	ev := <-events
	assert.Equal(t, domain.ChangeAddLayer, ev.Kind)
	assert.Equal(t, "A", ev.Target)
	assert.False(t, ev.Saved)

	var d map[string]any
	require.NoError(t, json.Unmarshal(ev.Diff, &d))
	assert.Contains(t, d, "changed")

	// Moving to the same place changes nothing and publishes nothing.
	require.NoError(t, e.MoveVertex(ctx, "A", 0, 0))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v", ev.Kind)
	default:
	}

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestConcurrentMutations(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, _ = e.AddLayer(ctx, "A", "Constant", 0, 0)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.MoveVertex(ctx, "A", float64(i+1), 0))
		}()
	}
	wg.Wait()
	for range 20 {
		require.NoError(t, e.Undo(ctx))
	}
	assert.Equal(t, domain.VertexRecord{}, e.Document().Graph.Vertices["A"])
}
