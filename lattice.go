package lattice

import (
	"context"
	"log/slog"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/metrics"
	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/history"
	"github.com/aretw0/lattice/pkg/layer"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Version is the release of the library, overridable at link time.
var Version = "0.3.0"

type (
	// View is a read-only snapshot of the editor state.
	View = runtime.View
	// EdgeValidity is the answer to an edge preflight.
	EdgeValidity = runtime.EdgeValidity
	// LayerInfo describes an addable layer type.
	LayerInfo = runtime.LayerInfo
)

var (
	// ErrStale is returned when a remote result was superseded while in flight.
	ErrStale = runtime.ErrStale
	// ErrNoFiles is returned by file requests when no store is configured.
	ErrNoFiles = runtime.ErrNoFiles
	// ErrNoComputer is returned by RemoteCompute when no computer is configured.
	ErrNoComputer = runtime.ErrNoComputer
	// ErrUnavailable is returned when adding a layer type that is disabled.
	ErrUnavailable = runtime.ErrUnavailable
)

// Engine is the high-level entry point for the Lattice library.
// It wraps the internal runtime and wires the file store, the remote computer and metrics.
type Engine struct {
	runtime *runtime.Engine
	files   *session.Manager

	store       ports.BlobStore
	middlewares []middleware.Middleware
	locker      ports.DistributedLocker
	onFile      session.ChangeFunc
	computer    ports.LayerComputer
	registerer  prometheus.Registerer
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithName labels the engine; the name is attached to every log line.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// WithStore sets the blob store holding saved files (default: in memory).
func WithStore(store ports.BlobStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithStoreMiddleware wraps the store, first listed outermost.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) {
		e.middlewares = append(e.middlewares, mws...)
	}
}

// WithLocker serialises file access across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithOnFileChange is told the name of every file saved or deleted.
func WithOnFileChange(fn session.ChangeFunc) Option {
	return func(e *Engine) {
		e.onFile = fn
	}
}

// WithComputer enables RemoteCompute.
func WithComputer(c ports.LayerComputer) Option {
	return func(e *Engine) {
		e.computer = c
	}
}

// WithMetrics registers the engine's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithMaxHistory bounds the number of undoable steps.
func WithMaxHistory(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHistoryOptions(history.WithMaxSize(n)))
	}
}

// WithGraphOptions relaxes the edge rules.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithGraphOptions(opts...))
	}
}

// WithDisabledLayers marks layer types as not addable, keyed by type with the reason.
func WithDisabledLayers(reasons map[string]string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithDisabledLayers(reasons))
	}
}

// WithPropagation pushes output values downstream after every field change.
func WithPropagation(enabled bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithPropagation(enabled))
	}
}

// New initializes an Engine holding an empty graph.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("graph", eng.Name)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	fileOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		fileOpts = append(fileOpts, session.WithLocker(eng.locker))
	}
	if eng.onFile != nil {
		fileOpts = append(fileOpts, session.WithOnChange(eng.onFile))
	}
	eng.files = session.NewManager(middleware.Chain(eng.store, eng.middlewares...), fileOpts...)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithFiles(eng.files),
	}
	if eng.computer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithComputer(eng.computer))
	}
	if eng.registerer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithMetrics(metrics.New(eng.registerer)))
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	rt, err := runtime.NewEngine(runtimeOpts...)
	if err != nil {
		return nil, err
	}
	eng.runtime = rt
	return eng, nil
}

// AddLayer creates a default layer of layerType at (x, y) and returns the vertex id.
// An empty id is replaced by a generated one.
func (e *Engine) AddLayer(ctx context.Context, id, layerType string, x, y float64) (string, error) {
	return e.runtime.AddLayer(ctx, id, layerType, x, y)
}

// MoveVertex changes the position of a vertex.
func (e *Engine) MoveVertex(ctx context.Context, id string, x, y float64) error {
	return e.runtime.MoveVertex(ctx, id, x, y)
}

// CloneVertex copies a vertex's layer to a new vertex. Edges are not copied.
func (e *Engine) CloneVertex(ctx context.Context, newID, sourceID string, x, y float64) (string, error) {
	return e.runtime.CloneVertex(ctx, newID, sourceID, x, y)
}

// DeleteVertex removes a vertex and its incident edges.
func (e *Engine) DeleteVertex(ctx context.Context, id string) error {
	return e.runtime.DeleteVertex(ctx, id)
}

// DeleteVertices removes several vertices as one undoable step.
func (e *Engine) DeleteVertices(ctx context.Context, ids []string) error {
	return e.runtime.DeleteVertices(ctx, ids)
}

// CreateEdge connects an output port to an input port and returns the edge id.
func (e *Engine) CreateEdge(ctx context.Context, id, source, sourcePort, target, targetPort string) (string, error) {
	return e.runtime.CreateEdge(ctx, id, source, sourcePort, target, targetPort)
}

// DeleteEdge removes an edge.
func (e *Engine) DeleteEdge(ctx context.Context, id string) error {
	return e.runtime.DeleteEdge(ctx, id)
}

// SetLayerFields writes a batch of fields on a vertex's layer atomically.
func (e *Engine) SetLayerFields(ctx context.Context, vertexID string, fields map[string]string) error {
	return e.runtime.SetLayerFields(ctx, vertexID, fields)
}

// RemoteCompute recomputes a vertex's layer with the configured computer.
func (e *Engine) RemoteCompute(ctx context.Context, vertexID string) error {
	return e.runtime.RemoteCompute(ctx, vertexID)
}

// ValidateEdge reports whether an edge could be created.
func (e *Engine) ValidateEdge(source, sourcePort, target, targetPort string) EdgeValidity {
	return e.runtime.ValidateEdge(source, sourcePort, target, targetPort)
}

// EdgesBetweenVertices returns the edges with both endpoints in ids.
func (e *Engine) EdgesBetweenVertices(ids []string) []string {
	return e.runtime.EdgesBetweenVertices(ids)
}

// ValidateLayerFields previews a field batch without applying it.
func (e *Engine) ValidateLayerFields(vertexID string, fields map[string]string) (layer.Report, error) {
	return e.runtime.ValidateLayerFields(vertexID, fields)
}

// ListLayers lists the layer types.
func (e *Engine) ListLayers() []LayerInfo {
	return e.runtime.ListLayers()
}

// Document returns the current graph document.
func (e *Engine) Document() domain.Document {
	return e.runtime.Document()
}

// View returns the document with edge consistency and history status.
func (e *Engine) View() View {
	return e.runtime.View()
}

// Undo reverts the latest change.
func (e *Engine) Undo(ctx context.Context) error {
	return e.runtime.Undo(ctx)
}

// Redo re-applies the latest undone change.
func (e *Engine) Redo(ctx context.Context) error {
	return e.runtime.Redo(ctx)
}

// CanUndo reports whether Undo would change anything.
func (e *Engine) CanUndo() bool {
	return e.runtime.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (e *Engine) CanRedo() bool {
	return e.runtime.CanRedo()
}

// AreAllChangesSaved reports whether the graph matches the open file.
func (e *Engine) AreAllChangesSaved() bool {
	return e.runtime.AreAllChangesSaved()
}

// SaveFile saves the graph under name.
func (e *Engine) SaveFile(ctx context.Context, name string) error {
	return e.runtime.SaveFile(ctx, name)
}

// OpenFile replaces the graph with a saved file.
func (e *Engine) OpenFile(ctx context.Context, name string) error {
	return e.runtime.OpenFile(ctx, name)
}

// DeleteFile deletes a saved file.
func (e *Engine) DeleteFile(ctx context.Context, name string) error {
	return e.runtime.DeleteFile(ctx, name)
}

// SavedFileNames lists the saved files.
func (e *Engine) SavedFileNames(ctx context.Context) ([]string, error) {
	return e.runtime.SavedFileNames(ctx)
}

// Subscribe streams committed change events until the returned function is called.
func (e *Engine) Subscribe() (<-chan domain.ChangeEvent, func()) {
	return e.runtime.Subscribe()
}

// Files returns the session manager backing the saved files.
func (e *Engine) Files() *session.Manager {
	return e.files
}
