package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/metrics"
	"github.com/aretw0/lattice/pkg/diff"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/history"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
)

var (
	// ErrStale is returned when a remote result was superseded while in flight.
	ErrStale = errors.New("result superseded by a newer change")

	// ErrNoFiles is returned by file requests when no store is configured.
	ErrNoFiles = errors.New("no file store configured")

	// ErrNoComputer is returned by RemoteCompute when no computer is configured.
	ErrNoComputer = errors.New("no remote computer configured")

	// ErrUnavailable is returned when adding a layer type that is disabled.
	ErrUnavailable = errors.New("layer not available")
)

// subscriberBuffer is the number of events a slow subscriber may lag behind.
const subscriberBuffer = 32

// Engine owns the graph, its history and the saved files.
// All methods are safe for concurrent use; mutations are serialized.
type Engine struct {
	mu      sync.Mutex
	graph   *graph.Graph
	history *history.Manager[domain.Document]
	seq     uint64
	epoch   uint64
	// commits counts history changes; SaveFile uses it to detect edits made during a write.
	commits uint64
	// generations maps a vertex id to the seq of its latest local change.
	generations map[string]uint64

	graphOpts   []graph.Option
	historyOpts []history.Option
	files       *session.Manager
	computer    ports.LayerComputer
	queue       *Queue
	metrics     *metrics.Metrics
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	disabled    map[string]string
	propagate   bool

	subMu sync.Mutex
	subs  map[chan domain.ChangeEvent]struct{}
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithFiles enables the file requests.
func WithFiles(files *session.Manager) EngineOption {
	return func(e *Engine) {
		e.files = files
	}
}

// WithComputer enables RemoteCompute.
func WithComputer(c ports.LayerComputer) EngineOption {
	return func(e *Engine) {
		e.computer = c
	}
}

// WithMetrics feeds the prometheus collectors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithGraphOptions sets the structural rules of the graph.
func WithGraphOptions(opts ...graph.Option) EngineOption {
	return func(e *Engine) {
		e.graphOpts = append(e.graphOpts, opts...)
	}
}

// WithHistoryOptions configures the undo history.
func WithHistoryOptions(opts ...history.Option) EngineOption {
	return func(e *Engine) {
		e.historyOpts = append(e.historyOpts, opts...)
	}
}

// WithDisabledLayers marks layer types as unavailable, with the reason shown to users.
func WithDisabledLayers(reasons map[string]string) EngineOption {
	return func(e *Engine) {
		for name, reason := range reasons {
			e.disabled[name] = reason
		}
	}
}

// WithPropagation makes field edits re-run every downstream layer.
func WithPropagation(enabled bool) EngineOption {
	return func(e *Engine) {
		e.propagate = enabled
	}
}

// NewEngine creates an engine holding an empty graph.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		generations: make(map[string]uint64),
		logger:      logging.NewNop(),
		disabled:    make(map[string]string),
		subs:        make(map[chan domain.ChangeEvent]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.graph = graph.New(e.graphOpts...)
	historyOpts := append([]history.Option{history.WithLogger(e.logger)}, e.historyOpts...)
	h, err := history.New(domain.NewDocument(), history.JSONCodec[domain.Document]{}, historyOpts...)
	if err != nil {
		return nil, err
	}
	e.history = h
	e.queue = NewQueue(e.metrics.ObserveQueue)
	return e, nil
}

// Subscribe returns a channel of committed change events and a function
// that cancels the subscription. Events are dropped for subscribers that
// fall too far behind.
func (e *Engine) Subscribe() (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, subscriberBuffer)
	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, ch)
			e.subMu.Unlock()
			close(ch)
		})
	}
}

// mutate runs fn against the live graph and commits the result.
// If fn fails, the graph is rebuilt from the last committed document.
func (e *Engine) mutate(ctx context.Context, kind domain.ChangeKind, target string, fn func(g *graph.Graph) error) error {
	e.mu.Lock()
	ev, err := e.mutateLocked(kind, target, fn)
	e.mu.Unlock()
	if err != nil {
		return e.reject(ctx, kind, err)
	}
	e.emit(ctx, ev)
	return nil
}

func (e *Engine) mutateLocked(kind domain.ChangeKind, target string, fn func(g *graph.Graph) error) (*domain.ChangeEvent, error) {
	if err := fn(e.graph); err != nil {
		e.restoreLocked()
		return nil, err
	}
	d, err := e.history.RecordChange(e.graph.ToDocument())
	if err != nil {
		e.restoreLocked()
		return nil, err
	}
	return e.eventLocked(kind, target, d), nil
}

func (e *Engine) restoreLocked() {
	doc, err := e.history.Current()
	if err == nil {
		var g *graph.Graph
		if g, err = graph.FromDocument(doc, e.graphOpts...); err == nil {
			e.graph = g
			return
		}
	}
	e.logger.Error("failed to restore graph from history", "err", err)
}

// touchLocked marks a local change of vertexID, superseding in-flight remote results.
func (e *Engine) touchLocked(vertexID string) {
	e.seq++
	e.generations[vertexID] = e.seq
}

// eventLocked counts a committed diff and builds its event; nil d yields nil.
func (e *Engine) eventLocked(kind domain.ChangeKind, target string, d *diff.Diff) *domain.ChangeEvent {
	e.metrics.ObserveHistory(e.history.UndoDepth(), e.history.RedoDepth())
	if d == nil {
		return nil
	}
	e.commits++
	raw, err := json.Marshal(d)
	if err != nil {
		e.logger.Error("failed to encode diff", "kind", kind, "err", err)
	}
	return &domain.ChangeEvent{
		Timestamp: time.Now(),
		Kind:      kind,
		Target:    target,
		Diff:      raw,
		Saved:     e.history.AreAllChangesSaved(),
	}
}

// emit delivers ev to hooks, metrics and subscribers. It must not hold e.mu.
func (e *Engine) emit(ctx context.Context, ev *domain.ChangeEvent) {
	if ev == nil {
		return
	}
	e.logger.DebugContext(ctx, "change committed", "kind", ev.Kind, "target", ev.Target, "saved", ev.Saved)
	e.metrics.ObserveChange(ev)
	if e.hooks.OnChange != nil {
		e.hooks.OnChange(ctx, ev)
	}

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- *ev:
		default:
			e.logger.Warn("dropping change event for slow subscriber", "kind", ev.Kind)
		}
	}
}

func (e *Engine) reject(ctx context.Context, kind domain.ChangeKind, err error) error {
	e.logger.InfoContext(ctx, "change rejected", "kind", kind, "err", err)
	e.metrics.ObserveRejection(kind)
	if e.hooks.OnRejected != nil {
		e.hooks.OnRejected(ctx, kind, err)
	}
	return err
}
