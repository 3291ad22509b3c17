package history

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/diff"
)

// DefaultMaxSize is the default number of undoable steps.
const DefaultMaxSize = 100

type options struct {
	maxSize int
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*options)

// WithMaxSize bounds the undo stack. Values below 1 are ignored.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// openFile pairs the open file name with the save offset.
// known is false once the saved snapshot can no longer be reached.
type openFile struct {
	name   string
	offset int
	known  bool
}

// Manager is the versioning state of a single document.
// It is not safe for concurrent use; callers serialise access.
type Manager[T any] struct {
	codec   Codec[T]
	current diff.Map
	past    []*diff.Diff // oldest first
	future  []*diff.Diff // next redo first
	open    *openFile
	maxSize int
	logger  *slog.Logger
}

// New creates a Manager whose history starts at initial.
func New[T any](initial T, codec Codec[T], opts ...Option) (*Manager[T], error) {
	o := options{maxSize: DefaultMaxSize, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	tree, err := codec.Encode(initial)
	if err != nil {
		return nil, fmt.Errorf("history: encode initial state: %w", err)
	}
	return &Manager[T]{
		codec:   codec,
		current: tree,
		maxSize: o.maxSize,
		logger:  o.logger,
	}, nil
}

// Current returns a fresh copy of the current state.
func (m *Manager[T]) Current() (T, error) {
	return m.codec.Decode(m.current)
}

// CurrentJSON returns the canonical serialized current state.
func (m *Manager[T]) CurrentJSON() ([]byte, error) {
	return diff.ToJSON(m.current)
}

// RecordChange adopts next as the current state and stores the delta for undo.
// The redo stack is always cleared. Recording a state identical to the current
// one adds no step and returns a nil diff.
func (m *Manager[T]) RecordChange(next T) (*diff.Diff, error) {
	tree, err := m.codec.Encode(next)
	if err != nil {
		return nil, fmt.Errorf("history: encode state: %w", err)
	}
	d, err := diff.Compute(m.current, tree)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if d == nil {
		m.clearFuture()
		return nil, nil
	}

	m.past = append(m.past, d)
	if len(m.past) > m.maxSize {
		dropped := len(m.past) - m.maxSize
		m.past = append([]*diff.Diff(nil), m.past[dropped:]...)
		m.logger.Debug("history: dropped oldest steps", "count", dropped)
	}
	m.clearFuture()
	m.current = tree

	if m.open != nil && m.open.known {
		m.open.offset++
		if m.open.offset > len(m.past) {
			m.open.known = false
		}
	}
	return d, nil
}

// clearFuture drops the redo stack, and with it a saved snapshot that lived there.
func (m *Manager[T]) clearFuture() {
	if len(m.future) == 0 {
		return
	}
	m.future = nil
	if m.open != nil && m.open.offset < 0 {
		m.open.known = false
	}
}

// Undo steps back once. At the history boundary it returns the current state
// and a nil diff. The returned diff is the step that was reverted.
func (m *Manager[T]) Undo() (T, *diff.Diff, error) {
	if len(m.past) == 0 {
		state, err := m.Current()
		return state, nil, err
	}
	d := m.past[len(m.past)-1]
	prev, err := diff.Undo(m.current, d)
	if err != nil {
		m.logger.Error("history: undo against mismatched state", "err", err)
		var zero T
		return zero, nil, err
	}
	state, err := m.codec.Decode(prev)
	if err != nil {
		var zero T
		return zero, nil, fmt.Errorf("history: decode state: %w", err)
	}

	m.past = m.past[:len(m.past)-1]
	m.future = append([]*diff.Diff{d}, m.future...)
	m.current = prev
	if m.open != nil {
		m.open.offset--
	}
	return state, d, nil
}

// Redo re-applies the earliest undone step. With nothing to redo it returns the
// current state and a nil diff.
func (m *Manager[T]) Redo() (T, *diff.Diff, error) {
	if len(m.future) == 0 {
		state, err := m.Current()
		return state, nil, err
	}
	d := m.future[0]
	next, err := diff.Apply(m.current, d)
	if err != nil {
		m.logger.Error("history: redo against mismatched state", "err", err)
		var zero T
		return zero, nil, err
	}
	state, err := m.codec.Decode(next)
	if err != nil {
		var zero T
		return zero, nil, fmt.Errorf("history: decode state: %w", err)
	}

	m.future = m.future[1:]
	m.past = append(m.past, d)
	m.current = next
	if m.open != nil {
		m.open.offset++
	}
	return state, d, nil
}

// CanUndo reports whether an undo step is available.
func (m *Manager[T]) CanUndo() bool { return len(m.past) > 0 }

// CanRedo reports whether a redo step is available.
func (m *Manager[T]) CanRedo() bool { return len(m.future) > 0 }

// UndoDepth returns the number of undoable steps.
func (m *Manager[T]) UndoDepth() int { return len(m.past) }

// RedoDepth returns the number of redoable steps.
func (m *Manager[T]) RedoDepth() int { return len(m.future) }

// OnFileOpen records state as a new step and marks it as the saved snapshot of name.
func (m *Manager[T]) OnFileOpen(name string, state T) (*diff.Diff, error) {
	d, err := m.RecordChange(state)
	if err != nil {
		return nil, err
	}
	m.open = &openFile{name: name, known: true}
	return d, nil
}

// OnFileSave marks the current state as the saved snapshot of name.
func (m *Manager[T]) OnFileSave(name string) {
	m.open = &openFile{name: name, known: true}
}

// OnFileSaveOutdated records that name was written from an earlier state.
// The file becomes the open file with an unknown save offset.
func (m *Manager[T]) OnFileSaveOutdated(name string) {
	m.open = &openFile{name: name}
}

// OnFileDelete forgets the open file if it is name.
func (m *Manager[T]) OnFileDelete(name string) {
	if m.open != nil && m.open.name == name {
		m.open = nil
	}
}

// OpenFile returns the name of the open file, if any.
func (m *Manager[T]) OpenFile() (string, bool) {
	if m.open == nil {
		return "", false
	}
	return m.open.name, true
}

// SaveOffset returns the distance in steps from the saved snapshot.
// ok is false when no file is open or the distance is unknown.
func (m *Manager[T]) SaveOffset() (offset int, ok bool) {
	if m.open == nil || !m.open.known {
		return 0, false
	}
	return m.open.offset, true
}

// AreAllChangesSaved reports whether the current state is the saved snapshot.
func (m *Manager[T]) AreAllChangesSaved() bool {
	offset, ok := m.SaveOffset()
	return ok && offset == 0
}
