package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// ChangeFunc is told the name of a file after it was saved or deleted.
type ChangeFunc func(ctx context.Context, name string)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to saved files, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.BlobStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker   ports.DistributedLocker
	lockTTL  time.Duration
	onChange ChangeFunc
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithOnChange registers the notify-of-change callback.
func WithOnChange(fn ChangeFunc) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given blob store.
func NewManager(store ports.BlobStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and then call release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

func checkName(name string) error {
	if name == "" {
		return domain.NewValidationError("file name cannot be empty")
	}
	return nil
}

// Encode renders a document as canonical JSON (sorted keys).
func Encode(doc domain.Document) ([]byte, error) {
	return json.Marshal(doc)
}

// Decode parses a blob produced by Encode.
func Decode(blob []byte) (domain.Document, error) {
	doc := domain.NewDocument()
	if err := json.Unmarshal(blob, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: malformed session document: %v", domain.ErrParse, err)
	}
	if doc.EdgesByVertex == nil {
		doc.EdgesByVertex = make(map[string]map[string]bool)
	}
	if doc.Graph.Vertices == nil {
		doc.Graph.Vertices = make(map[string]domain.VertexRecord)
	}
	if doc.Graph.Edges == nil {
		doc.Graph.Edges = make(map[string]domain.EdgeRecord)
	}
	if doc.Layers == nil {
		doc.Layers = make(map[string]domain.LayerRecord)
	}
	return doc, nil
}

// Load reads and decodes a saved file.
// Returns domain.ErrSessionNotFound if the file does not exist.
func (m *Manager) Load(ctx context.Context, name string) (domain.Document, error) {
	var doc domain.Document
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		blob, err := m.store.Get(ctx, name)
		if err != nil {
			return err
		}
		doc, err = Decode(blob)
		return err
	})
	return doc, err
}

// Raw returns the stored bytes of a file.
func (m *Manager) Raw(ctx context.Context, name string) ([]byte, error) {
	var blob []byte
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		blob, err = m.store.Get(ctx, name)
		return err
	})
	return blob, err
}

// LoadOrCreate loads a file, saving an empty document under name first if it does not exist.
func (m *Manager) LoadOrCreate(ctx context.Context, name string) (domain.Document, error) {
	var doc domain.Document
	created := false
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		blob, err := m.store.Get(ctx, name)
		if err == nil {
			doc, err = Decode(blob)
			return err
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check file existence: %w", err)
		}
		doc = domain.NewDocument()
		if err := m.put(ctx, name, doc); err != nil {
			return fmt.Errorf("failed to initialize file: %w", err)
		}
		created = true
		return nil
	})
	if err == nil && created {
		m.notify(ctx, name)
	}
	return doc, err
}

// Save encodes and persists a document.
func (m *Manager) Save(ctx context.Context, name string, doc domain.Document) error {
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.put(ctx, name, doc)
	})
	if err == nil {
		m.notify(ctx, name)
	}
	return err
}

func (m *Manager) put(ctx context.Context, name string, doc domain.Document) error {
	blob, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("failed to encode file %q: %w", name, err)
	}
	return m.store.Set(ctx, name, blob)
}

// Delete removes a saved file.
// Returns domain.ErrSessionNotFound if the file does not exist.
func (m *Manager) Delete(ctx context.Context, name string) error {
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		if _, err := m.store.Get(ctx, name); err != nil {
			return err
		}
		return m.store.Delete(ctx, name)
	})
	if err == nil {
		m.notify(ctx, name)
	}
	return err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying blob store.
func (m *Manager) Store() ports.BlobStore {
	return m.store
}

func (m *Manager) notify(ctx context.Context, name string) {
	if m.onChange != nil {
		m.onChange(ctx, name)
	}
}

// WithLock executes a function while holding the lock for the file.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := checkName(name); err != nil {
		return err
	}
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
