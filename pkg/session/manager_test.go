package session_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore simulates latency to provoke race conditions if locking is missing.
type slowStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	inflight int
	overlap  bool
}

func (s *slowStore) enter() {
	s.mu.Lock()
	s.inflight++
	if s.inflight > 1 {
		s.overlap = true
	}
	s.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
}

func (s *slowStore) leave() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

func (s *slowStore) Set(ctx context.Context, name string, blob []byte) error {
	s.enter()
	defer s.leave()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[name] = slices.Clone(blob)
	return nil
}

func (s *slowStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.enter()
	defer s.leave()
	s.mu.Lock()
	defer s.mu.Unlock()
	if blob, ok := s.data[name]; ok {
		return slices.Clone(blob), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *slowStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

func (s *slowStore) List(ctx context.Context) ([]string, error) { return nil, nil }

func sampleDocument() domain.Document {
	doc := domain.NewDocument()
	doc.Graph.Vertices["A"] = domain.VertexRecord{X: 1, Y: 2}
	doc.Layers["A"] = domain.LayerRecord{LayerType: "Constant", ValDict: map[string]string{"value": "5", "output": "5"}}
	doc.EdgesByVertex["A"] = map[string]bool{}
	return doc
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "model", sampleDocument()))
	got, err := mgr.Load(ctx, "model")
	require.NoError(t, err)
	assert.Equal(t, sampleDocument(), got)

	names, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"model"}, names)
}

func TestManager_CanonicalEncoding(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, mgr.Save(ctx, "model", sampleDocument()))

	raw, err := mgr.Raw(ctx, "model")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"edgesByVertex": {"A": {}},
		"graph": {"edges": {}, "vertices": {"A": {"x": 1, "y": 2}}},
		"layers": {"A": {"layerType": "Constant", "valDict": {"output": "5", "value": "5"}}}
	}`, string(raw))

	again, err := session.Encode(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, raw, again, "encoding is deterministic")
}

func TestManager_Errors(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := mgr.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, mgr.Delete(ctx, "missing"), domain.ErrSessionNotFound)
	assert.ErrorIs(t, mgr.Save(ctx, "", domain.NewDocument()), domain.ErrValidation)

	require.NoError(t, mgr.Store().Set(ctx, "junk", []byte("not json")))
	_, err = mgr.Load(ctx, "junk")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestManager_OnChange(t *testing.T) {
	var got []string
	mgr := session.NewManager(memory.NewStore(), session.WithOnChange(func(ctx context.Context, name string) {
		got = append(got, name)
	}))
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "a", domain.NewDocument()))
	require.NoError(t, mgr.Delete(ctx, "a"))
	_ = mgr.Delete(ctx, "a")
	_, err := mgr.LoadOrCreate(ctx, "b")
	require.NoError(t, err)
	_, err = mgr.LoadOrCreate(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a", "b"}, got, "failed operations and plain loads do not notify")
}

func TestManager_Locking(t *testing.T) {
	store := &slowStore{}
	mgr := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, mgr.Save(ctx, "race", sampleDocument()))
		}()
	}
	wg.Wait()
	assert.False(t, store.overlap, "writes to one file must be serialized")
}

func TestManager_LoadOrCreate(t *testing.T) {
	mgr := session.NewManager(&slowStore{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.LoadOrCreate(ctx, "atomic-init")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := mgr.Load(ctx, "atomic-init")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDocument(), doc)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redis.NewFromClient(client)
	mgr := session.NewManager(store, session.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)))
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "shared", sampleDocument()))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:shared"), "lock released after save")

	// Another replica holds the lock.
	unlock, err := redis.NewLocker(client, redis.DefaultPrefix).Lock(ctx, "shared", time.Minute)
	require.NoError(t, err)
	short, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = mgr.Load(short, "shared")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NoError(t, unlock(ctx))

	doc, err := mgr.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, sampleDocument(), doc)
}
