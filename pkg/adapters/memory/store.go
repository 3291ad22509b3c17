package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Store implements ports.BlobStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Set saves a copy of blob.
func (s *Store) Set(ctx context.Context, name string, blob []byte) error {
	copied := slices.Clone(blob)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = copied
	return nil
}

// Get returns a copy of the blob so callers can't mutate the store through it.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.data[name]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return slices.Clone(blob), nil
}

// Delete removes the blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the saved names.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
