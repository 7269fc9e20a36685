package memorystore

import (
	"context"
	"sync"

	"github.com/meterline/gatekit/paramstore"
)

// Store is an in-memory paramstore.Store for tests and local development.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Set writes a parameter value at path.
func (s *Store) Set(path, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = value
}

// Delete removes the parameter at path, if present.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, path)
}

func (s *Store) GetParameter(ctx context.Context, path string) (string, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[path]
	if !ok {
		return "", paramstore.ErrNotFound
	}
	return v, nil
}
