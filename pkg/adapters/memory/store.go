package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/flowfsm/pkg/domain"
)

// Store implements ports.ContextStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Context
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Context),
	}
}

// Put registers the context under its id.
func (s *Store) Put(ctx context.Context, c *domain.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[c.ID()]; ok {
		return domain.ErrContextExists
	}
	s.data[c.ID()] = c
	return nil
}

// Get retrieves a live context.
func (s *Store) Get(ctx context.Context, id string) (*domain.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[id]
	if !ok {
		return nil, domain.ErrContextNotFound
	}
	return c, nil
}

// Delete removes the context.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
