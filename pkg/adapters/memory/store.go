package memory

import (
	"context"
	"sync"

	"github.com/aretw0/turnstile/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[domain.Identity]*domain.DialogStack
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[domain.Identity]*domain.DialogStack),
	}
}

// Save persists the stack in memory if the caller's version is current.
func (s *Store) Save(ctx context.Context, id domain.Identity, stack *domain.DialogStack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.data[id]; ok {
		current = existing.Version
	}
	if current != stack.Version {
		return domain.ErrConflict
	}

	// Deep copy to ensure isolation, similar to serialization
	stored := stack.Clone()
	stored.Version = current + 1
	s.data[id] = stored
	stack.Version = stored.Version
	return nil
}

// Load retrieves the stack from memory.
func (s *Store) Load(ctx context.Context, id domain.Identity) (*domain.DialogStack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stack, ok := s.data[id]
	if !ok {
		return nil, domain.ErrStackNotFound
	}

	// Copy on read so the caller can't mutate store state through the pointer
	return stack.Clone(), nil
}

// Delete removes the stack.
func (s *Store) Delete(ctx context.Context, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns identities with a stored stack.
func (s *Store) List(ctx context.Context) ([]domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.Identity, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
