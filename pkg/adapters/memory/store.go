// Package memory provides an in-process CheckpointStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

var _ ports.CheckpointStore = (*Store)(nil)

// Store keeps checkpoints in a map. Safe for concurrent use.
// Every read and write copies the checkpoint so callers never share bytes with the store.
type Store struct {
	mu   sync.RWMutex
	data map[string]*domain.Checkpoint
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Checkpoint),
	}
}

// Save replaces the checkpoint for sessionID.
func (s *Store) Save(_ context.Context, sessionID string, cp *domain.Checkpoint) error {
	if sessionID == "" {
		return domain.ErrEmptySessionID
	}
	stored := cp.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = stored
	return nil
}

// Load returns a copy of the stored checkpoint.
func (s *Store) Load(_ context.Context, sessionID string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cp.Clone(), nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored session IDs, sorted.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
