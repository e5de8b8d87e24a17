package store

import (
	"context"
	"sync"

	"ovation/internal/nomination/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

// InMemory is the default store when no backend is configured, and the unit
// test double for the redis/postgres implementations.
type InMemory struct {
	mu          sync.RWMutex
	nominations map[id.NominationID]models.Nomination
}

func NewInMemory() *InMemory {
	return &InMemory{nominations: make(map[id.NominationID]models.Nomination)}
}

func (s *InMemory) Load(_ context.Context, nominationID id.NominationID) (models.Nomination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nomination, ok := s.nominations[nominationID]
	if !ok {
		return models.Nomination{}, sentinel.ErrNotFound
	}
	return nomination, nil
}

func (s *InMemory) Save(_ context.Context, nomination models.Nomination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nominations[nomination.ID] = nomination
	return nil
}

func (s *InMemory) Clear(_ context.Context, nominationID id.NominationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nominations, nominationID)
	return nil
}
