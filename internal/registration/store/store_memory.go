package store

import (
	"context"
	"sync"
	"time"

	"ovation/internal/registration/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

// InMemory backs both the draft and record roles in tests and when no
// backend is configured.
type InMemory struct {
	mu            sync.RWMutex
	registrations map[id.RegistrationID]models.Registration
}

func NewInMemory() *InMemory {
	return &InMemory{registrations: make(map[id.RegistrationID]models.Registration)}
}

func (s *InMemory) Load(_ context.Context, registrationID id.RegistrationID) (models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registration, ok := s.registrations[registrationID]
	if !ok {
		return models.Registration{}, sentinel.ErrNotFound
	}
	return registration, nil
}

func (s *InMemory) Save(_ context.Context, registration models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[registration.ID] = registration
	return nil
}

func (s *InMemory) Clear(_ context.Context, registrationID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registrations, registrationID)
	return nil
}

func (s *InMemory) MarkPaidIfPending(_ context.Context, registrationID id.RegistrationID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	registration, ok := s.registrations[registrationID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if registration.Status != models.StatusPendingPayment {
		return false, nil
	}
	registration.Status = models.StatusPaid
	registration.Step = models.StepConfirmation
	registration.UpdatedAt = now
	s.registrations[registrationID] = registration
	return true, nil
}

func (s *InMemory) CancelIfNotPaid(_ context.Context, registrationID id.RegistrationID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	registration, ok := s.registrations[registrationID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if registration.Finalized() {
		return false, nil
	}
	registration.Status = models.StatusCancelled
	registration.UpdatedAt = now
	s.registrations[registrationID] = registration
	return true, nil
}
