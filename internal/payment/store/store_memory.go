package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ovation/internal/payment/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	byRef    map[string]models.Attempt
	inFlight map[id.RegistrationID]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byRef:    make(map[string]models.Attempt),
		inFlight: make(map[id.RegistrationID]string),
	}
}

func (s *InMemory) Create(_ context.Context, attempt models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byRef[attempt.Reference]; taken {
		return sentinel.ErrConflict
	}
	if _, busy := s.inFlight[attempt.RegistrationID]; busy {
		return sentinel.ErrConflict
	}
	s.byRef[attempt.Reference] = attempt
	if attempt.Status == models.StatusInitiated {
		s.inFlight[attempt.RegistrationID] = attempt.Reference
	}
	return nil
}

func (s *InMemory) FindByReference(_ context.Context, reference string) (models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.byRef[reference]
	if !ok {
		return models.Attempt{}, sentinel.ErrNotFound
	}
	return attempt, nil
}

func (s *InMemory) FindByRegistration(_ context.Context, registrationID id.RegistrationID) ([]models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attempts []models.Attempt
	for _, attempt := range s.byRef {
		if attempt.RegistrationID == registrationID {
			attempts = append(attempts, attempt)
		}
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].CreatedAt.After(attempts[j].CreatedAt)
	})
	return attempts, nil
}

func (s *InMemory) Transition(_ context.Context, reference string, to models.Status, mismatch bool, now time.Time) (models.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.byRef[reference]
	if !ok {
		return models.Attempt{}, false, sentinel.ErrNotFound
	}
	if attempt.Status != models.StatusInitiated {
		return attempt, false, nil
	}
	attempt.Status = to
	attempt.AmountMismatch = mismatch
	if to == models.StatusVerified {
		verifiedAt := now
		attempt.VerifiedAt = &verifiedAt
	}
	s.byRef[reference] = attempt
	delete(s.inFlight, attempt.RegistrationID)
	return attempt, true, nil
}
