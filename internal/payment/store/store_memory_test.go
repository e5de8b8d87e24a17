package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ovation/internal/payment/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	attempt := models.New(id.NewRegistrationID(), models.MethodGateway, 200, "USD", s.now)
	s.Require().NoError(s.store.Create(s.ctx, attempt))

	found, err := s.store.FindByReference(s.ctx, attempt.Reference)
	s.Require().NoError(err)
	s.Equal(attempt, found)

	attempts, err := s.store.FindByRegistration(s.ctx, attempt.RegistrationID)
	s.Require().NoError(err)
	s.Len(attempts, 1)
}

func (s *InMemoryStoreSuite) TestFindUnknownReference() {
	_, err := s.store.FindByReference(s.ctx, "ov-unknown")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// One in-flight attempt per registration: a second initiation while the first
// is still open is a conflict.
func (s *InMemoryStoreSuite) TestOneInFlightPerRegistration() {
	registrationID := id.NewRegistrationID()
	first := models.New(registrationID, models.MethodGateway, 200, "USD", s.now)
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := models.New(registrationID, models.MethodGateway, 200, "USD", s.now)
	s.Require().ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)

	// Once the first settles, a new attempt may open.
	_, applied, err := s.store.Transition(s.ctx, first.Reference, models.StatusFailed, false, s.now)
	s.Require().NoError(err)
	s.True(applied)
	s.Require().NoError(s.store.Create(s.ctx, second))
}

func (s *InMemoryStoreSuite) TestDuplicateReferenceConflicts() {
	attempt := models.New(id.NewRegistrationID(), models.MethodGateway, 200, "USD", s.now)
	s.Require().NoError(s.store.Create(s.ctx, attempt))

	dup := models.New(id.NewRegistrationID(), models.MethodGateway, 500, "USD", s.now)
	dup.Reference = attempt.Reference
	s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
}

// Terminal attempts never change: the second transition reports the recorded
// outcome instead of applying a new one.
func (s *InMemoryStoreSuite) TestTransitionIsTerminal() {
	attempt := models.New(id.NewRegistrationID(), models.MethodGateway, 200, "USD", s.now)
	s.Require().NoError(s.store.Create(s.ctx, attempt))

	verified, applied, err := s.store.Transition(s.ctx, attempt.Reference, models.StatusVerified, false, s.now)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(models.StatusVerified, verified.Status)
	s.Require().NotNil(verified.VerifiedAt)

	again, applied, err := s.store.Transition(s.ctx, attempt.Reference, models.StatusFailed, true, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.False(applied)
	s.Equal(models.StatusVerified, again.Status, "recorded outcome wins over the late transition")
	s.False(again.AmountMismatch)
}

func (s *InMemoryStoreSuite) TestTransitionUnknownReference() {
	_, _, err := s.store.Transition(s.ctx, "ov-unknown", models.StatusVerified, false, s.now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
