package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ovation/internal/nomination/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) TestSaveAndLoad() {
	nomination := models.New(id.NewSessionID(), time.Now())
	s.Require().NoError(s.store.Save(s.ctx, nomination))

	loaded, err := s.store.Load(s.ctx, nomination.ID)
	s.Require().NoError(err)
	s.Equal(nomination.ID, loaded.ID)
	s.Equal(models.StatusIncomplete, loaded.Status)
}

func (s *MemoryStoreSuite) TestLoadUnknownReturnsNotFound() {
	_, err := s.store.Load(s.ctx, id.NewNominationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestLastWriteWins() {
	nomination := models.New(id.NewSessionID(), time.Now())
	s.Require().NoError(s.store.Save(s.ctx, nomination))

	first := nomination
	first.Sections.Nominee = &models.NomineeDetails{FullName: "First", Email: "f@example.com", Category: "arts"}
	second := nomination
	second.Sections.Nominee = &models.NomineeDetails{FullName: "Second", Email: "s@example.com", Category: "arts"}

	s.Require().NoError(s.store.Save(s.ctx, first))
	s.Require().NoError(s.store.Save(s.ctx, second))

	loaded, err := s.store.Load(s.ctx, nomination.ID)
	s.Require().NoError(err)
	s.Equal("Second", loaded.Sections.Nominee.FullName)
}

func (s *MemoryStoreSuite) TestClearRemovesDraft() {
	nomination := models.New(id.NewSessionID(), time.Now())
	s.Require().NoError(s.store.Save(s.ctx, nomination))
	s.Require().NoError(s.store.Clear(s.ctx, nomination.ID))

	_, err := s.store.Load(s.ctx, nomination.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
