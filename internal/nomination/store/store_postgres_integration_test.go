//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ovation/internal/nomination/models"
	"ovation/internal/nomination/store"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
	"ovation/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "nominations"))
}

func (s *PostgresStoreSuite) submitted() models.Nomination {
	now := time.Now().UTC().Truncate(time.Microsecond)
	nomination := models.New(id.NewSessionID(), now)
	nomination.Sections = models.ValidSections()
	submitted, err := nomination.TransitionTo(models.StatusSubmitted, now)
	s.Require().NoError(err)
	return submitted
}

func (s *PostgresStoreSuite) TestSaveAndLoad() {
	ctx := context.Background()
	nomination := s.submitted()
	s.Require().NoError(s.store.Save(ctx, nomination))

	loaded, err := s.store.Load(ctx, nomination.ID)
	s.Require().NoError(err)
	s.Equal(nomination.ID, loaded.ID)
	s.Equal(nomination.SessionID, loaded.SessionID)
	s.Equal(models.StatusSubmitted, loaded.Status)
	s.Equal(nomination.Sections.Nominator, loaded.Sections.Nominator)
	s.Require().NotNil(loaded.SubmittedAt)
	s.Equal(nomination.ID.String(), loaded.RecordID)
}

// The committer retries by upserting: a second Save for the same id updates
// the row instead of failing or duplicating.
func (s *PostgresStoreSuite) TestSaveUpserts() {
	ctx := context.Background()
	nomination := s.submitted()
	s.Require().NoError(s.store.Save(ctx, nomination))

	nomination.UpdatedAt = nomination.UpdatedAt.Add(time.Second)
	s.Require().NoError(s.store.Save(ctx, nomination))

	loaded, err := s.store.Load(ctx, nomination.ID)
	s.Require().NoError(err)
	s.True(loaded.UpdatedAt.Equal(nomination.UpdatedAt))
}

func (s *PostgresStoreSuite) TestLoadUnknownID() {
	_, err := s.store.Load(context.Background(), id.NewNominationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestClear() {
	ctx := context.Background()
	nomination := s.submitted()
	s.Require().NoError(s.store.Save(ctx, nomination))
	s.Require().NoError(s.store.Clear(ctx, nomination.ID))

	_, err := s.store.Load(ctx, nomination.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
