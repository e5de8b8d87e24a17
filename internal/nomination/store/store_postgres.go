package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ovation/internal/nomination/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

// Postgres holds committed nomination records; the submission committer
// upserts here so a retried commit updates rather than inserts.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Load(ctx context.Context, nominationID id.NominationID) (models.Nomination, error) {
	var (
		nomination models.Nomination
		rawID      string
		rawSession string
		status     string
		sections   []byte
	)
	row := s.pool.QueryRow(ctx,
		`SELECT id::text, session_id::text, status, sections, created_at, updated_at, submitted_at
		 FROM nominations WHERE id = $1`, nominationID.String())
	err := row.Scan(&rawID, &rawSession, &status,
		&sections, &nomination.CreatedAt, &nomination.UpdatedAt, &nomination.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Nomination{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Nomination{}, fmt.Errorf("load nomination: %w: %w", sentinel.ErrUnavailable, err)
	}
	if nomination.ID, err = id.ParseNominationID(rawID); err != nil {
		return models.Nomination{}, err
	}
	if nomination.SessionID, err = id.ParseSessionID(rawSession); err != nil {
		return models.Nomination{}, err
	}
	nomination.Status = models.Status(status)
	if err := json.Unmarshal(sections, &nomination.Sections); err != nil {
		return models.Nomination{}, fmt.Errorf("decode sections for %s: %w", nominationID, err)
	}
	nomination.RecordID = nomination.ID.String()
	return nomination, nil
}

func (s *Postgres) Save(ctx context.Context, nomination models.Nomination) error {
	sections, err := json.Marshal(nomination.Sections)
	if err != nil {
		return fmt.Errorf("encode sections for %s: %w", nomination.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO nominations (id, session_id, status, sections, created_at, updated_at, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   sections = EXCLUDED.sections,
		   updated_at = EXCLUDED.updated_at,
		   submitted_at = EXCLUDED.submitted_at`,
		nomination.ID.String(), nomination.SessionID.String(), nomination.Status,
		sections, nomination.CreatedAt, nomination.UpdatedAt, nomination.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save nomination: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Postgres) Clear(ctx context.Context, nominationID id.NominationID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM nominations WHERE id = $1`, nominationID.String())
	if err != nil {
		return fmt.Errorf("clear nomination: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
