package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ovation/internal/registration/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

// Postgres holds committed registration records and owns the conditional
// paid transition.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Load(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error) {
	var (
		registration models.Registration
		rawID        string
		rawSession   string
		typ          string
		options      []byte
		status       string
		step         string
	)
	row := s.pool.QueryRow(ctx,
		`SELECT id::text, session_id::text, participation_type, options, total_amount,
		        currency, status, step, created_at, updated_at
		 FROM registrations WHERE id = $1`, registrationID.String())
	err := row.Scan(&rawID, &rawSession, &typ, &options, &registration.TotalAmount,
		&registration.Currency, &status, &step, &registration.CreatedAt, &registration.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Registration{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Registration{}, fmt.Errorf("load registration: %w: %w", sentinel.ErrUnavailable, err)
	}
	if registration.ID, err = id.ParseRegistrationID(rawID); err != nil {
		return models.Registration{}, err
	}
	if registration.SessionID, err = id.ParseSessionID(rawSession); err != nil {
		return models.Registration{}, err
	}
	registration.Type = models.ParticipationType(typ)
	registration.Status = models.Status(status)
	registration.Step = models.StepKey(step)
	if err := json.Unmarshal(options, &registration.Options); err != nil {
		return models.Registration{}, fmt.Errorf("decode options for %s: %w", registrationID, err)
	}
	registration.RecordID = registration.ID.String()
	return registration, nil
}

func (s *Postgres) Save(ctx context.Context, registration models.Registration) error {
	options, err := json.Marshal(registration.Options)
	if err != nil {
		return fmt.Errorf("encode options for %s: %w", registration.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO registrations
		   (id, session_id, participation_type, options, total_amount, currency, status, step, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   participation_type = EXCLUDED.participation_type,
		   options = EXCLUDED.options,
		   total_amount = EXCLUDED.total_amount,
		   currency = EXCLUDED.currency,
		   status = EXCLUDED.status,
		   step = EXCLUDED.step,
		   updated_at = EXCLUDED.updated_at`,
		registration.ID.String(), registration.SessionID.String(), string(registration.Type),
		options, registration.TotalAmount, registration.Currency, string(registration.Status),
		string(registration.Step), registration.CreatedAt, registration.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save registration: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Postgres) Clear(ctx context.Context, registrationID id.RegistrationID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID.String())
	if err != nil {
		return fmt.Errorf("clear registration: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// MarkPaidIfPending relies on the database, not application state, to decide
// the race: the row only flips when it is still pending_payment.
func (s *Postgres) MarkPaidIfPending(ctx context.Context, registrationID id.RegistrationID, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE registrations
		 SET status = $2, step = $3, updated_at = $4
		 WHERE id = $1 AND status = $5`,
		registrationID.String(), string(models.StatusPaid), string(models.StepConfirmation),
		now, string(models.StatusPendingPayment))
	if err != nil {
		return false, fmt.Errorf("mark registration paid: %w: %w", sentinel.ErrUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelIfNotPaid mirrors MarkPaidIfPending: the row decides the race, and a
// record a verification already settled stays settled.
func (s *Postgres) CancelIfNotPaid(ctx context.Context, registrationID id.RegistrationID, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE registrations
		 SET status = $2, updated_at = $3
		 WHERE id = $1 AND status IN ($4, $5)`,
		registrationID.String(), string(models.StatusCancelled), now,
		string(models.StatusPendingPayment), string(models.StatusAwaitingVerification))
	if err != nil {
		return false, fmt.Errorf("cancel registration record: %w: %w", sentinel.ErrUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}
