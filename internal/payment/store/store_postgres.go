package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ovation/internal/payment/models"
	id "ovation/pkg/domain"
	"ovation/pkg/platform/sentinel"
)

// Postgres enforces the uniqueness rules with constraints: the unique
// reference column and the partial one-in-flight index turn racing inserts
// into a conflict for the loser.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const attemptColumns = `id::text, registration_id::text, method, reference,
	amount, currency, status, amount_mismatch, created_at, verified_at`

func (s *Postgres) Create(ctx context.Context, attempt models.Attempt) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_attempts
		   (id, registration_id, method, reference, amount, currency, status, amount_mismatch, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		attempt.ID.String(), attempt.RegistrationID.String(), string(attempt.Method),
		attempt.Reference, attempt.Amount, attempt.Currency, string(attempt.Status),
		attempt.AmountMismatch, attempt.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create payment attempt: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Postgres) FindByReference(ctx context.Context, reference string) (models.Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM payment_attempts WHERE reference = $1`, reference)
	return scanAttempt(row)
}

func (s *Postgres) FindByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]models.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM payment_attempts
		 WHERE registration_id = $1 ORDER BY created_at DESC`, registrationID.String())
	if err != nil {
		return nil, fmt.Errorf("list payment attempts: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payment attempts: %w: %w", sentinel.ErrUnavailable, err)
	}
	return attempts, nil
}

func (s *Postgres) Transition(ctx context.Context, reference string, to models.Status, mismatch bool, now time.Time) (models.Attempt, bool, error) {
	var verifiedAt *time.Time
	if to == models.StatusVerified {
		verifiedAt = &now
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE payment_attempts
		 SET status = $2, amount_mismatch = $3, verified_at = $4
		 WHERE reference = $1 AND status = $5
		 RETURNING `+attemptColumns,
		reference, string(to), mismatch, verifiedAt, string(models.StatusInitiated))
	attempt, err := scanAttempt(row)
	if err == nil {
		return attempt, true, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return models.Attempt{}, false, err
	}

	// No initiated row matched: either the reference is unknown or the
	// attempt is already terminal. Re-read to tell the two apart.
	attempt, err = s.FindByReference(ctx, reference)
	if err != nil {
		return models.Attempt{}, false, err
	}
	return attempt, false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (models.Attempt, error) {
	var (
		attempt         models.Attempt
		rawID           string
		rawRegistration string
		method          string
		status          string
	)
	err := row.Scan(&rawID, &rawRegistration, &method, &attempt.Reference,
		&attempt.Amount, &attempt.Currency, &status, &attempt.AmountMismatch,
		&attempt.CreatedAt, &attempt.VerifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Attempt{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Attempt{}, fmt.Errorf("scan payment attempt: %w: %w", sentinel.ErrUnavailable, err)
	}
	if attempt.ID, err = id.ParseAttemptID(rawID); err != nil {
		return models.Attempt{}, err
	}
	if attempt.RegistrationID, err = id.ParseRegistrationID(rawRegistration); err != nil {
		return models.Attempt{}, err
	}
	attempt.Method = models.Method(method)
	attempt.Status = models.Status(status)
	return attempt, nil
}
