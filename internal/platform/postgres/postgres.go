// Package postgres owns the pgx pool and the schema the record stores rely
// on. Records (committed nominations, registrations, payment attempts) are
// authoritative here; wizard drafts live in Redis.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is applied idempotently at startup and by the integration test
// harness.
const Schema = `
CREATE TABLE IF NOT EXISTS nominations (
    id         UUID PRIMARY KEY,
    session_id UUID        NOT NULL,
    status     TEXT        NOT NULL,
    sections   JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    submitted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS registrations (
    id                 UUID PRIMARY KEY,
    session_id         UUID        NOT NULL,
    participation_type TEXT        NOT NULL,
    options            JSONB       NOT NULL,
    total_amount       BIGINT      NOT NULL,
    currency           TEXT        NOT NULL,
    status             TEXT        NOT NULL,
    step               TEXT        NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_attempts (
    id              UUID PRIMARY KEY,
    registration_id UUID        NOT NULL REFERENCES registrations (id),
    method          TEXT        NOT NULL,
    reference       TEXT        NOT NULL UNIQUE,
    amount          BIGINT      NOT NULL,
    currency        TEXT        NOT NULL,
    status          TEXT        NOT NULL,
    amount_mismatch BOOLEAN     NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL,
    verified_at     TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS payment_attempts_one_in_flight
    ON payment_attempts (registration_id)
    WHERE status = 'initiated';
`

// Connect opens a pool, verifies connectivity and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return pool, nil
}
