// Package store persists nomination drafts and records. Implementations are
// whole-record writes: when two sessions race on the same draft id, the last
// successful Save wins (documented limitation, no field interleaving).
package store

import (
	"context"

	"ovation/internal/nomination/models"
	id "ovation/pkg/domain"
)

type Store interface {
	// Load returns sentinel.ErrNotFound when the id is unknown.
	Load(ctx context.Context, nominationID id.NominationID) (models.Nomination, error)
	// Save writes the whole record; wraps sentinel.ErrUnavailable when the
	// backend is unreachable so callers can retry.
	Save(ctx context.Context, nomination models.Nomination) error
	// Clear removes the draft. Used only after a terminal state to start
	// fresh; callers must never fire it on ordinary loads.
	Clear(ctx context.Context, nominationID id.NominationID) error
}
