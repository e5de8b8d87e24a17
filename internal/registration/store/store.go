// Package store persists registration drafts and records. Writes are
// whole-record: when two sessions race on one draft id the last successful
// Save wins. The paid transition is the exception and goes through the
// conditional RecordStore.MarkPaidIfPending guard.
package store

import (
	"context"
	"time"

	"ovation/internal/registration/models"
	id "ovation/pkg/domain"
)

type Store interface {
	// Load returns sentinel.ErrNotFound when the id is unknown.
	Load(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error)
	// Save writes the whole record; wraps sentinel.ErrUnavailable when the
	// backend is unreachable so callers can retry.
	Save(ctx context.Context, registration models.Registration) error
	// Clear removes the draft; used only after a terminal state.
	Clear(ctx context.Context, registrationID id.RegistrationID) error
}

// RecordStore is the authoritative side the payment reconciler works
// against. The paid and cancelled transitions are conditional updates so a
// webhook racing a return-page verification (or a user cancelling mid-verify)
// cannot double-apply or walk a record backwards.
type RecordStore interface {
	Store
	// MarkPaidIfPending flips the registration to paid only when it is still
	// pending_payment, returning whether this call won the flip.
	MarkPaidIfPending(ctx context.Context, registrationID id.RegistrationID, now time.Time) (bool, error)
	// CancelIfNotPaid flips the registration to cancelled only while no
	// verified payment has settled it. A false return means the record is
	// already terminal and must not be overwritten.
	CancelIfNotPaid(ctx context.Context, registrationID id.RegistrationID, now time.Time) (bool, error)
}
