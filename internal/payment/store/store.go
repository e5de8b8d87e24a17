// Package store persists payment attempts. Two uniqueness rules are enforced
// at the storage layer so racing initiations cannot both win: a reference is
// globally unique, and a registration has at most one initiated attempt at a
// time.
package store

import (
	"context"
	"time"

	"ovation/internal/payment/models"
	id "ovation/pkg/domain"
)

type Store interface {
	// Create inserts an initiated attempt. Returns sentinel.ErrConflict when
	// the registration already has an in-flight attempt or the reference is
	// taken.
	Create(ctx context.Context, attempt models.Attempt) error

	// FindByReference returns sentinel.ErrNotFound for an unknown reference.
	FindByReference(ctx context.Context, reference string) (models.Attempt, error)

	// FindByRegistration lists attempts newest first.
	FindByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]models.Attempt, error)

	// Transition applies initiated -> to as a conditional update and returns
	// the stored attempt. applied is false when the attempt was already
	// terminal; the returned attempt then carries the recorded outcome, which
	// is what a duplicate verification should report.
	Transition(ctx context.Context, reference string, to models.Status, mismatch bool, now time.Time) (attempt models.Attempt, applied bool, err error)
}
