// Package service implements the two halves of the payment flow: initiation
// (snapshot the amount, open an attempt, hand the payer to the gateway) and
// reconciliation (verify the outcome server-side and flip the registration to
// paid exactly once).
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ovation/internal/notify"
	"ovation/internal/payment/gateway"
	"ovation/internal/payment/metrics"
	"ovation/internal/payment/models"
	"ovation/internal/payment/store"
	regstore "ovation/internal/registration/store"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/sentinel"
)

// Dispatcher enqueues a notification without blocking; false means the
// message was dropped and the caller reports degraded success.
type Dispatcher interface {
	Dispatch(msg notify.Message) bool
}

// Service coordinates attempts, the registration record store and the
// gateway. Attempt references are unguessable capabilities: whoever holds one
// may reconcile it, which is what lets the webhook and the return page share
// one code path.
type Service struct {
	attempts      store.Store
	registrations regstore.RecordStore
	gw            gateway.Gateway
	dispatch      Dispatcher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	callbackURL   string
}

func New(attempts store.Store, registrations regstore.RecordStore, gw gateway.Gateway,
	dispatch Dispatcher, callbackURL string, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		attempts:      attempts,
		registrations: registrations,
		gw:            gw,
		dispatch:      dispatch,
		logger:        logger,
		metrics:       m,
		tracer:        otel.Tracer("ovation/payment"),
		callbackURL:   callbackURL,
	}
}

// Attempts lists a registration's payment attempts, newest first, so the
// payer can follow up on a charge that never came back from the gateway. Only
// the owning session may list them.
func (s *Service) Attempts(ctx context.Context, registrationID id.RegistrationID) ([]models.Attempt, error) {
	if _, err := s.loadRegistration(ctx, registrationID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.FindByRegistration(ctx, registrationID)
	if err != nil {
		return nil, storeError(err, "list payment attempts")
	}
	return attempts, nil
}

// Status returns the stored attempt for a reference without touching the
// gateway.
func (s *Service) Status(ctx context.Context, reference string) (models.Attempt, error) {
	attempt, err := s.attempts.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Attempt{}, dErrors.New(dErrors.CodeUnknownReference, "no payment attempt for this reference")
		}
		return models.Attempt{}, storeError(err, "load payment attempt")
	}
	return attempt, nil
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
