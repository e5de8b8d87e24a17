package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ovation/internal/notify"
	"ovation/internal/payment/gateway"
	"ovation/internal/payment/models"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/sentinel"
	"ovation/pkg/requestcontext"
)

// Reconciliation is the server-verified outcome for one reference.
type Reconciliation struct {
	Attempt models.Attempt
	// EmailQueued is meaningful only when this call won the paid flip: false
	// signals "paid, but confirmation email may be delayed".
	EmailQueued bool
}

// Reconcile resolves an attempt against the gateway's record. It is safe to
// call any number of times from any path (webhook, return page, support
// tooling): a terminal attempt returns its recorded outcome without another
// gateway round trip, and the registration flips to paid at most once.
func (s *Service) Reconcile(ctx context.Context, reference string) (Reconciliation, error) {
	start := time.Now()
	defer s.metrics.ObserveReconcile(start)

	attempt, err := s.attempts.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Reconciliation{}, dErrors.New(dErrors.CodeUnknownReference, "no payment attempt for this reference")
		}
		return Reconciliation{}, storeError(err, "load payment attempt")
	}
	if attempt.Terminal() {
		if attempt.AmountMismatch {
			return Reconciliation{}, mismatchError(attempt)
		}
		return Reconciliation{Attempt: attempt, EmailQueued: true}, nil
	}
	if attempt.Method == models.MethodManual {
		return Reconciliation{}, dErrors.New(dErrors.CodeInvalidState, "manual attempts are verified by an operator")
	}

	verification, err := s.verify(ctx, reference)
	if err != nil {
		// The attempt stays initiated; a later reconcile retries the gateway.
		return Reconciliation{}, err
	}

	now := requestcontext.Now(ctx)
	if !verification.Settled() {
		failed, _, err := s.attempts.Transition(ctx, reference, models.StatusFailed, false, now)
		if err != nil {
			return Reconciliation{}, storeError(err, "record failed attempt")
		}
		s.metrics.Failed.Inc()
		return Reconciliation{Attempt: failed, EmailQueued: true}, nil
	}
	if verification.Amount != attempt.Amount || verification.Currency != attempt.Currency {
		return s.recordMismatch(ctx, attempt, verification, now)
	}

	verified, applied, err := s.attempts.Transition(ctx, reference, models.StatusVerified, false, now)
	if err != nil {
		return Reconciliation{}, storeError(err, "record verified attempt")
	}
	if !applied {
		// A concurrent reconcile beat us to the transition; its outcome stands.
		if verified.AmountMismatch {
			return Reconciliation{}, mismatchError(verified)
		}
		return Reconciliation{Attempt: verified, EmailQueued: true}, nil
	}
	s.metrics.Verified.Inc()

	return s.settle(ctx, verified, now)
}

// verify wraps the gateway call in a span so slow or flapping providers show
// up in traces with the reference attached.
func (s *Service) verify(ctx context.Context, reference string) (*gateway.Verification, error) {
	ctx, span := s.tracer.Start(ctx, "gateway.verify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("payment.reference", reference)),
	)
	defer span.End()

	verification, err := s.gw.Verify(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.gateway_status", verification.Status))
	return verification, nil
}

// settle flips the registration to paid. Only the winner of the conditional
// flip dispatches the confirmation; the loser still reports success.
func (s *Service) settle(ctx context.Context, attempt models.Attempt, now time.Time) (Reconciliation, error) {
	flipped, err := s.registrations.MarkPaidIfPending(ctx, attempt.RegistrationID, now)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return Reconciliation{}, storeError(err, "mark registration paid")
	}
	queued := true
	if flipped {
		registration, err := s.registrations.Load(ctx, attempt.RegistrationID)
		if err != nil {
			s.logger.ErrorContext(ctx, "load registration after paid flip",
				"registration_id", attempt.RegistrationID.String(),
				"error", err.Error(),
			)
		} else {
			queued = s.dispatch.Dispatch(notify.Message{
				Kind:           notify.KindPaymentConfirmed,
				SubjectID:      attempt.RegistrationID.String(),
				RecipientEmail: registration.Options.PayerEmail,
				RecipientName:  registration.Options.PayerName,
			})
			if !queued {
				s.logger.WarnContext(ctx, "payment confirmation not queued",
					"registration_id", attempt.RegistrationID.String(),
				)
			}
		}
	}
	return Reconciliation{Attempt: attempt, EmailQueued: queued}, nil
}

func (s *Service) recordMismatch(ctx context.Context, attempt models.Attempt, verification *gateway.Verification, now time.Time) (Reconciliation, error) {
	failed, applied, err := s.attempts.Transition(ctx, attempt.Reference, models.StatusFailed, true, now)
	if err != nil {
		return Reconciliation{}, storeError(err, "record amount mismatch")
	}
	if applied {
		s.metrics.Failed.Inc()
		s.metrics.AmountMismatches.Inc()
		s.logger.ErrorContext(ctx, "settled amount disagrees with snapshot",
			"reference", attempt.Reference,
			"expected_amount", attempt.Amount,
			"expected_currency", attempt.Currency,
			"settled_amount", verification.Amount,
			"settled_currency", verification.Currency,
		)
	}
	return Reconciliation{}, mismatchError(failed)
}

func mismatchError(attempt models.Attempt) error {
	return dErrors.New(dErrors.CodeAmountMismatch,
		"settled amount does not match the attempt for reference "+attempt.Reference)
}
