// Package service orchestrates the registration wizard. The review step is
// the commit point: the draft becomes an authoritative pending_payment record
// the payment module can initiate against. The payment and confirmation steps
// are display-only and move through the payment flow, never through Advance.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"ovation/internal/registration/metrics"
	"ovation/internal/registration/models"
	"ovation/internal/registration/pricing"
	"ovation/internal/registration/store"
	"ovation/internal/wizard"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/sentinel"
	"ovation/pkg/requestcontext"
)

// Service coordinates the draft store (wizard progress) and the record store
// (committed registrations payments reconcile against).
type Service struct {
	drafts  store.Store
	records store.RecordStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(drafts store.Store, records store.RecordStore, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		drafts:  drafts,
		records: records,
		logger:  logger,
		metrics: m,
	}
}

// Create starts an empty draft owned by the session in ctx.
func (s *Service) Create(ctx context.Context, currency string) (models.Registration, error) {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsZero() {
		return models.Registration{}, dErrors.New(dErrors.CodeForbidden, "wizard session required")
	}
	registration := models.New(sessionID, currency, requestcontext.Now(ctx))
	if err := s.drafts.Save(ctx, registration); err != nil {
		return models.Registration{}, storeError(err, "save registration draft")
	}
	s.metrics.Created.Inc()
	return registration, nil
}

// Get loads a draft, enforcing session ownership.
func (s *Service) Get(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error) {
	return s.load(ctx, registrationID)
}

// Advance merges the payload for the draft's current step and persists.
// Advancing past review commits the registration first; the wizard only moves
// when the commit succeeds. The payment and confirmation steps reject Advance.
func (s *Service) Advance(ctx context.Context, registrationID id.RegistrationID, data json.RawMessage) (models.Registration, error) {
	registration, err := s.load(ctx, registrationID)
	if err != nil {
		return models.Registration{}, err
	}
	machine, err := wizard.Resume(s.wizardConfig(), registration)
	if err != nil {
		return models.Registration{}, err
	}
	if err := machine.Advance(ctx, data); err != nil {
		return models.Registration{}, err
	}
	return machine.Draft(), nil
}

// Retreat moves the draft back one step without touching merged data.
func (s *Service) Retreat(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error) {
	registration, err := s.load(ctx, registrationID)
	if err != nil {
		return models.Registration{}, err
	}
	machine, err := wizard.Resume(s.wizardConfig(), registration)
	if err != nil {
		return models.Registration{}, err
	}
	if err := machine.Retreat(ctx); err != nil {
		return models.Registration{}, err
	}
	return machine.Draft(), nil
}

// Cancel moves a not-yet-paid registration to cancelled. The committed record
// flips first, through the same conditional-update discipline as the paid
// transition, so a verification racing the cancel keeps the record paid and
// the cancel fails instead of overwriting it.
func (s *Service) Cancel(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error) {
	registration, err := s.load(ctx, registrationID)
	if err != nil {
		return models.Registration{}, err
	}
	now := requestcontext.Now(ctx)
	cancelled, err := registration.Cancel(now)
	if err != nil {
		return models.Registration{}, err
	}
	cancelled.UpdatedAt = bump(now, registration.UpdatedAt)
	if cancelled.RecordID != "" {
		applied, err := s.records.CancelIfNotPaid(ctx, registrationID, cancelled.UpdatedAt)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return models.Registration{}, storeError(err, "cancel registration record")
		}
		if err == nil && !applied {
			return models.Registration{}, dErrors.New(dErrors.CodeInvalidState,
				"registration is already paid")
		}
	}
	if err := s.drafts.Save(ctx, cancelled); err != nil {
		return models.Registration{}, storeError(err, "save registration draft")
	}
	s.metrics.Cancelled.Inc()
	return cancelled, nil
}

// Clear removes a terminal draft so the session can start fresh.
func (s *Service) Clear(ctx context.Context, registrationID id.RegistrationID) error {
	registration, err := s.load(ctx, registrationID)
	if err != nil {
		return err
	}
	if !registration.Finalized() {
		return dErrors.New(dErrors.CodeInvalidState, "only paid or cancelled registrations can be cleared")
	}
	if err := s.drafts.Clear(ctx, registrationID); err != nil {
		return storeError(err, "clear registration draft")
	}
	return nil
}

func (s *Service) wizardConfig() wizard.Config[models.Registration] {
	return wizard.Config[models.Registration]{
		Steps: []wizard.Step[models.Registration]{
			{Key: string(models.StepType), Apply: applyType},
			{Key: string(models.StepOptions), Apply: applyOptions},
			{Key: string(models.StepReview), Apply: applyReview},
			// Payment and confirmation advance through the payment flow.
			{Key: string(models.StepPayment)},
			{Key: string(models.StepConfirmation)},
		},
		Save:      s.saveDraft,
		Finalized: models.Registration.Finalized,
		Position:  func(r models.Registration) string { return string(r.Step) },
		SetPosition: func(r models.Registration, key string) models.Registration {
			r.Step = models.StepKey(key)
			return r
		},
		Commit:   s.commit,
		CommitAt: string(models.StepReview),
	}
}

func applyType(_ context.Context, registration models.Registration, data json.RawMessage) (models.Registration, error) {
	applied, err := registration.ApplyType(data)
	if err != nil {
		return registration, err
	}
	// Individual is priced by the type alone; the other types get their
	// amount once options are chosen.
	if applied.Type == models.TypeIndividual {
		return reprice(applied)
	}
	return applied, nil
}

func applyOptions(_ context.Context, registration models.Registration, data json.RawMessage) (models.Registration, error) {
	applied, err := registration.ApplyOptions(data)
	if err != nil {
		return registration, err
	}
	return reprice(applied)
}

func applyReview(_ context.Context, registration models.Registration, data json.RawMessage) (models.Registration, error) {
	return registration.ApplyReview(data)
}

// reprice is the only writer of TotalAmount: the amount always comes from the
// price table, never from the client.
func reprice(registration models.Registration) (models.Registration, error) {
	total, err := pricing.Total(registration.Type, registration.Options)
	if err != nil {
		return registration, err
	}
	registration.TotalAmount = total
	return registration, nil
}

func (s *Service) saveDraft(ctx context.Context, registration models.Registration) (models.Registration, error) {
	registration.UpdatedAt = bump(requestcontext.Now(ctx), registration.UpdatedAt)
	if err := s.drafts.Save(ctx, registration); err != nil {
		return registration, storeError(err, "save registration draft")
	}
	return registration, nil
}

// commit snapshots the priced draft as the authoritative record the payment
// module initiates against. The draft id doubles as the record id, so a
// retried commit updates the same row instead of inserting a second one.
func (s *Service) commit(ctx context.Context, registration models.Registration) (models.Registration, error) {
	start := time.Now()
	repriced, err := reprice(registration)
	if err != nil {
		return registration, err
	}
	if repriced.TotalAmount <= 0 {
		return registration, dErrors.New(dErrors.CodeValidation, "registration has no payable amount")
	}

	creating := repriced.RecordID == ""
	repriced.RecordID = repriced.ID.String()
	repriced.UpdatedAt = bump(requestcontext.Now(ctx), repriced.UpdatedAt)
	if err := s.records.Save(ctx, repriced); err != nil {
		return registration, storeError(err, "commit registration")
	}
	if creating {
		s.metrics.Committed.Inc()
	}
	s.metrics.ObserveCommit(start)
	return repriced, nil
}

func (s *Service) load(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error) {
	registration, err := s.drafts.Load(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Registration{}, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return models.Registration{}, storeError(err, "load registration")
	}
	if registration.SessionID != requestcontext.SessionID(ctx) {
		return models.Registration{}, dErrors.New(dErrors.CodeForbidden, "registration belongs to a different session")
	}
	if registration.RecordID != "" && !registration.Finalized() {
		return s.adoptRecordStatus(ctx, registration)
	}
	return registration, nil
}

// adoptRecordStatus folds the record's lifecycle back into the draft. The
// payment module writes paid and awaiting_verification on the record side
// only, so the draft learns about them here, on its next load.
func (s *Service) adoptRecordStatus(ctx context.Context, registration models.Registration) (models.Registration, error) {
	record, err := s.records.Load(ctx, registration.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return registration, nil
	}
	if err != nil {
		return models.Registration{}, storeError(err, "load registration record")
	}
	if record.Status == registration.Status {
		return registration, nil
	}
	registration.Status = record.Status
	if record.Status == models.StatusPaid {
		registration.Step = models.StepConfirmation
	}
	registration.UpdatedAt = bump(record.UpdatedAt, registration.UpdatedAt)
	if err := s.drafts.Save(ctx, registration); err != nil {
		return models.Registration{}, storeError(err, "save registration draft")
	}
	return registration, nil
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// bump guarantees updated_at strictly increases across saves even when the
// clock has not ticked between two mutations.
func bump(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}
