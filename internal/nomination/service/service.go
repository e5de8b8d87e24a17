// Package service orchestrates the nomination wizard and owns the submission
// commit: exactly one server record per local draft, no matter how often the
// commit is retried.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"ovation/internal/nomination/metrics"
	"ovation/internal/nomination/models"
	"ovation/internal/nomination/store"
	"ovation/internal/notify"
	"ovation/internal/wizard"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/sentinel"
	"ovation/pkg/requestcontext"
)

// Dispatcher enqueues a notification without blocking; false means the
// message was dropped and the caller reports degraded success.
type Dispatcher interface {
	Dispatch(msg notify.Message) bool
}

// Service coordinates the draft store (wizard progress) and the record store
// (committed, authoritative nominations).
type Service struct {
	drafts   store.Store
	records  store.Store
	dispatch Dispatcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(drafts, records store.Store, dispatch Dispatcher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		drafts:   drafts,
		records:  records,
		dispatch: dispatch,
		logger:   logger,
		metrics:  m,
	}
}

// Result carries the draft plus commit-time side-channel state.
type Result struct {
	Nomination models.Nomination
	// NotificationQueued is meaningful only once the nomination is
	// submitted: false signals "submitted, but confirmation email may be
	// delayed".
	NotificationQueued bool
}

// Create starts an empty draft owned by the session in ctx.
func (s *Service) Create(ctx context.Context) (models.Nomination, error) {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsZero() {
		return models.Nomination{}, dErrors.New(dErrors.CodeForbidden, "wizard session required")
	}
	nomination := models.New(sessionID, requestcontext.Now(ctx))
	if err := s.drafts.Save(ctx, nomination); err != nil {
		return models.Nomination{}, storeError(err, "save nomination draft")
	}
	s.metrics.Created.Inc()
	return nomination, nil
}

// Get loads a draft, enforcing session ownership.
func (s *Service) Get(ctx context.Context, nominationID id.NominationID) (models.Nomination, error) {
	return s.load(ctx, nominationID)
}

// Advance validates the payload for the draft's current section, merges it,
// and persists. Advancing past section E commits the nomination first; the
// wizard only moves when the commit succeeds.
func (s *Service) Advance(ctx context.Context, nominationID id.NominationID, data json.RawMessage) (Result, error) {
	nomination, err := s.load(ctx, nominationID)
	if err != nil {
		return Result{}, err
	}

	queued := true
	machine, err := wizard.Resume(s.wizardConfig(&queued), nomination)
	if err != nil {
		return Result{}, err
	}
	if err := machine.Advance(ctx, data); err != nil {
		return Result{}, err
	}
	return Result{Nomination: machine.Draft(), NotificationQueued: queued}, nil
}

// Retreat moves the draft back one section without touching merged data.
func (s *Service) Retreat(ctx context.Context, nominationID id.NominationID) (models.Nomination, error) {
	nomination, err := s.load(ctx, nominationID)
	if err != nil {
		return models.Nomination{}, err
	}
	queued := true
	machine, err := wizard.Resume(s.wizardConfig(&queued), nomination)
	if err != nil {
		return models.Nomination{}, err
	}
	if err := machine.Retreat(ctx); err != nil {
		return models.Nomination{}, err
	}
	return machine.Draft(), nil
}

// Clear removes a terminal draft so the session can start fresh. Non-terminal
// drafts are protected: Clear never fires as a side effect of rendering.
func (s *Service) Clear(ctx context.Context, nominationID id.NominationID) error {
	nomination, err := s.load(ctx, nominationID)
	if err != nil {
		return err
	}
	if !nomination.Finalized() {
		return dErrors.New(dErrors.CodeInvalidState, "only submitted nominations can be cleared")
	}
	if err := s.drafts.Clear(ctx, nominationID); err != nil {
		return storeError(err, "clear nomination draft")
	}
	return nil
}

func (s *Service) wizardConfig(notificationQueued *bool) wizard.Config[models.Nomination] {
	steps := make([]wizard.Step[models.Nomination], 0, len(models.SectionOrder))
	for _, key := range models.SectionOrder {
		steps = append(steps, wizard.Step[models.Nomination]{
			Key:   string(key),
			Apply: applySection(key),
		})
	}
	return wizard.Config[models.Nomination]{
		Steps:     steps,
		Save:      s.saveDraft,
		Finalized: models.Nomination.Finalized,
		Position:  func(n models.Nomination) string { return string(n.Step) },
		SetPosition: func(n models.Nomination, key string) models.Nomination {
			n.Step = models.SectionKey(key)
			return n
		},
		Commit:   s.commit(notificationQueued),
		CommitAt: string(models.SectionE),
	}
}

func applySection(key models.SectionKey) func(context.Context, models.Nomination, json.RawMessage) (models.Nomination, error) {
	return func(_ context.Context, nomination models.Nomination, data json.RawMessage) (models.Nomination, error) {
		sections, err := nomination.Sections.ApplySection(key, data)
		if err != nil {
			return nomination, err
		}
		nomination.Sections = sections
		return nomination, nil
	}
}

// saveDraft reconciles status and stamps a strictly increasing updated_at
// before every write.
func (s *Service) saveDraft(ctx context.Context, nomination models.Nomination) (models.Nomination, error) {
	nomination = nomination.ReconcileStatus()
	nomination.UpdatedAt = bump(requestcontext.Now(ctx), nomination.UpdatedAt)
	if err := s.drafts.Save(ctx, nomination); err != nil {
		return nomination, storeError(err, "save nomination draft")
	}
	return nomination, nil
}

// commit turns the completed draft into a server-authoritative submitted
// record. The draft's own id doubles as the server record id, so a retried
// commit updates the same row instead of inserting a second one.
func (s *Service) commit(notificationQueued *bool) func(context.Context, models.Nomination) (models.Nomination, error) {
	return func(ctx context.Context, nomination models.Nomination) (models.Nomination, error) {
		start := time.Now()
		if !nomination.Complete() {
			return nomination, dErrors.New(dErrors.CodeValidation, "all sections must be filled in before submitting")
		}

		now := requestcontext.Now(ctx)
		submitted, err := nomination.TransitionTo(models.StatusSubmitted, now)
		if err != nil {
			return nomination, err
		}

		// The draft only learns its RecordID when its own save succeeds, so a
		// retry after a failed draft save carries none; the record store says
		// whether the first pass already committed.
		creating := submitted.RecordID == ""
		if creating {
			if _, err := s.records.Load(ctx, submitted.ID); err == nil {
				creating = false
			} else if !errors.Is(err, sentinel.ErrNotFound) {
				return nomination, storeError(err, "check nomination record")
			}
		}
		submitted.RecordID = submitted.ID.String()
		if err := s.records.Save(ctx, submitted); err != nil {
			return nomination, storeError(err, "commit nomination")
		}
		if creating {
			s.metrics.Submitted.Inc()
		}
		s.metrics.ObserveCommit(start)

		// A retried commit (record written, draft save failed) already sent
		// the confirmation on its first pass.
		if creating {
			*notificationQueued = s.dispatch.Dispatch(notify.Message{
				Kind:           notify.KindNominationSubmitted,
				SubjectID:      submitted.ID.String(),
				RecipientEmail: submitted.Sections.Nominator.Email,
				RecipientName:  submitted.Sections.Nominator.FullName,
			})
			if !*notificationQueued {
				s.logger.WarnContext(ctx, "confirmation notification not queued",
					"nomination_id", submitted.ID.String(),
				)
			}
		}
		return submitted, nil
	}
}

func (s *Service) load(ctx context.Context, nominationID id.NominationID) (models.Nomination, error) {
	nomination, err := s.drafts.Load(ctx, nominationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Nomination{}, dErrors.New(dErrors.CodeNotFound, "nomination not found")
		}
		return models.Nomination{}, storeError(err, "load nomination")
	}
	if nomination.SessionID != requestcontext.SessionID(ctx) {
		return models.Nomination{}, dErrors.New(dErrors.CodeForbidden, "nomination belongs to a different session")
	}
	return nomination, nil
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
