package service

import (
	"context"
	"errors"

	"ovation/internal/payment/gateway"
	"ovation/internal/payment/models"
	regmodels "ovation/internal/registration/models"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/sentinel"
	"ovation/pkg/requestcontext"
)

// Initiation is what the payer needs next: a checkout URL for the gateway
// method, transfer instructions for the manual one.
type Initiation struct {
	Attempt          models.Attempt `json:"attempt"`
	AuthorizationURL string         `json:"authorization_url,omitempty"`
	Instructions     string         `json:"instructions,omitempty"`
}

const manualInstructions = "Transfer the exact amount to the account on your invoice and quote the payment reference. " +
	"Your registration is confirmed once the transfer is verified."

// Initiate opens a payment attempt against a committed registration. The
// attempt snapshots the amount owed before the gateway is contacted, so the
// gateway call can fail (and be retried) without losing the record of what
// was asked for.
func (s *Service) Initiate(ctx context.Context, registrationID id.RegistrationID, method models.Method) (Initiation, error) {
	if !method.Valid() {
		return Initiation{}, dErrors.NewValidation("unknown payment method", map[string]string{
			"method": "must be gateway or manual",
		})
	}

	registration, err := s.loadRegistration(ctx, registrationID)
	if err != nil {
		return Initiation{}, err
	}
	if registration.Status != regmodels.StatusPendingPayment {
		return Initiation{}, dErrors.New(dErrors.CodeInvalidState,
			"registration is "+string(registration.Status)+", not awaiting payment")
	}
	if registration.TotalAmount <= 0 {
		return Initiation{}, dErrors.New(dErrors.CodeInvalidState, "registration has no payable amount")
	}

	now := requestcontext.Now(ctx)
	attempt := models.New(registrationID, method, registration.TotalAmount, registration.Currency, now)
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Initiation{}, dErrors.New(dErrors.CodeInvalidState, "a payment attempt is already in flight")
		}
		return Initiation{}, storeError(err, "create payment attempt")
	}
	s.metrics.Initiated.Inc()

	if method == models.MethodManual {
		return s.initiateManual(ctx, registration, attempt)
	}
	return s.initiateGateway(ctx, registration, attempt)
}

func (s *Service) initiateGateway(ctx context.Context, registration regmodels.Registration, attempt models.Attempt) (Initiation, error) {
	handle, err := s.gw.Initialize(ctx, gateway.InitializeRequest{
		Reference:   attempt.Reference,
		Amount:      attempt.Amount,
		Currency:    attempt.Currency,
		Email:       registration.Options.PayerEmail,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		// Close the attempt so the registration is free for a retry.
		if _, _, failErr := s.attempts.Transition(ctx, attempt.Reference, models.StatusFailed, false, requestcontext.Now(ctx)); failErr != nil {
			s.logger.ErrorContext(ctx, "close attempt after gateway failure",
				"reference", attempt.Reference,
				"error", failErr.Error(),
			)
		}
		s.metrics.Failed.Inc()
		return Initiation{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "payment gateway initialization failed")
	}
	return Initiation{Attempt: attempt, AuthorizationURL: handle.AuthorizationURL}, nil
}

// initiateManual parks the registration in awaiting_verification; an operator
// verifies the transfer and reconciles the attempt out of band.
func (s *Service) initiateManual(ctx context.Context, registration regmodels.Registration, attempt models.Attempt) (Initiation, error) {
	registration.Status = regmodels.StatusAwaitingVerification
	registration.UpdatedAt = requestcontext.Now(ctx)
	if err := s.registrations.Save(ctx, registration); err != nil {
		return Initiation{}, storeError(err, "park registration for manual verification")
	}
	return Initiation{Attempt: attempt, Instructions: manualInstructions}, nil
}

func (s *Service) loadRegistration(ctx context.Context, registrationID id.RegistrationID) (regmodels.Registration, error) {
	registration, err := s.registrations.Load(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return regmodels.Registration{}, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return regmodels.Registration{}, storeError(err, "load registration")
	}
	if registration.SessionID != requestcontext.SessionID(ctx) {
		return regmodels.Registration{}, dErrors.New(dErrors.CodeForbidden, "registration belongs to a different session")
	}
	return registration, nil
}
