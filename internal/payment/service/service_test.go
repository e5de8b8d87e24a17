package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ovation/internal/notify"
	"ovation/internal/payment/gateway"
	"ovation/internal/payment/gatewaymock"
	"ovation/internal/payment/metrics"
	"ovation/internal/payment/models"
	"ovation/internal/payment/store"
	regmodels "ovation/internal/registration/models"
	regstore "ovation/internal/registration/store"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/requestcontext"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	queued []notify.Message
	full   bool
}

func (f *fakeDispatcher) Dispatch(msg notify.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.queued = append(f.queued, msg)
	return true
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queued)
}

type PaymentSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	gw            *gatewaymock.MockGateway
	attempts      *store.InMemory
	registrations *regstore.InMemory
	dispatch      *fakeDispatcher
	svc           *Service
	ctx           context.Context
	sessionID     id.SessionID
}

func (s *PaymentSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gw = gatewaymock.NewMockGateway(s.ctrl)
	s.attempts = store.NewInMemory()
	s.registrations = regstore.NewInMemory()
	s.dispatch = &fakeDispatcher{}
	s.svc = New(s.attempts, s.registrations, s.gw, s.dispatch,
		"https://ovation.example.org/payments/return", slog.Default(),
		metrics.New(prometheus.NewRegistry()))
	s.sessionID = id.NewSessionID()
	s.ctx = requestcontext.WithSessionID(context.Background(), s.sessionID)
}

func TestPaymentSuite(t *testing.T) {
	suite.Run(t, new(PaymentSuite))
}

// seedRegistration stores a committed individual registration awaiting
// payment and returns it.
func (s *PaymentSuite) seedRegistration() regmodels.Registration {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	registration := regmodels.New(s.sessionID, "USD", now)
	registration.Type = regmodels.TypeIndividual
	registration.Options.PayerName = "Grace Hopper"
	registration.Options.PayerEmail = "grace@example.org"
	registration.TotalAmount = 200
	registration.Step = regmodels.StepPayment
	registration.RecordID = registration.ID.String()
	s.Require().NoError(s.registrations.Save(context.Background(), registration))
	return registration
}

func (s *PaymentSuite) settledVerification(attempt models.Attempt) *gateway.Verification {
	return &gateway.Verification{
		Reference: attempt.Reference,
		Status:    "success",
		Amount:    attempt.Amount,
		Currency:  attempt.Currency,
	}
}

func (s *PaymentSuite) TestInitiateGateway() {
	registration := s.seedRegistration()

	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.InitializeRequest) (*gateway.RedirectHandle, error) {
			s.Equal(int64(200), req.Amount)
			s.Equal("USD", req.Currency)
			s.Equal("grace@example.org", req.Email)
			s.Equal("https://ovation.example.org/payments/return", req.CallbackURL)
			return &gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/" + req.Reference, Reference: req.Reference}, nil
		})

	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)
	s.NotEmpty(initiation.AuthorizationURL)
	s.Equal(models.StatusInitiated, initiation.Attempt.Status)
	s.Equal(int64(200), initiation.Attempt.Amount, "attempt snapshots the amount owed")
}

func (s *PaymentSuite) TestInitiateRequiresPendingRegistration() {
	registration := s.seedRegistration()
	cancelled, err := registration.Cancel(registration.CreatedAt)
	s.Require().NoError(err)
	s.Require().NoError(s.registrations.Save(context.Background(), cancelled))

	_, err = s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *PaymentSuite) TestInitiateForeignSessionForbidden() {
	registration := s.seedRegistration()
	otherCtx := requestcontext.WithSessionID(context.Background(), id.NewSessionID())

	_, err := s.svc.Initiate(otherCtx, registration.ID, models.MethodGateway)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *PaymentSuite) TestInitiateRejectsSecondInFlightAttempt() {
	registration := s.seedRegistration()
	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(&gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/x"}, nil)

	_, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)

	_, err = s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

// A failed Initialize closes the attempt so the registration is free for a
// retry instead of being wedged behind a dead in-flight attempt.
func (s *PaymentSuite) TestInitiateGatewayFailureFreesRegistration() {
	registration := s.seedRegistration()
	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "gateway down"))

	_, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(&gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/y"}, nil)
	_, err = s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)
}

func (s *PaymentSuite) TestInitiateManualParksRegistration() {
	registration := s.seedRegistration()

	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodManual)
	s.Require().NoError(err)
	s.NotEmpty(initiation.Instructions)
	s.Empty(initiation.AuthorizationURL)

	parked, err := s.registrations.Load(context.Background(), registration.ID)
	s.Require().NoError(err)
	s.Equal(regmodels.StatusAwaitingVerification, parked.Status)
}

func (s *PaymentSuite) TestReconcileUnknownReference() {
	_, err := s.svc.Reconcile(s.ctx, "ov-nope")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownReference))
}

// The core settlement path: the gateway confirms, the attempt is verified,
// the registration flips to paid and exactly one confirmation is dispatched
// no matter how many times the reference is reconciled.
func (s *PaymentSuite) TestReconcileSettlesExactlyOnce() {
	registration := s.seedRegistration()
	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(&gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/z"}, nil)
	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)
	reference := initiation.Attempt.Reference

	// One gateway round trip total: the second reconcile answers from the
	// stored outcome.
	s.gw.EXPECT().Verify(gomock.Any(), reference).
		Return(s.settledVerification(initiation.Attempt), nil).
		Times(1)

	first, err := s.svc.Reconcile(s.ctx, reference)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, first.Attempt.Status)
	s.Require().NotNil(first.Attempt.VerifiedAt)
	s.True(first.EmailQueued)

	paid, err := s.registrations.Load(context.Background(), registration.ID)
	s.Require().NoError(err)
	s.Equal(regmodels.StatusPaid, paid.Status)

	// Webhook and return page both reconcile; the duplicate is a no-op.
	second, err := s.svc.Reconcile(s.ctx, reference)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, second.Attempt.Status)
	s.Equal(1, s.dispatch.count(), "only the flip winner dispatches")
}

// The client's redirect query string claims nothing: a declined transaction
// stays declined regardless of how the payer landed back on the site.
func (s *PaymentSuite) TestReconcileDeclinedTransaction() {
	registration := s.seedRegistration()
	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(&gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/d"}, nil)
	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)

	s.gw.EXPECT().Verify(gomock.Any(), initiation.Attempt.Reference).
		Return(&gateway.Verification{Reference: initiation.Attempt.Reference, Status: "failed"}, nil)

	outcome, err := s.svc.Reconcile(s.ctx, initiation.Attempt.Reference)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, outcome.Attempt.Status)
	s.False(outcome.Attempt.AmountMismatch)

	pending, err := s.registrations.Load(context.Background(), registration.ID)
	s.Require().NoError(err)
	s.Equal(regmodels.StatusPendingPayment, pending.Status)
	s.Zero(s.dispatch.count())
}

func (s *PaymentSuite) TestReconcileAmountMismatch() {
	registration := s.seedRegistration()
	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(&gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/m"}, nil)
	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)
	reference := initiation.Attempt.Reference

	s.gw.EXPECT().Verify(gomock.Any(), reference).
		Return(&gateway.Verification{Reference: reference, Status: "success", Amount: 150, Currency: "USD"}, nil)

	_, err = s.svc.Reconcile(s.ctx, reference)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAmountMismatch))

	attempt, err := s.svc.Status(s.ctx, reference)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, attempt.Status)
	s.True(attempt.AmountMismatch)

	pending, err := s.registrations.Load(context.Background(), registration.ID)
	s.Require().NoError(err)
	s.Equal(regmodels.StatusPendingPayment, pending.Status, "a mismatch never marks the registration paid")
}

// A gateway outage leaves the attempt initiated so a later reconcile can
// still settle it.
func (s *PaymentSuite) TestReconcileRetriesAfterGatewayOutage() {
	registration := s.seedRegistration()
	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(&gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/r"}, nil)
	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)
	reference := initiation.Attempt.Reference

	s.gw.EXPECT().Verify(gomock.Any(), reference).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "gateway down"))
	_, err = s.svc.Reconcile(s.ctx, reference)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	attempt, err := s.svc.Status(s.ctx, reference)
	s.Require().NoError(err)
	s.Equal(models.StatusInitiated, attempt.Status)

	s.gw.EXPECT().Verify(gomock.Any(), reference).
		Return(s.settledVerification(initiation.Attempt), nil)
	outcome, err := s.svc.Reconcile(s.ctx, reference)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, outcome.Attempt.Status)
}

func (s *PaymentSuite) TestReconcileManualAttemptRejected() {
	registration := s.seedRegistration()
	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodManual)
	s.Require().NoError(err)

	_, err = s.svc.Reconcile(s.ctx, initiation.Attempt.Reference)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *PaymentSuite) TestPaidFlipReportsDegradedQueue() {
	s.dispatch.full = true
	registration := s.seedRegistration()
	s.gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		Return(&gateway.RedirectHandle{AuthorizationURL: "https://pay.example.com/c/q"}, nil)
	initiation, err := s.svc.Initiate(s.ctx, registration.ID, models.MethodGateway)
	s.Require().NoError(err)

	s.gw.EXPECT().Verify(gomock.Any(), initiation.Attempt.Reference).
		Return(s.settledVerification(initiation.Attempt), nil)

	outcome, err := s.svc.Reconcile(s.ctx, initiation.Attempt.Reference)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, outcome.Attempt.Status, "notify failure must not fail the settlement")
	s.False(outcome.EmailQueued)
}
