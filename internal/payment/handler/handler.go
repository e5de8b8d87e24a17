// Package handler exposes the payment flow over HTTP. Three callers share the
// reconcile path: the payer's browser coming back from checkout, the
// gateway's webhook, and anyone polling an attempt's status. All three end up
// in the same server-side verification.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ovation/internal/payment/models"
	"ovation/internal/payment/service"
	"ovation/internal/platform/middleware"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/httputil"
)

// Service is the payment surface the handler needs.
type Service interface {
	Initiate(ctx context.Context, registrationID id.RegistrationID, method models.Method) (service.Initiation, error)
	Attempts(ctx context.Context, registrationID id.RegistrationID) ([]models.Attempt, error)
	Reconcile(ctx context.Context, reference string) (service.Reconciliation, error)
	Status(ctx context.Context, reference string) (models.Attempt, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register mounts the payment routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations/{id}/payments", h.handleInitiate)
	r.Get("/registrations/{id}/payments", h.handleAttempts)
	r.Route("/payments", func(r chi.Router) {
		r.Get("/return", h.handleReturn)
		r.Post("/webhook", h.handleWebhook)
		r.Get("/{reference}", h.handleStatus)
	})
}

type initiateRequest struct {
	Method models.Method `json:"method"`
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed initiate request"))
		return
	}

	initiation, err := h.svc.Initiate(r.Context(), registrationID, req.Method)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, initiation)
}

type attemptsResponse struct {
	Attempts []models.Attempt `json:"attempts"`
}

// handleAttempts lists a registration's attempts, newest first, for a payer
// chasing a charge that never concluded.
func (h *Handler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	attempts, err := h.svc.Attempts(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attemptsResponse{Attempts: attempts})
}

// handleReturn is where the gateway sends the payer's browser after checkout.
// The query string is input for looking up the attempt and nothing more; the
// outcome comes from server-side verification. The redirect strips the
// gateway's parameters so a reload or a shared link cannot replay them.
func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		reference = r.URL.Query().Get("trxref")
	}
	if reference == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing payment reference"))
		return
	}

	if _, err := h.svc.Reconcile(ctx, reference); err != nil {
		h.logger.WarnContext(ctx, "return-page reconcile failed",
			"request_id", middleware.GetRequestID(ctx),
			"reference", reference,
			"error", err.Error(),
		)
	}
	// Redirect regardless of outcome: the status page reads the stored
	// attempt, which now reflects whatever verification concluded.
	http.Redirect(w, r, "/payments/"+reference, http.StatusSeeOther)
}

// webhookEvent is the gateway's push notification shape.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// handleWebhook reconciles on the gateway's push. The event body is a hint:
// whatever it claims, the outcome still comes from the verify call.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed webhook body"))
		return
	}
	if event.Data.Reference == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "webhook event has no reference"))
		return
	}

	_, err := h.svc.Reconcile(ctx, event.Data.Reference)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case dErrors.Is(err, dErrors.CodeUnknownReference), dErrors.Is(err, dErrors.CodeAmountMismatch):
		// Acknowledged: retrying the delivery cannot change either outcome.
		h.logger.WarnContext(ctx, "webhook reconcile concluded abnormally",
			"request_id", middleware.GetRequestID(ctx),
			"reference", event.Data.Reference,
			"error", err.Error(),
		)
		w.WriteHeader(http.StatusOK)
	default:
		// Transient failure: a non-2xx makes the gateway redeliver.
		httputil.WriteError(w, err)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.svc.Status(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attempt)
}
