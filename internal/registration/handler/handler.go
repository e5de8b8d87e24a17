// Package handler exposes the registration wizard over HTTP. Handlers stay
// thin: decode, call the service, map errors.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ovation/internal/platform/middleware"
	"ovation/internal/registration/models"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/httputil"
	"ovation/pkg/requestcontext"
)

// Service is the registration surface the handler needs.
type Service interface {
	Create(ctx context.Context, currency string) (models.Registration, error)
	Get(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error)
	Advance(ctx context.Context, registrationID id.RegistrationID, data json.RawMessage) (models.Registration, error)
	Retreat(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error)
	Cancel(ctx context.Context, registrationID id.RegistrationID) (models.Registration, error)
	Clear(ctx context.Context, registrationID id.RegistrationID) error
}

// Sessions issues wizard session tokens for first-time visitors.
type Sessions interface {
	Issue(sessionID id.SessionID) (string, error)
}

type Handler struct {
	logger   *slog.Logger
	svc      Service
	sessions Sessions
	currency string
}

func New(svc Service, sessions Sessions, currency string, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc, sessions: sessions, currency: currency}
}

// Register mounts the registration routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/advance", h.handleAdvance)
		r.Post("/{id}/retreat", h.handleRetreat)
		r.Post("/{id}/cancel", h.handleCancel)
		r.Delete("/{id}", h.handleClear)
	})
}

type registrationResponse struct {
	Registration models.Registration `json:"registration"`
	SessionToken string              `json:"session_token,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var token string
	if requestcontext.SessionID(ctx).IsZero() {
		sessionID := id.NewSessionID()
		issued, err := h.sessions.Issue(sessionID)
		if err != nil {
			h.logger.ErrorContext(ctx, "issue session token",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "session setup failed"))
			return
		}
		token = issued
		ctx = requestcontext.WithSessionID(ctx, sessionID)
	}

	registration, err := h.svc.Create(ctx, h.currency)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registrationResponse{Registration: registration, SessionToken: token})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	registration, err := h.svc.Get(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrationResponse{Registration: registration})
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable request body"))
		return
	}

	registration, err := h.svc.Advance(ctx, registrationID, body)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			h.logger.WarnContext(ctx, "step rejected",
				"request_id", middleware.GetRequestID(ctx),
				"registration_id", registrationID.String(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrationResponse{Registration: registration})
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	registration, err := h.svc.Retreat(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrationResponse{Registration: registration})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	registration, err := h.svc.Cancel(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrationResponse{Registration: registration})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Clear(r.Context(), registrationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
