// Package handler exposes the nomination wizard over HTTP. Handlers stay
// thin: decode, call the service, map errors.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ovation/internal/nomination/models"
	"ovation/internal/nomination/service"
	"ovation/internal/platform/middleware"
	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
	"ovation/pkg/platform/httputil"
	"ovation/pkg/requestcontext"
)

// Service is the nomination surface the handler needs.
type Service interface {
	Create(ctx context.Context) (models.Nomination, error)
	Get(ctx context.Context, nominationID id.NominationID) (models.Nomination, error)
	Advance(ctx context.Context, nominationID id.NominationID, data json.RawMessage) (service.Result, error)
	Retreat(ctx context.Context, nominationID id.NominationID) (models.Nomination, error)
	Clear(ctx context.Context, nominationID id.NominationID) error
}

// Sessions issues wizard session tokens for first-time visitors.
type Sessions interface {
	Issue(sessionID id.SessionID) (string, error)
}

type Handler struct {
	logger   *slog.Logger
	svc      Service
	sessions Sessions
}

func New(svc Service, sessions Sessions, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc, sessions: sessions}
}

// Register mounts the nomination routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/nominations", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/advance", h.handleAdvance)
		r.Post("/{id}/retreat", h.handleRetreat)
		r.Delete("/{id}", h.handleClear)
	})
}

type nominationResponse struct {
	Nomination   models.Nomination `json:"nomination"`
	SessionToken string            `json:"session_token,omitempty"`
	EmailQueued  *bool             `json:"email_queued,omitempty"`
}

// handleCreate starts a draft. A visitor without a session gets one minted
// here; the returned token scopes every later call on this draft.
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

	nomination, err := h.svc.Create(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, nominationResponse{Nomination: nomination, SessionToken: token})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	nominationID, err := id.ParseNominationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nomination, err := h.svc.Get(r.Context(), nominationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nominationResponse{Nomination: nomination})
}

// handleAdvance merges the request body into the draft's current section.
func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nominationID, err := id.ParseNominationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable request body"))
		return
	}

	result, err := h.svc.Advance(ctx, nominationID, body)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			h.logger.WarnContext(ctx, "section rejected",
				"request_id", middleware.GetRequestID(ctx),
				"nomination_id", nominationID.String(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	resp := nominationResponse{Nomination: result.Nomination}
	if result.Nomination.Finalized() {
		queued := result.NotificationQueued
		resp.EmailQueued = &queued
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	nominationID, err := id.ParseNominationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nomination, err := h.svc.Retreat(r.Context(), nominationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nominationResponse{Nomination: nomination})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	nominationID, err := id.ParseNominationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Clear(r.Context(), nominationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
