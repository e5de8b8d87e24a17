package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"ovation/internal/nomination/metrics"
	"ovation/internal/nomination/models"
	"ovation/internal/nomination/service"
	"ovation/internal/nomination/store"
	"ovation/internal/notify"
	"ovation/internal/platform/middleware"
	"ovation/internal/session"
)

type okDispatcher struct{}

func (okDispatcher) Dispatch(notify.Message) bool { return true }

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := slog.Default()
	tokens := session.NewTokenService("test-signing-key", time.Hour)
	svc := service.New(store.NewInMemory(), store.NewInMemory(), okDispatcher{},
		logger, metrics.New(prometheus.NewRegistry()))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Session(tokens, logger))
	New(svc, tokens, logger).Register(router)
	return router
}

func createDraft(t *testing.T, router *chi.Mux) (nominationID, token string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/nominations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating draft, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Nomination   models.Nomination `json:"nomination"`
		SessionToken string            `json:"session_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if resp.SessionToken == "" {
		t.Fatalf("expected a session token for a fresh visitor")
	}
	return resp.Nomination.ID.String(), resp.SessionToken
}

func doJSON(router *chi.Mux, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetDraft(t *testing.T) {
	router := newRouter(t)
	nominationID, token := createDraft(t, router)

	rec := doJSON(router, http.MethodGet, "/nominations/"+nominationID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching draft, got %d", rec.Code)
	}

	var resp struct {
		Nomination models.Nomination `json:"nomination"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if resp.Nomination.Status != models.StatusIncomplete {
		t.Fatalf("expected fresh draft to be incomplete, got %s", resp.Nomination.Status)
	}
}

func TestGetWithoutTokenForbidden(t *testing.T) {
	router := newRouter(t)
	nominationID, _ := createDraft(t, router)

	rec := doJSON(router, http.MethodGet, "/nominations/"+nominationID, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without session token, got %d", rec.Code)
	}
}

func TestAdvanceValidationErrorSurfacesFields(t *testing.T) {
	router := newRouter(t)
	nominationID, token := createDraft(t, router)

	rec := doJSON(router, http.MethodPost, "/nominations/"+nominationID+"/advance", token,
		[]byte(`{"full_name":"","email":"not-an-email","category":""}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid section, got %d", rec.Code)
	}

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error != "validation_error" {
		t.Fatalf("expected validation_error, got %q", resp.Error)
	}
	if resp.Fields["full_name"] != "required" {
		t.Fatalf("expected field-level errors, got %v", resp.Fields)
	}
}

func TestFullWizardSubmission(t *testing.T) {
	router := newRouter(t)
	nominationID, token := createDraft(t, router)
	payloads := models.ValidSectionPayloads()

	var last struct {
		Nomination  models.Nomination `json:"nomination"`
		EmailQueued *bool             `json:"email_queued"`
	}
	for _, key := range models.SectionOrder {
		rec := doJSON(router, http.MethodPost, "/nominations/"+nominationID+"/advance", token, payloads[key])
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 advancing section %s, got %d: %s", key, rec.Code, rec.Body.String())
		}
		if err := json.NewDecoder(rec.Body).Decode(&last); err != nil {
			t.Fatalf("decode advance response: %v", err)
		}
	}

	if last.Nomination.Status != models.StatusSubmitted {
		t.Fatalf("expected submitted after section E, got %s", last.Nomination.Status)
	}
	if last.Nomination.SubmittedAt == nil {
		t.Fatalf("expected submitted_at to be stamped")
	}
	if last.EmailQueued == nil || !*last.EmailQueued {
		t.Fatalf("expected email_queued=true on successful dispatch")
	}

	// Re-entering a submitted nomination is rejected.
	rec := doJSON(router, http.MethodPost, "/nominations/"+nominationID+"/advance", token, payloads[models.SectionA])
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 advancing a submitted nomination, got %d", rec.Code)
	}
}

func TestRetreatThenAdvance(t *testing.T) {
	router := newRouter(t)
	nominationID, token := createDraft(t, router)
	payloads := models.ValidSectionPayloads()

	doJSON(router, http.MethodPost, "/nominations/"+nominationID+"/advance", token, payloads[models.SectionA])
	doJSON(router, http.MethodPost, "/nominations/"+nominationID+"/advance", token, payloads[models.SectionB])

	rec := doJSON(router, http.MethodPost, "/nominations/"+nominationID+"/retreat", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on retreat, got %d", rec.Code)
	}

	var resp struct {
		Nomination models.Nomination `json:"nomination"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode retreat response: %v", err)
	}
	if resp.Nomination.Step != models.SectionB {
		t.Fatalf("expected to be back on section b, got %s", resp.Nomination.Step)
	}
	if resp.Nomination.Sections.Nominator == nil {
		t.Fatalf("retreat must not discard section b data")
	}
}

func TestClearBeforeSubmitRejected(t *testing.T) {
	router := newRouter(t)
	nominationID, token := createDraft(t, router)

	rec := doJSON(router, http.MethodDelete, "/nominations/"+nominationID, token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 clearing an in-progress draft, got %d", rec.Code)
	}
}
