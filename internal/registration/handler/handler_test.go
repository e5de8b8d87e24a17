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

	"ovation/internal/platform/middleware"
	"ovation/internal/registration/metrics"
	"ovation/internal/registration/models"
	"ovation/internal/registration/service"
	"ovation/internal/registration/store"
	"ovation/internal/session"
)

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := slog.Default()
	tokens := session.NewTokenService("test-signing-key", time.Hour)
	svc := service.New(store.NewInMemory(), store.NewInMemory(),
		logger, metrics.New(prometheus.NewRegistry()))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Session(tokens, logger))
	New(svc, tokens, "USD", logger).Register(router)
	return router
}

func createDraft(t *testing.T, router *chi.Mux) (registrationID, token string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/registrations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating draft, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Registration models.Registration `json:"registration"`
		SessionToken string              `json:"session_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if resp.SessionToken == "" {
		t.Fatalf("expected a session token for a fresh visitor")
	}
	return resp.Registration.ID.String(), resp.SessionToken
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

func decodeRegistration(t *testing.T, rec *httptest.ResponseRecorder) models.Registration {
	t.Helper()
	var resp struct {
		Registration models.Registration `json:"registration"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Registration
}

func TestCreateAndGetDraft(t *testing.T) {
	router := newRouter(t)
	registrationID, token := createDraft(t, router)

	rec := doJSON(router, http.MethodGet, "/registrations/"+registrationID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching draft, got %d", rec.Code)
	}
	registration := decodeRegistration(t, rec)
	if registration.Status != models.StatusPendingPayment {
		t.Fatalf("expected fresh draft to be pending_payment, got %s", registration.Status)
	}
	if registration.Currency != "USD" {
		t.Fatalf("expected configured currency, got %q", registration.Currency)
	}
}

func TestGetWithoutTokenForbidden(t *testing.T) {
	router := newRouter(t)
	registrationID, _ := createDraft(t, router)

	rec := doJSON(router, http.MethodGet, "/registrations/"+registrationID, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without session token, got %d", rec.Code)
	}
}

func TestWizardThroughReview(t *testing.T) {
	router := newRouter(t)
	registrationID, token := createDraft(t, router)
	advance := "/registrations/" + registrationID + "/advance"

	rec := doJSON(router, http.MethodPost, advance, token, []byte(`{"participation_type":"group"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on type step, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(router, http.MethodPost, advance, token,
		[]byte(`{"package_tier":"platinum","payer_name":"Ada Byron","payer_email":"ada@example.org"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on options step, got %d: %s", rec.Code, rec.Body.String())
	}
	registration := decodeRegistration(t, rec)
	if registration.TotalAmount != 2000 {
		t.Fatalf("expected platinum to price at 2000, got %d", registration.TotalAmount)
	}

	rec = doJSON(router, http.MethodPost, advance, token, []byte(`{"confirm":true}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 confirming review, got %d: %s", rec.Code, rec.Body.String())
	}
	registration = decodeRegistration(t, rec)
	if registration.Step != models.StepPayment {
		t.Fatalf("expected to land on the payment step, got %s", registration.Step)
	}
	if registration.RecordID == "" {
		t.Fatalf("expected a committed record id after review")
	}

	// The payment step is driven by the payment flow, not the form.
	rec = doJSON(router, http.MethodPost, advance, token, []byte(`{}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 advancing the payment step, got %d", rec.Code)
	}
}

func TestOptionsValidationSurfacesFields(t *testing.T) {
	router := newRouter(t)
	registrationID, token := createDraft(t, router)
	advance := "/registrations/" + registrationID + "/advance"

	doJSON(router, http.MethodPost, advance, token, []byte(`{"participation_type":"nominee"}`))

	rec := doJSON(router, http.MethodPost, advance, token,
		[]byte(`{"payer_name":"","payer_email":"not-an-email"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid options, got %d", rec.Code)
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
	if resp.Fields["recognition_tier"] == "" {
		t.Fatalf("expected field-level errors, got %v", resp.Fields)
	}
}

func TestCancelRegistration(t *testing.T) {
	router := newRouter(t)
	registrationID, token := createDraft(t, router)

	rec := doJSON(router, http.MethodPost, "/registrations/"+registrationID+"/cancel", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on cancel, got %d: %s", rec.Code, rec.Body.String())
	}
	registration := decodeRegistration(t, rec)
	if registration.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", registration.Status)
	}

	// A cancelled registration can be cleared.
	rec = doJSON(router, http.MethodDelete, "/registrations/"+registrationID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 clearing a cancelled draft, got %d", rec.Code)
	}
}

func TestClearBeforeTerminalRejected(t *testing.T) {
	router := newRouter(t)
	registrationID, token := createDraft(t, router)

	rec := doJSON(router, http.MethodDelete, "/registrations/"+registrationID, token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 clearing an in-progress draft, got %d", rec.Code)
	}
}
