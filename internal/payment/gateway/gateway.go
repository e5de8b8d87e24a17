// Package gateway talks to the hosted payment provider. The provider's REST
// API is the only source of truth for an attempt's outcome: redirect query
// parameters and webhook bodies are treated as hints, never as proof.
package gateway

//go:generate mockgen -source=gateway.go -destination=../gatewaymock/gateway.go -package=gatewaymock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	dErrors "ovation/pkg/domain-errors"
)

// InitializeRequest starts a hosted checkout for one attempt.
type InitializeRequest struct {
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url"`
}

// RedirectHandle is where the payer goes to pay.
type RedirectHandle struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// Verification is the provider's authoritative word on a reference.
type Verification struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// Settled reports whether the provider considers the transaction paid.
func (v Verification) Settled() bool { return v.Status == "success" }

// Gateway is the provider surface the payment services need.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*RedirectHandle, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// Client implements Gateway against the provider's REST API.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*RedirectHandle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	var handle RedirectHandle
	if err := c.do(httpReq, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	var verification Verification
	if err := c.do(httpReq, &verification); err != nil {
		return nil, err
	}
	return &verification, nil
}

// envelope is the provider's standard response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(req *http.Request, into any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed gateway response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return dErrors.New(dErrors.CodeUnknownReference, "gateway does not know this reference")
	}
	if resp.StatusCode >= 400 || !env.Status {
		return dErrors.New(dErrors.CodeUnavailable, "gateway rejected the request: "+env.Message)
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed gateway payload")
	}
	return nil
}
