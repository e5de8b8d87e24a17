// Package models defines the payment attempt: one gateway (or manual)
// transaction against a committed registration, from initiation to a
// server-verified outcome.
package models

import (
	"time"

	id "ovation/pkg/domain"
)

// Method is how the payer settles the amount.
type Method string

const (
	// MethodGateway redirects to the hosted checkout page; the outcome comes
	// back through server-side verification.
	MethodGateway Method = "gateway"
	// MethodManual shows bank transfer instructions; an admin closes it out.
	MethodManual Method = "manual"
)

func (m Method) Valid() bool {
	return m == MethodGateway || m == MethodManual
}

// Status is the attempt lifecycle. Initiated is the only non-terminal state:
// verified and failed never change again.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusVerified  Status = "verified"
	StatusFailed    Status = "failed"
)

// Attempt snapshots the amount owed at initiation time. Verification compares
// what the gateway settled against this snapshot, never against the live
// registration, so an option edit racing a payment cannot shift the goalposts.
type Attempt struct {
	ID             id.AttemptID      `json:"id"`
	RegistrationID id.RegistrationID `json:"registration_id"`

	Method    Method `json:"method"`
	Reference string `json:"reference"`

	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`

	Status Status `json:"status"`
	// AmountMismatch marks a failed attempt whose gateway-settled amount or
	// currency disagreed with the snapshot; these need human follow-up.
	AmountMismatch bool `json:"amount_mismatch,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// New creates an initiated attempt with a fresh unique reference.
func New(registrationID id.RegistrationID, method Method, amount int64, currency string, now time.Time) Attempt {
	attemptID := id.NewAttemptID()
	return Attempt{
		ID:             attemptID,
		RegistrationID: registrationID,
		Method:         method,
		Reference:      "ov-" + attemptID.String(),
		Amount:         amount,
		Currency:       currency,
		Status:         StatusInitiated,
		CreatedAt:      now,
	}
}

// Terminal reports whether the attempt reached an immutable outcome.
func (a Attempt) Terminal() bool {
	return a.Status == StatusVerified || a.Status == StatusFailed
}
