// Package notify dispatches confirmation messages after commits and verified
// payments. Dispatch is fire-and-forget with its own error channel: a failed
// courtesy email must never fail the commit that triggered it.
package notify

import "context"

// Kind labels what happened; consumers pick templates off it.
type Kind string

const (
	KindNominationSubmitted Kind = "nomination.submitted"
	KindPaymentConfirmed    Kind = "payment.confirmed"
)

// Message is a confirmation keyed by the record it concerns.
type Message struct {
	Kind           Kind   `json:"kind"`
	SubjectID      string `json:"subject_id"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name,omitempty"`
}

// Notifier delivers a message to the downstream channel (broker, log, test
// recorder).
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
