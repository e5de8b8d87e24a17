// Package models defines the registration aggregate: a participation choice,
// priced options, and a payment lifecycle driven by the payment module.
package models

import (
	"time"

	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
)

// ParticipationType is the fixed enumeration of ways to take part.
type ParticipationType string

const (
	TypeNominee    ParticipationType = "nominee"
	TypeIndividual ParticipationType = "individual"
	TypeGroup      ParticipationType = "group"
	TypeSponsor    ParticipationType = "sponsor"
)

// ParticipationTypes lists the valid values in display order.
var ParticipationTypes = []ParticipationType{TypeNominee, TypeIndividual, TypeGroup, TypeSponsor}

func (t ParticipationType) Valid() bool {
	switch t {
	case TypeNominee, TypeIndividual, TypeGroup, TypeSponsor:
		return true
	}
	return false
}

// Status is the registration payment lifecycle.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	// StatusAwaitingVerification is the manual/offline sub-state: payment
	// instructions were shown and an admin closes it out by hand.
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusPaid                 Status = "paid"
	StatusCancelled            Status = "cancelled"
)

// StepKey names one page of the registration wizard.
type StepKey string

const (
	StepType         StepKey = "type"
	StepOptions      StepKey = "options"
	StepReview       StepKey = "review"
	StepPayment      StepKey = "payment"
	StepConfirmation StepKey = "confirmation"
)

// StepOrder is the fixed wizard order.
var StepOrder = []StepKey{StepType, StepOptions, StepReview, StepPayment, StepConfirmation}

// Options holds the per-type choices plus payer details handed to the
// gateway. Only the field matching the participation type is meaningful.
type Options struct {
	RecognitionTier string `json:"recognition_tier,omitempty"`
	PackageTier     string `json:"package_tier,omitempty"`
	CustomAmount    int64  `json:"custom_amount,omitempty"`

	PayerName  string `json:"payer_name,omitempty"`
	PayerEmail string `json:"payer_email,omitempty"`
}

// Registration is the aggregate draft and, once committed at review, the
// authoritative record payments reconcile against. TotalAmount is always
// derived from (Type, Options); it is never written directly by callers.
type Registration struct {
	ID        id.RegistrationID `json:"id"`
	RecordID  string            `json:"record_id,omitempty"`
	SessionID id.SessionID      `json:"session_id"`

	Type        ParticipationType `json:"participation_type"`
	Options     Options           `json:"options"`
	TotalAmount int64             `json:"total_amount"`
	Currency    string            `json:"currency"`

	Status Status  `json:"status"`
	Step   StepKey `json:"step"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty draft owned by the given wizard session.
func New(sessionID id.SessionID, currency string, now time.Time) Registration {
	return Registration{
		ID:        id.NewRegistrationID(),
		SessionID: sessionID,
		Currency:  currency,
		Status:    StatusPendingPayment,
		Step:      StepType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Finalized reports whether the registration reached a terminal state.
func (r Registration) Finalized() bool {
	return r.Status == StatusPaid || r.Status == StatusCancelled
}

// Cancel moves a not-yet-paid registration to cancelled.
func (r Registration) Cancel(now time.Time) (Registration, error) {
	if r.Finalized() {
		return r, dErrors.New(dErrors.CodeInvalidState,
			"cannot cancel a registration that is "+string(r.Status))
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now
	return r, nil
}
