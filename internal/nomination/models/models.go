// Package models defines the nomination aggregate: a five-section award
// nomination assembled step by step and committed exactly once.
package models

import (
	"time"

	id "ovation/pkg/domain"
	dErrors "ovation/pkg/domain-errors"
)

// Status is the nomination lifecycle. Transitions only move forward:
// draft/incomplete -> submitted -> approved|rejected.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusIncomplete Status = "incomplete"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// SectionKey names one lettered section of the nomination form.
type SectionKey string

const (
	SectionA SectionKey = "a" // nominee details
	SectionB SectionKey = "b" // nominator details
	SectionC SectionKey = "c" // achievement
	SectionD SectionKey = "d" // supporting statement
	SectionE SectionKey = "e" // referee and declaration
)

// SectionOrder is the fixed form order.
var SectionOrder = []SectionKey{SectionA, SectionB, SectionC, SectionD, SectionE}

// Nomination is the aggregate draft and, once submitted, the authoritative
// record. RecordID is empty until the first successful commit; a retried
// commit reuses it instead of creating a second server record.
type Nomination struct {
	ID        id.NominationID `json:"id"`
	RecordID  string          `json:"record_id,omitempty"`
	SessionID id.SessionID    `json:"session_id"`
	Status    Status          `json:"status"`
	Step      SectionKey      `json:"step"`
	Sections  Sections        `json:"sections"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// New creates an empty draft owned by the given wizard session.
func New(sessionID id.SessionID, now time.Time) Nomination {
	return Nomination{
		ID:        id.NewNominationID(),
		SessionID: sessionID,
		Status:    StatusIncomplete,
		Step:      SectionA,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Finalized reports whether the nomination reached submitted or beyond.
func (n Nomination) Finalized() bool {
	return n.Status == StatusSubmitted || n.Status == StatusApproved || n.Status == StatusRejected
}

// Complete reports whether every section carries a payload.
func (n Nomination) Complete() bool {
	s := n.Sections
	return s.Nominee != nil && s.Nominator != nil && s.Achievement != nil &&
		s.Statement != nil && s.Declaration != nil
}

// ReconcileStatus makes the status field the single source of truth for
// completeness: every save routes through here, so stored status and
// computed completeness cannot disagree. Finalized statuses are left alone.
func (n Nomination) ReconcileStatus() Nomination {
	if n.Finalized() {
		return n
	}
	if n.Complete() {
		n.Status = StatusDraft
	} else {
		n.Status = StatusIncomplete
	}
	return n
}

// forward defines the allowed status transitions.
var forward = map[Status][]Status{
	StatusDraft:      {StatusSubmitted},
	StatusIncomplete: {StatusSubmitted},
	StatusSubmitted:  {StatusApproved, StatusRejected},
}

// TransitionTo enforces forward-only lifecycle movement.
func (n Nomination) TransitionTo(next Status, now time.Time) (Nomination, error) {
	for _, allowed := range forward[n.Status] {
		if allowed == next {
			n.Status = next
			n.UpdatedAt = now
			if next == StatusSubmitted {
				stamped := now
				n.SubmittedAt = &stamped
			}
			return n, nil
		}
	}
	return n, dErrors.New(dErrors.CodeInvalidState,
		"cannot move nomination from "+string(n.Status)+" to "+string(next))
}
