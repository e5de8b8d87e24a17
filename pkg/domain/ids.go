// Package domain holds typed identifiers shared across modules. Typed UUIDs
// keep a nomination id from being passed where a registration id is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "ovation/pkg/domain-errors"
)

type (
	// NominationID identifies a nomination draft or record.
	NominationID uuid.UUID
	// RegistrationID identifies a registration draft or record.
	RegistrationID uuid.UUID
	// AttemptID identifies a payment attempt.
	AttemptID uuid.UUID
	// SessionID identifies a wizard session (browser session owning drafts).
	SessionID uuid.UUID
)

func NewNominationID() NominationID     { return NominationID(uuid.New()) }
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewAttemptID() AttemptID           { return AttemptID(uuid.New()) }
func NewSessionID() SessionID           { return SessionID(uuid.New()) }

func (id NominationID) String() string   { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id AttemptID) String() string      { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }

func (id NominationID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's marshaling, so each ID type
// round-trips as its canonical string form.
func (id NominationID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id RegistrationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AttemptID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *NominationID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = NominationID(parsed)
	return nil
}

func (id *RegistrationID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = RegistrationID(parsed)
	return nil
}

func (id *AttemptID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = AttemptID(parsed)
	return nil
}

func (id *SessionID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = SessionID(parsed)
	return nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id must not be nil")
	}
	return parsed, nil
}

func ParseNominationID(raw string) (NominationID, error) {
	parsed, err := parseUUID(raw, "nomination")
	return NominationID(parsed), err
}

func ParseRegistrationID(raw string) (RegistrationID, error) {
	parsed, err := parseUUID(raw, "registration")
	return RegistrationID(parsed), err
}

func ParseAttemptID(raw string) (AttemptID, error) {
	parsed, err := parseUUID(raw, "attempt")
	return AttemptID(parsed), err
}

func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session")
	return SessionID(parsed), err
}
