package models

import (
	"encoding/json"
	"net/mail"
	"strings"

	dErrors "ovation/pkg/domain-errors"
)

// Sections is a tagged union keyed by section letter: each variant has a
// fixed schema validated at the state-machine boundary, never downstream.
// A nil variant means the section has not been filled in yet.
type Sections struct {
	Nominee     *NomineeDetails      `json:"a,omitempty"`
	Nominator   *NominatorDetails    `json:"b,omitempty"`
	Achievement *Achievement         `json:"c,omitempty"`
	Statement   *SupportingStatement `json:"d,omitempty"`
	Declaration *Declaration         `json:"e,omitempty"`
}

// NomineeDetails is section A.
type NomineeDetails struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Organization string `json:"organization,omitempty"`
	Category     string `json:"category"`
}

func (d NomineeDetails) validate() map[string]string {
	fields := map[string]string{}
	requireNonEmpty(fields, "full_name", d.FullName)
	requireEmail(fields, "email", d.Email)
	requireNonEmpty(fields, "category", d.Category)
	return fields
}

// NominatorDetails is section B.
type NominatorDetails struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship"`
}

func (d NominatorDetails) validate() map[string]string {
	fields := map[string]string{}
	requireNonEmpty(fields, "full_name", d.FullName)
	requireEmail(fields, "email", d.Email)
	requireNonEmpty(fields, "relationship", d.Relationship)
	return fields
}

// Achievement is section C.
type Achievement struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Impact  string `json:"impact,omitempty"`
}

const minSummaryLen = 50

func (d Achievement) validate() map[string]string {
	fields := map[string]string{}
	requireNonEmpty(fields, "title", d.Title)
	if len(strings.TrimSpace(d.Summary)) < minSummaryLen {
		fields["summary"] = "must be at least 50 characters"
	}
	return fields
}

// SupportingStatement is section D.
type SupportingStatement struct {
	Statement string   `json:"statement"`
	Links     []string `json:"links,omitempty"`
}

const minStatementLen = 100

func (d SupportingStatement) validate() map[string]string {
	fields := map[string]string{}
	if len(strings.TrimSpace(d.Statement)) < minStatementLen {
		fields["statement"] = "must be at least 100 characters"
	}
	return fields
}

// Declaration is section E.
type Declaration struct {
	RefereeName  string `json:"referee_name"`
	RefereeEmail string `json:"referee_email"`
	Agreed       bool   `json:"agreed"`
}

func (d Declaration) validate() map[string]string {
	fields := map[string]string{}
	requireNonEmpty(fields, "referee_name", d.RefereeName)
	requireEmail(fields, "referee_email", d.RefereeEmail)
	if !d.Agreed {
		fields["agreed"] = "declaration must be accepted"
	}
	return fields
}

// ApplySection decodes and validates raw payload for the given section and
// returns the sections with that variant replaced. The original value is not
// mutated.
func (s Sections) ApplySection(key SectionKey, data json.RawMessage) (Sections, error) {
	switch key {
	case SectionA:
		var payload NomineeDetails
		if err := decodeSection(data, &payload); err != nil {
			return s, err
		}
		if fields := payload.validate(); len(fields) > 0 {
			return s, dErrors.NewValidation("section a is invalid", fields)
		}
		s.Nominee = &payload
	case SectionB:
		var payload NominatorDetails
		if err := decodeSection(data, &payload); err != nil {
			return s, err
		}
		if fields := payload.validate(); len(fields) > 0 {
			return s, dErrors.NewValidation("section b is invalid", fields)
		}
		s.Nominator = &payload
	case SectionC:
		var payload Achievement
		if err := decodeSection(data, &payload); err != nil {
			return s, err
		}
		if fields := payload.validate(); len(fields) > 0 {
			return s, dErrors.NewValidation("section c is invalid", fields)
		}
		s.Achievement = &payload
	case SectionD:
		var payload SupportingStatement
		if err := decodeSection(data, &payload); err != nil {
			return s, err
		}
		if fields := payload.validate(); len(fields) > 0 {
			return s, dErrors.NewValidation("section d is invalid", fields)
		}
		s.Statement = &payload
	case SectionE:
		var payload Declaration
		if err := decodeSection(data, &payload); err != nil {
			return s, err
		}
		if fields := payload.validate(); len(fields) > 0 {
			return s, dErrors.NewValidation("section e is invalid", fields)
		}
		s.Declaration = &payload
	default:
		return s, dErrors.New(dErrors.CodeBadRequest, "unknown section "+string(key))
	}
	return s, nil
}

func decodeSection(data json.RawMessage, into any) error {
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed section payload")
	}
	return nil
}

func requireNonEmpty(fields map[string]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = "required"
	}
}

func requireEmail(fields map[string]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = "required"
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		fields[name] = "must be a valid email"
	}
}
