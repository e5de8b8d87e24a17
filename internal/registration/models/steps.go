package models

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"

	dErrors "ovation/pkg/domain-errors"
)

type typePayload struct {
	ParticipationType ParticipationType `json:"participation_type"`
}

// ApplyType sets the participation choice. Switching types discards the
// priced option fields so a stale tier from the old type can never leak into
// the new price; payer details survive the switch.
func (r Registration) ApplyType(raw json.RawMessage) (Registration, error) {
	var payload typePayload
	if err := decodeStrict(raw, &payload); err != nil {
		return r, err
	}
	if !payload.ParticipationType.Valid() {
		return r, dErrors.NewValidation("unknown participation type", map[string]string{
			"participation_type": "must be one of nominee, individual, group, sponsor",
		})
	}
	if payload.ParticipationType != r.Type {
		r.Options.RecognitionTier = ""
		r.Options.PackageTier = ""
		r.Options.CustomAmount = 0
		r.TotalAmount = 0
	}
	r.Type = payload.ParticipationType
	return r, nil
}

// ApplyOptions merges the option choices and payer details. Tier values are
// shape-checked here; whether a tier actually exists in the price table is
// the pricing package's call.
func (r Registration) ApplyOptions(raw json.RawMessage) (Registration, error) {
	var payload Options
	if err := decodeStrict(raw, &payload); err != nil {
		return r, err
	}

	fields := map[string]string{}
	if strings.TrimSpace(payload.PayerName) == "" {
		fields["payer_name"] = "is required"
	}
	if _, err := mail.ParseAddress(payload.PayerEmail); err != nil {
		fields["payer_email"] = "must be a valid email address"
	}
	switch r.Type {
	case TypeNominee:
		if payload.RecognitionTier == "" {
			fields["recognition_tier"] = "is required"
		}
	case TypeGroup:
		if payload.PackageTier == "" {
			fields["package_tier"] = "is required"
		}
	case TypeSponsor:
		if payload.CustomAmount <= 0 {
			fields["custom_amount"] = "must be a positive number"
		}
	}
	if len(fields) > 0 {
		return r, dErrors.NewValidation("invalid registration options", fields)
	}

	r.Options = payload
	return r, nil
}

type reviewPayload struct {
	Confirm bool `json:"confirm"`
}

// ApplyReview requires the explicit confirmation flag before the commit at
// the review step may run.
func (r Registration) ApplyReview(raw json.RawMessage) (Registration, error) {
	var payload reviewPayload
	if err := decodeStrict(raw, &payload); err != nil {
		return r, err
	}
	if !payload.Confirm {
		return r, dErrors.NewValidation("review must be confirmed", map[string]string{
			"confirm": "must be true",
		})
	}
	return r, nil
}

func decodeStrict(raw json.RawMessage, into any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed step payload")
	}
	return nil
}
