// Package httputil maps coded domain errors onto HTTP responses so handlers
// never hand-roll status codes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "ovation/pkg/domain-errors"
)

type errorBody struct {
	Error       string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps the error's code to an HTTP status. Internal and
// security-relevant errors omit the description so backend detail never
// reaches the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}

	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnknownReference, dErrors.CodeAmountMismatch:
		// no description
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message()
			body.Fields = de.Fields()
		} else {
			body.Description = err.Error()
		}
	}

	WriteJSON(w, statusFor(code), body)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeUnknownReference, dErrors.CodeAmountMismatch:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
