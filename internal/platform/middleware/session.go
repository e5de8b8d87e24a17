package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "ovation/pkg/domain"
	"ovation/pkg/requestcontext"
)

// SessionValidator validates a wizard session token and returns the session
// it names.
type SessionValidator interface {
	Validate(token string) (id.SessionID, error)
}

// Session extracts a bearer session token when present and puts the session
// ID in context. Handlers decide whether a session is required; draft
// ownership checks live in the services.
func Session(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
				sessionID, err := validator.Validate(token)
				if err != nil {
					logger.WarnContext(r.Context(), "invalid session token",
						"request_id", GetRequestID(r.Context()),
						"error", err.Error(),
					)
				} else {
					r = r.WithContext(requestcontext.WithSessionID(r.Context(), sessionID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
