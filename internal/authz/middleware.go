package authz

import (
	"log/slog"
	"net/http"

	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Middleware wires policy checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// Require ensures the current actor passes the given action with no
// per-resource context. Handlers that load an entity must still call
// Evaluate with the loaded resource fields.
func (m Middleware) Require(action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			decision := Evaluate(*actor, nil, action)
			if !decision.Allowed {
				if m.Logger != nil {
					m.Logger.Warn("policy denied",
						slog.String("action", string(action)),
						slog.String("actor", actor.ID),
						slog.String("reason", decision.Reason))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
