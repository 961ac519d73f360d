package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"tuitionhub/pkg/requestcontext"
)

// RoleResolver looks up the stored role for a verified email. Role is a
// server-side property: it is re-read from persisted state on every request
// and never taken from the client-presented credential, which closes the
// forged-claim escalation path.
type RoleResolver interface {
	ResolveRole(ctx context.Context, email string) (string, error)
}

// RequireRole gates a route group on the caller's stored role. It must be
// mounted after RequireAuth; a request with no verified email is rejected
// with 401, a mismatched or missing role with 403.
func RequireRole(resolver RoleResolver, required string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			email := requestcontext.Email(ctx)
			if email == "" {
				logger.WarnContext(ctx, "role check without authenticated identity",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			role, err := resolver.ResolveRole(ctx, email)
			if err != nil {
				logger.ErrorContext(ctx, "failed to resolve role",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal", "failed to resolve role")
				return
			}
			if role != required {
				logger.WarnContext(ctx, "forbidden - insufficient role",
					"request_id", requestcontext.RequestID(ctx),
					"required_role", required,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
