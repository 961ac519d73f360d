package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"tuitionhub/pkg/requestcontext"
)

// TokenVerifier is the identity oracle boundary: it verifies a bearer token
// and yields the verified email claim. Signature, expiry, and issuer checks
// happen behind this interface; the middleware trusts its verdict.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (VerifiedIdentity, error)
}

// VerifiedIdentity is the only trusted source of "who is calling". Emails
// supplied in request bodies or query strings are never used for
// authorization decisions.
type VerifiedIdentity struct {
	Email string
}

// RequireAuth rejects requests without a valid bearer credential before any
// business logic runs. On success the verified email is placed in context.
//
// Failure is terminal for the request: 401, never a silent downgrade to
// anonymous access.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			ctx := r.Context()
			identity, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithEmail(ctx, identity.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
