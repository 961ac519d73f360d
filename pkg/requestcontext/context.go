// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	email := requestcontext.Email(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithEmail(ctx, "tutor@example.com")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	emailKey          struct{}
	requestIDKey      struct{}
	requestTimeKey    struct{}
	clientIPKey       struct{}
	clientPlatformKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyEmail          = emailKey{}
	ContextKeyRequestID      = requestIDKey{}
	ContextKeyRequestTime    = requestTimeKey{}
	ContextKeyClientIP       = clientIPKey{}
	ContextKeyClientPlatform = clientPlatformKey{}
)

// Email retrieves the verified caller email set by the auth middleware.
// Empty string means the request was not authenticated.
func Email(ctx context.Context) string {
	if email, ok := ctx.Value(ContextKeyEmail).(string); ok {
		return email
	}
	return ""
}

// WithEmail injects a verified email into the context.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextKeyEmail, email)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// ClientPlatform retrieves the parsed client platform (browser/OS) summary.
func ClientPlatform(ctx context.Context) string {
	if p, ok := ctx.Value(ContextKeyClientPlatform).(string); ok {
		return p
	}
	return ""
}

// WithClientMetadata injects client IP and platform summary into a context.
// Useful for service unit tests that don't run the full middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, platform string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyClientPlatform, platform)
	return ctx
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for deterministic
// service tests and for workers that need consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
