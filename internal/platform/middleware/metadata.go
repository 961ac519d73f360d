package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"tuitionhub/pkg/requestcontext"
)

// Metadata captures client IP and a parsed platform summary from the
// User-Agent header. Both land in context and flow into audit events.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), platformSummary(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	// First hop of X-Forwarded-For when behind a proxy.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func platformSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()

	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString("/")
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" (")
		b.WriteString(os)
		b.WriteString(")")
	}
	if ua.Bot() {
		b.WriteString(" [bot]")
	}
	return b.String()
}
