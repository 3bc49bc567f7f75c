// Package device turns the request User-Agent into a short client description
// ("Firefox 128.0 / Linux x86_64") recorded with owner activity.
package device

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

const unknownClient = "unknown client"

type contextKeyDescription struct{}

// Description retrieves the client description from the context.
func Description(ctx context.Context) string {
	if d, ok := ctx.Value(contextKeyDescription{}).(string); ok {
		return d
	}
	return ""
}

// WithDescription injects a client description into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithDescription(ctx context.Context, description string) context.Context {
	return context.WithValue(ctx, contextKeyDescription{}, description)
}

// Describe parses a User-Agent header.
func Describe(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownClient
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	if ua.Bot() {
		return "bot " + name
	}

	client := strings.TrimSpace(name + " " + version)
	if client == "" {
		client = unknownClient
	}
	if os := ua.OS(); os != "" {
		client += " / " + os
	}
	if ua.Mobile() {
		client += " (mobile)"
	}
	return client
}

// Middleware stores Describe(User-Agent) in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithDescription(r.Context(), Describe(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
