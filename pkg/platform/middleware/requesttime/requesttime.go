// Package requesttime stamps each request with a single "now" so that every
// timestamp written while serving it (lastActive, log entries, messages) agrees.
package requesttime

import (
	"net/http"
	"time"

	"satvault/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
