package testutil

import (
	"net/http"
	"time"

	"satvault/pkg/requestcontext"
)

// WithRequestTime pins requestcontext.Now for the request.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
