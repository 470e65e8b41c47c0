package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"modreview/internal/observability/middleware"
)

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Status() int { return r.status }

// LogRequests logs method, path, status and latency for each request.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := NewStatusRecorder(w)
		next.ServeHTTP(sr, r)
		slog.Default().Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration", time.Since(start),
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"trace_id", middleware.TraceIDFromContext(r.Context()),
		)
	})
}
