package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"modreview/internal/domain"
	"modreview/internal/dto"
	"modreview/internal/observability/middleware"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dto.OK(data))
}

// writeError maps err onto the response envelope. message replaces the
// default user-facing text when set.
func writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status, code, defMsg := classify(err)
	if message == "" {
		message = defMsg
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"trace_id", middleware.TraceIDFromContext(r.Context()),
		)
	}
	writeJSON(w, status, dto.Error(status, message, code))
}

func classify(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "Unauthorized"
	case errors.Is(err, domain.ErrNotActionable):
		return http.StatusConflict, "not_actionable", "User is not awaiting review"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "Not Found"
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, "bad_request", "Bad Request"
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusServiceUnavailable, "external_service", "External service unavailable, try again later"
	default:
		return http.StatusInternalServerError, "internal", "Internal Server Error"
	}
}
