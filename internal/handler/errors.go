package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"arbor/internal/domain"
	"arbor/internal/httputil"
)

// handleError converts domain errors to problem responses carrying the
// stable error code. Internal errors are logged and never echoed.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := domain.CodeOf(err)
	status := domain.StatusCodeOf(err)

	var conflictErr *domain.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, string(domain.CodeConflict), conflictErr.Error(), map[string]any{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case code == domain.CodeInternal:
		logger.Error("request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, string(domain.CodeInternal), "internal server error")
	default:
		httputil.RespondError(w, status, string(code), err.Error())
	}
}

// badRequest reports a malformed request before it reaches a service.
func badRequest(w http.ResponseWriter, detail string) {
	httputil.RespondError(w, http.StatusBadRequest, string(domain.CodeValidation), detail)
}
