package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/lead-finder/internal/pkg/httputil"
	"github.com/ignite/lead-finder/internal/pkg/logger"
	"github.com/ignite/lead-finder/internal/service/bulk"
	"github.com/ignite/lead-finder/internal/service/lookup"
)

// =============================================================================
// ERROR SANITIZER
// Internal errors (bucket names, SQL text, credentials in wrapped messages)
// never reach API consumers. 5xx responses carry a generic message while the
// full error is logged server-side.
// =============================================================================

var errLog = logger.Named("api")

// respondSafeError logs the internal error and sends a sanitized JSON error.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		errLog.Error(publicMsg, "status", code, "error", internalErr)
	}
	httputil.Error(w, code, publicMsg)
}

// respondServiceError maps service sentinels to client errors and
// everything else to a sanitized 500 with fallbackMsg.
func respondServiceError(w http.ResponseWriter, err error, fallbackMsg string) {
	var missing *bulk.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		httputil.BadRequest(w, missing.Error())
	case errors.Is(err, bulk.ErrInvalidPagination):
		httputil.BadRequest(w, "Invalid pagination parameters")
	case errors.Is(err, bulk.ErrUnsupportedFile):
		httputil.BadRequest(w, "Invalid file type. Please upload a CSV or XLSX file.")
	case errors.Is(err, bulk.ErrEmptyFile):
		httputil.BadRequest(w, "File is empty or could not be parsed.")
	case errors.Is(err, bulk.ErrParse):
		httputil.BadRequest(w, "Error parsing file.")
	case errors.Is(err, bulk.ErrInvalidSave), errors.Is(err, lookup.ErrMissingFields):
		httputil.BadRequest(w, "Missing required parameters.")
	case errors.Is(err, bulk.ErrIndexOutOfRange):
		httputil.BadRequest(w, "Record index out of range.")
	case errors.Is(err, bulk.ErrNotFound):
		httputil.NotFound(w, "Result not found or access denied.")
	case errors.Is(err, lookup.ErrNotFound):
		httputil.NotFound(w, "Search result not found.")
	case errors.Is(err, bulk.ErrInProgress):
		httputil.Conflict(w, "This file is already being processed.")
	default:
		respondSafeError(w, http.StatusInternalServerError, err, safeErrorMessage(err, fallbackMsg))
	}
}

// safeErrorMessage maps common internal error patterns to public-safe
// messages. Unrecognized errors get fallback.
func safeErrorMessage(internalErr error, fallback string) string {
	if internalErr == nil {
		return fallback
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Service temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	case strings.Contains(errStr, "permission") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "forbidden"):
		return "Access denied"

	default:
		return fallback
	}
}
