// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tollgate-io/tollgate/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// denyReasons maps denial errors to the stable reason identifier carried in
// 403 bodies. The identifiers match the verifier's deny reasons.
var denyReasons = []struct {
	err    error
	reason string
}{
	{apperrors.ErrPassNotFound, "pass_not_found"},
	{apperrors.ErrOwnershipMismatch, "ownership_mismatch"},
	{apperrors.ErrScopeMismatch, "scope_mismatch"},
	{apperrors.ErrPassExhausted, "exhausted"},
	{apperrors.ErrPassExpired, "expired"},
	{apperrors.ErrBadSignature, "bad_signature"},
}

// HandleErrorGin maps domain errors to HTTP status codes and returns a JSON
// response using Gin. Denial errors become 403 with a machine-readable
// reason; infrastructure failures map to 502/503 without leaking upstream
// details.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var statusCode int
	var errorResponse ErrorResponse

	switch {
	case isDenial(err):
		statusCode = http.StatusForbidden
		errorResponse = ErrorResponse{
			Error:  "access_denied",
			Reason: denyReason(err),
		}

	case apperrors.Is(err, apperrors.ErrResourceNotFound), apperrors.Is(err, apperrors.ErrNotFound):
		statusCode = http.StatusNotFound
		errorResponse = ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		statusCode = http.StatusUnprocessableEntity
		errorResponse = ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrContentUnavailable):
		statusCode = http.StatusBadGateway
		errorResponse = ErrorResponse{
			Error:   "content_unavailable",
			Message: "The resource content could not be retrieved",
		}

	case apperrors.Is(err, apperrors.ErrDecryptionAuthorization):
		statusCode = http.StatusBadGateway
		errorResponse = ErrorResponse{
			Error:   "decryption_failed",
			Message: "The decryption service rejected the authorization",
		}

	case apperrors.Is(err, apperrors.ErrLedgerUnavailable):
		statusCode = http.StatusServiceUnavailable
		errorResponse = ErrorResponse{
			Error:   "ledger_unavailable",
			Message: "The ledger could not be reached",
		}

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		statusCode = http.StatusForbidden
		errorResponse = ErrorResponse{
			Error: "access_denied",
		}

	default:
		// For unknown/internal errors, don't expose details to the client
		statusCode = http.StatusInternalServerError
		errorResponse = ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}

	// Log the full error details (including wrapped errors)
	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

func isDenial(err error) bool {
	for _, d := range denyReasons {
		if apperrors.Is(err, d.err) {
			return true
		}
	}
	return false
}

func denyReason(err error) string {
	for _, d := range denyReasons {
		if apperrors.Is(err, d.err) {
			return d.reason
		}
	}
	return ""
}
