package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"meaktask-api/internal/logging"
	"meaktask-api/internal/metrics"
	"meaktask-api/internal/models"
	"meaktask-api/internal/service"
)

// Client-facing messages
const (
	msgRegisterMissingFields = "Please provide all required fields"
	msgLoginMissingFields    = "Please provide email and password"
	msgDuplicateEmail        = "User with this email already exists"
	msgInvalidCredentials    = "Invalid credentials"
	msgNotAuthorized         = "Not authorized to access this route"
	msgServerError           = "Server error"
)

// statusFor maps a service error to its HTTP status and message.
// Anything unrecognized is an internal error.
func statusFor(err error, missingFieldsMsg string) (int, string) {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return http.StatusBadRequest, missingFieldsMsg
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Error()
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusBadRequest, msgDuplicateEmail
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, msgNotAuthorized
	default:
		return http.StatusInternalServerError, msgServerError
	}
}

// respondError writes the uniform failure body. 4xx outcomes are logged at
// info with the error category only; 5xx are logged with full detail.
func respondError(c *gin.Context, logger *slog.Logger, m *metrics.Metrics, op string, err error, missingFieldsMsg string) {
	status, message := statusFor(err, missingFieldsMsg)
	ctx := c.Request.Context()

	if status >= http.StatusInternalServerError {
		m.RecordAuth(op, metrics.OutcomeError)
		logging.LogError(ctx, logger, op+" failed", err)
	} else {
		m.RecordAuth(op, metrics.OutcomeRejected)
		logger.InfoContext(ctx, op+" rejected", "status", status, "category", category(err))
	}

	c.JSON(status, models.NewErrorResponse(message))
}

func category(err error) string {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return "missing_fields"
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, service.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, service.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "internal"
	}
}
