// Package handlers provides the HTTP handlers of the local facade.
//
// Every error leaves through fail, so all endpoints share one envelope, and
// server-side failures are logged once with the request-scoped logger.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pos-client/internal/apiclient"
	"github.com/tbourn/go-pos-client/internal/http/middleware"
	"github.com/tbourn/go-pos-client/internal/services"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"invalid_sale"`
	// Human-readable message, safe to show on the till
	Message string `json:"message" example:"cart is empty"`
}

func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service or client error onto the envelope.
func failErr(c *gin.Context, err error) {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidPrice):
		fail(c, http.StatusBadRequest, ErrCodeInvalidSale, err.Error())
	case errors.Is(err, services.ErrUnknownMutation):
		fail(c, http.StatusNotFound, ErrCodeUnknownChange, err.Error())
	case errors.Is(err, services.ErrQueueFailed):
		fail(c, http.StatusInternalServerError, ErrCodeQueueFailed, "sale could not be saved offline; retry")
	case apiclient.Classify(err) == apiclient.FailureAuth:
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "session expired; sign in again")
	case errors.As(err, &apiErr) && apiclient.IsPermanent(err):
		// The server's message is meant for the cashier.
		status := apiErr.Status
		if status < 400 || status >= 500 {
			status = http.StatusUnprocessableEntity
		}
		fail(c, status, ErrCodeSaleRejected, apiErr.Message)
	case apiErr != nil,
		errors.Is(err, apiclient.ErrNetwork),
		errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "server unavailable")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
