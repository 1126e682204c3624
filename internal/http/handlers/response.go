// Package handlers provides HTTP handler implementations for the admin API.
//
// This file defines the standard response utilities used across all endpoints:
// the structured error envelope, the translation of service errors into it,
// and the success writers. Every failure carries a stable `code`; server-side
// faults are logged with the request-scoped logger and reported to the client
// only as "internal server error".
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "DUPLICATE_REQUEST",
//	  "message": "2025年02月15日は既に申請済みです。...",
//	  "details": {"worker_name": "Taro", "request_date": "2025-02-15"}
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ngday-shift-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty"`
	// Stable, machine-readable code
	Code string `json:"code"`
	// Human-readable message (safe to show to users)
	Message string `json:"message"`
	// Structured context of a validation failure
	Details map[string]any `json:"details,omitempty"`
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged using the request-scoped logger from middleware.
func fail(c *gin.Context, status int, code, msg string) {
	failDetails(c, status, code, msg, nil)
}

func failDetails(c *gin.Context, status int, code, msg string, details map[string]any) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Details:   details,
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

// failErr reports err through the error taxonomy. The cause of an internal
// error is attached to the gin context so the access log records it.
func failErr(c *gin.Context, err error) {
	status, code, msg, details := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		middleware.LoggerFrom(c).Error().Err(err).Msg("service failure")
	}
	failDetails(c, status, code, msg, details)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
