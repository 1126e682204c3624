// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Transport failures (malformed JSON, unparsable path or query values, routing
// misses) use the lowercase codes below. Service validation failures keep the
// upper-case code of the services taxonomy (e.g. "DUPLICATE_REQUEST") so that
// clients branch on the same identifiers the chat layer shows to workers.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "DEADLINE_EXCEEDED",
//	  "message": "申請期限を過ぎています。...",
//	  "details": {"deadline_day": 10, "current_date": "2025-01-15"}
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/ngday-shift-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

const internalMessage = "internal server error"

// statusFor maps a validation code to its HTTP status.
func statusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeMissingField, services.CodeInvalidRange:
		return http.StatusBadRequest
	case services.CodeResourceNotFound:
		return http.StatusNotFound
	case services.CodeDuplicateRequest, services.CodeInvalidStatusTransition:
		return http.StatusConflict
	case services.CodeDeadlineExceeded, services.CodeNotNextMonth:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// classify turns a service error into (status, code, message, details).
// Errors outside the taxonomy become a 500 with a fixed message; the cause
// is only logged.
func classify(err error) (int, string, string, map[string]any) {
	if ve, ok := services.AsValidation(err); ok {
		return statusFor(ve.Code), string(ve.Code), ve.Message, ve.Details
	}
	if errors.Is(err, services.ErrLineIDTaken) {
		return http.StatusConflict, ErrCodeConflict, err.Error(), nil
	}
	return http.StatusInternalServerError, ErrCodeInternal, internalMessage, nil
}
