// Package services defines the business logic for NG-day requests, the
// submission deadline, reminders and shift assignments. This file defines
// the validation error taxonomy returned by service methods.
//
// Every expected, caller-correctable failure is a *ValidationError carrying
// a stable machine-readable Code, a user-facing Message and structured
// Details. Callers match on the exported sentinels with errors.Is and read
// details with errors.As (or AsValidation). Anything else returned by a
// service is an internal fault: it should be logged in full and reported to
// the end user only as a generic internal error.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// ErrorCode is the machine-readable identifier of a ValidationError.
type ErrorCode string

const (
	CodeMissingField            ErrorCode = "MISSING_FIELD"
	CodeInvalidRange            ErrorCode = "INVALID_RANGE"
	CodeResourceNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	CodeDuplicateRequest        ErrorCode = "DUPLICATE_REQUEST"
	CodeDeadlineExceeded        ErrorCode = "DEADLINE_EXCEEDED"
	CodeNotNextMonth            ErrorCode = "NOT_NEXT_MONTH"
	CodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
)

// ValidationError is an expected, recoverable failure of a service call.
type ValidationError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements error.
func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Is makes every ValidationError match the sentinel with the same code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is. They carry no details.
var (
	ErrMissingField            = &ValidationError{Code: CodeMissingField, Message: "required field is missing"}
	ErrInvalidRange            = &ValidationError{Code: CodeInvalidRange, Message: "value out of range"}
	ErrResourceNotFound        = &ValidationError{Code: CodeResourceNotFound, Message: "resource not found"}
	ErrDuplicateRequest        = &ValidationError{Code: CodeDuplicateRequest, Message: "request already exists"}
	ErrDeadlineExceeded        = &ValidationError{Code: CodeDeadlineExceeded, Message: "submission deadline has passed"}
	ErrNotNextMonth            = &ValidationError{Code: CodeNotNextMonth, Message: "request date is not in next month"}
	ErrInvalidStatusTransition = &ValidationError{Code: CodeInvalidStatusTransition, Message: "request already processed"}
)

// ErrLineIDTaken is returned when a chat id is already linked to a user.
var ErrLineIDTaken = errors.New("line id already registered")

// AsValidation extracts the ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

const jpDate = "2006年01月02日"

var fieldLabels = map[string]string{
	"worker_id":    "ワーカーID",
	"admin_id":     "管理者ID",
	"request_id":   "申請ID",
	"request_date": "申請日",
	"shift_date":   "シフト日",
	"deadline_day": "締切日",
	"month":        "月",
	"line_id":      "LINE ID",
	"user_id":      "ユーザーID",
	"current_date": "現在の日付",
	"name":         "名前",
	"start_date":   "開始日",
	"end_date":     "終了日",
}

var resourceLabels = map[string]string{
	"worker":  "ワーカー",
	"admin":   "管理者",
	"request": "申請",
	"user":    "ユーザー",
}

var statusLabels = map[domain.RequestStatus]string{
	domain.StatusPending:  "保留中",
	domain.StatusApproved: "承認済み",
	domain.StatusRejected: "却下",
}

var actionLabels = map[string]string{
	"approve": "承認",
	"reject":  "却下",
}

func label(m map[string]string, k string) string {
	if v, ok := m[k]; ok {
		return v
	}
	return k
}

// MissingField reports a required input that was empty.
func MissingField(field string) *ValidationError {
	return &ValidationError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("%sは必須項目です。", label(fieldLabels, field)),
		Details: map[string]any{"field_name": field},
	}
}

// InvalidRange reports a value outside [min, max].
func InvalidRange(field string, value, lo, hi any) *ValidationError {
	return &ValidationError{
		Code: CodeInvalidRange,
		Message: fmt.Sprintf("%sは%vから%vの範囲で指定してください。\n指定された値: %v",
			label(fieldLabels, field), lo, hi, value),
		Details: map[string]any{"field_name": field, "value": value, "min_value": lo, "max_value": hi},
	}
}

// ResourceNotFound reports an id that did not resolve.
func ResourceNotFound(kind, id string) *ValidationError {
	return &ValidationError{
		Code:    CodeResourceNotFound,
		Message: fmt.Sprintf("%sが見つかりません。（ID: %s）", label(resourceLabels, kind), id),
		Details: map[string]any{"resource_type": kind, "resource_id": id},
	}
}

// DuplicateRequest reports an existing request for the same worker and date.
func DuplicateRequest(workerName string, d domain.Date) *ValidationError {
	return &ValidationError{
		Code: CodeDuplicateRequest,
		Message: fmt.Sprintf("%sは既に申請済みです。\n同じ日付を重複して申請することはできません。",
			d.Time().Format(jpDate)),
		Details: map[string]any{"worker_name": workerName, "request_date": d.String()},
	}
}

// DeadlineExceeded reports a submission after the monthly deadline day.
func DeadlineExceeded(deadlineDay int, current domain.Date) *ValidationError {
	return &ValidationError{
		Code: CodeDeadlineExceeded,
		Message: fmt.Sprintf("申請期限を過ぎています。\n申請は毎月%d日までに提出してください。\n現在の日付: %s",
			deadlineDay, current.Time().Format(jpDate)),
		Details: map[string]any{"deadline_day": deadlineDay, "current_date": current.String()},
	}
}

// NotNextMonth reports a request date outside the month after current.
func NotNextMonth(requestDate, current domain.Date) *ValidationError {
	next := current.YearMonth().Next()
	return &ValidationError{
		Code: CodeNotNextMonth,
		Message: fmt.Sprintf("申請できるのは翌月の日付のみです。\n申請可能な月: %04d年%02d月\n指定された日付: %s",
			next.Year, int(next.Month), requestDate.Time().Format(jpDate)),
		Details: map[string]any{
			"request_date": requestDate.String(),
			"current_date": current.String(),
			"next_month":   next.String(),
		},
	}
}

// InvalidStatusTransition reports an attempt to process a non-pending request.
func InvalidStatusTransition(current domain.RequestStatus, action string) *ValidationError {
	return &ValidationError{
		Code: CodeInvalidStatusTransition,
		Message: fmt.Sprintf("この申請は既に処理済みです。\n現在のステータス: %s\n保留中の申請のみ%sできます。",
			statusLabels[current], label(actionLabels, action)),
		Details: map[string]any{"current_status": string(current), "attempted_action": action},
	}
}
