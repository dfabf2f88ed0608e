package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"

	// Quota ledger error classes. All recoverable by the caller except
	// CodeLedgerInconsistency, which requires manual reconciliation.
	CodeCapacityExceeded      = "CAPACITY_EXCEEDED"
	CodeDateClosed            = "DATE_CLOSED"
	CodeConcurrentModify      = "CONCURRENT_MODIFICATION"
	CodeInvalidCapacity       = "INVALID_CAPACITY"
	CodeLedgerInconsistency   = "LEDGER_INCONSISTENCY"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// CapacityExceeded signals that a quota day cannot fit the requested party.
// Callers should re-query availability and offer alternative dates.
func CapacityExceeded(date string, requested, remaining int) *AppError {
	return &AppError{
		Code:       CodeCapacityExceeded,
		Message:    "Not enough remaining capacity for the requested date",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"date":      date,
			"requested": requested,
			"remaining": remaining,
		},
	}
}

// DateClosed signals that the trail is closed on the requested date,
// regardless of remaining capacity.
func DateClosed(date string) *AppError {
	return &AppError{
		Code:       CodeDateClosed,
		Message:    "The trail is closed on the requested date",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"date": date},
	}
}

// ConcurrentModify signals a lost optimistic-concurrency race on a quota day.
// The whole admission attempt may be retried once.
func ConcurrentModify(date string) *AppError {
	return &AppError{
		Code:       CodeConcurrentModify,
		Message:    "Quota was modified concurrently, please retry",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"date": date},
	}
}

// InvalidCapacity signals an admin capacity edit below the current reservation count.
func InvalidCapacity(date string, total, reserved int) *AppError {
	return &AppError{
		Code:       CodeInvalidCapacity,
		Message:    "Total capacity cannot be set below the current reservation count",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"date":     date,
			"total":    total,
			"reserved": reserved,
		},
	}
}

// LedgerInconsistency is the only fatal error class in the core: reserved
// capacity could not be released after a downstream failure, so the ledger may
// overstate occupancy until an admin reconciles it manually.
func LedgerInconsistency(message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeLedgerInconsistency,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    details,
		Err:        err,
	}
}

func InvalidStateTransition(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidStateTransition,
		Message:    fmt.Sprintf("Booking cannot transition from %s to %s", from, to),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"from": from,
			"to":   to,
		},
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
