package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrTooMany      = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "too many requests")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	// ErrUpstream carries the storage backend's {message} when it rejects a call.
	ErrUpstream = New("UPSTREAM_ERROR", http.StatusBadGateway, "backend request failed")
)

// Validation errors raised locally by the date rules and the request form.
var (
	ErrWeekend        = New("WEEKEND", http.StatusBadRequest, "date cannot be a weekend")
	ErrOutOfRange     = New("OUT_OF_RANGE", http.StatusBadRequest, "date is outside the selectable range")
	ErrEndBeforeStart = New("END_BEFORE_START", http.StatusBadRequest, "end date must be after the start date")
	ErrReasonRequired = New("REASON_REQUIRED", http.StatusBadRequest, "reason is required")
	ErrIncompleteForm = New("INCOMPLETE_FORM", http.StatusBadRequest, "form is incomplete")
)

// Workflow errors raised when the backend refuses a submission or a decision.
var (
	ErrApprovalFailed   = New("APPROVAL_FAILED", http.StatusBadGateway, "Error approving request")
	ErrRejectionFailed  = New("REJECTION_FAILED", http.StatusBadGateway, "Error rejecting request")
	ErrSubmissionFailed = New("SUBMISSION_FAILED", http.StatusBadGateway, "Error: failed to submit WFH request")
	ErrWithdrawalFailed = New("WITHDRAWAL_FAILED", http.StatusBadGateway, "Error: failed to submit withdrawal request")
	ErrSubmitInFlight   = New("SUBMISSION_IN_FLIGHT", http.StatusConflict, "a submission is already in progress")
	ErrWorkflowInFlight = New("WORKFLOW_IN_FLIGHT", http.StatusConflict, "a decision is already in progress")
	ErrNothingStaged    = New("NOTHING_STAGED", http.StatusConflict, "no request is staged for this action")
)

// Fetch errors raised by the chunked schedule loader.
var (
	ErrChunkFailed     = New("CHUNK_FAILED", http.StatusBadGateway, "failed to load part of the calendar")
	ErrAllChunksFailed = New("ALL_CHUNKS_FAILED", http.StatusBadGateway, "failed to load the calendar")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// UpstreamMessage extracts the backend-provided message from a collaborator error, if any.
func UpstreamMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Code != ErrUpstream.Code {
		return ""
	}
	if e.Message == ErrUpstream.Message {
		return ""
	}
	return e.Message
}
