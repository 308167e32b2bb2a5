package core

import (
	"errors"
	"fmt"
)

// Canonical error codes shared by the use-case, activity, and transport
// layers. Codes classify failures for callers: client mistakes and
// uniqueness violations must not be retried, service errors may be.
const (
	CodeClientError     = "CLIENT_ERROR"
	CodeDuplicateItem   = "DUPLICATE_ITEM"
	CodeNotFound        = "NOT_FOUND"
	CodeServiceError    = "SERVICE_ERROR"
	CodeWorkflowFailure = "WORKFLOW_FAILURE"
)

// Error is the canonical error envelope. It wraps an underlying cause
// with a stable code and optional structured details, and serializes
// cleanly into API responses and persisted task records.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	err     error
}

// NewError builds an Error with the given cause, code, and details.
// A nil cause is allowed for errors that originate at the call site.
func NewError(err error, code string, details map[string]any) *Error {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    code,
		Message: msg,
		Details: details,
		err:     err,
	}
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// CodeOf extracts the canonical code from an error chain. It returns
// CodeServiceError for errors that carry no explicit code, so unknown
// failures stay retryable.
func CodeOf(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return CodeServiceError
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code string) bool {
	var coreErr *Error
	return errors.As(err, &coreErr) && coreErr.Code == code
}
