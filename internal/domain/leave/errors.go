package leave

import (
	"errors"
	"fmt"
)

// ValidationError rejects a request that violates a policy or input rule.
// Code is machine-readable and stable.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationf(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError rejects an actor without authority over the operation.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func authorizationf(format string, args ...any) *AuthorizationError {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

// StateError rejects an operation on a request not in the required status.
type StateError struct {
	Current Status
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

func statef(current Status, format string, args ...any) *StateError {
	return &StateError{Current: current, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotFound = errors.New("leave request not found")

	// ErrRHQuotaExceeded fires when a second restricted holiday is requested
	// or debited after one has already been approved in the year.
	ErrRHQuotaExceeded = &ValidationError{Code: "rh_quota_exceeded", Message: "restricted holiday quota already used for this year"}
)
