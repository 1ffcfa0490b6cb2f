package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a business failure surfaced to callers.
type ErrorCode string

const (
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeValidation           ErrorCode = "VALIDATION"
	CodeAvailabilityConflict ErrorCode = "AVAILABILITY_CONFLICT"
	CodePriorityTie          ErrorCode = "PRIORITY_TIE"
	CodeCapacityExceeded     ErrorCode = "CAPACITY_EXCEEDED"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeIllegalTransition    ErrorCode = "ILLEGAL_TRANSITION"
	CodeConflict             ErrorCode = "CONFLICT"
)

// DomainError is a typed business outcome. None of these are retried: each
// reflects the state of the data, not a transient fault.
type DomainError struct {
	Code    ErrorCode
	Message string
	// Details carries a structured payload for display (for example the full
	// availability result behind an AVAILABILITY_CONFLICT).
	Details interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFoundError reports a missing or inactive entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// NewValidationError reports malformed input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// NewInvalidStateError reports a status change outside the transition table.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Code:    CodeIllegalTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Details: map[string]string{"from": from, "to": to},
	}
}

// NewForbiddenError reports an actor lacking the required authority.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: message}
}

// NewConflictError reports a concurrent-modification clash.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: message}
}

// NewAvailabilityConflictError reports that the requested window collides
// with committed bookings. details is the availability result.
func NewAvailabilityConflictError(message string, details interface{}) *DomainError {
	return &DomainError{Code: CodeAvailabilityConflict, Message: message, Details: details}
}

// NewPriorityTieError reports two HIGH-priority bookings colliding.
func NewPriorityTieError(message string, details interface{}) *DomainError {
	return &DomainError{Code: CodePriorityTie, Message: message, Details: details}
}

// NewCapacityExceededError reports a saturated technical-support block.
func NewCapacityExceededError(message string, details interface{}) *DomainError {
	return &DomainError{Code: CodeCapacityExceeded, Message: message, Details: details}
}

// AsDomainError unwraps err into a *DomainError when it is one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code ErrorCode) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}
