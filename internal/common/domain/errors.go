// Package domain holds the error taxonomy and small value types shared by
// every layer of the service.
package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError so transports can map it to a status.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeExternalService   ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// DomainError is a typed error carrying a machine-readable code.
type DomainError struct {
	Code    ErrorCode
	Message string
	cause   error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *DomainError) Unwrap() error { return e.cause }

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// NewNotFoundError reports an unknown entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a stale expected version.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: message}
}

// NewInvalidTransitionError reports a status change outside the transition graph.
func NewInvalidTransitionError(from, to, reason string) *DomainError {
	msg := fmt.Sprintf("cannot transition from %s to %s", from, to)
	if reason != "" {
		msg += ": " + reason
	}
	return &DomainError{Code: CodeInvalidTransition, Message: msg}
}

// NewForbiddenError reports a caller acting outside its permissions.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: message}
}

// NewExternalServiceError wraps a failure of a downstream collaborator.
func NewExternalServiceError(service string, cause error) *DomainError {
	return &DomainError{Code: CodeExternalService, Message: service + " call failed", cause: cause}
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsValidation(err error) bool        { return CodeOf(err) == CodeValidation }
func IsNotFound(err error) bool          { return CodeOf(err) == CodeNotFound }
func IsConflict(err error) bool          { return CodeOf(err) == CodeConflict }
func IsInvalidTransition(err error) bool { return CodeOf(err) == CodeInvalidTransition }
func IsExternalService(err error) bool   { return CodeOf(err) == CodeExternalService }

// IsDomain reports whether err is any DomainError; such errors are final and
// never worth retrying.
func IsDomain(err error) bool { return CodeOf(err) != "" }
