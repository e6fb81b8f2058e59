package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrorCode classifies every failure a service operation can surface.
type ErrorCode string

const (
	CodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeBadUserInput    ErrorCode = "BAD_USER_INPUT"
	CodeInternal        ErrorCode = "INTERNAL"
)

// Error is the typed application error carried across the service boundary.
// It keeps enough context (required roles, resource/action, entity id) for
// the transport layer to render a precise message.
type Error struct {
	Code          ErrorCode
	Message       string
	RequiredRoles []string
	Resource      string
	Action        string
	EntityType    string
	EntityID      string
	cause         error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the error code, defaulting to INTERNAL for untyped errors.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ErrUnauthenticated marks a request with no principal.
func ErrUnauthenticated(action string) *Error {
	return &Error{
		Code:    CodeUnauthenticated,
		Message: "authentication required for " + action,
		Action:  action,
	}
}

// ErrForbidden marks a failed role gate, carrying the roles that would have
// been allowed.
func ErrForbidden(action string, requiredRoles ...string) *Error {
	return &Error{
		Code:          CodeForbidden,
		Message:       fmt.Sprintf("access denied for %s: requires one of [%s]", action, strings.Join(requiredRoles, ", ")),
		RequiredRoles: requiredRoles,
		Action:        action,
	}
}

// ErrForbiddenOwnership marks a failed ownership gate.
func ErrForbiddenOwnership(action string) *Error {
	return &Error{
		Code:    CodeForbidden,
		Message: "access denied for " + action + ": not the owner of this entity",
		Action:  action,
	}
}

// ErrNotFound marks an absent entity.
func ErrNotFound(entityType, entityID string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    strings.ToLower(entityType) + " not found",
		EntityType: entityType,
		EntityID:   entityID,
	}
}

// ErrBadInput marks a validation failure.
func ErrBadInput(message string) *Error {
	return &Error{Code: CodeBadUserInput, Message: message}
}

// ErrInternal wraps an unexpected persistence or dependency failure.
func ErrInternal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, cause: cause}
}

// asLoadError maps a repository read error: record-not-found becomes
// NOT_FOUND, anything else is INTERNAL.
func asLoadError(err error, entityType, entityID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound(entityType, entityID)
	}
	return ErrInternal("failed to load "+strings.ToLower(entityType), err)
}
