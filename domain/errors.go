package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodePersistence  ErrorCode = "PERSISTENCE"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrUserNotFound        = NewError(ErrCodeNotFound, "user not found")
	ErrDuplicateNationalID = NewError(ErrCodeConflict, "a user with this national id already exists")
	ErrInvalidCredentials  = NewError(ErrCodeUnauthorized, "invalid credentials")
	ErrInvalidPayload      = NewError(ErrCodeInvalid, "invalid payload")
	ErrEmptyPatch          = NewError(ErrCodeInvalid, "no fields to update")
)

// Invalid builds an INVALID error carrying field-level detail.
func Invalid(message string, err error) *Error {
	return WrapError(ErrCodeInvalid, message, err)
}

// Persistence wraps a store failure that is neither a conflict nor a miss.
func Persistence(op string, err error) *Error {
	return WrapError(ErrCodePersistence, fmt.Sprintf("user store: %s failed", op), err)
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
