// Package domain contains the core entities of the phonebook: owners, their
// contacts, the in-memory directory projection and the field validation rules.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is; the wrapping DomainError
// carries the human-readable detail.
var (
	// ===========================================
	// Validation Errors
	// ===========================================

	// ErrValidation indicates a field value was rejected by a validation rule.
	ErrValidation = errors.New("validation failed")

	// ErrIndexOutOfRange indicates a directory row position does not exist.
	ErrIndexOutOfRange = errors.New("row index out of range")

	// ===========================================
	// Owner Errors
	// ===========================================

	// ErrOwnerNotFound indicates no owner has the requested login name or ID.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrDuplicateLoginName indicates the login name is already taken.
	ErrDuplicateLoginName = errors.New("login name already exists")

	// ErrInvalidCredentials indicates login failed. Unknown login names and
	// wrong passwords are reported identically.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ===========================================
	// Contact Errors
	// ===========================================

	// ErrContactNotFound indicates the requested contact does not exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrContactNotOwned indicates the contact belongs to a different owner.
	ErrContactNotOwned = errors.New("contact does not belong to owner")

	// ===========================================
	// Storage Errors
	// ===========================================

	// ErrStorage indicates the backing store failed.
	ErrStorage = errors.New("storage failure")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected field or record (e.g. "phone", a login name).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// NewValidationError reports a rejected field.
func NewValidationError(field, message string) *DomainError {
	return NewDomainError(ErrValidation, message, field)
}

// WrapStorageError marks err as a storage failure unless it already carries a
// domain sentinel, in which case it is returned unchanged.
func WrapStorageError(err error, op string) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) || IsDomainSentinel(err) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IsDomainSentinel reports whether err wraps one of the package sentinels.
func IsDomainSentinel(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrIndexOutOfRange,
		ErrOwnerNotFound,
		ErrDuplicateLoginName,
		ErrInvalidCredentials,
		ErrContactNotFound,
		ErrContactNotOwned,
		ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
