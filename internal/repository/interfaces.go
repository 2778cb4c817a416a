// Package repository defines the persistence port of the phonebook.
// These interfaces abstract storage so that the service layer works the same
// against SQLite, PostgreSQL or the in-memory store used in tests.
//
// All implementations must honor the same error contract:
//   - missing rows are reported as domain.ErrOwnerNotFound / domain.ErrContactNotFound
//   - a login-name uniqueness violation is reported as domain.ErrDuplicateLoginName
//   - any other failure is wrapped with domain.ErrStorage
package repository

import (
	"context"
	"strings"
)

// =============================================================================
// Owner Repository
// =============================================================================

// OwnerRepository defines data access for owner accounts.
type OwnerRepository interface {
	// Create inserts a new owner. The store enforces login-name uniqueness.
	Create(ctx context.Context, owner *OwnerRecord) error

	// GetByID retrieves an owner by identifier.
	GetByID(ctx context.Context, id string) (*OwnerRecord, error)

	// GetByLoginName retrieves an owner by login name.
	GetByLoginName(ctx context.Context, loginName string) (*OwnerRecord, error)

	// Update persists the credential fields of an existing owner.
	Update(ctx context.Context, owner *OwnerRecord) error

	// Delete deletes an owner by identifier. Contacts must be removed first.
	Delete(ctx context.Context, id string) error

	// ExistsByLoginName checks if an owner with the given login name exists.
	ExistsByLoginName(ctx context.Context, loginName string) (bool, error)

	// List returns owners ordered by login name with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[OwnerRecord], error)
}

// =============================================================================
// Contact Repository
// =============================================================================

// ContactRepository defines data access for contacts.
type ContactRepository interface {
	// Create inserts a new contact.
	Create(ctx context.Context, contact *ContactRecord) error

	// GetByID retrieves a contact by identifier.
	GetByID(ctx context.Context, id string) (*ContactRecord, error)

	// Update persists all mutable fields of an existing contact.
	Update(ctx context.Context, contact *ContactRecord) error

	// Delete deletes a contact by identifier.
	Delete(ctx context.Context, id string) error

	// ListByOwner returns every contact of an owner in insertion order.
	ListByOwner(ctx context.Context, ownerID string) ([]*ContactRecord, error)

	// Search returns the owner's contacts matching a case-sensitive prefix query.
	// With surnameToken nil, a contact matches when its name OR its surname
	// starts with nameToken. Otherwise its name must start with nameToken AND
	// its surname with *surnameToken. The result is never nil.
	Search(ctx context.Context, ownerID, nameToken string, surnameToken *string) ([]*ContactRecord, error)

	// CountByOwner returns the number of contacts an owner has.
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return. Zero means no limit.
	Limit int
}

// ListResult contains paginated list results.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// MatchesSearch applies the Search contract to a single record. Stores that
// filter in memory use it so that every backend agrees on the semantics.
func MatchesSearch(c *ContactRecord, nameToken string, surnameToken *string) bool {
	if surnameToken == nil {
		return strings.HasPrefix(c.Name, nameToken) || strings.HasPrefix(c.Surname, nameToken)
	}
	return strings.HasPrefix(c.Name, nameToken) && strings.HasPrefix(c.Surname, *surnameToken)
}
