package sqlite

import (
	"context"
	"fmt"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
)

// contactRepository implements repository.ContactRepository for SQLite.
type contactRepository struct {
	db *DB
}

// NewContactRepository creates a new SQLite contact repository.
func NewContactRepository(db *DB) repository.ContactRepository {
	return &contactRepository{db: db}
}

const contactColumns = `id, owner_id, name, surname, address, phone, age, created_at, updated_at`

func scanContact(s rowScanner) (*repository.ContactRecord, error) {
	contact := &repository.ContactRecord{}
	var createdAt, updatedAt string

	err := s.Scan(
		&contact.ID,
		&contact.OwnerID,
		&contact.Name,
		&contact.Surname,
		&contact.Address,
		&contact.Phone,
		&contact.Age,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	contact.CreatedAt = parseTime(createdAt)
	contact.UpdatedAt = parseTime(updatedAt)
	return contact, nil
}

// Create creates a new contact.
func (r *contactRepository) Create(ctx context.Context, contact *repository.ContactRecord) error {
	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		contact.ID,
		contact.OwnerID,
		contact.Name,
		contact.Surname,
		contact.Address,
		contact.Phone,
		contact.Age,
		formatTime(contact.CreatedAt),
		formatTime(contact.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewDomainError(domain.ErrOwnerNotFound, "contact owner does not exist", contact.OwnerID)
		}
		return fmt.Errorf("%w: failed to create contact: %w", domain.ErrStorage, err)
	}

	return nil
}

// GetByID retrieves a contact by ID.
func (r *contactRepository) GetByID(ctx context.Context, id string) (*repository.ContactRecord, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", id)
		}
		return nil, fmt.Errorf("%w: failed to get contact: %w", domain.ErrStorage, err)
	}
	return contact, nil
}

// Update updates an existing contact.
func (r *contactRepository) Update(ctx context.Context, contact *repository.ContactRecord) error {
	query := `
		UPDATE contacts
		SET name = ?, surname = ?, address = ?, phone = ?, age = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		contact.Name,
		contact.Surname,
		contact.Address,
		contact.Phone,
		contact.Age,
		formatTime(contact.UpdatedAt),
		contact.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update contact: %w", domain.ErrStorage, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", contact.ID)
	}

	return nil
}

// Delete deletes a contact by ID.
func (r *contactRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete contact: %w", domain.ErrStorage, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", id)
	}

	return nil
}

// ListByOwner returns the owner's contacts in insertion order.
func (r *contactRepository) ListByOwner(ctx context.Context, ownerID string) ([]*repository.ContactRecord, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE owner_id = ?
		ORDER BY created_at, id
	`
	return r.query(ctx, "list contacts", query, ownerID)
}

// Search returns the owner's contacts whose name or surname start with the
// given tokens. Prefixes are compared with substr so that matching stays
// case-sensitive (SQLite's LIKE is not).
func (r *contactRepository) Search(ctx context.Context, ownerID, nameToken string, surnameToken *string) ([]*repository.ContactRecord, error) {
	if surnameToken == nil {
		query := `
			SELECT ` + contactColumns + `
			FROM contacts
			WHERE owner_id = ?
			  AND (substr(name, 1, length(?)) = ? OR substr(surname, 1, length(?)) = ?)
			ORDER BY created_at, id
		`
		return r.query(ctx, "search contacts", query, ownerID, nameToken, nameToken, nameToken, nameToken)
	}

	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE owner_id = ?
		  AND substr(name, 1, length(?)) = ?
		  AND substr(surname, 1, length(?)) = ?
		ORDER BY created_at, id
	`
	return r.query(ctx, "search contacts", query, ownerID, nameToken, nameToken, *surnameToken, *surnameToken)
}

// CountByOwner returns the number of contacts an owner has.
func (r *contactRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count contacts: %w", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *contactRepository) query(ctx context.Context, op, query string, args ...any) ([]*repository.ContactRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to %s: %w", domain.ErrStorage, op, err)
	}
	defer rows.Close()

	contacts := []*repository.ContactRecord{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan contact: %w", domain.ErrStorage, err)
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating contacts: %w", domain.ErrStorage, err)
	}

	return contacts, nil
}

// Ensure contactRepository implements repository.ContactRepository.
var _ repository.ContactRepository = (*contactRepository)(nil)
