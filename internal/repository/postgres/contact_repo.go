package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
)

// contactRepository implements repository.ContactRepository for PostgreSQL.
type contactRepository struct {
	db *DB
}

// NewContactRepository creates a new PostgreSQL contact repository.
func NewContactRepository(db *DB) repository.ContactRepository {
	return &contactRepository{db: db}
}

const contactColumns = `id::text, owner_id::text, name, surname, address, phone, age, created_at, updated_at`

func scanContact(row pgx.Row) (*repository.ContactRecord, error) {
	contact := &repository.ContactRecord{}
	err := row.Scan(
		&contact.ID,
		&contact.OwnerID,
		&contact.Name,
		&contact.Surname,
		&contact.Address,
		&contact.Phone,
		&contact.Age,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Create creates a new contact.
func (r *contactRepository) Create(ctx context.Context, contact *repository.ContactRecord) error {
	query := `
		INSERT INTO contacts (id, owner_id, name, surname, address, phone, age, created_at, updated_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		contact.ID,
		contact.OwnerID,
		contact.Name,
		contact.Surname,
		contact.Address,
		contact.Phone,
		contact.Age,
		contact.CreatedAt,
		contact.UpdatedAt,
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
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1::uuid`

	contact, err := scanContact(r.db.Pool.QueryRow(ctx, query, id))
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
		SET name = $1, surname = $2, address = $3, phone = $4, age = $5, updated_at = $6
		WHERE id = $7::uuid
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		contact.Name,
		contact.Surname,
		contact.Address,
		contact.Phone,
		contact.Age,
		contact.UpdatedAt,
		contact.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update contact: %w", domain.ErrStorage, err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", contact.ID)
	}
	return nil
}

// Delete deletes a contact by ID.
func (r *contactRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete contact: %w", domain.ErrStorage, err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", id)
	}
	return nil
}

// ListByOwner returns the owner's contacts in insertion order.
func (r *contactRepository) ListByOwner(ctx context.Context, ownerID string) ([]*repository.ContactRecord, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE owner_id = $1::uuid
		ORDER BY created_at, id
	`
	return r.query(ctx, "list contacts", query, ownerID)
}

// Search returns the owner's contacts whose name or surname start with the
// given tokens. starts_with is case-sensitive.
func (r *contactRepository) Search(ctx context.Context, ownerID, nameToken string, surnameToken *string) ([]*repository.ContactRecord, error) {
	if surnameToken == nil {
		query := `
			SELECT ` + contactColumns + `
			FROM contacts
			WHERE owner_id = $1::uuid
			  AND (starts_with(name, $2) OR starts_with(surname, $2))
			ORDER BY created_at, id
		`
		return r.query(ctx, "search contacts", query, ownerID, nameToken)
	}

	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE owner_id = $1::uuid
		  AND starts_with(name, $2)
		  AND starts_with(surname, $3)
		ORDER BY created_at, id
	`
	return r.query(ctx, "search contacts", query, ownerID, nameToken, *surnameToken)
}

// CountByOwner returns the number of contacts an owner has.
func (r *contactRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts WHERE owner_id = $1::uuid`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count contacts: %w", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *contactRepository) query(ctx context.Context, op, query string, args ...any) ([]*repository.ContactRecord, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
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
