package sqlite

import (
	"context"
	"fmt"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
)

// ownerRepository implements repository.OwnerRepository for SQLite.
type ownerRepository struct {
	db *DB
}

// NewOwnerRepository creates a new SQLite owner repository.
func NewOwnerRepository(db *DB) repository.OwnerRepository {
	return &ownerRepository{db: db}
}

const ownerColumns = `id, name, surname, login_name, password_hash, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOwner(s rowScanner) (*repository.OwnerRecord, error) {
	owner := &repository.OwnerRecord{}
	var createdAt, updatedAt string

	err := s.Scan(
		&owner.ID,
		&owner.Name,
		&owner.Surname,
		&owner.LoginName,
		&owner.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	owner.CreatedAt = parseTime(createdAt)
	owner.UpdatedAt = parseTime(updatedAt)
	return owner, nil
}

// Create creates a new owner.
func (r *ownerRepository) Create(ctx context.Context, owner *repository.OwnerRecord) error {
	query := `
		INSERT INTO owners (` + ownerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		owner.ID,
		owner.Name,
		owner.Surname,
		owner.LoginName,
		owner.PasswordHash,
		formatTime(owner.CreatedAt),
		formatTime(owner.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrDuplicateLoginName, "login name is taken", owner.LoginName)
		}
		return fmt.Errorf("%w: failed to create owner: %w", domain.ErrStorage, err)
	}

	return nil
}

// GetByID retrieves an owner by ID.
func (r *ownerRepository) GetByID(ctx context.Context, id string) (*repository.OwnerRecord, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE id = ?`

	owner, err := scanOwner(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", id)
		}
		return nil, fmt.Errorf("%w: failed to get owner by ID: %w", domain.ErrStorage, err)
	}
	return owner, nil
}

// GetByLoginName retrieves an owner by login name.
func (r *ownerRepository) GetByLoginName(ctx context.Context, loginName string) (*repository.OwnerRecord, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE login_name = ?`

	owner, err := scanOwner(r.db.QueryRowContext(ctx, query, loginName))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this login name", loginName)
		}
		return nil, fmt.Errorf("%w: failed to get owner by login name: %w", domain.ErrStorage, err)
	}
	return owner, nil
}

// Update updates an existing owner.
func (r *ownerRepository) Update(ctx context.Context, owner *repository.OwnerRecord) error {
	query := `
		UPDATE owners
		SET name = ?, surname = ?, login_name = ?, password_hash = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		owner.Name,
		owner.Surname,
		owner.LoginName,
		owner.PasswordHash,
		formatTime(owner.UpdatedAt),
		owner.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrDuplicateLoginName, "login name is taken", owner.LoginName)
		}
		return fmt.Errorf("%w: failed to update owner: %w", domain.ErrStorage, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", owner.ID)
	}

	return nil
}

// Delete deletes an owner by ID.
func (r *ownerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM owners WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner %s still has contacts: %w", domain.ErrStorage, id, err)
		}
		return fmt.Errorf("%w: failed to delete owner: %w", domain.ErrStorage, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", id)
	}

	return nil
}

// ExistsByLoginName checks if an owner with the given login name exists.
func (r *ownerRepository) ExistsByLoginName(ctx context.Context, loginName string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM owners WHERE login_name = ?`, loginName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check login name existence: %w", domain.ErrStorage, err)
	}
	return count > 0, nil
}

// List returns owners ordered by login name.
func (r *ownerRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[repository.OwnerRecord], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM owners`).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: failed to count owners: %w", domain.ErrStorage, err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	query := `
		SELECT ` + ownerColumns + `
		FROM owners
		ORDER BY login_name
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list owners: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	owners := []*repository.OwnerRecord{}
	for rows.Next() {
		owner, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan owner: %w", domain.ErrStorage, err)
		}
		owners = append(owners, owner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating owners: %w", domain.ErrStorage, err)
	}

	return &repository.ListResult[repository.OwnerRecord]{
		Items:  owners,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Ensure ownerRepository implements repository.OwnerRepository.
var _ repository.OwnerRepository = (*ownerRepository)(nil)
