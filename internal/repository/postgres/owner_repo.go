package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
)

// ownerRepository implements repository.OwnerRepository for PostgreSQL.
type ownerRepository struct {
	db *DB
}

// NewOwnerRepository creates a new PostgreSQL owner repository.
func NewOwnerRepository(db *DB) repository.OwnerRepository {
	return &ownerRepository{db: db}
}

const ownerColumns = `id::text, name, surname, login_name, password_hash, created_at, updated_at`

func scanOwner(row pgx.Row) (*repository.OwnerRecord, error) {
	owner := &repository.OwnerRecord{}
	err := row.Scan(
		&owner.ID,
		&owner.Name,
		&owner.Surname,
		&owner.LoginName,
		&owner.PasswordHash,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return owner, nil
}

// Create creates a new owner.
func (r *ownerRepository) Create(ctx context.Context, owner *repository.OwnerRecord) error {
	query := `
		INSERT INTO owners (id, name, surname, login_name, password_hash, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		owner.ID,
		owner.Name,
		owner.Surname,
		owner.LoginName,
		owner.PasswordHash,
		owner.CreatedAt,
		owner.UpdatedAt,
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
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE id = $1::uuid`

	owner, err := scanOwner(r.db.Pool.QueryRow(ctx, query, id))
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
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE login_name = $1`

	owner, err := scanOwner(r.db.Pool.QueryRow(ctx, query, loginName))
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
		SET name = $1, surname = $2, login_name = $3, password_hash = $4, updated_at = $5
		WHERE id = $6::uuid
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		owner.Name,
		owner.Surname,
		owner.LoginName,
		owner.PasswordHash,
		owner.UpdatedAt,
		owner.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrDuplicateLoginName, "login name is taken", owner.LoginName)
		}
		return fmt.Errorf("%w: failed to update owner: %w", domain.ErrStorage, err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", owner.ID)
	}
	return nil
}

// Delete deletes an owner by ID.
func (r *ownerRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM owners WHERE id = $1::uuid`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner %s still has contacts: %w", domain.ErrStorage, id, err)
		}
		return fmt.Errorf("%w: failed to delete owner: %w", domain.ErrStorage, err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", id)
	}
	return nil
}

// ExistsByLoginName checks if an owner with the given login name exists.
func (r *ownerRepository) ExistsByLoginName(ctx context.Context, loginName string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM owners WHERE login_name = $1)`, loginName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check login name existence: %w", domain.ErrStorage, err)
	}
	return exists, nil
}

// List returns owners ordered by login name.
func (r *ownerRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[repository.OwnerRecord], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM owners`).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: failed to count owners: %w", domain.ErrStorage, err)
	}

	// A NULL limit means no limit.
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}

	query := `
		SELECT ` + ownerColumns + `
		FROM owners
		ORDER BY login_name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, opts.Offset)
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
