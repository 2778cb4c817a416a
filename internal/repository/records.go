package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/phonebook/internal/domain"
)

// OwnerRecord is the stored form of an owner. Identifiers are opaque strings.
type OwnerRecord struct {
	ID           string
	Name         string
	Surname      string
	LoginName    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContactRecord is the stored form of a contact.
type ContactRecord struct {
	ID        string
	OwnerID   string
	Name      string
	Surname   string
	Address   string
	Phone     string
	Age       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOwnerRecord converts an Owner into its stored form.
func NewOwnerRecord(o *domain.Owner) *OwnerRecord {
	return &OwnerRecord{
		ID:           o.ID().String(),
		Name:         o.Name(),
		Surname:      o.Surname(),
		LoginName:    o.LoginName(),
		PasswordHash: o.PasswordHash(),
		CreatedAt:    o.CreatedAt(),
		UpdatedAt:    o.UpdatedAt(),
	}
}

// ToDomain rebuilds the Owner with a Directory holding contacts.
func (r *OwnerRecord) ToDomain(contacts []*domain.Contact) (*domain.Owner, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: owner %q has malformed id: %w", domain.ErrStorage, r.LoginName, err)
	}
	return domain.ReconstructOwner(id, r.Name, r.Surname, r.LoginName, r.PasswordHash, contacts, r.CreatedAt, r.UpdatedAt)
}

// NewContactRecord converts a Contact into its stored form.
func NewContactRecord(c *domain.Contact) *ContactRecord {
	return &ContactRecord{
		ID:        c.ID().String(),
		OwnerID:   c.OwnerID().String(),
		Name:      c.Name(),
		Surname:   c.Surname(),
		Address:   c.Address(),
		Phone:     c.Phone(),
		Age:       c.Age(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}

// ToDomain rebuilds the Contact without re-validating it.
func (r *ContactRecord) ToDomain() (*domain.Contact, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: contact has malformed id %q: %w", domain.ErrStorage, r.ID, err)
	}
	ownerID, err := uuid.Parse(r.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: contact %s has malformed owner id: %w", domain.ErrStorage, r.ID, err)
	}
	return domain.ReconstructContact(id, ownerID, r.Name, r.Surname, r.Address, r.Phone, r.Age, r.CreatedAt, r.UpdatedAt), nil
}

// ContactsToDomain converts a slice of records, stopping at the first bad one.
func ContactsToDomain(records []*ContactRecord) ([]*domain.Contact, error) {
	out := make([]*domain.Contact, 0, len(records))
	for _, r := range records {
		c, err := r.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
