package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/phonebook/internal/pkg/crypto"
)

// Owner is an account holding login credentials and a private Directory of
// Contacts. The password is kept only as a bcrypt hash.
type Owner struct {
	id uuid.UUID

	name      string
	surname   string
	loginName string

	// passwordHash is never exposed outside the package except for persistence.
	passwordHash string

	directory *Directory

	createdAt time.Time
	updatedAt time.Time
}

// NewOwner validates the credentials, hashes the password and returns an
// Owner with a fresh identifier and an empty Directory.
func NewOwner(name, surname, loginName, password string) (*Owner, error) {
	if err := RequireNonBlank("name", name); err != nil {
		return nil, err
	}
	if err := RequireNonBlank("surname", surname); err != nil {
		return nil, err
	}
	if err := RequireNonBlank("login_name", loginName); err != nil {
		return nil, err
	}
	if err := RequireStrongPassword(password); err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Owner{
		id:           uuid.New(),
		name:         name,
		surname:      surname,
		loginName:    loginName,
		passwordHash: hash,
		directory:    NewDirectory(nil),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructOwner rebuilds an Owner loaded from storage. The login name must
// be non-blank and passwordHash must be a well-formed bcrypt hash; the
// Directory is populated from contacts in the given order.
func ReconstructOwner(id uuid.UUID, name, surname, loginName, passwordHash string, contacts []*Contact, createdAt, updatedAt time.Time) (*Owner, error) {
	if err := RequireNonBlank("login_name", loginName); err != nil {
		return nil, err
	}
	if err := crypto.ValidatePasswordHash(passwordHash); err != nil {
		return nil, NewValidationError("password", err.Error())
	}

	return &Owner{
		id:           id,
		name:         name,
		surname:      surname,
		loginName:    loginName,
		passwordHash: passwordHash,
		directory:    NewDirectory(contacts),
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

// ID returns the immutable identifier.
func (o *Owner) ID() uuid.UUID { return o.id }

// Name returns the display name.
func (o *Owner) Name() string { return o.name }

// Surname returns the display surname.
func (o *Owner) Surname() string { return o.surname }

// LoginName returns the login name.
func (o *Owner) LoginName() string { return o.loginName }

// PasswordHash returns the bcrypt hash for persistence.
func (o *Owner) PasswordHash() string { return o.passwordHash }

// CreatedAt returns the creation timestamp.
func (o *Owner) CreatedAt() time.Time { return o.createdAt }

// UpdatedAt returns the last modification timestamp.
func (o *Owner) UpdatedAt() time.Time { return o.updatedAt }

// Directory returns the owned projection. Callers mutate it through its
// methods and never replace it.
func (o *Owner) Directory() *Directory { return o.directory }

// SetName replaces the display name.
func (o *Owner) SetName(name string) error {
	if err := RequireNonBlank("name", name); err != nil {
		return err
	}
	o.name = name
	o.touch()
	return nil
}

// SetSurname replaces the display surname.
func (o *Owner) SetSurname(surname string) error {
	if err := RequireNonBlank("surname", surname); err != nil {
		return err
	}
	o.surname = surname
	o.touch()
	return nil
}

// SetLoginName replaces the login name. Global uniqueness is not checked here.
func (o *Owner) SetLoginName(loginName string) error {
	if err := RequireNonBlank("login_name", loginName); err != nil {
		return err
	}
	o.loginName = loginName
	o.touch()
	return nil
}

// SetPassword checks password strength and stores a new hash.
func (o *Owner) SetPassword(password string) error {
	if err := RequireStrongPassword(password); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	o.passwordHash = hash
	o.touch()
	return nil
}

// CheckPassword reports whether candidate matches the stored hash.
func (o *Owner) CheckPassword(candidate string) bool {
	return crypto.ComparePassword(o.passwordHash, candidate)
}

// OwnerSnapshot is an opaque copy of an Owner's credential fields, used to
// roll back in-memory edits when persisting them fails.
type OwnerSnapshot struct {
	name, surname, loginName, passwordHash string
	updatedAt                              time.Time
}

// Snapshot captures the mutable credential fields.
func (o *Owner) Snapshot() OwnerSnapshot {
	return OwnerSnapshot{
		name:         o.name,
		surname:      o.surname,
		loginName:    o.loginName,
		passwordHash: o.passwordHash,
		updatedAt:    o.updatedAt,
	}
}

// Restore puts back credential fields captured by Snapshot.
func (o *Owner) Restore(s OwnerSnapshot) {
	o.name = s.name
	o.surname = s.surname
	o.loginName = s.loginName
	o.passwordHash = s.passwordHash
	o.updatedAt = s.updatedAt
}

func (o *Owner) touch() {
	o.updatedAt = time.Now().UTC()
}
