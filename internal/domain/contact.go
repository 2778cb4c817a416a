package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a single address-book entry belonging to one Owner.
// Fields are unexported so that every assignment goes through a validating
// setter; a Contact obtained from NewContact is always well-formed.
type Contact struct {
	id      uuid.UUID
	ownerID uuid.UUID

	name    string
	surname string
	address string
	phone   string
	age     int

	createdAt time.Time
	updatedAt time.Time
}

// NewContact validates every field, first violation wins, and returns a
// Contact with a fresh identifier.
func NewContact(ownerID uuid.UUID, name, surname, address, phone string, age int) (*Contact, error) {
	if err := RequireNonBlank("name", name); err != nil {
		return nil, err
	}
	if err := RequireNonBlank("surname", surname); err != nil {
		return nil, err
	}
	if err := RequireNonBlank("address", address); err != nil {
		return nil, err
	}
	if err := RequirePhoneShape(phone); err != nil {
		return nil, err
	}
	if err := RequireNonNegative("age", age); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Contact{
		id:        uuid.New(),
		ownerID:   ownerID,
		name:      name,
		surname:   surname,
		address:   address,
		phone:     phone,
		age:       age,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructContact rebuilds a Contact from trusted storage without
// validation.
func ReconstructContact(id, ownerID uuid.UUID, name, surname, address, phone string, age int, createdAt, updatedAt time.Time) *Contact {
	return &Contact{
		id:        id,
		ownerID:   ownerID,
		name:      name,
		surname:   surname,
		address:   address,
		phone:     phone,
		age:       age,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the immutable identifier.
func (c *Contact) ID() uuid.UUID { return c.id }

// OwnerID returns the identifier of the owning account.
func (c *Contact) OwnerID() uuid.UUID { return c.ownerID }

// Name returns the first name.
func (c *Contact) Name() string { return c.name }

// Surname returns the last name.
func (c *Contact) Surname() string { return c.surname }

// Address returns the postal address.
func (c *Contact) Address() string { return c.address }

// Phone returns the phone number as entered.
func (c *Contact) Phone() string { return c.phone }

// Age returns the age in years.
func (c *Contact) Age() int { return c.age }

// CreatedAt returns the creation timestamp.
func (c *Contact) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last modification timestamp.
func (c *Contact) UpdatedAt() time.Time { return c.updatedAt }

// SetName replaces the first name. The prior value is kept on failure.
func (c *Contact) SetName(name string) error {
	if err := RequireNonBlank("name", name); err != nil {
		return err
	}
	c.name = name
	c.touch()
	return nil
}

// SetSurname replaces the last name. The prior value is kept on failure.
func (c *Contact) SetSurname(surname string) error {
	if err := RequireNonBlank("surname", surname); err != nil {
		return err
	}
	c.surname = surname
	c.touch()
	return nil
}

// SetAddress replaces the address. The prior value is kept on failure.
func (c *Contact) SetAddress(address string) error {
	if err := RequireNonBlank("address", address); err != nil {
		return err
	}
	c.address = address
	c.touch()
	return nil
}

// SetPhone replaces the phone number. The prior value is kept on failure.
func (c *Contact) SetPhone(phone string) error {
	if err := RequirePhoneShape(phone); err != nil {
		return err
	}
	c.phone = phone
	c.touch()
	return nil
}

// SetAge replaces the age. The prior value is kept on failure.
func (c *Contact) SetAge(age int) error {
	if err := RequireNonNegative("age", age); err != nil {
		return err
	}
	c.age = age
	c.touch()
	return nil
}

// Clone returns an independent copy with the same identity.
func (c *Contact) Clone() *Contact {
	cp := *c
	return &cp
}

func (c *Contact) touch() {
	c.updatedAt = time.Now().UTC()
}
