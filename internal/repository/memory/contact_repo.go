package memory

import (
	"context"
	"fmt"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
)

type contactRepository struct {
	store *Store
}

func (r *contactRepository) Create(_ context.Context, contact *repository.ContactRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[contact.OwnerID]; !ok {
		return domain.NewDomainError(domain.ErrOwnerNotFound, "contact owner does not exist", contact.OwnerID)
	}
	if _, dup := s.contactIdx[contact.ID]; dup {
		return fmt.Errorf("%w: contact %s already exists", domain.ErrStorage, contact.ID)
	}

	cp := *contact
	s.contactIdx[contact.ID] = len(s.contacts)
	s.contacts = append(s.contacts, &cp)
	s.ownerCounts[contact.OwnerID]++
	return nil
}

func (r *contactRepository) GetByID(_ context.Context, id string) (*repository.ContactRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.contactIdx[id]
	if !ok {
		return nil, domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", id)
	}
	cp := *s.contacts[i]
	return &cp, nil
}

func (r *contactRepository) Update(_ context.Context, contact *repository.ContactRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.contactIdx[contact.ID]
	if !ok {
		return domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", contact.ID)
	}
	current := s.contacts[i]
	cp := *contact
	cp.OwnerID = current.OwnerID
	cp.CreatedAt = current.CreatedAt
	s.contacts[i] = &cp
	return nil
}

func (r *contactRepository) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.contactIdx[id]
	if !ok {
		return domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", id)
	}
	s.removeContact(i)
	return nil
}

func (r *contactRepository) ListByOwner(_ context.Context, ownerID string) ([]*repository.ContactRecord, error) {
	return r.filter(ownerID, func(*repository.ContactRecord) bool { return true }), nil
}

func (r *contactRepository) Search(_ context.Context, ownerID, nameToken string, surnameToken *string) ([]*repository.ContactRecord, error) {
	return r.filter(ownerID, func(c *repository.ContactRecord) bool {
		return repository.MatchesSearch(c, nameToken, surnameToken)
	}), nil
}

func (r *contactRepository) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(s.ownerCounts[ownerID]), nil
}

// filter returns copies of the owner's matching contacts in insertion order.
func (r *contactRepository) filter(ownerID string, keep func(*repository.ContactRecord) bool) []*repository.ContactRecord {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*repository.ContactRecord{}
	for _, c := range s.contacts {
		if c.OwnerID != ownerID || !keep(c) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out
}

var _ repository.ContactRepository = (*contactRepository)(nil)
