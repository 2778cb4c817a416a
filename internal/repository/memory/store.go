// Package memory provides a process-local store for the phonebook. It backs
// the "memory" database driver and the service tests, and enforces the same
// constraints as the SQL stores: unique login names and contacts that
// reference an existing owner.
package memory

import (
	"slices"
	"sort"
	"sync"

	"github.com/prn-tf/phonebook/internal/repository"
)

// Store holds owners and contacts behind a single mutex so that cross-table
// constraints are checked atomically.
type Store struct {
	mu sync.Mutex

	owners      map[string]*repository.OwnerRecord
	loginIndex  map[string]string // login name -> owner id
	contactIdx  map[string]int    // contact id -> position in contacts
	contacts    []*repository.ContactRecord
	ownerCounts map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		owners:      make(map[string]*repository.OwnerRecord),
		loginIndex:  make(map[string]string),
		contactIdx:  make(map[string]int),
		ownerCounts: make(map[string]int),
	}
}

// Owners returns an owner repository backed by the store.
func (s *Store) Owners() repository.OwnerRepository {
	return &ownerRepository{store: s}
}

// Contacts returns a contact repository backed by the store.
func (s *Store) Contacts() repository.ContactRepository {
	return &contactRepository{store: s}
}

// removeContact deletes the contact at position i and rebuilds the index of
// every contact after it. Callers hold mu.
func (s *Store) removeContact(i int) {
	c := s.contacts[i]
	delete(s.contactIdx, c.ID)
	s.ownerCounts[c.OwnerID]--
	if s.ownerCounts[c.OwnerID] == 0 {
		delete(s.ownerCounts, c.OwnerID)
	}
	s.contacts = slices.Delete(s.contacts, i, i+1)
	for j := i; j < len(s.contacts); j++ {
		s.contactIdx[s.contacts[j].ID] = j
	}
}

// sortedOwners returns copies of all owners ordered by login name. Callers
// hold mu.
func (s *Store) sortedOwners() []*repository.OwnerRecord {
	out := make([]*repository.OwnerRecord, 0, len(s.owners))
	for _, o := range s.owners {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginName < out[j].LoginName })
	return out
}
