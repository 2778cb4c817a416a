package memory

import (
	"context"
	"fmt"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
)

type ownerRepository struct {
	store *Store
}

func (r *ownerRepository) Create(_ context.Context, owner *repository.OwnerRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.loginIndex[owner.LoginName]; taken {
		return domain.NewDomainError(domain.ErrDuplicateLoginName, "login name is taken", owner.LoginName)
	}
	cp := *owner
	s.owners[owner.ID] = &cp
	s.loginIndex[owner.LoginName] = owner.ID
	return nil
}

func (r *ownerRepository) GetByID(_ context.Context, id string) (*repository.OwnerRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.owners[id]
	if !ok {
		return nil, domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", id)
	}
	cp := *o
	return &cp, nil
}

func (r *ownerRepository) GetByLoginName(_ context.Context, loginName string) (*repository.OwnerRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.loginIndex[loginName]
	if !ok {
		return nil, domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this login name", loginName)
	}
	cp := *s.owners[id]
	return &cp, nil
}

func (r *ownerRepository) Update(_ context.Context, owner *repository.OwnerRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.owners[owner.ID]
	if !ok {
		return domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", owner.ID)
	}
	if holder, taken := s.loginIndex[owner.LoginName]; taken && holder != owner.ID {
		return domain.NewDomainError(domain.ErrDuplicateLoginName, "login name is taken", owner.LoginName)
	}

	delete(s.loginIndex, current.LoginName)
	cp := *owner
	cp.CreatedAt = current.CreatedAt
	s.owners[owner.ID] = &cp
	s.loginIndex[owner.LoginName] = owner.ID
	return nil
}

func (r *ownerRepository) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.owners[id]
	if !ok {
		return domain.NewDomainError(domain.ErrOwnerNotFound, "no owner with this id", id)
	}
	if s.ownerCounts[id] > 0 {
		return fmt.Errorf("%w: owner %s still has contacts", domain.ErrStorage, id)
	}
	delete(s.loginIndex, o.LoginName)
	delete(s.owners, id)
	return nil
}

func (r *ownerRepository) ExistsByLoginName(_ context.Context, loginName string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.loginIndex[loginName]
	return ok, nil
}

func (r *ownerRepository) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult[repository.OwnerRecord], error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.sortedOwners()
	start := min(opts.Offset, len(all))
	end := len(all)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(all))
	}

	return &repository.ListResult[repository.OwnerRecord]{
		Items:  all[start:end],
		Total:  int64(len(all)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

var _ repository.OwnerRepository = (*ownerRepository)(nil)
