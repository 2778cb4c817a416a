package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/lock"
	"github.com/prn-tf/phonebook/internal/metrics"
	"github.com/prn-tf/phonebook/internal/repository"
)

// PhonebookConfig holds facade settings.
type PhonebookConfig struct {
	// LockTTL bounds how long a login-name lock survives a crashed holder.
	LockTTL time.Duration

	// LockRetries is the number of extra attempts when the lock is busy.
	LockRetries int

	// LockRetryDelay is the pause between attempts.
	LockRetryDelay time.Duration
}

// DefaultPhonebookConfig returns the default facade configuration.
func DefaultPhonebookConfig() PhonebookConfig {
	return PhonebookConfig{
		LockTTL:        10 * time.Second,
		LockRetries:    20,
		LockRetryDelay: 50 * time.Millisecond,
	}
}

// PhonebookService is the action facade. Every mutation validates, then
// persists, then updates the owner's Directory, so a storage failure never
// leaves the Directory ahead of the store.
type PhonebookService struct {
	owners   repository.OwnerRepository
	contacts repository.ContactRepository
	locker   lock.Locker
	metrics  *metrics.Metrics
	config   PhonebookConfig
	logger   zerolog.Logger
}

// NewPhonebookService creates a new PhonebookService. m may be nil.
func NewPhonebookService(
	owners repository.OwnerRepository,
	contacts repository.ContactRepository,
	locker lock.Locker,
	m *metrics.Metrics,
	config PhonebookConfig,
	logger zerolog.Logger,
) *PhonebookService {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultPhonebookConfig().LockTTL
	}
	return &PhonebookService{
		owners:   owners,
		contacts: contacts,
		locker:   locker,
		metrics:  m,
		config:   config,
		logger:   logger.With().Str("service", "phonebook").Logger(),
	}
}

// =============================================================================
// Owner Operations
// =============================================================================

// FindOwner loads an owner and its contacts. The Directory is ordered by
// name, then surname, ignoring case.
func (s *PhonebookService) FindOwner(ctx context.Context, loginName string) (*domain.Owner, error) {
	defer s.metrics.ObserveDuration("find_owner", time.Now())

	rec, err := s.owners.GetByLoginName(ctx, loginName)
	if err != nil {
		return nil, s.storageFailed("find_owner", err)
	}

	records, err := s.contacts.ListByOwner(ctx, rec.ID)
	if err != nil {
		return nil, s.storageFailed("list_contacts", err)
	}

	contacts, err := repository.ContactsToDomain(records)
	if err != nil {
		return nil, s.storageFailed("list_contacts", err)
	}
	sortContacts(contacts)

	owner, err := rec.ToDomain(contacts)
	if err != nil {
		return nil, s.storageFailed("find_owner", err)
	}
	return owner, nil
}

// CreateOwner persists a new owner. The existence check and the insert run
// while holding the lock for the login name; the store's unique constraint
// still rejects a duplicate that slips past it.
func (s *PhonebookService) CreateOwner(ctx context.Context, owner *domain.Owner) error {
	defer s.metrics.ObserveDuration("create_owner", time.Now())

	err := s.withLoginLock(ctx, owner.LoginName(), func() error {
		if err := s.CheckLoginNameAvailable(ctx, owner.LoginName()); err != nil {
			return err
		}
		if err := s.owners.Create(ctx, repository.NewOwnerRecord(owner)); err != nil {
			return s.duplicateOrStorage("create_owner", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.OwnerCreated()
	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("login_name", owner.LoginName()).
		Msg("owner created")
	return nil
}

// DeleteOwner removes every contact of the session owner, one at a time,
// and then the owner itself. A failure part-way leaves the contacts deleted
// so far gone from both the store and the Directory.
func (s *PhonebookService) DeleteOwner(ctx context.Context, session *Session) error {
	defer s.metrics.ObserveDuration("delete_owner", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return err
	}
	defer session.release()

	dir := owner.Directory()
	for _, c := range dir.Contacts() {
		if err := s.contacts.Delete(ctx, c.ID().String()); err != nil {
			s.logger.Error().Err(err).
				Str("owner_id", owner.ID().String()).
				Str("contact_id", c.ID().String()).
				Int("remaining", dir.Len()).
				Msg("cascade delete stopped")
			return s.storageFailed("delete_contact", err)
		}
		dir.Delete(c)
		s.metrics.ContactOp("delete")
	}

	if err := s.owners.Delete(ctx, owner.ID().String()); err != nil {
		return s.storageFailed("delete_owner", err)
	}
	session.closed = true

	s.metrics.OwnerDeleted()
	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("login_name", owner.LoginName()).
		Msg("owner deleted")
	return nil
}

// CheckLoginNameAvailable fails with domain.ErrDuplicateLoginName when an
// owner already uses loginName.
func (s *PhonebookService) CheckLoginNameAvailable(ctx context.Context, loginName string) error {
	exists, err := s.owners.ExistsByLoginName(ctx, loginName)
	if err != nil {
		return s.storageFailed("check_login_name", err)
	}
	if exists {
		s.metrics.DuplicateLogin()
		return domain.NewDomainError(domain.ErrDuplicateLoginName, "login name is taken", loginName)
	}
	return nil
}

// UpdateOwner persists the session owner's credential fields. The Directory
// is not touched.
func (s *PhonebookService) UpdateOwner(ctx context.Context, session *Session) error {
	owner, err := session.acquire()
	if err != nil {
		return err
	}
	defer session.release()

	return s.updateOwner(ctx, owner)
}

// ChangeLoginName moves the session owner to a new login name. The owner is
// left unchanged when the name is taken or cannot be persisted.
func (s *PhonebookService) ChangeLoginName(ctx context.Context, session *Session, loginName string) error {
	defer s.metrics.ObserveDuration("change_login_name", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return err
	}
	defer session.release()

	if loginName == owner.LoginName() {
		return nil
	}

	previous := owner.LoginName()
	snapshot := owner.Snapshot()
	if err := owner.SetLoginName(loginName); err != nil {
		return err
	}

	err = s.withLoginLock(ctx, loginName, func() error {
		if err := s.CheckLoginNameAvailable(ctx, loginName); err != nil {
			return err
		}
		return s.updateOwner(ctx, owner)
	})
	if err != nil {
		owner.Restore(snapshot)
		return err
	}

	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("from", previous).
		Str("login_name", loginName).
		Msg("login name changed")
	return nil
}

// ChangePassword replaces the session owner's password after checking the
// current one.
func (s *PhonebookService) ChangePassword(ctx context.Context, session *Session, current, next string) error {
	defer s.metrics.ObserveDuration("change_password", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return err
	}
	defer session.release()

	if !owner.CheckPassword(current) {
		return domain.ErrInvalidCredentials
	}

	snapshot := owner.Snapshot()
	if err := owner.SetPassword(next); err != nil {
		return err
	}
	if err := s.updateOwner(ctx, owner); err != nil {
		owner.Restore(snapshot)
		return err
	}

	s.logger.Info().Str("owner_id", owner.ID().String()).Msg("password changed")
	return nil
}

// =============================================================================
// Sessions
// =============================================================================

// SignUp creates a new owner and opens a session for it.
func (s *PhonebookService) SignUp(ctx context.Context, name, surname, loginName, password string) (*Session, error) {
	owner, err := domain.NewOwner(name, surname, loginName, password)
	if err != nil {
		return nil, err
	}
	if err := s.CreateOwner(ctx, owner); err != nil {
		return nil, err
	}
	return NewSession(owner), nil
}

// Login opens a session for the owner with the given credentials. Unknown
// login names and wrong passwords both fail with domain.ErrInvalidCredentials.
func (s *PhonebookService) Login(ctx context.Context, loginName, password string) (*Session, error) {
	defer s.metrics.ObserveDuration("login", time.Now())

	owner, err := s.FindOwner(ctx, loginName)
	if err != nil {
		if errors.Is(err, domain.ErrOwnerNotFound) {
			s.logger.Debug().Str("login_name", loginName).Msg("unknown login name")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !owner.CheckPassword(password) {
		s.logger.Debug().Str("login_name", loginName).Msg("wrong password")
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("login_name", loginName).
		Int("contacts", owner.Directory().Len()).
		Msg("owner logged in")
	return NewSession(owner), nil
}

// =============================================================================
// Contact Operations
// =============================================================================

// AddContact persists a new contact of the session owner and appends it to
// the Directory.
func (s *PhonebookService) AddContact(ctx context.Context, session *Session, contact *domain.Contact) error {
	defer s.metrics.ObserveDuration("add_contact", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return err
	}
	defer session.release()

	if err := requireOwned(owner, contact); err != nil {
		return err
	}

	if err := s.contacts.Create(ctx, repository.NewContactRecord(contact)); err != nil {
		return s.storageFailed("add_contact", err)
	}
	owner.Directory().Add(contact)

	s.metrics.ContactOp("add")
	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("contact_id", contact.ID().String()).
		Msg("contact added")
	return nil
}

// DeleteContact removes a contact from the store and then from the Directory.
func (s *PhonebookService) DeleteContact(ctx context.Context, session *Session, contact *domain.Contact) error {
	defer s.metrics.ObserveDuration("delete_contact", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return err
	}
	defer session.release()

	return s.deleteContact(ctx, owner, contact)
}

// UpdateContact persists a contact's fields and refreshes its Directory row.
func (s *PhonebookService) UpdateContact(ctx context.Context, session *Session, contact *domain.Contact) error {
	defer s.metrics.ObserveDuration("update_contact", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return err
	}
	defer session.release()

	if err := requireOwned(owner, contact); err != nil {
		return err
	}

	if err := s.contacts.Update(ctx, repository.NewContactRecord(contact)); err != nil {
		return s.storageFailed("update_contact", err)
	}
	if !owner.Directory().Modify(contact) {
		s.logger.Warn().
			Str("owner_id", owner.ID().String()).
			Str("contact_id", contact.ID().String()).
			Msg("updated contact has no directory row")
	}

	s.metrics.ContactOp("update")
	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("contact_id", contact.ID().String()).
		Msg("contact updated")
	return nil
}

// FindContact loads one of the session owner's contacts from the store.
// Contacts of other owners are reported as not found.
func (s *PhonebookService) FindContact(ctx context.Context, session *Session, id uuid.UUID) (*domain.Contact, error) {
	owner, err := session.acquire()
	if err != nil {
		return nil, err
	}
	defer session.release()

	rec, err := s.contacts.GetByID(ctx, id.String())
	if err != nil {
		return nil, s.storageFailed("find_contact", err)
	}
	if rec.OwnerID != owner.ID().String() {
		return nil, domain.NewDomainError(domain.ErrContactNotFound, "no contact with this id", id.String())
	}

	contact, err := rec.ToDomain()
	if err != nil {
		return nil, s.storageFailed("find_contact", err)
	}
	return contact, nil
}

// Search returns the session owner's contacts matching query. The query is
// split on whitespace: one token matches a name or surname prefix, two or
// more tokens match a name prefix and a surname prefix, and an empty query
// returns every contact. Matching is case-sensitive. The result is never nil.
func (s *PhonebookService) Search(ctx context.Context, session *Session, query string) ([]*domain.Contact, error) {
	defer s.metrics.ObserveDuration("search", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return nil, err
	}
	defer session.release()

	ownerID := owner.ID().String()
	tokens := strings.Fields(query)

	var records []*repository.ContactRecord
	switch len(tokens) {
	case 0:
		records, err = s.contacts.ListByOwner(ctx, ownerID)
	case 1:
		records, err = s.contacts.Search(ctx, ownerID, tokens[0], nil)
	default:
		records, err = s.contacts.Search(ctx, ownerID, tokens[0], &tokens[1])
	}
	if err != nil {
		return nil, s.storageFailed("search", err)
	}

	contacts, err := repository.ContactsToDomain(records)
	if err != nil {
		return nil, s.storageFailed("search", err)
	}
	sortContacts(contacts)
	return contacts, nil
}

// DeleteContactsAt removes the contacts at the given 0-based Directory
// positions. Every position is resolved before anything is deleted, so an
// out-of-range position deletes nothing. It returns the number deleted.
func (s *PhonebookService) DeleteContactsAt(ctx context.Context, session *Session, indexes []int) (int, error) {
	defer s.metrics.ObserveDuration("delete_contacts_at", time.Now())

	owner, err := session.acquire()
	if err != nil {
		return 0, err
	}
	defer session.release()

	dir := owner.Directory()
	ids, err := dir.SelectByIndexes(indexes)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		contact, ok := dir.Find(id)
		if !ok {
			// Repeated index.
			continue
		}
		if err := s.deleteContact(ctx, owner, contact); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// ListContacts returns the session owner's contacts in Directory order.
func (s *PhonebookService) ListContacts(session *Session) ([]*domain.Contact, error) {
	owner, err := session.acquire()
	if err != nil {
		return nil, err
	}
	defer session.release()

	return owner.Directory().Contacts(), nil
}

// Render returns the session owner's Directory as a text table.
func (s *PhonebookService) Render(session *Session) (string, error) {
	owner, err := session.acquire()
	if err != nil {
		return "", err
	}
	defer session.release()

	return owner.Directory().Render(), nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *PhonebookService) updateOwner(ctx context.Context, owner *domain.Owner) error {
	if err := s.owners.Update(ctx, repository.NewOwnerRecord(owner)); err != nil {
		return s.duplicateOrStorage("update_owner", err)
	}
	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("login_name", owner.LoginName()).
		Msg("owner updated")
	return nil
}

func (s *PhonebookService) deleteContact(ctx context.Context, owner *domain.Owner, contact *domain.Contact) error {
	if err := requireOwned(owner, contact); err != nil {
		return err
	}

	if err := s.contacts.Delete(ctx, contact.ID().String()); err != nil {
		return s.storageFailed("delete_contact", err)
	}
	if !owner.Directory().Delete(contact) {
		s.logger.Warn().
			Str("owner_id", owner.ID().String()).
			Str("contact_id", contact.ID().String()).
			Msg("deleted contact has no directory row")
	}

	s.metrics.ContactOp("delete")
	s.logger.Info().
		Str("owner_id", owner.ID().String()).
		Str("contact_id", contact.ID().String()).
		Msg("contact deleted")
	return nil
}

// withLoginLock runs fn while holding the lock for loginName.
func (s *PhonebookService) withLoginLock(ctx context.Context, loginName string, fn func() error) error {
	l := lock.NewLock(s.locker, lock.Keys.LoginName(loginName))

	acquired, err := l.AcquireWithRetry(ctx, s.config.LockTTL, s.config.LockRetries, s.config.LockRetryDelay)
	if err != nil {
		s.logger.Error().Err(err).Str("login_name", loginName).Msg("failed to acquire login name lock")
		return fmt.Errorf("%w: acquire lock for %q: %w", domain.ErrStorage, loginName, err)
	}
	if !acquired {
		s.logger.Warn().Str("login_name", loginName).Msg("login name lock busy")
		return fmt.Errorf("%w: %w: %s", domain.ErrStorage, repository.ErrLockNotAcquired, l.Key())
	}
	defer func() {
		if err := l.Release(ctx); err != nil {
			s.logger.Error().Err(err).Str("login_name", loginName).Msg("failed to release login name lock")
		}
	}()

	return fn()
}

// storageFailed guarantees err carries a domain sentinel and counts storage
// failures.
func (s *PhonebookService) storageFailed(op string, err error) error {
	err = domain.WrapStorageError(err, op)
	if errors.Is(err, domain.ErrStorage) {
		s.metrics.StorageError(op)
		s.logger.Error().Err(err).Str("op", op).Msg("storage operation failed")
	}
	return err
}

func (s *PhonebookService) duplicateOrStorage(op string, err error) error {
	if errors.Is(err, domain.ErrDuplicateLoginName) {
		s.metrics.DuplicateLogin()
		return err
	}
	return s.storageFailed(op, err)
}

func requireOwned(owner *domain.Owner, contact *domain.Contact) error {
	if contact.OwnerID() != owner.ID() {
		return domain.NewDomainError(domain.ErrContactNotOwned, "contact belongs to another owner", contact.ID().String())
	}
	return nil
}

// sortContacts orders contacts by name, then surname, ignoring case.
func sortContacts(contacts []*domain.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := strings.ToLower(contacts[i].Name()), strings.ToLower(contacts[j].Name())
		if a != b {
			return a < b
		}
		return strings.ToLower(contacts[i].Surname()) < strings.ToLower(contacts[j].Surname())
	})
}
