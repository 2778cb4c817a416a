package service

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/lock"
	"github.com/prn-tf/phonebook/internal/metrics"
	"github.com/prn-tf/phonebook/internal/pkg/crypto"
	"github.com/prn-tf/phonebook/internal/repository"
	"github.com/prn-tf/phonebook/internal/repository/memory"
)

const testPassword = "Abcdef1!"

func TestMain(m *testing.M) {
	crypto.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func testConfig() PhonebookConfig {
	return PhonebookConfig{
		LockTTL:        time.Second,
		LockRetries:    500,
		LockRetryDelay: time.Millisecond,
	}
}

// newTestService wires the facade to a fresh in-memory store.
func newTestService(t *testing.T) (*PhonebookService, repository.OwnerRepository, repository.ContactRepository) {
	t.Helper()
	store := memory.NewStore()
	owners, contacts := store.Owners(), store.Contacts()
	svc := NewPhonebookService(owners, contacts, lock.NewMemoryLocker(), metrics.New(), testConfig(), zerolog.Nop())
	return svc, owners, contacts
}

func signUp(t *testing.T, svc *PhonebookService, login string) *Session {
	t.Helper()
	session, err := svc.SignUp(context.Background(), "Ann", "Lee", login, testPassword)
	require.NoError(t, err)
	return session
}

func addContact(t *testing.T, svc *PhonebookService, session *Session, name, surname string) *domain.Contact {
	t.Helper()
	c, err := domain.NewContact(session.Owner().ID(), name, surname, "1 Main St", "555-0100", 30)
	require.NoError(t, err)
	require.NoError(t, svc.AddContact(context.Background(), session, c))
	return c
}

func directoryIDs(session *Session) []string {
	var ids []string
	for _, c := range session.Owner().Directory().Contacts() {
		ids = append(ids, c.ID().String())
	}
	sort.Strings(ids)
	return ids
}

func storedIDs(t *testing.T, contacts repository.ContactRepository, session *Session) []string {
	t.Helper()
	records, err := contacts.ListByOwner(context.Background(), session.Owner().ID().String())
	require.NoError(t, err)
	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

func names(contacts []*domain.Contact) []string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.Name()+" "+c.Surname())
	}
	return out
}

// =============================================================================
// Failure injection
// =============================================================================

// failingContacts delegates to a real repository and fails selected calls.
type failingContacts struct {
	repository.ContactRepository
	createErr   error
	updateErr   error
	deleteErr   error
	deleteAfter int // number of deletes that succeed before deleteErr applies
	deletes     int
	calls       *[]string
}

func (f *failingContacts) Create(ctx context.Context, c *repository.ContactRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.ContactRepository.Create(ctx, c)
}

func (f *failingContacts) Update(ctx context.Context, c *repository.ContactRecord) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.ContactRepository.Update(ctx, c)
}

func (f *failingContacts) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil && f.deletes >= f.deleteAfter {
		return f.deleteErr
	}
	f.deletes++
	if f.calls != nil {
		*f.calls = append(*f.calls, "contact:"+id)
	}
	return f.ContactRepository.Delete(ctx, id)
}

// recordingOwners records owner deletions and can hide existing login names
// from the existence check.
type recordingOwners struct {
	repository.OwnerRepository
	blindExists bool
	updateErr   error
	calls       *[]string
}

func (r *recordingOwners) ExistsByLoginName(ctx context.Context, loginName string) (bool, error) {
	if r.blindExists {
		return false, nil
	}
	return r.OwnerRepository.ExistsByLoginName(ctx, loginName)
}

func (r *recordingOwners) Update(ctx context.Context, o *repository.OwnerRecord) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.OwnerRepository.Update(ctx, o)
}

func (r *recordingOwners) Delete(ctx context.Context, id string) error {
	if r.calls != nil {
		*r.calls = append(*r.calls, "owner:"+id)
	}
	return r.OwnerRepository.Delete(ctx, id)
}

// MockOwnerRepository is a testify mock of repository.OwnerRepository.
type MockOwnerRepository struct {
	mock.Mock
}

func (m *MockOwnerRepository) Create(ctx context.Context, owner *repository.OwnerRecord) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *MockOwnerRepository) GetByID(ctx context.Context, id string) (*repository.OwnerRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*repository.OwnerRecord)
	return rec, args.Error(1)
}

func (m *MockOwnerRepository) GetByLoginName(ctx context.Context, loginName string) (*repository.OwnerRecord, error) {
	args := m.Called(ctx, loginName)
	rec, _ := args.Get(0).(*repository.OwnerRecord)
	return rec, args.Error(1)
}

func (m *MockOwnerRepository) Update(ctx context.Context, owner *repository.OwnerRecord) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *MockOwnerRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOwnerRepository) ExistsByLoginName(ctx context.Context, loginName string) (bool, error) {
	args := m.Called(ctx, loginName)
	return args.Bool(0), args.Error(1)
}

func (m *MockOwnerRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[repository.OwnerRecord], error) {
	args := m.Called(ctx, opts)
	res, _ := args.Get(0).(*repository.ListResult[repository.OwnerRecord])
	return res, args.Error(1)
}

// busyLocker never grants a lock.
type busyLocker struct {
	*lock.NoOpLocker
}

func (busyLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return false, nil
}

// =============================================================================
// Sign-up, login and owner lifecycle
// =============================================================================

func TestPhonebookService_SignUpAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	session := signUp(t, svc, "ann")
	addContact(t, svc, session, "Bob", "Lee")

	loggedIn, err := svc.Login(ctx, "ann", testPassword)
	require.NoError(t, err)
	require.Equal(t, session.Owner().ID(), loggedIn.Owner().ID())
	require.Equal(t, 1, loggedIn.Owner().Directory().Len())

	tests := []struct {
		name     string
		login    string
		password string
	}{
		{name: "wrong password", login: "ann", password: "Wrong123!"},
		{name: "unknown login", login: "nobody", password: testPassword},
		{name: "login is case sensitive", login: "ANN", password: testPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.login, tt.password)
			require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}
}

func TestPhonebookService_SignUpValidation(t *testing.T) {
	svc, owners, _ := newTestService(t)

	_, err := svc.SignUp(context.Background(), "Ann", "Lee", "ann", "abc")
	require.ErrorIs(t, err, domain.ErrValidation)

	exists, err := owners.ExistsByLoginName(context.Background(), "ann")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestPhonebookService_DuplicateLoginName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	signUp(t, svc, "ann")

	_, err := svc.SignUp(ctx, "Other", "Person", "ann", testPassword)
	require.ErrorIs(t, err, domain.ErrDuplicateLoginName)

	require.ErrorIs(t, svc.CheckLoginNameAvailable(ctx, "ann"), domain.ErrDuplicateLoginName)
	require.NoError(t, svc.CheckLoginNameAvailable(ctx, "bob"))
}

func TestPhonebookService_UniqueConstraintIsBackstop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owners := &recordingOwners{OwnerRepository: store.Owners(), blindExists: true}
	svc := NewPhonebookService(owners, store.Contacts(), lock.NewNoOpLocker(), nil, testConfig(), zerolog.Nop())

	signUp(t, svc, "ann")
	_, err := svc.SignUp(ctx, "Other", "Person", "ann", testPassword)
	require.ErrorIs(t, err, domain.ErrDuplicateLoginName)
	require.NotErrorIs(t, err, domain.ErrStorage)
}

func TestPhonebookService_ConcurrentSignUps(t *testing.T) {
	ctx := context.Background()
	svc, owners, _ := newTestService(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SignUp(ctx, "Ann", "Lee", "shared", testPassword)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrDuplicateLoginName)
	}
	require.Equal(t, 1, succeeded)

	list, err := owners.List(ctx, repository.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)
}

func TestPhonebookService_LockBusy(t *testing.T) {
	store := memory.NewStore()
	svc := NewPhonebookService(store.Owners(), store.Contacts(), busyLocker{lock.NewNoOpLocker()}, nil, testConfig(), zerolog.Nop())

	_, err := svc.SignUp(context.Background(), "Ann", "Lee", "ann", testPassword)
	require.ErrorIs(t, err, repository.ErrLockNotAcquired)
	require.ErrorIs(t, err, domain.ErrStorage)
}

func TestPhonebookService_StorageErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")

	owners := new(MockOwnerRepository)
	owners.On("ExistsByLoginName", mock.Anything, "ann").Return(false, boom)
	owners.On("GetByLoginName", mock.Anything, "ann").Return(nil, boom)

	svc := NewPhonebookService(owners, memory.NewStore().Contacts(), lock.NewNoOpLocker(), metrics.New(), testConfig(), zerolog.Nop())

	err := svc.CheckLoginNameAvailable(ctx, "ann")
	require.ErrorIs(t, err, domain.ErrStorage)
	require.ErrorIs(t, err, boom)

	// Storage failures are not disguised as bad credentials.
	_, err = svc.Login(ctx, "ann", testPassword)
	require.ErrorIs(t, err, domain.ErrStorage)
	require.NotErrorIs(t, err, domain.ErrInvalidCredentials)

	owners.AssertExpectations(t)
	owners.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPhonebookService_DeleteOwnerCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	var calls []string
	owners := &recordingOwners{OwnerRepository: store.Owners(), calls: &calls}
	contacts := &failingContacts{ContactRepository: store.Contacts(), calls: &calls}
	svc := NewPhonebookService(owners, contacts, lock.NewMemoryLocker(), nil, testConfig(), zerolog.Nop())

	session := signUp(t, svc, "ann")
	for _, n := range []string{"A", "B", "C"} {
		addContact(t, svc, session, n, "Lee")
	}
	ownerID := session.Owner().ID().String()

	require.NoError(t, svc.DeleteOwner(ctx, session))

	require.Len(t, calls, 4)
	require.Equal(t, "owner:"+ownerID, calls[3])
	for _, c := range calls[:3] {
		require.Contains(t, c, "contact:")
	}

	count, err := store.Contacts().CountByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Zero(t, count)
	_, err = svc.FindOwner(ctx, "ann")
	require.ErrorIs(t, err, domain.ErrOwnerNotFound)

	require.True(t, session.Closed())
	require.ErrorIs(t, svc.DeleteOwner(ctx, session), ErrSessionClosed)
	_, err = svc.ListContacts(session)
	require.ErrorIs(t, err, ErrSessionClosed)

	// The login name is free again.
	signUp(t, svc, "ann")
}

func TestPhonebookService_DeleteOwnerStopsOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	contacts := &failingContacts{ContactRepository: store.Contacts()}
	svc := NewPhonebookService(store.Owners(), contacts, lock.NewMemoryLocker(), nil, testConfig(), zerolog.Nop())

	session := signUp(t, svc, "ann")
	for _, n := range []string{"A", "B", "C"} {
		addContact(t, svc, session, n, "Lee")
	}

	contacts.deleteErr = errors.New("disk full")
	contacts.deleteAfter = 1

	err := svc.DeleteOwner(ctx, session)
	require.ErrorIs(t, err, domain.ErrStorage)
	require.False(t, session.Closed())

	// The first contact is gone from both sides; the rest remain in both.
	require.Equal(t, 2, session.Owner().Directory().Len())
	require.Equal(t, directoryIDs(session), storedIDs(t, store.Contacts(), session))

	exists, err := store.Owners().ExistsByLoginName(ctx, "ann")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestPhonebookService_ChangeLoginName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	signUp(t, svc, "bob")
	session := signUp(t, svc, "ann")

	err := svc.ChangeLoginName(ctx, session, "bob")
	require.ErrorIs(t, err, domain.ErrDuplicateLoginName)
	require.Equal(t, "ann", session.Owner().LoginName())

	err = svc.ChangeLoginName(ctx, session, "  ")
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, "ann", session.Owner().LoginName())

	require.NoError(t, svc.ChangeLoginName(ctx, session, "ann"))
	require.NoError(t, svc.ChangeLoginName(ctx, session, "ann.lee"))
	require.Equal(t, "ann.lee", session.Owner().LoginName())

	_, err = svc.Login(ctx, "ann", testPassword)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ann.lee", testPassword)
	require.NoError(t, err)
}

func TestPhonebookService_ChangeLoginNameRollsBack(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owners := &recordingOwners{OwnerRepository: store.Owners()}
	svc := NewPhonebookService(owners, store.Contacts(), lock.NewMemoryLocker(), nil, testConfig(), zerolog.Nop())

	session := signUp(t, svc, "ann")
	owners.updateErr = errors.New("read-only replica")

	err := svc.ChangeLoginName(ctx, session, "ann.lee")
	require.ErrorIs(t, err, domain.ErrStorage)
	require.Equal(t, "ann", session.Owner().LoginName())
}

func TestPhonebookService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owners := &recordingOwners{OwnerRepository: store.Owners()}
	svc := NewPhonebookService(owners, store.Contacts(), lock.NewMemoryLocker(), nil, testConfig(), zerolog.Nop())

	session := signUp(t, svc, "ann")

	tests := []struct {
		name      string
		current   string
		next      string
		updateErr error
		wantErr   error
	}{
		{name: "wrong current password", current: "Wrong123!", next: "Newpass1!", wantErr: domain.ErrInvalidCredentials},
		{name: "weak new password", current: testPassword, next: "short", wantErr: domain.ErrValidation},
		{name: "storage failure", current: testPassword, next: "Newpass1!", updateErr: errors.New("timeout"), wantErr: domain.ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owners.updateErr = tt.updateErr
			err := svc.ChangePassword(ctx, session, tt.current, tt.next)
			require.ErrorIs(t, err, tt.wantErr)
			require.True(t, session.Owner().CheckPassword(testPassword))
		})
	}

	owners.updateErr = nil
	require.NoError(t, svc.ChangePassword(ctx, session, testPassword, "Newpass1!"))
	_, err := svc.Login(ctx, "ann", testPassword)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ann", "Newpass1!")
	require.NoError(t, err)
}

func TestPhonebookService_UpdateOwner(t *testing.T) {
	ctx := context.Background()
	svc, owners, _ := newTestService(t)

	session := signUp(t, svc, "ann")
	addContact(t, svc, session, "Bob", "Lee")
	before := session.Owner().Directory().Render()

	require.NoError(t, session.Owner().SetSurname("Smith"))
	require.NoError(t, svc.UpdateOwner(ctx, session))

	rec, err := owners.GetByLoginName(ctx, "ann")
	require.NoError(t, err)
	require.Equal(t, "Smith", rec.Surname)
	require.Equal(t, before, session.Owner().Directory().Render())
}

// =============================================================================
// Contacts
// =============================================================================

func TestPhonebookService_DirectoryMatchesStore(t *testing.T) {
	ctx := context.Background()
	svc, _, contacts := newTestService(t)
	session := signUp(t, svc, "ann")

	a := addContact(t, svc, session, "Ann", "Lee")
	b := addContact(t, svc, session, "Bob", "Lee")
	addContact(t, svc, session, "Cid", "Moe")
	require.Equal(t, directoryIDs(session), storedIDs(t, contacts, session))

	require.NoError(t, b.SetPhone("+1 (212) 555-0199"))
	require.NoError(t, svc.UpdateContact(ctx, session, b))
	require.Equal(t, directoryIDs(session), storedIDs(t, contacts, session))

	require.NoError(t, svc.DeleteContact(ctx, session, a))
	require.Equal(t, directoryIDs(session), storedIDs(t, contacts, session))
	require.Equal(t, 2, session.Owner().Directory().Len())

	rows := session.Owner().Directory().Rows()
	require.Equal(t, "+1 (212) 555-0199", rows[0].Cell(domain.CellPhone))

	stored, err := svc.FindContact(ctx, session, b.ID())
	require.NoError(t, err)
	require.Equal(t, "+1 (212) 555-0199", stored.Phone())
}

func TestPhonebookService_PersistFailureLeavesDirectory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	contacts := &failingContacts{ContactRepository: store.Contacts()}
	svc := NewPhonebookService(store.Owners(), contacts, lock.NewMemoryLocker(), nil, testConfig(), zerolog.Nop())

	session := signUp(t, svc, "ann")
	existing := addContact(t, svc, session, "Bob", "Lee")
	before := session.Owner().Directory().Render()

	contacts.createErr = errors.New("insert failed")
	c, err := domain.NewContact(session.Owner().ID(), "Cid", "Moe", "2 Side St", "555-0101", 40)
	require.NoError(t, err)
	require.ErrorIs(t, svc.AddContact(ctx, session, c), domain.ErrStorage)

	contacts.updateErr = errors.New("update failed")
	require.NoError(t, existing.SetName("Robert"))
	require.ErrorIs(t, svc.UpdateContact(ctx, session, existing), domain.ErrStorage)

	contacts.deleteErr = errors.New("delete failed")
	require.ErrorIs(t, svc.DeleteContact(ctx, session, existing), domain.ErrStorage)

	require.Equal(t, before, session.Owner().Directory().Render())
	require.Equal(t, directoryIDs(session), storedIDs(t, store.Contacts(), session))
}

func TestPhonebookService_ContactOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	ann := signUp(t, svc, "ann")
	bob := signUp(t, svc, "bob")
	bobsContact := addContact(t, svc, bob, "Zed", "Young")

	require.ErrorIs(t, svc.AddContact(ctx, ann, bobsContact), domain.ErrContactNotOwned)
	require.ErrorIs(t, svc.UpdateContact(ctx, ann, bobsContact), domain.ErrContactNotOwned)
	require.ErrorIs(t, svc.DeleteContact(ctx, ann, bobsContact), domain.ErrContactNotOwned)

	_, err := svc.FindContact(ctx, ann, bobsContact.ID())
	require.ErrorIs(t, err, domain.ErrContactNotFound)
	_, err = svc.FindContact(ctx, ann, uuid.New())
	require.ErrorIs(t, err, domain.ErrContactNotFound)

	require.Equal(t, 1, bob.Owner().Directory().Len())
}

func TestPhonebookService_Search(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	session := signUp(t, svc, "ann")
	addContact(t, svc, session, "Bob", "Lee")
	addContact(t, svc, session, "Anna", "Smith")
	addContact(t, svc, session, "Ann", "Lee")

	other := signUp(t, svc, "zed")
	addContact(t, svc, other, "Andrew", "Lee")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "single token matches name or surname", query: "An", want: []string{"Ann Lee", "Anna Smith"}},
		{name: "two tokens match name and surname", query: "An Le", want: []string{"Ann Lee"}},
		{name: "extra tokens are ignored", query: "An Le ignored", want: []string{"Ann Lee"}},
		{name: "surname token", query: "Lee", want: []string{"Ann Lee", "Bob Lee"}},
		{name: "no match", query: "zzz", want: []string{}},
		{name: "case sensitive", query: "an", want: []string{}},
		{name: "blank query returns all", query: "   ", want: []string{"Ann Lee", "Anna Smith", "Bob Lee"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(ctx, session, tt.query)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, tt.want, names(got))
		})
	}
}

func TestPhonebookService_FindOwnerSortsContacts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	session := signUp(t, svc, "ann")
	addContact(t, svc, session, "bob", "Zed")
	addContact(t, svc, session, "Alice", "Young")
	addContact(t, svc, session, "Bob", "Adams")

	owner, err := svc.FindOwner(ctx, "ann")
	require.NoError(t, err)
	require.Equal(t, []string{"Alice Young", "Bob Adams", "bob Zed"}, names(owner.Directory().Contacts()))
}

func TestPhonebookService_DeleteContactsAt(t *testing.T) {
	ctx := context.Background()
	svc, _, contacts := newTestService(t)

	session := signUp(t, svc, "ann")
	addContact(t, svc, session, "A", "One")
	addContact(t, svc, session, "B", "Two")

	_, err := svc.DeleteContactsAt(ctx, session, []int{0, 1, 99})
	require.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	require.Equal(t, 2, session.Owner().Directory().Len())

	addContact(t, svc, session, "C", "Three")
	deleted, err := svc.DeleteContactsAt(ctx, session, []int{2, 0, 0})
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	remaining, err := svc.ListContacts(session)
	require.NoError(t, err)
	require.Equal(t, []string{"B Two"}, names(remaining))
	require.Equal(t, directoryIDs(session), storedIDs(t, contacts, session))

	rendered, err := svc.Render(session)
	require.NoError(t, err)
	require.Contains(t, rendered, "1. B")
}
