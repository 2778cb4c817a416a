package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/phonebook/internal/domain"
	"github.com/prn-tf/phonebook/internal/repository"
)

func newOwnerRecord(login string) *repository.OwnerRecord {
	now := time.Now().UTC()
	return &repository.OwnerRecord{
		ID:           uuid.NewString(),
		Name:         "Ann",
		Surname:      "Lee",
		LoginName:    login,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newContactRecord(ownerID, name, surname string) *repository.ContactRecord {
	now := time.Now().UTC()
	return &repository.ContactRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Surname:   surname,
		Phone:     "555-0100",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOwnerRepository_LoginNameUniqueness(t *testing.T) {
	ctx := context.Background()
	owners := NewStore().Owners()

	ann, bob := newOwnerRecord("ann"), newOwnerRecord("bob")
	require.NoError(t, owners.Create(ctx, ann))
	require.NoError(t, owners.Create(ctx, bob))
	require.ErrorIs(t, owners.Create(ctx, newOwnerRecord("ann")), domain.ErrDuplicateLoginName)

	bob.LoginName = "ann"
	require.ErrorIs(t, owners.Update(ctx, bob), domain.ErrDuplicateLoginName)

	// Renaming releases the old login name.
	ann.LoginName = "ann.lee"
	require.NoError(t, owners.Update(ctx, ann))
	exists, err := owners.ExistsByLoginName(ctx, "ann")
	require.NoError(t, err)
	require.False(t, exists)

	bob.LoginName = "ann"
	require.NoError(t, owners.Update(ctx, bob))

	got, err := owners.GetByLoginName(ctx, "ann")
	require.NoError(t, err)
	require.Equal(t, bob.ID, got.ID)
}

func TestOwnerRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	owners := NewStore().Owners()

	ann := newOwnerRecord("ann")
	require.NoError(t, owners.Create(ctx, ann))
	ann.Name = "Changed"

	got, err := owners.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, "Ann", got.Name)

	got.Name = "Mutated"
	again, err := owners.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, "Ann", again.Name)
}

func TestOwnerRepository_List(t *testing.T) {
	ctx := context.Background()
	owners := NewStore().Owners()
	for _, login := range []string{"carol", "ann", "bob"} {
		require.NoError(t, owners.Create(ctx, newOwnerRecord(login)))
	}

	tests := []struct {
		name string
		opts repository.ListOptions
		want []string
	}{
		{name: "all", opts: repository.ListOptions{}, want: []string{"ann", "bob", "carol"}},
		{name: "page", opts: repository.ListOptions{Offset: 1, Limit: 1}, want: []string{"bob"}},
		{name: "past end", opts: repository.ListOptions{Offset: 5}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := owners.List(ctx, tt.opts)
			require.NoError(t, err)
			require.Equal(t, int64(3), res.Total)
			got := make([]string, 0, len(res.Items))
			for _, o := range res.Items {
				got = append(got, o.LoginName)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStore_ForeignKeys(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owners, contacts := store.Owners(), store.Contacts()

	require.ErrorIs(t, contacts.Create(ctx, newContactRecord(uuid.NewString(), "Bob", "Lee")), domain.ErrOwnerNotFound)

	ann := newOwnerRecord("ann")
	require.NoError(t, owners.Create(ctx, ann))
	c := newContactRecord(ann.ID, "Bob", "Lee")
	require.NoError(t, contacts.Create(ctx, c))

	require.ErrorIs(t, owners.Delete(ctx, ann.ID), domain.ErrStorage)

	require.NoError(t, contacts.Delete(ctx, c.ID))
	require.NoError(t, owners.Delete(ctx, ann.ID))
	require.ErrorIs(t, owners.Delete(ctx, ann.ID), domain.ErrOwnerNotFound)
}

func TestContactRepository_DeleteKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owners, contacts := store.Owners(), store.Contacts()

	ann := newOwnerRecord("ann")
	require.NoError(t, owners.Create(ctx, ann))

	var ids []string
	for _, name := range []string{"A", "B", "C", "D"} {
		c := newContactRecord(ann.ID, name, "X")
		require.NoError(t, contacts.Create(ctx, c))
		ids = append(ids, c.ID)
	}

	require.NoError(t, contacts.Delete(ctx, ids[1]))

	// Positions after the deleted contact must still resolve.
	got, err := contacts.GetByID(ctx, ids[3])
	require.NoError(t, err)
	require.Equal(t, "D", got.Name)

	list, err := contacts.ListByOwner(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"A", "C", "D"}, []string{list[0].Name, list[1].Name, list[2].Name})

	count, err := contacts.CountByOwner(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestContactRepository_UpdateKeepsOwner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owners, contacts := store.Owners(), store.Contacts()

	ann := newOwnerRecord("ann")
	require.NoError(t, owners.Create(ctx, ann))
	c := newContactRecord(ann.ID, "Bob", "Lee")
	require.NoError(t, contacts.Create(ctx, c))

	c.OwnerID = uuid.NewString()
	c.Age = 41
	require.NoError(t, contacts.Update(ctx, c))

	got, err := contacts.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, ann.ID, got.OwnerID)
	require.Equal(t, 41, got.Age)

	require.ErrorIs(t, contacts.Update(ctx, newContactRecord(ann.ID, "No", "One")), domain.ErrContactNotFound)
}

func TestContactRepository_Search(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owners, contacts := store.Owners(), store.Contacts()

	ann, zed := newOwnerRecord("ann"), newOwnerRecord("zed")
	require.NoError(t, owners.Create(ctx, ann))
	require.NoError(t, owners.Create(ctx, zed))
	for _, c := range []*repository.ContactRecord{
		newContactRecord(ann.ID, "Ann", "Lee"),
		newContactRecord(ann.ID, "Anna", "Smith"),
		newContactRecord(ann.ID, "Bob", "Lee"),
		newContactRecord(zed.ID, "Andrew", "Lee"),
	} {
		require.NoError(t, contacts.Create(ctx, c))
	}

	ptr := func(s string) *string { return &s }
	tests := []struct {
		name    string
		first   string
		second  *string
		wantLen int
	}{
		{name: "name or surname", first: "Le", wantLen: 2},
		{name: "name prefix", first: "Ann", wantLen: 2},
		{name: "both tokens", first: "Ann", second: ptr("Sm"), wantLen: 1},
		{name: "case sensitive", first: "ann", wantLen: 0},
		{name: "empty token matches all", first: "", wantLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := contacts.Search(ctx, ann.ID, tt.first, tt.second)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Len(t, got, tt.wantLen)
		})
	}
}
