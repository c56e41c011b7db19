package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/villagebank/internal/models"
	"github.com/mmynk/villagebank/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testConstitution() *models.Constitution {
	return &models.Constitution{
		CycleDurationDays:   30,
		MinimumSavings:      10,
		InitialContribution: 50,
		LoanTermMonths:      6,
		MeetingFrequency:    models.MeetingWeekly,
		LatePaymentFee:      5,
	}
}

func createGroup(t *testing.T, store *SQLiteStore, name, creator string) *models.Group {
	t.Helper()
	group := &models.Group{Name: name}
	require.NoError(t, store.CreateGroup(context.Background(), group, testConstitution(), creator))
	return group
}

func countRows(t *testing.T, store *SQLiteStore, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, store.db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestSQLiteStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup writes all four rows", func(t *testing.T) {
		group := createGroup(t, store, "Alpha", "user-1")

		assert.NotEmpty(t, group.ID)
		assert.NotZero(t, group.CreatedAt)

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", got.Name)

		members, err := store.ListMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "user-1", members[0].UserID)
		assert.NotZero(t, members[0].JoinedAt)

		constitution, err := store.GetConstitution(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(30), constitution.CycleDurationDays)
		assert.Equal(t, models.MeetingWeekly, constitution.MeetingFrequency)
		assert.Equal(t, int64(5), constitution.LatePaymentFee)

		account, err := store.GetAccount(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), account.Balance)
	})

	t.Run("CreateGroup rolls back on constitution failure", func(t *testing.T) {
		before := countRows(t, store, "SELECT COUNT(*) FROM groups")

		bad := testConstitution()
		bad.CycleDurationDays = 0 // violates CHECK constraint
		group := &models.Group{Name: "Broken"}
		err := store.CreateGroup(ctx, group, bad, "user-1")
		require.Error(t, err)

		assert.Equal(t, before, countRows(t, store, "SELECT COUNT(*) FROM groups"))
		assert.Zero(t, countRows(t, store, "SELECT COUNT(*) FROM memberships WHERE group_id = ?", group.ID))
		assert.Zero(t, countRows(t, store, "SELECT COUNT(*) FROM group_accounts WHERE group_id = ?", group.ID))
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "nonexistent-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("AddMember is insert-if-absent", func(t *testing.T) {
		group := createGroup(t, store, "Beta", "user-1")

		m, err := store.AddMember(ctx, group.ID, "user-2")
		require.NoError(t, err)
		assert.Equal(t, "user-2", m.UserID)

		_, err = store.AddMember(ctx, group.ID, "user-2")
		assert.ErrorIs(t, err, storage.ErrAlreadyMember)

		_, err = store.AddMember(ctx, "missing-group", "user-2")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.Equal(t, 2, countRows(t, store, "SELECT COUNT(*) FROM memberships WHERE group_id = ?", group.ID))

		ok, err := store.IsMember(ctx, group.ID, "user-2")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = store.IsMember(ctx, group.ID, "user-3")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ListGroupsForUser", func(t *testing.T) {
		g1 := createGroup(t, store, "Gamma", "lister")
		g2 := createGroup(t, store, "Delta", "someone-else")
		_, err := store.AddMember(ctx, g2.ID, "lister")
		require.NoError(t, err)

		groups, err := store.ListGroupsForUser(ctx, "lister")
		require.NoError(t, err)
		require.Len(t, groups, 2)
		ids := []string{groups[0].ID, groups[1].ID}
		assert.ElementsMatch(t, []string{g1.ID, g2.ID}, ids)

		none, err := store.ListGroupsForUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestSQLiteStore_ConcurrentAddMember(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "Race", "creator")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddMember(ctx, group.ID, "same-user")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrAlreadyMember)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, countRows(t, store,
		"SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id = ?", group.ID, "same-user"))
}

func TestSQLiteStore_Invites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "Invites", "inviter")

	t.Run("CreateInvite rejects duplicate hash", func(t *testing.T) {
		first := &models.Invite{GroupID: group.ID, TokenHash: "hash-dup", CreatedBy: "inviter"}
		require.NoError(t, store.CreateInvite(ctx, first))
		assert.Equal(t, models.InvitePending, first.Status)

		second := &models.Invite{GroupID: group.ID, TokenHash: "hash-dup", CreatedBy: "inviter"}
		assert.ErrorIs(t, store.CreateInvite(ctx, second), storage.ErrDuplicateToken)
	})

	t.Run("AcceptInvite transitions once", func(t *testing.T) {
		require.NoError(t, store.CreateInvite(ctx, &models.Invite{GroupID: group.ID, TokenHash: "hash-once", CreatedBy: "inviter"}))

		pending, err := store.GetPendingInvite(ctx, "hash-once")
		require.NoError(t, err)
		assert.Equal(t, group.ID, pending.GroupID)

		accepted, err := store.AcceptInvite(ctx, "hash-once", "joiner")
		require.NoError(t, err)
		assert.Equal(t, group.ID, accepted.GroupID)
		assert.Equal(t, models.InviteAccepted, accepted.Status)
		assert.Equal(t, "joiner", accepted.AcceptedBy)

		ok, err := store.IsMember(ctx, group.ID, "joiner")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = store.GetPendingInvite(ctx, "hash-once")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.AcceptInvite(ctx, "hash-once", "someone-else")
		assert.ErrorIs(t, err, storage.ErrInviteNotPending)
	})

	t.Run("AcceptInvite by existing member leaves invite pending", func(t *testing.T) {
		require.NoError(t, store.CreateInvite(ctx, &models.Invite{GroupID: group.ID, TokenHash: "hash-member", CreatedBy: "inviter"}))

		_, err := store.AcceptInvite(ctx, "hash-member", "inviter")
		assert.ErrorIs(t, err, storage.ErrAlreadyMember)

		_, err = store.GetPendingInvite(ctx, "hash-member")
		assert.NoError(t, err)
	})

	t.Run("concurrent AcceptInvite has one winner", func(t *testing.T) {
		require.NoError(t, store.CreateInvite(ctx, &models.Invite{GroupID: group.ID, TokenHash: "hash-race", CreatedBy: "inviter"}))

		const racers = 6
		var wg sync.WaitGroup
		results := make(chan error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.AcceptInvite(ctx, "hash-race", fmt.Sprintf("racer-%d", i))
				results <- err
			}(i)
		}
		wg.Wait()
		close(results)

		winners := 0
		for err := range results {
			if err == nil {
				winners++
				continue
			}
			assert.True(t, errors.Is(err, storage.ErrInviteNotPending), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, winners)
		assert.Equal(t, 1, countRows(t, store,
			"SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id LIKE 'racer-%'", group.ID))
	})
}

func TestSQLiteStore_Cycles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "Cycles", "member")

	cycle := &models.Cycle{GroupID: group.ID}
	require.NoError(t, store.StartCycle(ctx, cycle))
	assert.Equal(t, models.CycleActive, cycle.Status)

	t.Run("second active cycle is rejected", func(t *testing.T) {
		err := store.StartCycle(ctx, &models.Cycle{GroupID: group.ID})
		assert.ErrorIs(t, err, storage.ErrActiveCycleExists)
	})

	t.Run("savings and loans move the account balance", func(t *testing.T) {
		for _, amount := range []int64{20, 30} {
			_, err := store.RecordSaving(ctx, &models.Saving{CycleID: cycle.ID, UserID: "member", Amount: amount})
			require.NoError(t, err)
		}
		account, err := store.RecordLoan(ctx, &models.Loan{CycleID: cycle.ID, UserID: "member", Amount: 15})
		require.NoError(t, err)
		assert.Equal(t, int64(35), account.Balance)

		savings, err := store.ListSavings(ctx, cycle.ID)
		require.NoError(t, err)
		assert.Len(t, savings, 2)

		loans, err := store.ListLoans(ctx, cycle.ID)
		require.NoError(t, err)
		require.Len(t, loans, 1)
		assert.Equal(t, int64(15), loans[0].Amount)

		stored, err := store.GetAccount(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(35), stored.Balance)
	})

	t.Run("ListActiveCycles", func(t *testing.T) {
		cycles, err := store.ListActiveCycles(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, cycles, 1)
		assert.Equal(t, cycle.ID, cycles[0].ID)
	})

	t.Run("CloseCycle then records are rejected", func(t *testing.T) {
		closed, err := store.CloseCycle(ctx, group.ID, cycle.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CycleClosed, closed.Status)
		assert.NotZero(t, closed.ClosedAt)

		_, err = store.CloseCycle(ctx, group.ID, cycle.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.RecordSaving(ctx, &models.Saving{CycleID: cycle.ID, UserID: "member", Amount: 5})
		assert.ErrorIs(t, err, storage.ErrCycleNotActive)

		cycles, err := store.ListActiveCycles(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, cycles)

		// A new cycle can start once the previous one is closed.
		require.NoError(t, store.StartCycle(ctx, &models.Cycle{GroupID: group.ID}))
	})
}
