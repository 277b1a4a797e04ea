package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_InsertAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := domain.NewUser("alice", "hash", "Alice", []string{domain.RolePlayer, domain.RoleAdmin})
	require.NoError(t, repo.InsertVersion(ctx, user))

	got, err := repo.FindActive(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Alice", got.Nickname)
	assert.Equal(t, []string{domain.RolePlayer, domain.RoleAdmin}, got.Roles)
	assert.True(t, got.IsActive())
	assert.Equal(t, user.ValidFrom, got.ValidFrom)
}

func TestUserRepository_FindMissing(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	_, err := repo.FindActive(context.Background(), "nobody")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestUserRepository_DuplicateActiveConflicts(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("bob", "h", "Bob", nil)))

	err := repo.InsertVersion(ctx, domain.NewUser("bob", "h2", "Bobby", nil))
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestUserRepository_ConcurrentInsertExactlyOneWins(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.InsertVersion(ctx, domain.NewUser("carol", "h", "Carol", nil))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.IsKind(err, domain.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)

	history, err := repo.History(ctx, "carol")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUserRepository_SupersedeKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	clock := newStepClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), time.Second)
	db.SetClock(clock.Now)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("dave", "h0", "Dave", []string{domain.RolePlayer})))

	const updates = 4
	for i := 0; i < updates; i++ {
		_, err := repo.Supersede(ctx, "dave", domain.UserPayload{
			PasswordHash: "h",
			Nickname:     "Dave",
			Roles:        []string{domain.RolePlayer},
		})
		require.NoError(t, err)
	}

	history, err := repo.History(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, history, updates+1)

	active := 0
	for i, v := range history {
		if v.IsActive() {
			active++
			continue
		}
		assert.True(t, v.ValidUntil.After(v.ValidFrom))
		assert.Equal(t, *v.ValidUntil, history[i+1].ValidFrom, "versions must be contiguous")
	}
	assert.Equal(t, 1, active)
	assert.True(t, history[len(history)-1].IsActive())
}

func TestUserRepository_SupersedeWithFrozenClock(t *testing.T) {
	db := newTestDB(t)
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return frozen })
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("erin", "h", "Erin", nil)))
	next, err := repo.Supersede(ctx, "erin", domain.UserPayload{PasswordHash: "h", Nickname: "E"})
	require.NoError(t, err)
	assert.True(t, next.ValidFrom.After(frozen))
}

func TestUserRepository_SupersedeMissing(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	_, err := repo.Supersede(context.Background(), "ghost", domain.UserPayload{})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestUserRepository_CloseThenReinsert(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("frank", "h", "Frank", nil)))
	require.NoError(t, repo.Close(ctx, "frank"))

	_, err := repo.FindActive(ctx, "frank")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	err = repo.Close(ctx, "frank")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("frank", "h", "Frank II", nil)))
	history, err := repo.History(ctx, "frank")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestUserRepository_FindAsOf(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newStepClock(start, time.Minute)
	db.SetClock(clock.Now)
	repo := NewUserRepository(db)
	ctx := context.Background()

	// first version from 12:01, second from 12:02
	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("gina", "h", "Gina", nil)))
	_, err := repo.Supersede(ctx, "gina", domain.UserPayload{PasswordHash: "h", Nickname: "G"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		at       time.Time
		nickname string
		notFound bool
	}{
		{name: "before first version", at: start, notFound: true},
		{name: "inside first version", at: start.Add(90 * time.Second), nickname: "Gina"},
		{name: "at boundary belongs to successor", at: start.Add(2 * time.Minute), nickname: "G"},
		{name: "after last change", at: start.Add(time.Hour), nickname: "G"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindAsOf(ctx, "gina", tt.at)
			if tt.notFound {
				assert.True(t, domain.IsKind(err, domain.KindNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.nickname, got.Nickname)
		})
	}
}

func TestUserRepository_ListActiveByRole(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("admin", "h", "Admin", []string{domain.RoleAdmin})))
	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("p1", "h", "P1", []string{domain.RolePlayer})))
	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("p2", "h", "P2", []string{"admin"})))
	require.NoError(t, repo.InsertVersion(ctx, domain.NewUser("gone", "h", "Gone", []string{domain.RoleAdmin})))
	require.NoError(t, repo.Close(ctx, "gone"))

	all, err := repo.ListActive(ctx, repository.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	admins, err := repo.ListActive(ctx, repository.UserFilter{Role: ptr(domain.RoleAdmin)})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin", admins[0].Username)
}
