// Package storetest holds behaviour checks shared by every store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/habittracker/internal/domain"
)

// Store is what a backend must provide to run the shared checks.
type Store interface {
	domain.ActivityRepository
	domain.UserRepository
}

// Run exercises the activity and user contracts against stores built by factory.
// factory must return an empty store each call.
func Run(t *testing.T, factory func(t *testing.T) Store) {
	t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, factory(t)) })
	t.Run("list is owner scoped and newest first", func(t *testing.T) { testListScoping(t, factory(t)) })
	t.Run("list honours range and category", func(t *testing.T) { testListFilters(t, factory(t)) })
	t.Run("list paginates with cursor", func(t *testing.T) { testListPagination(t, factory(t)) })
	t.Run("delete removes only the target", func(t *testing.T) { testDelete(t, factory(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, factory(t)) })
}

var base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func activity(owner string, category domain.Category, minutes int, at time.Time) domain.Activity {
	return domain.Activity{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Name:        string(category) + " block",
		DurationMin: minutes,
		Category:    category,
		CreatedAt:   at,
	}
}

func seed(t *testing.T, store Store, items ...domain.Activity) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, store.Create(context.Background(), item))
	}
}

func testCreateAndGet(t *testing.T, store Store) {
	ctx := context.Background()
	want := activity("owner-1", domain.CategoryStudy, 25, base.Add(123456*time.Microsecond))
	seed(t, store, want)

	got, err := store.Get(ctx, want.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.OwnerID, got.OwnerID)
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.DurationMin, got.DurationMin)
	require.Equal(t, want.Category, got.Category)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", got.CreatedAt, want.CreatedAt)

	missing, err := store.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func testListScoping(t *testing.T, store Store) {
	ctx := context.Background()
	older := activity("owner-1", domain.CategoryWork, 30, base)
	newer := activity("owner-1", domain.CategoryBreak, 10, base.Add(time.Hour))
	foreign := activity("owner-2", domain.CategoryWork, 60, base.Add(30*time.Minute))
	seed(t, store, older, newer, foreign)

	items, next, err := store.ListByOwner(ctx, "owner-1", domain.ListQuery{})
	require.NoError(t, err)
	require.Nil(t, next)
	require.Len(t, items, 2)
	require.Equal(t, newer.ID, items[0].ID)
	require.Equal(t, older.ID, items[1].ID)

	none, _, err := store.ListByOwner(ctx, "owner-3", domain.ListQuery{})
	require.NoError(t, err)
	require.Empty(t, none)
}

func testListFilters(t *testing.T, store Store) {
	ctx := context.Background()
	before := activity("owner-1", domain.CategoryWork, 30, base.Add(-time.Microsecond))
	atStart := activity("owner-1", domain.CategoryWork, 30, base)
	atEnd := activity("owner-1", domain.CategoryExercise, 45, base.Add(24*time.Hour-time.Microsecond))
	after := activity("owner-1", domain.CategoryWork, 30, base.Add(24*time.Hour))
	seed(t, store, before, atStart, atEnd, after)

	items, _, err := store.ListByOwner(ctx, "owner-1", domain.ListQuery{Start: base, End: base.Add(24*time.Hour - time.Nanosecond)})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{atStart.ID, atEnd.ID}, idsOf(items))

	work, _, err := store.ListByOwner(ctx, "owner-1", domain.ListQuery{Category: domain.CategoryWork})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{before.ID, atStart.ID, after.ID}, idsOf(work))
}

func testListPagination(t *testing.T, store Store) {
	ctx := context.Background()
	var all []domain.Activity
	for i := 0; i < 5; i++ {
		all = append(all, activity("owner-1", domain.CategoryOther, i+1, base.Add(time.Duration(i)*time.Minute)))
	}
	seed(t, store, all...)

	first, cursor, err := store.ListByOwner(ctx, "owner-1", domain.ListQuery{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{all[4].ID, all[3].ID}, idsOf(first))
	require.NotNil(t, cursor)

	second, cursor, err := store.ListByOwner(ctx, "owner-1", domain.ListQuery{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Equal(t, []string{all[2].ID, all[1].ID}, idsOf(second))
	require.NotNil(t, cursor)

	third, cursor, err := store.ListByOwner(ctx, "owner-1", domain.ListQuery{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Equal(t, []string{all[0].ID}, idsOf(third))
	require.Nil(t, cursor)
}

func testDelete(t *testing.T, store Store) {
	ctx := context.Background()
	keep := activity("owner-1", domain.CategoryWork, 30, base)
	drop := activity("owner-1", domain.CategoryStudy, 40, base.Add(time.Minute))
	seed(t, store, keep, drop)

	require.NoError(t, store.Delete(ctx, drop))

	gone, err := store.Get(ctx, drop.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	still, err := store.Get(ctx, keep.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
}

func testUsers(t *testing.T, store Store) {
	ctx := context.Background()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         "Asha",
		Email:        "asha@example.com",
		PasswordHash: "hash",
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, store.CreateUser(ctx, user))

	dup := user
	dup.ID = uuid.NewString()
	require.ErrorIs(t, store.CreateUser(ctx, dup), domain.ErrConflict)

	byEmail, err := store.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	require.Equal(t, user.ID, byEmail.ID)
	require.Empty(t, byEmail.RefreshTokenHash)

	require.NoError(t, store.SetRefreshTokenHash(ctx, user.ID, "digest"))
	byID, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "digest", byID.RefreshTokenHash)
	require.Equal(t, "Asha", byID.Name)

	missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func idsOf(items []domain.Activity) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
