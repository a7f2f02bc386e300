package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/habittracker/internal/config"
	"example.com/habittracker/internal/domain"
)

func TestOpenMemoryStore(t *testing.T) {
	cfg := config.Defaults()

	store, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, config.DriverMemory, store.Driver)
	require.Nil(t, store.Pool)
	roundTrip(t, store.Repository)
}

func TestOpenSQLiteStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDriver = config.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "habits.db")

	store, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, config.DriverSQLite, store.Driver)
	roundTrip(t, store.Repository)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDriver = "mongo"

	_, err := Open(context.Background(), cfg, zerolog.Nop())
	require.ErrorContains(t, err, "unknown store driver")
}

func roundTrip(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	activity := domain.Activity{
		ID:          "act-1",
		OwnerID:     "owner-1",
		Name:        "Reading",
		DurationMin: 25,
		Category:    domain.CategoryStudy,
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, activity))

	got, err := repo.Get(ctx, "act-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, activity.Name, got.Name)
	require.True(t, activity.CreatedAt.Equal(got.CreatedAt))

	user, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, user)
}
