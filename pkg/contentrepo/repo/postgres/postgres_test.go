package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-repository/pkg/contentrepo"
	"github.com/tendant/content-repository/pkg/contentrepo/repo/postgres"
)

// newTestPool connects to TEST_DATABASE_URL, migrates and truncates the schema
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")
	require.NoError(t, postgres.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE contentrepo.entity, contentrepo.entity_anchor, contentrepo.history,
		contentrepo.recycle_bin, contentrepo.entity_lock`)
	require.NoError(t, err, "Failed to truncate tables")
	return pool
}

func TestRepository(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := postgres.NewWithPool(pool)

	root := contentrepo.NewGroup("root").WithIdentifier(contentrepo.IdentifierOf(1))
	require.NoError(t, repo.Store(ctx, root))

	versionTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := contentrepo.NewEntity("doc", []byte("body")).
		WithIdentifier(contentrepo.IdentifierOf(2)).
		WithParent(contentrepo.IdentifierOf(1)).
		WithVersion(contentrepo.NewVersion(versionTime, []byte("body")))
	require.NoError(t, repo.Store(ctx, doc))

	got, found, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "doc", got.Name())
	assert.Equal(t, []byte("body"), got.Content())
	parent, ok := got.Parent()
	require.True(t, ok)
	assert.Equal(t, contentrepo.IdentifierOf(1), parent)
	version, ok := got.Version()
	require.True(t, ok)
	assert.True(t, versionTime.Equal(version.Timestamp()))

	isGroup, err := repo.IsGroup(ctx, 1)
	require.NoError(t, err)
	assert.True(t, isGroup)

	empty, err := repo.IsEmptyGroup(ctx, 1)
	require.NoError(t, err)
	assert.False(t, empty)

	require.NoError(t, repo.SetAnchor(ctx, "home", 1))
	id, err := repo.Resolve(ctx, contentrepo.AnchorOf("home"))
	require.NoError(t, err)
	assert.Equal(t, contentrepo.ID(1), id)

	_, err = repo.Resolve(ctx, contentrepo.AnchorOf("missing"))
	assert.ErrorIs(t, err, contentrepo.ErrEntityNotFound)

	assert.ErrorIs(t, repo.RemoveGroup(ctx, 2), contentrepo.ErrEntityNotFound)
	require.NoError(t, repo.RemoveEntity(ctx, 2))
	_, found, err = repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecycleBinAndHistory(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bin := postgres.NewRecycleBin(pool)
	history := postgres.NewHistory(pool)

	removedAt := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	item := contentrepo.NewRecycleBinItem(
		contentrepo.NewEntity("old", []byte("x")).
			WithIdentifier(contentrepo.IdentifierOf(9)).
			WithParent(contentrepo.IdentifierOf(1)),
		removedAt,
	)
	require.NoError(t, bin.Add(ctx, item))

	got, found, err := bin.Get(ctx, 9)
	require.NoError(t, err)
	require.True(t, found)
	parent, ok := got.Parent()
	require.True(t, ok)
	assert.Equal(t, contentrepo.ID(1), parent)
	assert.True(t, removedAt.Equal(got.RemovedAt()))

	items, err := bin.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, bin.Remove(ctx, 9))
	_, found, err = bin.Get(ctx, 9)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, history.CreateEntry(ctx, 9, removedAt, contentrepo.EventRemoved))
	require.NoError(t, history.CreateEntry(ctx, 9, removedAt.Add(time.Minute), contentrepo.EventRestored))
	entries, err := history.Entries(ctx, 9)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, contentrepo.EventRemoved, entries[0].Kind)
	assert.Equal(t, contentrepo.EventRestored, entries[1].Kind)
}

func TestLockManagerAndIDGenerator(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	locks := postgres.NewLockManager(pool, testclock.NewClock(now))

	lock, err := locks.Lock(ctx, 4, "alice")
	require.NoError(t, err)
	assert.True(t, now.Equal(lock.AcquiredAt))
	_, err = locks.Lock(ctx, 4, "bob")
	assert.ErrorIs(t, err, contentrepo.ErrEntityLocked)

	require.NoError(t, locks.Unlock(ctx, 4, lock.Token))
	_, held, err := locks.GetLock(ctx, 4)
	require.NoError(t, err)
	assert.False(t, held)

	gen := postgres.NewIDGenerator(pool)
	first, err := gen.Generate(ctx)
	require.NoError(t, err)
	second, err := gen.Generate(ctx)
	require.NoError(t, err)
	assert.Greater(t, second, first)
}
