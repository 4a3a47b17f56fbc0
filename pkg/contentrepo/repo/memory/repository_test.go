package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-repository/pkg/contentrepo"
	"github.com/tendant/content-repository/pkg/contentrepo/repo/memory"
)

func seedRoot(t *testing.T, repo *memory.Repository) {
	t.Helper()
	err := repo.Store(context.Background(), contentrepo.NewGroup("root").WithIdentifier(contentrepo.IdentifierOf(1)))
	require.NoError(t, err)
}

func TestRepositoryStoreAndGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seedRoot(t, repo)

	entity := contentrepo.NewEntity("a.txt", []byte("a")).
		WithIdentifier(contentrepo.IdentifierOf(2)).
		WithParent(contentrepo.IdentifierOf(1))
	require.NoError(t, repo.Store(ctx, entity))

	got, found, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a.txt", got.Name())

	_, found, err = repo.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, found)

	err = repo.Store(ctx, contentrepo.NewEntity("new", nil))
	assert.ErrorIs(t, err, contentrepo.ErrInvalidArgument)
}

func TestRepositoryResolve(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seedRoot(t, repo)
	require.NoError(t, repo.SetAnchor(ctx, "home", 1))

	id, err := repo.Resolve(ctx, contentrepo.AnchorOf("home"))
	require.NoError(t, err)
	assert.Equal(t, contentrepo.ID(1), id)

	id, err = repo.Resolve(ctx, contentrepo.IdentifierOf(1))
	require.NoError(t, err)
	assert.Equal(t, contentrepo.ID(1), id)

	_, err = repo.Resolve(ctx, contentrepo.AnchorOf("away"))
	assert.ErrorIs(t, err, contentrepo.ErrEntityNotFound)

	_, err = repo.Resolve(ctx, contentrepo.IdentifierOf(50))
	assert.ErrorIs(t, err, contentrepo.ErrEntityNotFound)

	assert.ErrorIs(t, repo.SetAnchor(ctx, "", 1), contentrepo.ErrInvalidArgument)
	assert.ErrorIs(t, repo.SetAnchor(ctx, "gone", 50), contentrepo.ErrEntityNotFound)
}

func TestRepositoryGroups(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seedRoot(t, repo)

	group := contentrepo.NewGroup("docs").
		WithIdentifier(contentrepo.IdentifierOf(5)).
		WithParent(contentrepo.IdentifierOf(1))
	require.NoError(t, repo.Store(ctx, group))

	isGroup, err := repo.IsGroup(ctx, 5)
	require.NoError(t, err)
	assert.True(t, isGroup)

	isGroup, err = repo.IsGroup(ctx, 99)
	require.NoError(t, err)
	assert.False(t, isGroup)

	empty, err := repo.IsEmptyGroup(ctx, 5)
	require.NoError(t, err)
	assert.True(t, empty)

	child := contentrepo.NewEntity("x", nil).
		WithIdentifier(contentrepo.IdentifierOf(6)).
		WithParent(contentrepo.IdentifierOf(5))
	require.NoError(t, repo.Store(ctx, child))

	empty, err = repo.IsEmptyGroup(ctx, 5)
	require.NoError(t, err)
	assert.False(t, empty)

	children, err := repo.Children(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []contentrepo.ID{6}, children)
}

func TestRepositoryRemoveChecksKind(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seedRoot(t, repo)
	require.NoError(t, repo.Store(ctx, contentrepo.NewEntity("x", nil).
		WithIdentifier(contentrepo.IdentifierOf(6)).
		WithParent(contentrepo.IdentifierOf(1))))
	require.NoError(t, repo.SetAnchor(ctx, "x", 6))

	assert.ErrorIs(t, repo.RemoveGroup(ctx, 6), contentrepo.ErrInvalidArgument)
	require.NoError(t, repo.RemoveEntity(ctx, 6))
	assert.ErrorIs(t, repo.RemoveEntity(ctx, 6), contentrepo.ErrEntityNotFound)

	// the anchor resolves again once the entity is back
	require.NoError(t, repo.Store(ctx, contentrepo.NewEntity("x", nil).
		WithIdentifier(contentrepo.IdentifierOf(6)).
		WithParent(contentrepo.IdentifierOf(1))))
	id, err := repo.Resolve(ctx, contentrepo.AnchorOf("x"))
	require.NoError(t, err)
	assert.Equal(t, contentrepo.ID(6), id)
}

func TestRecycleBinList(t *testing.T) {
	ctx := context.Background()
	bin := memory.NewRecycleBin()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []contentrepo.ID{3, 4, 5} {
		item := contentrepo.NewRecycleBinItem(
			contentrepo.NewEntity("e", nil).WithIdentifier(contentrepo.IdentifierOf(id)),
			base.Add(time.Duration(i)*time.Minute),
		)
		require.NoError(t, bin.Add(ctx, item))
	}

	items, err := bin.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, contentrepo.ID(5), items[0].ID())
	assert.Equal(t, contentrepo.ID(3), items[2].ID())

	require.NoError(t, bin.Remove(ctx, 4))
	_, found, err := bin.Get(ctx, 4)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLockManager(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(now)
	locks := memory.NewLockManager(clk)

	lock, err := locks.Lock(ctx, 7, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", lock.Owner)
	assert.Equal(t, now, lock.AcquiredAt)

	clk.Advance(time.Minute)
	again, err := locks.Lock(ctx, 7, "alice")
	require.NoError(t, err)
	assert.Equal(t, lock.Token, again.Token)
	assert.Equal(t, now, again.AcquiredAt)

	_, err = locks.Lock(ctx, 7, "bob")
	assert.ErrorIs(t, err, contentrepo.ErrEntityLocked)

	// wrong token leaves the lock in place
	require.NoError(t, locks.Unlock(ctx, 7, uuid.Nil))
	_, held, err := locks.GetLock(ctx, 7)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, locks.Unlock(ctx, 7, lock.Token))
	_, held, err = locks.GetLock(ctx, 7)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestIDGenerator(t *testing.T) {
	gen := memory.NewIDGenerator(100)
	first, err := gen.Generate(context.Background())
	require.NoError(t, err)
	second, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contentrepo.ID(100), first)
	assert.Equal(t, contentrepo.ID(101), second)
}

func TestSearchIndex(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seedRoot(t, repo)
	require.NoError(t, repo.Store(ctx, contentrepo.NewEntity("Annual Report", nil).
		WithIdentifier(contentrepo.IdentifierOf(2)).
		WithParent(contentrepo.IdentifierOf(1))))

	index := memory.NewSearchIndex(repo)
	require.NoError(t, index.Index(ctx, 2))
	require.NoError(t, index.Index(ctx, 1))
	assert.Equal(t, []contentrepo.ID{2}, index.Search(ctx, "report"))

	require.NoError(t, index.Remove(ctx, 2))
	assert.False(t, index.IsIndexed(2))
	assert.Empty(t, index.Search(ctx, "report"))

	// missing ids are dropped from the projection
	require.NoError(t, index.Index(ctx, 99))
	assert.False(t, index.IsIndexed(99))
}
