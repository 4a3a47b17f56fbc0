package contentrepo_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

var (
	versionTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clockTime   = time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
)

// recorder keeps the calls made into every fake in order
type recorder struct {
	calls []string
}

func (r *recorder) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// mutations returns the recorded calls that change state
func (r *recorder) mutations() []string {
	var result []string
	for _, call := range r.calls {
		for _, prefix := range []string{
			"repository.store", "repository.remove", "history.", "index.", "publisher.",
			"recycleBin.add", "recycleBin.remove", "versioning.",
		} {
			if strings.HasPrefix(call, prefix) {
				result = append(result, call)
				break
			}
		}
	}
	return result
}

func (r *recorder) called(prefix string) int {
	n := 0
	for _, call := range r.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

type fakeRepository struct {
	rec      *recorder
	entities map[contentrepo.ID]contentrepo.Entity
	anchors  map[string]contentrepo.ID
	nonEmpty map[contentrepo.ID]bool
	getErr   error
}

func (f *fakeRepository) put(entity contentrepo.Entity) {
	identifier, _ := entity.Identifier()
	id, _ := identifier.ID()
	f.entities[id] = entity
}

func (f *fakeRepository) Store(ctx context.Context, entity contentrepo.Entity) error {
	identifier, _ := entity.Identifier()
	f.rec.record("repository.store(%s)", identifier)
	f.put(entity)
	return nil
}

func (f *fakeRepository) Get(ctx context.Context, id contentrepo.ID) (contentrepo.Entity, bool, error) {
	f.rec.record("repository.get(%d)", id)
	if f.getErr != nil {
		return contentrepo.Entity{}, false, f.getErr
	}
	entity, ok := f.entities[id]
	return entity, ok, nil
}

func (f *fakeRepository) Resolve(ctx context.Context, identifier contentrepo.Identifier) (contentrepo.ID, error) {
	f.rec.record("repository.resolve(%s)", identifier)
	if id, ok := identifier.ID(); ok {
		return id, nil
	}
	anchor, _ := identifier.Anchor()
	if id, ok := f.anchors[anchor]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("anchor %q: %w", anchor, contentrepo.ErrEntityNotFound)
}

func (f *fakeRepository) IsGroup(ctx context.Context, id contentrepo.ID) (bool, error) {
	f.rec.record("repository.isGroup(%d)", id)
	entity, ok := f.entities[id]
	return ok && entity.IsGroup(), nil
}

func (f *fakeRepository) IsEmptyGroup(ctx context.Context, id contentrepo.ID) (bool, error) {
	f.rec.record("repository.isEmptyGroup(%d)", id)
	return !f.nonEmpty[id], nil
}

func (f *fakeRepository) RemoveGroup(ctx context.Context, id contentrepo.ID) error {
	f.rec.record("repository.removeGroup(%d)", id)
	delete(f.entities, id)
	return nil
}

func (f *fakeRepository) RemoveEntity(ctx context.Context, id contentrepo.ID) error {
	f.rec.record("repository.removeEntity(%d)", id)
	delete(f.entities, id)
	return nil
}

type fakeAccess struct {
	rec             *recorder
	denyCreate      bool
	denyWrite       bool
	denyRemove      bool
	denyGroupRemove bool
	denyGroupCreate bool
}

func (f *fakeAccess) IsEntityCreateable(ctx context.Context, parent contentrepo.ID) bool {
	f.rec.record("access.isEntityCreateable(%d)", parent)
	return !f.denyCreate
}

func (f *fakeAccess) IsEntityWritable(ctx context.Context, id contentrepo.ID) bool {
	f.rec.record("access.isEntityWritable(%d)", id)
	return !f.denyWrite
}

func (f *fakeAccess) IsEntityRemovable(ctx context.Context, id contentrepo.ID) bool {
	f.rec.record("access.isEntityRemovable(%d)", id)
	return !f.denyRemove
}

func (f *fakeAccess) IsGroupRemoveable(ctx context.Context, id contentrepo.ID) bool {
	f.rec.record("access.isGroupRemoveable(%d)", id)
	return !f.denyGroupRemove
}

func (f *fakeAccess) IsGroupCreateable(ctx context.Context, parent contentrepo.ID) bool {
	f.rec.record("access.isGroupCreateable(%d)", parent)
	return !f.denyGroupCreate
}

type fakeLocks struct {
	rec   *recorder
	locks map[contentrepo.ID]contentrepo.EntityLock
}

func (f *fakeLocks) GetLock(ctx context.Context, id contentrepo.ID) (contentrepo.EntityLock, bool, error) {
	f.rec.record("locks.getLock(%d)", id)
	lock, ok := f.locks[id]
	return lock, ok, nil
}

type fakeVersioning struct {
	rec *recorder
}

func (f *fakeVersioning) CreateNewVersion(ctx context.Context, entity contentrepo.Entity) (contentrepo.Entity, error) {
	identifier, _ := entity.Identifier()
	f.rec.record("versioning.createNewVersion(%s)", identifier)
	return entity.WithVersion(contentrepo.NewVersion(versionTime, entity.Content())), nil
}

type fakeHistory struct {
	rec     *recorder
	entries []contentrepo.HistoryEntry
}

func (f *fakeHistory) CreateEntry(ctx context.Context, id contentrepo.ID, timestamp time.Time, kind contentrepo.EventKind) error {
	f.rec.record("history.createEntry(%d,%s)", id, kind)
	f.entries = append(f.entries, contentrepo.HistoryEntry{EntityID: id, Timestamp: timestamp, Kind: kind})
	return nil
}

type fakeIndex struct {
	rec *recorder
	err error
}

func (f *fakeIndex) Index(ctx context.Context, id contentrepo.ID) error {
	f.rec.record("index.index(%d)", id)
	return f.err
}

func (f *fakeIndex) Remove(ctx context.Context, id contentrepo.ID) error {
	f.rec.record("index.remove(%d)", id)
	return f.err
}

type fakeRecycleBin struct {
	rec   *recorder
	items map[contentrepo.ID]contentrepo.RecycleBinItem
	added []contentrepo.RecycleBinItem
}

func (f *fakeRecycleBin) Add(ctx context.Context, item contentrepo.RecycleBinItem) error {
	f.rec.record("recycleBin.add(%d)", item.ID())
	f.items[item.ID()] = item
	f.added = append(f.added, item)
	return nil
}

func (f *fakeRecycleBin) Get(ctx context.Context, id contentrepo.ID) (contentrepo.RecycleBinItem, bool, error) {
	f.rec.record("recycleBin.get(%d)", id)
	item, ok := f.items[id]
	return item, ok, nil
}

func (f *fakeRecycleBin) Remove(ctx context.Context, id contentrepo.ID) error {
	f.rec.record("recycleBin.remove(%d)", id)
	delete(f.items, id)
	return nil
}

type fakePublisher struct {
	rec *recorder
}

func (f *fakePublisher) Depublish(ctx context.Context, id contentrepo.ID) error {
	f.rec.record("publisher.depublish(%d)", id)
	return nil
}

type fakeIDGenerator struct {
	rec  *recorder
	next contentrepo.ID
}

func (f *fakeIDGenerator) Generate(ctx context.Context) (contentrepo.ID, error) {
	f.rec.record("idGenerator.generate()")
	if f.next == 0 {
		return 0, errors.New("generator exhausted")
	}
	id := f.next
	f.next++
	return id, nil
}

// fakeDiffer reports an empty change set when forced, else delegates
type fakeDiffer struct {
	rec        *recorder
	forceEmpty bool
}

func (f *fakeDiffer) Diff(update, existing contentrepo.Entity) contentrepo.ChangeSet {
	f.rec.record("differ.diff")
	if f.forceEmpty {
		return contentrepo.NewChangeSet()
	}
	return contentrepo.NewContentDiffer().Diff(update, existing)
}

type fixture struct {
	rec        *recorder
	repo       *fakeRepository
	access     *fakeAccess
	locks      *fakeLocks
	versioning *fakeVersioning
	history    *fakeHistory
	index      *fakeIndex
	recycleBin *fakeRecycleBin
	publisher  *fakePublisher
	idGen      *fakeIDGenerator
	differ     *fakeDiffer
	svc        contentrepo.Service
}

// newFixture creates a service over fakes with a root group (id 1) stored
func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &recorder{}
	f := &fixture{
		rec: rec,
		repo: &fakeRepository{
			rec:      rec,
			entities: make(map[contentrepo.ID]contentrepo.Entity),
			anchors:  make(map[string]contentrepo.ID),
			nonEmpty: make(map[contentrepo.ID]bool),
		},
		access:     &fakeAccess{rec: rec},
		locks:      &fakeLocks{rec: rec, locks: make(map[contentrepo.ID]contentrepo.EntityLock)},
		versioning: &fakeVersioning{rec: rec},
		history:    &fakeHistory{rec: rec},
		index:      &fakeIndex{rec: rec},
		recycleBin: &fakeRecycleBin{rec: rec, items: make(map[contentrepo.ID]contentrepo.RecycleBinItem)},
		publisher:  &fakePublisher{rec: rec},
		idGen:      &fakeIDGenerator{rec: rec, next: 42},
		differ:     &fakeDiffer{rec: rec},
	}

	f.repo.put(contentrepo.NewGroup("root").WithIdentifier(contentrepo.IdentifierOf(1)))
	f.repo.anchors["root"] = 1

	svc, err := contentrepo.New(
		contentrepo.WithRepository(f.repo),
		contentrepo.WithAccessControl(f.access),
		contentrepo.WithLockManager(f.locks),
		contentrepo.WithVersioningManager(f.versioning),
		contentrepo.WithHistoryManager(f.history),
		contentrepo.WithSearchIndex(f.index),
		contentrepo.WithRecycleBin(f.recycleBin),
		contentrepo.WithPublisher(f.publisher),
		contentrepo.WithIDGenerator(f.idGen),
		contentrepo.WithContentDiffer(f.differ),
		contentrepo.WithClock(testclock.NewClock(clockTime)),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// storedEntity puts a leaf entity below parent directly into the fake repository
func (f *fixture) storedEntity(id, parent contentrepo.ID, name, content string) contentrepo.Entity {
	entity := contentrepo.NewEntity(name, []byte(content)).
		WithIdentifier(contentrepo.IdentifierOf(id)).
		WithParent(contentrepo.IdentifierOf(parent)).
		WithVersion(contentrepo.NewVersion(versionTime.Add(-time.Hour), []byte(content)))
	f.repo.put(entity)
	return entity
}

func (f *fixture) storedGroup(id, parent contentrepo.ID, name string) contentrepo.Entity {
	group := contentrepo.NewGroup(name).
		WithIdentifier(contentrepo.IdentifierOf(id)).
		WithParent(contentrepo.IdentifierOf(parent))
	f.repo.put(group)
	return group
}

func (f *fixture) reset() {
	f.rec.calls = nil
}
