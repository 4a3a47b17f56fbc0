// Package versioning creates entity versions and archives their content.
package versioning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/juju/clock"
	"github.com/tendant/content-repository/pkg/contentrepo"
	"github.com/tendant/content-repository/pkg/contentrepo/storage"
)

// Manager implements contentrepo.VersioningManager. Each version is stamped
// with the clock and its content is written to the blob store before the
// versioned entity is returned.
type Manager struct {
	store  storage.BlobStore
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock used for version timestamps
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates a versioning manager archiving into store
func New(store storage.BlobStore, options ...Option) *Manager {
	m := &Manager{
		store:  store,
		clock:  clock.WallClock,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *Manager) CreateNewVersion(ctx context.Context, entity contentrepo.Entity) (contentrepo.Entity, error) {
	id, err := entityID(entity)
	if err != nil {
		return contentrepo.Entity{}, err
	}

	// truncate so the timestamp survives millisecond storage in the history
	timestamp, err := m.freeTimestamp(ctx, id, m.clock.Now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return contentrepo.Entity{}, err
	}
	content := entity.Content()

	key := ObjectKey(id, timestamp)
	if err := m.store.Upload(ctx, key, bytes.NewReader(content)); err != nil {
		return contentrepo.Entity{}, fmt.Errorf("archive version %s: %w", key, err)
	}

	m.logger.DebugContext(ctx, "version archived", "id", id, "key", key, "size", len(content))

	return entity.WithVersion(contentrepo.NewVersion(timestamp, content)), nil
}

// freeTimestamp returns the first millisecond at or after timestamp that has
// no archived version of id yet
func (m *Manager) freeTimestamp(ctx context.Context, id contentrepo.ID, timestamp time.Time) (time.Time, error) {
	for {
		_, err := m.store.GetObjectMeta(ctx, ObjectKey(id, timestamp))
		if errors.Is(err, storage.ErrObjectNotFound) {
			return timestamp, nil
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("check version %s: %w", ObjectKey(id, timestamp), err)
		}
		timestamp = timestamp.Add(time.Millisecond)
	}
}

// Load reads an archived version back from the blob store
func (m *Manager) Load(ctx context.Context, id contentrepo.ID, timestamp time.Time) (contentrepo.Version, error) {
	reader, err := m.store.Download(ctx, ObjectKey(id, timestamp))
	if err != nil {
		return contentrepo.Version{}, fmt.Errorf("load version of %s at %s: %w", id, timestamp.Format(time.RFC3339Nano), err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return contentrepo.Version{}, fmt.Errorf("read version of %s: %w", id, err)
	}
	return contentrepo.NewVersion(timestamp, content), nil
}

// Versions lists the timestamps of the archived versions of id, oldest first
func (m *Manager) Versions(ctx context.Context, id contentrepo.ID) ([]time.Time, error) {
	metas, err := m.store.List(ctx, Prefix(id))
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", id, err)
	}

	timestamps := make([]time.Time, 0, len(metas))
	for _, meta := range metas {
		timestamp, err := parseTimestamp(meta.Key)
		if err != nil {
			m.logger.WarnContext(ctx, "skipping archive object", "id", id, "key", meta.Key, "error", err)
			continue
		}
		timestamps = append(timestamps, timestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
	return timestamps, nil
}

// Prune deletes all but the newest keep archived versions of id and returns
// how many were deleted. At least one version is always kept.
func (m *Manager) Prune(ctx context.Context, id contentrepo.ID, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("%w: keep must be at least 1, got %d", contentrepo.ErrInvalidArgument, keep)
	}

	timestamps, err := m.Versions(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(timestamps) <= keep {
		return 0, nil
	}

	stale := timestamps[:len(timestamps)-keep]
	for i, timestamp := range stale {
		if err := m.store.Delete(ctx, ObjectKey(id, timestamp)); err != nil {
			return i, fmt.Errorf("delete version of %s at %s: %w", id, timestamp.Format(time.RFC3339Nano), err)
		}
	}

	m.logger.InfoContext(ctx, "versions pruned", "id", id, "deleted", len(stale), "kept", keep)
	return len(stale), nil
}

func entityID(entity contentrepo.Entity) (contentrepo.ID, error) {
	identifier, ok := entity.Identifier()
	if !ok {
		return 0, fmt.Errorf("%w: cannot version an entity without identifier", contentrepo.ErrInvalidArgument)
	}
	id, ok := identifier.ID()
	if !ok {
		return 0, fmt.Errorf("%w: cannot version entity %s before resolution", contentrepo.ErrInvalidArgument, identifier)
	}
	return id, nil
}
