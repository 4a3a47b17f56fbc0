package contentrepo

import (
	"context"
	"time"
)

// Repository is the durable entity store
type Repository interface {
	// Store creates or replaces the entity under its numeric identifier
	Store(ctx context.Context, entity Entity) error

	// Get returns the stored entity; false when it does not exist or was removed
	Get(ctx context.Context, id ID) (Entity, bool, error)

	// Resolve maps an identifier to the numeric id of a stored entity
	Resolve(ctx context.Context, identifier Identifier) (ID, error)

	IsGroup(ctx context.Context, id ID) (bool, error)
	IsEmptyGroup(ctx context.Context, id ID) (bool, error)
	RemoveGroup(ctx context.Context, id ID) error
	RemoveEntity(ctx context.Context, id ID) error
}

// AccessControl decides whether the actor in ctx may perform an operation
type AccessControl interface {
	IsEntityCreateable(ctx context.Context, parent ID) bool
	IsEntityWritable(ctx context.Context, id ID) bool
	IsEntityRemovable(ctx context.Context, id ID) bool
	IsGroupRemoveable(ctx context.Context, id ID) bool
	IsGroupCreateable(ctx context.Context, parent ID) bool
}

// EntityLockManager reports locks held on entities. Acquisition and expiry
// happen elsewhere.
type EntityLockManager interface {
	GetLock(ctx context.Context, id ID) (EntityLock, bool, error)
}

// VersioningManager produces a new immutable version of an entity
type VersioningManager interface {
	// CreateNewVersion returns the entity with a new Version attached
	CreateNewVersion(ctx context.Context, entity Entity) (Entity, error)
}

// HistoryManager appends audit records
type HistoryManager interface {
	CreateEntry(ctx context.Context, id ID, timestamp time.Time, kind EventKind) error
}

// SearchIndex keeps a queryable projection of stored entities in sync
type SearchIndex interface {
	Index(ctx context.Context, id ID) error
	Remove(ctx context.Context, id ID) error
}

// RecycleBin stores soft-deleted entities for recovery
type RecycleBin interface {
	Add(ctx context.Context, item RecycleBinItem) error
	Get(ctx context.Context, id ID) (RecycleBinItem, bool, error)
	Remove(ctx context.Context, id ID) error
}

// Publisher controls live-publication state
type Publisher interface {
	// Depublish retracts the entity; entities that are not published are ignored
	Depublish(ctx context.Context, id ID) error
}

// IDGenerator allocates new, never reused entity ids
type IDGenerator interface {
	Generate(ctx context.Context) (ID, error)
}

// ContentDiffer computes the change set between a candidate update and the
// stored entity
type ContentDiffer interface {
	Diff(update, existing Entity) ChangeSet
}
