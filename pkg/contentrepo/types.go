package contentrepo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ID is the numeric identity of a stored entity
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Identifier references an entity either by numeric id or by a symbolic
// anchor that the repository resolves to a numeric id.
type Identifier struct {
	id       ID
	anchor   string
	symbolic bool
}

// IdentifierOf returns an Identifier for a numeric id
func IdentifierOf(id ID) Identifier {
	return Identifier{id: id}
}

// AnchorOf returns a symbolic Identifier
func AnchorOf(anchor string) Identifier {
	return Identifier{anchor: anchor, symbolic: true}
}

// ID returns the numeric id if the identifier is numeric
func (i Identifier) ID() (ID, bool) {
	if i.symbolic {
		return 0, false
	}
	return i.id, true
}

// Anchor returns the anchor if the identifier is symbolic
func (i Identifier) Anchor() (string, bool) {
	if !i.symbolic {
		return "", false
	}
	return i.anchor, true
}

func (i Identifier) String() string {
	if i.symbolic {
		return "anchor:" + i.anchor
	}
	return i.id.String()
}

// Kind distinguishes leaf entities from groups
type Kind string

const (
	KindEntity Kind = "entity"
	KindGroup  Kind = "group"
)

// Version is an immutable snapshot of entity content. Only a VersioningManager
// creates versions.
type Version struct {
	timestamp time.Time
	content   []byte
}

// NewVersion creates a version. The content is copied.
func NewVersion(timestamp time.Time, content []byte) Version {
	return Version{timestamp: timestamp, content: cloneBytes(content)}
}

// Timestamp returns the creation time of the version
func (v Version) Timestamp() time.Time {
	return v.timestamp
}

// Content returns a copy of the versioned content
func (v Version) Content() []byte {
	return cloneBytes(v.content)
}

// Entity is an identity-bearing content node. Values are immutable; the With*
// methods return modified copies.
type Entity struct {
	identifier *Identifier
	parent     *Identifier
	version    *Version
	kind       Kind
	name       string
	content    []byte
}

// NewEntity creates a leaf entity that has not been stored yet
func NewEntity(name string, content []byte) Entity {
	return Entity{kind: KindEntity, name: name, content: cloneBytes(content)}
}

// NewGroup creates a group that has not been stored yet
func NewGroup(name string) Entity {
	return Entity{kind: KindGroup, name: name}
}

// Identifier returns the entity identifier; false means the entity was never stored.
func (e Entity) Identifier() (Identifier, bool) {
	if e.identifier == nil {
		return Identifier{}, false
	}
	return *e.identifier, true
}

// Parent returns the parent group identifier
func (e Entity) Parent() (Identifier, bool) {
	if e.parent == nil {
		return Identifier{}, false
	}
	return *e.parent, true
}

// Version returns the current version
func (e Entity) Version() (Version, bool) {
	if e.version == nil {
		return Version{}, false
	}
	return *e.version, true
}

func (e Entity) Kind() Kind {
	return e.kind
}

func (e Entity) IsGroup() bool {
	return e.kind == KindGroup
}

func (e Entity) Name() string {
	return e.name
}

// Content returns a copy of the working content
func (e Entity) Content() []byte {
	return cloneBytes(e.content)
}

func (e Entity) WithIdentifier(identifier Identifier) Entity {
	e.identifier = &identifier
	return e
}

func (e Entity) WithParent(parent Identifier) Entity {
	e.parent = &parent
	return e
}

func (e Entity) WithVersion(version Version) Entity {
	e.version = &version
	return e
}

func (e Entity) WithName(name string) Entity {
	e.name = name
	return e
}

func (e Entity) WithContent(content []byte) Entity {
	e.content = cloneBytes(content)
	return e
}

func (e Entity) String() string {
	id := "new"
	if identifier, ok := e.Identifier(); ok {
		id = identifier.String()
	}
	return fmt.Sprintf("%s(%s %q)", e.kind, id, e.name)
}

// Change describes one differing field between two entity states
type Change struct {
	Field string
	Diff  string
}

// ChangeSet is the delta between a candidate update and the stored entity
type ChangeSet struct {
	changes []Change
}

// NewChangeSet creates a change set from the given changes
func NewChangeSet(changes ...Change) ChangeSet {
	return ChangeSet{changes: append([]Change(nil), changes...)}
}

// IsEmpty reports whether the update has no observable effect
func (c ChangeSet) IsEmpty() bool {
	return len(c.changes) == 0
}

func (c ChangeSet) Changes() []Change {
	return append([]Change(nil), c.changes...)
}

// EntityLock is an exclusive hold on an entity owned by some actor
type EntityLock struct {
	EntityID   ID
	Owner      string
	Token      uuid.UUID
	AcquiredAt time.Time
}

// RecycleBinItem is a soft-deleted entity snapshot together with its former parent
type RecycleBinItem struct {
	entity    Entity
	parent    *ID
	removedAt time.Time
}

// NewRecycleBinItem captures a removed entity. The parent is taken from the
// entity when it carries a numeric parent identifier.
func NewRecycleBinItem(entity Entity, removedAt time.Time) RecycleBinItem {
	item := RecycleBinItem{entity: entity, removedAt: removedAt}
	if parent, ok := entity.Parent(); ok {
		if parentID, ok := parent.ID(); ok {
			item.parent = &parentID
		}
	}
	return item
}

// ID returns the id of the removed entity
func (r RecycleBinItem) ID() ID {
	if identifier, ok := r.entity.Identifier(); ok {
		if id, ok := identifier.ID(); ok {
			return id
		}
	}
	return 0
}

func (r RecycleBinItem) Entity() Entity {
	return r.entity
}

// Parent returns the group the entity was removed from
func (r RecycleBinItem) Parent() (ID, bool) {
	if r.parent == nil {
		return 0, false
	}
	return *r.parent, true
}

func (r RecycleBinItem) RemovedAt() time.Time {
	return r.removedAt
}

// EventKind classifies history entries
type EventKind string

const (
	EventCreated  EventKind = "CREATED"
	EventUpdated  EventKind = "UPDATED"
	EventRemoved  EventKind = "REMOVED"
	EventRestored EventKind = "RESTORED"
)

// HistoryEntry is an append-only audit record
type HistoryEntry struct {
	EntityID  ID
	Timestamp time.Time
	Kind      EventKind
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
