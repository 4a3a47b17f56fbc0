package contentrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// StoreEntity creates new entities and updates existing ones. An update that
// changes nothing produces no new version.
type StoreEntity struct {
	repository        Repository
	lockManager       EntityLockManager
	versioningManager VersioningManager
	historyManager    HistoryManager
	accessControl     AccessControl
	idGenerator       IDGenerator
	searchIndex       SearchIndex
	contentDiffer     ContentDiffer
	logger            *slog.Logger
}

// NewStoreEntity creates the store workflow
func NewStoreEntity(
	repository Repository,
	lockManager EntityLockManager,
	versioningManager VersioningManager,
	historyManager HistoryManager,
	accessControl AccessControl,
	idGenerator IDGenerator,
	searchIndex SearchIndex,
	contentDiffer ContentDiffer,
) *StoreEntity {
	return &StoreEntity{
		repository:        repository,
		lockManager:       lockManager,
		versioningManager: versioningManager,
		historyManager:    historyManager,
		accessControl:     accessControl,
		idGenerator:       idGenerator,
		searchIndex:       searchIndex,
		contentDiffer:     contentDiffer,
		logger:            slog.Default(),
	}
}

// Store creates the entity when it carries no identifier and updates it otherwise
func (s *StoreEntity) Store(ctx context.Context, entity Entity) (Identifier, error) {
	if _, ok := entity.Identifier(); !ok {
		return s.Create(ctx, entity)
	}
	return s.Update(ctx, entity)
}

// Create stores a new entity below its parent group
func (s *StoreEntity) Create(ctx context.Context, newEntity Entity) (Identifier, error) {
	if identifier, ok := newEntity.Identifier(); ok {
		return Identifier{}, invalidArgument("create failed, entity already has identifier %s", identifier)
	}

	parent, ok := newEntity.Parent()
	if !ok {
		return Identifier{}, ErrParentMissing
	}

	parentID, err := s.repository.Resolve(ctx, parent)
	if err != nil {
		return Identifier{}, err
	}

	if !s.accessControl.IsEntityCreateable(ctx, parentID) {
		s.logger.WarnContext(ctx, "create refused", "parent", parentID, "kind", newEntity.Kind())
		return Identifier{}, &AccessDeniedError{
			Reason: fmt.Sprintf("not allowed to create %s in group %s", newEntity.Kind(), parent),
		}
	}

	generatedID, err := s.idGenerator.Generate(ctx)
	if err != nil {
		return Identifier{}, &OperationError{Op: "generate id", Err: err}
	}

	entityWithID := newEntity.
		WithIdentifier(IdentifierOf(generatedID)).
		WithParent(IdentifierOf(parentID))

	versioned, version, err := s.newVersion(ctx, generatedID, entityWithID)
	if err != nil {
		return Identifier{}, err
	}

	if err := s.repository.Store(ctx, versioned); err != nil {
		return Identifier{}, &OperationError{Op: "store", ID: generatedID, Err: err}
	}
	if err := s.historyManager.CreateEntry(ctx, generatedID, version.Timestamp(), EventCreated); err != nil {
		return Identifier{}, &OperationError{Op: "history", ID: generatedID, Err: err}
	}
	if err := s.searchIndex.Index(ctx, generatedID); err != nil {
		return Identifier{}, &OperationError{Op: "index", ID: generatedID, Err: err}
	}

	s.logger.InfoContext(ctx, "entity created", "id", generatedID, "parent", parentID, "kind", newEntity.Kind())

	identifier, _ := versioned.Identifier()
	return identifier, nil
}

// Update stores a new version of an existing entity. When the differ reports
// no change nothing is written and the identifier is returned as given.
func (s *StoreEntity) Update(ctx context.Context, updateEntity Entity) (Identifier, error) {
	identifier, ok := updateEntity.Identifier()
	if !ok {
		return Identifier{}, invalidArgument("update failed, identifier missing")
	}

	id, err := s.repository.Resolve(ctx, identifier)
	if err != nil {
		return Identifier{}, err
	}

	existing, found, err := s.repository.Get(ctx, id)
	if err != nil {
		return Identifier{}, &OperationError{Op: "load", ID: id, Err: err}
	}
	if !found {
		return Identifier{}, &EntityNotFoundError{ID: id}
	}

	if !s.accessControl.IsEntityWritable(ctx, id) {
		s.logger.WarnContext(ctx, "update refused", "id", id)
		return Identifier{}, &AccessDeniedError{
			Reason: fmt.Sprintf("not allowed to update entity %s", identifier),
		}
	}

	if err := checkLock(ctx, s.lockManager, id, true); err != nil {
		return Identifier{}, err
	}

	if updateEntity.Kind() != existing.Kind() {
		return Identifier{}, invalidArgument("entity %s cannot change kind from %s to %s",
			id, existing.Kind(), updateEntity.Kind())
	}

	candidate, err := s.bindUpdate(ctx, id, updateEntity, existing)
	if err != nil {
		return Identifier{}, err
	}

	changeSet := s.contentDiffer.Diff(candidate, existing)
	if changeSet.IsEmpty() {
		s.logger.DebugContext(ctx, "update without changes", "id", id)
		return identifier, nil
	}

	versioned, version, err := s.newVersion(ctx, id, candidate)
	if err != nil {
		return Identifier{}, err
	}

	if err := s.repository.Store(ctx, versioned); err != nil {
		return Identifier{}, &OperationError{Op: "store", ID: id, Err: err}
	}
	if err := s.historyManager.CreateEntry(ctx, id, version.Timestamp(), EventUpdated); err != nil {
		return Identifier{}, &OperationError{Op: "history", ID: id, Err: err}
	}
	if err := s.searchIndex.Index(ctx, id); err != nil {
		return Identifier{}, &OperationError{Op: "index", ID: id, Err: err}
	}

	s.logger.InfoContext(ctx, "entity updated", "id", id, "changes", len(changeSet.Changes()))

	return identifier, nil
}

// bindUpdate pins the candidate to the resolved numeric id and parent so it
// compares equal to the stored record when nothing else differs.
func (s *StoreEntity) bindUpdate(ctx context.Context, id ID, update, existing Entity) (Entity, error) {
	candidate := update.WithIdentifier(IdentifierOf(id))

	parent, ok := update.Parent()
	if !ok {
		if existingParent, ok := existing.Parent(); ok {
			candidate = candidate.WithParent(existingParent)
		}
		return candidate, nil
	}

	parentID, err := s.repository.Resolve(ctx, parent)
	if err != nil {
		return Entity{}, err
	}
	return candidate.WithParent(IdentifierOf(parentID)), nil
}

func (s *StoreEntity) newVersion(ctx context.Context, id ID, entity Entity) (Entity, Version, error) {
	versioned, err := s.versioningManager.CreateNewVersion(ctx, entity)
	if err != nil {
		return Entity{}, Version{}, &OperationError{Op: "create version", ID: id, Err: err}
	}
	version, ok := versioned.Version()
	if !ok {
		return Entity{}, Version{}, &OperationError{Op: "create version", ID: id, Err: errors.New("no version attached")}
	}
	return versioned, version, nil
}

// checkLock fails when a lock is held on id. With allowOwner set, a lock held
// by the actor in ctx does not block.
func checkLock(ctx context.Context, lockManager EntityLockManager, id ID, allowOwner bool) error {
	lock, held, err := lockManager.GetLock(ctx, id)
	if err != nil {
		return &OperationError{Op: "get lock", ID: id, Err: err}
	}
	if !held {
		return nil
	}
	if allowOwner {
		if actor, ok := ActorFromContext(ctx); ok && actor == lock.Owner {
			return nil
		}
	}
	return &EntityLockedError{Lock: lock}
}
