package contentrepo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juju/clock"
)

// RemoveEntity moves leaf entities and empty groups into the recycle bin.
//
// The search index and publication state are retracted before the repository
// record is deleted, so an interrupted removal leaves the repository as the
// source of truth.
type RemoveEntity struct {
	repository     Repository
	lockManager    EntityLockManager
	historyManager HistoryManager
	accessControl  AccessControl
	recycleBin     RecycleBin
	searchIndex    SearchIndex
	publisher      Publisher
	clock          clock.Clock
	logger         *slog.Logger
}

// NewRemoveEntity creates the remove workflow
func NewRemoveEntity(
	repository Repository,
	lockManager EntityLockManager,
	historyManager HistoryManager,
	accessControl AccessControl,
	recycleBin RecycleBin,
	searchIndex SearchIndex,
	publisher Publisher,
) *RemoveEntity {
	return &RemoveEntity{
		repository:     repository,
		lockManager:    lockManager,
		historyManager: historyManager,
		accessControl:  accessControl,
		recycleBin:     recycleBin,
		searchIndex:    searchIndex,
		publisher:      publisher,
		clock:          clock.WallClock,
		logger:         slog.Default(),
	}
}

// Remove dispatches to RemoveGroup or RemoveEntity
func (r *RemoveEntity) Remove(ctx context.Context, id ID) error {
	isGroup, err := r.repository.IsGroup(ctx, id)
	if err != nil {
		return &OperationError{Op: "remove", ID: id, Err: err}
	}
	if isGroup {
		return r.RemoveGroup(ctx, id)
	}
	return r.RemoveEntity(ctx, id)
}

// RemoveGroup removes an empty group. Removal never cascades.
func (r *RemoveEntity) RemoveGroup(ctx context.Context, id ID) error {
	if !r.accessControl.IsGroupRemoveable(ctx, id) {
		r.logger.WarnContext(ctx, "group removal refused", "id", id)
		return &AccessDeniedError{Reason: fmt.Sprintf("not allowed to remove group %s", id)}
	}

	empty, err := r.repository.IsEmptyGroup(ctx, id)
	if err != nil {
		return &OperationError{Op: "remove group", ID: id, Err: err}
	}
	if !empty {
		return &GroupNotEmptyError{ID: id}
	}

	if err := checkLock(ctx, r.lockManager, id, false); err != nil {
		return err
	}

	group, found, err := r.repository.Get(ctx, id)
	if err != nil {
		return &OperationError{Op: "remove group", ID: id, Err: err}
	}
	if !found {
		return &EntityNotFoundError{ID: id}
	}

	if err := r.searchIndex.Remove(ctx, id); err != nil {
		return &OperationError{Op: "unindex", ID: id, Err: err}
	}
	if err := r.repository.RemoveGroup(ctx, id); err != nil {
		return &OperationError{Op: "remove group", ID: id, Err: err}
	}

	return r.recordRemoval(ctx, group, id)
}

// RemoveEntity removes a leaf entity. Removing an entity that no longer
// exists succeeds without effect.
func (r *RemoveEntity) RemoveEntity(ctx context.Context, id ID) error {
	if !r.accessControl.IsEntityRemovable(ctx, id) {
		r.logger.WarnContext(ctx, "entity removal refused", "id", id)
		return &AccessDeniedError{Reason: fmt.Sprintf("not allowed to remove entity %s", id)}
	}

	entity, found, err := r.repository.Get(ctx, id)
	if err != nil {
		return &OperationError{Op: "remove entity", ID: id, Err: err}
	}
	if !found {
		r.logger.DebugContext(ctx, "entity already removed", "id", id)
		return nil
	}

	if err := checkLock(ctx, r.lockManager, id, false); err != nil {
		return err
	}

	if err := r.searchIndex.Remove(ctx, id); err != nil {
		return &OperationError{Op: "unindex", ID: id, Err: err}
	}
	if err := r.publisher.Depublish(ctx, id); err != nil {
		return &OperationError{Op: "depublish", ID: id, Err: err}
	}
	if err := r.repository.RemoveEntity(ctx, id); err != nil {
		return &OperationError{Op: "remove entity", ID: id, Err: err}
	}

	return r.recordRemoval(ctx, entity, id)
}

func (r *RemoveEntity) recordRemoval(ctx context.Context, removed Entity, id ID) error {
	now := r.clock.Now()

	if err := r.historyManager.CreateEntry(ctx, id, now, EventRemoved); err != nil {
		return &OperationError{Op: "history", ID: id, Err: err}
	}
	item := NewRecycleBinItem(removed.WithIdentifier(IdentifierOf(id)), now)
	if err := r.recycleBin.Add(ctx, item); err != nil {
		return &OperationError{Op: "recycle", ID: id, Err: err}
	}

	r.logger.InfoContext(ctx, "entity removed", "id", id, "kind", removed.Kind())
	return nil
}
