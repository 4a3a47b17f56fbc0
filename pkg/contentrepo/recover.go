package contentrepo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juju/clock"
)

// RecoverEntity restores a soft-deleted entity from the recycle bin
type RecoverEntity struct {
	repository     Repository
	historyManager HistoryManager
	accessControl  AccessControl
	recycleBin     RecycleBin
	searchIndex    SearchIndex
	clock          clock.Clock
	logger         *slog.Logger
}

// NewRecoverEntity creates the recover workflow
func NewRecoverEntity(
	repository Repository,
	historyManager HistoryManager,
	accessControl AccessControl,
	recycleBin RecycleBin,
	searchIndex SearchIndex,
) *RecoverEntity {
	return &RecoverEntity{
		repository:     repository,
		historyManager: historyManager,
		accessControl:  accessControl,
		recycleBin:     recycleBin,
		searchIndex:    searchIndex,
		clock:          clock.WallClock,
		logger:         slog.Default(),
	}
}

// Recover puts the recycle bin snapshot of id back into the repository with
// its prior version and consumes the recycle bin item.
func (r *RecoverEntity) Recover(ctx context.Context, id ID) error {
	item, found, err := r.recycleBin.Get(ctx, id)
	if err != nil {
		return &OperationError{Op: "recover", ID: id, Err: err}
	}
	if !found {
		return &EntityNotFoundError{ID: id}
	}

	parent, ok := item.Parent()
	if !ok {
		return ErrParentMissing
	}

	// recovery re-creates the item inside parent, for leaves and groups alike
	if !r.accessControl.IsGroupCreateable(ctx, parent) {
		r.logger.WarnContext(ctx, "recovery refused", "id", id, "parent", parent)
		return &AccessDeniedError{
			Reason: fmt.Sprintf("not allowed to recover entity %s in group %s", id, parent),
		}
	}

	if err := r.repository.Store(ctx, item.Entity()); err != nil {
		return &OperationError{Op: "store", ID: id, Err: err}
	}
	if err := r.historyManager.CreateEntry(ctx, id, r.clock.Now(), EventRestored); err != nil {
		return &OperationError{Op: "history", ID: id, Err: err}
	}
	if err := r.searchIndex.Index(ctx, id); err != nil {
		return &OperationError{Op: "index", ID: id, Err: err}
	}
	if err := r.recycleBin.Remove(ctx, id); err != nil {
		return &OperationError{Op: "consume recycle bin item", ID: id, Err: err}
	}

	r.logger.InfoContext(ctx, "entity recovered", "id", id, "parent", parent)
	return nil
}
