package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// Repository implements contentrepo.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	entities map[contentrepo.ID]contentrepo.Entity
	anchors  map[string]contentrepo.ID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		entities: make(map[contentrepo.ID]contentrepo.Entity),
		anchors:  make(map[string]contentrepo.ID),
	}
}

func (r *Repository) Store(ctx context.Context, entity contentrepo.Entity) error {
	id, err := numericID(entity)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities[id] = entity
	return nil
}

func (r *Repository) Get(ctx context.Context, id contentrepo.ID) (contentrepo.Entity, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.entities[id]
	return entity, exists, nil
}

func (r *Repository) Resolve(ctx context.Context, identifier contentrepo.Identifier) (contentrepo.ID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := identifier.ID()
	if !ok {
		anchor, _ := identifier.Anchor()
		if id, ok = r.anchors[anchor]; !ok {
			return 0, fmt.Errorf("anchor %q: %w", anchor, contentrepo.ErrEntityNotFound)
		}
	}
	if _, exists := r.entities[id]; !exists {
		return 0, &contentrepo.EntityNotFoundError{ID: id}
	}
	return id, nil
}

func (r *Repository) IsGroup(ctx context.Context, id contentrepo.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.entities[id]
	return exists && entity.IsGroup(), nil
}

func (r *Repository) IsEmptyGroup(ctx context.Context, id contentrepo.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entity := range r.entities {
		parent, ok := entity.Parent()
		if !ok {
			continue
		}
		if parentID, ok := parent.ID(); ok && parentID == id {
			return false, nil
		}
	}
	return true, nil
}

func (r *Repository) RemoveGroup(ctx context.Context, id contentrepo.ID) error {
	return r.remove(id, true)
}

func (r *Repository) RemoveEntity(ctx context.Context, id contentrepo.ID) error {
	return r.remove(id, false)
}

// SetAnchor registers a symbolic name for a stored entity
func (r *Repository) SetAnchor(ctx context.Context, anchor string, id contentrepo.ID) error {
	if anchor == "" {
		return fmt.Errorf("%w: empty anchor", contentrepo.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[id]; !exists {
		return &contentrepo.EntityNotFoundError{ID: id}
	}
	r.anchors[anchor] = id
	return nil
}

// Children returns the ids stored directly below the group
func (r *Repository) Children(ctx context.Context, group contentrepo.ID) ([]contentrepo.ID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var children []contentrepo.ID
	for id, entity := range r.entities {
		if parent, ok := entity.Parent(); ok {
			if parentID, ok := parent.ID(); ok && parentID == group {
				children = append(children, id)
			}
		}
	}
	return children, nil
}

func (r *Repository) remove(id contentrepo.ID, group bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, exists := r.entities[id]
	if !exists {
		return &contentrepo.EntityNotFoundError{ID: id}
	}
	if entity.IsGroup() != group {
		return fmt.Errorf("%w: entity %s is a %s", contentrepo.ErrInvalidArgument, id, entity.Kind())
	}

	// anchors survive so a recovered entity resolves again
	delete(r.entities, id)
	return nil
}

func numericID(entity contentrepo.Entity) (contentrepo.ID, error) {
	identifier, ok := entity.Identifier()
	if !ok {
		return 0, fmt.Errorf("%w: entity has no identifier", contentrepo.ErrInvalidArgument)
	}
	id, ok := identifier.ID()
	if !ok {
		return 0, fmt.Errorf("%w: entity identifier %s is not numeric", contentrepo.ErrInvalidArgument, identifier)
	}
	return id, nil
}
