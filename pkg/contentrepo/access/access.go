// Package access provides contentrepo.AccessControl implementations.
package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// AllowAll permits every operation
type AllowAll struct{}

func (AllowAll) IsEntityCreateable(ctx context.Context, parent contentrepo.ID) bool { return true }
func (AllowAll) IsEntityWritable(ctx context.Context, id contentrepo.ID) bool { return true }
func (AllowAll) IsEntityRemovable(ctx context.Context, id contentrepo.ID) bool { return true }
func (AllowAll) IsGroupRemoveable(ctx context.Context, id contentrepo.ID) bool { return true }
func (AllowAll) IsGroupCreateable(ctx context.Context, parent contentrepo.ID) bool { return true }

// Permission is a right an actor holds on a group and everything below it
type Permission string

const (
	PermissionCreate Permission = "create"
	PermissionWrite  Permission = "write"
	PermissionRemove Permission = "remove"
	PermissionAdmin  Permission = "admin"
)

// maxDepth bounds the ancestor walk so a parent cycle cannot loop forever
const maxDepth = 64

// Policy grants permissions per actor on groups. A grant on a group applies
// to the group itself and to every entity below it. Requests without an
// actor in the context are refused.
type Policy struct {
	mu         sync.RWMutex
	repository contentrepo.Repository
	grants     map[string]map[contentrepo.ID]map[Permission]struct{}
	logger     *slog.Logger
}

// NewPolicy creates a policy that looks up entity ancestry in repository
func NewPolicy(repository contentrepo.Repository, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		repository: repository,
		grants:     make(map[string]map[contentrepo.ID]map[Permission]struct{}),
		logger:     logger,
	}
}

// Grant gives actor the permissions on group
func (p *Policy) Grant(actor string, group contentrepo.ID, permissions ...Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()

	groups, ok := p.grants[actor]
	if !ok {
		groups = make(map[contentrepo.ID]map[Permission]struct{})
		p.grants[actor] = groups
	}
	perms, ok := groups[group]
	if !ok {
		perms = make(map[Permission]struct{})
		groups[group] = perms
	}
	for _, permission := range permissions {
		perms[permission] = struct{}{}
	}
}

// Revoke removes all permissions of actor on group
func (p *Policy) Revoke(actor string, group contentrepo.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.grants[actor], group)
}

func (p *Policy) IsEntityCreateable(ctx context.Context, parent contentrepo.ID) bool {
	return p.allowed(ctx, parent, PermissionCreate)
}

func (p *Policy) IsEntityWritable(ctx context.Context, id contentrepo.ID) bool {
	return p.allowed(ctx, id, PermissionWrite)
}

func (p *Policy) IsEntityRemovable(ctx context.Context, id contentrepo.ID) bool {
	return p.allowed(ctx, id, PermissionRemove)
}

func (p *Policy) IsGroupRemoveable(ctx context.Context, id contentrepo.ID) bool {
	return p.allowed(ctx, id, PermissionRemove)
}

func (p *Policy) IsGroupCreateable(ctx context.Context, parent contentrepo.ID) bool {
	return p.allowed(ctx, parent, PermissionCreate)
}

// allowed walks from id up through its ancestors looking for a grant
func (p *Policy) allowed(ctx context.Context, id contentrepo.ID, permission Permission) bool {
	actor, ok := contentrepo.ActorFromContext(ctx)
	if !ok {
		return false
	}

	current := id
	for depth := 0; depth < maxDepth; depth++ {
		if p.holds(actor, current, permission) {
			return true
		}

		entity, found, err := p.repository.Get(ctx, current)
		if err != nil {
			p.logger.ErrorContext(ctx, "access check failed", "id", current, "error", err)
			return false
		}
		if !found {
			return false
		}
		parent, ok := entity.Parent()
		if !ok {
			return false
		}
		parentID, ok := parent.ID()
		if !ok {
			return false
		}
		current = parentID
	}
	return false
}

func (p *Policy) holds(actor string, group contentrepo.ID, permission Permission) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	perms := p.grants[actor][group]
	if _, ok := perms[PermissionAdmin]; ok {
		return true
	}
	_, ok := perms[permission]
	return ok
}
