package contentrepo

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrEntityNotFound indicates an entity or recycle bin item does not exist
	ErrEntityNotFound = errors.New("entity not found")

	// ErrAccessDenied indicates the access control refused the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrEntityLocked indicates a conflicting lock is held on the entity
	ErrEntityLocked = errors.New("entity locked")

	// ErrGroupNotEmpty indicates a group still has children
	ErrGroupNotEmpty = errors.New("group not empty")

	// ErrParentMissing indicates a create was attempted without a parent group
	ErrParentMissing = errors.New("parent missing")

	// ErrInvalidArgument indicates a malformed request
	ErrInvalidArgument = errors.New("invalid argument")
)

// EntityNotFoundError names the id that could not be found
type EntityNotFoundError struct {
	ID ID
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity with id %s not found", e.ID)
}

func (e *EntityNotFoundError) Unwrap() error {
	return ErrEntityNotFound
}

// AccessDeniedError carries the reason the operation was refused
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return "access denied: " + e.Reason
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrAccessDenied
}

// EntityLockedError surfaces the lock that blocked the operation
type EntityLockedError struct {
	Lock EntityLock
}

func (e *EntityLockedError) Error() string {
	return fmt.Sprintf("entity %s is locked by %s", e.Lock.EntityID, e.Lock.Owner)
}

func (e *EntityLockedError) Unwrap() error {
	return ErrEntityLocked
}

// GroupNotEmptyError names the group that still has children
type GroupNotEmptyError struct {
	ID ID
}

func (e *GroupNotEmptyError) Error() string {
	return fmt.Sprintf("group %s is not empty", e.ID)
}

func (e *GroupNotEmptyError) Unwrap() error {
	return ErrGroupNotEmpty
}

// OperationError wraps a collaborator failure during a lifecycle operation
type OperationError struct {
	Op  string
	ID  ID
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed for entity %s: %v", e.Op, e.ID, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
