package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

// LockManager holds entity locks in memory
type LockManager struct {
	mu    sync.RWMutex
	locks map[contentrepo.ID]contentrepo.EntityLock
	clock clock.Clock
}

// NewLockManager creates a lock manager without locks. A nil clock means the
// wall clock.
func NewLockManager(clk clock.Clock) *LockManager {
	if clk == nil {
		clk = clock.WallClock
	}
	return &LockManager{
		locks: make(map[contentrepo.ID]contentrepo.EntityLock),
		clock: clk,
	}
}

func (m *LockManager) GetLock(ctx context.Context, id contentrepo.ID) (contentrepo.EntityLock, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lock, held := m.locks[id]
	return lock, held, nil
}

// Lock acquires the lock on id for owner. Acquiring a lock held by another
// owner fails with the existing lock.
func (m *LockManager) Lock(ctx context.Context, id contentrepo.ID, owner string) (contentrepo.EntityLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, held := m.locks[id]; held {
		if existing.Owner == owner {
			return existing, nil
		}
		return contentrepo.EntityLock{}, &contentrepo.EntityLockedError{Lock: existing}
	}

	lock := contentrepo.EntityLock{
		EntityID:   id,
		Owner:      owner,
		Token:      uuid.New(),
		AcquiredAt: m.clock.Now().UTC(),
	}
	m.locks[id] = lock
	return lock, nil
}

// Unlock releases the lock identified by token
func (m *LockManager) Unlock(ctx context.Context, id contentrepo.ID, token uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lock, held := m.locks[id]; held && lock.Token == token {
		delete(m.locks, id)
	}
	return nil
}
