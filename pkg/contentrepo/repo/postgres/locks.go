package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/juju/clock"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

// LockManager keeps entity locks in the entity_lock table
type LockManager struct {
	db    DBTX
	clock clock.Clock
}

// NewLockManager stamps acquired locks with clk, or the wall clock when nil
func NewLockManager(db DBTX, clk clock.Clock) *LockManager {
	if clk == nil {
		clk = clock.WallClock
	}
	return &LockManager{db: db, clock: clk}
}

func (m *LockManager) GetLock(ctx context.Context, id contentrepo.ID) (contentrepo.EntityLock, bool, error) {
	query := `SELECT entity_id, owner, token, acquired_at FROM contentrepo.entity_lock WHERE entity_id = $1`

	var (
		entityID   int64
		lock       contentrepo.EntityLock
		acquiredAt time.Time
	)
	err := m.db.QueryRow(ctx, query, int64(id)).Scan(&entityID, &lock.Owner, &lock.Token, &acquiredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentrepo.EntityLock{}, false, nil
		}
		return contentrepo.EntityLock{}, false, handlePostgresError("get lock", err)
	}
	lock.EntityID = contentrepo.ID(entityID)
	lock.AcquiredAt = acquiredAt.UTC()
	return lock, true, nil
}

// Lock acquires the lock on id for owner. Acquiring a lock held by another
// owner fails with the existing lock.
func (m *LockManager) Lock(ctx context.Context, id contentrepo.ID, owner string) (contentrepo.EntityLock, error) {
	query := `
		INSERT INTO contentrepo.entity_lock (entity_id, owner, token, acquired_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id) DO NOTHING`

	if _, err := m.db.Exec(ctx, query, int64(id), owner, uuid.New(), m.clock.Now().UTC()); err != nil {
		return contentrepo.EntityLock{}, handlePostgresError("lock", err)
	}

	lock, held, err := m.GetLock(ctx, id)
	if err != nil {
		return contentrepo.EntityLock{}, err
	}
	if !held {
		return contentrepo.EntityLock{}, errors.New("lock released concurrently")
	}
	if lock.Owner != owner {
		return contentrepo.EntityLock{}, &contentrepo.EntityLockedError{Lock: lock}
	}
	return lock, nil
}

// Unlock releases the lock identified by token
func (m *LockManager) Unlock(ctx context.Context, id contentrepo.ID, token uuid.UUID) error {
	_, err := m.db.Exec(ctx, `DELETE FROM contentrepo.entity_lock WHERE entity_id = $1 AND token = $2`, int64(id), token)
	if err != nil {
		return handlePostgresError("unlock", err)
	}
	return nil
}
