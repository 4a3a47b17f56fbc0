package postgres

import (
	"context"
	"time"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// History implements contentrepo.HistoryManager on the history table
type History struct {
	db DBTX
}

func NewHistory(db DBTX) *History {
	return &History{db: db}
}

func (h *History) CreateEntry(ctx context.Context, id contentrepo.ID, timestamp time.Time, kind contentrepo.EventKind) error {
	query := `INSERT INTO contentrepo.history (entity_id, event_time, kind) VALUES ($1, $2, $3)`
	if _, err := h.db.Exec(ctx, query, int64(id), timestamp, string(kind)); err != nil {
		return handlePostgresError("create history entry", err)
	}
	return nil
}

// Entries returns the entries of one entity in insertion order
func (h *History) Entries(ctx context.Context, id contentrepo.ID) ([]contentrepo.HistoryEntry, error) {
	query := `
		SELECT entity_id, event_time, kind FROM contentrepo.history
		WHERE entity_id = $1 ORDER BY id`

	rows, err := h.db.Query(ctx, query, int64(id))
	if err != nil {
		return nil, handlePostgresError("list history", err)
	}
	defer rows.Close()

	var entries []contentrepo.HistoryEntry
	for rows.Next() {
		var (
			entityID  int64
			eventTime time.Time
			kind      string
		)
		if err := rows.Scan(&entityID, &eventTime, &kind); err != nil {
			return nil, err
		}
		entries = append(entries, contentrepo.HistoryEntry{
			EntityID:  contentrepo.ID(entityID),
			Timestamp: eventTime.UTC(),
			Kind:      contentrepo.EventKind(kind),
		})
	}
	return entries, rows.Err()
}
