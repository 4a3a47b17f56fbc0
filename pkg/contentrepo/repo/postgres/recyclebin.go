package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

// RecycleBin implements contentrepo.RecycleBin. Each item is a copy of the
// entity row plus the removal time.
type RecycleBin struct {
	db DBTX
}

func NewRecycleBin(db DBTX) *RecycleBin {
	return &RecycleBin{db: db}
}

func (b *RecycleBin) Add(ctx context.Context, item contentrepo.RecycleBinItem) error {
	rec, err := rowOf(item.Entity())
	if err != nil {
		return err
	}
	// the item parent wins over the snapshot parent
	if parent, ok := item.Parent(); ok {
		p := int64(parent)
		rec.parentID = &p
	}

	query := `
		INSERT INTO contentrepo.recycle_bin (
			entity_id, parent_id, kind, name, content, version_ts, version_content, removed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (entity_id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id, kind = EXCLUDED.kind, name = EXCLUDED.name,
			content = EXCLUDED.content, version_ts = EXCLUDED.version_ts,
			version_content = EXCLUDED.version_content, removed_at = EXCLUDED.removed_at`

	_, err = b.db.Exec(ctx, query,
		rec.id, rec.parentID, rec.kind, rec.name, rec.content, rec.versionTS, rec.versionContent, item.RemovedAt())
	if err != nil {
		return handlePostgresError("add recycle bin item", err)
	}
	return nil
}

const recycleBinColumns = `entity_id, parent_id, kind, name, content, version_ts, version_content, removed_at`

func (b *RecycleBin) Get(ctx context.Context, id contentrepo.ID) (contentrepo.RecycleBinItem, bool, error) {
	query := `SELECT ` + recycleBinColumns + ` FROM contentrepo.recycle_bin WHERE entity_id = $1`

	item, err := scanItem(b.db.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentrepo.RecycleBinItem{}, false, nil
		}
		return contentrepo.RecycleBinItem{}, false, handlePostgresError("get recycle bin item", err)
	}
	return item, true, nil
}

func (b *RecycleBin) Remove(ctx context.Context, id contentrepo.ID) error {
	if _, err := b.db.Exec(ctx, `DELETE FROM contentrepo.recycle_bin WHERE entity_id = $1`, int64(id)); err != nil {
		return handlePostgresError("remove recycle bin item", err)
	}
	return nil
}

// List returns all items, most recently removed first
func (b *RecycleBin) List(ctx context.Context) ([]contentrepo.RecycleBinItem, error) {
	query := `SELECT ` + recycleBinColumns + ` FROM contentrepo.recycle_bin ORDER BY removed_at DESC, entity_id`

	rows, err := b.db.Query(ctx, query)
	if err != nil {
		return nil, handlePostgresError("list recycle bin", err)
	}
	defer rows.Close()

	var items []contentrepo.RecycleBinItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(scanner pgx.Row) (contentrepo.RecycleBinItem, error) {
	var (
		rec       row
		removedAt time.Time
	)
	err := scanner.Scan(&rec.id, &rec.parentID, &rec.kind, &rec.name, &rec.content,
		&rec.versionTS, &rec.versionContent, &removedAt)
	if err != nil {
		return contentrepo.RecycleBinItem{}, err
	}
	return contentrepo.NewRecycleBinItem(rec.entity(), removedAt.UTC()), nil
}
