package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

// Repository implements contentrepo.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// row is the column set shared by the entity and recycle_bin tables
type row struct {
	id             int64
	parentID       *int64
	kind           string
	name           string
	content        []byte
	versionTS      *time.Time
	versionContent []byte
}

func rowOf(entity contentrepo.Entity) (row, error) {
	identifier, ok := entity.Identifier()
	if !ok {
		return row{}, fmt.Errorf("%w: entity has no identifier", contentrepo.ErrInvalidArgument)
	}
	id, ok := identifier.ID()
	if !ok {
		return row{}, fmt.Errorf("%w: entity identifier %s is not numeric", contentrepo.ErrInvalidArgument, identifier)
	}

	r := row{
		id:      int64(id),
		kind:    string(entity.Kind()),
		name:    entity.Name(),
		content: entity.Content(),
	}
	if parent, ok := entity.Parent(); ok {
		parentID, ok := parent.ID()
		if !ok {
			return row{}, fmt.Errorf("%w: parent %s of entity %s is not resolved", contentrepo.ErrInvalidArgument, parent, id)
		}
		p := int64(parentID)
		r.parentID = &p
	}
	if version, ok := entity.Version(); ok {
		ts := version.Timestamp()
		r.versionTS = &ts
		r.versionContent = version.Content()
	}
	return r, nil
}

func (r row) entity() contentrepo.Entity {
	var entity contentrepo.Entity
	if contentrepo.Kind(r.kind) == contentrepo.KindGroup {
		entity = contentrepo.NewGroup(r.name)
	} else {
		entity = contentrepo.NewEntity(r.name, r.content)
	}
	entity = entity.WithIdentifier(contentrepo.IdentifierOf(contentrepo.ID(r.id)))
	if r.parentID != nil {
		entity = entity.WithParent(contentrepo.IdentifierOf(contentrepo.ID(*r.parentID)))
	}
	if r.versionTS != nil {
		entity = entity.WithVersion(contentrepo.NewVersion(r.versionTS.UTC(), r.versionContent))
	}
	return entity
}

func (r *Repository) Store(ctx context.Context, entity contentrepo.Entity) error {
	rec, err := rowOf(entity)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO contentrepo.entity (
			id, parent_id, kind, name, content, version_ts, version_content, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id, kind = EXCLUDED.kind, name = EXCLUDED.name,
			content = EXCLUDED.content, version_ts = EXCLUDED.version_ts,
			version_content = EXCLUDED.version_content, updated_at = now()`

	_, err = r.db.Exec(ctx, query,
		rec.id, rec.parentID, rec.kind, rec.name, rec.content, rec.versionTS, rec.versionContent)
	if err != nil {
		return handlePostgresError("store entity", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id contentrepo.ID) (contentrepo.Entity, bool, error) {
	query := `
		SELECT id, parent_id, kind, name, content, version_ts, version_content
		FROM contentrepo.entity WHERE id = $1`

	var rec row
	err := r.db.QueryRow(ctx, query, int64(id)).Scan(
		&rec.id, &rec.parentID, &rec.kind, &rec.name, &rec.content, &rec.versionTS, &rec.versionContent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentrepo.Entity{}, false, nil
		}
		return contentrepo.Entity{}, false, handlePostgresError("get entity", err)
	}
	return rec.entity(), true, nil
}

func (r *Repository) Resolve(ctx context.Context, identifier contentrepo.Identifier) (contentrepo.ID, error) {
	if anchor, ok := identifier.Anchor(); ok {
		var id int64
		query := `
			SELECT a.entity_id FROM contentrepo.entity_anchor a
			JOIN contentrepo.entity e ON e.id = a.entity_id
			WHERE a.anchor = $1`
		err := r.db.QueryRow(ctx, query, anchor).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("anchor %q: %w", anchor, contentrepo.ErrEntityNotFound)
			}
			return 0, handlePostgresError("resolve anchor", err)
		}
		return contentrepo.ID(id), nil
	}

	id, _ := identifier.ID()
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contentrepo.entity WHERE id = $1)`, int64(id)).Scan(&exists)
	if err != nil {
		return 0, handlePostgresError("resolve id", err)
	}
	if !exists {
		return 0, &contentrepo.EntityNotFoundError{ID: id}
	}
	return id, nil
}

func (r *Repository) IsGroup(ctx context.Context, id contentrepo.ID) (bool, error) {
	var isGroup bool
	query := `SELECT EXISTS (SELECT 1 FROM contentrepo.entity WHERE id = $1 AND kind = $2)`
	if err := r.db.QueryRow(ctx, query, int64(id), string(contentrepo.KindGroup)).Scan(&isGroup); err != nil {
		return false, handlePostgresError("is group", err)
	}
	return isGroup, nil
}

func (r *Repository) IsEmptyGroup(ctx context.Context, id contentrepo.ID) (bool, error) {
	var hasChildren bool
	query := `SELECT EXISTS (SELECT 1 FROM contentrepo.entity WHERE parent_id = $1)`
	if err := r.db.QueryRow(ctx, query, int64(id)).Scan(&hasChildren); err != nil {
		return false, handlePostgresError("is empty group", err)
	}
	return !hasChildren, nil
}

func (r *Repository) RemoveGroup(ctx context.Context, id contentrepo.ID) error {
	return r.remove(ctx, id, contentrepo.KindGroup)
}

func (r *Repository) RemoveEntity(ctx context.Context, id contentrepo.ID) error {
	return r.remove(ctx, id, contentrepo.KindEntity)
}

func (r *Repository) remove(ctx context.Context, id contentrepo.ID, kind contentrepo.Kind) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contentrepo.entity WHERE id = $1 AND kind = $2`, int64(id), string(kind))
	if err != nil {
		return handlePostgresError("remove "+string(kind), err)
	}
	if tag.RowsAffected() == 0 {
		return &contentrepo.EntityNotFoundError{ID: id}
	}
	return nil
}

// SetAnchor registers or moves a symbolic name
func (r *Repository) SetAnchor(ctx context.Context, anchor string, id contentrepo.ID) error {
	if anchor == "" {
		return fmt.Errorf("%w: empty anchor", contentrepo.ErrInvalidArgument)
	}
	if _, err := r.Resolve(ctx, contentrepo.IdentifierOf(id)); err != nil {
		return err
	}

	query := `
		INSERT INTO contentrepo.entity_anchor (anchor, entity_id) VALUES ($1, $2)
		ON CONFLICT (anchor) DO UPDATE SET entity_id = EXCLUDED.entity_id`
	if _, err := r.db.Exec(ctx, query, anchor, int64(id)); err != nil {
		return handlePostgresError("set anchor", err)
	}
	return nil
}

// Children returns the ids stored directly below the group
func (r *Repository) Children(ctx context.Context, group contentrepo.ID) ([]contentrepo.ID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM contentrepo.entity WHERE parent_id = $1 ORDER BY id`, int64(group))
	if err != nil {
		return nil, handlePostgresError("list children", err)
	}
	defer rows.Close()

	var children []contentrepo.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		children = append(children, contentrepo.ID(id))
	}
	return children, rows.Err()
}
