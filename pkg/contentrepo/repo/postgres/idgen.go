package postgres

import (
	"context"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// IDGenerator draws ids from the contentrepo.entity_id_seq sequence
type IDGenerator struct {
	db DBTX
}

func NewIDGenerator(db DBTX) *IDGenerator {
	return &IDGenerator{db: db}
}

func (g *IDGenerator) Generate(ctx context.Context) (contentrepo.ID, error) {
	var id int64
	if err := g.db.QueryRow(ctx, `SELECT nextval('contentrepo.entity_id_seq')`).Scan(&id); err != nil {
		return 0, handlePostgresError("generate id", err)
	}
	return contentrepo.ID(id), nil
}
