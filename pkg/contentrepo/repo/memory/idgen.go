package memory

import (
	"context"
	"sync/atomic"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// IDGenerator hands out increasing ids
type IDGenerator struct {
	last atomic.Int64
}

// NewIDGenerator creates a generator whose first id is start
func NewIDGenerator(start contentrepo.ID) *IDGenerator {
	g := &IDGenerator{}
	g.last.Store(int64(start) - 1)
	return g
}

func (g *IDGenerator) Generate(ctx context.Context) (contentrepo.ID, error) {
	return contentrepo.ID(g.last.Add(1)), nil
}
