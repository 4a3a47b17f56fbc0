package memory

import (
	"context"
	"sync"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// Publisher tracks live-publication state in memory
type Publisher struct {
	mu        sync.RWMutex
	published map[contentrepo.ID]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{published: make(map[contentrepo.ID]struct{})}
}

func (p *Publisher) Publish(ctx context.Context, id contentrepo.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.published[id] = struct{}{}
	return nil
}

func (p *Publisher) Depublish(ctx context.Context, id contentrepo.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.published, id)
	return nil
}

func (p *Publisher) IsPublished(id contentrepo.ID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.published[id]
	return ok
}
