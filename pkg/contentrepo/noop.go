package contentrepo

import "context"

// NoopSearchIndex is a no-operation implementation of SearchIndex
// Useful when no search projection is maintained
type NoopSearchIndex struct{}

// NewNoopSearchIndex creates a new no-operation search index
func NewNoopSearchIndex() SearchIndex {
	return &NoopSearchIndex{}
}

// Index does nothing and returns nil
func (n *NoopSearchIndex) Index(ctx context.Context, id ID) error {
	return nil
}

// Remove does nothing and returns nil
func (n *NoopSearchIndex) Remove(ctx context.Context, id ID) error {
	return nil
}

// NoopPublisher is a no-operation implementation of Publisher
type NoopPublisher struct{}

// NewNoopPublisher creates a new no-operation publisher
func NewNoopPublisher() Publisher {
	return &NoopPublisher{}
}

// Depublish does nothing and returns nil
func (n *NoopPublisher) Depublish(ctx context.Context, id ID) error {
	return nil
}
