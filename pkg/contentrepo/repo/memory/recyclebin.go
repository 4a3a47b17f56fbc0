package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// RecycleBin implements contentrepo.RecycleBin using in-memory storage
type RecycleBin struct {
	mu    sync.RWMutex
	items map[contentrepo.ID]contentrepo.RecycleBinItem
}

// NewRecycleBin creates an empty recycle bin
func NewRecycleBin() *RecycleBin {
	return &RecycleBin{
		items: make(map[contentrepo.ID]contentrepo.RecycleBinItem),
	}
}

func (b *RecycleBin) Add(ctx context.Context, item contentrepo.RecycleBinItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[item.ID()] = item
	return nil
}

func (b *RecycleBin) Get(ctx context.Context, id contentrepo.ID) (contentrepo.RecycleBinItem, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	item, exists := b.items[id]
	return item, exists, nil
}

func (b *RecycleBin) Remove(ctx context.Context, id contentrepo.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.items, id)
	return nil
}

// List returns all items, most recently removed first
func (b *RecycleBin) List(ctx context.Context) ([]contentrepo.RecycleBinItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]contentrepo.RecycleBinItem, 0, len(b.items))
	for _, item := range b.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RemovedAt().After(result[j].RemovedAt())
	})
	return result, nil
}
