package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

type document struct {
	name string
	kind contentrepo.Kind
}

// SearchIndex projects entity names from a repository into a searchable map
type SearchIndex struct {
	mu         sync.RWMutex
	repository contentrepo.Repository
	documents  map[contentrepo.ID]document
}

// NewSearchIndex creates an index reading entities from repository
func NewSearchIndex(repository contentrepo.Repository) *SearchIndex {
	return &SearchIndex{
		repository: repository,
		documents:  make(map[contentrepo.ID]document),
	}
}

// Index refreshes the projection of id. Ids missing from the repository are dropped.
func (s *SearchIndex) Index(ctx context.Context, id contentrepo.ID) error {
	entity, found, err := s.repository.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !found {
		delete(s.documents, id)
		return nil
	}
	s.documents[id] = document{name: entity.Name(), kind: entity.Kind()}
	return nil
}

func (s *SearchIndex) Remove(ctx context.Context, id contentrepo.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, id)
	return nil
}

func (s *SearchIndex) IsIndexed(id contentrepo.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.documents[id]
	return ok
}

// Search returns the ids whose name contains term, case-insensitive
func (s *SearchIndex) Search(ctx context.Context, term string) []contentrepo.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(term)
	var ids []contentrepo.ID
	for id, doc := range s.documents {
		if strings.Contains(strings.ToLower(doc.name), term) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
