package contentrepo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/juju/clock"
)

// Service exposes the entity lifecycle operations
type Service interface {
	// Store creates or updates an entity and returns its identifier
	Store(ctx context.Context, entity Entity) (Identifier, error)

	// Remove moves an entity or an empty group into the recycle bin
	Remove(ctx context.Context, id ID) error

	// Recover restores a removed entity from the recycle bin
	Recover(ctx context.Context, id ID) error
}

// service implements the Service interface
type service struct {
	repository        Repository
	accessControl     AccessControl
	lockManager       EntityLockManager
	versioningManager VersioningManager
	historyManager    HistoryManager
	searchIndex       SearchIndex
	recycleBin        RecycleBin
	publisher         Publisher
	idGenerator       IDGenerator
	contentDiffer     ContentDiffer
	clock             clock.Clock
	logger            *slog.Logger

	storeEntity   *StoreEntity
	removeEntity  *RemoveEntity
	recoverEntity *RecoverEntity
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the entity repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithAccessControl sets the access control
func WithAccessControl(accessControl AccessControl) Option {
	return func(s *service) {
		s.accessControl = accessControl
	}
}

// WithLockManager sets the entity lock manager
func WithLockManager(lockManager EntityLockManager) Option {
	return func(s *service) {
		s.lockManager = lockManager
	}
}

// WithVersioningManager sets the versioning manager
func WithVersioningManager(versioningManager VersioningManager) Option {
	return func(s *service) {
		s.versioningManager = versioningManager
	}
}

// WithHistoryManager sets the history manager
func WithHistoryManager(historyManager HistoryManager) Option {
	return func(s *service) {
		s.historyManager = historyManager
	}
}

// WithSearchIndex sets the search index
func WithSearchIndex(searchIndex SearchIndex) Option {
	return func(s *service) {
		s.searchIndex = searchIndex
	}
}

// WithRecycleBin sets the recycle bin
func WithRecycleBin(recycleBin RecycleBin) Option {
	return func(s *service) {
		s.recycleBin = recycleBin
	}
}

// WithPublisher sets the publisher
func WithPublisher(publisher Publisher) Option {
	return func(s *service) {
		s.publisher = publisher
	}
}

// WithIDGenerator sets the id generator
func WithIDGenerator(idGenerator IDGenerator) Option {
	return func(s *service) {
		s.idGenerator = idGenerator
	}
}

// WithContentDiffer replaces the default content differ
func WithContentDiffer(differ ContentDiffer) Option {
	return func(s *service) {
		s.contentDiffer = differ
	}
}

// WithClock sets the clock used for removal and recovery timestamps
func WithClock(c clock.Clock) Option {
	return func(s *service) {
		s.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		searchIndex:   NewNoopSearchIndex(),
		publisher:     NewNoopPublisher(),
		contentDiffer: NewContentDiffer(),
		clock:         clock.WallClock,
		logger:        slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	s.storeEntity = NewStoreEntity(s.repository, s.lockManager, s.versioningManager, s.historyManager,
		s.accessControl, s.idGenerator, s.searchIndex, s.contentDiffer)
	s.storeEntity.logger = s.logger

	s.removeEntity = NewRemoveEntity(s.repository, s.lockManager, s.historyManager, s.accessControl,
		s.recycleBin, s.searchIndex, s.publisher)
	s.removeEntity.clock = s.clock
	s.removeEntity.logger = s.logger

	s.recoverEntity = NewRecoverEntity(s.repository, s.historyManager, s.accessControl,
		s.recycleBin, s.searchIndex)
	s.recoverEntity.clock = s.clock
	s.recoverEntity.logger = s.logger

	return s, nil
}

func (s *service) validate() error {
	switch {
	case s.repository == nil:
		return errors.New("repository is required")
	case s.accessControl == nil:
		return errors.New("access control is required")
	case s.lockManager == nil:
		return errors.New("lock manager is required")
	case s.versioningManager == nil:
		return errors.New("versioning manager is required")
	case s.historyManager == nil:
		return errors.New("history manager is required")
	case s.recycleBin == nil:
		return errors.New("recycle bin is required")
	case s.idGenerator == nil:
		return errors.New("id generator is required")
	case s.searchIndex == nil, s.publisher == nil, s.contentDiffer == nil, s.clock == nil, s.logger == nil:
		return errors.New("optional collaborators must not be set to nil")
	}
	return nil
}

func (s *service) Store(ctx context.Context, entity Entity) (Identifier, error) {
	return s.storeEntity.Store(ctx, entity)
}

func (s *service) Remove(ctx context.Context, id ID) error {
	return s.removeEntity.Remove(ctx, id)
}

func (s *service) Recover(ctx context.Context, id ID) error {
	return s.recoverEntity.Recover(ctx, id)
}
