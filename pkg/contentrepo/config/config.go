package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-repository/pkg/contentrepo"
	"github.com/tendant/content-repository/pkg/contentrepo/access"
	"github.com/tendant/content-repository/pkg/contentrepo/metrics"
	"github.com/tendant/content-repository/pkg/contentrepo/repo/memory"
	repopg "github.com/tendant/content-repository/pkg/contentrepo/repo/postgres"
	"github.com/tendant/content-repository/pkg/contentrepo/storage"
	fsstorage "github.com/tendant/content-repository/pkg/contentrepo/storage/fs"
	memorystorage "github.com/tendant/content-repository/pkg/contentrepo/storage/memory"
	s3storage "github.com/tendant/content-repository/pkg/contentrepo/storage/s3"
	"github.com/tendant/content-repository/pkg/contentrepo/versioning"
)

const (
	// RootID is the id of the group every tree starts from
	RootID     = contentrepo.ID(1)
	// RootAnchor resolves to RootID
	RootAnchor = "root"

	AccessAllowAll = "allow-all"
	AccessPolicy   = "policy"

	// matches the start of the postgres id sequence
	firstMemoryID = contentrepo.ID(1000)
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		AutoMigrate:  true,
		ArchiveStorage: StorageBackendConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		},
		AccessMode:    AccessAllowAll,
		EnableMetrics: true,
	}
}

// ServerConfig represents configuration for the content repository service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	AutoMigrate  bool   // create the postgres schema on startup

	// Storage for archived version content
	ArchiveStorage StorageBackendConfig

	// Access control
	AccessMode  string   // "allow-all", "policy"
	AdminActors []string // actors granted admin on the root group in policy mode
	JWTSecret   string   // HS256 secret; empty disables bearer authentication

	EnableMetrics bool
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.ArchiveStorage.Type {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported archive storage type: %s", c.ArchiveStorage.Type)
	}

	if c.AccessMode != AccessAllowAll && c.AccessMode != AccessPolicy {
		return fmt.Errorf("access_mode must be '%s' or '%s'", AccessAllowAll, AccessPolicy)
	}

	return nil
}

// Repository is the entity store together with the administrative lookups
// both backends provide
type Repository interface {
	contentrepo.Repository
	SetAnchor(ctx context.Context, anchor string, id contentrepo.ID) error
	Children(ctx context.Context, group contentrepo.ID) ([]contentrepo.ID, error)
}

// History is a HistoryManager that can be read back
type History interface {
	contentrepo.HistoryManager
	Entries(ctx context.Context, id contentrepo.ID) ([]contentrepo.HistoryEntry, error)
}

// RecycleBin is a recycle bin that can be listed
type RecycleBin interface {
	contentrepo.RecycleBin
	List(ctx context.Context) ([]contentrepo.RecycleBinItem, error)
}

// LockManager acquires and releases entity locks
type LockManager interface {
	contentrepo.EntityLockManager
	Lock(ctx context.Context, id contentrepo.ID, owner string) (contentrepo.EntityLock, error)
	Unlock(ctx context.Context, id contentrepo.ID, token uuid.UUID) error
}

// Runtime is a wired service together with the adapters behind it
type Runtime struct {
	Service    contentrepo.Service
	Repository Repository
	History    History
	RecycleBin RecycleBin
	Locks      LockManager
	Versions   *versioning.Manager
	Index      *memory.SearchIndex
	Publisher  *memory.Publisher

	// Policy is nil in allow-all mode
	Policy *access.Policy
	// Collector is nil when metrics are disabled
	Collector *metrics.Collector

	close func()
}

// Close releases the database pool, if any
func (r *Runtime) Close() {
	if r.close != nil {
		r.close()
	}
}

// BuildRuntime creates the service and its adapters from the server configuration
func (c *ServerConfig) BuildRuntime(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rt := &Runtime{}
	var idGenerator contentrepo.IDGenerator

	switch c.DatabaseType {
	case "memory":
		rt.Repository = memory.New()
		rt.History = memory.NewHistory()
		rt.RecycleBin = memory.NewRecycleBin()
		rt.Locks = memory.NewLockManager(nil)
		idGenerator = memory.NewIDGenerator(firstMemoryID)
	case "postgres":
		pool, err := c.buildPool(ctx)
		if err != nil {
			return nil, err
		}
		rt.close = pool.Close
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		rt.Repository = repopg.NewWithPool(pool)
		rt.History = repopg.NewHistory(pool)
		rt.RecycleBin = repopg.NewRecycleBin(pool)
		rt.Locks = repopg.NewLockManager(pool, nil)
		idGenerator = repopg.NewIDGenerator(pool)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	if err := ensureRoot(ctx, rt.Repository); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create root group: %w", err)
	}

	store, err := c.buildArchiveStore(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build archive storage: %w", err)
	}
	rt.Versions = versioning.New(store, versioning.WithLogger(logger))
	rt.Index = memory.NewSearchIndex(rt.Repository)
	rt.Publisher = memory.NewPublisher()

	var accessControl contentrepo.AccessControl = access.AllowAll{}
	if c.AccessMode == AccessPolicy {
		rt.Policy = access.NewPolicy(rt.Repository, logger)
		for _, actor := range c.AdminActors {
			rt.Policy.Grant(actor, RootID, access.PermissionAdmin)
		}
		accessControl = rt.Policy
	}

	svc, err := contentrepo.New(
		contentrepo.WithRepository(rt.Repository),
		contentrepo.WithAccessControl(accessControl),
		contentrepo.WithLockManager(rt.Locks),
		contentrepo.WithVersioningManager(rt.Versions),
		contentrepo.WithHistoryManager(rt.History),
		contentrepo.WithSearchIndex(rt.Index),
		contentrepo.WithRecycleBin(rt.RecycleBin),
		contentrepo.WithPublisher(rt.Publisher),
		contentrepo.WithIDGenerator(idGenerator),
		contentrepo.WithLogger(logger),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if c.EnableMetrics {
		rt.Collector = metrics.NewMetricsCollector()
		svc = metrics.Instrument(svc, rt.Collector, nil)
	}
	rt.Service = svc

	return rt, nil
}

func (c *ServerConfig) buildPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// ensureRoot stores the root group on first start
func ensureRoot(ctx context.Context, repo Repository) error {
	_, found, err := repo.Get(ctx, RootID)
	if err != nil {
		return err
	}
	if !found {
		root := contentrepo.NewGroup(RootAnchor).WithIdentifier(contentrepo.IdentifierOf(RootID))
		if err := repo.Store(ctx, root); err != nil {
			return err
		}
	}
	return repo.SetAnchor(ctx, RootAnchor, RootID)
}

// buildArchiveStore creates the BlobStore holding archived versions
func (c *ServerConfig) buildArchiveStore(ctx context.Context) (storage.BlobStore, error) {
	config := c.ArchiveStorage
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		backend, err := fsstorage.New(fsstorage.Config{
			BaseDir: getString(config.Config, "base_dir", "./data/versions"),
		})
		if err != nil {
			return nil, err
		}
		return backend, nil

	case "s3":
		backend, err := s3storage.New(ctx, s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			Prefix:                 getString(config.Config, "prefix", ""),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})
		if err != nil {
			return nil, err
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
