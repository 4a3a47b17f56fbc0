package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithAutoMigrate toggles schema creation on startup
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithMemoryArchive keeps archived versions in memory
func WithMemoryArchive() Option {
	return func(c *ServerConfig) error {
		c.ArchiveStorage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}
}

// WithFilesystemArchive writes archived versions below baseDir
func WithFilesystemArchive(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.ArchiveStorage = StorageBackendConfig{
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": baseDir},
		}
		return nil
	}
}

// WithS3Archive writes archived versions to an S3 bucket
func WithS3Archive(bucket, region, endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		backend := StorageBackendConfig{
			Type: "s3",
			Config: map[string]interface{}{
				"bucket":         bucket,
				"use_path_style": usePathStyle,
			},
		}
		if region != "" {
			backend.Config["region"] = region
		}
		if endpoint != "" {
			backend.Config["endpoint"] = endpoint
		}
		c.ArchiveStorage = backend
		return nil
	}
}

// WithAccessPolicy switches to per-actor permissions and grants admin on
// the root group to adminActors
func WithAccessPolicy(adminActors ...string) Option {
	return func(c *ServerConfig) error {
		c.AccessMode = AccessPolicy
		c.AdminActors = append(c.AdminActors, adminActors...)
		return nil
	}
}

// WithJWTSecret enables bearer token authentication
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithMetrics toggles the Prometheus instrumentation of the service
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableMetrics = enabled
		return nil
	}
}
