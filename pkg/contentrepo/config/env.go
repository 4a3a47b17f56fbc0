package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Server:
//   PORT - Server port (default: "8080")
//   ENVIRONMENT - Runtime environment (default: "development")
//
// Database:
//   DATABASE_URL - "memory" (default) or "postgres://..." / "postgresql://..."
//   AUTO_MIGRATE - create the schema on startup (default: true)
//
// Version archive:
//   STORAGE_URL - one of:
//                 - "memory://" - In-memory storage (default)
//                 - "file:///path/to/versions" - Filesystem storage
//                 - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true&prefix=versions"
//
// Access:
//   ACCESS_MODE - "allow-all" (default) or "policy"
//   ADMIN_ACTORS - comma separated actors granted admin on the root group
//   JWT_SECRET - HS256 secret for bearer tokens
//   ENABLE_METRICS - instrument the service (default: true)
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		if err := applyStorageEnv(prefix, c); err != nil {
			return err
		}

		if v, ok := lookupEnv(prefix, "ACCESS_MODE"); ok && v != "" {
			c.AccessMode = v
		}
		if v, ok := lookupEnv(prefix, "ADMIN_ACTORS"); ok && v != "" {
			for _, actor := range strings.Split(v, ",") {
				if actor = strings.TrimSpace(actor); actor != "" {
					c.AdminActors = append(c.AdminActors, actor)
				}
			}
		}
		if v, ok := lookupEnv(prefix, "JWT_SECRET"); ok {
			c.JWTSecret = v
		}

		if enabled, ok, err := parseBoolEnv(prefix, "AUTO_MIGRATE"); err != nil {
			return err
		} else if ok {
			c.AutoMigrate = enabled
		}
		if enabled, ok, err := parseBoolEnv(prefix, "ENABLE_METRICS"); err != nil {
			return err
		} else if ok {
			c.EnableMetrics = enabled
		}

		return nil
	}
}

// applyDatabaseEnv applies database configuration from environment
func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")

	if !hasURL || dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

// applyStorageEnv applies archive storage configuration from environment
func applyStorageEnv(prefix string, c *ServerConfig) error {
	storageURL, hasURL := lookupEnv(prefix, "STORAGE_URL")

	if !hasURL || storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.ArchiveStorage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}

	if strings.HasPrefix(storageURL, "file://") {
		path := strings.TrimPrefix(storageURL, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.ArchiveStorage = StorageBackendConfig{
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": path},
		}
		return nil
	}

	if strings.HasPrefix(storageURL, "s3://") {
		return applyS3Storage(storageURL, c)
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyS3Storage configures S3 storage from URL
// Format: s3://bucket?region=us-east-1&endpoint=http://localhost:9000
func applyS3Storage(raw string, c *ServerConfig) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	backend := StorageBackendConfig{
		Type: "s3",
		Config: map[string]interface{}{
			"bucket": parsed.Host,
			"region": "us-east-1",
		},
	}

	query := parsed.Query()
	for param, key := range map[string]string{
		"region":     "region",
		"endpoint":   "endpoint",
		"prefix":     "prefix",
		"path_style": "use_path_style",
		"create":     "create_bucket_if_not_exist",
	} {
		if v := query.Get(param); v != "" {
			backend.Config[key] = v
		}
	}

	// AWS credentials from the standard environment
	if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
		backend.Config["access_key_id"] = accessKey
	}
	if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
		backend.Config["secret_access_key"] = secretKey
	}
	if region, ok := os.LookupEnv("AWS_REGION"); ok && region != "" && query.Get("region") == "" {
		backend.Config["region"] = region
	}

	c.ArchiveStorage = backend
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}
