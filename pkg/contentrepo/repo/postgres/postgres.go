// Package postgres stores entities, history, the recycle bin and locks in
// PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS contentrepo`,
	`CREATE SEQUENCE IF NOT EXISTS contentrepo.entity_id_seq START WITH 1000`,
	`CREATE TABLE IF NOT EXISTS contentrepo.entity (
		id BIGINT PRIMARY KEY,
		parent_id BIGINT,
		kind VARCHAR(16) NOT NULL,
		name VARCHAR(1024) NOT NULL,
		content BYTEA,
		version_ts TIMESTAMPTZ,
		version_content BYTEA,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS entity_parent_idx ON contentrepo.entity (parent_id)`,
	`CREATE TABLE IF NOT EXISTS contentrepo.entity_anchor (
		anchor VARCHAR(255) PRIMARY KEY,
		entity_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contentrepo.history (
		id BIGSERIAL PRIMARY KEY,
		entity_id BIGINT NOT NULL,
		event_time TIMESTAMPTZ NOT NULL,
		kind VARCHAR(16) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS history_entity_idx ON contentrepo.history (entity_id)`,
	`CREATE TABLE IF NOT EXISTS contentrepo.recycle_bin (
		entity_id BIGINT PRIMARY KEY,
		parent_id BIGINT,
		kind VARCHAR(16) NOT NULL,
		name VARCHAR(1024) NOT NULL,
		content BYTEA,
		version_ts TIMESTAMPTZ,
		version_content BYTEA,
		removed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contentrepo.entity_lock (
		entity_id BIGINT PRIMARY KEY,
		owner VARCHAR(255) NOT NULL,
		token UUID NOT NULL,
		acquired_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the contentrepo schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, db DBTX) error {
	for _, statement := range schema {
		if _, err := db.Exec(ctx, statement); err != nil {
			return handlePostgresError("migrate", err)
		}
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "anchor") {
				return fmt.Errorf("%w: anchor already exists", contentrepo.ErrInvalidArgument)
			}
			return fmt.Errorf("%w: duplicate entry", contentrepo.ErrInvalidArgument)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}
