package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// statement is one schema DDL statement. Column types are written as
// {{placeholders}} and expanded per dialect; only lists the dialects
// the statement applies to (all when empty).
type statement struct {
	sql  string
	only []Dialect
}

// schema is the full database schema. Tables are created in order.
var schema = []statement{
	{sql: `CREATE TABLE IF NOT EXISTS users (
    id            {{serial}},
    username      VARCHAR(64) NOT NULL,
    full_name     {{text}},
    password_hash {{text}} NOT NULL,
    role          VARCHAR(16) NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    {{ts}} NULL
)`},
	{sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL`, only: []Dialect{DialectSQLite, DialectPostgres}},

	{sql: `CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        VARCHAR(64) PRIMARY KEY,
    expires_at {{ts}} NOT NULL
)`},

	{sql: `CREATE TABLE IF NOT EXISTS settings (
    name  VARCHAR(64) PRIMARY KEY,
    value {{text}} NOT NULL
)`},

	{sql: `CREATE TABLE IF NOT EXISTS products (
    id          VARCHAR(64) PRIMARY KEY,
    name        VARCHAR(255) NOT NULL,
    description {{text}},
    category    VARCHAR(64) NOT NULL,
    location    VARCHAR(64) NOT NULL DEFAULT 'Roma',
    stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
    status      VARCHAR(32) NOT NULL DEFAULT 'Available',
    price       DECIMAL(10,2) NOT NULL DEFAULT 0,
    image_url   {{text}},
    created_at  {{ts}} NOT NULL,
    updated_at  {{ts}} NOT NULL
)`},

	{sql: `CREATE TABLE IF NOT EXISTS portfolio_items (
    id          VARCHAR(64) PRIMARY KEY,
    title       VARCHAR(255) NOT NULL,
    description {{text}},
    category    VARCHAR(64) NOT NULL,
    image_url   {{text}},
    created_at  {{ts}} NOT NULL,
    updated_at  {{ts}} NOT NULL
)`},

	{sql: `CREATE TABLE IF NOT EXISTS storage_objects (
    bucket       VARCHAR(64) NOT NULL,
    name         VARCHAR(255) NOT NULL,
    data         {{blob}} NOT NULL,
    content_type VARCHAR(128) NOT NULL,
    created_at   {{ts}} NOT NULL,
    PRIMARY KEY (bucket, name)
)`},

	{sql: `CREATE TABLE IF NOT EXISTS contact_messages (
    id         VARCHAR(64) PRIMARY KEY,
    name       VARCHAR(255) NOT NULL,
    email      VARCHAR(255) NOT NULL,
    phone      VARCHAR(64),
    event_type VARCHAR(64),
    event_date VARCHAR(32),
    message    {{text}} NOT NULL,
    is_read    {{bool}} NOT NULL DEFAULT FALSE,
    created_at {{ts}} NOT NULL
)`},
}

// columnTypes maps schema placeholders to dialect-specific types.
var columnTypes = map[Dialect]map[string]string{
	DialectSQLite: {
		"serial": "INTEGER PRIMARY KEY",
		"text":   "TEXT",
		"ts":     "DATETIME",
		"blob":   "BLOB",
		"bool":   "BOOLEAN",
	},
	DialectPostgres: {
		"serial": "BIGSERIAL PRIMARY KEY",
		"text":   "TEXT",
		"ts":     "TIMESTAMPTZ",
		"blob":   "BYTEA",
		"bool":   "BOOLEAN",
	},
	DialectMySQL: {
		"serial": "BIGINT AUTO_INCREMENT PRIMARY KEY",
		"text":   "TEXT",
		"ts":     "DATETIME(6)",
		"blob":   "LONGBLOB",
		"bool":   "BOOLEAN",
	},
}

// render expands the type placeholders of a statement for dialect d.
func render(d Dialect, sql string) string {
	for name, typ := range columnTypes[d] {
		sql = strings.ReplaceAll(sql, "{{"+name+"}}", typ)
	}
	return sql
}

// Tables lists the tables created by EnsureSchema.
func Tables() []string {
	return []string{"users", "revoked_tokens", "settings", "products", "portfolio_items", "storage_objects", "contact_messages"}
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *DB) error {
	ctx := context.Background()
	for i, st := range schema {
		if len(st.only) > 0 && !slices.Contains(st.only, db.Dialect) {
			continue
		}
		if _, err := db.DB.ExecContext(ctx, render(db.Dialect, st.sql)); err != nil {
			return fmt.Errorf("creating schema (statement %d): %w", i+1, err)
		}
	}
	return nil
}

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []statement{}

// Migrate ensures the schema and runs the migrations. It is what the
// "migrate" command and server start-up run.
func Migrate(db *DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if len(m.only) > 0 && !slices.Contains(m.only, db.Dialect) {
			continue
		}
		if _, err := db.DB.Exec(render(db.Dialect, m.sql)); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
