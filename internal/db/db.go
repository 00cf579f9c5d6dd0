package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour spoken by a connection.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Drivers maps accepted driver names to their dialect. Both pgx and lib/pq
// are registered for PostgreSQL.
var Drivers = map[string]Dialect{
	"sqlite":   DialectSQLite,
	"pgx":      DialectPostgres,
	"postgres": DialectPostgres,
	"mysql":    DialectMySQL,
}

// DB wraps a *sql.DB and rewrites `?` placeholders for the active dialect,
// so store queries are written once.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open opens a database connection for the given driver and DSN.
// For SQLite the DSN is a file path (or ":memory:").
func Open(driver, dsn string) (*DB, error) {
	dialect, ok := Drivers[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if dialect == DialectSQLite {
		if dsn == ":memory:" {
			// Every pooled connection would get its own empty database.
			sqlDB.SetMaxOpenConns(1)
		}

		// Set pragmas for performance and correctness.
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
			"PRAGMA synchronous=NORMAL",
		}
		for _, p := range pragmas {
			if _, err := sqlDB.Exec(p); err != nil {
				sqlDB.Close()
				return nil, fmt.Errorf("setting pragma %q: %w", p, err)
			}
		}
	} else if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// OpenSQLite opens a SQLite database file.
func OpenSQLite(path string) (*DB, error) {
	return Open("sqlite", path)
}

// Rebind rewrites `?` placeholders to `$n` for PostgreSQL.
func (d *DB) Rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// ExecContext executes a query after rebinding its placeholders.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.DB.ExecContext(ctx, d.Rebind(query), args...)
}

// QueryContext runs a query after rebinding its placeholders.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.DB.QueryContext(ctx, d.Rebind(query), args...)
}

// QueryRowContext runs a single-row query after rebinding its placeholders.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.DB.QueryRowContext(ctx, d.Rebind(query), args...)
}

// InsertID executes an INSERT and returns the generated integer id.
// PostgreSQL has no LastInsertId, so RETURNING is used there.
func (d *DB) InsertID(ctx context.Context, query string, args ...any) (int64, error) {
	if d.Dialect == DialectPostgres {
		var id int64
		if err := d.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := d.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertIgnore returns the dialect's INSERT prefix/suffix that skips rows
// violating a unique key.
func (d *DB) InsertIgnore(table, columns, values string) string {
	switch d.Dialect {
	case DialectMySQL:
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, columns, values)
	case DialectPostgres:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, columns, values)
	default:
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, columns, values)
	}
}

// Upsert returns an INSERT that replaces the given columns when key conflicts.
func (d *DB) Upsert(table, key string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)

	var sets []string
	for _, c := range columns {
		if c == key {
			continue
		}
		if d.Dialect == DialectMySQL {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	if d.Dialect == DialectMySQL {
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return insert + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET ", key) + strings.Join(sets, ", ")
}
