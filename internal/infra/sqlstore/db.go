// Package sqlstore persists the game documents, the coupon ledger and the
// question catalog in a database/sql backend (libSQL/SQLite or MySQL).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/tursodatabase/go-libsql"
)

// Supported drivers.
const (
	DriverLibSQL = "libsql"
	DriverMySQL  = "mysql"
)

// Open connects to dsn. For libsql a bare path is opened as a local file
// on a single pooled connection with a 5 s busy timeout and WAL journal mode.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverLibSQL:
		return openLibSQL(ctx, dsn)
	case DriverMySQL:
		db, err := sql.Open(DriverMySQL, dsn)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func openLibSQL(ctx context.Context, dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	db, err := sql.Open(DriverLibSQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if strings.HasPrefix(dsn, "file:") {
		// PRAGMAs are per connection and a :memory: database is per
		// connection too, so local files keep exactly one open connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	// libSQL rejects Exec for PRAGMAs that return rows; drain them as queries.
	// busy_timeout goes first so the journal switch waits on a locked file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
	}
	for _, p := range pragmas {
		rows, err := db.QueryContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %s: %w", p, err)
		}
		rows.Close()
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id       VARCHAR(64) PRIMARY KEY,
		name     VARCHAR(255) NOT NULL,
		image    TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id          VARCHAR(64) PRIMARY KEY,
		category_id VARCHAR(64) NOT NULL,
		text        TEXT NOT NULL,
		answer      TEXT NOT NULL,
		difficulty  VARCHAR(16) NOT NULL,
		points      INTEGER NOT NULL,
		image       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		code  VARCHAR(64) PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		doc_key VARCHAR(64) PRIMARY KEY,
		data    TEXT NOT NULL
	)`,
}

// EnsureSchema creates the tables when missing. It is safe to call on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	return nil
}
