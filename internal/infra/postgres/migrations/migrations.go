// Package migrations holds the Postgres schema as bun migrations.
package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed sql/*.sql
var files embed.FS

var Migrations = migrate.NewMigrations()

// Schema returns the up statements in order. They are idempotent and can be
// applied without the migrator.
func Schema() ([]string, error) {
	out := make([]string, 0, len(order))
	for _, name := range order {
		stmt, err := upSQL(name)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

var order = []string{"create_catalog", "create_coupons", "create_documents"}

func upSQL(name string) (string, error) {
	data, err := files.ReadFile("sql/" + name + ".up.sql")
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(data), nil
}

func up(name string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		stmt, err := upSQL(name)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, stmt)
		return err
	}
}

func down(tables ...string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		for _, table := range tables {
			if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
				return err
			}
		}
		return nil
	}
}
