package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: seed the default category and place lookups so a fresh
	// kiosk can register items immediately.
	`INSERT OR IGNORE INTO categories (name) VALUES
	     ('electronics'), ('wallet'), ('clothing'), ('card'), ('other')`,
	`INSERT OR IGNORE INTO places (id, name, address)
	     SELECT 1, 'main entrance', 'building A, ground floor'
	     WHERE NOT EXISTS (SELECT 1 FROM places)`,

	// Migration 2: listing queries filter on status while the claim lock
	// is checked per row; index status for the open-items scan.
	`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)`,
}

// Migrate ensures the schema and runs the migration list.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
