// Package sqlite implements SQLite database adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/satishbabariya/migrant/internal/adapters/database"
)

// NewSQLiteAdapter creates a new SQLite adapter. The URL is the database file
// path, or ":memory:".
func NewSQLiteAdapter(config database.Config) (*database.SQLAdapter, error) {
	// SQLite works best with a single writer connection; it also keeps an
	// in-memory database alive for the life of the adapter.
	return database.NewSQLAdapter("sqlite3", database.SQLite, config,
		database.WithSingleConnection(),
		database.WithAfterConnect(enableForeignKeys),
	), nil
}

func enableForeignKeys(ctx context.Context, db *sql.DB) error {
	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}
