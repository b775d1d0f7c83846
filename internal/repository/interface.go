// Package repository defines repository interfaces for data access.
package repository

import (
	"context"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
)

// Execer runs a statement. Both the database adapter and a migration
// transaction can record ledger rows.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// HistoryRepository defines the interface for the applied-migration ledger.
type HistoryRepository interface {
	// EnsureTable creates the ledger table if it does not exist.
	EnsureTable(ctx context.Context) error

	// Record marks a migration of module as applied, using exec so the row
	// can be written inside the migration's own transaction.
	Record(ctx context.Context, exec Execer, module, name string) error

	// Remove deletes the ledger row of a migration.
	Remove(ctx context.Context, exec Execer, module, name string) error

	// Applied lists the applied migrations of module in application order.
	// An empty module lists every module.
	Applied(ctx context.Context, module string) ([]*domain.AppliedMigration, error)

	// IsApplied reports whether a migration has been applied.
	IsApplied(ctx context.Context, module, name string) (bool, error)
}
