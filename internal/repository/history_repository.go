// Package repository implements repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/satishbabariya/migrant/internal/adapters/database"
	"github.com/satishbabariya/migrant/internal/core/migration/domain"
)

// TableName is the name of the ledger table.
const TableName = "migrant_migration"

// HistoryRepositoryImpl implements the HistoryRepository interface using a database.
type HistoryRepositoryImpl struct {
	db database.Adapter
}

var _ HistoryRepository = (*HistoryRepositoryImpl)(nil)

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db database.Adapter) *HistoryRepositoryImpl {
	return &HistoryRepositoryImpl{
		db: db,
	}
}

// AdapterExecer adapts a database.Adapter to Execer, for writes made outside
// a migration transaction.
func AdapterExecer(db database.Adapter) Execer {
	return adapterExecer{db: db}
}

type adapterExecer struct {
	db database.Adapter
}

func (a adapterExecer) Exec(ctx context.Context, query string, args ...any) error {
	_, err := a.db.Execute(ctx, query, args...)
	return err
}

// EnsureTable creates the ledger table.
func (r *HistoryRepositoryImpl) EnsureTable(ctx context.Context) error {
	var query string
	switch r.db.GetDialect() {
	case database.PostgreSQL:
		query = `
			CREATE TABLE IF NOT EXISTS migrant_migration (
				id SERIAL PRIMARY KEY,
				name VARCHAR(200) NOT NULL,
				module VARCHAR(200) NOT NULL,
				applied_at TIMESTAMPTZ NOT NULL
			)
		`
	case database.MySQL:
		query = `
			CREATE TABLE IF NOT EXISTS migrant_migration (
				id INT AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(200) NOT NULL,
				module VARCHAR(200) NOT NULL,
				applied_at DATETIME(6) NOT NULL
			)
		`
	case database.SQLite:
		query = `
			CREATE TABLE IF NOT EXISTS migrant_migration (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				module TEXT NOT NULL,
				applied_at TIMESTAMP NOT NULL
			)
		`
	default:
		return fmt.Errorf("unsupported dialect: %s", r.db.GetDialect())
	}

	if _, err := r.db.Execute(ctx, query); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// Record inserts a ledger row.
func (r *HistoryRepositoryImpl) Record(ctx context.Context, exec Execer, module, name string) error {
	d := r.db.GetDialect()
	query := fmt.Sprintf(
		`INSERT INTO migrant_migration (name, module, applied_at) VALUES (%s, %s, %s)`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
	)
	if err := exec.Exec(ctx, query, name, module, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// Remove deletes the ledger row of a migration.
func (r *HistoryRepositoryImpl) Remove(ctx context.Context, exec Execer, module, name string) error {
	d := r.db.GetDialect()
	query := fmt.Sprintf(
		`DELETE FROM migrant_migration WHERE module = %s AND name = %s`,
		d.Placeholder(1), d.Placeholder(2),
	)
	if err := exec.Exec(ctx, query, module, name); err != nil {
		return fmt.Errorf("failed to remove migration: %w", err)
	}
	return nil
}

// Applied lists applied migrations ordered by name, which is their ID.
func (r *HistoryRepositoryImpl) Applied(ctx context.Context, module string) ([]*domain.AppliedMigration, error) {
	query := `SELECT id, name, module, applied_at FROM migrant_migration`
	var args []any
	if module != "" {
		query += ` WHERE module = ` + r.db.GetDialect().Placeholder(1)
		args = append(args, module)
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer rows.Close()

	var migrations []*domain.AppliedMigration
	for rows.Next() {
		var m domain.AppliedMigration
		var appliedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Name, &m.Module, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		if appliedAt.Valid {
			m.AppliedAt = appliedAt.Time
		}
		migrations = append(migrations, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}

	return migrations, nil
}

// IsApplied reports whether the migration has a ledger row.
func (r *HistoryRepositoryImpl) IsApplied(ctx context.Context, module, name string) (bool, error) {
	d := r.db.GetDialect()
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM migrant_migration WHERE module = %s AND name = %s`,
		d.Placeholder(1), d.Placeholder(2),
	)

	var count int
	if err := r.db.QueryRow(ctx, query, module, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check migration: %w", err)
	}
	return count > 0, nil
}
