// Package executor runs migration operations against a database engine.
package executor

import (
	"context"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Executor performs individual schema operations. Column params passed to it
// are deserialized. Operations the engine cannot perform return an error
// wrapping domain.ErrUnsupported.
type Executor interface {
	CreateTable(ctx context.Context, t domain.TableHandle, columns []schema.Column) error
	DropTable(ctx context.Context, t domain.TableHandle) error
	RenameTable(ctx context.Context, t domain.TableHandle, newName string) error

	AddColumn(ctx context.Context, t domain.TableHandle, column schema.Column) error
	DropColumn(ctx context.Context, c domain.ColumnHandle) error
	RenameColumn(ctx context.Context, c domain.ColumnHandle, newName string) error

	SetColumnType(ctx context.Context, c domain.ColumnHandle, column schema.Column) error
	SetNull(ctx context.Context, c domain.ColumnHandle, null bool) error
	SetLength(ctx context.Context, c domain.ColumnHandle, length int) error
	SetUnique(ctx context.Context, c domain.ColumnHandle, unique bool) error
	SetDigits(ctx context.Context, c domain.ColumnHandle, digits *schema.Digits) error
	SetDefault(ctx context.Context, c domain.ColumnHandle, kind schema.Kind, value any) error
	DropDefault(ctx context.Context, c domain.ColumnHandle) error
	CreateIndex(ctx context.Context, c domain.ColumnHandle) error
	DropIndex(ctx context.Context, c domain.ColumnHandle) error

	// Exec runs a raw statement, for hand-written migration steps.
	Exec(ctx context.Context, query string, args ...any) error
}

// Tx is an Executor bound to a transaction.
type Tx interface {
	Executor

	// Commit commits the transaction.
	Commit() error

	// Rollback rolls back the transaction.
	Rollback() error
}

// Engine opens transactions against a database.
type Engine interface {
	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)

	// Dialect returns the provider name of the engine.
	Dialect() string
}
