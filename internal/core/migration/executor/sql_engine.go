package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/satishbabariya/migrant/internal/adapters/database"
	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/query/ddl"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// SQLEngine implements Engine over a database adapter and a DDL dialect.
type SQLEngine struct {
	db      database.Adapter
	dialect ddl.Dialect
	logger  *slog.Logger
}

// NewSQLEngine creates a new SQL engine.
func NewSQLEngine(db database.Adapter, dialect ddl.Dialect, logger *slog.Logger) *SQLEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLEngine{db: db, dialect: dialect, logger: logger}
}

// Begin starts a transaction.
func (e *SQLEngine) Begin(ctx context.Context) (Tx, error) {
	if e.db == nil {
		return nil, fmt.Errorf("database adapter not initialized")
	}
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &statementTx{
		dialect: e.dialect,
		logger:  e.logger,
		exec: func(ctx context.Context, query string, args ...any) error {
			_, err := tx.Execute(ctx, query, args...)
			return err
		},
		commit:   tx.Commit,
		rollback: tx.Rollback,
	}, nil
}

// Dialect returns the provider name of the engine.
func (e *SQLEngine) Dialect() string {
	return e.dialect.Name()
}

// statementTx renders each operation with the dialect and hands the statement
// to exec.
type statementTx struct {
	dialect  ddl.Dialect
	logger   *slog.Logger
	exec     func(ctx context.Context, query string, args ...any) error
	commit   func() error
	rollback func() error
}

func (t *statementTx) run(ctx context.Context, stmt string, err error) error {
	if err != nil {
		return err
	}
	t.logger.Debug("executing statement", "sql", stmt)
	if err := t.exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute %q: %w", stmt, err)
	}
	return nil
}

func (t *statementTx) CreateTable(ctx context.Context, h domain.TableHandle, columns []schema.Column) error {
	stmt, err := t.dialect.CreateTable(h, columns)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) DropTable(ctx context.Context, h domain.TableHandle) error {
	stmt, err := t.dialect.DropTable(h)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) RenameTable(ctx context.Context, h domain.TableHandle, newName string) error {
	stmt, err := t.dialect.RenameTable(h, newName)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) AddColumn(ctx context.Context, h domain.TableHandle, column schema.Column) error {
	stmt, err := t.dialect.AddColumn(h, column)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) DropColumn(ctx context.Context, c domain.ColumnHandle) error {
	stmt, err := t.dialect.DropColumn(c)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) RenameColumn(ctx context.Context, c domain.ColumnHandle, newName string) error {
	stmt, err := t.dialect.RenameColumn(c, newName)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) SetColumnType(ctx context.Context, c domain.ColumnHandle, column schema.Column) error {
	stmt, err := t.dialect.SetColumnType(c, column)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) SetNull(ctx context.Context, c domain.ColumnHandle, null bool) error {
	stmt, err := t.dialect.SetNull(c, null)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) SetLength(ctx context.Context, c domain.ColumnHandle, length int) error {
	stmt, err := t.dialect.SetLength(c, length)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) SetUnique(ctx context.Context, c domain.ColumnHandle, unique bool) error {
	stmt, err := t.dialect.SetUnique(c, unique)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) SetDigits(ctx context.Context, c domain.ColumnHandle, digits *schema.Digits) error {
	stmt, err := t.dialect.SetDigits(c, digits)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) SetDefault(ctx context.Context, c domain.ColumnHandle, kind schema.Kind, value any) error {
	stmt, err := t.dialect.SetDefault(c, kind, value)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) DropDefault(ctx context.Context, c domain.ColumnHandle) error {
	stmt, err := t.dialect.DropDefault(c)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) CreateIndex(ctx context.Context, c domain.ColumnHandle) error {
	stmt, err := t.dialect.CreateIndex(c)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) DropIndex(ctx context.Context, c domain.ColumnHandle) error {
	stmt, err := t.dialect.DropIndex(c)
	return t.run(ctx, stmt, err)
}

func (t *statementTx) Exec(ctx context.Context, query string, args ...any) error {
	t.logger.Debug("executing raw statement", "sql", query)
	if err := t.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute %q: %w", query, err)
	}
	return nil
}

func (t *statementTx) Commit() error { return t.commit() }

func (t *statementTx) Rollback() error { return t.rollback() }

// Ensure SQLEngine implements Engine interface.
var _ Engine = (*SQLEngine)(nil)
