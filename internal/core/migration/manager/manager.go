// Package manager implements the migration manager: an ordered, reversible
// list of schema operations executed in a single transaction.
package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/executor"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// RawFunc is a hand-written migration step run inside the transaction.
type RawFunc func(ctx context.Context, tx executor.Executor) error

// SnapshotSource reconstructs the schema of a module as it was before a
// given migration.
type SnapshotSource interface {
	TablesBefore(ctx context.Context, moduleID, migrationID string) ([]*domain.DiffableTable, error)
}

// State is the execution state of a manager.
type State string

const (
	// Unexecuted indicates the manager has not been run.
	Unexecuted State = "Unexecuted"
	// Applied indicates Run completed.
	Applied State = "Applied"
	// Reverted indicates RunBackwards completed.
	Reverted State = "Reverted"
)

// Manager collects the operations of one migration.
type Manager struct {
	ID          string
	ModuleID    string
	Description string

	addTables     []domain.AddTable
	dropTables    []domain.DropTable
	renameTables  []domain.RenameTable
	addColumns    []domain.AddColumn
	dropColumns   []domain.DropColumn
	renameColumns []domain.RenameColumn
	alterColumns  []domain.AlterColumn
	rawForwards   []RawFunc
	rawBackwards  []RawFunc

	afterForwards  RawFunc
	afterBackwards RawFunc

	engine    executor.Engine
	snapshots SnapshotSource
	resolver  *serializer.Resolver
	logger    *slog.Logger
	state     State
}

// Option configures a Manager.
type Option func(*Manager)

// WithEngine sets the engine operations are executed against.
func WithEngine(e executor.Engine) Option {
	return func(m *Manager) { m.engine = e }
}

// WithSnapshotSource sets the source of earlier snapshots, needed to reverse
// dropped tables and columns.
func WithSnapshotSource(s SnapshotSource) Option {
	return func(m *Manager) { m.snapshots = s }
}

// WithResolver sets the resolver used to deserialize params.
func WithResolver(r *serializer.Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithAfter sets steps run last inside the Run and RunBackwards
// transactions, such as recording the migration in the ledger. Either may be
// nil.
func WithAfter(forwards, backwards RawFunc) Option {
	return func(m *Manager) {
		m.afterForwards = forwards
		m.afterBackwards = backwards
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates an empty manager.
func New(id, moduleID string, opts ...Option) *Manager {
	m := &Manager{
		ID:       id,
		ModuleID: moduleID,
		logger:   slog.New(slog.DiscardHandler),
		state:    Unexecuted,
	}
	m.Configure(opts...)
	return m
}

// Configure applies options after construction.
func (m *Manager) Configure(opts ...Option) {
	for _, opt := range opts {
		opt(m)
	}
}

// State returns the execution state.
func (m *Manager) State() State { return m.state }

// AddTable queues a table creation.
func (m *Manager) AddTable(op domain.AddTable) {
	op.Columns = cloneColumns(op.Columns)
	m.addTables = append(m.addTables, op)
}

// DropTable queues a table drop.
func (m *Manager) DropTable(op domain.DropTable) {
	m.dropTables = append(m.dropTables, op)
}

// RenameTable queues a table rename.
func (m *Manager) RenameTable(op domain.RenameTable) {
	m.renameTables = append(m.renameTables, op)
}

// AddColumn queues a column addition.
func (m *Manager) AddColumn(op domain.AddColumn) {
	op.Column = op.Column.Clone()
	m.addColumns = append(m.addColumns, op)
}

// DropColumn queues a column drop.
func (m *Manager) DropColumn(op domain.DropColumn) {
	m.dropColumns = append(m.dropColumns, op)
}

// RenameColumn queues a column rename.
func (m *Manager) RenameColumn(op domain.RenameColumn) {
	m.renameColumns = append(m.renameColumns, op)
}

// AlterColumn queues a column alteration.
func (m *Manager) AlterColumn(op domain.AlterColumn) {
	op.Params = op.Params.Clone()
	op.OldParams = op.OldParams.Clone()
	m.alterColumns = append(m.alterColumns, op)
}

// AddRawForwards queues a hand-written step run first by Run.
func (m *Manager) AddRawForwards(fn RawFunc) {
	m.rawForwards = append(m.rawForwards, fn)
}

// AddRawBackwards queues a hand-written step run first by RunBackwards.
func (m *Manager) AddRawBackwards(fn RawFunc) {
	m.rawBackwards = append(m.rawBackwards, fn)
}

// Operations returns a copy of every queued operation, grouped by type.
func (m *Manager) Operations() Operations {
	ops := Operations{
		AddTables:     make([]domain.AddTable, len(m.addTables)),
		DropTables:    append([]domain.DropTable(nil), m.dropTables...),
		RenameTables:  append([]domain.RenameTable(nil), m.renameTables...),
		AddColumns:    make([]domain.AddColumn, len(m.addColumns)),
		DropColumns:   append([]domain.DropColumn(nil), m.dropColumns...),
		RenameColumns: append([]domain.RenameColumn(nil), m.renameColumns...),
		AlterColumns:  make([]domain.AlterColumn, len(m.alterColumns)),
	}
	for i, op := range m.addTables {
		op.Columns = cloneColumns(op.Columns)
		ops.AddTables[i] = op
	}
	for i, op := range m.addColumns {
		op.Column = op.Column.Clone()
		ops.AddColumns[i] = op
	}
	for i, op := range m.alterColumns {
		op.Params = op.Params.Clone()
		op.OldParams = op.OldParams.Clone()
		ops.AlterColumns[i] = op
	}
	return ops
}

// HasRaw reports whether the manager carries hand-written steps.
func (m *Manager) HasRaw() bool {
	return len(m.rawForwards) > 0 || len(m.rawBackwards) > 0
}

// Operations is a read-only copy of a manager's operations.
type Operations struct {
	AddTables     []domain.AddTable
	DropTables    []domain.DropTable
	RenameTables  []domain.RenameTable
	AddColumns    []domain.AddColumn
	DropColumns   []domain.DropColumn
	RenameColumns []domain.RenameColumn
	AlterColumns  []domain.AlterColumn
}

// Count returns the total number of operations.
func (o Operations) Count() int {
	return len(o.AddTables) + len(o.DropTables) + len(o.RenameTables) + len(o.AddColumns) +
		len(o.DropColumns) + len(o.RenameColumns) + len(o.AlterColumns)
}

// Run applies the migration in a single transaction.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	err := m.inTransaction(ctx, func(ctx context.Context, tx executor.Executor) error {
		if err := m.forwards(ctx, tx); err != nil {
			return err
		}
		if m.afterForwards != nil {
			return m.afterForwards(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.state = Applied
	return nil
}

// RunBackwards reverses the migration in a single transaction.
func (m *Manager) RunBackwards(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}

	// The earlier snapshot is resolved before anything is executed.
	var earlier []*domain.DiffableTable
	if len(m.dropTables) > 0 || len(m.dropColumns) > 0 {
		if m.snapshots == nil {
			return fmt.Errorf("migration %s: reversing drops requires a snapshot source", m.ID)
		}
		tables, err := m.snapshots.TablesBefore(ctx, m.ModuleID, m.ID)
		if err != nil {
			return fmt.Errorf("migration %s: failed to load earlier snapshot: %w", m.ID, err)
		}
		earlier = tables
	}

	err := m.inTransaction(ctx, func(ctx context.Context, tx executor.Executor) error {
		if err := m.backwards(ctx, tx, earlier); err != nil {
			return err
		}
		if m.afterBackwards != nil {
			return m.afterBackwards(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.state = Reverted
	return nil
}

// GetTableFromSnapshot returns the table as it was before this migration, for
// data manipulation inside raw steps.
func (m *Manager) GetTableFromSnapshot(ctx context.Context, className string) (*domain.DiffableTable, error) {
	if m.snapshots == nil {
		return nil, fmt.Errorf("migration %s: no snapshot source configured", m.ID)
	}
	tables, err := m.snapshots.TablesBefore(ctx, m.ModuleID, m.ID)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if t.ClassName == className {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table %s not found in snapshot before %s", className, m.ID)
}

func (m *Manager) ready() error {
	if m.engine == nil {
		return fmt.Errorf("migration %s: %w", m.ID, domain.ErrNoEngine)
	}
	if m.resolver == nil {
		m.resolver = serializer.NewResolver()
	}
	// Tables created or renamed here can be referenced by this migration.
	for _, op := range m.addTables {
		if _, ok := m.resolver.Table(op.ClassName); !ok {
			m.resolver.RegisterTable(schema.TableRef{ClassName: op.ClassName, TableName: op.TableName})
		}
	}
	for _, op := range m.renameTables {
		if _, ok := m.resolver.Table(op.NewClassName); !ok {
			m.resolver.RegisterTable(schema.TableRef{ClassName: op.NewClassName, TableName: op.NewTableName})
		}
	}
	return nil
}

func (m *Manager) inTransaction(ctx context.Context, fn func(context.Context, executor.Executor) error) error {
	tx, err := m.engine.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		m.rollback(tx)
		return fmt.Errorf("migration %s: %w", m.ID, err)
	}

	if err := ctx.Err(); err != nil {
		m.rollback(tx)
		return fmt.Errorf("migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (m *Manager) rollback(tx executor.Tx) {
	if err := tx.Rollback(); err != nil {
		m.logger.Error("rollback failed", "migration", m.ID, "error", err)
	}
}

func cloneColumns(cols []schema.Column) []schema.Column {
	if cols == nil {
		return nil
	}
	out := make([]schema.Column, len(cols))
	for i, c := range cols {
		out[i] = c.Clone()
	}
	return out
}
