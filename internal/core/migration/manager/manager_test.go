package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/executor"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// recorder is an engine that records operation names instead of running SQL.
type recorder struct {
	calls       []string
	committed   bool
	rolledBack  bool
	unsupported map[string]bool
	failOn      string
	rollbackErr error
	columns     map[string][]schema.Column
}

func newRecorder() *recorder {
	return &recorder{unsupported: map[string]bool{}, columns: map[string][]schema.Column{}}
}

func (r *recorder) Begin(ctx context.Context) (executor.Tx, error) { return r, nil }
func (r *recorder) Dialect() string                                { return "recorder" }
func (r *recorder) Commit() error                                  { r.committed = true; return nil }
func (r *recorder) Rollback() error                                { r.rolledBack = true; return r.rollbackErr }

func (r *recorder) record(call string) error {
	r.calls = append(r.calls, call)
	name := call
	for i, c := range call {
		if c == ' ' {
			name = call[:i]
			break
		}
	}
	if r.unsupported[name] {
		return fmt.Errorf("recorder %s: %w", name, domain.ErrUnsupported)
	}
	if r.failOn == name {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) CreateTable(ctx context.Context, t domain.TableHandle, columns []schema.Column) error {
	r.columns[t.TableName] = columns
	names := ""
	for _, c := range columns {
		names += " " + c.Name
	}
	return r.record("CreateTable " + t.TableName + names)
}
func (r *recorder) DropTable(ctx context.Context, t domain.TableHandle) error {
	return r.record("DropTable " + t.TableName)
}
func (r *recorder) RenameTable(ctx context.Context, t domain.TableHandle, newName string) error {
	return r.record("RenameTable " + t.TableName + " " + newName)
}
func (r *recorder) AddColumn(ctx context.Context, t domain.TableHandle, column schema.Column) error {
	r.columns[t.TableName+"."+column.Name] = []schema.Column{column}
	return r.record("AddColumn " + t.TableName + " " + column.Name)
}
func (r *recorder) DropColumn(ctx context.Context, c domain.ColumnHandle) error {
	return r.record("DropColumn " + c.String())
}
func (r *recorder) RenameColumn(ctx context.Context, c domain.ColumnHandle, newName string) error {
	return r.record("RenameColumn " + c.String() + " " + newName)
}
func (r *recorder) SetColumnType(ctx context.Context, c domain.ColumnHandle, column schema.Column) error {
	r.columns[c.String()] = []schema.Column{column}
	return r.record("SetColumnType " + c.String() + " " + string(column.Kind))
}
func (r *recorder) SetNull(ctx context.Context, c domain.ColumnHandle, null bool) error {
	return r.record(fmt.Sprintf("SetNull %s %v", c, null))
}
func (r *recorder) SetLength(ctx context.Context, c domain.ColumnHandle, length int) error {
	return r.record(fmt.Sprintf("SetLength %s %d", c, length))
}
func (r *recorder) SetUnique(ctx context.Context, c domain.ColumnHandle, unique bool) error {
	return r.record(fmt.Sprintf("SetUnique %s %v", c, unique))
}
func (r *recorder) SetDigits(ctx context.Context, c domain.ColumnHandle, digits *schema.Digits) error {
	if digits == nil {
		return r.record(fmt.Sprintf("SetDigits %s nil", c))
	}
	return r.record(fmt.Sprintf("SetDigits %s %d,%d", c, digits.Precision, digits.Scale))
}
func (r *recorder) SetDefault(ctx context.Context, c domain.ColumnHandle, kind schema.Kind, value any) error {
	return r.record(fmt.Sprintf("SetDefault %s %v", c, value))
}
func (r *recorder) DropDefault(ctx context.Context, c domain.ColumnHandle) error {
	return r.record("DropDefault " + c.String())
}
func (r *recorder) CreateIndex(ctx context.Context, c domain.ColumnHandle) error {
	return r.record("CreateIndex " + c.String())
}
func (r *recorder) DropIndex(ctx context.Context, c domain.ColumnHandle) error {
	return r.record("DropIndex " + c.String())
}
func (r *recorder) Exec(ctx context.Context, query string, args ...any) error {
	return r.record("Exec " + query)
}

// staticSnapshots returns the same tables for every migration.
type staticSnapshots []*domain.DiffableTable

func (s staticSnapshots) TablesBefore(ctx context.Context, moduleID, migrationID string) ([]*domain.DiffableTable, error) {
	return s, nil
}

func serializedColumn(c schema.Column) schema.Column {
	params, _ := serializer.Serialize(c.Params)
	return schema.Column{Name: c.Name, Kind: c.Kind, Params: params}
}

func TestRun_NoEngine(t *testing.T) {
	m := New("2024-01-01T00:00:00:000000", "music")
	m.DropTable(domain.DropTable{ClassName: "Band", TableName: "band"})

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoEngine))
	assert.Equal(t, Unexecuted, m.State())

	err = m.RunBackwards(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNoEngine))
}

func TestRun_Order(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))

	// Queued in reverse of the execution order.
	m.AlterColumn(domain.AlterColumn{TableClassName: "Venue", TableName: "venue", ColumnName: "capacity",
		Kind: schema.Integer, OldKind: schema.Integer, Params: schema.Params{"null": true}, OldParams: schema.Params{"null": false}})
	m.RenameColumn(domain.RenameColumn{TableClassName: "Venue", TableName: "venue", OldColumnName: "title", NewColumnName: "name"})
	m.DropColumn(domain.DropColumn{TableClassName: "Venue", TableName: "venue", ColumnName: "old"})
	m.RenameTable(domain.RenameTable{OldClassName: "Act", OldTableName: "act", NewClassName: "Band", NewTableName: "band"})
	m.DropTable(domain.DropTable{ClassName: "Ticket", TableName: "ticket"})
	m.AddColumn(domain.AddColumn{TableClassName: "Venue", TableName: "venue", Column: serializedColumn(schema.IntegerColumn("seats"))})
	m.AddTable(domain.AddTable{ClassName: "Manager", TableName: "manager"})
	m.AddRawForwards(func(ctx context.Context, tx executor.Executor) error {
		return tx.Exec(ctx, "SELECT 1")
	})

	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, []string{
		"Exec SELECT 1",
		"CreateTable manager",
		"AddColumn venue seats",
		"DropTable ticket",
		"RenameTable act band",
		"DropColumn venue.old",
		"RenameColumn venue.title name",
		"SetNull venue.capacity true",
	}, rec.calls)
	assert.True(t, rec.committed)
	assert.Equal(t, Applied, m.State())
}

func TestRun_MergesQueuedColumnsIntoNewTable(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))

	m.AddTable(domain.AddTable{ClassName: "Band", TableName: "band",
		Columns: []schema.Column{serializedColumn(schema.VarcharColumn("name"))}})
	m.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "band", Column: serializedColumn(schema.VarcharColumn("name"))})
	m.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "band", Column: serializedColumn(schema.IntegerColumn("popularity"))})

	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, []string{"CreateTable band name popularity"}, rec.calls)
}

func TestRun_DeserializesReferences(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	genre := schema.NewEnum("Genre", "rock", "pop")

	m.AddTable(domain.AddTable{ClassName: "Manager", TableName: "manager"})
	m.AddTable(domain.AddTable{ClassName: "Band", TableName: "band", Columns: []schema.Column{
		serializedColumn(schema.ForeignKeyColumn("manager", schema.TableRef{ClassName: "Manager", TableName: "manager"})),
		serializedColumn(schema.VarcharColumn("genre", schema.Choices(genre), schema.WithDefault(genre.MustMember("pop")))),
	}})

	require.NoError(t, m.Run(context.Background()))

	cols := rec.columns["band"]
	require.Len(t, cols, 2)
	assert.Equal(t, schema.TableRef{ClassName: "Manager", TableName: "manager"}, cols[0].Params["references"])
	assert.Equal(t, genre.MustMember("pop"), cols[1].Params["default"])
}

func TestRun_UnresolvedReferenceAborts(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "band", Column: schema.Column{
		Name: "manager", Kind: schema.ForeignKey, Params: schema.Params{"references": serializer.TableRefString("Ghost|ghost")},
	}})

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnresolvedReference))
	assert.True(t, rec.rolledBack)
	assert.False(t, rec.committed)
}

func TestRun_ErrorRollsBack(t *testing.T) {
	rec := newRecorder()
	rec.failOn = "DropTable"
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AddTable(domain.AddTable{ClassName: "Band", TableName: "band"})
	m.DropTable(domain.DropTable{ClassName: "Ticket", TableName: "ticket"})

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, rec.rolledBack)
	assert.False(t, rec.committed)
	assert.Equal(t, Unexecuted, m.State())
}

func TestRun_UnsupportedAlterationIsSkipped(t *testing.T) {
	rec := newRecorder()
	rec.unsupported["SetNull"] = true
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AlterColumn(domain.AlterColumn{
		TableClassName: "Band", TableName: "band", ColumnName: "name",
		Kind: schema.Varchar, OldKind: schema.Varchar,
		Params:    schema.Params{"null": true, "unique": true},
		OldParams: schema.Params{"null": false, "unique": false},
	})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"SetNull band.name true", "SetUnique band.name true"}, rec.calls)
	assert.True(t, rec.committed)
}

func TestRun_AlterMapping(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AlterColumn(domain.AlterColumn{
		TableClassName: "Band", TableName: "band", ColumnName: "rating",
		Kind: schema.Numeric, OldKind: schema.Integer,
		Params: schema.Params{
			"digits":  schema.Digits{Precision: 4, Scale: 2},
			"default": nil,
			"index":   true,
			"length":  10,
			"choices": nil,
		},
		OldParams: schema.Params{"digits": nil, "default": 0, "index": false, "length": 5, "choices": nil},
	})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{
		"SetColumnType band.rating Numeric",
		"DropDefault band.rating",
		"SetDigits band.rating 4,2",
		"CreateIndex band.rating",
		"SetLength band.rating 10",
	}, rec.calls)

	rec.calls = nil
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, []string{
		"SetColumnType band.rating Integer",
		"SetDefault band.rating 0",
		"SetDigits band.rating nil",
		"DropIndex band.rating",
		"SetLength band.rating 5",
	}, rec.calls)
}

func TestRun_KindChangeRestoresOldParams(t *testing.T) {
	old := &domain.DiffableTable{ClassName: "Band", TableName: "band", Columns: []schema.Column{schema.VarcharColumn("code", schema.Length(100))}}
	live := &domain.DiffableTable{ClassName: "Band", TableName: "band", Columns: []schema.Column{schema.IntegerColumn("code")}}
	delta, err := live.Subtract(old)
	require.NoError(t, err)
	require.Len(t, delta.AlterColumns, 1)

	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AlterColumn(delta.AlterColumns[0])

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"SetColumnType band.code Integer", "SetDefault band.code 0"}, rec.calls)

	rec.calls = nil
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, []string{
		"SetColumnType band.code Varchar",
		"SetDefault band.code ",
		"SetLength band.code 100",
	}, rec.calls)
	restored := rec.columns["band.code"][0]
	assert.Equal(t, schema.Varchar, restored.Kind)
	assert.Equal(t, 100, restored.Params["length"])
}

func TestRun_RollbackFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := newRecorder()
	rec.rollbackErr = errors.New("connection lost")
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec), WithLogger(logger))
	m.DropTable(domain.DropTable{ClassName: "Band", TableName: "band"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, rec.rolledBack)
	assert.Contains(t, buf.String(), "rollback failed")
	assert.Contains(t, buf.String(), "connection lost")

	buf.Reset()
	m = New("2024-01-02T00:00:00:000000", "music", WithEngine(rec), WithLogger(logger))
	m.AddRawForwards(func(context.Context, executor.Executor) error { panic("raw step") })
	assert.PanicsWithValue(t, "raw step", func() { _ = m.Run(context.Background()) })
	assert.Contains(t, buf.String(), "rollback failed")
}

func TestRun_SameClassTableReplacement(t *testing.T) {
	rec := newRecorder()
	earlier := staticSnapshots{{ClassName: "Band", TableName: "band", Columns: []schema.Column{serializedColumn(schema.VarcharColumn("name"))}}}
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec), WithSnapshotSource(earlier))
	m.AddTable(domain.AddTable{ClassName: "Band", TableName: "bands"})
	m.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "bands", Column: serializedColumn(schema.VarcharColumn("name"))})
	m.DropTable(domain.DropTable{ClassName: "Band", TableName: "band"})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"CreateTable bands name", "DropTable band"}, rec.calls)

	rec.calls = nil
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, []string{"DropTable bands", "CreateTable band name"}, rec.calls)
}

func TestRun_AlterDBColumnNameRenamesLast(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AlterColumn(domain.AlterColumn{
		TableClassName: "Band", TableName: "band", ColumnName: "name", DBColumnName: "name",
		Kind: schema.Varchar, OldKind: schema.Varchar,
		Params:    schema.Params{"db_column_name": "band_name", "null": true},
		OldParams: schema.Params{"db_column_name": nil, "null": false},
	})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"SetNull band.name true", "RenameColumn band.name band_name"}, rec.calls)

	rec.calls = nil
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, []string{"SetNull band.band_name false", "RenameColumn band.band_name name"}, rec.calls)
}

func TestRunBackwards_Order(t *testing.T) {
	rec := newRecorder()
	earlier := staticSnapshots{
		{ClassName: "Ticket", TableName: "ticket", Columns: []schema.Column{serializedColumn(schema.IntegerColumn("price"))}},
		{ClassName: "Venue", TableName: "venue", Columns: []schema.Column{serializedColumn(schema.VarcharColumn("old"))}},
	}
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec), WithSnapshotSource(earlier))

	m.AddTable(domain.AddTable{ClassName: "Manager", TableName: "manager"})
	m.AddTable(domain.AddTable{ClassName: "Label", TableName: "label"})
	m.AddColumn(domain.AddColumn{TableClassName: "Manager", TableName: "manager", Column: serializedColumn(schema.VarcharColumn("name"))})
	m.AddColumn(domain.AddColumn{TableClassName: "Venue", TableName: "venue", Column: serializedColumn(schema.IntegerColumn("seats"))})
	m.DropTable(domain.DropTable{ClassName: "Ticket", TableName: "ticket"})
	m.RenameTable(domain.RenameTable{OldClassName: "Act", OldTableName: "act", NewClassName: "Band", NewTableName: "band"})
	m.DropColumn(domain.DropColumn{TableClassName: "Venue", TableName: "venue", ColumnName: "old"})
	m.RenameColumn(domain.RenameColumn{TableClassName: "Venue", TableName: "venue", OldColumnName: "title", NewColumnName: "name"})
	m.AddRawBackwards(func(ctx context.Context, tx executor.Executor) error {
		return tx.Exec(ctx, "SELECT 2")
	})

	require.NoError(t, m.RunBackwards(context.Background()))

	assert.Equal(t, []string{
		"Exec SELECT 2",
		"DropTable label",
		"DropTable manager",
		"DropColumn venue.seats",
		"CreateTable ticket price",
		"RenameTable band act",
		"AddColumn venue old",
		"RenameColumn venue.name title",
	}, rec.calls)
	assert.Equal(t, Reverted, m.State())
}

func TestRunBackwards_DropWithoutSnapshotSourceFailsBeforeMutation(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.DropTable(domain.DropTable{ClassName: "Ticket", TableName: "ticket"})

	err := m.RunBackwards(context.Background())
	require.Error(t, err)
	assert.Empty(t, rec.calls)
	assert.False(t, rec.rolledBack)
}

func TestRunBackwards_TableMissingFromSnapshot(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec), WithSnapshotSource(staticSnapshots{}))
	m.DropTable(domain.DropTable{ClassName: "Ticket", TableName: "ticket"})

	err := m.RunBackwards(context.Background())
	require.Error(t, err)
	assert.True(t, rec.rolledBack)
}

func TestStateCycle(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AddTable(domain.AddTable{ClassName: "Band", TableName: "band"})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, Applied, m.State())
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, Reverted, m.State())
	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, Applied, m.State())
}

func TestGetTableFromSnapshot(t *testing.T) {
	earlier := staticSnapshots{{ClassName: "Band", TableName: "band"}}
	m := New("2024-01-01T00:00:00:000000", "music", WithSnapshotSource(earlier))

	table, err := m.GetTableFromSnapshot(context.Background(), "Band")
	require.NoError(t, err)
	assert.Equal(t, "band", table.TableName)

	_, err = m.GetTableFromSnapshot(context.Background(), "Ghost")
	assert.Error(t, err)
}

func TestOperations_ReturnsCopies(t *testing.T) {
	m := New("2024-01-01T00:00:00:000000", "music")
	m.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "band", Column: serializedColumn(schema.VarcharColumn("name"))})

	ops := m.Operations()
	ops.AddColumns[0].Column.Params["null"] = true

	assert.Equal(t, false, m.Operations().AddColumns[0].Column.Params["null"])
	assert.Equal(t, 1, m.Operations().Count())
}

func TestRun_CancelledContextRollsBack(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.AddTable(domain.AddTable{ClassName: "Band", TableName: "band"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, rec.rolledBack)
}

func TestRun_ColumnsOfRenamedTable(t *testing.T) {
	rec := newRecorder()
	earlier := staticSnapshots{
		{ClassName: "Act", TableName: "act", Columns: []schema.Column{serializedColumn(schema.VarcharColumn("title"))}},
	}
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec), WithSnapshotSource(earlier))
	m.RenameTable(domain.RenameTable{OldClassName: "Act", OldTableName: "act", NewClassName: "Band", NewTableName: "band"})
	m.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "band", Column: serializedColumn(schema.IntegerColumn("popularity"))})
	m.DropColumn(domain.DropColumn{TableClassName: "Band", TableName: "band", ColumnName: "title"})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{
		"AddColumn act popularity",
		"RenameTable act band",
		"DropColumn band.title",
	}, rec.calls)

	rec.calls = nil
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, []string{
		"DropColumn band.popularity",
		"RenameTable band act",
		"AddColumn act title",
	}, rec.calls)
}

func TestRunBackwards_AlterOfRenamedColumn(t *testing.T) {
	rec := newRecorder()
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec))
	m.RenameColumn(domain.RenameColumn{TableClassName: "Band", TableName: "band", OldColumnName: "title", NewColumnName: "name"})
	m.AlterColumn(domain.AlterColumn{
		TableClassName: "Band", TableName: "band", ColumnName: "name",
		Kind: schema.Varchar, OldKind: schema.Varchar,
		Params:    schema.Params{"null": true},
		OldParams: schema.Params{"null": false},
	})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"RenameColumn band.title name", "SetNull band.name true"}, rec.calls)

	rec.calls = nil
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, []string{"RenameColumn band.name title", "SetNull band.title false"}, rec.calls)
}

func TestRun_AfterStepsRunLastInTransaction(t *testing.T) {
	rec := newRecorder()
	record := func(query string) RawFunc {
		return func(ctx context.Context, tx executor.Executor) error {
			return tx.Exec(ctx, query)
		}
	}
	m := New("2024-01-01T00:00:00:000000", "music", WithEngine(rec),
		WithAfter(record("INSERT ledger"), record("DELETE ledger")))
	m.AddTable(domain.AddTable{ClassName: "Band", TableName: "band"})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"CreateTable band", "Exec INSERT ledger"}, rec.calls)

	rec.calls = nil
	require.NoError(t, m.RunBackwards(context.Background()))
	assert.Equal(t, []string{"DropTable band", "Exec DELETE ledger"}, rec.calls)
}
