// Package snapshot reconstructs the expected schema of a module by replaying
// the operations of its migrations in order.
package snapshot

import (
	"sort"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/manager"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Replay folds the operations of managers, in ascending ID order, into the
// list of tables they produce. The managers are not modified.
func Replay(managers []*manager.Manager) []*domain.DiffableTable {
	var tables []*domain.DiffableTable
	for _, m := range sorted(managers) {
		tables = apply(tables, m.Operations())
	}
	return tables
}

// ReplayUntil replays the managers whose ID sorts before migrationID.
func ReplayUntil(managers []*manager.Manager, migrationID string) []*domain.DiffableTable {
	var prefix []*manager.Manager
	for _, m := range managers {
		if m.ID < migrationID {
			prefix = append(prefix, m)
		}
	}
	return Replay(prefix)
}

// TableAt returns the table with the given class name as it was before
// migrationID, or nil.
func TableAt(managers []*manager.Manager, className, migrationID string) *domain.DiffableTable {
	for _, t := range ReplayUntil(managers, migrationID) {
		if t.ClassName == className {
			return t
		}
	}
	return nil
}

func sorted(managers []*manager.Manager) []*manager.Manager {
	out := append([]*manager.Manager(nil), managers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// apply folds one manager's operations. Column operations address tables by
// their post-rename class and columns by their post-rename name, the same
// order the manager executes them in.
func apply(tables []*domain.DiffableTable, ops manager.Operations) []*domain.DiffableTable {
	for _, op := range ops.AddTables {
		if lookup(tables, op.ClassName, op.TableName) != nil {
			continue
		}
		tables = append(tables, &domain.DiffableTable{
			ClassName: op.ClassName,
			TableName: op.TableName,
			Schema:    op.Schema,
			Columns:   cloneColumns(op.Columns),
		})
	}

	for _, op := range ops.DropTables {
		tables = remove(tables, op.ClassName, op.TableName)
	}

	for _, op := range ops.RenameTables {
		if t := lookup(tables, op.OldClassName, op.OldTableName); t != nil {
			t.ClassName = op.NewClassName
			t.TableName = op.NewTableName
		}
	}

	for _, op := range ops.AddColumns {
		t := lookup(tables, op.TableClassName, op.TableName)
		if t == nil || t.ColumnIndex(op.Column.Name) >= 0 {
			continue
		}
		t.Columns = append(t.Columns, op.Column.Clone())
	}

	for _, op := range ops.DropColumns {
		t := lookup(tables, op.TableClassName, op.TableName)
		if t == nil {
			continue
		}
		if i := t.ColumnIndex(op.ColumnName); i >= 0 {
			t.Columns = append(t.Columns[:i:i], t.Columns[i+1:]...)
		}
	}

	for _, op := range ops.RenameColumns {
		t := lookup(tables, op.TableClassName, op.TableName)
		if t == nil {
			continue
		}
		i := t.ColumnIndex(op.OldColumnName)
		if i < 0 {
			continue
		}
		t.Columns[i].Name = op.NewColumnName
		if op.NewDBColumnName != "" && op.NewDBColumnName != op.NewColumnName {
			if t.Columns[i].Params == nil {
				t.Columns[i].Params = schema.Params{}
			}
			t.Columns[i].Params[schema.ParamDBColumnName] = op.NewDBColumnName
		}
	}

	for _, op := range ops.AlterColumns {
		t := lookup(tables, op.TableClassName, op.TableName)
		if t == nil {
			continue
		}
		i := t.ColumnIndex(op.ColumnName)
		if i < 0 {
			continue
		}
		t.Columns[i] = alter(t.Columns[i], op)
	}

	return tables
}

// alter applies op to a copy of c. A kind change carries the full param set
// of the new kind, which replaces the old one; other alterations merge the
// changed keys.
func alter(c schema.Column, op domain.AlterColumn) schema.Column {
	col := c.Clone()
	if op.KindChanged() {
		params := make(schema.Params, len(op.Params)+1)
		for key, value := range op.Params {
			params[key] = schema.CloneValue(value)
		}
		// A renamed column's alteration leaves db_column_name to the rename.
		_, inNew := op.Params[schema.ParamDBColumnName]
		_, inOld := op.OldParams[schema.ParamDBColumnName]
		if name, ok := col.Params[schema.ParamDBColumnName]; ok && !inNew && !inOld {
			params[schema.ParamDBColumnName] = name
		}
		col.Params = params
		col.Kind = op.Kind
		return col
	}

	if col.Params == nil {
		col.Params = schema.Params{}
	}
	for key, value := range op.Params {
		col.Params[key] = schema.CloneValue(value)
	}
	if op.Kind != "" {
		col.Kind = op.Kind
	}
	return col
}

// lookup finds a table by class name and, when given, table name. Two
// tables may share a class name within one migration while one replaces the
// other.
func lookup(tables []*domain.DiffableTable, className, tableName string) *domain.DiffableTable {
	for _, t := range tables {
		if matches(t, className, tableName) {
			return t
		}
	}
	return nil
}

func remove(tables []*domain.DiffableTable, className, tableName string) []*domain.DiffableTable {
	out := tables[:0:0]
	for _, t := range tables {
		if !matches(t, className, tableName) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t *domain.DiffableTable, className, tableName string) bool {
	return t.ClassName == className && (tableName == "" || t.TableName == tableName)
}

func cloneColumns(cols []schema.Column) []schema.Column {
	out := make([]schema.Column, len(cols))
	for i, c := range cols {
		out[i] = c.Clone()
	}
	return out
}
