package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/executor"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/query/ddl"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

func (m *Manager) forwards(ctx context.Context, tx executor.Executor) error {
	for _, fn := range m.rawForwards {
		if err := fn(ctx, tx); err != nil {
			return fmt.Errorf("raw forwards step: %w", err)
		}
	}

	for _, op := range m.addTables {
		columns, err := m.deserializeColumns(m.tableColumns(op))
		if err != nil {
			return fmt.Errorf("table %s: %w", op.ClassName, err)
		}
		if err := tx.CreateTable(ctx, op.Handle(), columns); err != nil {
			return err
		}
	}

	for _, op := range m.addColumns {
		if m.creates(op.TableClassName, op.TableName) {
			continue
		}
		column, err := m.deserializeColumn(op.Column)
		if err != nil {
			return fmt.Errorf("table %s: %w", op.TableClassName, err)
		}
		// Tables renamed here still carry their old name at this point.
		_, h := m.beforeRename(op.TableClassName, op.Handle())
		if err := tx.AddColumn(ctx, h, column); err != nil {
			return err
		}
	}

	for _, op := range m.dropTables {
		if err := tx.DropTable(ctx, op.Handle()); err != nil {
			return err
		}
	}

	for _, op := range m.renameTables {
		h := domain.TableHandle{TableName: op.OldTableName, Schema: op.Schema}
		if err := tx.RenameTable(ctx, h, op.NewTableName); err != nil {
			return err
		}
	}

	for _, op := range m.dropColumns {
		if err := tx.DropColumn(ctx, op.Handle()); err != nil {
			return err
		}
	}

	for _, op := range m.renameColumns {
		h := domain.ColumnHandle{
			Table:      domain.TableHandle{TableName: op.TableName, Schema: op.Schema},
			ColumnName: firstNonEmpty(op.OldDBColumnName, op.OldColumnName),
		}
		if err := tx.RenameColumn(ctx, h, firstNonEmpty(op.NewDBColumnName, op.NewColumnName)); err != nil {
			return err
		}
	}

	for _, op := range m.alterColumns {
		if err := m.alterColumn(ctx, tx, op, true); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) backwards(ctx context.Context, tx executor.Executor, earlier []*domain.DiffableTable) error {
	for _, fn := range m.rawBackwards {
		if err := fn(ctx, tx); err != nil {
			return fmt.Errorf("raw backwards step: %w", err)
		}
	}

	for i := len(m.addTables) - 1; i >= 0; i-- {
		op := m.addTables[i]
		if err := tx.DropTable(ctx, op.Handle()); err != nil {
			return err
		}
	}

	for i := len(m.addColumns) - 1; i >= 0; i-- {
		op := m.addColumns[i]
		if m.creates(op.TableClassName, op.TableName) {
			continue
		}
		h := domain.ColumnHandle{Table: op.Handle(), ColumnName: op.Column.DBColumnName()}
		if err := tx.DropColumn(ctx, h); err != nil {
			return err
		}
	}

	for _, op := range m.dropTables {
		table := findTable(earlier, op.ClassName, op.TableName)
		if table == nil {
			return fmt.Errorf("cannot recreate table %s: not found in earlier snapshot", op.ClassName)
		}
		columns, err := m.deserializeColumns(table.Columns)
		if err != nil {
			return fmt.Errorf("table %s: %w", op.ClassName, err)
		}
		if err := tx.CreateTable(ctx, op.Handle(), columns); err != nil {
			return err
		}
	}

	for _, op := range m.renameTables {
		h := domain.TableHandle{TableName: op.NewTableName, Schema: op.Schema}
		if err := tx.RenameTable(ctx, h, op.OldTableName); err != nil {
			return err
		}
	}

	// Renames were reverted above, so the remaining steps address tables
	// by their old names.
	for _, op := range m.dropColumns {
		className, h := m.beforeRename(op.TableClassName, domain.TableHandle{TableName: op.TableName, Schema: op.Schema})
		table := findTable(earlier, className, h.TableName)
		if table == nil {
			return fmt.Errorf("cannot restore column %s.%s: table not found in earlier snapshot", op.TableClassName, op.ColumnName)
		}
		column, ok := table.Column(op.ColumnName)
		if !ok {
			return fmt.Errorf("cannot restore column %s.%s: not found in earlier snapshot", op.TableClassName, op.ColumnName)
		}
		restored, err := m.deserializeColumn(column)
		if err != nil {
			return fmt.Errorf("table %s: %w", op.TableClassName, err)
		}
		if err := tx.AddColumn(ctx, h, restored); err != nil {
			return err
		}
	}

	for _, op := range m.renameColumns {
		_, table := m.beforeRename(op.TableClassName, domain.TableHandle{TableName: op.TableName, Schema: op.Schema})
		h := domain.ColumnHandle{
			Table:      table,
			ColumnName: firstNonEmpty(op.NewDBColumnName, op.NewColumnName),
		}
		if err := tx.RenameColumn(ctx, h, firstNonEmpty(op.OldDBColumnName, op.OldColumnName)); err != nil {
			return err
		}
	}

	for _, op := range m.alterColumns {
		if err := m.alterColumn(ctx, tx, op, false); err != nil {
			return err
		}
	}

	return nil
}

// tableColumns merges a table's own columns with the AddColumn operations
// queued for it in this manager. Declared columns come first.
func (m *Manager) tableColumns(op domain.AddTable) []schema.Column {
	columns := append([]schema.Column(nil), op.Columns...)
	declared := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		declared[c.Name] = struct{}{}
	}
	for _, ac := range m.addColumns {
		if !sameTable(op.ClassName, op.TableName, ac.TableClassName, ac.TableName) {
			continue
		}
		if _, ok := declared[ac.Column.Name]; ok {
			continue
		}
		declared[ac.Column.Name] = struct{}{}
		columns = append(columns, ac.Column)
	}
	return columns
}

// alterColumn applies the changed keys of op. Going backwards the old params
// and kind are applied instead. The column is renamed last so every other
// statement addresses it by its current name.
func (m *Manager) alterColumn(ctx context.Context, tx executor.Executor, op domain.AlterColumn, forwards bool) error {
	params, from, kind, fromKind := op.Params, op.OldParams, op.Kind, op.OldKind
	current := op.Handle()
	if !forwards {
		params, from, kind, fromKind = op.OldParams, op.Params, op.OldKind, op.Kind
		_, current.Table = m.beforeRename(op.TableClassName, current.Table)
		if name, ok := op.Params[schema.ParamDBColumnName].(string); ok && name != "" {
			current.ColumnName = name
		} else if name, ok := m.columnBeforeRename(op.TableClassName, op.ColumnName); ok {
			// Column renames were reverted before alterations.
			current.ColumnName = name
		}
	}

	values, err := m.deserializeParams(kind, params)
	if err != nil {
		return fmt.Errorf("column %s: %w", current, err)
	}

	skip := func(change string, err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrUnsupported) {
			m.logger.Warn("skipping unsupported alteration",
				"migration", m.ID, "column", current.String(), "change", change, "error", err)
			return nil
		}
		return err
	}

	keys := serializer.SortedKeys(values)
	if kind != "" && fromKind != "" && kind != fromKind {
		full := schema.DefaultParams(kind)
		for k, v := range values {
			full[k] = v
		}
		column := schema.Column{Name: current.ColumnName, Kind: kind, Params: full}
		if err := skip("type", tx.SetColumnType(ctx, current, column)); err != nil {
			return err
		}
		// Both sides hold full param sets, so only differing keys need a
		// statement of their own.
		keys = domain.ChangedParams(params, from)
	}

	for _, key := range keys {
		value := values[key]
		var err error
		switch key {
		case schema.ParamNull:
			if null, ok := value.(bool); ok {
				err = tx.SetNull(ctx, current, null)
			}
		case schema.ParamLength:
			if n, ok := ddl.ToInt(value); ok {
				err = tx.SetLength(ctx, current, n)
			}
		case schema.ParamUnique:
			if unique, ok := value.(bool); ok {
				err = tx.SetUnique(ctx, current, unique)
			}
		case schema.ParamDigits:
			if digits, ok := ddl.DigitsOf(value); ok {
				err = tx.SetDigits(ctx, current, digits)
			}
		case schema.ParamDefault:
			if isNullDefault(value) {
				err = tx.DropDefault(ctx, current)
			} else {
				err = tx.SetDefault(ctx, current, kind, value)
			}
		case schema.ParamIndex:
			if index, ok := value.(bool); ok {
				if index {
					err = tx.CreateIndex(ctx, current)
				} else {
					err = tx.DropIndex(ctx, current)
				}
			}
		case schema.ParamDBColumnName:
			// Renamed below.
		default:
			m.logger.Debug("no targeted operation for param", "migration", m.ID, "column", current.String(), "param", key)
		}
		if err := skip(key, err); err != nil {
			return err
		}
	}

	if value, ok := values[schema.ParamDBColumnName]; ok && slices.Contains(keys, schema.ParamDBColumnName) {
		name, _ := value.(string)
		if name == "" {
			name = op.ColumnName
		}
		if name != current.ColumnName {
			if err := tx.RenameColumn(ctx, current, name); err != nil {
				return err
			}
		}
	}

	return nil
}

// beforeRename maps a table renamed by this manager back to its old class
// name and handle. Other tables are returned unchanged.
func (m *Manager) beforeRename(className string, h domain.TableHandle) (string, domain.TableHandle) {
	for _, op := range m.renameTables {
		if op.NewClassName == className {
			return op.OldClassName, domain.TableHandle{TableName: op.OldTableName, Schema: op.Schema}
		}
	}
	return className, h
}

// columnBeforeRename returns the database name a column renamed by this
// manager had before the rename.
func (m *Manager) columnBeforeRename(className, columnName string) (string, bool) {
	for _, op := range m.renameColumns {
		if op.TableClassName == className && op.NewColumnName == columnName {
			return firstNonEmpty(op.OldDBColumnName, op.OldColumnName), true
		}
	}
	return "", false
}

func isNullDefault(v any) bool {
	if v == nil {
		return true
	}
	d, ok := v.(schema.Default)
	return ok && d.Kind == schema.DefaultNull
}

func (m *Manager) deserializeParams(kind schema.Kind, params schema.Params) (schema.Params, error) {
	if kind != "" {
		return serializer.Deserialize(kind, params, m.resolver)
	}
	out := make(schema.Params, len(params))
	for k, v := range params {
		d, err := serializer.DeserializeValue(v, m.resolver)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

func (m *Manager) deserializeColumn(c schema.Column) (schema.Column, error) {
	params, err := serializer.Deserialize(c.Kind, c.Params, m.resolver)
	if err != nil {
		return schema.Column{}, fmt.Errorf("column %s: %w", c.Name, err)
	}
	return schema.Column{Name: c.Name, Kind: c.Kind, Params: params}, nil
}

func (m *Manager) deserializeColumns(cols []schema.Column) ([]schema.Column, error) {
	out := make([]schema.Column, 0, len(cols))
	for _, c := range cols {
		d, err := m.deserializeColumn(c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// creates reports whether this manager creates the table.
func (m *Manager) creates(className, tableName string) bool {
	for _, op := range m.addTables {
		if sameTable(op.ClassName, op.TableName, className, tableName) {
			return true
		}
	}
	return false
}

// findTable looks a table up by class name and, when given, table name.
func findTable(tables []*domain.DiffableTable, className, tableName string) *domain.DiffableTable {
	for _, t := range tables {
		if sameTable(t.ClassName, t.TableName, className, tableName) {
			return t
		}
	}
	return nil
}

func sameTable(className, tableName, otherClass, otherTable string) bool {
	return className == otherClass && (tableName == "" || otherTable == "" || tableName == otherTable)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
