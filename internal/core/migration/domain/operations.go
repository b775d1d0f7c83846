package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Operation is a single schema change recorded in a migration.
type Operation interface {
	// Type returns the type of operation.
	Type() OperationType

	// Description returns a human-readable description.
	Description() string
}

// OperationType represents the type of schema change.
type OperationType string

const (
	// OpAddTable creates a table.
	OpAddTable OperationType = "AddTable"
	// OpDropTable drops a table.
	OpDropTable OperationType = "DropTable"
	// OpRenameTable renames a table.
	OpRenameTable OperationType = "RenameTable"
	// OpAddColumn adds a column.
	OpAddColumn OperationType = "AddColumn"
	// OpDropColumn drops a column.
	OpDropColumn OperationType = "DropColumn"
	// OpRenameColumn renames a column.
	OpRenameColumn OperationType = "RenameColumn"
	// OpAlterColumn changes column parameters or kind.
	OpAlterColumn OperationType = "AlterColumn"
)

// AddTable creates a table. Columns carry serialized params.
type AddTable struct {
	ClassName string
	TableName string
	Schema    string
	Columns   []schema.Column
}

func (op AddTable) Type() OperationType { return OpAddTable }

func (op AddTable) Description() string {
	return fmt.Sprintf("create table %s", qualify(op.Schema, op.TableName))
}

// Handle returns the handle of the created table.
func (op AddTable) Handle() TableHandle {
	return TableHandle{TableName: op.TableName, Schema: op.Schema}
}

// DropTable drops a table.
type DropTable struct {
	ClassName string
	TableName string
	Schema    string
}

func (op DropTable) Type() OperationType { return OpDropTable }

func (op DropTable) Description() string {
	return fmt.Sprintf("drop table %s", qualify(op.Schema, op.TableName))
}

// Handle returns the handle of the dropped table.
func (op DropTable) Handle() TableHandle {
	return TableHandle{TableName: op.TableName, Schema: op.Schema}
}

// RenameTable renames a table and its class.
type RenameTable struct {
	OldClassName string
	OldTableName string
	NewClassName string
	NewTableName string
	Schema       string
}

func (op RenameTable) Type() OperationType { return OpRenameTable }

func (op RenameTable) Description() string {
	return fmt.Sprintf("rename table %s to %s", qualify(op.Schema, op.OldTableName), op.NewTableName)
}

// AddColumn adds a column to a table. Column.Params are serialized.
type AddColumn struct {
	TableClassName string
	TableName      string
	Schema         string
	Column         schema.Column
}

func (op AddColumn) Type() OperationType { return OpAddColumn }

func (op AddColumn) Description() string {
	return fmt.Sprintf("add column %s.%s (%s)", qualify(op.Schema, op.TableName), op.Column.Name, op.Column.Kind)
}

// Handle returns the handle of the table receiving the column.
func (op AddColumn) Handle() TableHandle {
	return TableHandle{TableName: op.TableName, Schema: op.Schema}
}

// DropColumn drops a column.
type DropColumn struct {
	TableClassName string
	TableName      string
	Schema         string
	ColumnName     string
	DBColumnName   string
}

func (op DropColumn) Type() OperationType { return OpDropColumn }

func (op DropColumn) Description() string {
	return fmt.Sprintf("drop column %s.%s", qualify(op.Schema, op.TableName), op.ColumnName)
}

// Handle returns the handle of the dropped column.
func (op DropColumn) Handle() ColumnHandle {
	return ColumnHandle{
		Table:      TableHandle{TableName: op.TableName, Schema: op.Schema},
		ColumnName: orName(op.DBColumnName, op.ColumnName),
	}
}

// RenameColumn renames a column.
type RenameColumn struct {
	TableClassName  string
	TableName       string
	Schema          string
	OldColumnName   string
	NewColumnName   string
	OldDBColumnName string
	NewDBColumnName string
}

func (op RenameColumn) Type() OperationType { return OpRenameColumn }

func (op RenameColumn) Description() string {
	return fmt.Sprintf("rename column %s.%s to %s", qualify(op.Schema, op.TableName), op.OldColumnName, op.NewColumnName)
}

// AlterColumn changes the params, and possibly the kind, of a column. Params
// holds only the changed keys; OldParams holds their prior values.
type AlterColumn struct {
	TableClassName string
	TableName      string
	Schema         string
	ColumnName     string
	DBColumnName   string
	Params         schema.Params
	OldParams      schema.Params
	Kind           schema.Kind
	OldKind        schema.Kind
}

func (op AlterColumn) Type() OperationType { return OpAlterColumn }

func (op AlterColumn) Description() string {
	changes := make([]string, 0, len(op.Params)+1)
	if op.KindChanged() {
		changes = append(changes, fmt.Sprintf("kind %s -> %s", op.OldKind, op.Kind))
	}
	changes = append(changes, op.ChangedKeys()...)
	return fmt.Sprintf("alter column %s.%s (%s)", qualify(op.Schema, op.TableName), op.ColumnName, strings.Join(changes, ", "))
}

// ChangedKeys lists the params the alteration changes, sorted. A kind change
// carries full param sets, of which only the keys whose value differs from
// the old set are changes.
func (op AlterColumn) ChangedKeys() []string {
	if op.KindChanged() {
		return ChangedParams(op.Params, op.OldParams)
	}
	keys := make([]string, 0, len(op.Params))
	for k := range op.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChangedParams returns the sorted keys of to that are missing from from or
// hold a different serialized value there.
func ChangedParams(to, from schema.Params) []string {
	var keys []string
	for _, k := range serializer.SortedKeys(to) {
		if before, ok := from[k]; ok && serializer.Equal(before, to[k]) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// KindChanged reports whether the column kind changes.
func (op AlterColumn) KindChanged() bool {
	return op.Kind != "" && op.OldKind != "" && op.Kind != op.OldKind
}

// Handle returns the handle of the altered column.
func (op AlterColumn) Handle() ColumnHandle {
	return ColumnHandle{
		Table:      TableHandle{TableName: op.TableName, Schema: op.Schema},
		ColumnName: orName(op.DBColumnName, op.ColumnName),
	}
}

func qualify(schemaName, table string) string {
	return TableHandle{TableName: table, Schema: schemaName}.Qualified()
}

func orName(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
