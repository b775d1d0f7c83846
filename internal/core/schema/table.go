package schema

import (
	"strings"
	"unicode"
)

// PrimaryKeyName is the name of the implicit primary key column.
const PrimaryKeyName = "id"

// Table is a live table definition declared by application code.
type Table struct {
	ClassName string
	TableName string
	Schema    string
	Columns   []Column
}

// NewTable creates a table. An empty tableName is derived from the class name.
func NewTable(className, tableName string, columns ...Column) *Table {
	if tableName == "" {
		tableName = SnakeCase(className)
	}
	return &Table{ClassName: className, TableName: tableName, Columns: columns}
}

// InSchema places the table in a database schema other than the default one.
func (t *Table) InSchema(schema string) *Table {
	t.Schema = schema
	return t
}

// Ref returns a reference to the table.
func (t *Table) Ref() TableRef {
	return TableRef{ClassName: t.ClassName, TableName: t.TableName}
}

// PrimaryKey returns the explicit primary key column or the implicit id.
func (t *Table) PrimaryKey() Column {
	for _, c := range t.Columns {
		if c.IsPrimaryKey() {
			return c
		}
	}
	return NewColumn(PrimaryKeyName, Serial, PrimaryKey())
}

// AllColumns returns the columns including the implicit primary key.
func (t *Table) AllColumns() []Column {
	for _, c := range t.Columns {
		if c.IsPrimaryKey() {
			return t.Columns
		}
	}
	return append([]Column{t.PrimaryKey()}, t.Columns...)
}

// NonDefaultColumns returns the declared columns, without the implicit id.
func (t *Table) NonDefaultColumns() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Clone())
	}
	return out
}

// Column returns the column called name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// SnakeCase converts a class name such as "RecordLabel" to "record_label".
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
