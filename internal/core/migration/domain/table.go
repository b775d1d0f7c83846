// Package domain contains the comparable table model and the operations a
// migration is made of.
package domain

import (
	"fmt"

	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Identity identifies a table across snapshots.
type Identity struct {
	ClassName string
	TableName string
}

func (id Identity) String() string {
	return id.ClassName + "|" + id.TableName
}

// DiffableTable is the shape of a table in a form that can be compared with
// another version of itself.
type DiffableTable struct {
	ClassName string
	TableName string
	Schema    string
	Columns   []schema.Column
}

// FromTable builds a DiffableTable from a live table definition, leaving out
// the implicit primary key.
func FromTable(t *schema.Table) *DiffableTable {
	return &DiffableTable{
		ClassName: t.ClassName,
		TableName: t.TableName,
		Schema:    t.Schema,
		Columns:   t.NonDefaultColumns(),
	}
}

// FromTables converts a list of live tables.
func FromTables(tables []*schema.Table) []*DiffableTable {
	out := make([]*DiffableTable, 0, len(tables))
	for _, t := range tables {
		out = append(out, FromTable(t))
	}
	return out
}

// Key returns the table identity.
func (t *DiffableTable) Key() Identity {
	return Identity{ClassName: t.ClassName, TableName: t.TableName}
}

// Equal reports whether both tables have the same identity.
func (t *DiffableTable) Equal(other *DiffableTable) bool {
	return other != nil && t.Key() == other.Key()
}

// Handle returns the table handle.
func (t *DiffableTable) Handle() TableHandle {
	return TableHandle{TableName: t.TableName, Schema: t.Schema}
}

// Clone returns a deep copy of the table.
func (t *DiffableTable) Clone() *DiffableTable {
	cols := make([]schema.Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Clone()
	}
	return &DiffableTable{ClassName: t.ClassName, TableName: t.TableName, Schema: t.Schema, Columns: cols}
}

// ColumnIndex returns the position of the column called name, or -1.
func (t *DiffableTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the column called name.
func (t *DiffableTable) Column(name string) (schema.Column, bool) {
	if i := t.ColumnIndex(name); i >= 0 {
		return t.Columns[i], true
	}
	return schema.Column{}, false
}

// ColumnNames returns the set of column names.
func (t *DiffableTable) ColumnNames() map[string]struct{} {
	names := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		names[c.Name] = struct{}{}
	}
	return names
}

// TableDelta holds the column level differences between two versions of a
// table. Renames are never decided here.
type TableDelta struct {
	AddColumns   []AddColumn
	DropColumns  []DropColumn
	AlterColumns []AlterColumn
	Warnings     []serializer.Warning
}

// Empty reports whether the delta holds no changes.
func (d *TableDelta) Empty() bool {
	return len(d.AddColumns) == 0 && len(d.DropColumns) == 0 && len(d.AlterColumns) == 0
}

// Subtract computes the changes needed to turn old into t.
func (t *DiffableTable) Subtract(old *DiffableTable) (*TableDelta, error) {
	if !t.Equal(old) {
		other := "<nil>"
		if old != nil {
			other = old.Key().String()
		}
		return nil, fmt.Errorf("%w: %s and %s", ErrIdentityMismatch, t.Key(), other)
	}

	delta := &TableDelta{}

	for _, c := range t.Columns {
		if old.ColumnIndex(c.Name) >= 0 {
			continue
		}
		params, warnings := serializer.Serialize(c.Params)
		delta.Warnings = append(delta.Warnings, prefixWarnings(t, c.Name, warnings)...)
		delta.AddColumns = append(delta.AddColumns, AddColumn{
			TableClassName: t.ClassName,
			TableName:      t.TableName,
			Schema:         t.Schema,
			Column:         schema.Column{Name: c.Name, Kind: c.Kind, Params: params},
		})
	}

	for _, c := range old.Columns {
		if t.ColumnIndex(c.Name) >= 0 {
			continue
		}
		delta.DropColumns = append(delta.DropColumns, DropColumn{
			TableClassName: old.ClassName,
			TableName:      old.TableName,
			Schema:         old.Schema,
			ColumnName:     c.Name,
			DBColumnName:   c.DBColumnName(),
		})
	}

	for _, c := range t.Columns {
		prev, ok := old.Column(c.Name)
		if !ok {
			continue
		}

		newParams, warnings := serializer.Serialize(c.Params)
		delta.Warnings = append(delta.Warnings, prefixWarnings(t, c.Name, warnings)...)
		oldParams, _ := serializer.Serialize(prev.Params)

		// A kind change records both full param sets: keys the old kind had
		// and the new one lacks must disappear on replay, and reverting the
		// type needs every old value.
		if c.Kind != prev.Kind {
			delta.AlterColumns = append(delta.AlterColumns, AlterColumn{
				TableClassName: t.ClassName,
				TableName:      t.TableName,
				Schema:         t.Schema,
				ColumnName:     c.Name,
				DBColumnName:   prev.DBColumnName(),
				Params:         newParams,
				OldParams:      oldParams,
				Kind:           c.Kind,
				OldKind:        prev.Kind,
			})
			continue
		}

		changed := schema.Params{}
		prior := schema.Params{}
		for _, key := range serializer.SortedKeys(newParams) {
			value := newParams[key]
			before, existed := oldParams[key]
			if existed && serializer.Equal(before, value) {
				continue
			}
			changed[key] = value
			prior[key] = before
		}

		if len(changed) == 0 {
			continue
		}

		delta.AlterColumns = append(delta.AlterColumns, AlterColumn{
			TableClassName: t.ClassName,
			TableName:      t.TableName,
			Schema:         t.Schema,
			ColumnName:     c.Name,
			DBColumnName:   prev.DBColumnName(),
			Params:         changed,
			OldParams:      prior,
			Kind:           c.Kind,
			OldKind:        prev.Kind,
		})
	}

	return delta, nil
}

func prefixWarnings(t *DiffableTable, column string, warnings []serializer.Warning) []serializer.Warning {
	for i := range warnings {
		warnings[i].Key = fmt.Sprintf("%s.%s.%s", t.ClassName, column, warnings[i].Key)
	}
	return warnings
}

// Difference returns the tables of a whose identity is absent from b, in the
// order they appear in a.
func Difference(a, b []*DiffableTable) []*DiffableTable {
	seen := make(map[Identity]struct{}, len(b))
	for _, t := range b {
		seen[t.Key()] = struct{}{}
	}
	var out []*DiffableTable
	for _, t := range a {
		if _, ok := seen[t.Key()]; !ok {
			out = append(out, t)
		}
	}
	return out
}
