// Package differ compares live table definitions against the schema
// reconstructed from migration history and emits the operations that
// reconcile them.
//
// Structure alone cannot tell an add+drop pair from a rename. Every such
// pair is put to a Decider, which keeps the differ pure and lets the caller
// choose between an interactive prompt and a fixed answer.
package differ

import (
	"fmt"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Decider answers "was oldName renamed to newName?". Tables are offered by
// class name, columns as "Class.column".
type Decider func(oldName, newName string) bool

// Never is a Decider that rejects every rename.
func Never(string, string) bool { return false }

// Diff computes the operations that turn snapshot into live. A nil decide
// rejects every rename.
func Diff(live, snapshot []*domain.DiffableTable, decide Decider) (*Result, error) {
	if decide == nil {
		decide = Never
	}
	if err := unique(live, "live"); err != nil {
		return nil, err
	}
	if err := unique(snapshot, "snapshot"); err != nil {
		return nil, err
	}

	added := domain.Difference(live, snapshot)
	dropped := domain.Difference(snapshot, live)

	result := &Result{}

	// renamed maps the class name of a live table to the snapshot table it
	// was renamed from.
	renamed := make(map[string]*domain.DiffableTable)
	taken := make(map[string]struct{})
	var plainDropped []*domain.DiffableTable
	for _, old := range dropped {
		matched := false
		for _, candidate := range added {
			if _, ok := taken[candidate.ClassName]; ok {
				continue
			}
			// RENAME TO cannot move a table between schemas, so such a
			// change is a drop and a create.
			if old.Schema != candidate.Schema || !shareColumn(old, candidate) {
				continue
			}
			if !decide(old.ClassName, candidate.ClassName) {
				continue
			}
			taken[candidate.ClassName] = struct{}{}
			renamed[candidate.ClassName] = old
			result.RenameTables = append(result.RenameTables, domain.RenameTable{
				OldClassName: old.ClassName,
				OldTableName: old.TableName,
				NewClassName: candidate.ClassName,
				NewTableName: candidate.TableName,
				Schema:       candidate.Schema,
			})
			matched = true
			break
		}
		if !matched {
			plainDropped = append(plainDropped, old)
		}
	}

	for _, t := range added {
		if _, ok := taken[t.ClassName]; ok {
			continue
		}
		result.CreateTables = append(result.CreateTables, domain.AddTable{
			ClassName: t.ClassName,
			TableName: t.TableName,
			Schema:    t.Schema,
		})
		for _, c := range t.Columns {
			params, warnings := serializer.Serialize(c.Params)
			result.Warnings = append(result.Warnings, prefix(t.ClassName, c.Name, warnings)...)
			result.NewTableColumns = append(result.NewTableColumns, domain.AddColumn{
				TableClassName: t.ClassName,
				TableName:      t.TableName,
				Schema:         t.Schema,
				Column:         schema.Column{Name: c.Name, Kind: c.Kind, Params: params},
			})
		}
	}

	for _, t := range plainDropped {
		result.DropTables = append(result.DropTables, domain.DropTable{
			ClassName: t.ClassName,
			TableName: t.TableName,
			Schema:    t.Schema,
		})
	}

	for _, t := range live {
		var old *domain.DiffableTable
		if prev, ok := renamed[t.ClassName]; ok {
			old = prev.Clone()
			old.ClassName = t.ClassName
			old.TableName = t.TableName
		} else if prev := find(snapshot, t.Key()); prev != nil {
			old = prev
		} else {
			continue
		}
		if err := diffColumns(result, t, old, decide); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// diffColumns adds the column operations that turn old into t. Both tables
// share t's identity.
func diffColumns(result *Result, t, old *domain.DiffableTable, decide Decider) error {
	delta, err := t.Subtract(old)
	if err != nil {
		return err
	}
	result.Warnings = append(result.Warnings, delta.Warnings...)

	used := make(map[string]struct{})
	var adds []domain.AddColumn
	for _, add := range delta.AddColumns {
		var match *domain.DropColumn
		for i := range delta.DropColumns {
			drop := &delta.DropColumns[i]
			if _, ok := used[drop.ColumnName]; ok {
				continue
			}
			if decide(t.ClassName+"."+drop.ColumnName, t.ClassName+"."+add.Column.Name) {
				match = drop
				break
			}
		}
		if match == nil {
			adds = append(adds, add)
			continue
		}
		used[match.ColumnName] = struct{}{}

		result.RenameColumns = append(result.RenameColumns, domain.RenameColumn{
			TableClassName:  t.ClassName,
			TableName:       t.TableName,
			Schema:          t.Schema,
			OldColumnName:   match.ColumnName,
			NewColumnName:   add.Column.Name,
			OldDBColumnName: match.DBColumnName,
			NewDBColumnName: add.Column.DBColumnName(),
		})

		alter, err := renamedColumnAlter(t, old, match.ColumnName, add.Column.Name)
		if err != nil {
			return err
		}
		if alter != nil {
			result.AlterColumns = append(result.AlterColumns, *alter)
		}
	}

	for _, drop := range delta.DropColumns {
		if _, ok := used[drop.ColumnName]; ok {
			continue
		}
		result.DropColumns = append(result.DropColumns, drop)
	}
	result.AddColumns = append(result.AddColumns, adds...)
	result.AlterColumns = append(result.AlterColumns, delta.AlterColumns...)
	return nil
}

// renamedColumnAlter compares a renamed column with its previous definition.
// The rename itself carries the database name, so db_column_name is left out.
func renamedColumnAlter(t, old *domain.DiffableTable, oldName, newName string) (*domain.AlterColumn, error) {
	current, _ := t.Column(newName)
	previous, _ := old.Column(oldName)
	previous = previous.Clone()
	previous.Name = newName

	a := &domain.DiffableTable{ClassName: t.ClassName, TableName: t.TableName, Schema: t.Schema, Columns: []schema.Column{current}}
	b := &domain.DiffableTable{ClassName: t.ClassName, TableName: t.TableName, Schema: t.Schema, Columns: []schema.Column{previous}}
	delta, err := a.Subtract(b)
	if err != nil {
		return nil, err
	}
	if len(delta.AlterColumns) == 0 {
		return nil, nil
	}

	alter := delta.AlterColumns[0]
	delete(alter.Params, schema.ParamDBColumnName)
	delete(alter.OldParams, schema.ParamDBColumnName)
	if len(alter.Params) == 0 && !alter.KindChanged() {
		return nil, nil
	}
	alter.DBColumnName = current.DBColumnName()
	return &alter, nil
}

func shareColumn(a, b *domain.DiffableTable) bool {
	names := b.ColumnNames()
	for _, c := range a.Columns {
		if _, ok := names[c.Name]; ok {
			return true
		}
	}
	return false
}

func find(tables []*domain.DiffableTable, key domain.Identity) *domain.DiffableTable {
	for _, t := range tables {
		if t.Key() == key {
			return t
		}
	}
	return nil
}

func unique(tables []*domain.DiffableTable, side string) error {
	seen := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		if t == nil {
			return fmt.Errorf("%s schema contains a nil table", side)
		}
		if _, ok := seen[t.ClassName]; ok {
			return fmt.Errorf("%s schema declares table class %s twice", side, t.ClassName)
		}
		seen[t.ClassName] = struct{}{}
	}
	return nil
}

func prefix(className, column string, warnings []serializer.Warning) []serializer.Warning {
	for i := range warnings {
		warnings[i].Key = className + "." + column + "." + warnings[i].Key
	}
	return warnings
}
