package differ

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/manager"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
)

// Result holds the operations of one diff, grouped in emission order.
type Result struct {
	CreateTables    []domain.AddTable
	DropTables      []domain.DropTable
	RenameTables    []domain.RenameTable
	NewTableColumns []domain.AddColumn
	DropColumns     []domain.DropColumn
	AddColumns      []domain.AddColumn
	RenameColumns   []domain.RenameColumn
	AlterColumns    []domain.AlterColumn
	Warnings        []serializer.Warning
}

// Category is the number of operations of one kind.
type Category struct {
	Name  string
	Count int
}

// Empty reports whether the diff found no changes.
func (r *Result) Empty() bool {
	return r.Count() == 0
}

// Count returns the total number of operations.
func (r *Result) Count() int {
	n := 0
	for _, c := range r.Summary() {
		n += c.Count
	}
	return n
}

// Summary returns the operation count of every category, in emission order.
func (r *Result) Summary() []Category {
	return []Category{
		{Name: "create tables", Count: len(r.CreateTables)},
		{Name: "drop tables", Count: len(r.DropTables)},
		{Name: "rename tables", Count: len(r.RenameTables)},
		{Name: "new table columns", Count: len(r.NewTableColumns)},
		{Name: "drop columns", Count: len(r.DropColumns)},
		{Name: "add columns", Count: len(r.AddColumns)},
		{Name: "rename columns", Count: len(r.RenameColumns)},
		{Name: "alter columns", Count: len(r.AlterColumns)},
	}
}

// String renders the non-empty categories, e.g. "1 drop tables, 2 add columns".
func (r *Result) String() string {
	var parts []string
	for _, c := range r.Summary() {
		if c.Count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.Count, c.Name))
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// Operations returns every operation in emission order.
func (r *Result) Operations() []domain.Operation {
	ops := make([]domain.Operation, 0, r.Count())
	for _, op := range r.CreateTables {
		ops = append(ops, op)
	}
	for _, op := range r.DropTables {
		ops = append(ops, op)
	}
	for _, op := range r.RenameTables {
		ops = append(ops, op)
	}
	for _, op := range r.NewTableColumns {
		ops = append(ops, op)
	}
	for _, op := range r.DropColumns {
		ops = append(ops, op)
	}
	for _, op := range r.AddColumns {
		ops = append(ops, op)
	}
	for _, op := range r.RenameColumns {
		ops = append(ops, op)
	}
	for _, op := range r.AlterColumns {
		ops = append(ops, op)
	}
	return ops
}

// Apply queues the operations on m in emission order.
func (r *Result) Apply(m *manager.Manager) {
	for _, op := range r.Operations() {
		switch op := op.(type) {
		case domain.AddTable:
			m.AddTable(op)
		case domain.DropTable:
			m.DropTable(op)
		case domain.RenameTable:
			m.RenameTable(op)
		case domain.AddColumn:
			m.AddColumn(op)
		case domain.DropColumn:
			m.DropColumn(op)
		case domain.RenameColumn:
			m.RenameColumn(op)
		case domain.AlterColumn:
			m.AlterColumn(op)
		}
	}
}
