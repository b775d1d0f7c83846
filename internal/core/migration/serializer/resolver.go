package serializer

import "github.com/satishbabariya/migrant/internal/core/schema"

// Resolver holds the enums and tables serialized references are resolved
// against. A resolver is built for a single generation or run.
type Resolver struct {
	enums  map[string]schema.EnumType
	tables map[string]schema.TableRef
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		enums:  make(map[string]schema.EnumType),
		tables: make(map[string]schema.TableRef),
	}
}

// RegisterEnum makes e resolvable by name.
func (r *Resolver) RegisterEnum(e schema.EnumType) {
	r.enums[e.Name] = e
}

// RegisterTable makes ref resolvable by class name.
func (r *Resolver) RegisterTable(ref schema.TableRef) {
	r.tables[ref.ClassName] = ref
}

// RegisterTables registers every table and every enum used by their columns.
func (r *Resolver) RegisterTables(tables ...*schema.Table) {
	for _, t := range tables {
		r.RegisterTable(t.Ref())
		for _, c := range t.Columns {
			if e, ok := c.Params[schema.ParamChoices].(schema.EnumType); ok {
				r.RegisterEnum(e)
			}
		}
	}
}

// Enum looks up an enum by name.
func (r *Resolver) Enum(name string) (schema.EnumType, bool) {
	e, ok := r.enums[name]
	return e, ok
}

// Table looks up a table by class name.
func (r *Resolver) Table(className string) (schema.TableRef, bool) {
	t, ok := r.tables[className]
	return t, ok
}
