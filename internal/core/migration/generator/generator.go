// Package generator renders migration units as Go source.
package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// ImportPath is the package generated units import.
const ImportPath = "github.com/satishbabariya/migrant/pkg/migrant"

// Unit describes one migration unit.
type Unit struct {
	Package     string
	ModuleID    string
	ID          string
	Version     string
	Description string
	Operations  []domain.Operation
	// Blank units get raw forwards and backwards steps to fill in instead
	// of operations.
	Blank bool
}

// Render returns the formatted source of u.
func Render(u Unit) ([]byte, error) {
	if u.Package == "" {
		return nil, fmt.Errorf("unit %s: package name is required", u.ID)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("unit: id is required")
	}

	calls := make([]string, 0, len(u.Operations))
	for _, op := range u.Operations {
		call, err := Call(op)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		calls = append(calls, call)
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "unit", struct {
		Unit
		Import string
		Calls  []string
	}{u, ImportPath, calls})
	if err != nil {
		return nil, fmt.Errorf("failed to render unit %s: %w", u.ID, err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format unit %s: %w", u.ID, err)
	}
	return src, nil
}

// RenderSet returns the source of the file declaring a module's migration
// set.
func RenderSet(pkg, moduleID string) ([]byte, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "set", map[string]string{
		"Package":  pkg,
		"ModuleID": moduleID,
		"Import":   ImportPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render migration set: %w", err)
	}
	return format.Source(buf.Bytes())
}

// Call renders op as a manager method call.
func Call(op domain.Operation) (string, error) {
	q := serializer.Qualifier
	switch op := op.(type) {
	case domain.AddTable:
		fields := tableFields(op.ClassName, op.TableName, op.Schema)
		if len(op.Columns) > 0 {
			cols := make([]string, len(op.Columns))
			for i, c := range op.Columns {
				cols[i] = columnElement(c)
			}
			fields = append(fields, fmt.Sprintf("Columns: []%s.Column{%s}", q, strings.Join(cols, ", ")))
		}
		return call("AddTable", fields), nil

	case domain.DropTable:
		return call("DropTable", tableFields(op.ClassName, op.TableName, op.Schema)), nil

	case domain.RenameTable:
		return call("RenameTable", compact(
			field("OldClassName", op.OldClassName),
			field("OldTableName", op.OldTableName),
			field("NewClassName", op.NewClassName),
			field("NewTableName", op.NewTableName),
			field("Schema", op.Schema),
		)), nil

	case domain.AddColumn:
		return call("AddColumn", append(columnOwner(op.TableClassName, op.TableName, op.Schema),
			"Column: "+columnLiteral(op.Column))), nil

	case domain.DropColumn:
		return call("DropColumn", append(columnOwner(op.TableClassName, op.TableName, op.Schema), compact(
			field("ColumnName", op.ColumnName),
			field("DBColumnName", op.DBColumnName),
		)...)), nil

	case domain.RenameColumn:
		return call("RenameColumn", append(columnOwner(op.TableClassName, op.TableName, op.Schema), compact(
			field("OldColumnName", op.OldColumnName),
			field("NewColumnName", op.NewColumnName),
			field("OldDBColumnName", op.OldDBColumnName),
			field("NewDBColumnName", op.NewDBColumnName),
		)...)), nil

	case domain.AlterColumn:
		fields := append(columnOwner(op.TableClassName, op.TableName, op.Schema), compact(
			field("ColumnName", op.ColumnName),
			field("DBColumnName", op.DBColumnName),
		)...)
		fields = append(fields,
			"Params: "+serializer.ParamsLiteral(op.Params),
			"OldParams: "+serializer.ParamsLiteral(op.OldParams),
		)
		if op.Kind != "" {
			fields = append(fields, "Kind: "+kindLiteral(op.Kind))
		}
		if op.OldKind != "" {
			fields = append(fields, "OldKind: "+kindLiteral(op.OldKind))
		}
		return call("AlterColumn", fields), nil
	}
	return "", fmt.Errorf("cannot render operation of type %T", op)
}

func call(method string, fields []string) string {
	return fmt.Sprintf("m.%s(%s.%s{%s})", method, serializer.Qualifier, method, strings.Join(fields, ", "))
}

func field(name, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("%s: %q", name, value)
}

func compact(fields ...string) []string {
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func tableFields(className, tableName, schemaName string) []string {
	return compact(field("ClassName", className), field("TableName", tableName), field("Schema", schemaName))
}

func columnOwner(className, tableName, schemaName string) []string {
	return compact(field("TableClassName", className), field("TableName", tableName), field("Schema", schemaName))
}

func columnLiteral(c schema.Column) string {
	return serializer.Qualifier + ".Column" + columnElement(c)
}

// columnElement renders a column as an element of a []Column literal, where
// the type is implied.
func columnElement(c schema.Column) string {
	return fmt.Sprintf("{Name: %q, Kind: %s, Params: %s}", c.Name, kindLiteral(c.Kind), serializer.ParamsLiteral(c.Params))
}

func kindLiteral(k schema.Kind) string {
	if k.Valid() {
		return serializer.Qualifier + "." + string(k)
	}
	return fmt.Sprintf("%s.Kind(%q)", serializer.Qualifier, string(k))
}

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
}).Parse(unitTemplate + setTemplate))

const unitTemplate = `{{define "unit"}}
{{- if .Blank}}// Migration created by migrant {{.Version}}.{{else}}// Code generated by migrant {{.Version}}. DO NOT EDIT.{{end}}

package {{.Package}}

import (
{{- if .Blank}}
	"context"
{{end}}
	{{quote .Import}}
)

func init() {
	Set.Register(migrant.Migration{
		ID:          {{quote .ID}},
		Version:     {{quote .Version}},
		Description: {{quote .Description}},
		Build: func(m *migrant.Manager) error {
{{- if .Blank}}
			m.AddRawForwards(func(ctx context.Context, tx migrant.Executor) error {
				return tx.Exec(ctx, "")
			})
			m.AddRawBackwards(func(ctx context.Context, tx migrant.Executor) error {
				return tx.Exec(ctx, "")
			})
{{- end}}
{{- range .Calls}}
			{{.}}
{{- end}}
			return nil
		},
	})
}
{{end}}`

const setTemplate = `{{define "set"}}// Package {{.Package}} holds the migrations of the {{.ModuleID}} module.
package {{.Package}}

import {{quote .Import}}

// Set collects the migrations registered by the files of this package.
var Set = migrant.NewMigrationSet({{quote .ModuleID}})
{{end}}`
