package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/spf13/afero"

	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Schema is the live schema declared by a .tables file.
type Schema struct {
	Tables []*schema.Table
	Enums  []schema.EnumType
}

// Parse parses and converts a .tables document.
func Parse(filename string, r io.Reader) (*Schema, error) {
	file, err := parser.Parse(filename, r)
	if err != nil {
		return nil, err
	}
	return Convert(file)
}

// ParseString parses a .tables document held in a string.
func ParseString(filename, input string) (*Schema, error) {
	return Parse(filename, strings.NewReader(input))
}

// ParseFile reads and parses path from fs.
func ParseFile(fs afero.Fs, path string) (*Schema, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}

type converter struct {
	enums  map[string]schema.EnumType
	tables map[string]*schema.Table
}

// Convert turns a parse tree into tables. Enums and tables may be referenced
// before they are declared.
func Convert(file *File) (*Schema, error) {
	c := &converter{
		enums:  make(map[string]schema.EnumType),
		tables: make(map[string]*schema.Table),
	}
	out := &Schema{}

	for _, d := range file.Decls {
		if d.Enum == nil {
			continue
		}
		e, err := c.enum(d.Enum)
		if err != nil {
			return nil, err
		}
		out.Enums = append(out.Enums, e)
	}

	var decls []*TableDecl
	for _, d := range file.Decls {
		if d.Table == nil {
			continue
		}
		td := d.Table
		if _, ok := c.tables[td.Class]; ok {
			return nil, errorf(td.Pos, "table %s declared twice", td.Class)
		}
		name := ""
		if td.Name != nil {
			name = *td.Name
		}
		t := schema.NewTable(td.Class, name)
		if td.Schema != nil {
			t.InSchema(*td.Schema)
		}
		c.tables[td.Class] = t
		decls = append(decls, td)
		out.Tables = append(out.Tables, t)
	}

	for i, td := range decls {
		seen := make(map[string]struct{}, len(td.Columns))
		for _, cd := range td.Columns {
			if _, ok := seen[cd.Name]; ok {
				return nil, errorf(cd.Pos, "column %s.%s declared twice", td.Class, cd.Name)
			}
			seen[cd.Name] = struct{}{}
			col, err := c.column(cd)
			if err != nil {
				return nil, err
			}
			out.Tables[i].Columns = append(out.Tables[i].Columns, col)
		}
	}

	return out, nil
}

func (c *converter) enum(d *EnumDecl) (schema.EnumType, error) {
	if _, ok := c.enums[d.Name]; ok {
		return schema.EnumType{}, errorf(d.Pos, "enum %s declared twice", d.Name)
	}
	e := schema.EnumType{Name: d.Name}
	for _, m := range d.Members {
		var value any = m.Name
		if m.Value != nil {
			v, err := c.literal(m.Value)
			if err != nil {
				return schema.EnumType{}, err
			}
			value = v
		}
		e.Members = append(e.Members, schema.EnumMember{Enum: d.Name, Name: m.Name, Value: value})
	}
	c.enums[d.Name] = e
	return e, nil
}

func (c *converter) column(d *ColumnDecl) (schema.Column, error) {
	kind := schema.Kind(d.Kind)
	if !kind.Valid() {
		return schema.Column{}, errorf(d.Pos, "column %s: unknown kind %s", d.Name, d.Kind)
	}

	col := schema.NewColumn(d.Name, kind)
	for _, arg := range d.Args {
		v, err := c.param(arg)
		if err != nil {
			return schema.Column{}, err
		}
		col.Params[arg.Key] = v
	}

	if kind == schema.ForeignKey {
		if _, ok := col.Params[schema.ParamReferences].(schema.TableRef); !ok {
			return schema.Column{}, errorf(d.Pos, "column %s: ForeignKey requires references", d.Name)
		}
	}
	return col, nil
}

// param converts an argument, giving the keys with structured values their
// meaning.
func (c *converter) param(arg *Arg) (any, error) {
	v := arg.Value
	switch arg.Key {
	case schema.ParamDigits:
		if len(v.Path) == 1 && v.Path[0] == "null" {
			return nil, nil
		}
		if len(v.List) != 2 {
			return nil, errorf(arg.Pos, "digits must be [precision, scale]")
		}
		p, err := c.integer(v.List[0])
		if err != nil {
			return nil, err
		}
		s, err := c.integer(v.List[1])
		if err != nil {
			return nil, err
		}
		return schema.Digits{Precision: p, Scale: s}, nil

	case schema.ParamChoices:
		if len(v.Path) != 1 {
			return nil, errorf(arg.Pos, "choices must name an enum")
		}
		e, ok := c.enums[v.Path[0]]
		if !ok {
			return nil, errorf(arg.Pos, "unknown enum %s", v.Path[0])
		}
		return e, nil

	case schema.ParamReferences:
		if len(v.Path) != 1 {
			return nil, errorf(arg.Pos, "references must name a table")
		}
		t, ok := c.tables[v.Path[0]]
		if !ok {
			return nil, errorf(arg.Pos, "unknown table %s", v.Path[0])
		}
		return t.Ref(), nil

	case schema.ParamBaseColumn:
		if len(v.Path) != 1 || !schema.Kind(v.Path[0]).Valid() {
			return nil, errorf(arg.Pos, "base_column must name a column kind")
		}
		return v.Path[0], nil
	}
	return c.literal(v)
}

func (c *converter) literal(v *Value) (any, error) {
	switch {
	case v.String != nil:
		return *v.String, nil

	case v.Number != nil:
		if strings.Contains(*v.Number, ".") {
			f, err := strconv.ParseFloat(*v.Number, 64)
			if err != nil {
				return nil, errorf(v.Pos, "invalid number %s", *v.Number)
			}
			return f, nil
		}
		n, err := strconv.Atoi(*v.Number)
		if err != nil {
			return nil, errorf(v.Pos, "invalid number %s", *v.Number)
		}
		return n, nil

	case v.Call != nil:
		return c.call(v.Call)

	case v.Path != nil:
		return c.path(v)

	case v.Empty:
		return []any{}, nil

	case v.List != nil:
		out := make([]any, 0, len(v.List))
		for _, e := range v.List {
			x, err := c.literal(e)
			if err != nil {
				return nil, err
			}
			out = append(out, x)
		}
		return out, nil
	}
	return nil, errorf(v.Pos, "empty value")
}

func (c *converter) path(v *Value) (any, error) {
	if len(v.Path) == 1 {
		switch v.Path[0] {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		if e, ok := c.enums[v.Path[0]]; ok {
			return e, nil
		}
		if t, ok := c.tables[v.Path[0]]; ok {
			return t.Ref(), nil
		}
		return nil, errorf(v.Pos, "unknown identifier %s", v.Path[0])
	}
	if len(v.Path) == 2 {
		e, ok := c.enums[v.Path[0]]
		if !ok {
			return nil, errorf(v.Pos, "unknown enum %s", v.Path[0])
		}
		m, ok := e.Member(v.Path[1])
		if !ok {
			return nil, errorf(v.Pos, "enum %s has no member %s", v.Path[0], v.Path[1])
		}
		return m, nil
	}
	return nil, errorf(v.Pos, "invalid reference %s", strings.Join(v.Path, "."))
}

func (c *converter) call(call *Call) (any, error) {
	noArg := func(d schema.Default) (any, error) {
		if call.Arg != nil {
			return nil, errorf(call.Pos, "%s() takes no argument", call.Name)
		}
		return d, nil
	}

	switch call.Name {
	case "now":
		return noArg(schema.Now())
	case "current_date":
		return noArg(schema.Default{Kind: schema.DefaultCurrentDate})
	case "current_time":
		return noArg(schema.Default{Kind: schema.DefaultCurrentTime})
	case "uuid4":
		return noArg(schema.Default{Kind: schema.DefaultUUID4})
	case "null":
		return noArg(schema.Default{Kind: schema.DefaultNull})
	case "offset":
		if call.Arg == nil || call.Arg.String == nil {
			return nil, errorf(call.Pos, `offset() takes a duration string such as "90m"`)
		}
		d, err := time.ParseDuration(*call.Arg.String)
		if err != nil {
			return nil, errorf(call.Pos, "offset: %v", err)
		}
		return schema.Offset(d), nil
	case "value":
		if call.Arg == nil {
			return nil, errorf(call.Pos, "value() takes a literal")
		}
		x, err := c.literal(call.Arg)
		if err != nil {
			return nil, err
		}
		return schema.Default{Kind: schema.DefaultValue, Payload: x}, nil
	}
	return nil, errorf(call.Pos, "unknown function %s()", call.Name)
}

func (c *converter) integer(v *Value) (int, error) {
	if v.Number == nil {
		return 0, errorf(v.Pos, "expected an integer")
	}
	n, err := strconv.Atoi(*v.Number)
	if err != nil {
		return 0, errorf(v.Pos, "expected an integer, got %s", *v.Number)
	}
	return n, nil
}

func errorf(pos lexer.Position, format string, args ...any) error {
	return fmt.Errorf("%s: %s", pos, fmt.Sprintf(format, args...))
}
