package ddl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// builder implements Dialect for the three supported engines. Syntax that
// differs between engines is switched on name.
type builder struct {
	name  string
	quote string
	types map[schema.Kind]string
}

// NewPostgres returns the PostgreSQL dialect.
func NewPostgres() Dialect {
	return &builder{name: PostgreSQL, quote: `"`, types: map[schema.Kind]string{
		schema.Varchar:         "VARCHAR",
		schema.Text:            "TEXT",
		schema.Integer:         "INTEGER",
		schema.BigInt:          "BIGINT",
		schema.SmallInt:        "SMALLINT",
		schema.Serial:          "SERIAL",
		schema.BigSerial:       "BIGSERIAL",
		schema.Boolean:         "BOOLEAN",
		schema.Numeric:         "NUMERIC",
		schema.Real:            "REAL",
		schema.DoublePrecision: "DOUBLE PRECISION",
		schema.Timestamp:       "TIMESTAMP",
		schema.Timestamptz:     "TIMESTAMPTZ",
		schema.Date:            "DATE",
		schema.Time:            "TIME",
		schema.Interval:        "INTERVAL",
		schema.UUID:            "UUID",
		schema.JSON:            "JSON",
		schema.JSONB:           "JSONB",
		schema.Bytea:           "BYTEA",
		schema.ForeignKey:      "INTEGER",
	}}
}

// NewMySQL returns the MySQL dialect.
func NewMySQL() Dialect {
	return &builder{name: MySQL, quote: "`", types: map[schema.Kind]string{
		schema.Varchar:         "VARCHAR",
		schema.Text:            "TEXT",
		schema.Integer:         "INT",
		schema.BigInt:          "BIGINT",
		schema.SmallInt:        "SMALLINT",
		schema.Serial:          "INT AUTO_INCREMENT",
		schema.BigSerial:       "BIGINT AUTO_INCREMENT",
		schema.Boolean:         "BOOLEAN",
		schema.Numeric:         "DECIMAL",
		schema.Real:            "FLOAT",
		schema.DoublePrecision: "DOUBLE",
		schema.Timestamp:       "DATETIME(6)",
		schema.Timestamptz:     "TIMESTAMP(6)",
		schema.Date:            "DATE",
		schema.Time:            "TIME(6)",
		schema.Interval:        "BIGINT",
		schema.UUID:            "CHAR(36)",
		schema.JSON:            "JSON",
		schema.JSONB:           "JSON",
		schema.Bytea:           "LONGBLOB",
		schema.ForeignKey:      "INT",
		schema.Array:           "JSON",
	}}
}

// NewSQLite returns the SQLite dialect.
func NewSQLite() Dialect {
	return &builder{name: SQLite, quote: `"`, types: map[schema.Kind]string{
		schema.Varchar:         "VARCHAR",
		schema.Text:            "TEXT",
		schema.Integer:         "INTEGER",
		schema.BigInt:          "BIGINT",
		schema.SmallInt:        "SMALLINT",
		schema.Serial:          "INTEGER",
		schema.BigSerial:       "INTEGER",
		schema.Boolean:         "BOOLEAN",
		schema.Numeric:         "NUMERIC",
		schema.Real:            "REAL",
		schema.DoublePrecision: "DOUBLE PRECISION",
		schema.Timestamp:       "TIMESTAMP",
		schema.Timestamptz:     "TIMESTAMP",
		schema.Date:            "DATE",
		schema.Time:            "TIME",
		schema.Interval:        "REAL",
		schema.UUID:            "UUID",
		schema.JSON:            "JSON",
		schema.JSONB:           "JSONB",
		schema.Bytea:           "BLOB",
		schema.ForeignKey:      "INTEGER",
		schema.Array:           "TEXT",
	}}
}

func (b *builder) Name() string { return b.name }

func (b *builder) ident(name string) string {
	return b.quote + strings.ReplaceAll(name, b.quote, b.quote+b.quote) + b.quote
}

func (b *builder) table(t domain.TableHandle) string {
	if t.Schema == "" {
		return b.ident(t.TableName)
	}
	return b.ident(t.Schema) + "." + b.ident(t.TableName)
}

// columnType returns the engine type of a column with its params applied.
func (b *builder) columnType(c schema.Column) (string, error) {
	switch c.Kind {
	case schema.Varchar:
		if n, ok := ToInt(c.Params[schema.ParamLength]); ok {
			return fmt.Sprintf("VARCHAR(%d)", n), nil
		}
		return "VARCHAR(255)", nil
	case schema.Numeric:
		if d, ok := digitsOf(c.Params[schema.ParamDigits]); ok {
			return fmt.Sprintf("%s(%d, %d)", b.types[schema.Numeric], d.Precision, d.Scale), nil
		}
		return b.types[schema.Numeric], nil
	case schema.Array:
		if b.name == PostgreSQL {
			base := schema.Kind(fmt.Sprint(c.Params[schema.ParamBaseColumn]))
			inner, err := b.columnType(schema.NewColumn(c.Name, base))
			if err != nil {
				return "", err
			}
			return inner + "[]", nil
		}
	}

	t, ok := b.types[c.Kind]
	if !ok {
		return "", fmt.Errorf("%s: no type for kind %s: %w", b.name, c.Kind, domain.ErrUnknownKind)
	}
	return t, nil
}

func (b *builder) columnDefinition(c schema.Column) (string, error) {
	typ, err := b.columnType(c)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(b.ident(c.DBColumnName()))
	sb.WriteString(" ")
	sb.WriteString(typ)

	if c.IsPrimaryKey() {
		sb.WriteString(" PRIMARY KEY")
		if b.name == SQLite && (c.Kind == schema.Serial || c.Kind == schema.BigSerial) {
			sb.WriteString(" AUTOINCREMENT")
		}
		return sb.String(), nil
	}

	if null, _ := c.Params[schema.ParamNull].(bool); !null {
		sb.WriteString(" NOT NULL")
	}
	if unique, _ := c.Params[schema.ParamUnique].(bool); unique {
		sb.WriteString(" UNIQUE")
	}
	if def, ok := c.Params[schema.ParamDefault]; ok && def != nil {
		if lit, err := b.defaultLiteral(c.Kind, def); err == nil && lit != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(lit)
		}
	}
	if c.Kind == schema.ForeignKey {
		ref, ok := c.Params[schema.ParamReferences].(schema.TableRef)
		if !ok {
			return "", fmt.Errorf("column %s: foreign key without a resolved reference: %w", c.Name, domain.ErrUnresolvedReference)
		}
		fmt.Fprintf(&sb, " REFERENCES %s (%s)", b.ident(ref.TableName), b.ident(schema.PrimaryKeyName))
		if action, ok := c.Params[schema.ParamOnDelete].(string); ok && action != "" {
			sb.WriteString(" ON DELETE " + action)
		}
		if action, ok := c.Params[schema.ParamOnUpdate].(string); ok && action != "" {
			sb.WriteString(" ON UPDATE " + action)
		}
	}
	return sb.String(), nil
}

// defaultLiteral renders a column default. An empty result with a nil error
// means the engine has no way to express the default and it is left out.
func (b *builder) defaultLiteral(kind schema.Kind, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case schema.Default:
		switch t.Kind {
		case schema.DefaultNull:
			return "NULL", nil
		case schema.DefaultValue:
			return b.defaultLiteral(kind, t.Payload)
		case schema.DefaultEnum:
			return b.defaultLiteral(kind, t.Payload)
		case schema.DefaultNow:
			if b.name == MySQL {
				return "CURRENT_TIMESTAMP(6)", nil
			}
			return "CURRENT_TIMESTAMP", nil
		case schema.DefaultCurrentDate:
			if b.name == MySQL {
				return "(CURRENT_DATE)", nil
			}
			return "CURRENT_DATE", nil
		case schema.DefaultCurrentTime:
			if b.name == MySQL {
				return "(CURRENT_TIME)", nil
			}
			return "CURRENT_TIME", nil
		case schema.DefaultUUID4:
			switch b.name {
			case PostgreSQL:
				return "gen_random_uuid()", nil
			case MySQL:
				return "(UUID())", nil
			}
			return "", nil
		case schema.DefaultTimestampOffset:
			d, ok := t.Payload.(time.Duration)
			if !ok || b.name != PostgreSQL {
				return "", nil
			}
			return fmt.Sprintf("CURRENT_TIMESTAMP + INTERVAL '%d microseconds'", d.Microseconds()), nil
		}
		return "", fmt.Errorf("unknown default kind %q", t.Kind)
	case schema.EnumMember:
		return b.defaultLiteral(kind, t.Value)
	case bool:
		if b.name == SQLite {
			if t {
				return "1", nil
			}
			return "0", nil
		}
		return strings.ToUpper(strconv.FormatBool(t)), nil
	case string:
		if b.name == MySQL && (kind == schema.Text || kind == schema.JSON || kind == schema.JSONB) {
			return "", nil
		}
		return quoteString(t), nil
	case time.Time:
		return quoteString(t.UTC().Format("2006-01-02 15:04:05.999999")), nil
	case time.Duration:
		if b.name == PostgreSQL {
			return fmt.Sprintf("INTERVAL '%d microseconds'", t.Microseconds()), nil
		}
		return strconv.FormatFloat(t.Seconds(), 'f', -1, 64), nil
	case []any, []string, map[string]any:
		if b.name == PostgreSQL && kind == schema.Array {
			return "'{}'", nil
		}
		return "", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t), nil
	case float32, float64:
		return fmt.Sprint(t), nil
	}
	return "", fmt.Errorf("cannot render default of type %T", v)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *builder) CreateTable(t domain.TableHandle, columns []schema.Column) (string, error) {
	defs := make([]string, 0, len(columns)+1)
	hasPK := false
	for _, c := range columns {
		if c.IsPrimaryKey() {
			hasPK = true
		}
	}
	if !hasPK {
		def, err := b.columnDefinition(schema.NewColumn(schema.PrimaryKeyName, schema.Serial, schema.PrimaryKey()))
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	for _, c := range columns {
		def, err := b.columnDefinition(c)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", b.table(t), strings.Join(defs, ", ")), nil
}

func (b *builder) DropTable(t domain.TableHandle) (string, error) {
	if b.name == PostgreSQL {
		return fmt.Sprintf("DROP TABLE %s CASCADE", b.table(t)), nil
	}
	return fmt.Sprintf("DROP TABLE %s", b.table(t)), nil
}

func (b *builder) RenameTable(t domain.TableHandle, newName string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", b.table(t), b.ident(newName)), nil
}

func (b *builder) AddColumn(t domain.TableHandle, column schema.Column) (string, error) {
	def, err := b.columnDefinition(column)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", b.table(t), def), nil
}

func (b *builder) DropColumn(c domain.ColumnHandle) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", b.table(c.Table), b.ident(c.ColumnName)), nil
}

func (b *builder) RenameColumn(c domain.ColumnHandle, newName string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", b.table(c.Table), b.ident(c.ColumnName), b.ident(newName)), nil
}

func (b *builder) SetColumnType(c domain.ColumnHandle, column schema.Column) (string, error) {
	typ, err := b.columnType(column)
	if err != nil {
		return "", err
	}
	switch b.name {
	case PostgreSQL:
		col := b.ident(c.ColumnName)
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s", b.table(c.Table), col, typ, col, typ), nil
	case MySQL:
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s", b.table(c.Table), b.ident(c.ColumnName), typ), nil
	}
	return unsupported(b, "set column type")
}

func (b *builder) SetNull(c domain.ColumnHandle, null bool) (string, error) {
	if b.name != PostgreSQL {
		return unsupported(b, "set null")
	}
	action := "SET NOT NULL"
	if null {
		action = "DROP NOT NULL"
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", b.table(c.Table), b.ident(c.ColumnName), action), nil
}

func (b *builder) SetLength(c domain.ColumnHandle, length int) (string, error) {
	switch b.name {
	case PostgreSQL:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE VARCHAR(%d)", b.table(c.Table), b.ident(c.ColumnName), length), nil
	case MySQL:
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s VARCHAR(%d)", b.table(c.Table), b.ident(c.ColumnName), length), nil
	}
	return unsupported(b, "set length")
}

func (b *builder) SetUnique(c domain.ColumnHandle, unique bool) (string, error) {
	name := b.ident(UniqueName(c))
	switch b.name {
	case PostgreSQL:
		if unique {
			return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", b.table(c.Table), name, b.ident(c.ColumnName)), nil
		}
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", b.table(c.Table), name), nil
	case MySQL:
		if unique {
			return fmt.Sprintf("ALTER TABLE %s ADD UNIQUE INDEX %s (%s)", b.table(c.Table), name, b.ident(c.ColumnName)), nil
		}
		return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", b.table(c.Table), name), nil
	}
	if unique {
		return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", name, b.table(c.Table), b.ident(c.ColumnName)), nil
	}
	return fmt.Sprintf("DROP INDEX %s", name), nil
}

func (b *builder) SetDigits(c domain.ColumnHandle, digits *schema.Digits) (string, error) {
	typ := b.types[schema.Numeric]
	if digits != nil {
		typ = fmt.Sprintf("%s(%d, %d)", typ, digits.Precision, digits.Scale)
	}
	switch b.name {
	case PostgreSQL:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", b.table(c.Table), b.ident(c.ColumnName), typ), nil
	case MySQL:
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s", b.table(c.Table), b.ident(c.ColumnName), typ), nil
	}
	return unsupported(b, "set digits")
}

func (b *builder) SetDefault(c domain.ColumnHandle, kind schema.Kind, value any) (string, error) {
	if b.name == SQLite {
		return unsupported(b, "set default")
	}
	lit, err := b.defaultLiteral(kind, value)
	if err != nil {
		return "", err
	}
	if lit == "" {
		return unsupported(b, "set default")
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", b.table(c.Table), b.ident(c.ColumnName), lit), nil
}

func (b *builder) DropDefault(c domain.ColumnHandle) (string, error) {
	if b.name == SQLite {
		return unsupported(b, "drop default")
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", b.table(c.Table), b.ident(c.ColumnName)), nil
}

func (b *builder) CreateIndex(c domain.ColumnHandle) (string, error) {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", b.ident(IndexName(c)), b.table(c.Table), b.ident(c.ColumnName)), nil
}

func (b *builder) DropIndex(c domain.ColumnHandle) (string, error) {
	name := b.ident(IndexName(c))
	switch b.name {
	case MySQL:
		return fmt.Sprintf("DROP INDEX %s ON %s", name, b.table(c.Table)), nil
	case PostgreSQL:
		if c.Table.Schema != "" {
			return fmt.Sprintf("DROP INDEX %s.%s", b.ident(c.Table.Schema), name), nil
		}
	}
	return fmt.Sprintf("DROP INDEX %s", name), nil
}

// ToInt converts an integer parameter value to an int.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func digitsOf(v any) (schema.Digits, bool) {
	switch d := v.(type) {
	case schema.Digits:
		return d, true
	case *schema.Digits:
		if d != nil {
			return *d, true
		}
	}
	return schema.Digits{}, false
}

// DigitsOf returns the digits held by a parameter value.
func DigitsOf(v any) (*schema.Digits, bool) {
	d, ok := digitsOf(v)
	if !ok {
		return nil, v == nil
	}
	return &d, true
}
