package schema

// Column is a single column of a table definition.
type Column struct {
	Name   string
	Kind   Kind
	Params Params
}

// Option configures a column.
type Option func(*Column)

// NewColumn builds a column of kind k with the kind's default parameters.
func NewColumn(name string, k Kind, opts ...Option) Column {
	c := Column{Name: name, Kind: k, Params: DefaultParams(k)}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// DBColumnName returns the name of the column in the database.
func (c Column) DBColumnName() string {
	if n, ok := c.Params[ParamDBColumnName].(string); ok && n != "" {
		return n
	}
	return c.Name
}

// IsPrimaryKey reports whether the column is the table's primary key.
func (c Column) IsPrimaryKey() bool {
	pk, _ := c.Params[ParamPrimaryKey].(bool)
	return pk
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	return Column{Name: c.Name, Kind: c.Kind, Params: c.Params.Clone()}
}

func kindColumn(k Kind) func(string, ...Option) Column {
	return func(name string, opts ...Option) Column {
		return NewColumn(name, k, opts...)
	}
}

var (
	VarcharColumn         = kindColumn(Varchar)
	TextColumn            = kindColumn(Text)
	IntegerColumn         = kindColumn(Integer)
	BigIntColumn          = kindColumn(BigInt)
	SmallIntColumn        = kindColumn(SmallInt)
	SerialColumn          = kindColumn(Serial)
	BigSerialColumn       = kindColumn(BigSerial)
	BooleanColumn         = kindColumn(Boolean)
	NumericColumn         = kindColumn(Numeric)
	RealColumn            = kindColumn(Real)
	DoublePrecisionColumn = kindColumn(DoublePrecision)
	TimestampColumn       = kindColumn(Timestamp)
	TimestamptzColumn     = kindColumn(Timestamptz)
	DateColumn            = kindColumn(Date)
	TimeColumn            = kindColumn(Time)
	IntervalColumn        = kindColumn(Interval)
	UUIDColumn            = kindColumn(UUID)
	JSONColumn            = kindColumn(JSON)
	JSONBColumn           = kindColumn(JSONB)
	ByteaColumn           = kindColumn(Bytea)
	ArrayColumn           = kindColumn(Array)
)

// ForeignKeyColumn builds a column referencing the table with the given
// class and table name.
func ForeignKeyColumn(name string, ref TableRef, opts ...Option) Column {
	return NewColumn(name, ForeignKey, append([]Option{References(ref)}, opts...)...)
}

// Set sets an arbitrary parameter.
func Set(key string, value any) Option {
	return func(c *Column) { c.Params[key] = value }
}

// Null allows NULL values.
func Null(null bool) Option { return Set(ParamNull, null) }

// Unique adds a unique constraint.
func Unique(unique bool) Option { return Set(ParamUnique, unique) }

// Index creates an index on the column.
func Index(index bool) Option { return Set(ParamIndex, index) }

// PrimaryKey marks the column as the primary key, replacing the implicit id.
func PrimaryKey() Option { return Set(ParamPrimaryKey, true) }

// WithDefault sets the column default.
func WithDefault(v any) Option { return Set(ParamDefault, v) }

// Length sets the maximum length of a Varchar column.
func Length(n int) Option { return Set(ParamLength, n) }

// WithDigits sets the precision and scale of a Numeric column.
func WithDigits(precision, scale int) Option {
	return Set(ParamDigits, Digits{Precision: precision, Scale: scale})
}

// Choices restricts the column to the members of e.
func Choices(e EnumType) Option { return Set(ParamChoices, e) }

// References points a ForeignKey column at another table.
func References(ref TableRef) Option { return Set(ParamReferences, ref) }

// OnDelete sets the ON DELETE action of a ForeignKey column.
func OnDelete(action string) Option { return Set(ParamOnDelete, action) }

// OnUpdate sets the ON UPDATE action of a ForeignKey column.
func OnUpdate(action string) Option { return Set(ParamOnUpdate, action) }

// DBColumnName stores the column under a different name in the database.
func DBColumnName(name string) Option { return Set(ParamDBColumnName, name) }

// BaseColumn sets the element kind of an Array column.
func BaseColumn(k Kind) Option { return Set(ParamBaseColumn, string(k)) }
