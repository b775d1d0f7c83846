// Package schema contains the column and table model that application code
// uses to declare its live database schema.
package schema

// Kind identifies a column type.
type Kind string

const (
	Varchar         Kind = "Varchar"
	Text            Kind = "Text"
	Integer         Kind = "Integer"
	BigInt          Kind = "BigInt"
	SmallInt        Kind = "SmallInt"
	Serial          Kind = "Serial"
	BigSerial       Kind = "BigSerial"
	Boolean         Kind = "Boolean"
	Numeric         Kind = "Numeric"
	Real            Kind = "Real"
	DoublePrecision Kind = "DoublePrecision"
	Timestamp       Kind = "Timestamp"
	Timestamptz     Kind = "Timestamptz"
	Date            Kind = "Date"
	Time            Kind = "Time"
	Interval        Kind = "Interval"
	UUID            Kind = "UUID"
	JSON            Kind = "JSON"
	JSONB           Kind = "JSONB"
	Bytea           Kind = "Bytea"
	ForeignKey      Kind = "ForeignKey"
	Array           Kind = "Array"
)

var kinds = map[Kind]struct{}{
	Varchar: {}, Text: {}, Integer: {}, BigInt: {}, SmallInt: {}, Serial: {},
	BigSerial: {}, Boolean: {}, Numeric: {}, Real: {}, DoublePrecision: {},
	Timestamp: {}, Timestamptz: {}, Date: {}, Time: {}, Interval: {}, UUID: {},
	JSON: {}, JSONB: {}, Bytea: {}, ForeignKey: {}, Array: {},
}

// Valid reports whether k is one of the known column kinds.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Standard parameter keys.
const (
	ParamNull         = "null"
	ParamUnique       = "unique"
	ParamIndex        = "index"
	ParamPrimaryKey   = "primary_key"
	ParamDefault      = "default"
	ParamLength       = "length"
	ParamDigits       = "digits"
	ParamChoices      = "choices"
	ParamReferences   = "references"
	ParamOnDelete     = "on_delete"
	ParamOnUpdate     = "on_update"
	ParamDBColumnName = "db_column_name"
	ParamBaseColumn   = "base_column"
)

// DefaultParams returns the parameters every column of the given kind starts
// with before options are applied.
func DefaultParams(k Kind) Params {
	p := Params{
		ParamNull:       false,
		ParamUnique:     false,
		ParamIndex:      false,
		ParamPrimaryKey: false,
	}

	switch k {
	case Varchar:
		p[ParamLength] = 255
		p[ParamDefault] = ""
	case Text:
		p[ParamDefault] = ""
	case Integer, BigInt, SmallInt:
		p[ParamDefault] = 0
	case Boolean:
		p[ParamDefault] = false
	case Numeric:
		p[ParamDigits] = nil
		p[ParamDefault] = nil
	case Real, DoublePrecision:
		p[ParamDefault] = 0.0
	case Timestamp, Timestamptz:
		p[ParamDefault] = Default{Kind: DefaultNow}
	case Date:
		p[ParamDefault] = Default{Kind: DefaultCurrentDate}
	case Time:
		p[ParamDefault] = Default{Kind: DefaultCurrentTime}
	case UUID:
		p[ParamDefault] = Default{Kind: DefaultUUID4}
	case ForeignKey:
		p[ParamNull] = true
		p[ParamDefault] = nil
		p[ParamOnDelete] = "CASCADE"
		p[ParamOnUpdate] = "CASCADE"
	case Array:
		p[ParamBaseColumn] = string(Varchar)
		p[ParamDefault] = []any{}
	case Serial, BigSerial:
		delete(p, ParamDefault)
	default:
		p[ParamDefault] = nil
	}

	return p
}
