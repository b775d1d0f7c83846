// Package migrant is the public API of the migration toolkit.
//
// Applications declare their live schema as a Module of Tables, register the
// module with a Registry and compile in the package of generated migration
// units. A generated unit looks like:
//
//	func init() {
//		Set.Register(migrant.Migration{
//			ID:      "2024-03-01T12:30:45:123456",
//			Version: "0.1.0",
//			Build: func(m *migrant.Manager) error {
//				m.DropTable(migrant.DropTable{ClassName: "Band", TableName: "band"})
//				return nil
//			},
//		})
//	}
package migrant

import (
	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/executor"
	"github.com/satishbabariya/migrant/internal/core/migration/manager"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Column model.
type (
	Column      = schema.Column
	Table       = schema.Table
	Kind        = schema.Kind
	Params      = schema.Params
	Option      = schema.Option
	Digits      = schema.Digits
	EnumType    = schema.EnumType
	EnumMember  = schema.EnumMember
	TableRef    = schema.TableRef
	Default     = schema.Default
	DefaultKind = schema.DefaultKind
)

// Serialized parameter values, as they appear in generated units.
type (
	EnumRef        = serializer.EnumRef
	TableRefString = serializer.TableRefString
	ISOTime        = serializer.ISOTime
	ISODuration    = serializer.ISODuration
)

// Migrations.
type (
	Manager       = manager.Manager
	Executor      = executor.Executor
	RawFunc       = manager.RawFunc
	DiffableTable = domain.DiffableTable
)

// Operations.
type (
	AddTable     = domain.AddTable
	DropTable    = domain.DropTable
	RenameTable  = domain.RenameTable
	AddColumn    = domain.AddColumn
	DropColumn   = domain.DropColumn
	RenameColumn = domain.RenameColumn
	AlterColumn  = domain.AlterColumn
)

// Column kinds.
const (
	Varchar         = schema.Varchar
	Text            = schema.Text
	Integer         = schema.Integer
	BigInt          = schema.BigInt
	SmallInt        = schema.SmallInt
	Serial          = schema.Serial
	BigSerial       = schema.BigSerial
	Boolean         = schema.Boolean
	Numeric         = schema.Numeric
	Real            = schema.Real
	DoublePrecision = schema.DoublePrecision
	Timestamp       = schema.Timestamp
	Timestamptz     = schema.Timestamptz
	Date            = schema.Date
	Time            = schema.Time
	Interval        = schema.Interval
	UUID            = schema.UUID
	JSON            = schema.JSON
	JSONB           = schema.JSONB
	Bytea           = schema.Bytea
	ForeignKey      = schema.ForeignKey
	Array           = schema.Array
)

// Column constructors and options.
var (
	NewTable  = schema.NewTable
	NewColumn = schema.NewColumn
	NewEnum   = schema.NewEnum

	VarcharColumn         = schema.VarcharColumn
	TextColumn            = schema.TextColumn
	IntegerColumn         = schema.IntegerColumn
	BigIntColumn          = schema.BigIntColumn
	SmallIntColumn        = schema.SmallIntColumn
	SerialColumn          = schema.SerialColumn
	BigSerialColumn       = schema.BigSerialColumn
	BooleanColumn         = schema.BooleanColumn
	NumericColumn         = schema.NumericColumn
	RealColumn            = schema.RealColumn
	DoublePrecisionColumn = schema.DoublePrecisionColumn
	TimestampColumn       = schema.TimestampColumn
	TimestamptzColumn     = schema.TimestamptzColumn
	DateColumn            = schema.DateColumn
	TimeColumn            = schema.TimeColumn
	IntervalColumn        = schema.IntervalColumn
	UUIDColumn            = schema.UUIDColumn
	JSONColumn            = schema.JSONColumn
	JSONBColumn           = schema.JSONBColumn
	ByteaColumn           = schema.ByteaColumn
	ArrayColumn           = schema.ArrayColumn
	ForeignKeyColumn      = schema.ForeignKeyColumn

	Null         = schema.Null
	Unique       = schema.Unique
	Index        = schema.Index
	PrimaryKey   = schema.PrimaryKey
	WithDefault  = schema.WithDefault
	Length       = schema.Length
	WithDigits   = schema.WithDigits
	Choices      = schema.Choices
	References   = schema.References
	OnDelete     = schema.OnDelete
	OnUpdate     = schema.OnUpdate
	DBColumnName = schema.DBColumnName
	BaseColumn   = schema.BaseColumn

	Now    = schema.Now
	Offset = schema.Offset
)
