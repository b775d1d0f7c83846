package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/manager"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

func col(c schema.Column) schema.Column {
	params, _ := serializer.Serialize(c.Params)
	return schema.Column{Name: c.Name, Kind: c.Kind, Params: params}
}

func history() []*manager.Manager {
	first := manager.New("2024-01-01T00:00:00:000000", "music")
	first.AddTable(domain.AddTable{ClassName: "Band", TableName: "band", Columns: []schema.Column{
		col(schema.VarcharColumn("title")),
		col(schema.NumericColumn("rating", schema.WithDigits(5, 2))),
	}})
	first.AddTable(domain.AddTable{ClassName: "Ticket", TableName: "ticket"})

	second := manager.New("2024-02-01T00:00:00:000000", "music")
	second.RenameColumn(domain.RenameColumn{TableClassName: "Band", TableName: "band", OldColumnName: "title", NewColumnName: "name"})
	second.AlterColumn(domain.AlterColumn{TableClassName: "Band", TableName: "band", ColumnName: "rating",
		Kind: schema.Numeric, OldKind: schema.Numeric,
		Params:    schema.Params{"digits": schema.Digits{Precision: 4, Scale: 2}},
		OldParams: schema.Params{"digits": schema.Digits{Precision: 5, Scale: 2}}})
	second.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "band", Column: col(schema.IntegerColumn("popularity"))})

	third := manager.New("2024-03-01T00:00:00:000000", "music")
	third.DropTable(domain.DropTable{ClassName: "Ticket", TableName: "ticket"})
	third.RenameTable(domain.RenameTable{OldClassName: "Band", OldTableName: "band", NewClassName: "Act", NewTableName: "act"})
	third.DropColumn(domain.DropColumn{TableClassName: "Act", TableName: "act", ColumnName: "popularity"})

	// Deliberately out of order.
	return []*manager.Manager{third, first, second}
}

func names(cols []schema.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestReplay(t *testing.T) {
	tables := Replay(history())

	require.Len(t, tables, 1)
	act := tables[0]
	assert.Equal(t, "Act", act.ClassName)
	assert.Equal(t, "act", act.TableName)
	assert.Equal(t, []string{"name", "rating"}, names(act.Columns))

	rating, ok := act.Column("rating")
	require.True(t, ok)
	assert.Equal(t, schema.Digits{Precision: 4, Scale: 2}, rating.Params["digits"])
}

func TestReplay_Idempotent(t *testing.T) {
	managers := history()

	first := Replay(managers)
	second := Replay(managers)

	assert.Equal(t, first, second)
}

func TestReplay_DoesNotMutateManagers(t *testing.T) {
	managers := history()
	tables := Replay(managers)
	tables[0].Columns[0].Params["null"] = true
	tables[0].Columns = nil

	again := Replay(managers)
	assert.Equal(t, false, again[0].Columns[0].Params["null"])
}

func TestReplayUntil(t *testing.T) {
	managers := history()

	assert.Empty(t, ReplayUntil(managers, "2024-01-01T00:00:00:000000"))

	tables := ReplayUntil(managers, "2024-03-01T00:00:00:000000")
	require.Len(t, tables, 2)
	assert.Equal(t, "Band", tables[0].ClassName)
	assert.Equal(t, []string{"name", "rating", "popularity"}, names(tables[0].Columns))
	assert.Equal(t, "Ticket", tables[1].ClassName)
}

func TestTableAt(t *testing.T) {
	managers := history()

	band := TableAt(managers, "Band", "2024-02-01T00:00:00:000000")
	require.NotNil(t, band)
	assert.Equal(t, []string{"title", "rating"}, names(band.Columns))

	assert.Nil(t, TableAt(managers, "Band", "2024-01-01T00:00:00:000000"))
}

func TestReplay_KindChange(t *testing.T) {
	first := manager.New("1", "music")
	first.AddTable(domain.AddTable{ClassName: "Band", TableName: "band", Columns: []schema.Column{col(schema.IntegerColumn("popularity"))}})
	second := manager.New("2", "music")
	second.AlterColumn(domain.AlterColumn{TableClassName: "Band", TableName: "band", ColumnName: "popularity",
		Kind: schema.BigInt, OldKind: schema.Integer,
		Params:    col(schema.BigIntColumn("popularity")).Params,
		OldParams: col(schema.IntegerColumn("popularity")).Params})

	tables := Replay([]*manager.Manager{first, second})
	require.Len(t, tables, 1)
	assert.Equal(t, schema.BigInt, tables[0].Columns[0].Kind)
}

func TestReplay_KindChangeReplacesParams(t *testing.T) {
	first := manager.New("1", "music")
	first.AddTable(domain.AddTable{ClassName: "Band", TableName: "band", Columns: []schema.Column{
		col(schema.VarcharColumn("code", schema.Length(100), schema.DBColumnName("band_code"))),
	}})
	second := manager.New("2", "music")
	second.AlterColumn(domain.AlterColumn{TableClassName: "Band", TableName: "band", ColumnName: "code",
		Kind: schema.Integer, OldKind: schema.Varchar,
		Params:    col(schema.IntegerColumn("code")).Params,
		OldParams: col(schema.VarcharColumn("code", schema.Length(100))).Params})

	tables := Replay([]*manager.Manager{first, second})
	require.Len(t, tables, 1)
	code := tables[0].Columns[0]
	assert.Equal(t, schema.Integer, code.Kind)
	assert.NotContains(t, code.Params, "length")
	assert.Equal(t, 0, code.Params["default"])
	// Neither side names the database column, so the existing name stays.
	assert.Equal(t, "band_code", code.Params["db_column_name"])
}

func TestReplay_SameClassReplacedTable(t *testing.T) {
	first := manager.New("1", "music")
	first.AddTable(domain.AddTable{ClassName: "Band", TableName: "band", Columns: []schema.Column{col(schema.VarcharColumn("name"))}})
	second := manager.New("2", "music")
	second.AddTable(domain.AddTable{ClassName: "Band", TableName: "bands"})
	second.AddColumn(domain.AddColumn{TableClassName: "Band", TableName: "bands", Column: col(schema.VarcharColumn("name"))})
	second.DropTable(domain.DropTable{ClassName: "Band", TableName: "band"})

	tables := Replay([]*manager.Manager{first, second})
	require.Len(t, tables, 1)
	assert.Equal(t, "bands", tables[0].TableName)
	assert.Equal(t, []string{"name"}, names(tables[0].Columns))
}

func TestReplay_AddTableIsNotDuplicated(t *testing.T) {
	first := manager.New("1", "music")
	first.AddTable(domain.AddTable{ClassName: "Band", TableName: "band"})
	second := manager.New("2", "music")
	second.AddTable(domain.AddTable{ClassName: "Band", TableName: "band"})

	assert.Len(t, Replay([]*manager.Manager{first, second}), 1)
}
