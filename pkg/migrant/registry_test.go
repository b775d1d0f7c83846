package migrant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func musicModule() *Module {
	set := NewMigrationSet("music")
	set.Register(Migration{
		ID:      "2024-02-01T00:00:00:000000",
		Version: "0.1.0",
		Build: func(m *Manager) error {
			m.RenameColumn(RenameColumn{TableClassName: "Band", TableName: "band", OldColumnName: "title", NewColumnName: "name"})
			m.RenameTable(RenameTable{OldClassName: "Ticket", OldTableName: "ticket", NewClassName: "Seat", NewTableName: "seat"})
			return nil
		},
	})
	set.Register(Migration{
		ID:          "2024-01-01T00:00:00:000000",
		Version:     "0.1.0",
		Description: "initial",
		Build: func(m *Manager) error {
			m.AddTable(AddTable{ClassName: "Band", TableName: "band", Columns: []Column{
				{Name: "title", Kind: Varchar, Params: Params{"length": 255, "null": false}},
			}})
			m.AddTable(AddTable{ClassName: "Ticket", TableName: "ticket"})
			return nil
		},
	})

	return &Module{
		ID:         "music",
		Tables:     []*Table{NewTable("Band", "band", VarcharColumn("name"))},
		Migrations: set,
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(musicModule()))

	assert.Error(t, r.Register(musicModule()))
	assert.Error(t, r.Register(&Module{}))
	assert.Error(t, r.Register(&Module{ID: "shows", Migrations: NewMigrationSet("music")}))
	assert.Error(t, r.Register(&Module{ID: "shows", Tables: []*Table{
		NewTable("Show", "show"), NewTable("Show", "shows"),
	}}))

	require.NoError(t, r.Register(&Module{ID: "empty"}))
	empty, err := r.Module("empty")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Migrations.Len())

	ids := []string{}
	for _, m := range r.Modules() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"empty", "music"}, ids)
}

func TestRegistry_ModuleNotRegistered(t *testing.T) {
	r := NewRegistry()

	_, err := r.Module("missing")
	assert.True(t, errors.Is(err, ErrModuleNotRegistered))

	_, err = r.Managers("missing")
	assert.True(t, errors.Is(err, ErrModuleNotRegistered))
}

func TestRegistry_Managers(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(musicModule())

	managers, err := r.Managers("music")
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, "2024-01-01T00:00:00:000000", managers[0].ID)
	assert.Equal(t, "initial", managers[0].Description)
	assert.Equal(t, "music", managers[0].ModuleID)
	assert.Len(t, managers[1].Operations().RenameColumns, 1)
}

func TestRegistry_BuildError(t *testing.T) {
	set := NewMigrationSet("broken")
	set.Register(Migration{ID: "1", Build: func(*Manager) error { return assert.AnError }})

	r := NewRegistry()
	r.MustRegister(&Module{ID: "broken", Migrations: set})

	_, err := r.Managers("broken")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRegistry_Snapshots(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(musicModule())

	tables, err := r.Snapshot("music")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Band", tables[0].ClassName)
	assert.Equal(t, "name", tables[0].Columns[0].Name)
	assert.Equal(t, "Seat", tables[1].ClassName)

	before, err := r.TablesBefore(context.Background(), "music", "2024-02-01T00:00:00:000000")
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, "title", before[0].Columns[0].Name)
	assert.Equal(t, "Ticket", before[1].ClassName)

	live, err := r.LiveTables("music")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "name", live[0].Columns[0].Name)
}

func TestRegistry_Resolver(t *testing.T) {
	status := NewEnum("Status", "active", "retired")

	r := NewRegistry()
	r.MustRegister(musicModule())
	r.MustRegister(&Module{
		ID:     "venues",
		Tables: []*Table{NewTable("Venue", "venue", VarcharColumn("status", Choices(status)))},
	})

	resolver, err := r.Resolver()
	require.NoError(t, err)

	for _, class := range []string{"Band", "Ticket", "Seat", "Venue"} {
		_, ok := resolver.Table(class)
		assert.True(t, ok, class)
	}
	got, ok := resolver.Enum("Status")
	require.True(t, ok)
	assert.Equal(t, status, got)
}

func TestMigrationSet_Register(t *testing.T) {
	set := NewMigrationSet("music")
	set.Register(Migration{ID: "1", Build: func(*Manager) error { return nil }})

	assert.Panics(t, func() { set.Register(Migration{ID: "1", Build: func(*Manager) error { return nil }}) })
	assert.Panics(t, func() { set.Register(Migration{Build: func(*Manager) error { return nil }}) })
	assert.Panics(t, func() { set.Register(Migration{ID: "2"}) })

	m, ok := set.Get("1")
	assert.True(t, ok)
	assert.Equal(t, "1", m.ID)
	assert.Equal(t, 1, set.Len())
}
