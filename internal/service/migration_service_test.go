package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/migrant/internal/adapters/database"
	"github.com/satishbabariya/migrant/internal/adapters/database/sqlite"
	"github.com/satishbabariya/migrant/internal/adapters/storage"
	"github.com/satishbabariya/migrant/internal/core/migration/decision"
	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/executor"
	"github.com/satishbabariya/migrant/internal/core/migration/lock"
	"github.com/satishbabariya/migrant/internal/core/query/ddl"
	"github.com/satishbabariya/migrant/internal/repository"
	"github.com/satishbabariya/migrant/internal/version"
	"github.com/satishbabariya/migrant/pkg/migrant"
)

type fixture struct {
	adapter   *database.SQLAdapter
	module    *migrant.Module
	registry  *migrant.Registry
	store     *storage.FSStorage
	generate  *GenerateService
	migration *MigrationService
	clock     time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	adapter, err := sqlite.NewSQLiteAdapter(database.Config{Provider: "sqlite", URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(ctx))
	t.Cleanup(func() { adapter.Disconnect(ctx) })

	f := &fixture{
		adapter: adapter,
		module: &migrant.Module{
			ID: "music",
			Tables: []*migrant.Table{migrant.NewTable("Band", "band",
				migrant.VarcharColumn("name"),
				migrant.IntegerColumn("popularity"),
			)},
		},
		registry: migrant.NewRegistry(),
		store:    storage.NewMemoryStorage(),
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.registry.Register(f.module))

	f.generate = NewGenerateService(f.registry, f.store, nil)
	f.generate.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}

	engine := executor.NewSQLEngine(adapter, ddl.NewSQLite(), nil)
	f.migration = NewMigrationService(f.registry, adapter, engine,
		repository.NewHistoryRepository(adapter), lock.NewProcessLock(), "migrant", nil)
	return f
}

// generate creates a unit and registers the equivalent migration, standing
// in for compiling the generated source.
func (f *fixture) generateAndRegister(t *testing.T, answer bool) *NewMigrationResult {
	t.Helper()
	res, err := f.generate.NewMigration(context.Background(), NewMigrationInput{
		Module:  "music",
		Dir:     "music/migrations",
		Package: "migrations",
		Decide:  decision.Always(answer),
	})
	require.NoError(t, err)

	diff := res.Diff
	f.module.Migrations.Register(migrant.Migration{
		ID:      res.ID,
		Version: version.Version,
		Build: func(m *migrant.Manager) error {
			diff.Apply(m)
			return nil
		},
	})
	return res
}

func (f *fixture) columns(t *testing.T, table string) []string {
	t.Helper()
	rows, err := f.adapter.Query(context.Background(), `SELECT name FROM pragma_table_info(?)`, table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestGenerateService_NewMigration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.generateAndRegister(t, false)

	assert.Equal(t, "2024-03-01T12:01:00:000000", res.ID)
	assert.Equal(t, "music/migrations/music_2024_03_01t12_01_00_000000.go", res.Path)
	assert.Equal(t, "1 create tables, 2 new table columns", res.Diff.String())

	src, err := f.store.Read(ctx, res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(src), "// Code generated by migrant")
	assert.Contains(t, string(src), `m.AddTable(migrant.AddTable{ClassName: "Band", TableName: "band"})`)

	set, err := f.store.Read(ctx, "music/migrations/"+SetFileName)
	require.NoError(t, err)
	assert.Contains(t, string(set), `var Set = migrant.NewMigrationSet("music")`)

	_, err = f.generate.NewMigration(ctx, NewMigrationInput{Module: "music", Dir: "music/migrations", Package: "migrations"})
	assert.True(t, errors.Is(err, domain.ErrNoChanges))
}

func TestGenerateService_BlankAndDryRun(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	dry, err := f.generate.NewMigration(ctx, NewMigrationInput{
		Module: "music", Dir: "music/migrations", Package: "migrations", DryRun: true,
	})
	require.NoError(t, err)
	exists, err := f.store.Exists(ctx, dry.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	blank, err := f.generate.NewMigration(ctx, NewMigrationInput{
		Module: "music", Dir: "music/migrations", Package: "migrations", Blank: true, Description: "backfill",
	})
	require.NoError(t, err)
	assert.Nil(t, blank.Diff)
	assert.True(t, strings.HasPrefix(string(blank.Source), "// Migration created by migrant"))
	assert.Contains(t, string(blank.Source), "m.AddRawForwards(")
}

func TestGenerateService_IDsSortAfterExisting(t *testing.T) {
	f := setup(t)
	f.module.Migrations.Register(migrant.Migration{ID: "2030-01-01T00:00:00:000000", Build: func(*migrant.Manager) error { return nil }})

	res, err := f.generate.NewMigration(context.Background(), NewMigrationInput{
		Module: "music", Dir: "m", Package: "m", DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01T00:00:00:000001", res.ID)
}

func TestGenerateService_SchemaFile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, "music.tables", []byte(`table Venue { city Varchar }`)))

	diff, err := f.generate.Diff(ctx, "music", "music.tables", nil)
	require.NoError(t, err)
	require.Len(t, diff.CreateTables, 1)
	assert.Equal(t, "Venue", diff.CreateTables[0].ClassName)

	_, err = f.generate.Diff(ctx, "shows", "music.tables", nil)
	assert.True(t, errors.Is(err, migrant.ErrModuleNotRegistered))
}

func TestMigrationService_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.generateAndRegister(t, false)

	result, err := f.migration.Forwards(ctx, ForwardsInput{})
	require.NoError(t, err)
	require.Len(t, result.Migrations, 1)
	assert.Equal(t, first.ID, result.Migrations[0].ID)
	assert.Equal(t, []string{"id", "name", "popularity"}, f.columns(t, "band"))

	// Rename name to title.
	f.module.Tables = []*migrant.Table{migrant.NewTable("Band", "band",
		migrant.VarcharColumn("title"),
		migrant.IntegerColumn("popularity"),
	)}
	second := f.generateAndRegister(t, true)
	require.Len(t, second.Diff.RenameColumns, 1)

	result, err = f.migration.Forwards(ctx, ForwardsInput{Module: "music"})
	require.NoError(t, err)
	require.Len(t, result.Migrations, 1)
	assert.Equal(t, []string{"id", "title", "popularity"}, f.columns(t, "band"))

	// Nothing left to apply.
	result, err = f.migration.Forwards(ctx, ForwardsInput{})
	require.NoError(t, err)
	assert.Empty(t, result.Migrations)

	statuses, err := f.migration.Check(ctx, "music")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Applied)
	assert.True(t, statuses[1].Applied)

	// Reverse the latest only.
	result, err = f.migration.Backwards(ctx, BackwardsInput{Module: "music"})
	require.NoError(t, err)
	require.Len(t, result.Migrations, 1)
	assert.Equal(t, second.ID, result.Migrations[0].ID)
	assert.Equal(t, []string{"id", "name", "popularity"}, f.columns(t, "band"))

	// Reverse everything.
	result, err = f.migration.Backwards(ctx, BackwardsInput{Module: "music", To: All})
	require.NoError(t, err)
	require.Len(t, result.Migrations, 1)
	assert.Empty(t, f.columns(t, "band"))

	modules, err := f.migration.Status(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, ModuleStatus{Module: "music", Total: 2, Pending: 2}, modules[0])
}

func TestMigrationService_ForwardsTo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.generateAndRegister(t, false)
	f.module.Tables = append(f.module.Tables, migrant.NewTable("Venue", "venue", migrant.VarcharColumn("city")))
	f.generateAndRegister(t, false)

	result, err := f.migration.Forwards(ctx, ForwardsInput{Module: "music", To: first.ID})
	require.NoError(t, err)
	require.Len(t, result.Migrations, 1)
	assert.Empty(t, f.columns(t, "venue"))

	_, err = f.migration.Forwards(ctx, ForwardsInput{Module: "music", To: "1999-01-01T00:00:00:000000"})
	assert.True(t, errors.Is(err, domain.ErrMigrationNotFound))
}

func TestMigrationService_Fake(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.generateAndRegister(t, false)

	result, err := f.migration.Forwards(ctx, ForwardsInput{Fake: true})
	require.NoError(t, err)
	require.Len(t, result.Migrations, 1)
	assert.Empty(t, f.columns(t, "band"))

	statuses, err := f.migration.Check(ctx, "")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)

	result, err = f.migration.Backwards(ctx, BackwardsInput{Module: "music", To: All, Fake: true})
	require.NoError(t, err)
	require.Len(t, result.Migrations, 1)

	statuses, err = f.migration.Check(ctx, "music")
	require.NoError(t, err)
	assert.False(t, statuses[0].Applied)
}

func TestMigrationService_FailedMigrationIsNotRecorded(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.module.Migrations.Register(migrant.Migration{
		ID: "2024-01-01T00:00:00:000000",
		Build: func(m *migrant.Manager) error {
			m.AddRawForwards(func(ctx context.Context, tx migrant.Executor) error {
				return tx.Exec(ctx, "CREATE TABLE broken (")
			})
			return nil
		},
	})

	_, err := f.migration.Forwards(ctx, ForwardsInput{})
	require.Error(t, err)

	statuses, err := f.migration.Check(ctx, "music")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Applied)
}

func TestMigrationService_NewerVersionWarning(t *testing.T) {
	f := setup(t)

	f.module.Migrations.Register(migrant.Migration{
		ID:      "2024-01-01T00:00:00:000000",
		Version: "99.0.0",
		Build:   func(*migrant.Manager) error { return nil },
	})

	result, err := f.migration.Forwards(context.Background(), ForwardsInput{})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "99.0.0")
}

func TestMigrationService_Preview(t *testing.T) {
	f := setup(t)
	f.generateAndRegister(t, false)

	statements, err := f.migration.Preview(context.Background(), ForwardsInput{})
	require.NoError(t, err)
	require.NotEmpty(t, statements)
	assert.Contains(t, statements[0], "CREATE TABLE")
	assert.Empty(t, f.columns(t, "band"))
}

func TestMigrationService_OrphanedLedgerRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	history := repository.NewHistoryRepository(f.adapter)
	require.NoError(t, history.EnsureTable(ctx))
	require.NoError(t, history.Record(ctx, repository.AdapterExecer(f.adapter), "music", "2020-01-01T00:00:00:000000"))

	statuses, err := f.migration.Check(ctx, "music")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Orphaned)

	_, err = f.migration.Backwards(ctx, BackwardsInput{Module: "music"})
	assert.True(t, errors.Is(err, domain.ErrMigrationNotFound))
}

func TestBackwardsTargets(t *testing.T) {
	applied := []*domain.AppliedMigration{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	assert.Equal(t, []string{"c"}, backwardsTargets(applied, ""))
	assert.Equal(t, []string{"c", "b"}, backwardsTargets(applied, "b"))
	assert.Equal(t, []string{"c", "b", "a"}, backwardsTargets(applied, All))
	assert.Empty(t, backwardsTargets(nil, ""))
}
