// Package service implements application services (use cases).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/satishbabariya/migrant/internal/adapters/storage"
	"github.com/satishbabariya/migrant/internal/core/migration/decision"
	"github.com/satishbabariya/migrant/internal/core/migration/differ"
	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/generator"
	"github.com/satishbabariya/migrant/internal/core/schema/dsl"
	"github.com/satishbabariya/migrant/internal/version"
	"github.com/satishbabariya/migrant/pkg/migrant"
)

// SetFileName is the file that declares a module's migration set.
const SetFileName = "migrations.go"

// GenerateService creates migration units.
type GenerateService struct {
	registry *migrant.Registry
	storage  storage.Storage
	logger   *slog.Logger
	now      func() time.Time
}

// NewGenerateService creates a new generate service.
func NewGenerateService(registry *migrant.Registry, store storage.Storage, logger *slog.Logger) *GenerateService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GenerateService{
		registry: registry,
		storage:  store,
		logger:   logger,
		now:      time.Now,
	}
}

// NewMigrationInput represents input for creating a migration.
type NewMigrationInput struct {
	Module      string
	Description string
	// Dir and Package locate the module's migrations package.
	Dir     string
	Package string
	// SchemaFile, when set, replaces the module's declared tables as the
	// live schema.
	SchemaFile string
	// Blank creates a unit with empty raw steps instead of diffing.
	Blank bool
	// DryRun renders the unit without writing it.
	DryRun bool
	// Decide answers rename questions. Nil rejects every rename.
	Decide differ.Decider
}

// NewMigrationResult describes a created migration unit.
type NewMigrationResult struct {
	ID     string
	Path   string
	Source []byte
	Diff   *differ.Result
}

// Diff compares a module's live schema with the schema its migrations
// produce.
func (s *GenerateService) Diff(ctx context.Context, module, schemaFile string, decide differ.Decider) (*differ.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	live, err := s.liveTables(module, schemaFile)
	if err != nil {
		return nil, err
	}
	snap, err := s.registry.Snapshot(module)
	if err != nil {
		return nil, fmt.Errorf("failed to replay migrations: %w", err)
	}

	if decide == nil {
		decide = differ.Never
	}
	result, err := differ.Diff(live, snap, decision.Recording(decide, s.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to diff schema: %w", err)
	}
	for _, w := range result.Warnings {
		s.logger.Warn("parameter not serializable", "module", module, "warning", w.String())
	}
	return result, nil
}

// NewMigration creates a migration unit for a module.
func (s *GenerateService) NewMigration(ctx context.Context, input NewMigrationInput) (*NewMigrationResult, error) {
	if input.Dir == "" || input.Package == "" {
		return nil, fmt.Errorf("migrations directory and package are required")
	}
	mod, err := s.registry.Module(input.Module)
	if err != nil {
		return nil, err
	}

	unit := generator.Unit{
		Package:     input.Package,
		ModuleID:    mod.ID,
		Version:     version.Version,
		Description: input.Description,
		Blank:       input.Blank,
	}

	result := &NewMigrationResult{}
	if !input.Blank {
		diff, err := s.Diff(ctx, mod.ID, input.SchemaFile, input.Decide)
		if err != nil {
			return nil, err
		}
		result.Diff = diff
		if diff.Empty() {
			return result, fmt.Errorf("module %s: %w", mod.ID, domain.ErrNoChanges)
		}
		unit.Operations = diff.Operations()
	}

	unit.ID = s.nextID(mod)
	src, err := generator.Render(unit)
	if err != nil {
		return nil, err
	}
	result.ID = unit.ID
	result.Source = src
	result.Path = path.Join(input.Dir, generator.FileName(mod.ID, unit.ID))

	if input.DryRun {
		return result, nil
	}

	if err := s.ensureSet(ctx, input.Dir, input.Package, mod.ID); err != nil {
		return nil, err
	}
	if err := s.storage.Create(ctx, result.Path, src); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, fmt.Errorf("migration %s already exists: %w", unit.ID, err)
		}
		return nil, fmt.Errorf("failed to write migration: %w", err)
	}

	s.logger.Info("migration created", "module", mod.ID, "id", unit.ID, "path", result.Path)
	return result, nil
}

// nextID derives an ID from the clock that sorts after every existing
// migration of the module.
func (s *GenerateService) nextID(mod *migrant.Module) string {
	now := s.now()
	list := mod.Migrations.List()
	if len(list) == 0 {
		return generator.NewID(now)
	}
	last := list[len(list)-1].ID
	id := generator.NewID(now)
	if id > last {
		return id
	}
	if t, err := generator.ParseID(last); err == nil {
		return generator.NewID(t.Add(time.Microsecond))
	}
	return id
}

// ensureSet writes the migration set file when the directory holds no Go
// source yet.
func (s *GenerateService) ensureSet(ctx context.Context, dir, pkg, moduleID string) error {
	files, err := s.storage.List(ctx, dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".go") {
			return nil
		}
	}

	src, err := generator.RenderSet(pkg, moduleID)
	if err != nil {
		return err
	}
	if err := s.storage.Create(ctx, path.Join(dir, SetFileName), src); err != nil {
		return fmt.Errorf("failed to write migration set: %w", err)
	}
	return nil
}

func (s *GenerateService) liveTables(module, schemaFile string) ([]*domain.DiffableTable, error) {
	if schemaFile == "" {
		return s.registry.LiveTables(module)
	}
	if _, err := s.registry.Module(module); err != nil {
		return nil, err
	}
	parsed, err := dsl.ParseFile(s.storage.Fs(), schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return domain.FromTables(parsed.Tables), nil
}
