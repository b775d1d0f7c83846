package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/satishbabariya/migrant/internal/adapters/database"
	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/executor"
	"github.com/satishbabariya/migrant/internal/core/migration/lock"
	"github.com/satishbabariya/migrant/internal/core/migration/manager"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/query/ddl"
	"github.com/satishbabariya/migrant/internal/repository"
	"github.com/satishbabariya/migrant/internal/version"
	"github.com/satishbabariya/migrant/pkg/migrant"
)

// All selects every applied migration as the target of Backwards.
const All = "all"

// MigrationService orchestrates migration operations.
type MigrationService struct {
	registry *migrant.Registry
	db       database.Adapter
	engine   executor.Engine
	history  repository.HistoryRepository
	locker   lock.Locker
	lockKey  string
	logger   *slog.Logger
}

// NewMigrationService creates a new migration service.
func NewMigrationService(
	registry *migrant.Registry,
	db database.Adapter,
	engine executor.Engine,
	history repository.HistoryRepository,
	locker lock.Locker,
	lockKey string,
	logger *slog.Logger,
) *MigrationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MigrationService{
		registry: registry,
		db:       db,
		engine:   engine,
		history:  history,
		locker:   locker,
		lockKey:  lockKey,
		logger:   logger,
	}
}

// ForwardsInput selects the migrations to apply.
type ForwardsInput struct {
	// Module limits the run to one module. Empty runs every module.
	Module string
	// To is the last migration to apply. Empty applies all pending.
	To string
	// Fake records migrations as applied without running them.
	Fake bool
}

// BackwardsInput selects the migrations to reverse.
type BackwardsInput struct {
	Module string
	// To is the earliest migration to reverse: everything applied from it
	// onwards is reversed. All reverses every migration, empty only the
	// latest.
	To   string
	Fake bool
}

// MigrationRef names a migration that was run.
type MigrationRef struct {
	Module      string
	ID          string
	Description string
}

// RunResult reports a forwards or backwards run.
type RunResult struct {
	Migrations []MigrationRef
	// Warnings are non-fatal findings, such as units generated by a newer
	// toolkit.
	Warnings []string
}

// MigrationStatus is the state of one migration.
type MigrationStatus struct {
	Module      string
	ID          string
	Description string
	Version     string
	Applied     bool
	AppliedAt   time.Time
	// Orphaned marks ledger rows without a registered unit.
	Orphaned bool
}

// ModuleStatus summarises a module.
type ModuleStatus struct {
	Module  string
	Total   int
	Applied int
	Pending int
	Latest  string
}

// Forwards applies pending migrations in ID order, each in its own
// transaction together with its ledger row.
func (s *MigrationService) Forwards(ctx context.Context, input ForwardsInput) (*RunResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.history.EnsureTable(ctx); err != nil {
		return nil, err
	}

	modules, err := s.modules(input.Module)
	if err != nil {
		return nil, err
	}
	resolver, err := s.registry.Resolver()
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	for _, mod := range modules {
		if input.To != "" && input.Module != "" {
			if _, ok := mod.Migrations.Get(input.To); !ok {
				return result, fmt.Errorf("module %s: %w: %s", mod.ID, domain.ErrMigrationNotFound, input.To)
			}
		}

		applied, err := s.appliedSet(ctx, mod.ID)
		if err != nil {
			return result, err
		}
		managers, err := s.managers(mod.ID, s.engine, resolver, true)
		if err != nil {
			return result, err
		}

		for _, m := range managers {
			if input.To != "" && m.ID > input.To {
				break
			}
			if _, ok := applied[m.ID]; ok {
				continue
			}
			result.Warnings = append(result.Warnings, s.checkVersion(mod, m.ID)...)

			if input.Fake {
				if err := s.history.Record(ctx, repository.AdapterExecer(s.db), mod.ID, m.ID); err != nil {
					return result, err
				}
				s.logger.Info("migration faked", "module", mod.ID, "id", m.ID)
			} else {
				if err := m.Run(ctx); err != nil {
					return result, err
				}
				s.logger.Info("migration applied", "module", mod.ID, "id", m.ID)
			}
			result.Migrations = append(result.Migrations, MigrationRef{Module: mod.ID, ID: m.ID, Description: m.Description})
		}
	}
	return result, nil
}

// Backwards reverses applied migrations of one module, newest first.
func (s *MigrationService) Backwards(ctx context.Context, input BackwardsInput) (*RunResult, error) {
	mod, err := s.registry.Module(input.Module)
	if err != nil {
		return nil, err
	}
	if input.To != "" && input.To != All {
		if _, ok := mod.Migrations.Get(input.To); !ok {
			return nil, fmt.Errorf("module %s: %w: %s", mod.ID, domain.ErrMigrationNotFound, input.To)
		}
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.history.EnsureTable(ctx); err != nil {
		return nil, err
	}

	applied, err := s.history.Applied(ctx, mod.ID)
	if err != nil {
		return nil, err
	}
	targets := backwardsTargets(applied, input.To)

	resolver, err := s.registry.Resolver()
	if err != nil {
		return nil, err
	}
	managers, err := s.managers(mod.ID, s.engine, resolver, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*manager.Manager, len(managers))
	for _, m := range managers {
		byID[m.ID] = m
	}

	result := &RunResult{}
	for _, id := range targets {
		m, ok := byID[id]
		if !ok {
			return result, fmt.Errorf("module %s: cannot reverse %s: %w", mod.ID, id, domain.ErrMigrationNotFound)
		}
		result.Warnings = append(result.Warnings, s.checkVersion(mod, id)...)

		if input.Fake {
			if err := s.history.Remove(ctx, repository.AdapterExecer(s.db), mod.ID, id); err != nil {
				return result, err
			}
			s.logger.Info("migration reversal faked", "module", mod.ID, "id", id)
		} else {
			if err := m.RunBackwards(ctx); err != nil {
				return result, err
			}
			s.logger.Info("migration reversed", "module", mod.ID, "id", id)
		}
		result.Migrations = append(result.Migrations, MigrationRef{Module: mod.ID, ID: id, Description: m.Description})
	}
	return result, nil
}

// Preview renders the statements Forwards would execute, without executing
// them or touching the ledger.
func (s *MigrationService) Preview(ctx context.Context, input ForwardsInput) ([]string, error) {
	dialect, err := ddl.ForProvider(string(s.db.GetDialect()))
	if err != nil {
		return nil, err
	}
	if err := s.history.EnsureTable(ctx); err != nil {
		return nil, err
	}

	modules, err := s.modules(input.Module)
	if err != nil {
		return nil, err
	}
	resolver, err := s.registry.Resolver()
	if err != nil {
		return nil, err
	}

	engine := executor.NewPreviewEngine(dialect)
	for _, mod := range modules {
		applied, err := s.appliedSet(ctx, mod.ID)
		if err != nil {
			return nil, err
		}
		managers, err := s.managers(mod.ID, engine, resolver, false)
		if err != nil {
			return nil, err
		}
		for _, m := range managers {
			if input.To != "" && m.ID > input.To {
				break
			}
			if _, ok := applied[m.ID]; ok {
				continue
			}
			if err := m.Run(ctx); err != nil {
				return nil, err
			}
		}
	}
	return engine.Statements(), nil
}

// Check lists every migration of a module, or of all modules, with whether
// it has been applied.
func (s *MigrationService) Check(ctx context.Context, module string) ([]MigrationStatus, error) {
	if err := s.history.EnsureTable(ctx); err != nil {
		return nil, err
	}
	modules, err := s.modules(module)
	if err != nil {
		return nil, err
	}

	var out []MigrationStatus
	for _, mod := range modules {
		applied, err := s.history.Applied(ctx, mod.ID)
		if err != nil {
			return nil, err
		}
		byName := make(map[string]*domain.AppliedMigration, len(applied))
		for _, a := range applied {
			byName[a.Name] = a
		}

		for _, mig := range mod.Migrations.List() {
			st := MigrationStatus{
				Module:      mod.ID,
				ID:          mig.ID,
				Description: mig.Description,
				Version:     mig.Version,
			}
			if a, ok := byName[mig.ID]; ok {
				st.Applied = true
				st.AppliedAt = a.AppliedAt
				delete(byName, mig.ID)
			}
			out = append(out, st)
		}
		for _, a := range applied {
			if _, ok := byName[a.Name]; ok {
				out = append(out, MigrationStatus{Module: mod.ID, ID: a.Name, Applied: true, AppliedAt: a.AppliedAt, Orphaned: true})
			}
		}
	}
	return out, nil
}

// Status summarises every module.
func (s *MigrationService) Status(ctx context.Context) ([]ModuleStatus, error) {
	checks, err := s.Check(ctx, "")
	if err != nil {
		return nil, err
	}

	var out []ModuleStatus
	index := make(map[string]int)
	for _, mod := range s.registry.Modules() {
		index[mod.ID] = len(out)
		out = append(out, ModuleStatus{Module: mod.ID})
	}
	for _, c := range checks {
		if c.Orphaned {
			continue
		}
		st := &out[index[c.Module]]
		st.Total++
		if c.Applied {
			st.Applied++
			st.Latest = c.ID
		} else {
			st.Pending++
		}
	}
	return out, nil
}

func (s *MigrationService) options(moduleID string, engine executor.Engine, resolver *serializer.Resolver) []manager.Option {
	return []manager.Option{
		manager.WithEngine(engine),
		manager.WithSnapshotSource(s.registry),
		manager.WithResolver(resolver),
		manager.WithLogger(s.logger.With("module", moduleID)),
	}
}

// managers builds a module's managers. With a ledger each one records or
// removes its row inside its own transaction.
func (s *MigrationService) managers(moduleID string, engine executor.Engine, resolver *serializer.Resolver, ledger bool) ([]*manager.Manager, error) {
	managers, err := s.registry.Managers(moduleID, s.options(moduleID, engine, resolver)...)
	if err != nil {
		return nil, err
	}
	if !ledger {
		return managers, nil
	}
	for _, m := range managers {
		id := m.ID
		m.Configure(manager.WithAfter(
			func(ctx context.Context, tx executor.Executor) error {
				return s.history.Record(ctx, tx, moduleID, id)
			},
			func(ctx context.Context, tx executor.Executor) error {
				return s.history.Remove(ctx, tx, moduleID, id)
			},
		))
	}
	return managers, nil
}

func (s *MigrationService) acquire(ctx context.Context) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, s.lockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	return func() {
		if err := release(); err != nil {
			s.logger.Error("failed to release migration lock", "error", err)
		}
	}, nil
}

func (s *MigrationService) modules(id string) ([]*migrant.Module, error) {
	if id == "" {
		return s.registry.Modules(), nil
	}
	mod, err := s.registry.Module(id)
	if err != nil {
		return nil, err
	}
	return []*migrant.Module{mod}, nil
}

func (s *MigrationService) appliedSet(ctx context.Context, module string) (map[string]struct{}, error) {
	applied, err := s.history.Applied(ctx, module)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(applied))
	for _, a := range applied {
		set[a.Name] = struct{}{}
	}
	return set, nil
}

func (s *MigrationService) checkVersion(mod *migrant.Module, id string) []string {
	mig, ok := mod.Migrations.Get(id)
	if !ok {
		return nil
	}
	compat, err := version.CheckCurrent(mig.Version)
	switch {
	case err != nil:
		return []string{fmt.Sprintf("migration %s: %v", id, err)}
	case compat == version.Newer:
		s.logger.Warn("migration generated by a newer version", "id", id, "version", mig.Version, "running", version.Version)
		return []string{fmt.Sprintf("migration %s was generated by migrant %s, running %s", id, mig.Version, version.Version)}
	}
	return nil
}

// backwardsTargets picks ledger entries to reverse, newest first.
func backwardsTargets(applied []*domain.AppliedMigration, to string) []string {
	var ids []string
	for i := len(applied) - 1; i >= 0; i-- {
		name := applied[i].Name
		switch {
		case to == "":
			return []string{name}
		case to == All || name >= to:
			ids = append(ids, name)
		}
	}
	return ids
}
