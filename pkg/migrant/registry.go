package migrant

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/migration/manager"
	"github.com/satishbabariya/migrant/internal/core/migration/serializer"
	"github.com/satishbabariya/migrant/internal/core/migration/snapshot"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// ErrModuleNotRegistered is returned for an unknown module ID.
var ErrModuleNotRegistered = domain.ErrModuleNotRegistered

// Module is a unit of application schema with its own migration history.
type Module struct {
	ID     string
	Tables []*Table
	Enums  []EnumType
	// Migrations holds the module's generated units. May be nil for a
	// module without migrations yet.
	Migrations *MigrationSet
}

// Registry holds the modules known to a program.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

var _ manager.SnapshotSource = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds a module.
func (r *Registry) Register(m *Module) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("module id is required")
	}
	if m.Migrations != nil && m.Migrations.ModuleID() != m.ID {
		return fmt.Errorf("module %s: migration set belongs to module %s", m.ID, m.Migrations.ModuleID())
	}

	seen := make(map[string]struct{}, len(m.Tables))
	for _, t := range m.Tables {
		if _, ok := seen[t.ClassName]; ok {
			return fmt.Errorf("module %s: table class %s declared twice", m.ID, t.ClassName)
		}
		seen[t.ClassName] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[m.ID]; ok {
		return fmt.Errorf("module %s already registered", m.ID)
	}
	if m.Migrations == nil {
		m.Migrations = NewMigrationSet(m.ID)
	}
	r.modules[m.ID] = m
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(m *Module) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Module returns the module with the given ID.
func (r *Registry) Module(id string) (*Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotRegistered, id)
	}
	return m, nil
}

// Modules returns every module ordered by ID.
func (r *Registry) Modules() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LiveTables returns the comparable form of a module's declared tables.
func (r *Registry) LiveTables(moduleID string) ([]*DiffableTable, error) {
	m, err := r.Module(moduleID)
	if err != nil {
		return nil, err
	}
	return domain.FromTables(m.Tables), nil
}

// Managers builds a manager for every migration of a module, ordered by ID.
func (r *Registry) Managers(moduleID string, opts ...manager.Option) ([]*Manager, error) {
	m, err := r.Module(moduleID)
	if err != nil {
		return nil, err
	}

	migrations := m.Migrations.List()
	out := make([]*Manager, 0, len(migrations))
	for _, mig := range migrations {
		mgr := manager.New(mig.ID, moduleID, opts...)
		mgr.Description = mig.Description
		if err := mig.Build(mgr); err != nil {
			return nil, fmt.Errorf("failed to build migration %s: %w", mig.ID, err)
		}
		out = append(out, mgr)
	}
	return out, nil
}

// Snapshot reconstructs a module's schema from its full migration history.
func (r *Registry) Snapshot(moduleID string) ([]*DiffableTable, error) {
	managers, err := r.Managers(moduleID)
	if err != nil {
		return nil, err
	}
	return snapshot.Replay(managers), nil
}

// TablesBefore reconstructs a module's schema as it was before migrationID.
func (r *Registry) TablesBefore(_ context.Context, moduleID, migrationID string) ([]*domain.DiffableTable, error) {
	managers, err := r.Managers(moduleID)
	if err != nil {
		return nil, err
	}
	return snapshot.ReplayUntil(managers, migrationID), nil
}

// Resolver builds the reference context for one run. Tables and enums ever
// created by any module's history are registered first, then the live
// declarations, which win on conflicts.
func (r *Registry) Resolver() (*serializer.Resolver, error) {
	resolver := serializer.NewResolver()
	modules := r.Modules()

	for _, m := range modules {
		managers, err := r.Managers(m.ID)
		if err != nil {
			return nil, err
		}
		for _, mgr := range managers {
			registerHistory(resolver, mgr.Operations())
		}
	}

	for _, m := range modules {
		resolver.RegisterTables(m.Tables...)
		for _, e := range m.Enums {
			resolver.RegisterEnum(e)
		}
	}
	return resolver, nil
}

func registerHistory(r *serializer.Resolver, ops manager.Operations) {
	registerEnums := func(c schema.Column) {
		if e, ok := c.Params[schema.ParamChoices].(schema.EnumType); ok {
			r.RegisterEnum(e)
		}
	}
	for _, op := range ops.AddTables {
		r.RegisterTable(schema.TableRef{ClassName: op.ClassName, TableName: op.TableName})
		for _, c := range op.Columns {
			registerEnums(c)
		}
	}
	for _, op := range ops.RenameTables {
		r.RegisterTable(schema.TableRef{ClassName: op.NewClassName, TableName: op.NewTableName})
	}
	for _, op := range ops.AddColumns {
		registerEnums(op.Column)
	}
}
