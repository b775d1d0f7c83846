package migrant

import (
	"fmt"
	"sort"
	"sync"
)

// Migration is one registered migration unit.
type Migration struct {
	// ID orders migrations within a module and names them in the ledger.
	ID string
	// Version is the toolkit version that generated the unit.
	Version     string
	Description string
	// Build queues the unit's operations on a fresh manager.
	Build func(m *Manager) error
}

// MigrationSet collects the migrations of one module. Generated units
// register themselves from init functions.
type MigrationSet struct {
	moduleID string

	mu         sync.RWMutex
	migrations map[string]Migration
}

// NewMigrationSet creates an empty set for moduleID.
func NewMigrationSet(moduleID string) *MigrationSet {
	return &MigrationSet{moduleID: moduleID, migrations: make(map[string]Migration)}
}

// ModuleID returns the module the set belongs to.
func (s *MigrationSet) ModuleID() string { return s.moduleID }

// Register adds m to the set. It panics on an empty or duplicate ID, which
// can only come from a broken migrations package.
func (s *MigrationSet) Register(m Migration) {
	if m.ID == "" {
		panic("migrant: migration registered without an id")
	}
	if m.Build == nil {
		panic(fmt.Sprintf("migrant: migration %s registered without a build function", m.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.migrations[m.ID]; ok {
		panic(fmt.Sprintf("migrant: migration %s registered twice in module %s", m.ID, s.moduleID))
	}
	s.migrations[m.ID] = m
}

// Get returns the migration with the given ID.
func (s *MigrationSet) Get(id string) (Migration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.migrations[id]
	return m, ok
}

// List returns every migration ordered by ID.
func (s *MigrationSet) List() []Migration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Migration, 0, len(s.migrations))
	for _, m := range s.migrations {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered migrations.
func (s *MigrationSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.migrations)
}
