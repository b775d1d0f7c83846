// Package container provides dependency injection.
package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/satishbabariya/migrant/internal/adapters/database"
	"github.com/satishbabariya/migrant/internal/adapters/database/mysql"
	"github.com/satishbabariya/migrant/internal/adapters/database/postgres"
	"github.com/satishbabariya/migrant/internal/adapters/database/sqlite"
	"github.com/satishbabariya/migrant/internal/adapters/storage"
	"github.com/satishbabariya/migrant/internal/config"
	"github.com/satishbabariya/migrant/internal/core/migration/executor"
	"github.com/satishbabariya/migrant/internal/core/migration/lock"
	"github.com/satishbabariya/migrant/internal/core/query/ddl"
	"github.com/satishbabariya/migrant/internal/debug"
	"github.com/satishbabariya/migrant/internal/repository"
	"github.com/satishbabariya/migrant/internal/service"
	"github.com/satishbabariya/migrant/pkg/migrant"
)

// Adapters maps providers to their adapter constructors.
var Adapters = database.Factory{
	string(database.PostgreSQL): postgres.NewPostgresAdapter,
	string(database.MySQL):      mysql.NewMySQLAdapter,
	string(database.SQLite):     sqlite.NewSQLiteAdapter,
}

// Container holds all application dependencies.
type Container struct {
	// Configuration
	config   *config.Config
	registry *migrant.Registry
	logger   *slog.Logger

	// Adapters
	storage   storage.Storage
	dbAdapter database.Adapter

	// Repositories
	historyRepo repository.HistoryRepository

	// Services
	generateService  *service.GenerateService
	migrationService *service.MigrationService
}

// NewContainer creates a new dependency injection container. The database
// is not opened until Connect.
func NewContainer(cfg *config.Config, registry *migrant.Registry) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if registry == nil {
		registry = migrant.NewRegistry()
	}

	store, err := storage.NewStorage(&storage.Config{Type: string(storage.TypeFilesystem), BasePath: "."})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return NewContainerWithStorage(cfg, registry, store), nil
}

// NewContainerWithStorage creates a container over an explicit storage.
func NewContainerWithStorage(cfg *config.Config, registry *migrant.Registry, store storage.Storage) *Container {
	c := &Container{
		config:   cfg,
		registry: registry,
		logger:   debug.Logger(),
		storage:  store,
	}
	c.generateService = service.NewGenerateService(registry, store, c.logger)
	return c
}

// Connect opens the database and wires the services that need it.
func (c *Container) Connect(ctx context.Context) error {
	if c.dbAdapter != nil {
		return nil
	}
	if err := c.config.Validate(); err != nil {
		return err
	}

	adapter, err := Adapters.New(c.config.Database.Adapter())
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := adapter.Connect(ctx); err != nil {
		return err
	}

	dialect, err := ddl.ForProvider(string(adapter.GetDialect()))
	if err != nil {
		adapter.Disconnect(ctx)
		return err
	}
	locker, err := lock.New(adapter)
	if err != nil {
		adapter.Disconnect(ctx)
		return err
	}

	c.dbAdapter = adapter
	c.historyRepo = repository.NewHistoryRepository(adapter)
	c.migrationService = service.NewMigrationService(
		c.registry,
		adapter,
		executor.NewSQLEngine(adapter, dialect, c.logger),
		c.historyRepo,
		locker,
		c.config.Migrations.LockKey,
		c.logger,
	)
	c.logger.Debug("database connected", "provider", c.config.Database.Provider)
	return nil
}

// Close closes the database connection.
func (c *Container) Close(ctx context.Context) error {
	if c.dbAdapter == nil {
		return nil
	}
	err := c.dbAdapter.Disconnect(ctx)
	c.dbAdapter = nil
	c.migrationService = nil
	return err
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Registry returns the module registry.
func (c *Container) Registry() *migrant.Registry {
	return c.registry
}

// Storage returns the migration file storage.
func (c *Container) Storage() storage.Storage {
	return c.storage
}

// GenerateService returns the generate service.
func (c *Container) GenerateService() *service.GenerateService {
	return c.generateService
}

// MigrationService returns the migration service. It is nil before Connect.
func (c *Container) MigrationService() *service.MigrationService {
	return c.migrationService
}
