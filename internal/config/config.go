// Package config provides configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/migrant/internal/adapters/database"
)

// AppFs is the filesystem config and env files are read from.
var AppFs = afero.NewOsFs()

// FileName is the config file name without extension.
const FileName = ".migrant"

// Config represents application configuration.
type Config struct {
	Database   DatabaseConfig
	Migrations MigrationsConfig
	Debug      DebugConfig
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	Provider       string
	URL            string
	Driver         string
	MaxConnections int
	MaxIdleTime    int
	ConnectTimeout int
}

// MigrationsConfig says where migration units live and how they are named.
type MigrationsConfig struct {
	// Dir is the directory generated units are written to.
	Dir string
	// Package is the Go package name of generated units.
	Package string
	// Module is the module ID recorded in the ledger.
	Module string
	// Schema is an optional DSL file used as the live schema.
	Schema string
	// LockKey identifies the migration lock.
	LockKey string
}

// DebugConfig represents logging configuration.
type DebugConfig struct {
	Enabled bool
	JSON    bool
}

// Adapter returns the adapter configuration.
func (d DatabaseConfig) Adapter() database.Config {
	return database.Config{
		Provider:       d.Provider,
		URL:            d.URL,
		Driver:         d.Driver,
		MaxConnections: d.MaxConnections,
		MaxIdleTime:    d.MaxIdleTime,
		ConnectTimeout: d.ConnectTimeout,
	}
}

// New returns a viper instance with search paths, env binding and defaults
// set up. The home directory is searched when it can be resolved.
func New() *viper.Viper {
	v := viper.New()
	v.SetFs(AppFs)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "migrant"))
	}

	v.SetEnvPrefix("MIGRANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.provider", "sqlite")
	v.SetDefault("database.max_connections", 5)
	v.SetDefault("database.connect_timeout", 10)
	v.SetDefault("migrations.dir", "migrations")
	v.SetDefault("migrations.package", "migrations")
	v.SetDefault("migrations.lock_key", "migrant")
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.json", false)
	return v
}

// LoadConfig loads configuration from the config file, .env files and the
// environment. A missing config file is not an error.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom is LoadConfig with an explicit config file. An empty path
// searches the default locations.
func LoadConfigFrom(path string) (*Config, error) {
	loadEnvFiles()

	v := New()
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return FromViper(v), nil
}

// FromViper builds a Config from v.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Provider:       v.GetString("database.provider"),
			URL:            v.GetString("database.url"),
			Driver:         v.GetString("database.driver"),
			MaxConnections: v.GetInt("database.max_connections"),
			MaxIdleTime:    v.GetInt("database.max_idle_time"),
			ConnectTimeout: v.GetInt("database.connect_timeout"),
		},
		Migrations: MigrationsConfig{
			Dir:     v.GetString("migrations.dir"),
			Package: v.GetString("migrations.package"),
			Module:  v.GetString("migrations.module"),
			Schema:  v.GetString("migrations.schema"),
			LockKey: v.GetString("migrations.lock_key"),
		},
		Debug: DebugConfig{
			Enabled: v.GetBool("debug.enabled"),
			JSON:    v.GetBool("debug.json"),
		},
	}

	// DATABASE_URL is honoured like most tools do.
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Migrations.Module == "" {
		cfg.Migrations.Module = filepath.Base(cfg.Migrations.Dir)
	}
	return cfg
}

// Validate reports configuration errors that must stop a run before any
// database work.
func (c *Config) Validate() error {
	switch database.SQLDialect(c.Database.Provider) {
	case database.PostgreSQL, database.MySQL, database.SQLite:
	default:
		return fmt.Errorf("unsupported database provider: %q", c.Database.Provider)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is not set (MIGRANT_DATABASE_URL or DATABASE_URL)")
	}
	if c.Migrations.Dir == "" {
		return fmt.Errorf("migrations directory is not set")
	}
	return nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("database.provider", cfg.Database.Provider)
	v.Set("database.url", cfg.Database.URL)
	if cfg.Database.Driver != "" {
		v.Set("database.driver", cfg.Database.Driver)
	}
	v.Set("migrations.dir", cfg.Migrations.Dir)
	v.Set("migrations.package", cfg.Migrations.Package)
	v.Set("migrations.module", cfg.Migrations.Module)
	if cfg.Migrations.Schema != "" {
		v.Set("migrations.schema", cfg.Migrations.Schema)
	}
	v.Set("debug.enabled", cfg.Debug.Enabled)

	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return v.WriteConfigAs(path)
}

// loadEnvFiles loads .env and then .env.local, which wins.
func loadEnvFiles() {
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}
