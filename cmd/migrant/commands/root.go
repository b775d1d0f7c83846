// Package commands implements CLI commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/migrant/internal/config"
	"github.com/satishbabariya/migrant/internal/debug"
	"github.com/satishbabariya/migrant/internal/ui"
	"github.com/satishbabariya/migrant/internal/utils/container"
	"github.com/satishbabariya/migrant/internal/version"
	"github.com/satishbabariya/migrant/pkg/migrant"
)

// App carries the state shared by every command.
type App struct {
	registry  *migrant.Registry
	container *container.Container

	configFile string
	module     string
	verbose    bool
	jsonLog    bool
}

// Module returns the module selected by flag or config.
func (a *App) Module() string {
	if a.module != "" {
		return a.module
	}
	return a.container.Config().Migrations.Module
}

// NewRootCommand creates the root command for the modules in registry.
func NewRootCommand(registry *migrant.Registry) *cobra.Command {
	if registry == nil {
		registry = migrant.NewRegistry()
	}
	app := &App{registry: registry}

	cmd := &cobra.Command{
		Use:           "migrant",
		Short:         "Schema migrations for Go",
		Long:          "migrant generates, applies and reverses schema migrations from table definitions declared in Go",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.container == nil {
				return nil
			}
			return app.container.Close(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&app.configFile, "config", "", "Config file (default .migrant.yaml)")
	cmd.PersistentFlags().StringVarP(&app.module, "module", "m", "", "Module to operate on")
	cmd.PersistentFlags().BoolVar(&app.verbose, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&app.jsonLog, "log-json", false, "Write debug logs as JSON")

	cmd.AddCommand(NewMigrateCommand(app))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func (a *App) init() error {
	cfg, err := config.LoadConfigFrom(a.configFile)
	if err != nil {
		return err
	}

	if a.verbose || cfg.Debug.Enabled {
		debug.Configure(debug.Options{
			Output: os.Stderr,
			Level:  slog.LevelDebug,
			JSON:   a.jsonLog || cfg.Debug.JSON,
		})
	}

	c, err := container.NewContainer(cfg, a.registry)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	a.container = c

	// A module named in config but not compiled in is registered without
	// tables or history.
	if id := a.Module(); id != "" {
		if _, err := a.registry.Module(id); err != nil {
			if err := a.registry.Register(&migrant.Module{ID: id}); err != nil {
				return err
			}
		}
	}
	return nil
}

// connect opens the database for commands that need it.
func (a *App) connect(ctx context.Context) error {
	if err := a.container.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// Execute runs the CLI for the modules in registry and exits on error.
// Applications call it from their own main package so that their migration
// units are compiled in.
func Execute(registry *migrant.Registry) {
	if err := NewRootCommand(registry).ExecuteContext(context.Background()); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}
}
