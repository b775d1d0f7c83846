package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/migrant/internal/core/migration/decision"
	"github.com/satishbabariya/migrant/internal/core/migration/differ"
	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/debug"
	"github.com/satishbabariya/migrant/internal/service"
	"github.com/satishbabariya/migrant/internal/ui"
	"github.com/satishbabariya/migrant/internal/watch"
)

// Rename answer modes for migrate new.
const (
	RenameAsk   = "ask"
	RenameStdin = "stdin"
	RenameYes   = "yes"
	RenameNo    = "no"
)

// NewMigrateCommand creates the migrate command with subcommands.
func NewMigrateCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  "Create, apply, reverse and inspect migrations",
	}

	cmd.AddCommand(newMigrateNewCommand(app))
	cmd.AddCommand(newMigrateForwardsCommand(app))
	cmd.AddCommand(newMigrateBackwardsCommand(app))
	cmd.AddCommand(newMigrateCheckCommand(app))
	cmd.AddCommand(newMigrateStatusCommand(app))

	return cmd
}

type newOptions struct {
	blank      bool
	dryRun     bool
	schemaFile string
	rename     string
	watch      bool
}

func newMigrateNewCommand(app *App) *cobra.Command {
	opts := &newOptions{}

	cmd := &cobra.Command{
		Use:   "new [description]",
		Short: "Create a migration",
		Long:  "Create a migration from the differences between the declared tables and the migration history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) == 1 {
				description = args[0]
			}
			if opts.schemaFile == "" {
				opts.schemaFile = app.container.Config().Migrations.Schema
			}
			if opts.watch {
				return runMigrateWatch(cmd.Context(), app, opts)
			}
			return runMigrateNew(cmd.Context(), app, opts, description)
		},
	}

	cmd.Flags().BoolVar(&opts.blank, "blank", false, "Create an empty migration for hand-written steps")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the migration instead of writing it")
	cmd.Flags().StringVar(&opts.schemaFile, "schema", "", "Read the live schema from a .tables file")
	cmd.Flags().StringVar(&opts.rename, "rename", RenameAsk, "How rename questions are answered: ask, stdin, yes or no")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Show the pending changes each time the schema file changes")

	return cmd
}

// decider builds the rename decider for mode.
func decider(mode string) (differ.Decider, error) {
	switch mode {
	case RenameAsk:
		return decision.Survey(), nil
	case RenameStdin:
		return decision.FromReader(os.Stdin, os.Stdout), nil
	case RenameYes:
		return decision.Always(true), nil
	case RenameNo:
		return decision.Always(false), nil
	}
	return nil, fmt.Errorf("invalid --rename value %q", mode)
}

func runMigrateNew(ctx context.Context, app *App, opts *newOptions, description string) error {
	decide, err := decider(opts.rename)
	if err != nil {
		return err
	}
	cfg := app.container.Config()

	result, err := app.container.GenerateService().NewMigration(ctx, service.NewMigrationInput{
		Module:      app.Module(),
		Description: description,
		Dir:         cfg.Migrations.Dir,
		Package:     cfg.Migrations.Package,
		SchemaFile:  opts.schemaFile,
		Blank:       opts.blank,
		DryRun:      opts.dryRun,
		Decide:      decide,
	})
	if errors.Is(err, domain.ErrNoChanges) {
		ui.PrintInfo("No changes detected")
		return nil
	}
	if err != nil {
		return err
	}

	if result.Diff != nil {
		if err := printDiff(result.Diff); err != nil {
			return err
		}
	}
	if opts.dryRun {
		return ui.PrintMarkdown("# " + result.ID + "\n\n" + ui.CodeBlock(string(result.Source), "go"))
	}
	ui.PrintSuccess("Created migration %s", result.Path)
	return nil
}

func runMigrateWatch(ctx context.Context, app *App, opts *newOptions) error {
	if opts.schemaFile == "" {
		return fmt.Errorf("--watch needs a schema file (--schema or migrations.schema)")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	module := app.Module()
	w, err := watch.NewWatcher(opts.schemaFile, func(ctx context.Context) error {
		diff, err := app.container.GenerateService().Diff(ctx, module, opts.schemaFile, decision.Always(false))
		if err != nil {
			ui.PrintError("%v", err)
			return nil
		}
		if diff.Empty() {
			ui.PrintInfo("No changes detected")
			return nil
		}
		return printDiff(diff)
	}, debug.Logger())
	if err != nil {
		return err
	}

	ui.PrintInfo("Watching %s (Ctrl+C to stop)", opts.schemaFile)
	return w.Run(ctx)
}

func printDiff(diff *differ.Result) error {
	var rows [][]string
	for _, c := range diff.Summary() {
		if c.Count > 0 {
			rows = append(rows, []string{c.Name, strconv.Itoa(c.Count)})
		}
	}
	if err := ui.PrintTable([]string{"Change", "Count"}, rows); err != nil {
		return err
	}
	for _, w := range diff.Warnings {
		ui.PrintWarning("%s", w)
	}
	return nil
}

func newMigrateForwardsCommand(app *App) *cobra.Command {
	var to string
	var fake, sql bool

	cmd := &cobra.Command{
		Use:   "forwards",
		Short: "Apply pending migrations",
		Long:  "Apply pending migrations of the selected module, or of every module",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			input := service.ForwardsInput{Module: app.module, To: to, Fake: fake}

			if sql {
				statements, err := app.container.MigrationService().Preview(ctx, input)
				if err != nil {
					return err
				}
				if len(statements) == 0 {
					ui.PrintInfo("No pending migrations")
					return nil
				}
				return ui.PrintMarkdown(ui.CodeBlock(strings.Join(statements, ";\n")+";", "sql"))
			}

			result, err := app.container.MigrationService().Forwards(ctx, input)
			printRun(result, "Applied", fake)
			return err
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Last migration ID to apply")
	cmd.Flags().BoolVar(&fake, "fake", false, "Record migrations as applied without running them")
	cmd.Flags().BoolVar(&sql, "sql", false, "Print the statements instead of executing them")

	return cmd
}

func newMigrateBackwardsCommand(app *App) *cobra.Command {
	var to string
	var fake, yes bool

	cmd := &cobra.Command{
		Use:   "backwards",
		Short: "Reverse applied migrations",
		Long:  "Reverse the latest migration, every migration from --to onwards, or all of them with --to all",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			module := app.Module()
			if !yes {
				target := "the latest migration"
				switch {
				case to == service.All:
					target = "all migrations"
				case to != "":
					target = "migrations from " + to
				}
				confirmed := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Reverse %s of module %s?", target, module)}
				if err := survey.AskOne(prompt, &confirmed); err != nil || !confirmed {
					ui.PrintInfo("Aborted")
					return nil
				}
			}

			if err := app.connect(ctx); err != nil {
				return err
			}
			result, err := app.container.MigrationService().Backwards(ctx, service.BackwardsInput{
				Module: module, To: to, Fake: fake,
			})
			printRun(result, "Reversed", fake)
			return err
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Earliest migration ID to reverse, or \"all\"")
	cmd.Flags().BoolVar(&fake, "fake", false, "Remove ledger rows without running the reversal")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func printRun(result *service.RunResult, verb string, fake bool) {
	if result == nil {
		return
	}
	for _, w := range result.Warnings {
		ui.PrintWarning("%s", w)
	}
	if len(result.Migrations) == 0 {
		ui.PrintInfo("Nothing to do")
		return
	}
	for i, m := range result.Migrations {
		label := m.Module + " " + m.ID
		if m.Description != "" {
			label += " " + ui.SecondaryStyle.Render(m.Description)
		}
		ui.PrintStep(i+1, len(result.Migrations), label)
	}
	if fake {
		verb += " (fake)"
	}
	ui.PrintSuccess("%s %d migration(s)", verb, len(result.Migrations))
}

func newMigrateCheckCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List migrations and whether they have run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			statuses, err := app.container.MigrationService().Check(ctx, app.module)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				ui.PrintInfo("No migrations")
				return nil
			}

			rows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				appliedAt := ""
				if st.Applied {
					appliedAt = st.AppliedAt.Format("2006-01-02 15:04:05")
				}
				description := st.Description
				if st.Orphaned {
					description = ui.WarningStyle.Render("no migration unit")
				}
				rows = append(rows, []string{st.Module, st.ID, description, st.Version, ui.Mark(st.Applied), appliedAt})
			}
			return ui.PrintTable([]string{"Module", "ID", "Description", "Version", "Ran", "Applied At"}, rows)
		},
	}
}

func newMigrateStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarise migrations per module",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.connect(ctx); err != nil {
				return err
			}
			modules, err := app.container.MigrationService().Status(ctx)
			if err != nil {
				return err
			}

			ui.PrintHeader("Migration status", app.container.Config().Database.Provider)
			rows := make([][]string, 0, len(modules))
			for _, m := range modules {
				rows = append(rows, []string{m.Module, strconv.Itoa(m.Total), strconv.Itoa(m.Applied), strconv.Itoa(m.Pending), m.Latest})
			}
			return ui.PrintTable([]string{"Module", "Total", "Applied", "Pending", "Latest"}, rows)
		},
	}
}
