package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/migrate"
)

func migrateCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the goose schema migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "migrations directory (the default reads the embedded copy)")

	withRunner := func(cmd *cobra.Command, fn func(ctx context.Context, logg *logger.Logger, runner *migrate.Runner) error) error {
		return a.withDB(cmd.Context(), func(_ *config.Config, logg *logger.Logger, client *db.Client) error {
			source, err := migrate.Source(dir)
			if err != nil {
				return err
			}
			sqlDB, err := client.DB().DB()
			if err != nil {
				return fmt.Errorf("extracting sql.DB: %w", err)
			}
			runner, err := migrate.NewRunner(sqlDB, source)
			if err != nil {
				return err
			}
			defer runner.Close()
			return fn(logg.WithField(cmd.Context(), "dir", dir), logg, runner)
		})
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, func(ctx context.Context, logg *logger.Logger, runner *migrate.Runner) error {
				applied, err := runner.Up(ctx)
				printApplied(cmd.OutOrStdout(), applied)
				return err
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, func(ctx context.Context, logg *logger.Logger, runner *migrate.Runner) error {
				applied, err := runner.Down(ctx)
				printApplied(cmd.OutOrStdout(), applied)
				if err == nil && len(applied) > 0 {
					logg.Audit(ctx, "schema.rollback", map[string]any{"version": applied[0].Version})
				}
				return err
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, func(ctx context.Context, _ *logger.Logger, runner *migrate.Runner) error {
				rows, err := runner.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), rows)
				return nil
			})
		},
	}

	version := &cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to an exact version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, _ *logger.Logger, runner *migrate.Runner) error {
				applied, err := runner.To(ctx, args[0])
				printApplied(cmd.OutOrStdout(), applied)
				return err
			})
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new timestamped SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgGreen).Sprint("created"), path)
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Lint migration filenames and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := migrate.Source(dir)
			if err != nil {
				return err
			}
			if err := migrate.Validate(source); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("migration validation passed"))
			return nil
		},
	}

	cmd.AddCommand(up, down, status, version, create, validate)
	return cmd
}

func printApplied(out io.Writer, applied []migrate.Applied) {
	if len(applied) == 0 {
		fmt.Fprintln(out, "nothing to do")
		return
	}
	for _, m := range applied {
		fmt.Fprintf(out, "%s %s (%dms)\n", color.New(color.FgGreen).Sprint(m.Direction), m.File, m.Millis)
	}
}

func printStatus(out io.Writer, rows []*goose.MigrationStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, row := range rows {
		state := color.New(color.FgYellow).Sprint(row.State)
		appliedAt := "-"
		if row.State == goose.StateApplied {
			state = color.New(color.FgGreen).Sprint(row.State)
			appliedAt = row.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Source.Version, state, appliedAt, row.Source.Path)
	}
	_ = w.Flush()
}
