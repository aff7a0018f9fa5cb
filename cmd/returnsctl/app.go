package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// app holds the lazily built dependencies shared by subcommands. Commands that
// never touch the database (token, shipping-fee, migrate create) only load config.
type app struct {
	loadConfig func() (*config.Config, error)
	openDB     func(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error)
	logOutput  io.Writer
}

func defaultApp() *app {
	return &app{
		loadConfig: config.Load,
		openDB: func(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
			return db.New(ctx, cfg.DB, logg)
		},
		logOutput: os.Stderr,
	}
}

func (a *app) config() (*config.Config, *logger.Logger, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = "returnsctl"
	logg := logger.New(logger.Options{
		ServiceName: "returnsctl",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Output:      a.logOutput,
	})
	return cfg, logg, nil
}

// withDB runs fn against a freshly opened database and closes it afterwards.
func (a *app) withDB(ctx context.Context, fn func(cfg *config.Config, logg *logger.Logger, client *db.Client) error) error {
	cfg, logg, err := a.config()
	if err != nil {
		return err
	}
	client, err := a.openDB(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logg.Error(ctx, "error closing database", cerr)
		}
	}()
	return fn(cfg, logg, client)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "returnsctl",
		Short:         "Operator tooling for the returns engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(a),
		policiesCmd(a),
		quoteCmd(a),
		shippingFeeCmd(a),
		recomputeStockCmd(a),
		transitionCmd(a),
		tokenCmd(a),
		dlqCmd(a),
	)
	return root
}
