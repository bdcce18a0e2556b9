package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NurulloMahmud/tafakkur/internal/app"
	"github.com/NurulloMahmud/tafakkur/internal/config"
	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/repository/postgres"
	"github.com/NurulloMahmud/tafakkur/migrations"
	"github.com/NurulloMahmud/tafakkur/pkg/database"
	"github.com/NurulloMahmud/tafakkur/pkg/logger"
)

// projector is the part of service.Projector the commands drive.
type projector interface {
	Bootstrap(ctx context.Context) (*domain.BootstrapReport, error)
	ProjectByID(ctx context.Context, entity domain.EntityType, id string) error
}

// env supplies the commands' dependencies so tests can replace them.
type env struct {
	loadConfig func() (*config.Config, error)
	projector  func(ctx context.Context, cfg *config.Config, l *slog.Logger) (projector, func() error, error)
	store      func(ctx context.Context, cfg *config.Config, l *slog.Logger) (seedStore, func() error, error)
	migrate    func(ctx context.Context, cfg *config.Config, l *slog.Logger) error
	stdout     io.Writer
	stderr     io.Writer
}

func defaultEnv() env {
	return env{
		loadConfig: config.Load,
		projector: func(ctx context.Context, cfg *config.Config, l *slog.Logger) (projector, func() error, error) {
			core, err := app.NewCore(ctx, cfg, l)
			if err != nil {
				return nil, nil, err
			}
			return core.Projector, core.Close, nil
		},
		store: func(ctx context.Context, cfg *config.Config, l *slog.Logger) (seedStore, func() error, error) {
			pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), l)
			if err != nil {
				return seedStore{}, nil, err
			}
			store := seedStore{
				Products:   postgres.NewProductRepository(pool),
				Categories: postgres.NewCategoryRepository(pool),
				Links:      postgres.NewProductCategoryRepository(pool),
			}
			return store, func() error { pool.Close(); return nil }, nil
		},
		migrate: func(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
			pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), l)
			if err != nil {
				return err
			}
			defer pool.Close()
			return database.RunMigrations(ctx, pool, migrations.FS, l)
		},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func newRootCommand(e env) *cobra.Command {
	root := &cobra.Command{
		Use:           "searchctl",
		Short:         "Maintain the catalog search indexes and schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	root.AddCommand(
		newBootstrapCommand(e),
		newProjectCommand(e),
		newMigrateCommand(e),
		newSeedCommand(e),
	)
	return root
}

// setup loads configuration and a logger writing to stderr, leaving stdout
// for command output.
func (e env) setup() (*config.Config, *slog.Logger, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewWithWriter("searchctl", cfg.LogLevel, e.stderr), nil
}

func newBootstrapCommand(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create every search index and load all rows into it",
		Long: `Create the product, category and user indexes when missing, stream every
row from Postgres into them in bulk batches and refresh each index.

Re-running is safe: documents are overwritten by id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := e.setup()
			if err != nil {
				return err
			}
			p, closeFn, err := e.projector(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := p.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newProjectCommand(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "project <entity> <id>",
		Short: "Re-project one row into its search index",
		Example: `  searchctl project product 3f0c9c1e-8d1e-4b43-9a57-0d7f3c1b2a10
  searchctl project users 6a1e51f4-2f62-4f8e-a8a4-1b6e0c39d7de`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := domain.ParseEntity(args[0])
			if err != nil {
				return err
			}
			cfg, l, err := e.setup()
			if err != nil {
				return err
			}
			p, closeFn, err := e.projector(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := p.ProjectByID(cmd.Context(), entity, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "projected %s %s\n", entity, args[1])
			return nil
		},
	}
}

func newMigrateCommand(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := e.setup()
			if err != nil {
				return err
			}
			if err := e.migrate(cmd.Context(), cfg, l); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
