package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/restguard/internal/infra"
	"github.com/xela07ax/restguard/internal/repository/postgres"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "guardctl",
		Short: "restguard operator CLI",
		Long: `guardctl manages the restguard installation of a site:
seeding and removing settings, inspecting known capabilities,
simulating access decisions and checking for new releases.

Configuration is read the same way as guard and console:
config.yaml in . or ./configs, overridden by environment variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newInstallCmd(),
		newUninstallCmd(),
		newCapabilitiesCmd(),
		newSimulateCmd(),
		newCheckUpdateCmd(),
	)
	return root
}

// env: то, что нужно командам, работающим с базой.
type env struct {
	cfg    *infra.Config
	logger *zap.Logger
	db     *sql.DB
	repo   *postgres.Repo
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.logger.Sync()
}

func newLogger(cfg *infra.Config) (*zap.Logger, error) {
	lc := cfg.Logger
	lc.Format = "console"
	if !verbose {
		lc.Level = "warn"
	}
	return infra.NewLogger(lc)
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger.Named("guardctl"), db: db, repo: postgres.NewRepo(db)}
	if err := infra.WaitReady(ctx, e.logger, "postgres", e.repo.Ping); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}
