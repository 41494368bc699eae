package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/restguard/internal/capability"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/modules"
)

// Installer: операции хранилища, нужные хукам установки/удаления.
type Installer interface {
	SeedSettings(ctx context.Context, siteID int64, s domain.Settings) (bool, error)
	SeedRoles(ctx context.Context, roles []domain.Role) (int, error)
	DeleteSettings(ctx context.Context, siteID int64) error
	ListSiteIDs(ctx context.Context) ([]int64, error)
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Seed default settings and roles",
		Long: `Write default settings for the configured site unless they already exist,
and seed the standard WordPress role set. Existing data is never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			return install(cmd.Context(), e.repo, e.cfg.Site.ID, cmd.OutOrStdout(), e.logger)
		},
	}
}

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Delete settings of the site (or of every site in multisite mode)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			return uninstall(cmd.Context(), e.repo, e.cfg.Site.ID, e.cfg.Site.Multisite, cmd.OutOrStdout(), e.logger)
		},
	}
}

func install(ctx context.Context, repo Installer, siteID int64, out io.Writer, logger *zap.Logger) error {
	s := domain.DefaultSettings()
	modules.NewManager(nil).ApplyDefaults(&s)

	created, err := repo.SeedSettings(ctx, siteID, s)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if created {
		fmt.Fprintf(out, "settings: defaults written for site %d\n", siteID)
	} else {
		fmt.Fprintf(out, "settings: site %d already configured, left untouched\n", siteID)
	}

	roles, err := capability.DefaultRoles()
	if err != nil {
		return err
	}
	n, err := repo.SeedRoles(ctx, roles)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	fmt.Fprintf(out, "roles: %d of %d added\n", n, len(roles))

	logger.Info("install completed", zap.Int64("site_id", siteID), zap.Bool("settings_created", created), zap.Int("roles_added", n))
	return nil
}

func uninstall(ctx context.Context, repo Installer, siteID int64, multisite bool, out io.Writer, logger *zap.Logger) error {
	sites := []int64{siteID}
	if multisite {
		ids, err := repo.ListSiteIDs(ctx)
		if err != nil {
			return fmt.Errorf("list sites: %w", err)
		}
		sites = ids
	}

	for _, id := range sites {
		if err := repo.DeleteSettings(ctx, id); err != nil {
			return fmt.Errorf("delete settings of site %d: %w", id, err)
		}
		fmt.Fprintf(out, "settings: removed for site %d\n", id)
	}
	logger.Info("uninstall completed", zap.Int("sites", len(sites)))
	return nil
}
