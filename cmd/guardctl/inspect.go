package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/restguard/internal/capability"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/protection"
	"github.com/xela07ax/restguard/internal/settings"
	"github.com/xela07ax/restguard/internal/updater"
)

func newCapabilitiesCmd() *cobra.Command {
	var builtin bool
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "List capabilities known to the site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if builtin {
				roles, err := capability.DefaultRoles()
				if err != nil {
					return err
				}
				return printCapabilities(cmd, capability.NewRegistry(capability.StaticSource(roles), zap.NewNop()))
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			return printCapabilities(cmd, capability.NewRegistry(e.repo, e.logger))
		},
	}
	cmd.Flags().BoolVar(&builtin, "builtin", false, "use the embedded default roles instead of the database")
	return cmd
}

func printCapabilities(cmd *cobra.Command, r *capability.Registry) error {
	caps, err := r.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(caps, "\n"))
	return nil
}

var simulateFlags struct {
	mode       string
	capability string
	disabled   bool
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [scenario...]",
		Short: "Show the decision for each caller scenario",
		Long: `Simulate the access decision on /wp/v2/users without contacting WordPress.

Scenarios: guest, no_cap, has_cap. Without arguments all three are shown.

Examples:
  guardctl simulate
  guardctl simulate guest --mode sanitize
  guardctl simulate no_cap --capability edit_posts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := domain.Settings{
				Enabled:            !simulateFlags.disabled,
				ProtectionMode:     domain.ProtectionMode(simulateFlags.mode),
				RequiredCapability: protection.StripCapability(simulateFlags.capability),
			}.Protection()

			scenarios := []domain.Scenario{domain.ScenarioGuest, domain.ScenarioNoCap, domain.ScenarioHasCap}
			if len(args) > 0 {
				scenarios = scenarios[:0]
				for _, a := range args {
					sc := domain.Scenario(a)
					if !sc.Valid() || sc == domain.ScenarioCurrent {
						return fmt.Errorf("unknown scenario %q", a)
					}
					scenarios = append(scenarios, sc)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, sc := range scenarios {
				if err := enc.Encode(protection.Simulate(cfg, sc, nil)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&simulateFlags.mode, "mode", string(domain.ModeBlock), "protection mode: block or sanitize")
	cmd.Flags().StringVar(&simulateFlags.capability, "capability", domain.DefaultCapability, "required capability")
	cmd.Flags().BoolVar(&simulateFlags.disabled, "disabled", false, "simulate with protection turned off")
	return cmd
}

func newCheckUpdateCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "check-update",
		Short: "Check GitHub for a newer release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			// Кэш общий с guard и console; без Redis проверяем напрямую
			var cache updater.ReleaseCache
			rdb := redis.NewClient(&redis.Options{Addr: e.cfg.Redis.Addr, Password: e.cfg.Redis.Password, DB: e.cfg.Redis.DB})
			defer rdb.Close()
			if rdb.Ping(cmd.Context()).Err() == nil {
				cache = updater.NewRedisReleaseCache(rdb)
			}

			u := updater.New(settings.NewWriter(e.repo, nil, e.cfg.Site.ID, e.logger),
				updater.NewGitHubClient(e.cfg.Updater.APIURL, e.cfg.Updater.Timeout, e.cfg.Updater.RatePerMinute, e.logger),
				cache,
				updater.Options{Slug: e.cfg.Updater.Slug, CurrentVersion: e.cfg.Updater.CurrentVersion, CacheTTL: e.cfg.Updater.CacheTTL},
				e.logger)

			out := cmd.OutOrStdout()
			if !u.Configured(cmd.Context()) {
				fmt.Fprintln(out, "update repository is not configured")
				return nil
			}
			info := u.Check(cmd.Context(), force)
			if info == nil {
				fmt.Fprintf(out, "restguard %s is up to date\n", u.CurrentVersion())
				return nil
			}
			fmt.Fprintf(out, "restguard %s is available (current %s)\n  download: %s\n  details:  %s\n",
				info.Version, u.CurrentVersion(), info.DownloadURL, info.InfoURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass the release cache")
	return cmd
}
