// Command console: Control Plane: API администратора (настройки, модули, диагностика, обновления, аудит).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/restguard/internal/capability"
	"github.com/xela07ax/restguard/internal/console/handler"
	"github.com/xela07ax/restguard/internal/console/server"
	"github.com/xela07ax/restguard/internal/console/service"
	"github.com/xela07ax/restguard/internal/infra"
	"github.com/xela07ax/restguard/internal/infra/auth"
	"github.com/xela07ax/restguard/internal/modules"
	"github.com/xela07ax/restguard/internal/protection"
	"github.com/xela07ax/restguard/internal/repository/postgres"
	"github.com/xela07ax/restguard/internal/settings"
	"github.com/xela07ax/restguard/internal/updater"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("console").With(zap.Int64("site_id", cfg.Site.ID))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("console stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.NonceSecret == "" {
		return errors.New("auth.nonce_secret is required")
	}
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		return err
	}

	// 1. Инициализация ресурсов
	db, err := postgres.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := postgres.NewRepo(db)
	if err := infra.WaitReady(appCtx, logger, "postgres", repo.Ping); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	if err := infra.WaitReady(appCtx, logger, "redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		return err
	}

	// 2. Инициализация слоев (Dependency Injection)
	writer := settings.NewWriter(repo, rdb, cfg.Site.ID, logger)
	registry := capability.NewRegistry(repo, logger)
	capabilities := service.NewCapabilityService(registry, rdb, logger)
	go capabilities.StartListener(appCtx)

	authService := service.NewAuthService(repo, repo, privateKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	settingsService := service.NewSettingsService(writer, protection.NewValidator(registry))
	diagnostics := service.NewDiagnosticsService(writer, auth.NewNonceManager(cfg.Auth.NonceSecret))
	auditService := service.NewAuditService(postgres.NewAuditRepo(db), cfg.Site.ID)
	upd := updater.New(writer,
		updater.NewGitHubClient(cfg.Updater.APIURL, cfg.Updater.Timeout, cfg.Updater.RatePerMinute, logger),
		updater.NewRedisReleaseCache(rdb),
		updater.Options{Slug: cfg.Updater.Slug, CurrentVersion: cfg.Updater.CurrentVersion, CacheTTL: cfg.Updater.CacheTTL},
		logger)

	h := server.Handlers{
		Auth:         handler.NewAuthHandler(authService, logger),
		Settings:     handler.NewSettingsHandler(settingsService, logger),
		Modules:      handler.NewModulesHandler(modules.NewManager(writer), logger),
		Diagnostics:  handler.NewDiagnosticsHandler(diagnostics, logger),
		Capabilities: handler.NewCapabilitiesHandler(capabilities),
		Updates:      handler.NewUpdatesHandler(upd, logger),
		Audit:        handler.NewAuditHandler(auditService, logger),
	}

	// 3. Запуск сервера
	srv := &http.Server{
		Addr:         cfg.Console.Addr(),
		Handler:      server.NewConsoleServer(logger, authService, cfg.Console.CORSOrigins, h),
		ReadTimeout:  cfg.Console.ReadTimeout,
		WriteTimeout: cfg.Console.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-appCtx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("console API exited properly")
	return nil
}
