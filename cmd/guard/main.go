// Command guard: data plane: reverse proxy перед WordPress, который защищает /wp/v2/users.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/restguard/internal/audit"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/engine"
	"github.com/xela07ax/restguard/internal/infra"
	"github.com/xela07ax/restguard/internal/infra/auth"
	"github.com/xela07ax/restguard/internal/modules"
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
	logger = logger.Named("guard").With(zap.Int64("site_id", cfg.Site.ID))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("guard stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст для управления жизненным циклом фоновых горутин
	// SIGTERM/SIGINT отменяет его и останавливает слушателей
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Gateway.UpstreamURL == "" {
		return errors.New("gateway.upstream_url is required")
	}
	upstream, err := url.Parse(cfg.Gateway.UpstreamURL)
	if err != nil {
		return err
	}
	pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		return err
	}

	// 1. Инфраструктура и ресурсы
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

	// 2. Настройки: L1 кэш + подписка на изменения из консоли
	store := settings.NewStore(repo, cfg.Site.ID, logger)
	if err := store.Load(appCtx); err != nil {
		return err
	}
	go store.StartListener(appCtx, rdb)
	logger.Info("settings loaded",
		zap.Int64("site_id", cfg.Site.ID),
		zap.Strings("modules", modules.NewManager(nil).EnabledIDs(store.Current())),
	)

	// 3. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 4. Аудит: данные полетят в базу пачками
	recorder := audit.NewRecorder(postgres.NewAuditRepo(db), cfg.Engine.AuditBufferSize, cfg.Engine.AuditFlushInterval, logger)
	recorder.Start()
	defer recorder.Stop()
	metrics.ObserveAuditor(recorder.Pending, recorder.Dropped)

	// 5. Плановая проверка обновлений
	upd := updater.New(store,
		updater.NewGitHubClient(cfg.Updater.APIURL, cfg.Updater.Timeout, cfg.Updater.RatePerMinute, logger),
		updater.NewRedisReleaseCache(rdb),
		updater.Options{Slug: cfg.Updater.Slug, CurrentVersion: cfg.Updater.CurrentVersion, CacheTTL: cfg.Updater.CacheTTL},
		logger)
	scheduler := updater.NewScheduler(upd, cfg.Updater.Schedule, func(info *domain.UpdateInfo) {
		if info == nil {
			metrics.UpdateChecks.WithLabelValues("none").Inc()
			metrics.UpdateAvailable.Set(0)
			return
		}
		metrics.UpdateChecks.WithLabelValues("available").Inc()
		metrics.UpdateAvailable.Set(1)
	}, logger)
	if err := scheduler.Start(appCtx); err != nil {
		return err
	}
	defer scheduler.Stop()

	// 6. Цепочка защиты (снизу вверх)
	// Trace -> Identity (JWT, опционально) -> Gateway (решение) -> ReverseProxy
	proxy := engine.NewProxy(upstream, metrics, logger)
	gateway := engine.NewGateway(store, proxy, recorder, metrics, cfg.Site.ID, logger)
	handler := engine.TracingMiddleware(
		auth.NewOptionalMiddleware(auth.NewBaseValidator(pub, cfg.Auth.Issuer), logger)(gateway),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("metrics exporter started", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("guard started", zap.String("addr", srv.Addr), zap.String("upstream", upstream.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 7. Graceful Shutdown
	select {
	case <-appCtx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("guard stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info("guard exited properly")
	return nil
}
