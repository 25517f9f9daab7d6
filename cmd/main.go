// @title        Warning Engine API
// @version      1.0
// @description  Detects operational problems in real-estate agencies and delivers warnings to the people who can fix them.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in           header
// @name         Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"warnengine/docs"
	"warnengine/internal/caching"
	"warnengine/internal/config"
	"warnengine/internal/handlers"
	"warnengine/internal/jobs"
	"warnengine/internal/jobs/background"
	"warnengine/internal/jobs/rules"
	"warnengine/internal/metrics"
	"warnengine/internal/middleware"
	"warnengine/internal/models"
	"warnengine/internal/repositories"
	"warnengine/internal/services"
	"warnengine/pkg/database"
	"warnengine/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format, "warnengine")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("warnengine stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	started := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	clock := clockwork.NewRealClock()

	if cfg.Database.MigrateOnStart {
		if err := database.RunMigrations(cfg.Database.URL, zl); err != nil {
			return err
		}
	}
	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, zl)
	if err != nil {
		return err
	}
	defer pool.Close()

	cache := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, zl)

	agencyLoc, err := time.LoadLocation(cfg.Delivery.AgencyTimezone)
	if err != nil {
		return fmt.Errorf("agency timezone %q: %w", cfg.Delivery.AgencyTimezone, err)
	}

	// Repositories
	definitionRepo := repositories.NewDefinitionRepository(pool)
	configurationRepo := repositories.NewConfigurationRepository(pool)
	warningRepo := repositories.NewActiveWarningRepository(pool)
	queueRepo := repositories.NewNotificationQueueRepository(pool)
	settingsRepo := repositories.NewUserSettingsRepository(pool)
	signalRepo := repositories.NewSignalRepository(pool)

	// Services
	catalog := services.NewDefinitionCatalog(definitionRepo, cache, cfg.Redis.CacheTTL, clock, zl)
	resolver := services.NewConfigResolver(configurationRepo, catalog, clock, zl)
	warningSvc := services.NewWarningService(warningRepo, resolver, catalog, clock, zl)
	settingsSvc := services.NewNotificationSettingsService(settingsRepo, clock, zl)
	notificationSvc := services.NewNotificationService(queueRepo, clock, zl)
	composer := services.NewComposer(queueRepo, settingsSvc, services.NewTemplateRenderer(), clock, agencyLoc, zl)

	providers := services.NewProviderRegistry(services.NewLogProvider(zl))
	providers.Register(models.ChannelInApp, services.InAppProvider{})
	providers.Register(models.ChannelWebhook, services.NewWebhookProvider(cfg.Relay.Timeout, clock.Now))
	relays := map[models.NotificationChannel]string{
		models.ChannelEmail: cfg.Relay.EmailURL,
		models.ChannelSMS:   cfg.Relay.SMSURL,
		models.ChannelPush:  cfg.Relay.PushURL,
	}
	for channel, url := range relays {
		if url == "" {
			zl.Warn("no relay configured, falling back to log provider", zap.String("channel", string(channel)))
			continue
		}
		name := "relay-" + string(channel)
		providers.Register(channel, services.NewRelayProvider(name, url, cfg.Relay.APIKey, cfg.Relay.Timeout, zl))
	}

	// Jobs
	evaluator := jobs.NewWarningEvaluator(signalRepo, catalog, resolver, warningSvc, composer,
		rules.Defaults(signalRepo), cache, cfg.Scheduler.LockTTL, clock, zl)
	escalation := jobs.NewEscalationSweep(warningRepo, signalRepo, catalog, resolver, warningSvc, composer,
		cache, cfg.Scheduler.LockTTL, clock, zl)

	rates := make(map[models.NotificationChannel]float64, len(cfg.Delivery.ChannelRates))
	for channel, rate := range cfg.Delivery.ChannelRates {
		rates[models.NotificationChannel(channel)] = rate
	}
	delivery := jobs.NewDeliveryWorker(queueRepo, warningRepo, settingsSvc, services.NewPreferenceGate(), providers,
		services.NewAddressResolver(signalRepo), jobs.DeliveryOptions{
			WorkerID:        cfg.Delivery.WorkerID,
			BatchSize:       cfg.Delivery.BatchSize,
			SendTimeout:     cfg.Delivery.SendTimeout,
			ClaimStaleAfter: cfg.Delivery.ClaimStaleAfter,
			ChannelRates:    rates,
			RateBurst:       cfg.Delivery.RateBurst,
		}, clock, zl)

	var archiver background.Archiver
	if cfg.MinIO.Enabled {
		store, err := services.NewMinioArchiveStore(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
			cfg.MinIO.UseSSL, cfg.MinIO.Bucket)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		if err := store.EnsureBucketExists(ctx); err != nil {
			return fmt.Errorf("minio bucket %s: %w", cfg.MinIO.Bucket, err)
		}
		archiver = jobs.NewFailedDeliveryArchiver(queueRepo, store, cfg.Delivery.WorkerID, clock, zl)
	}

	scheduler, err := background.NewJobScheduler(cfg.Scheduler, evaluator, escalation, delivery, archiver, clock, zl)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			zl.Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()

	if cfg.Kafka.Enabled {
		group, err := jobs.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			return fmt.Errorf("kafka consumer group: %w", err)
		}
		consumer := jobs.NewLeadEventsConsumer(cfg.Kafka.Topic, group, evaluator, zl)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("lead events consumer stopped", zap.Error(err))
			}
		}()
	}

	// HTTP
	authenticator, err := middleware.NewAuthenticator(cfg.JWT, zl)
	if err != nil {
		return err
	}
	defer authenticator.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{AllowOrigins: cfg.HTTP.CORSOrigins}))
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.NewAuditMiddleware(zl).AuditRequest())

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	health := handlers.NewHealthHandlers(
		map[string]handlers.Pinger{"database": handlers.PingFunc(pool.Ping)},
		map[string]handlers.Pinger{"redis": cache},
		version, started,
	)
	e.GET("/health", health.HealthCheck)
	e.GET("/health/ready", health.ReadinessCheck)
	e.GET("/health/live", health.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	docs.SwaggerInfo.Version = version
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := &handlers.API{
		Warnings:      handlers.NewWarningHandlers(warningSvc),
		Definitions:   handlers.NewDefinitionHandlers(catalog),
		Configs:       handlers.NewConfigurationHandlers(resolver),
		Settings:      handlers.NewNotificationSettingsHandlers(settingsSvc),
		Notifications: handlers.NewNotificationHandlers(notificationSvc),
		Callbacks:     handlers.NewProviderCallbackHandlers(notificationSvc, cfg.Relay.APIKey),
		Jobs:          handlers.NewJobHandlers(scheduler),
	}
	api.Register(versionMiddleware.VersionRoute(e, "v1"), authenticator.Middleware())

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("warnengine starting", zap.String("version", version), zap.Int("port", cfg.HTTP.Port),
			zap.String("environment", cfg.Environment))
		if err := e.Start(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
