package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bikeservice/internal/api"
	"bikeservice/internal/auth"
	"bikeservice/internal/config"
	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/events"
	"bikeservice/internal/khalti"
	"bikeservice/internal/logging"
	"bikeservice/internal/metrics"
	"bikeservice/internal/models"
	"bikeservice/internal/repository"
	"bikeservice/internal/service"
	"bikeservice/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bikes, err := loadBikes(logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(ctx, cfg, bikes, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	defer (func() { _ = repository.Close(redisClient) })()
	presence := initPresence(cfg, redisClient, logger)

	bus := events.NewEventBus()

	catalog := service.NewCatalogService(db, logging.Component(logger, "catalog"))
	if err := catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("load bike catalog: %w", err)
	}

	bookings, err := service.NewBookingService(db, catalog, bus, cfg.Booking, logging.Component(logger, "booking"))
	if err != nil {
		return err
	}

	users := service.NewUserService(db, auth.NewTokenManager(cfg.API.Auth),
		service.NewLogOTPSender(logging.Component(logger, "otp")), presence, cfg, logging.Component(logger, "users"))

	payments := service.NewPaymentService(db, db, khalti.NewClient(cfg.Khalti), nil, bus, logging.Component(logger, "payments"))
	if cfg.Worker.Enabled {
		paymentWorker := worker.NewPaymentWorker(db, payments, redisClient, worker.RetryPolicyFromConfig(cfg.Worker),
			cfg.Worker.PollInterval, logging.Component(logger, "payment-worker"))
		payments.SetQueue(paymentWorker)
		go paymentWorker.Start(ctx)
	}

	notifications := service.NewNotificationService(db, presence, logging.Component(logger, "notifications"))
	notifications.Subscribe(bus)

	if cfg.Reminders.Enabled {
		reminders := service.NewReminderService(db, notifications, bookings.Location(), cfg.Reminders.Hour,
			logging.Component(logger, "reminders"))
		go reminders.Start(ctx)
	}

	backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
	go backups.Start(ctx)

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Bookings:      bookings,
		Catalog:       catalog,
		Users:         users,
		Payments:      payments,
		Feedback:      service.NewFeedbackService(db),
		Notifications: notifications,
		Messages:      service.NewMessageService(db, db, presence, logging.Component(logger, "messages")),
		Presence:      service.NewPresenceService(presence),
		Admin: service.NewAdminService(db, catalog, db, db, cfg.Exports.Path, bookings.Location(),
			logging.Component(logger, "admin")),
		Ready: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			if redisClient != nil {
				return repository.Ping(ctx, redisClient)
			}
			return nil
		},
	}, logging.Component(logger, "http"))

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func loadBikes(logger *zerolog.Logger) ([]models.Bike, error) {
	bikesPath := os.Getenv("BIKES_PATH")
	if bikesPath == "" {
		bikesPath = "configs/bikes.yaml"
	}
	bikesData, err := os.ReadFile(bikesPath)
	if os.IsNotExist(err) {
		logger.Warn().Str("bikes_path", bikesPath).Msg("bike seed file not found, starting with stored catalog")
		return nil, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("bikes_path", bikesPath).Msg("read bikes")
		return nil, err
	}

	var bikesConfig struct {
		Bikes []models.Bike `yaml:"bikes"`
	}
	if err := yaml.Unmarshal(bikesData, &bikesConfig); err != nil {
		logger.Error().Err(err).Str("bikes_path", bikesPath).Msg("parse bikes")
		return nil, err
	}
	if err := config.ValidateBikes(bikesConfig.Bikes); err != nil {
		return nil, fmt.Errorf("invalid bike seed: %w", err)
	}

	return bikesConfig.Bikes, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, bikes []models.Bike, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if _, err := db.SeedBikes(ctx, bikes); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed bikes: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initPresence prefers redis and falls back to the in-process store.
func initPresence(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.PresenceRepository {
	ttl := time.Duration(models.PresenceTTL) * time.Second
	memory := repository.NewMemoryPresenceRepository(ttl)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverPresenceRepository(
		repository.NewRedisPresenceRepository(redisClient, ttl),
		memory,
		logging.Component(logger, "presence"),
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
