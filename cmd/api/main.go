package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelbooking/internal/api"
	"hotelbooking/internal/clock"
	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/database/postgres"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"
	"hotelbooking/internal/repository"
	"hotelbooking/internal/service"
	"hotelbooking/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

type core struct {
	ledger   *service.InventoryLedger
	pricing  *service.PricingEngine
	holds    *service.HoldManager
	bookings *service.BookingStateMachine
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

	seeds, err := config.LoadRoomTypes(cfg.RoomTypesPath)
	if err != nil {
		logger.Error().Err(err).Str("room_types_path", cfg.RoomTypesPath).Msg("load room types")
		return err
	}

	store, sqliteDB, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	clk := clock.NewSystem()
	bus := events.NewEventBus()
	svc := newCore(cfg, store, bus, clk, &logger)

	if err := service.SeedRoomTypes(ctx, store, svc.ledger, seeds, clk.Now(), cfg.Reservation.InventoryHorizonDays, &logger); err != nil {
		logger.Error().Err(err).Msg("seed room types")
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	sessions := initSessions(redisClient, clk, &logger)

	startMetrics(ctx, cfg, &logger)

	if cfg.Refunds.WorkerEnabled {
		refundWorker := newRefundWorker(cfg, store, svc.bookings, redisClient, &logger)
		bus.Subscribe(events.EventBookingCancelled, refundWorker.HandleEvent)
		bus.Subscribe(events.EventRefundRetry, refundWorker.HandleEvent)
		go refundWorker.Start(ctx)
	}

	if sqliteDB != nil && cfg.Database.Backup.Enabled {
		backups := database.NewBackupService(sqliteDB, cfg.Database.Backup, clk, &logger)
		go backups.Start(ctx)
	}

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Store:    store,
		Ledger:   svc.ledger,
		Pricing:  svc.pricing,
		Holds:    svc.holds,
		Bookings: svc.bookings,
		Checkout: service.NewCheckoutService(sessions, svc.holds, cfg.API.RateLimit.HoldAttempts, cfg.API.RateLimit.HoldWindow, &logger),
	}, &logger)

	return serve(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// initStore opens the configured backend. The SQLite handle is also returned so
// backups can run against it; it is nil for postgres.
func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Store, *database.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		store, err := postgres.New(ctx, cfg.Database.Postgres.DSN, cfg.Database.Postgres.MaxConnections, logger)
		if err != nil {
			logger.Error().Err(err).Msg("init postgres")
			return nil, nil, err
		}
		return store, nil, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, err
		}
		return db, db, nil
	}
}

func newCore(cfg *config.Config, store domain.Store, bus *events.EventBus, clk clock.Clock, logger *zerolog.Logger) core {
	r := cfg.Reservation

	mealRates := models.DefaultMealPlanRates()
	for plan, rate := range r.MealPlans {
		mealRates[models.MealPlan(plan)] = decimal.NewFromFloat(rate)
	}
	extras := models.DefaultExtraPrices()
	for id, price := range r.Extras {
		extras[id] = decimal.NewFromFloat(price)
	}

	ledger := service.NewInventoryLedger(store, clk, logger)
	pricingOpts := []service.PricingOption{
		service.WithMealRates(mealRates),
		service.WithExtraPrices(extras),
		service.WithDefaultTaxRate(decimal.NewFromFloat(r.DefaultTaxRate)),
	}
	if r.CheckInHour != nil {
		pricingOpts = append(pricingOpts, service.WithCheckInHour(*r.CheckInHour))
	}
	pricing := service.NewPricingEngine(store, clk, logger, pricingOpts...)
	holds := service.NewHoldManager(store, ledger, pricing, bus, clk, logger,
		service.WithHoldTTL(r.HoldTTL),
		service.WithMaxStayNights(r.MaxStayNights),
	)
	bookings := service.NewBookingStateMachine(store, ledger, holds, pricing, bus, clk, logger)

	return core{ledger: ledger, pricing: pricing, holds: holds, bookings: bookings}
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSessions(redisClient *redis.Client, clk clock.Clock, logger *zerolog.Logger) domain.CheckoutStateRepository {
	memory := repository.NewMemoryStateRepository(models.SessionStateTTL, clk)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisStateRepository(redisClient, models.SessionStateTTL)
	return repository.NewFailoverStateRepository(primary, memory, logger)
}

func newRefundWorker(cfg *config.Config, store domain.Store, bookings *service.BookingStateMachine, redisClient *redis.Client, logger *zerolog.Logger) *worker.RefundWorker {
	workerLogger := logging.Component(logger, "refund_worker")
	gateway := worker.NewBreakerGateway("refund-gateway", worker.NewLoggingGateway(workerLogger), cfg.Refunds.Breaker, workerLogger)
	return worker.NewRefundWorker(
		bookings,
		store,
		gateway,
		redisClient,
		worker.RetryPolicyFromConfig(cfg.Refunds.Retry),
		cfg.Refunds.PollInterval,
		workerLogger,
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if !cfg.API.HTTP.Enabled {
			logger.Warn().Msg("HTTP API is disabled in config")
			return
		}
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return serveErr
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
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
