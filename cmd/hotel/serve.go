package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/config"
	"github.com/example/hotel-booking/internal/events"
	httptransport "github.com/example/hotel-booking/internal/http"
	"github.com/example/hotel-booking/internal/lock"
	"github.com/example/hotel-booking/internal/logging"
	"github.com/example/hotel-booking/internal/persistence/sqlite"
	"github.com/example/hotel-booking/internal/token"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Pending migrations are applied on startup. Redis
(HOTEL_REDIS_URL) enables the shared room lock and login rate limiting;
RabbitMQ (HOTEL_AMQP_URL) enables reservation events.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := logging.New(os.Stdout, level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer app.Close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("hotel API listening", "addr", server.Addr, "version", version)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return oops.Code("SERVER_FAILED").Wrap(err)
	}
	logger.Info("server stopped")
	return nil
}

// app is the wired API with the resources it owns.
type app struct {
	Handler  http.Handler
	Storage  *sqlite.Storage
	Accounts *application.AccountService

	closers []func() error
	logger  *slog.Logger
}

// Close releases the acquired connections in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("dsn", cfg.SQLiteDSN).Wrap(err)
	}
	a.closers = append(a.closers, storage.Close)
	if err := storage.Migrate(ctx); err != nil {
		return nil, oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	a.Storage = storage

	issuer, err := token.NewIssuer(cfg.TokenSecret, cfg.TokenTTL, time.Now)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("setting", "HOTEL_TOKEN_SECRET").Wrap(err)
	}

	var (
		locker  lock.Locker = lock.NewMemoryLocker()
		limiter httptransport.RateLimiter
	)
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		locker = lock.NewRedisLocker(client, lock.RedisOptions{}, logger)
		limiter = httptransport.NewRedisTokenBucket(client, cfg.RateLimit.Capacity, cfg.RateLimit.RefillInterval)
		logger.Info("redis enabled", "rate_limit_capacity", cfg.RateLimit.Capacity, "rate_limit_refill", cfg.RateLimit.RefillInterval)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(ctx, cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, oops.Code("BROKER_CONNECT_FAILED").With("queue", cfg.AMQPQueue).Wrap(err)
		}
		a.closers = append(a.closers, amqpPublisher.Close)
		publisher = amqpPublisher
		logger.Info("reservation events enabled", "queue", cfg.AMQPQueue)
	}

	idGenerator := uuid.NewString
	now := time.Now

	users := newUserRepositoryAdapter(storage)
	rooms := newRoomRepositoryAdapter(storage)
	catalog := newCatalogRepositoryAdapter(storage, storage)
	reservations := newReservationRepositoryAdapter(storage)
	inquiries := newInquiryRepositoryAdapter(storage)

	authService := application.NewAuthServiceWithLogger(users, newSessionRepositoryAdapter(storage), issuer, nil, nil, idGenerator, now, logger)
	accountService := application.NewAccountServiceWithLogger(users, nil, nil, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(rooms, idGenerator, now, logger)
	catalogService := application.NewCatalogServiceWithLogger(catalog, catalog, idGenerator, now, logger)
	reservationService := application.NewReservationServiceWithLogger(reservations, rooms, inquiries, locker, publisher, cfg.TimeZone, idGenerator, now, logger)
	inquiryService := application.NewInquiryServiceWithLogger(inquiries, idGenerator, now, logger)
	paymentService := application.NewPaymentServiceWithLogger(newPaymentRepositoryAdapter(storage), now, logger)
	statsService := application.NewStatsService(newStatsRepositoryAdapter(storage), logger)

	a.Accounts = accountService
	a.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, accountService, logger),
		Accounts:     httptransport.NewAccountHandler(accountService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Catalog:      httptransport.NewCatalogHandler(catalogService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Inquiries:    httptransport.NewInquiryHandler(inquiryService, reservationService, logger),
		Payments:     httptransport.NewPaymentHandler(paymentService, statsService, logger),
		Sessions:     authService,
		RateLimiter:  limiter,
		RateLimit:    cfg.RateLimit.Capacity,
		CORSOrigins:  cfg.CORSOrigins,
		Health:       storage.Ping,
		Logger:       logger,
	})
	return a, nil
}

// connectRedis parses url and pings the server, retrying with backoff.
func connectRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("setting", "HOTEL_REDIS_URL").Wrap(err)
	}
	client := redis.NewClient(opts)

	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WarnContext(ctx, "redis ping failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).Wrap(fmt.Errorf("connect to redis: %w", err))
	}
	return client, nil
}
