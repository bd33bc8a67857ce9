package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Palak111111/Scrapify-server/internal/config"
	"github.com/Palak111111/Scrapify-server/internal/event"
	handler "github.com/Palak111111/Scrapify-server/internal/handler/http"
	mongorepo "github.com/Palak111111/Scrapify-server/internal/repository/mongo"
	"github.com/Palak111111/Scrapify-server/internal/repository/postgres"
	"github.com/Palak111111/Scrapify-server/internal/service"
	"github.com/Palak111111/Scrapify-server/migrations"
	"github.com/Palak111111/Scrapify-server/pkg/database"
	"github.com/Palak111111/Scrapify-server/pkg/health"
	pkgkafka "github.com/Palak111111/Scrapify-server/pkg/kafka"
	"github.com/Palak111111/Scrapify-server/pkg/logger"
	"github.com/Palak111111/Scrapify-server/pkg/middleware"
	"github.com/Palak111111/Scrapify-server/pkg/tracing"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	mongoClient    *mongo.Client
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	relay          *event.Relay
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.closeStores()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// MongoDB: products, users and the outbox.
	a.mongoClient, err = database.NewMongoClient(ctx, cfg.Mongo(), log)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	db := a.mongoClient.Database(cfg.MongoDB)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure mongodb indexes: %w", err)
	}

	// PostgreSQL: notifications.
	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, a.pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	registry.MustRegister(database.NewPoolStatsCollector(a.pool, config.ServiceName))

	mongoTracer := database.NewQueryTracer("mongodb", cfg.SlowQueryThreshold, log)
	pgTracer := database.NewQueryTracer("postgresql", cfg.SlowQueryThreshold, log)

	productRepo := mongorepo.NewProductRepository(db, mongorepo.NewSessionTransactor(a.mongoClient), mongoTracer)
	userRepo := mongorepo.NewUserRepository(db, mongoTracer)
	outboxRepo := mongorepo.NewOutboxRepository(db, mongoTracer, cfg.OutboxMaxAttempts)
	notificationRepo := postgres.NewNotificationRepository(a.pool, pgTracer)

	productService := service.NewProductService(productRepo, userRepo, log)
	reviewService := service.NewReviewService(productRepo, log)

	// Kafka: outbox relay producer and the dead-letter producer.
	kafkaMetrics := pkgkafka.NewMetrics(registry)
	a.producer = pkgkafka.NewProducer(
		pkgkafka.NewWriter(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)),
		cfg.KafkaBrokers, kafkaMetrics, log,
	)
	a.dlq = pkgkafka.NewDLQProducer(pkgkafka.NewWriter(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)), log)

	a.relay = event.NewRelay(outboxRepo, a.producer, event.RelayConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		Breaker:      event.DefaultBreakerConfig("outbox-kafka"),
	}, event.NewRelayMetrics(registry), log)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("mongodb", database.MongoPinger(a.mongoClient))
	healthHandler.RegisterCritical("postgres", a.pool.Ping)
	healthHandler.RegisterNonCritical("kafka", a.producer.Ping)

	if cfg.FanoutEnabled {
		store, err := a.idempotencyStore(ctx)
		if err != nil {
			return err
		}
		if a.redis != nil {
			client := a.redis
			healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
		}

		fanout := service.NewFanoutService(userRepo, notificationRepo, service.FanoutConfig{
			MessagePrefix: cfg.ProductArrivalMessage,
			UserBatchSize: cfg.UserBatchSize,
			ChunkSize:     cfg.NotificationChunkLen,
		}, log)
		fanoutHandler := event.NewFanoutHandler(fanout, log)

		consumerCfg := pkgkafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.FanoutGroupID,
			Topic:   event.TopicProductCreated,
		}
		a.consumer = pkgkafka.NewConsumer(consumerCfg, pkgkafka.NewReader(consumerCfg), fanoutHandler.Handle, kafkaMetrics, log,
			pkgkafka.WithDeadLetter(a.dlq),
			pkgkafka.WithIdempotencyStore(store),
		)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(productService, reviewService, healthHandler, log, handler.RouterConfig{
		ServiceName:    config.ServiceName,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
		CORS:           corsCfg,
		Gatherer:       registry,
		HTTPMetrics:    middleware.NewHTTPMetrics(registry, config.ServiceName),
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return nil
}

// idempotencyStore returns the Redis-backed store, or an in-process one when
// Redis is disabled.
func (a *App) idempotencyStore(ctx context.Context) (pkgkafka.IdempotencyStore, error) {
	if !a.cfg.RedisEnabled {
		a.logger.Warn("redis disabled, processed event ids are kept in memory")
		return pkgkafka.NewMemoryIdempotencyStore(a.cfg.IdempotencyTTL), nil
	}

	client, err := database.NewRedisClient(ctx, a.cfg.Redis(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	return pkgkafka.NewRedisIdempotencyStore(client, config.ServiceName+":processed", a.cfg.IdempotencyTTL), nil
}

// Run starts the HTTP server, the outbox relay and the fan-out consumer, then
// blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := a.relay.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("outbox relay stopped", logger.Err(err))
		}
	}()

	if a.consumer != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := a.consumer.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("fan-out consumer stopped", logger.Err(err))
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopWorkers()
	workers.Wait()

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", logger.Err(err))
		}
	}

	a.closeStores()

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", logger.Err(err))
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeStores releases every client that was opened, in reverse order.
func (a *App) closeStores() {
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", logger.Err(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", logger.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", logger.Err(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Error("mongodb disconnect error", logger.Err(err))
		}
	}
}
