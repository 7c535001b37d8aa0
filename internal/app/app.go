package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nguyenvotandat/runway-backend/internal/config"
	"github.com/nguyenvotandat/runway-backend/internal/engine"
	"github.com/nguyenvotandat/runway-backend/internal/event"
	handler "github.com/nguyenvotandat/runway-backend/internal/handler/http"
	"github.com/nguyenvotandat/runway-backend/internal/repository"
	"github.com/nguyenvotandat/runway-backend/internal/repository/postgres"
	"github.com/nguyenvotandat/runway-backend/internal/repository/rediscache"
	"github.com/nguyenvotandat/runway-backend/internal/service"
	"github.com/nguyenvotandat/runway-backend/migrations"
	"github.com/nguyenvotandat/runway-backend/pkg/database"
	"github.com/nguyenvotandat/runway-backend/pkg/health"
	pkgkafka "github.com/nguyenvotandat/runway-backend/pkg/kafka"
)

// ServiceName identifies the service in logs and metrics.
const ServiceName = "promotion-service"

// App wires together all dependencies and runs the promotion service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// New creates an application instance, connecting to PostgreSQL, Kafka and
// Redis and assembling the dependency graph.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	var store repository.CampaignRepository = postgres.NewCampaignRepository(pool)

	// The cache is an optimization; a Redis outage at startup degrades to
	// uncached reads instead of failing the service.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, campaign cache disabled",
			slog.String("error", err.Error()),
		)
		redisClient = nil
	} else {
		store = rediscache.NewCampaignRepository(store, redisClient, cfg.CacheTTL, logger)
		logger.Info("campaign cache enabled",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Duration("ttl", cfg.CacheTTL),
		)
	}

	eng := engine.New(store, logger)
	publisher := event.NewPublisher(producer, logger)
	campaignService := service.NewCampaignService(store, eng, publisher, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("kafka", producer.Ping)
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: ServiceName,
		Logger:      logger,
		Campaigns:   handler.NewCampaignHandler(campaignService),
		Health:      healthHandler,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
