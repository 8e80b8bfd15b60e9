package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/geophoto-worker/internal/config"
	"github.com/cuongbtq/geophoto-worker/internal/witness"
	"github.com/cuongbtq/geophoto-worker/internal/worker"
	"github.com/cuongbtq/geophoto-worker/internal/worker/bootstrap"
	"github.com/cuongbtq/geophoto-worker/internal/worker/dedup"
	"github.com/cuongbtq/geophoto-worker/internal/worker/events"
	"github.com/cuongbtq/geophoto-worker/internal/worker/fetcher"
	"github.com/cuongbtq/geophoto-worker/internal/worker/health"
	"github.com/cuongbtq/geophoto-worker/internal/worker/metrics"
	"github.com/cuongbtq/geophoto-worker/internal/worker/verifier"
	"github.com/cuongbtq/geophoto-worker/shared/cache"
	"github.com/cuongbtq/geophoto-worker/shared/clock"
	"github.com/cuongbtq/geophoto-worker/shared/logger"
	"github.com/cuongbtq/geophoto-worker/shared/postgresql"
	"github.com/cuongbtq/geophoto-worker/shared/rabbitmq"
	"github.com/cuongbtq/geophoto-worker/shared/retry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("campaign", cfg.Campaign.Name),
		slog.String("dedup_backend", cfg.Dedup.Backend),
		slog.String("events_backend", cfg.Events.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	retrier := retry.New(retry.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		Multiplier:     cfg.Retry.BackoffMultiplier,
		AttemptTimeout: cfg.Retry.AttemptTimeout,
	}, clk, appLogger.Component("retry"), retry.WithOnRetry(metrics.RecordRetry))

	client, err := initWitnessClient(&cfg.Witness, appLogger.Component("witness"))
	if err != nil {
		return fmt.Errorf("failed to initialize photo service client: %w", err)
	}

	tracker, closeTracker, err := initTracker(ctx, cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dedup tracker: %w", err)
	}
	defer closeTracker()

	sink, err := initSink(ctx, cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event sink: %w", err)
	}
	defer sink.Close()

	photoFetcher, err := fetcher.New(fetcher.Config{
		WorkDir:    cfg.Worker.WorkDir,
		FlushDelay: cfg.Worker.FlushDelay,
		MaxBytes:   cfg.Worker.MaxDownloadBytes,
		HTTPClient: &http.Client{Timeout: cfg.Retry.AttemptTimeout},
		Clock:      clk,
		Logger:     appLogger.Component("fetcher"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %w", err)
	}

	workerInstance, err := worker.NewWorker(&worker.Config{
		Session: client,
		Fetcher: photoFetcher,
		Verifier: verifier.New(verifier.Config{
			Classifier: client,
			Retrier:    retrier,
			Logger:     appLogger.Component("verifier"),
		}),
		Bootstrapper: bootstrap.New(bootstrap.Config{
			Service: client,
			Spec:    cfg.Campaign.Spec(),
			Retrier: retrier,
			Clock:   clk,
			Logger:  appLogger.Component("bootstrap"),
		}),
		Tracker:      tracker,
		Sink:         sink,
		Retrier:      retrier,
		Clock:        clk,
		Logger:       appLogger.Component("worker"),
		Campaign:     cfg.Campaign.Name,
		PollInterval: cfg.Worker.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return workerInstance.Run(gctx)
	})

	if cfg.Metrics.Port != 0 {
		setGinMode(cfg.App.Environment)
		srv := health.NewServer(cfg.Metrics.Port, workerInstance, cfg.Worker.ShutdownTimeout, appLogger.Component("health"))
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	appLogger.Info("Worker service started successfully")

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Wait()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error("Worker error", slog.Any("error", err))
			return err
		}
		return nil
	case <-ctx.Done():
		appLogger.Info("Received signal, shutting down gracefully")
	}

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error("Worker stopped with error", slog.Any("error", err))
			return err
		}
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	})
}

func initWitnessClient(cfg *config.WitnessConfig, logger *slog.Logger) (*witness.HTTPClient, error) {
	signer, err := witness.NewEthereumSigner(cfg.PrivateKey, cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	return witness.NewHTTPClient(witness.Config{
		PhotoAPI:      cfg.PhotoAPI,
		BlockchainAPI: cfg.BlockchainAPI,
		Signer:        signer,
		Timeout:       cfg.RequestTimeout,
		Logger:        logger,
	})
}

// initTracker builds the configured dedup backend and its cleanup
func initTracker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dedup.Tracker, func(), error) {
	switch cfg.Dedup.Backend {
	case config.DedupRedis:
		client, err := cache.Connect(ctx, cfg.Redis.URL, logger)
		if err != nil {
			return nil, nil, err
		}
		tracker := dedup.NewRedisTracker(client, cfg.Dedup.KeyPrefix, cfg.Campaign.Name, cfg.Dedup.TTL)
		return tracker, func() { _ = client.Close() }, nil

	case config.DedupPostgres:
		dbClient, err := initPostgreSQL(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		tracker := dedup.NewPostgresTracker(dbClient.GetDB(), cfg.Campaign.Name, logger)
		if err := tracker.EnsureSchema(ctx); err != nil {
			_ = dbClient.Close()
			return nil, nil, err
		}
		return tracker, func() { _ = dbClient.Close() }, nil

	default:
		return dedup.NewMemoryTracker(cfg.Dedup.Capacity), func() {}, nil
	}
}

// initSink builds the configured decision event publisher
func initSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Sink, error) {
	switch cfg.Events.Backend {
	case config.EventsRabbitMQ:
		rabbitClient, err := initRabbitMQ(ctx, &cfg.RabbitMQ, logger)
		if err != nil {
			return nil, err
		}
		return events.NewRabbitSink(rabbitClient), nil

	case config.EventsNATS:
		sink, err := events.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject, cfg.NATS.Name, logger)
		if err != nil {
			return nil, err
		}
		return sink, nil

	default:
		return events.NopSink{}, nil
	}
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(ctx, &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(ctx context.Context, cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(ctx, &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

func setGinMode(environment string) {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
}
