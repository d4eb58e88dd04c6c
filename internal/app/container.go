// Package app assembles the service graph shared by the API server and the
// operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/auth"
	"github.com/bongitrade/policy-service/internal/config"
	"github.com/bongitrade/policy-service/internal/events"
	"github.com/bongitrade/policy-service/internal/notify"
	"github.com/bongitrade/policy-service/internal/observability"
	"github.com/bongitrade/policy-service/internal/persistence"
	"github.com/bongitrade/policy-service/internal/policynumber"
	"github.com/bongitrade/policy-service/internal/repository"
	"github.com/bongitrade/policy-service/internal/service"
	"github.com/bongitrade/policy-service/internal/storage"
	"github.com/bongitrade/policy-service/internal/worker"
	"github.com/bongitrade/policy-service/migrations"
)

// Container holds every long-lived dependency.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Repos    repository.Repositories
	Tokens   *auth.TokenManager
	Queue    notify.Queue
	Worker   *worker.NotificationWorker

	Auth     *service.AuthService
	Policies *service.PolicyService
	Claims   *service.ClaimService

	kafka *events.KafkaSink
}

// New connects to the backing stores and builds the services. Close must be
// called on the returned container even when later startup steps fail.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return c, fmt.Errorf("connect postgres: %w", err)
	}
	c.Postgres = pg
	pool := pg.PoolHandle()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return c, fmt.Errorf("run migrations: %w", err)
		}
	}

	var redisClient redis.UniversalClient
	if cfg.Notification.QueueDriver == "redis" {
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return c, err
		}
		c.Redis = rdb
		redisClient = rdb.Client
	}

	store, err := newDocumentStore(ctx, cfg.Storage)
	if err != nil {
		return c, err
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return c, err
		}
		sink.Register(dispatcher)
		c.kafka = sink
	}

	c.Repos = repository.NewRepositories(pool)
	tx := repository.NewTxManager(pool)
	c.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	c.Queue = worker.NewQueue(cfg.Notification, redisClient)

	notifications := service.NewNotificationService(dispatcher, c.Queue, cfg.SMS.BrandName, logger, c.Metrics)
	c.Worker = worker.StartNotificationWorker(notifications, c.Queue, worker.NewGateway(cfg.SMS, logger), cfg.Notification, logger, c.Metrics)

	c.Auth = service.NewAuthService(service.AuthDependencies{
		UserRepo:   c.Repos.Users,
		Tokens:     c.Tokens,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	c.Policies = service.NewPolicyService(service.PolicyDependencies{
		Repos:        c.Repos,
		Tx:           tx,
		Numbers:      policynumber.New(cfg.Policy.NumberPrefix),
		Store:        store,
		Dispatcher:   dispatcher,
		Reminders:    notifications,
		Logger:       logger,
		Metrics:      c.Metrics,
		MaxAttempts:  cfg.Policy.CreateMaxAttempts,
		MaxDocuments: cfg.Storage.MaxDocuments,
	})
	c.Claims = service.NewClaimService(service.ClaimDependencies{
		Repos:        c.Repos,
		Tx:           tx,
		Store:        store,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      c.Metrics,
		MaxDocuments: cfg.Storage.MaxDocuments,
	})
	return c, nil
}

func newDocumentStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	if cfg.Driver == "s3" {
		client, err := storage.NewS3Client(ctx, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		return storage.NewS3Store(client, cfg.S3Bucket), nil
	}
	store, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return store, nil
}

// Close flushes the event sink and releases connections.
func (c *Container) Close() {
	if c.kafka != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c.kafka.Close(ctx)
		cancel()
	}
	c.Redis.Close()
	c.Postgres.Close()
}
