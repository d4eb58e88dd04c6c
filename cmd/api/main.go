package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/bongitrade/policy-service/internal/api/http"
	"github.com/bongitrade/policy-service/internal/api/http/handlers"
	"github.com/bongitrade/policy-service/internal/app"
	"github.com/bongitrade/policy-service/internal/auth"
	"github.com/bongitrade/policy-service/internal/config"
	"github.com/bongitrade/policy-service/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		container.Close()
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer container.Close()

	deps := map[string]handlers.Pinger{"postgres": container.Postgres}
	if container.Redis != nil {
		deps["redis"] = container.Redis
	}

	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             int(cfg.Storage.MaxUploadBytes()),
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger, container.Metrics),
	})
	httptransport.RegisterMiddlewares(server, logger, container.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:           handlers.NewAuthHandler(container.Auth),
		Policies:       handlers.NewPoliciesHandler(container.Policies, cfg.Storage.MaxDocumentBytes),
		Claims:         handlers.NewClaimsHandler(container.Claims, cfg.Storage.MaxDocumentBytes),
		AuthMiddleware: auth.NewAuthMiddleware(container.Tokens, container.Repos.Users),
		Metrics:        container.Metrics,
	})

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.Worker.Run(workerCtx)
	})
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return server.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
		// workers stop only after the server has drained
		cancelWorker()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
