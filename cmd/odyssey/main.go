package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-wms/internal/activity"
	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/entities"
	"github.com/odyssey-erp/odyssey-wms/internal/imports"
	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	ordershttp "github.com/odyssey-erp/odyssey-wms/internal/orders/http"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	if len(os.Args) > 1 {
		env := cli.Env{PGDSN: cfg.PGDSN, RedisOpts: redisOpts, Logger: logger, Out: os.Stdout}
		if err := cli.Run(ctx, env, os.Args[1:]); err != nil {
			logger.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions("api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, document cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	var enqueuer *jobs.Client
	var inspector *asynq.Inspector
	if redisClient != nil {
		enqueuer, err = jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := enqueuer.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		inspector = asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
	}

	deps := app.ServiceDeps{
		Config:   cfg,
		Logger:   logger,
		Pool:     dbpool,
		Redis:    redisClient,
		Observer: metrics,
	}
	if enqueuer != nil {
		deps.Enqueuer = enqueuer
	}
	services, err := app.NewServices(deps)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}

	authHandler := auth.NewHandler(logger, auth.NewAuthenticator(cfg.JWTSecret, cfg.APIKeyHash))
	if cfg.JWTSecret == "" && cfg.APIKeyHash == "" {
		logger.Warn("authentication disabled, every request runs as admin")
	}

	var queues jobs.QueueInspector
	if inspector != nil {
		queues = inspector
	}

	readiness := map[string]app.Pinger{
		"postgres": app.PingFunc(dbpool.Ping),
		"cms":      services.CMS,
	}
	if redisClient != nil {
		readiness["redis"] = app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		DocumentHandler: ordershttp.NewHandler(logger, services.Orders),
		ImportHandler:   imports.NewHandler(logger, services.Imports),
		EntityHandler:   entities.NewHandler(logger, services.Entities),
		ActivityHandler: activity.NewHandler(logger, services.Activity),
		JobHandler:      jobs.NewHandler(queues, logger),
		Metrics:         metrics,
		Readiness:       readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
