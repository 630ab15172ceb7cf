package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/cache"
	"github.com/iliyamo/floor-layout/internal/config"
	"github.com/iliyamo/floor-layout/internal/database"
	"github.com/iliyamo/floor-layout/internal/handler"
	applogger "github.com/iliyamo/floor-layout/internal/logger"
	"github.com/iliyamo/floor-layout/internal/metrics"
	"github.com/iliyamo/floor-layout/internal/middleware"
	"github.com/iliyamo/floor-layout/internal/queue"
	"github.com/iliyamo/floor-layout/internal/repository"
	"github.com/iliyamo/floor-layout/internal/router"
	"github.com/iliyamo/floor-layout/internal/service"
)

func main() {
	// Load configuration from the environment (and .env when present).
	cfg := config.Load()

	logger, err := applogger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	// Open the MySQL pool; the service cannot start without it.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	// ctx is cancelled on SIGINT/SIGTERM and drives shutdown of the
	// consumer and the HTTP server.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("schema setup failed", zap.Error(err))
	}

	// Redis is optional: without it the layout cache and rate limiter
	// are pass-through.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn("redis unavailable, running without cache and rate limiting", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	// Private registry: service collectors plus Go runtime and process.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Assemble the service.  Events are only published and consumed when
	// a broker is configured.
	layoutCache := cache.NewLayoutCache(config.LoadCacheConfig(), rdb)
	opts := []service.Option{service.WithCache(layoutCache), service.WithMetrics(m)}
	if cfg.RabbitMQURL != "" {
		opts = append(opts, service.WithPublisher(service.NewQueuePublisher(cfg.RabbitMQURL, logger)))

		consumer := queue.NewConsumer(cfg.RabbitMQURL, service.NewEventSink(layoutCache, logger), logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("floor consumer stopped", zap.Error(err))
			}
		}()
	}
	svc := service.NewLayoutService(repository.NewFloorLayoutRepo(db), logger, opts...)

	// HTTP: request logging first so rejected requests are logged too.
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(logger, m))

	router.RegisterRoutes(e, db, m)
	router.RegisterFloors(e,
		handler.NewFloorHandler(svc, cfg.RequestTimeout, logger),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
	)

	// Serve in the background and block until a signal arrives.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Give in-flight requests up to 10s to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}
