package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/breathesafe/air-quality-service/internal/cache"
	"github.com/breathesafe/air-quality-service/internal/circuitbreaker"
	"github.com/breathesafe/air-quality-service/internal/config"
	httphandler "github.com/breathesafe/air-quality-service/internal/http"
	"github.com/breathesafe/air-quality-service/internal/lifecycle"
	"github.com/breathesafe/air-quality-service/internal/mapdata"
	"github.com/breathesafe/air-quality-service/internal/observability"
	"github.com/breathesafe/air-quality-service/internal/scheduler"
	"github.com/breathesafe/air-quality-service/internal/service"
	"github.com/breathesafe/air-quality-service/internal/store"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var measurementStore store.Store
	var pgCloser *store.PostgresStore
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgresStore(cfg.PostgresDSN, cfg.PostgresMaxConns, cfg.StoreConnTimeout)
		if err != nil {
			logger.Fatal("postgres store", zap.Error(err))
		}
		pgCloser = pg
		measurementStore = pg
		logger.Info("store backend: postgres", zap.Int("max_conns", cfg.PostgresMaxConns))
	default:
		measurementStore = store.NewInMemoryStore()
		logger.Info("store backend: in_memory")
	}

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			Component:        "measurement_store",
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.CircuitBreakerTransitionsTotal.WithLabelValues("measurement_store", from.String(), to.String()).Inc()
				observability.CircuitBreakerState.WithLabelValues("measurement_store").Set(float64(int(to)))
			},
		})
		measurementStore = store.WithBreaker(measurementStore, cb)
		observability.CircuitBreakerState.WithLabelValues("measurement_store").Set(0)
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	aggregator := service.NewAggregator(measurementStore, cfg.MaxSpeedMps, cfg.SampleIntervalSeconds)
	dashboard := service.NewDashboardService(
		aggregator, cacheSvc, cfg.CacheTTL,
		cfg.DashboardWindowHours, cfg.DashboardIntervalHours,
		cfg.CoalesceEnabled, cfg.CoalesceTimeout,
	)

	artifacts, err := mapdata.NewFSArtifactStore(cfg.MapDataDir)
	if err != nil {
		logger.Fatal("map artifact store", zap.Error(err))
	}
	renderer := mapdata.JSONRenderer{}
	builder := mapdata.NewBuilder(aggregator, renderer, artifacts, cfg.MapWindow, logger)
	mapScheduler := scheduler.New(builder, cfg.MapInterval, logger)
	if err := mapScheduler.Start(); err != nil {
		logger.Fatal("map scheduler", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		StorePing: measurementStore.Ping,
		StartTime: time.Now(),
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	maxRangeSpan := 7 * 24 * time.Hour
	handler := httphandler.NewHandler(
		dashboard, aggregator, artifacts, renderer.ContentType(),
		healthConfig, logger, maxRangeSpan, cfg.DashboardIntervalHours,
	)

	if cfg.WarmCache && len(cfg.TrackedUsers) > 0 {
		warmer := cache.NewCacheWarmer(dashboard, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.TrackedUsers); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), cfg.TrackedUsers, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	router.HandleFunc("/map/latest", handler.GetLatestMap).Methods("GET")
	apiRouter := router.NewRoute().Subrouter()
	apiRouter.Use(httphandler.RateLimitMiddleware(limiter))
	apiRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	apiRouter.HandleFunc("/dashboard/{userID}", handler.GetDashboard).Methods("GET")
	apiRouter.HandleFunc("/readings/{userID}", handler.GetReadings).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	mapScheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if pgCloser != nil {
		if err := pgCloser.Close(); err != nil {
			logger.Error("postgres close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
