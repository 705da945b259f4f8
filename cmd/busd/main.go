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

	"bus-scheduler/bus"
	"bus-scheduler/bus/domain"
	"bus-scheduler/bus/infra"
	"bus-scheduler/internal/config"
	"bus-scheduler/internal/tracing"

	"github.com/redis/go-redis/v9"
)

const serviceName = "busd"

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TraceEnabled {
		shutdown, err := tracing.Setup(serviceName, version, cfg.TraceFile)
		if err != nil {
			fatal(logger, "tracing setup error", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(flushCtx)
		}()
	}

	memStats := infra.NewMemoryStatsStore(infra.WithTrackBatches(cfg.StatsTrackBatches))
	var stats domain.StatsStore = memStats
	if cfg.StatsBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.StatsRedisAddr,
			Password: cfg.StatsRedisPassword,
			DB:       cfg.StatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			fatal(logger, "redis stats ping error", err)
		}

		stats = infra.TeeStatsStore(memStats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.StatsPrefix),
			infra.WithStatsTTL(cfg.StatsTTL),
			infra.WithStatsBucket(cfg.StatsBucket),
			infra.WithStatsTrackBatches(cfg.StatsTrackBatches),
		))
	}

	h := bus.Handler(bus.Options{
		Scheduler:            bus.NewScheduler(stats, logger),
		Stats:                memStats,
		DefaultPlan:          cfg.Plan,
		MaxConcurrentBatches: cfg.MaxConcurrentBatches,
		Logger:               logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// um lote grande pode levar minutos
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	p := cfg.Plan
	logger.Info("busd listening", "addr", cfg.ListenAddr, "version", version)
	logger.Info("default plan",
		"capacity", p.Capacity, "highSend", p.HighSend, "highReceive", p.HighReceive,
		"normalSend", p.NormalSend, "normalReceive", p.NormalReceive,
		"maxTransfer", p.MaxTransfer.Std(), "transferRPS", p.TransfersPerSecond, "acquireTimeout", p.AcquireTimeout.Std())
	logger.Info("stats", "backend", cfg.StatsBackend, "redisAddr", cfg.StatsRedisAddr, "prefix", cfg.StatsPrefix, "trackBatches", cfg.StatsTrackBatches)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(logger, "server error", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
