package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bus-scheduler/bus"
	"bus-scheduler/bus/infra"
	"bus-scheduler/internal/config"
	"bus-scheduler/internal/tracing"
)

// Exemplo: um lote único configurado por env/.env/BATCH_FILE, relatório em stdout.
//
//	HIGH_SEND=2 HIGH_RECEIVE=2 NORMAL_SEND=10 NORMAL_RECEIVE=10 go run ./cmd/batch
//
// Sai com 2 quando alguma tarefa expirou ou falhou.
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		return 1
	}
	logger := config.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TraceEnabled {
		shutdown, err := tracing.Setup("bus-batch", "dev", cfg.TraceFile)
		if err != nil {
			logger.Error("tracing setup error", "err", err)
			return 1
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(flushCtx)
		}()
	}

	stats := infra.NewMemoryStatsStore()
	rep, err := bus.NewScheduler(stats, logger).Run(ctx, cfg.Plan)
	if err != nil {
		logger.Error("batch error", "err", err)
		return 1
	}

	total := stats.Total()
	logger.Info("stats", "admitted", total.Admitted, "timedOut", total.TimedOut, "meanWait", total.MeanWait())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		logger.Error("write report", "err", err)
		return 1
	}
	if rep.Failed > 0 || rep.TimedOut > 0 || rep.Cancelled > 0 {
		return 2
	}
	return 0
}
