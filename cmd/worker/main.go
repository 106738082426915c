package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"registration-backend/internal/bootstrap"
	"registration-backend/internal/shared/config"
	"registration-backend/internal/shared/telemetry"
)

const (
	defaultVisibilitySeconds  = 300
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		fatal("worker.bootstrap_failed", err)
	}
	defer app.Close()

	shutdownTimeout := time.Duration(envInt("RA_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	switch cfg.QueueBackend {
	case "sqs":
		err = runSQS(ctx, cfg, app.Processor, sqsOptions{
			visibilitySeconds: envInt("RA_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds),
			concurrency:       envInt("RA_WORKER_CONCURRENCY", defaultWorkerConcurrency),
			shutdownTimeout:   shutdownTimeout,
		})
	case "nats":
		err = runNATS(ctx, app.NATS, cfg.NATSSubject, app.Processor, shutdownTimeout)
	default:
		err = bootstrap.ErrNoQueue
	}
	if err != nil {
		fatal("worker.stopped", err)
	}
	telemetry.Info("worker.shutdown_complete", nil)
}

func fatal(msg string, err error) {
	telemetry.Error(msg, map[string]any{"error": err.Error()})
	os.Exit(1)
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
