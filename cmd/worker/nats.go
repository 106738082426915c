package main

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"registration-backend/internal/shared/metrics"
	"registration-backend/internal/shared/telemetry"
	"registration-backend/internal/workerproc"
)

const natsQueueGroup = "registration-workers"

func runNATS(ctx context.Context, conn *nats.Conn, subject string, proc *workerproc.Processor, shutdownTimeout time.Duration) error {
	if conn == nil {
		return errors.New("nats connection not configured")
	}

	sub, err := conn.QueueSubscribe(subject, natsQueueGroup, func(m *nats.Msg) {
		handleNATS(context.WithoutCancel(ctx), proc, m)
	})
	if err != nil {
		return err
	}
	telemetry.Info("worker.started", map[string]any{
		"backend": "nats",
		"subject": subject,
		"group":   natsQueueGroup,
	})

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		telemetry.Warn("worker.nats_drain_failed", map[string]any{"error": err.Error()})
	}
	// The subscription turns invalid once pending messages are handled.
	deadline := time.Now().Add(shutdownTimeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			telemetry.Warn("worker.shutdown_timeout", nil)
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

// handleNATS processes one core NATS message. Core NATS has no redelivery, so
// every failure is logged and counted.
func handleNATS(ctx context.Context, proc *workerproc.Processor, m *nats.Msg) string {
	fields := map[string]any{
		"subject": m.Subject,
	}
	if m.Header != nil {
		if reqID := m.Header.Get("X-Request-ID"); reqID != "" {
			fields["request_id"] = reqID
		}
	}

	err := workerproc.HandleMessage(ctx, proc, string(m.Data))
	result := "completed"
	switch {
	case err == nil:
		telemetry.Info("worker.submission.completed", fields)
	case workerproc.Unrecoverable(err):
		result = "discarded"
		fields["error"] = err.Error()
		telemetry.Error("worker.submission.discarded", fields)
	default:
		result = "failed"
		fields["error"] = err.Error()
		telemetry.Error("worker.submission.failed", fields)
	}
	metrics.IncWorkerJob(result)
	return result
}
