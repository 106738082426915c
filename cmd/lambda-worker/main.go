package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"registration-backend/internal/bootstrap"
	"registration-backend/internal/shared/config"
	"registration-backend/internal/shared/metrics"
	"registration-backend/internal/shared/telemetry"
	"registration-backend/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor *workerproc.Processor
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	processor = built.Processor
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, processor, event), nil
}

// processBatch reports retryable failures back to SQS. Unrecoverable messages
// are logged and acknowledged so they do not loop.
func processBatch(ctx context.Context, p *workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, p, record.Body)
		switch {
		case err == nil:
			metrics.IncWorkerJob("completed")
		case workerproc.Unrecoverable(err):
			telemetry.Error("worker.submission.discarded", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			metrics.IncWorkerJob("discarded")
		default:
			telemetry.Error("worker.submission.failed", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			metrics.IncWorkerJob("failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
