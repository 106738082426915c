package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"registration-backend/internal/shared/config"
	"registration-backend/internal/shared/metrics"
	"registration-backend/internal/shared/telemetry"
	"registration-backend/internal/workerproc"
)

const defaultSQSRegion = "us-east-1"

type sqsOptions struct {
	visibilitySeconds int
	concurrency       int
	shutdownTimeout   time.Duration
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func runSQS(ctx context.Context, cfg config.Config, proc *workerproc.Processor, opts sqsOptions) error {
	queueURL := strings.TrimSpace(cfg.SQSQueueURL)
	if queueURL == "" {
		return errors.New("RA_SQS_QUEUE_URL is required")
	}
	region := strings.TrimSpace(cfg.AWSRegion)
	if region == "" {
		region = defaultSQSRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return err
	}
	pollSQS(ctx, sqs.NewFromConfig(awsCfg), queueURL, proc, opts)
	return nil
}

// pollSQS receives until ctx is cancelled, then waits for in-flight messages.
func pollSQS(ctx context.Context, client sqsAPI, queueURL string, proc *workerproc.Processor, opts sqsOptions) {
	sem := make(chan struct{}, max(1, opts.concurrency))
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"backend":     "sqs",
		"queue":       queueURL,
		"concurrency": opts.concurrency,
		"visibility":  opts.visibilitySeconds,
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(opts.visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// Let in-flight messages finish after shutdown is requested.
				handleMessage(context.WithoutCancel(ctx), proc, client, queueURL, m)
			}(msg)
		}
	}

	telemetry.Info("worker.draining", map[string]any{"timeout": opts.shutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(opts.shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

// handleMessage processes one SQS message. Successful and unrecoverable
// messages are deleted; retryable failures are left to become visible again.
func handleMessage(ctx context.Context, proc *workerproc.Processor, client sqsAPI, queueURL string, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", decodeRequestID(err))
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.submission.invalid", fields)
		if deleteMessage(ctx, client, queueURL, msg, "", "") {
			metrics.IncWorkerJob("discarded")
		}
		return
	}

	telemetry.Info("worker.submission.received", baseFields(msg, decoded.ApplicationID, decoded.RequestID))

	err = workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, decoded), proc, body)
	if err != nil {
		fields := baseFields(msg, decoded.ApplicationID, decoded.RequestID)
		fields["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.submission.discarded", fields)
			if deleteMessage(ctx, client, queueURL, msg, decoded.ApplicationID, decoded.RequestID) {
				metrics.IncWorkerJob("discarded")
			}
			return
		}
		telemetry.Error("worker.submission.failed", fields)
		metrics.IncWorkerJob("failed")
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.ApplicationID, decoded.RequestID) {
		telemetry.Info("worker.submission.completed", baseFields(msg, decoded.ApplicationID, decoded.RequestID))
		metrics.IncWorkerJob("completed")
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, applicationID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, applicationID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.submission.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, applicationID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.submission.delete_failed", fields)
		return false
	}
	return true
}

func decodeRequestID(err error) string {
	var missing workerproc.ErrMissingApplicationID
	if errors.As(err, &missing) {
		return missing.RequestID
	}
	return ""
}

func baseFields(msg sqstypes.Message, applicationID, requestID string) map[string]any {
	fields := map[string]any{
		"application_id": applicationID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
