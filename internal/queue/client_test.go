package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/nats-io/nats.go"
)

type fakeSQSSender struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQSSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{}, nil
}

type fakeNATS struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeNATS) PublishMsg(m *nats.Msg) error {
	f.msgs = append(f.msgs, m)
	return f.err
}

func TestSQSClientSend(t *testing.T) {
	sender := &fakeSQSSender{}
	client := NewSQSClientWith(sender, "https://sqs.local/queue")

	msg := Message{Type: TypeSubmitted, ApplicationID: "app-1", ApplicationRef: "REG-1", Version: 1}
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.inputs))
	}
	if got := aws.ToString(sender.inputs[0].QueueUrl); got != "https://sqs.local/queue" {
		t.Fatalf("unexpected queue url %s", got)
	}
	decoded, err := DecodeMessage([]byte(aws.ToString(sender.inputs[0].MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.ApplicationID != "app-1" {
		t.Fatalf("unexpected body %+v", decoded)
	}
}

func TestSQSClientSendError(t *testing.T) {
	boom := errors.New("boom")
	client := NewSQSClientWith(&fakeSQSSender{err: boom}, "q")
	if err := client.Send(context.Background(), Message{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNATSClientSend(t *testing.T) {
	conn := &fakeNATS{}
	client, err := NewNATSClient(conn, "registrations.submitted")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	msg := NewSubmitted("app-1", "REG-1", "req-1", time.Time{})
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(conn.msgs) != 1 {
		t.Fatalf("expected one publish, got %d", len(conn.msgs))
	}
	got := conn.msgs[0]
	if got.Subject != "registrations.submitted" {
		t.Fatalf("unexpected subject %s", got.Subject)
	}
	if got.Header.Get("Type") != TypeSubmitted || got.Header.Get("X-Request-ID") != "req-1" {
		t.Fatalf("unexpected headers %v", got.Header)
	}
}

func TestNATSClientRequiresSubject(t *testing.T) {
	if _, err := NewNATSClient(&fakeNATS{}, "  "); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}

func TestNATSClientCancelledContext(t *testing.T) {
	conn := &fakeNATS{}
	client, _ := NewNATSClient(conn, "s")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Send(ctx, Message{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(conn.msgs) != 0 {
		t.Fatalf("expected no publish")
	}
}
