package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSPublisher is the subset of *nats.Conn used for publishing.
type NATSPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSClient publishes queue messages on a NATS subject.
type NATSClient struct {
	conn    NATSPublisher
	subject string
}

// DialNATS connects to url and returns the connection.
func DialNATS(url, name string) (*nats.Conn, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("NATS_URL is required")
	}
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// NewNATSClient builds a publisher bound to subject.
func NewNATSClient(conn NATSPublisher, subject string) (*NATSClient, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	return &NATSClient{conn: conn, subject: subject}, nil
}

// Send publishes the message. ctx is only checked before publishing since
// core NATS publishes are fire-and-forget.
func (n *NATSClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode nats message: %w", err)
	}
	m := nats.NewMsg(n.subject)
	m.Data = payload
	m.Header.Set("Type", msg.Type)
	if msg.RequestID != "" {
		m.Header.Set("X-Request-ID", msg.RequestID)
	}
	if err := n.conn.PublishMsg(m); err != nil {
		return fmt.Errorf("nats publish subject=%s: %w", n.subject, err)
	}
	return nil
}

var _ Client = (*NATSClient)(nil)
