package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"registration-backend/internal/notify"
	"registration-backend/internal/queue"
	"registration-backend/internal/registrations"
	"registration-backend/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingApplicationID indicates a message without an application id.
type ErrMissingApplicationID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingApplicationID) Error() string { return "missing application id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ApplicationID string
	RequestID     string
	Err           error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process submission"
	}
	return "process submission: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Permanent reports whether retrying cannot succeed.
func (e ErrProcess) Permanent() bool {
	return errors.Is(e.Err, registrations.ErrNotFound) || errors.Is(e.Err, notify.ErrNoRecipient)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ApplicationID) == "" {
		return msg, meta, ErrMissingApplicationID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Unrecoverable reports whether a failed message should be dropped rather than redelivered.
func Unrecoverable(err error) bool {
	switch e := err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingApplicationID:
		return true
	case ErrProcess:
		return e.Permanent()
	}
	return false
}

// ApplicationLoader reads an application and its documents.
type ApplicationLoader interface {
	Get(ctx context.Context, id string) (registrations.Application, []registrations.Document, error)
}

// Processor handles submission events.
type Processor struct {
	Applications ApplicationLoader
	Mailer       notify.Mailer
}

// Process sends the acknowledgement e-mail for the submitted application.
func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	app, docs, err := p.Applications.Get(ctx, msg.ApplicationID)
	if err != nil {
		return err
	}
	if msg.ApplicationRef != "" && msg.ApplicationRef != app.Ref {
		telemetry.Warn("worker.submission.ref_mismatch", map[string]any{
			"application_id": app.ID,
			"event_ref":      msg.ApplicationRef,
			"stored_ref":     app.Ref,
		})
	}

	email, err := notify.Acknowledgement(app)
	if err != nil {
		return err
	}
	if err := p.Mailer.Send(ctx, email); err != nil {
		return err
	}

	telemetry.Info("worker.submission.acknowledged", map[string]any{
		"application_id":  app.ID,
		"application_ref": app.Ref,
		"document_count":  len(docs),
		"request_id":      msg.RequestID,
	})
	return nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, p *Processor, body string) error {
	if p == nil || p.Applications == nil || p.Mailer == nil {
		return errors.New("submission processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(msg.ApplicationID) == "" {
		return ErrMissingApplicationID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := p.Process(ctx, msg); err != nil {
		return ErrProcess{ApplicationID: msg.ApplicationID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
