package queue

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		Type:           TypeSubmitted,
		ApplicationID:  "9b2f4a52-7f0c-4a8e-9d43-1b5e7d0a6c11",
		ApplicationRef: "REG-20260130-7K3QXM",
		RequestID:      "request-456",
		EnqueuedAt:     "2026-01-30T22:00:00Z",
		Version:        1,
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestNewSubmitted(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("MYT", 8*3600))
	msg := NewSubmitted("app-1", "REG-20260304-AAAAAA", "", now)

	if msg.Type != TypeSubmitted || msg.Version != MessageVersion {
		t.Fatalf("unexpected header fields: %+v", msg)
	}
	if msg.EnqueuedAt != "2026-03-03T21:06:07Z" {
		t.Fatalf("expected UTC timestamp, got %s", msg.EnqueuedAt)
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(payload), "requestId") {
		t.Fatalf("expected empty request id to be omitted: %s", payload)
	}
}
