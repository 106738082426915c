package queue

import (
	"encoding/json"
	"time"
)

// TypeSubmitted is emitted once an application and its documents are committed.
const TypeSubmitted = "registration.submitted"

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Type           string `json:"type"`
	ApplicationID  string `json:"applicationId"`
	ApplicationRef string `json:"applicationRef"`
	RequestID      string `json:"requestId,omitempty"`
	EnqueuedAt     string `json:"enqueuedAt"`
	Version        int    `json:"version"`
}

// NewSubmitted builds a submission event for an application.
func NewSubmitted(applicationID, applicationRef, requestID string, now time.Time) Message {
	return Message{
		Type:           TypeSubmitted,
		ApplicationID:  applicationID,
		ApplicationRef: applicationRef,
		RequestID:      requestID,
		EnqueuedAt:     now.UTC().Format(time.RFC3339),
		Version:        MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
