// Package mq carries payment lifecycle events from the outbox to the message broker.
package mq

import (
	"context"
	"time"
)

// Message is one outbox row on its way to the broker. ID is stable across redeliveries so
// consumers can drop duplicates.
type Message struct {
	ID            string
	Topic         string
	Type          string
	Body          []byte
	CorrelationID string
	CreatedAt     time.Time
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close()
}
