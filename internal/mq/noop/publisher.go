package noop

import (
	"context"

	"petcare_settlement/internal/mq"
)

// Publisher drops every message. It backs the outbox processor in dev mode when no broker
// is configured, so outbox rows are still marked processed.
type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(context.Context, mq.Message) error {
	return nil
}

func (p *Publisher) Close() {}

var _ mq.Publisher = (*Publisher)(nil)
