package handlers

import (
	"context"
	"errors"

	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/mq/rabbitmq"

	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler defines the interface for any message queue handler.
// It allows for a collection of different handlers to be injected as a set.
type MessageHandler interface {
	// QueueName returns the name of the queue this handler should subscribe to.
	QueueName() string
	// Handle processes the delivered message.
	Handle(ctx context.Context, d amqp.Delivery) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// settle maps a logic error onto the consumer's ack policy: messages that can never
// succeed are dropped, everything else is retried.
func settle(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, logic.ErrValidation),
		errors.Is(err, logic.ErrNotFound),
		errors.Is(err, logic.ErrInvalidState),
		errors.Is(err, logic.ErrForbidden):
		return rabbitmq.Discard(err)
	default:
		return err
	}
}
