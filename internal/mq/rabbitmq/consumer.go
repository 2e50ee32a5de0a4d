package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"petcare_settlement/internal/conf"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc handles one delivery. A nil error acks the message. Errors wrapped with
// Discard are dropped without requeue; any other error requeues the message.
type HandlerFunc func(ctx context.Context, delivery amqp.Delivery) error

type discardError struct{ err error }

func (e *discardError) Error() string { return e.err.Error() }
func (e *discardError) Unwrap() error { return e.err }

// Discard marks err as unrecoverable for the message that caused it.
func Discard(err error) error {
	if err == nil {
		return nil
	}
	return &discardError{err: err}
}

// IsDiscard reports whether err was marked with Discard.
func IsDiscard(err error) bool {
	var d *discardError
	return errors.As(err, &d)
}

// Consumer handles the connection and consumption of messages from RabbitMQ.
type Consumer struct {
	conn     *amqp.Connection
	logger   *zap.Logger
	handlers map[string]HandlerFunc
}

func NewConsumer(cfg *conf.RabbitMQConfig, logger *zap.Logger) (*Consumer, error) {
	namedLogger := logger.Named("RabbitMQConsumer")

	conn, err := dial(cfg, namedLogger)
	if err != nil {
		namedLogger.Error("Failed to connect to RabbitMQ", zap.Error(err))
		return nil, err
	}

	namedLogger.Info("Successfully connected to RabbitMQ")

	return &Consumer{
		conn:     conn,
		logger:   namedLogger,
		handlers: make(map[string]HandlerFunc),
	}, nil
}

// RegisterHandler registers a handler function for a specific queue.
func (c *Consumer) RegisterHandler(queueName string, handler HandlerFunc) {
	c.handlers[queueName] = handler
}

// Start consumes every registered queue on its own channel and blocks until ctx is done or
// one of the queues fails.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered, consumer will not start")
	}

	g, gctx := errgroup.WithContext(ctx)
	for queueName, handler := range c.handlers {
		queueName, handler := queueName, handler
		g.Go(func() error {
			return c.consumeQueue(gctx, queueName, handler)
		})
	}
	return g.Wait()
}

func (c *Consumer) consumeQueue(ctx context.Context, queueName string, handler HandlerFunc) error {
	ch, err := c.conn.Channel()
	if err != nil {
		c.logger.Error("Failed to open a channel", zap.Error(err), zap.String("queue", queueName))
		return err
	}
	defer ch.Close()

	q, err := declareQueue(ch, queueName)
	if err != nil {
		c.logger.Error("Failed to declare a queue", zap.Error(err), zap.String("queue", queueName))
		return err
	}

	// One unacked message per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		c.logger.Error("Failed to set QoS", zap.Error(err), zap.String("queue", queueName))
		return err
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		c.logger.Error("Failed to register a consumer", zap.Error(err), zap.String("queue", queueName))
		return err
	}

	c.logger.Info("Started consuming from queue", zap.String("queue", q.Name))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for queue %s closed", q.Name)
			}
			c.handle(ctx, q.Name, handler, d)
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumer", zap.String("queue", q.Name))
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, queue string, handler HandlerFunc, d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic recovered in message handler",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
				zap.String("queue", queue),
			)
			// No requeue, a panicking message would loop.
			if d.Acknowledger != nil {
				_ = d.Nack(false, false)
			}
		}
	}()

	c.logger.Debug("Received a message", zap.String("queue", queue), zap.ByteString("body", d.Body))
	err := handler(ctx, d)
	if d.Acknowledger == nil {
		return
	}
	switch {
	case err == nil:
		_ = d.Ack(false)
	case IsDiscard(err):
		c.logger.Error("Dropping unprocessable message", zap.Error(err), zap.String("queue", queue), zap.ByteString("body", d.Body))
		_ = d.Nack(false, false)
	default:
		c.logger.Error("Handler failed to process message", zap.Error(err), zap.String("queue", queue))
		_ = d.Nack(false, true)
	}
}

// Close gracefully closes the connection.
func (c *Consumer) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close connection", zap.Error(err))
		}
	}
}
