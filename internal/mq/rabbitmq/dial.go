package rabbitmq

import (
	"fmt"
	"time"

	"petcare_settlement/internal/conf"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const dialTimeout = 30 * time.Second

func dsn(cfg *conf.RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port)
}

// dial connects to the broker, retrying while it is still starting up.
func dial(cfg *conf.RabbitMQConfig, logger *zap.Logger) (*amqp.Connection, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = dialTimeout

	var conn *amqp.Connection
	err := backoff.RetryNotify(func() error {
		c, err := amqp.Dial(dsn(cfg))
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, b, func(err error, next time.Duration) {
		logger.Warn("RabbitMQ not reachable, retrying", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return conn, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}
