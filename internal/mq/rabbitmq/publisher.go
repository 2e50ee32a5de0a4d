package rabbitmq

import (
	"context"
	"sync"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/mq"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher holds the connection and channel for publishing messages to RabbitMQ.
// Topics map onto durable queues on the default exchange.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger

	mu       sync.Mutex
	declared map[string]struct{}
}

func NewPublisher(cfg *conf.RabbitMQConfig, logger *zap.Logger) (*Publisher, error) {
	namedLogger := logger.Named("RabbitMQPublisher")

	conn, err := dial(cfg, namedLogger)
	if err != nil {
		namedLogger.Error("Failed to connect to RabbitMQ", zap.Error(err))
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		namedLogger.Error("Failed to open a channel", zap.Error(err))
		if connErr := conn.Close(); connErr != nil {
			namedLogger.Error("Failed to close connection after channel failure", zap.Error(connErr))
		}
		return nil, err
	}

	p := &Publisher{
		conn:     conn,
		channel:  ch,
		logger:   namedLogger,
		declared: make(map[string]struct{}),
	}
	// The payment event queue exists before the first event so nothing published early is dropped.
	if cfg.PaymentEventTopic != "" {
		if err := p.ensureQueue(cfg.PaymentEventTopic); err != nil {
			p.Close()
			return nil, err
		}
	}

	namedLogger.Info("Successfully connected to RabbitMQ")
	return p, nil
}

func (p *Publisher) ensureQueue(topic string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.declared[topic]; ok {
		return nil
	}
	if _, err := declareQueue(p.channel, topic); err != nil {
		p.logger.Error("Failed to declare queue", zap.String("topic", topic), zap.Error(err))
		return err
	}
	p.declared[topic] = struct{}{}
	return nil
}

// Publish sends msg as a persistent JSON message routed to the queue named by its topic.
func (p *Publisher) Publish(ctx context.Context, msg mq.Message) error {
	if err := p.ensureQueue(msg.Topic); err != nil {
		return err
	}

	err := p.channel.PublishWithContext(ctx,
		"",        // exchange
		msg.Topic, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     msg.ID,
			Type:          msg.Type,
			CorrelationId: msg.CorrelationID,
			Timestamp:     msg.CreatedAt,
			Body:          msg.Body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish a message", zap.Error(err), zap.String("topic", msg.Topic), zap.String("message_id", msg.ID))
		return err
	}

	p.logger.Debug("Message published", zap.String("topic", msg.Topic), zap.String("message_id", msg.ID))
	return nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error("Failed to close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Error("Failed to close connection", zap.Error(err))
		}
	}
	p.logger.Info("RabbitMQ connection closed")
}

var _ mq.Publisher = (*Publisher)(nil)
