// Package notify publishes lifecycle events to a RabbitMQ topic exchange.
// Consumers (email, Slack, webhooks) bind their own queues; this adapter
// never formats messages or picks channels.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"access-grants/internal/domain"
	"access-grants/internal/ports"
)

const exchangeName = "access-grants.events"

type AMQPPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  ports.Logger
	enabled bool
}

// NewAMQPPublisher connects and declares the topic exchange. An empty URI
// yields a disabled publisher so local runs work without a broker.
func NewAMQPPublisher(uri string, logger ports.Logger) (*AMQPPublisher, error) {
	if uri == "" {
		logger.Warn(context.Background(), "amqp uri is empty, event publishing disabled")
		return &AMQPPublisher{logger: logger, enabled: false}, nil
	}
	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: channel, logger: logger, enabled: true}, nil
}

// Publish sends the event as a persistent JSON message, routing key = event
// type, so consumers can bind per lifecycle stage.
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.Event) error {
	if !p.enabled {
		p.logger.Debug(ctx, "event publishing disabled, dropping event", "event_type", event.Type)
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.channel.PublishWithContext(ctx,
		exchangeName,
		string(event.Type),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
