/**
 * @description
 * This package publishes internal events to a RabbitMQ topic exchange. The
 * no-op fallback lets the service come up when the broker is unreachable at
 * startup; outbox rows simply stay pending until the broker returns.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
	Close()
}

// EventProducer publishes JSON events over a single channel.
type EventProducer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewEventProducer connects to RabbitMQ with a bounded dial timeout.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	conn, err := amqp.DialConfig(amqpURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &EventProducer{conn: conn, channel: ch}, nil
}

// Publish declares the durable topic exchange and sends one JSON message.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		// The channel is unusable after a declare error; reopen once.
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return chErr
		}
		p.channel = ch
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        jsonBody,
	})
}

// Close closes the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NopPublisher logs events instead of publishing them.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	log.Printf("[MQ-FALLBACK] Would publish to exchange=%q routingKey=%q", exchange, routingKey)
	return nil
}

func (NopPublisher) Close() {}
