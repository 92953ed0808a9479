package mq

import (
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"taskmanagerx/pkg/metrics"
)

// Publisher publishes events to the events exchange. Delivery is at most
// once: callers treat a failed publish as a missed convergence signal, not a
// lost mutation, so there is no retry or buffering here.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected reports whether the underlying connection is still alive. The
// readiness probes use it.
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

// Publish marshals the payload and publishes it under the routing key.
// Messages are persistent so durable worker queues keep them across a broker
// restart; transient feed queues drop them with the queue, which is fine.
func (p *Publisher) Publish(routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		metrics.IncrementMQPublish(routingKey, "encode_error")
		return err
	}

	err = p.channel.Publish(
		ExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		metrics.IncrementMQPublish(routingKey, "failed")
		return err
	}

	metrics.IncrementMQPublish(routingKey, "published")
	return nil
}
