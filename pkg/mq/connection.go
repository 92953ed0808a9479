// Package mq is the RabbitMQ layer shared by all services. Every event in the
// system flows through one durable topic exchange: taskd publishes task.changed
// on every mutation, reminderd publishes notification.request for due tasks,
// the push relay consumes both from durable worker queues, and each client
// change-feed subscription binds its own transient queue.
package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange carrying task.changed and
// notification.request events.
const ExchangeName = "events"

func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the events exchange. Durable, so worker queues
// survive a broker restart; declaration is idempotent and every publisher and
// consumer performs it on startup.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	)
}
