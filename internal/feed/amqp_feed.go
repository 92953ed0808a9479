package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	mqcontracts "taskmanagerx/internal/contracts/mq"
	"taskmanagerx/pkg/mq"
)

// AMQPFeed subscribes to the task.changed stream over RabbitMQ. Each
// subscription gets its own exclusive auto-delete queue bound to the events
// exchange, so multiple clients see the full stream independently.
type AMQPFeed struct {
	url    string
	logger *zap.Logger
}

func NewAMQPFeed(url string, logger *zap.Logger) *AMQPFeed {
	return &AMQPFeed{url: url, logger: logger}
}

func (f *AMQPFeed) Subscribe(ctx context.Context, userID int) (<-chan Event, func(), error) {
	conn, err := mq.NewConnection(f.url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := mq.DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Server-named, exclusive, auto-delete: the queue dies with the client.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, mqcontracts.RoutingKeyTaskChanged, mq.ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	f.logger.Info("Change feed subscribed",
		zap.Int("user_id", userID),
		zap.String("queue", q.Name),
	)

	events := make(chan Event, 16)

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			_ = ch.Close()
			_ = conn.Close()
		})
	}

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case msg, ok := <-deliveries:
				if !ok {
					return
				}
				ev, ok := f.decode(msg, userID)
				if !ok {
					continue
				}
				select {
				case events <- ev:
				default:
					// Slow consumer. Dropping is safe: every event triggers
					// the same full resynchronization.
					f.logger.Warn("Change feed buffer full, dropping event",
						zap.Int("user_id", userID),
					)
				}
			}
		}
	}()

	return events, stop, nil
}

// decode unmarshals a delivery and filters out other users' changes.
func (f *AMQPFeed) decode(msg amqp091.Delivery, userID int) (Event, bool) {
	var payload mqcontracts.TaskChangedPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		f.logger.Error("Failed to decode change event", zap.Error(err))
		return Event{}, false
	}
	if payload.OwnerID() != userID {
		return Event{}, false
	}
	return Event{
		Type: payload.EventType,
		New:  payload.New,
		Old:  payload.Old,
	}, true
}
