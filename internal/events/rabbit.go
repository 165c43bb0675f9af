// Package events delivers booking domain events to RabbitMQ. Delivery is
// best effort: the booking transaction has already committed by the time
// an event is published, so failures are logged and swallowed upstream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/moimlab/booking/pkg/booking"
)

// RabbitPublisher publishes each event to a durable queue named after the
// event, e.g. "registration.confirmed". Messages are persistent so they
// survive broker restarts.
type RabbitPublisher struct {
	logger  *zap.Logger
	mutex   sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	queues  map[string]bool
}

// NewRabbitPublisher dials the broker eagerly so misconfiguration fails at
// startup rather than at first publish.
func NewRabbitPublisher(url string, logger *zap.Logger) (*RabbitPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := &RabbitPublisher{
		logger: logger,
		url:    url,
		queues: map[string]bool{},
	}
	if err := publisher.connect(); err != nil {
		return nil, err
	}
	return publisher, nil
}

func (publisher *RabbitPublisher) connect() error {
	conn, err := amqp.Dial(publisher.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	publisher.conn = conn
	publisher.channel = channel
	publisher.queues = map[string]bool{}
	return nil
}

// Publish marshals the event and sends it on the default exchange with the
// event name as routing key. A closed connection is redialed once.
func (publisher *RabbitPublisher) Publish(ctx context.Context, event booking.Event) error {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()

	if publisher.conn == nil || publisher.conn.IsClosed() {
		if err := publisher.connect(); err != nil {
			publisher.logger.Warn("event publish reconnect failed",
				zap.String("event", event.Name), zap.Error(err))
			return err
		}
	}
	if err := publisher.declareQueue(event.Name); err != nil {
		publisher.logger.Warn("event queue declare failed",
			zap.String("event", event.Name), zap.Error(err))
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = publisher.channel.PublishWithContext(ctx,
		"",
		event.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		publisher.logger.Warn("event publish failed",
			zap.String("event", event.Name), zap.Error(err))
		return err
	}
	publisher.logger.Debug("event published",
		zap.String("event", event.Name),
		zap.String("meeting_id", event.MeetingID),
		zap.String("registration_id", event.RegistrationID))
	return nil
}

func (publisher *RabbitPublisher) declareQueue(name string) error {
	if publisher.queues[name] {
		return nil
	}
	_, err := publisher.channel.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return err
	}
	publisher.queues[name] = true
	return nil
}

// Close releases the channel and connection.
func (publisher *RabbitPublisher) Close() error {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	if publisher.channel != nil {
		_ = publisher.channel.Close()
	}
	if publisher.conn != nil {
		return publisher.conn.Close()
	}
	return nil
}

// NoopPublisher drops all events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event booking.Event) error { return nil }
