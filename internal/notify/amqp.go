package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "minaret.events"
	queueName    = "detection_alerts"
)

// EventType labels the detection transition carried by a published event.
type EventType string

const (
	EventMosqueEntry EventType = "mosque_entry"
	EventMosqueExit  EventType = "mosque_exit"
)

// DetectionEvent is the message the push-notification worker consumes.
type DetectionEvent struct {
	UserID          string    `json:"user_id"`
	MosqueID        string    `json:"mosque_id"`
	MosqueName      string    `json:"mosque_name"`
	Event           EventType `json:"event"`
	SilenceDevice   bool      `json:"silence_device"`
	RestoreDevice   bool      `json:"restore_device"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Timestamp       int64     `json:"timestamp"`
}

// EventPublisher pushes detection events somewhere a delivery worker can
// pick them up.
type EventPublisher interface {
	Publish(ctx context.Context, event DetectionEvent) error
}

// AMQPPublisher fans detection events out over RabbitMQ.
type AMQPPublisher struct {
	ch *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &AMQPPublisher{ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event DetectionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

var _ EventPublisher = (*AMQPPublisher)(nil)
