package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/futurejob/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobSubmit    MessageType = "job.submit"
	MessageTypeJobCompleted MessageType = "job.completed"
	MessageTypeJobFired     MessageType = "job.fired"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID и текущим временем.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// JobSubmitPayload — запрос на постановку job через очередь jobs.submit.
// Ровно одно из DueAt / DelaySec определяет время; если нет ни одного — "сейчас".
type JobSubmitPayload struct {
	Name        string              `json:"name,omitempty"`
	Kind        string              `json:"kind"`
	Config      map[string]any      `json:"config,omitempty"`
	DueAt       *time.Time          `json:"due_at,omitempty"`
	DelaySec    float64             `json:"delay_sec,omitempty"`
	CronExpr    string              `json:"cron_expr,omitempty"`
	IntervalSec int                 `json:"interval_sec,omitempty"`
	Timezone    string              `json:"timezone,omitempty"`
	Retry       *domain.RetryPolicy `json:"retry,omitempty"`
}

// JobCompletedPayload — payload для сообщения о выполненной job.
type JobCompletedPayload struct {
	JobID      uuid.UUID `json:"job_id"`
	Name       string    `json:"name,omitempty"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"` // SUCCEEDED или FAILED
	Error      string    `json:"error,omitempty"`
	Attempt    int       `json:"attempt"`
	DueAt      time.Time `json:"due_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishJobSubmit публикует запрос на постановку job.
// Потребитель: futurejob-server.
func (p *Publisher) PublishJobSubmit(ctx context.Context, payload JobSubmitPayload) error {
	return p.Publish(ctx, ExchangeJobs, RoutingKeySubmit, NewMessage(MessageTypeJobSubmit, payload))
}

// PublishJobCompleted публикует событие о выполненной job.
func (p *Publisher) PublishJobCompleted(ctx context.Context, payload JobCompletedPayload) error {
	return p.Publish(ctx, ExchangeEvents, RoutingKeyCompleted, NewMessage(MessageTypeJobCompleted, payload))
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	return p.Publish(ctx, exchange, routingKey, NewMessage(msgType, payload))
}
