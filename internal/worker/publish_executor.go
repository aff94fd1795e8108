package worker

import (
	"context"
	"fmt"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/mq"
)

// Publisher — то, что нужно PublishExecutor'у от mq.Publisher.
type Publisher interface {
	Publish(ctx context.Context, exchange mq.Exchange, routingKey mq.RoutingKey, msg *mq.Message) error
}

// PublishExecutor — executor для job типа "publish".
//
// Публикует сообщение в RabbitMQ в назначенное время (отложенная доставка).
//
// Config (из job.Config):
//   - routing_key (string): ключ маршрутизации (обязательно)
//   - exchange (string): обменник. Default: futurejob.events
//   - message_type (string): тип сообщения. Default: job.fired
//   - payload (any): полезная нагрузка сообщения
//
// Outputs:
//   - message_id (string): ID опубликованного сообщения
type PublishExecutor struct {
	publisher Publisher
}

// NewPublishExecutor создаёт PublishExecutor.
func NewPublishExecutor(publisher Publisher) *PublishExecutor {
	return &PublishExecutor{publisher: publisher}
}

// Execute публикует сообщение.
func (e *PublishExecutor) Execute(ctx context.Context, job *domain.Job) (*ExecutionResult, error) {
	routingKey := getString(job.Config, "routing_key", "")
	if routingKey == "" {
		return nil, fmt.Errorf("%w: routing_key is required", ErrInvalidConfig)
	}

	exchange := getString(job.Config, "exchange", string(mq.ExchangeEvents))
	msgType := getString(job.Config, "message_type", string(mq.MessageTypeJobFired))

	msg := mq.NewMessage(mq.MessageType(msgType), job.Config["payload"])

	if err := e.publisher.Publish(ctx, mq.Exchange(exchange), mq.RoutingKey(routingKey), msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	return &ExecutionResult{
		Outputs: map[string]any{"message_id": msg.ID},
	}, nil
}
