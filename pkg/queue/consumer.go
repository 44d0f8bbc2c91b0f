package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"fixforge-client/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumeChannel is the subset of *amqp.Channel used for consuming.
type ConsumeChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// ConsumeSubmitted calls fn for every submitted-report event on queueName
// until ctx ends or the channel closes. Malformed messages are logged and
// skipped. Deliveries are auto-acked.
func ConsumeSubmitted(ctx context.Context, ch ConsumeChannel, queueName string, logger *zap.Logger, fn func(models.SubmittedEvent)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queueName, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			var event models.SubmittedEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				logger.Warn("failed to parse event", zap.String("queue", queueName), zap.Error(err))
				continue
			}
			fn(event)
		}
	}
}
