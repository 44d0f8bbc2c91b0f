package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fixforge-client/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

func PublishMessage(ctx context.Context, ch Channel, queueName string, payload interface{}) error {
	_, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Publisher sends submitted-report events to a durable queue.
type Publisher struct {
	ch    Channel
	queue string
}

func NewPublisher(ch Channel, queueName string) *Publisher {
	return &Publisher{ch: ch, queue: queueName}
}

func (p *Publisher) PublishSubmitted(ctx context.Context, e models.SubmittedEvent) error {
	return PublishMessage(ctx, p.ch, p.queue, e)
}
