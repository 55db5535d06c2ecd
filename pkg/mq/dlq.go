package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// DLQExchangeName is the dead letter exchange for messages that
	// exhausted their redelivery budget.
	DLQExchangeName = "hcviolins.events.dlq"
)

// DeclareDLQExchange declares the dead letter exchange.
func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		DLQExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// DeclareDLQQueue declares the dead letter queue for a routing key and binds
// it to the DLQ exchange. Parked messages wait there for manual inspection.
func DeclareDLQQueue(ch *amqp091.Channel, routingKey string) error {
	dlqName := fmt.Sprintf("%s.dlq", routingKey)

	q, err := ch.QueueDeclare(
		dlqName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ queue %s: %w", dlqName, err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		DLQExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ queue %s: %w", dlqName, err)
	}

	return nil
}

// PublishToDLQ parks a failed message on the dead letter exchange, carrying
// the original error in the headers.
func (p *Publisher) PublishToDLQ(routingKey string, payload []byte, originalError string) error {
	return p.channel.Publish(
		DLQExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp091.Persistent,
			Headers: amqp091.Table{
				"x-original-error": originalError,
				"x-failed-at":      time.Now().UTC().Format(time.RFC3339),
			},
		},
	)
}
