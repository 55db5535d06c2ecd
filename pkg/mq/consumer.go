package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/pkg/metrics"
	"github.com/mjaychoi/hc-violins/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// RetryTracker counts redelivery attempts per message across requeues.
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DLQPublisher parks messages that exhausted their redelivery budget.
type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger
	stopped    chan struct{}

	retries    RetryTracker
	dlq        DLQPublisher
	maxRetries int64
}

// NewConsumer creates a consumer bound to a routing key on the events exchange.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
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

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := DeclareDLQExchange(ch); err != nil {
		return nil, fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}
	if err := DeclareDLQQueue(ch, routingKey); err != nil {
		return nil, err
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
		stopped:    make(chan struct{}),
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetRetryPolicy bounds requeues for failing messages. After maxRetries
// redeliveries the message is parked on the DLQ instead of requeued again.
// Without a policy every handler error requeues, which loops forever on a
// poison message.
func (c *Consumer) SetRetryPolicy(retries RetryTracker, dlq DLQPublisher, maxRetries int64) {
	c.retries = retries
	c.dlq = dlq
	c.maxRetries = maxRetries
}

// IsConnected checks if the consumer connection is still alive.
func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Stop cancels delivery and closes the connection.
func (c *Consumer) Stop() {
	close(c.stopped)
	c.Close()
}

// StartConsuming consumes messages until stopped. It blocks and should be
// called in a goroutine. Every delivery is either acked or nacked: handler
// errors and panics nack with requeue so the message is not lost.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for msg := range deliveries {
		select {
		case <-c.stopped:
			return nil
		default:
		}

		c.consumeOne(msg)
	}

	return nil
}

func (c *Consumer) consumeOne(msg amqp091.Delivery) {
	ctx := context.Background()
	start := time.Now()

	c.logger.Debug("Received message",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.Int("message_size", len(msg.Body)),
	)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queue.Name),
				zap.Any("panic", r),
			)
			if err := msg.Nack(false, true); err != nil {
				c.logger.Error("Failed to nack message after panic",
					zap.String("routing_key", c.routingKey),
					zap.Error(err),
				)
			}
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		c.handleFailure(ctx, msg, err)
		return
	}

	if c.retries != nil {
		key := util.FormatRetryKey(c.queue.Name, msg.Body)
		if err := c.retries.Reset(ctx, key); err != nil {
			c.logger.Warn("Failed to reset retry count",
				zap.String("queue", c.queue.Name),
				zap.Error(err),
			)
		}
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
	}

	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
}

// handleFailure decides between requeueing a failed delivery and parking it
// on the DLQ once its retry budget is spent.
func (c *Consumer) handleFailure(ctx context.Context, msg amqp091.Delivery, handlerErr error) {
	if c.retries == nil || c.dlq == nil {
		c.nackRequeue(msg, handlerErr)
		return
	}

	key := util.FormatRetryKey(c.queue.Name, msg.Body)
	count, err := c.retries.IncrementAndGet(ctx, key)
	if err != nil {
		// Redis being down must not stall the queue. Requeue and try
		// counting again on the next delivery.
		c.logger.Warn("Failed to track retry count, requeueing anyway",
			zap.String("queue", c.queue.Name),
			zap.Error(err),
		)
		c.nackRequeue(msg, handlerErr)
		return
	}

	if count <= c.maxRetries {
		c.logger.Error("Handler failed, requeueing message",
			zap.String("routing_key", c.routingKey),
			zap.Int64("retry_count", count),
			zap.Int64("max_retries", c.maxRetries),
			zap.Error(handlerErr),
		)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to nack message",
				zap.String("routing_key", c.routingKey),
				zap.Error(nackErr),
			)
		}
		return
	}

	c.logger.Error("Retry budget exhausted, parking message on DLQ",
		zap.String("routing_key", c.routingKey),
		zap.Int64("retry_count", count),
		zap.Error(handlerErr),
	)
	if dlqErr := c.dlq.PublishToDLQ(c.routingKey, msg.Body, handlerErr.Error()); dlqErr != nil {
		// Keep the message in the queue rather than lose it.
		c.logger.Error("Failed to publish to DLQ, requeueing",
			zap.String("routing_key", c.routingKey),
			zap.Error(dlqErr),
		)
		c.nackRequeue(msg, handlerErr)
		return
	}

	if err := c.retries.Reset(ctx, key); err != nil {
		c.logger.Warn("Failed to reset retry count after parking",
			zap.String("queue", c.queue.Name),
			zap.Error(err),
		)
	}
	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack parked message",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
	}
}

func (c *Consumer) nackRequeue(msg amqp091.Delivery, handlerErr error) {
	c.logger.Error("Handler failed, requeueing message",
		zap.String("routing_key", c.routingKey),
		zap.Error(handlerErr),
	)
	if nackErr := msg.Nack(false, true); nackErr != nil {
		c.logger.Error("Failed to nack message",
			zap.String("routing_key", c.routingKey),
			zap.Error(nackErr),
		)
	}
}
