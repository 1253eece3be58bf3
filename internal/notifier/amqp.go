package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	DefaultExchange = "smartsave"
	DefaultQueue    = "smartsave.notifications"
)

const publishTimeout = 5 * time.Second

// AMQPClient publishes notifications to, and consumes them from, a durable
// direct exchange bound to a single queue.
type AMQPClient struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *zap.Logger
}

func NewAMQPClient(url, exchangeName, queueName string, logger *zap.Logger) (*AMQPClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &AMQPClient{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}
	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return client, nil
}

func (c *AMQPClient) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// routing key is the queue name
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Notify publishes n as a persistent JSON message.
func (c *AMQPClient) Notify(ctx context.Context, n data.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		MessageId:    n.ID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	c.logger.Info("published notification",
		zap.String("id", n.ID),
		zap.String("exchange", c.exchangeName),
		zap.String("queue", c.queueName))
	return nil
}

// Consume hands each queued notification to handle until ctx is done.
// Malformed messages are dropped; handler failures are requeued.
func (c *AMQPClient) Consume(ctx context.Context, handle func(data.Notification) error) error {
	deliveries, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.Info("consuming notifications", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			n, err := DecodeNotification(delivery.Body)
			if err != nil {
				c.logger.Error("dropping malformed message", zap.Error(err))
				delivery.Nack(false, false)
				continue
			}
			if err := handle(n); err != nil {
				c.logger.Error("failed to handle notification", zap.String("id", n.ID), zap.Error(err))
				delivery.Nack(false, true)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *AMQPClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// DecodeNotification parses a queued message body.
func DecodeNotification(body []byte) (data.Notification, error) {
	var n data.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	if n.Message == "" {
		return n, fmt.Errorf("decode notification: empty message")
	}
	return n, nil
}
