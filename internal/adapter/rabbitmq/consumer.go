package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 5 * time.Second

type consumer struct {
	conn     Connection
	prefetch int
	logger   logger.Logger
}

func NewConsumer(conn Connection, prefetch int, logger logger.Logger) interfaces.MessageConsumer {
	return &consumer{conn: conn, prefetch: prefetch, logger: logger}
}

func (c *consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	return c.run(ctx, "notifications", func(ctx context.Context) error {
		return c.consumeNotifications(ctx, handler)
	})
}

func (c *consumer) ConsumeMail(ctx context.Context, handler interfaces.MailHandler) error {
	return c.run(ctx, "mail", func(ctx context.Context) error {
		return c.consumeMail(ctx, handler)
	})
}

// run keeps consume alive across broker disconnects until ctx is cancelled.
func (c *consumer) run(ctx context.Context, name string, consume func(ctx context.Context) error) error {
	for {
		err := consume(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Error("consumer_disconnected",
			fmt.Sprintf("%s consumer disconnected, reconnecting in %s", name, reconnectDelay), "",
			map[string]interface{}{"consumer": name}, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}

		if c.conn.IsClosed() {
			if err := c.conn.Reconnect(); err != nil {
				c.logger.Error("rabbitmq_reconnect_failed", "Failed to reconnect to RabbitMQ", "", nil, err)
			}
		}
	}
}

func (c *consumer) consumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Every subscriber gets its own temporary queue on the fan-out.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", NotificationsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	return c.loop(ctx, closeChan, msgs, func(msg amqp.Delivery) {
		msgCtx := logger.WithRequestID(ctx, msg.CorrelationId)
		if err := handler(msgCtx, msg.Type, msg.Body); err != nil {
			c.logger.Error("notification_handle_failed", "Failed to handle notification", msg.CorrelationId,
				map[string]interface{}{"kind": msg.Type}, err)
		}
	})
}

func (c *consumer) consumeMail(ctx context.Context, handler interfaces.MailHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := setupMailInfrastructure(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(MailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	return c.loop(ctx, closeChan, msgs, func(msg amqp.Delivery) {
		msgCtx := logger.WithRequestID(ctx, msg.CorrelationId)
		if err := handler(msgCtx, msg.Body); err != nil {
			c.logger.Error("mail_handle_failed", "Failed to deliver mail, dead-lettering", msg.CorrelationId,
				map[string]interface{}{"template": msg.Type}, err)
			msg.Nack(false, false)
			return
		}
		msg.Ack(false)
	})
}

func (c *consumer) loop(ctx context.Context, closeChan <-chan *amqp.Error, msgs <-chan amqp.Delivery, handle func(amqp.Delivery)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			handle(msg)
		}
	}
}
