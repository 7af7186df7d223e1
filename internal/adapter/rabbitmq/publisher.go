package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.MessagePublisher {
	return &publisher{conn: conn}
}

func (p *publisher) PublishNotification(ctx context.Context, msg interfaces.NotificationMessage) error {
	return p.publish(ctx, interfaces.KindNotification, msg)
}

func (p *publisher) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	return p.publish(ctx, interfaces.KindStatusUpdate, msg)
}

func (p *publisher) publish(ctx context.Context, kind string, msg any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.Publish(ctx, NotificationsExchange, "", false, false, amqp.Publishing{
		ContentType:   "application/json",
		Type:          kind,
		Body:          body,
		Timestamp:     time.Now().UTC(),
		CorrelationId: logger.RequestID(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

type mailer struct {
	conn Connection
}

// NewMailer queues templated mail on the durable mail queue for the subscriber to deliver.
func NewMailer(conn Connection) interfaces.Mailer {
	return &mailer{conn: conn}
}

func (m *mailer) Send(ctx context.Context, msg interfaces.MailMessage) error {
	ch, err := m.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := setupMailInfrastructure(ch); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	err = ch.Publish(ctx, "", MailQueue, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		Type:          msg.Template,
		Body:          body,
		Timestamp:     time.Now().UTC(),
		CorrelationId: logger.RequestID(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to publish mail: %w", err)
	}
	return nil
}

// setupMailInfrastructure declares the mail queue and its dead-letter queue.
func setupMailInfrastructure(ch Channel) error {
	if err := ch.ExchangeDeclare(mailDLX, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(mailDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := ch.QueueBind(mailDLQ, "", mailDLX, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	args := amqp.Table{"x-dead-letter-exchange": mailDLX}
	if _, err := ch.QueueDeclare(MailQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare mail queue: %w", err)
	}
	return nil
}
