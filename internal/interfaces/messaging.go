package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/domain"
)

// Message kinds carried on the notifications fan-out, set as the AMQP type property.
const (
	KindNotification = "notification"
	KindStatusUpdate = "status_update"
)

type NotificationMessage struct {
	NotificationID int                     `json:"notification_id"`
	UserID         int                     `json:"user_id"`
	Type           domain.NotificationType `json:"type"`
	Title          string                  `json:"title"`
	Body           string                  `json:"body"`
	Data           map[string]any          `json:"data,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

type StatusUpdateMessage struct {
	OrderNumber     string        `json:"order_number"`
	UserID          int           `json:"user_id"`
	OldStatus       domain.Status `json:"old_status"`
	NewStatus       domain.Status `json:"new_status"`
	ChangedBy       string        `json:"changed_by"`
	Timestamp       time.Time     `json:"timestamp"`
	ExpectedArrival *time.Time    `json:"expected_arrival,omitempty"`
}

// Mail templates.
const (
	TemplateOrderPlaced = "order_placed"
	TemplateReceipt     = "payment_receipt"
)

type MailMessage struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Subject  string         `json:"subject"`
	Data     map[string]any `json:"data,omitempty"`
}

type MessagePublisher interface {
	PublishNotification(ctx context.Context, msg NotificationMessage) error
	PublishStatusUpdate(ctx context.Context, msg StatusUpdateMessage) error
}

type MessageConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
	ConsumeMail(ctx context.Context, handler MailHandler) error
}

type (
	NotificationHandler func(ctx context.Context, kind string, body []byte) error
	MailHandler         func(ctx context.Context, body []byte) error
)
