package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
	}
}

// HandleNotification decodes one fan-out message by its kind and records it.
func (h *NotificationHandler) HandleNotification(ctx context.Context, kind string, body []byte) error {
	requestID := logger.RequestID(ctx)

	switch kind {
	case interfaces.KindStatusUpdate:
		var msg interfaces.StatusUpdateMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			h.logger.Error("message_parse_failed", "Failed to parse status update", requestID, nil, err)
			return err
		}
		h.logger.Info("status_update_received",
			fmt.Sprintf("Order %s: status changed from '%s' to '%s' by %s", msg.OrderNumber, msg.OldStatus, msg.NewStatus, msg.ChangedBy),
			requestID, map[string]interface{}{
				"order_number": msg.OrderNumber,
				"user_id":      msg.UserID,
				"new_status":   msg.NewStatus,
			})

	case interfaces.KindNotification:
		var msg interfaces.NotificationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			h.logger.Error("message_parse_failed", "Failed to parse notification", requestID, nil, err)
			return err
		}
		h.logger.Info("notification_received", fmt.Sprintf("Notification for user %d: %s", msg.UserID, msg.Title),
			requestID, map[string]interface{}{
				"notification_id": msg.NotificationID,
				"user_id":         msg.UserID,
				"type":            msg.Type,
			})

	default:
		h.logger.Debug("notification_skipped", "Unknown message kind", requestID, map[string]interface{}{"kind": kind})
	}

	return nil
}
