package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// MailHandler drains the mail queue. Delivery is recorded in the log; a message that
// cannot be decoded or has no recipient is rejected to the dead-letter queue.
type MailHandler struct {
	logger logger.Logger
}

func NewMailHandler(logger logger.Logger) *MailHandler {
	return &MailHandler{logger: logger}
}

func (h *MailHandler) HandleMail(ctx context.Context, body []byte) error {
	requestID := logger.RequestID(ctx)

	var msg interfaces.MailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse mail message", requestID, nil, err)
		return err
	}
	if msg.To == "" {
		return errors.New("mail message has no recipient")
	}

	h.logger.Info("mail_sent", fmt.Sprintf("Sent %s mail to %s", msg.Template, msg.To), requestID,
		map[string]interface{}{
			"template": msg.Template,
			"subject":  msg.Subject,
		})
	return nil
}
