package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// Dispatcher persists one in-app notification per recipient, publishes it on the
// fan-out and mails customers where a mail template exists.
type Dispatcher struct {
	repo      interfaces.NotificationRepository
	users     interfaces.UserRepository
	publisher interfaces.MessagePublisher
	mailer    interfaces.Mailer
	logger    logger.Logger
	now       func() time.Time
}

func NewDispatcher(
	repo interfaces.NotificationRepository,
	users interfaces.UserRepository,
	publisher interfaces.MessagePublisher,
	mailer interfaces.Mailer,
	logger logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		users:     users,
		publisher: publisher,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

func (d *Dispatcher) OrderPlaced(ctx context.Context, order *domain.Order) error {
	data := orderData(order)

	errs := []error{
		d.notify(ctx, order.UserID, domain.NotifyOrderPlaced,
			"Order placed",
			fmt.Sprintf("Your order %s has been placed. Total: %s", order.Number, order.Total.StringFixed(2)),
			data),
		d.mail(ctx, order.UserID, interfaces.TemplateOrderPlaced, "Order "+order.Number+" received", data),
	}

	staff, err := d.users.ListActiveStaff(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to list staff: %w", err))
	}
	for _, member := range staff {
		errs = append(errs, d.notify(ctx, member.ID, domain.NotifyNewOrder,
			"New order",
			fmt.Sprintf("New %s order %s awaiting payment", order.Type, order.Number),
			data))
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) OrderStatusChanged(ctx context.Context, order *domain.Order, old domain.Status, changedBy string) error {
	data := orderData(order)
	data["old_status"] = old

	errs := []error{
		d.notify(ctx, order.UserID, domain.NotifyOrderStatus,
			"Order update",
			fmt.Sprintf("Your order %s is now %s", order.Number, order.Status),
			data),
	}

	if err := d.publisher.PublishStatusUpdate(ctx, interfaces.StatusUpdateMessage{
		OrderNumber:     order.Number,
		UserID:          order.UserID,
		OldStatus:       old,
		NewStatus:       order.Status,
		ChangedBy:       changedBy,
		Timestamp:       d.now(),
		ExpectedArrival: order.ExpectedArrival,
	}); err != nil {
		errs = append(errs, fmt.Errorf("failed to publish status update: %w", err))
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) PaymentConfirmed(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	data := orderData(order)
	data["payment_reference"] = payment.Reference
	data["amount"] = payment.Amount.StringFixed(2)
	data["method"] = payment.Method

	return errors.Join(
		d.notify(ctx, order.UserID, domain.NotifyPaymentConfirmed,
			"Payment received",
			fmt.Sprintf("Payment for order %s confirmed", order.Number),
			data),
		d.mail(ctx, order.UserID, interfaces.TemplateReceipt, "Receipt for order "+order.Number, data),
	)
}

func (d *Dispatcher) ReferralSignup(ctx context.Context, referrerID int, referee *domain.User, bonus int64) error {
	return d.notify(ctx, referrerID, domain.NotifyReferralSignup,
		"New referral",
		fmt.Sprintf("%s joined with your referral code. You earned %d points", referee.Name, bonus),
		map[string]any{"referee_id": referee.ID, "bonus": bonus})
}

func (d *Dispatcher) ReferralFirstOrder(ctx context.Context, referrerID int, order *domain.Order, bonus int64) error {
	return d.notify(ctx, referrerID, domain.NotifyReferralFirstOrder,
		"Referral bonus",
		fmt.Sprintf("Your referral placed their first order. You earned %d points", bonus),
		map[string]any{"order_number": order.Number, "bonus": bonus})
}

func (d *Dispatcher) List(ctx context.Context, userID int) ([]*domain.Notification, error) {
	return d.repo.ListByUser(ctx, userID)
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, notificationID int) error {
	return d.repo.MarkRead(ctx, userID, notificationID)
}

func (d *Dispatcher) notify(ctx context.Context, userID int, kind domain.NotificationType, title, body string, data map[string]any) error {
	n := &domain.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: d.now(),
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store %s notification for user %d: %w", kind, userID, err)
	}

	if err := d.publisher.PublishNotification(ctx, interfaces.NotificationMessage{
		NotificationID: n.ID,
		UserID:         userID,
		Type:           kind,
		Title:          title,
		Body:           body,
		Data:           data,
		CreatedAt:      n.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", kind, err)
	}

	d.logger.Debug("notification_sent", title, logger.RequestID(ctx), map[string]interface{}{
		"user_id": userID,
		"type":    kind,
	})
	return nil
}

func (d *Dispatcher) mail(ctx context.Context, userID int, template, subject string, data map[string]any) error {
	user, err := d.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load mail recipient: %w", err)
	}
	if user.Email == "" {
		return nil
	}

	if err := d.mailer.Send(ctx, interfaces.MailMessage{
		To:       user.Email,
		Template: template,
		Subject:  subject,
		Data:     data,
	}); err != nil {
		d.logger.Error("mail_failed", "Failed to queue mail", logger.RequestID(ctx), map[string]interface{}{
			"user_id":  userID,
			"template": template,
		}, err)
		return fmt.Errorf("failed to send %s mail: %w", template, err)
	}
	return nil
}

func orderData(order *domain.Order) map[string]any {
	return map[string]any{
		"order_id":     order.ID,
		"order_number": order.Number,
		"status":       order.Status,
		"total":        order.Total.StringFixed(2),
	}
}
