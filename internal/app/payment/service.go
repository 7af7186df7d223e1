package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type Settings struct {
	Currency  string
	EarnRate  int64
	ReturnURL string
	CancelURL string
	NotifyURL string
}

type Deps struct {
	Tx       interfaces.TxManager
	Orders   interfaces.OrderRepository
	Users    interfaces.UserRepository
	Payments interfaces.PaymentRepository
	Ledger   interfaces.Ledger
	Gateway  interfaces.PaymentProcessorClient
	// Guard is optional.
	Guard    interfaces.WebhookGuard
	Notifier interfaces.Notifier
	Logger   logger.Logger
	Clock    func() time.Time
}

type Service struct {
	deps     Deps
	settings Settings
}

func NewService(deps Deps, settings Settings) *Service {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{deps: deps, settings: settings}
}

// Initialize opens a transaction with the processor for a pending order. The local
// payment row is written only after the processor accepted the request.
func (s *Service) Initialize(ctx context.Context, actor domain.Actor, cmd interfaces.InitializePaymentCommand) (*interfaces.PaymentInit, error) {
	requestID := logger.RequestID(ctx)

	order, err := s.deps.Orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		return nil, domain.ErrWrongOwner
	}

	paid, err := s.deps.Payments.HasPaid(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, domain.ErrAlreadyPaid
	}
	if order.Status != domain.StatusPending || !order.Total.IsPositive() {
		return nil, domain.ErrOrderNotPayable
	}

	user, err := s.deps.Users.FindByID(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	method := domain.ParseMethod(string(cmd.Method))
	merchantRef := fmt.Sprintf("%s-%s", order.Number, strings.ToUpper(uuid.NewString()[:8]))

	result, err := s.deps.Gateway.InitializeTransaction(ctx, interfaces.InitializeTransactionRequest{
		MerchantRef: merchantRef,
		Currency:    s.settings.Currency,
		Amount:      order.Total,
		Customer:    interfaces.PaymentCustomer{Name: user.Name, Email: user.Email},
		ReturnURL:   s.settings.ReturnURL,
		CancelURL:   s.settings.CancelURL,
		NotifyURL:   s.settings.NotifyURL,
		Channels:    []string{method.Channel()},
	})
	if err != nil {
		s.deps.Logger.Error("payment_init_failed", "Payment gateway refused to initialize", requestID, map[string]interface{}{
			"order_number": order.Number,
		}, err)
		return nil, err
	}

	now := s.deps.Clock()
	payment := &domain.Payment{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Amount:      order.Total,
		Currency:    s.settings.Currency,
		Method:      method,
		Status:      domain.PaymentPending,
		Reference:   result.Reference,
		MerchantRef: merchantRef,
		Channel:     method.Channel(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deps.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}

	s.deps.Logger.Info("payment_initialized", "Payment initialized", requestID, map[string]interface{}{
		"order_number": order.Number,
		"reference":    payment.Reference,
		"method":       method,
	})
	return &interfaces.PaymentInit{Payment: payment, RedirectURL: result.RedirectURL}, nil
}

// HandleWebhook applies a processor callback. The payload only names the payment: its
// status is re-read from the processor, so a forged or stale body cannot move money.
// Repeated deliveries are dropped by the guard; reconciliation is idempotent either way.
func (s *Service) HandleWebhook(ctx context.Context, hook interfaces.PaymentWebhook) (*domain.Payment, error) {
	requestID := logger.RequestID(ctx)
	if strings.TrimSpace(hook.Reference) == "" {
		return nil, domain.Validation("payment reference is required")
	}

	payment, err := s.deps.Payments.FindByReference(ctx, hook.Reference)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentPaid {
		return payment, nil
	}

	status, err := s.deps.Gateway.CheckStatus(ctx, hook.Reference)
	if err != nil {
		return nil, err
	}
	if domain.MapGatewayStatus(status.Status) != domain.MapGatewayStatus(hook.Status) {
		s.deps.Logger.Info("webhook_status_mismatch", "Webhook status differs from processor", requestID, map[string]interface{}{
			"reference": hook.Reference,
			"claimed":   hook.Status,
			"processor": status.Status,
		})
	}

	if s.deps.Guard == nil {
		return s.reconcile(ctx, hook.Reference, status.Status, status.Channel)
	}

	key := hook.Reference + ":" + strings.ToUpper(strings.TrimSpace(status.Status))
	first, err := s.deps.Guard.Acquire(ctx, key)
	if err != nil {
		s.deps.Logger.Error("webhook_guard_failed", "Webhook guard unavailable", requestID, nil, err)
	} else if !first {
		s.deps.Logger.Debug("webhook_duplicate", "Duplicate webhook delivery ignored", requestID, map[string]interface{}{
			"reference": hook.Reference,
		})
		return s.deps.Payments.FindByReference(ctx, hook.Reference)
	}

	payment, err = s.reconcile(ctx, hook.Reference, status.Status, status.Channel)
	if err != nil {
		if rerr := s.deps.Guard.Release(ctx, key); rerr != nil {
			s.deps.Logger.Error("webhook_guard_failed", "Failed to release webhook key", requestID, nil, rerr)
		}
		return nil, err
	}
	return payment, nil
}

func (s *Service) Verify(ctx context.Context, reference string) (*domain.Payment, error) {
	status, err := s.deps.Gateway.CheckStatus(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, reference, status.Status, status.Channel)
}

// CheckStatus is the manual status check from the owner or staff.
func (s *Service) CheckStatus(ctx context.Context, actor domain.Actor, reference string) (*domain.Payment, error) {
	payment, err := s.deps.Payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(payment.UserID) {
		return nil, domain.ErrWrongOwner
	}
	if payment.Status == domain.PaymentPaid {
		return payment, nil
	}
	return s.Verify(ctx, reference)
}

func (s *Service) ListByOrder(ctx context.Context, actor domain.Actor, orderID int) ([]*domain.Payment, error) {
	order, err := s.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, domain.ErrWrongOwner
	}
	return s.deps.Payments.ListByOrder(ctx, orderID)
}

// reconcile maps a processor status onto the payment. Points, order confirmation,
// receipt and notification happen only in the call that moved the payment to paid.
func (s *Service) reconcile(ctx context.Context, reference, gatewayStatus, channel string) (*domain.Payment, error) {
	requestID := logger.RequestID(ctx)
	next := domain.MapGatewayStatus(gatewayStatus)

	var (
		payment    *domain.Payment
		order      *domain.Order
		becamePaid bool
		confirmed  bool
	)
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.deps.Payments.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		payment = p

		if next == domain.PaymentPaid && p.Status != domain.PaymentPaid {
			o, err := s.deps.Orders.FindByIDForUpdate(ctx, p.OrderID)
			if err != nil {
				return err
			}
			order = o

			other, err := s.deps.Payments.HasPaid(ctx, o.ID)
			if err != nil {
				return err
			}
			if other {
				return domain.ErrAlreadyPaid
			}
		}

		now := s.deps.Clock()
		paid, changed := p.ApplyStatus(next, now)
		if !changed {
			return nil
		}
		if channel != "" {
			p.Channel = channel
			p.Method = domain.MethodFromChannel(channel)
		}
		if err := s.deps.Payments.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if !paid {
			return nil
		}
		becamePaid = true
		o := order

		if earned := domain.EarnedPoints(o.Total, s.settings.EarnRate); earned > 0 {
			if _, err := s.deps.Ledger.Credit(ctx, o.UserID, earned, domain.SourceOrderPayment, o.Number); err != nil {
				return err
			}
		}

		if o.Status != domain.StatusPending {
			return nil
		}
		if err := o.TransitionTo(domain.StatusConfirmed, "payment", now); err != nil {
			return err
		}
		if err := s.deps.Orders.Update(ctx, o); err != nil {
			return fmt.Errorf("failed to confirm order: %w", err)
		}
		if err := s.deps.Orders.LogStatus(ctx, o.ID, o.Status, "payment", nil, now); err != nil {
			return fmt.Errorf("failed to log status: %w", err)
		}
		confirmed = true
		return nil
	})
	if err != nil {
		s.deps.Logger.Error("payment_reconcile_failed", "Payment reconciliation failed", requestID, map[string]interface{}{
			"reference": reference,
			"status":    gatewayStatus,
		}, err)
		return nil, err
	}

	if !becamePaid {
		s.deps.Logger.Debug("payment_reconciled", "Payment status applied", requestID, map[string]interface{}{
			"reference": reference,
			"status":    payment.Status,
		})
		return payment, nil
	}

	s.deps.Logger.Info("payment_confirmed", "Payment confirmed", requestID, map[string]interface{}{
		"reference":    reference,
		"order_number": order.Number,
	})

	if err := s.deps.Notifier.PaymentConfirmed(ctx, order, payment); err != nil {
		s.deps.Logger.Error("notification_failed", "Failed to send payment receipt", requestID, map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}
	if confirmed {
		if err := s.deps.Notifier.OrderStatusChanged(ctx, order, domain.StatusPending, "payment"); err != nil {
			s.deps.Logger.Error("notification_failed", "Failed to send status notification", requestID, map[string]interface{}{
				"order_number": order.Number,
			}, err)
		}
	}
	return payment, nil
}
