package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type Pricing struct {
	DeliveryFee decimal.Decimal
	PointsRate  domain.PointsRate
	PrepTime    time.Duration
}

type Deps struct {
	Tx         interfaces.TxManager
	Orders     interfaces.OrderRepository
	Users      interfaces.UserRepository
	Payments   interfaces.PaymentRepository
	Ledger     interfaces.Ledger
	Promotions interfaces.PromotionService
	Referrals  interfaces.ReferralProgram
	Notifier   interfaces.Notifier
	Logger     logger.Logger
	Clock      func() time.Time
}

type Service struct {
	deps    Deps
	pricing Pricing
}

func NewService(deps Deps, pricing Pricing) *Service {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{deps: deps, pricing: pricing}
}

// Checkout turns the user's cart into a pending order. Points are debited and the
// promotion usage is counted in the same transaction that places the order.
func (s *Service) Checkout(ctx context.Context, cmd interfaces.CheckoutCommand) (*domain.Order, error) {
	if err := domain.ValidateDelivery(cmd.OrderType, cmd.DeliveryAddress); err != nil {
		return nil, err
	}
	if cmd.PointsToRedeem < 0 {
		return nil, domain.Validation("points to redeem must not be negative")
	}

	requestID := logger.RequestID(ctx)
	var order *domain.Order

	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := s.deps.Orders.FindCartForUpdate(ctx, cmd.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return domain.ErrEmptyCart
		}

		user, err := s.deps.Users.FindByIDForUpdate(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive() {
			return domain.ErrAccountInactive
		}
		if cmd.PointsToRedeem > user.PointsBalance {
			return domain.ErrInsufficientPoints
		}

		subtotal := cart.CalculateSubtotal()
		fee := decimal.Zero
		if cmd.OrderType == domain.OrderTypeDelivery {
			fee = s.pricing.DeliveryFee
		}

		promoDiscount := decimal.Zero
		if cmd.PromoCode != nil {
			promo, err := s.deps.Promotions.Redeem(ctx, *cmd.PromoCode, subtotal)
			if err != nil {
				return err
			}
			promoDiscount = promo.Discount
			code := *promo.Promotion.Code
			cart.PromoCode = &code
		}

		totals := domain.ComputeTotals(subtotal, fee, s.pricing.PointsRate.Discount(cmd.PointsToRedeem), promoDiscount)

		now := s.deps.Clock()
		number, err := s.deps.Orders.GenerateOrderNumber(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}

		cart.Type = cmd.OrderType
		cart.DeliveryAddress = cmd.DeliveryAddress
		if err := cart.Place(number, totals, cmd.PointsToRedeem, now, s.pricing.PrepTime); err != nil {
			return err
		}

		if cmd.PointsToRedeem > 0 {
			if _, err := s.deps.Ledger.Debit(ctx, user.ID, cmd.PointsToRedeem, domain.SourceOrderRedemption, number); err != nil {
				if errors.Is(err, domain.ErrInsufficientBalance) {
					return domain.ErrInsufficientPoints
				}
				return err
			}
		}

		if err := s.deps.Orders.Update(ctx, cart); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		if err := s.deps.Orders.LogStatus(ctx, cart.ID, cart.Status, actorLabel(domain.Actor{UserID: user.ID, Role: user.Role}), nil, now); err != nil {
			return fmt.Errorf("failed to log status: %w", err)
		}

		order = cart
		return nil
	})
	if err != nil {
		s.deps.Logger.Error("checkout_failed", "Checkout failed", requestID, map[string]interface{}{
			"user_id": cmd.UserID,
		}, err)
		return nil, err
	}

	s.deps.Logger.Info("order_placed", "Order placed", requestID, map[string]interface{}{
		"order_number":    order.Number,
		"user_id":         order.UserID,
		"total":           order.Total.String(),
		"points_redeemed": order.PointsRedeemed,
	})

	if err := s.deps.Notifier.OrderPlaced(ctx, order); err != nil {
		s.deps.Logger.Error("notification_failed", "Failed to send order placed notifications", requestID, map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}
	if err := s.deps.Referrals.OnOrderPlaced(ctx, order); err != nil {
		s.deps.Logger.Error("referral_failed", "Failed to process referral first order", requestID, map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}

	return order, nil
}

// Transition is the staff-driven status change. Forward steps may be skipped.
func (s *Service) Transition(ctx context.Context, actor domain.Actor, orderID int, status domain.Status, notes *string) (*domain.Order, error) {
	if !actor.Role.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if !status.Valid() || status == domain.StatusCart {
		return nil, domain.Validation("status must be one of: pending, confirmed, preparing, ready, delivered, cancelled")
	}
	if status == domain.StatusCancelled {
		return s.Cancel(ctx, actor, orderID, notes)
	}

	var old domain.Status
	order, err := s.change(ctx, orderID, func(ctx context.Context, order *domain.Order) error {
		old = order.Status
		return order.TransitionTo(status, actorLabel(actor), s.deps.Clock())
	}, actor, notes)
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, order, old, actor)
	return order, nil
}

// Cancel moves an order to cancelled. Customers may cancel their own pending orders;
// staff may cancel anything not yet terminal. Redeemed points are returned unless
// the order was paid.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, orderID int, reason *string) (*domain.Order, error) {
	var old domain.Status
	order, err := s.change(ctx, orderID, func(ctx context.Context, order *domain.Order) error {
		if !actor.CanAccess(order.UserID) {
			return domain.ErrWrongOwner
		}
		if !actor.Role.IsStaff() && order.Status != domain.StatusPending {
			return domain.ErrInvalidStatusTransition
		}

		old = order.Status
		if err := order.TransitionTo(domain.StatusCancelled, actorLabel(actor), s.deps.Clock()); err != nil {
			return err
		}

		if order.PointsRedeemed == 0 {
			return nil
		}
		paid, err := s.deps.Payments.HasPaid(ctx, order.ID)
		if err != nil {
			return err
		}
		if paid {
			return nil
		}
		_, err = s.deps.Ledger.Credit(ctx, order.UserID, order.PointsRedeemed, domain.SourceOrderCancelled, order.Number)
		return err
	}, actor, reason)
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, order, old, actor)
	return order, nil
}

// AssignAgent sets the staff member delivering a delivery order.
func (s *Service) AssignAgent(ctx context.Context, actor domain.Actor, orderID, agentID int) (*domain.Order, error) {
	if !actor.Role.IsStaff() {
		return nil, domain.ErrForbidden
	}

	agent, err := s.deps.Users.FindByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !agent.Role.IsStaff() || !agent.IsActive() {
		return nil, domain.Validation("delivery agent must be an active staff member")
	}

	var order *domain.Order
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.deps.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Type != domain.OrderTypeDelivery {
			return domain.Validation("only delivery orders take a delivery agent")
		}
		if o.Status == domain.StatusCart || o.Status.IsTerminal() {
			return domain.ErrInvalidStatusTransition
		}

		o.DeliveryAgentID = &agent.ID
		o.UpdatedAt = s.deps.Clock()
		if err := s.deps.Orders.Update(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("agent_assigned", "Delivery agent assigned", logger.RequestID(ctx), map[string]interface{}{
		"order_number": order.Number,
		"agent_id":     agentID,
	})
	return order, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, orderID int) (*domain.Order, error) {
	order, err := s.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.StatusCart {
		return nil, domain.ErrOrderNotFound
	}
	if !actor.CanAccess(order.UserID) {
		return nil, domain.ErrWrongOwner
	}
	return order, nil
}

func (s *Service) Track(ctx context.Context, actor domain.Actor, number string) (*interfaces.TrackingOrderResponse, error) {
	order, err := s.deps.Orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, domain.ErrWrongOwner
	}

	resp := &interfaces.TrackingOrderResponse{
		OrderNumber:     order.Number,
		CurrentStatus:   order.Status,
		UpdatedAt:       order.UpdatedAt,
		ProcessedBy:     order.ProcessedBy,
		DeliveryAgentID: order.DeliveryAgentID,
	}
	if !order.Status.IsTerminal() {
		resp.ExpectedArrival = order.ExpectedArrival
	}
	return resp, nil
}

func (s *Service) History(ctx context.Context, actor domain.Actor, orderID int) ([]*domain.StatusLog, error) {
	order, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return s.deps.Orders.GetStatusHistory(ctx, order.ID)
}

func (s *Service) List(ctx context.Context, actor domain.Actor) ([]*domain.Order, error) {
	return s.deps.Orders.ListByUser(ctx, actor.UserID)
}

func (s *Service) ListByStatus(ctx context.Context, actor domain.Actor, status domain.Status) ([]*domain.Order, error) {
	if !actor.Role.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if !status.Valid() || status == domain.StatusCart {
		return nil, domain.Validation("unknown order status")
	}
	return s.deps.Orders.ListByStatus(ctx, status)
}

// change loads the order under lock, applies fn and records the new status.
func (s *Service) change(ctx context.Context, orderID int, fn func(ctx context.Context, order *domain.Order) error, actor domain.Actor, notes *string) (*domain.Order, error) {
	var order *domain.Order
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.deps.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.StatusCart {
			return domain.ErrOrderNotFound
		}
		if err := fn(ctx, o); err != nil {
			return err
		}
		if err := s.deps.Orders.Update(ctx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if err := s.deps.Orders.LogStatus(ctx, o.ID, o.Status, actorLabel(actor), notes, o.UpdatedAt); err != nil {
			return fmt.Errorf("failed to log status: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) statusChanged(ctx context.Context, order *domain.Order, old domain.Status, actor domain.Actor) {
	requestID := logger.RequestID(ctx)
	s.deps.Logger.Info("order_status_changed", "Order status changed", requestID, map[string]interface{}{
		"order_number": order.Number,
		"old_status":   old,
		"new_status":   order.Status,
		"changed_by":   actorLabel(actor),
	})

	if err := s.deps.Notifier.OrderStatusChanged(ctx, order, old, actorLabel(actor)); err != nil {
		s.deps.Logger.Error("notification_failed", "Failed to send status notification", requestID, map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}
}

func actorLabel(actor domain.Actor) string {
	return fmt.Sprintf("%s:%d", actor.Role, actor.UserID)
}
