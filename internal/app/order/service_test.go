package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/adapter/memory"
	"github.com/YelzhanWeb/foodorder/internal/app/cart"
	"github.com/YelzhanWeb/foodorder/internal/app/ledger"
	"github.com/YelzhanWeb/foodorder/internal/app/notification"
	"github.com/YelzhanWeb/foodorder/internal/app/promotion"
	"github.com/YelzhanWeb/foodorder/internal/app/referral"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

var now = time.Date(2024, 4, 2, 18, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	carts    *cart.Service
	ledger   *ledger.Service
	store    *memory.Store
	outbox   *memory.Outbox
	users    interfaces.UserRepository
	orders   interfaces.OrderRepository
	payments interfaces.PaymentRepository
	customer *domain.User
	staff    *domain.User
	burger   *domain.MenuItem
	fries    *domain.MenuItem
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return now }
	txm := memory.NewTxManager(store)
	users := memory.NewUserRepository(store)
	orders := memory.NewOrderRepository(store)
	payments := memory.NewPaymentRepository(store)
	outbox := memory.NewOutbox()

	ldg := ledger.NewService(txm, users, memory.NewPointRepository(store), logger.Nop()).WithClock(clock)
	dispatcher := notification.NewDispatcher(memory.NewNotificationRepository(store), users, outbox, outbox, logger.Nop()).WithClock(clock)
	referrals := referral.NewService(txm, users, orders, memory.NewReferralRepository(store), ldg, dispatcher,
		referral.Bonuses{Signup: 10, FirstOrder: 20}, logger.Nop()).WithClock(clock)

	f := &fixture{
		ledger:   ldg,
		store:    store,
		outbox:   outbox,
		users:    users,
		orders:   orders,
		payments: payments,
		customer: store.AddUser(&domain.User{Name: "Ama", Email: "ama@example.com", Role: domain.RoleCustomer, Status: domain.AccountActive}),
		staff:    store.AddUser(&domain.User{Name: "Kofi", Email: "kofi@example.com", Role: domain.RoleStaff, Status: domain.AccountActive}),
		burger:   store.AddMenuItem(&domain.MenuItem{Name: "Burger", Price: decimal.NewFromInt(1000), Available: true}),
		fries:    store.AddMenuItem(&domain.MenuItem{Name: "Fries", Price: decimal.NewFromInt(500), Available: true}),
	}
	f.carts = cart.NewService(txm, orders, memory.NewMenuCatalog(store), logger.Nop()).WithClock(clock)
	f.svc = NewService(Deps{
		Tx:         txm,
		Orders:     orders,
		Users:      users,
		Payments:   payments,
		Ledger:     ldg,
		Promotions: promotion.NewService(memory.NewPromotionRepository(store)).WithClock(clock),
		Referrals:  referrals,
		Notifier:   dispatcher,
		Logger:     logger.Nop(),
		Clock:      clock,
	}, Pricing{
		DeliveryFee: decimal.NewFromInt(2000),
		PointsRate:  domain.PointsRate{Amount: 1000, Points: 15},
		PrepTime:    45 * time.Minute,
	})
	return f
}

func (f *fixture) fillCart(t *testing.T, userID int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, userID, f.burger.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, userID, f.fries.ID, 1)
	require.NoError(t, err)
}

func (f *fixture) grant(t *testing.T, userID int, points int64) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), userID, points, domain.SourceOrderPayment, "seed")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID int) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) customerActor() domain.Actor {
	return domain.Actor{UserID: f.customer.ID, Role: domain.RoleCustomer}
}

func (f *fixture) staffActor() domain.Actor {
	return domain.Actor{UserID: f.staff.ID, Role: domain.RoleStaff}
}

func address() *string {
	a := "12 Rue de la Joie, Douala"
	return &a
}

func (f *fixture) checkout(t *testing.T, points int64) *domain.Order {
	t.Helper()
	order, err := f.svc.Checkout(context.Background(), interfaces.CheckoutCommand{
		UserID:          f.customer.ID,
		OrderType:       domain.OrderTypeDelivery,
		DeliveryAddress: address(),
		PointsToRedeem:  points,
	})
	require.NoError(t, err)
	return order
}

func TestCheckoutDeliveryWithoutPoints(t *testing.T) {
	f := setup(t)
	f.fillCart(t, f.customer.ID)

	order := f.checkout(t, 0)

	require.Equal(t, domain.StatusPending, order.Status)
	require.Equal(t, "ORD_20240402_001", order.Number)
	require.Equal(t, "2500", order.Subtotal.String())
	require.Equal(t, "2000", order.DeliveryFee.String())
	require.True(t, order.PointsDiscount.IsZero())
	require.Equal(t, "4500", order.Total.String())
	require.Equal(t, now.Add(45*time.Minute), *order.ExpectedArrival)

	history, err := f.svc.History(context.Background(), f.customerActor(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, domain.StatusPending, history[0].Status)

	_, err = f.orders.FindCart(context.Background(), f.customer.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckoutRedeemsPoints(t *testing.T) {
	f := setup(t)
	f.grant(t, f.customer.ID, 40)
	f.fillCart(t, f.customer.ID)

	order := f.checkout(t, 15)

	require.EqualValues(t, 15, order.PointsRedeemed)
	require.Equal(t, "1000", order.PointsDiscount.String())
	require.Equal(t, "3500", order.Total.String())
	require.EqualValues(t, 25, f.balance(t, f.customer.ID))

	audit, err := f.ledger.Reconcile(context.Background(), f.customer.ID)
	require.NoError(t, err)
	require.True(t, audit.Consistent)
}

func TestCheckoutInsufficientPointsLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.grant(t, f.customer.ID, 10)
	f.fillCart(t, f.customer.ID)

	_, err := f.svc.Checkout(ctx, interfaces.CheckoutCommand{
		UserID:          f.customer.ID,
		OrderType:       domain.OrderTypeDelivery,
		DeliveryAddress: address(),
		PointsToRedeem:  15,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientPoints)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	require.EqualValues(t, 10, f.balance(t, f.customer.ID))
	cart, err := f.orders.FindCart(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCart, cart.Status)

	placed, err := f.svc.List(ctx, f.customerActor())
	require.NoError(t, err)
	require.Empty(t, placed)
}

func TestCheckoutDiscountNeverExceedsSubtotal(t *testing.T) {
	f := setup(t)
	f.grant(t, f.customer.ID, 300)
	f.fillCart(t, f.customer.ID)

	order, err := f.svc.Checkout(context.Background(), interfaces.CheckoutCommand{
		UserID:         f.customer.ID,
		OrderType:      domain.OrderTypePickup,
		PointsToRedeem: 300,
	})
	require.NoError(t, err)
	require.Equal(t, "2500", order.PointsDiscount.String())
	require.True(t, order.Total.IsZero())
	require.True(t, order.DeliveryFee.IsZero())
	require.EqualValues(t, 0, f.balance(t, f.customer.ID))
}

func TestCheckoutWithPromoCode(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	code := "SAVE10"
	f.store.AddPromotion(&domain.Promotion{Code: &code, Type: domain.PromoPercentage, Value: decimal.NewFromInt(10), Active: true})
	f.fillCart(t, f.customer.ID)

	order, err := f.svc.Checkout(ctx, interfaces.CheckoutCommand{
		UserID:          f.customer.ID,
		OrderType:       domain.OrderTypeDelivery,
		DeliveryAddress: address(),
		PromoCode:       &code,
	})
	require.NoError(t, err)
	require.Equal(t, "250", order.PromoDiscount.String())
	require.Equal(t, "4250", order.Total.String())
	require.Equal(t, code, *order.PromoCode)

	promo, err := memory.NewPromotionRepository(f.store).FindByCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 1, promo.UsageCount)
}

func TestCheckoutPromoBelowMinimumRollsBack(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	code := "BIG"
	f.store.AddPromotion(&domain.Promotion{Code: &code, Type: domain.PromoFixedAmount, Value: decimal.NewFromInt(500), MinCartValue: decimal.NewFromInt(5000), Active: true})
	f.grant(t, f.customer.ID, 15)
	f.fillCart(t, f.customer.ID)

	_, err := f.svc.Checkout(ctx, interfaces.CheckoutCommand{
		UserID:         f.customer.ID,
		OrderType:      domain.OrderTypePickup,
		PointsToRedeem: 15,
		PromoCode:      &code,
	})
	require.ErrorIs(t, err, domain.ErrPromoBelowMinimum)
	require.EqualValues(t, 15, f.balance(t, f.customer.ID))
}

func TestCheckoutValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Checkout(ctx, interfaces.CheckoutCommand{UserID: f.customer.ID, OrderType: domain.OrderTypePickup})
	require.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = f.svc.Checkout(ctx, interfaces.CheckoutCommand{UserID: f.customer.ID, OrderType: domain.OrderTypeDelivery})
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.svc.Checkout(ctx, interfaces.CheckoutCommand{UserID: f.customer.ID, OrderType: domain.OrderTypePickup, DeliveryAddress: address()})
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.svc.Checkout(ctx, interfaces.CheckoutCommand{UserID: f.customer.ID, OrderType: "dine_in"})
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestCheckoutSucceedsWhenNotificationsFail(t *testing.T) {
	f := setup(t)
	f.fillCart(t, f.customer.ID)
	f.outbox.Err = errors.New("broker down")

	order := f.checkout(t, 0)
	require.Equal(t, domain.StatusPending, order.Status)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status)
}

func TestCheckoutNotifiesCustomerAndStaff(t *testing.T) {
	f := setup(t)
	f.fillCart(t, f.customer.ID)
	f.checkout(t, 0)

	require.Len(t, f.outbox.Notifications, 2)
	require.Equal(t, f.customer.ID, f.outbox.Notifications[0].UserID)
	require.Equal(t, f.staff.ID, f.outbox.Notifications[1].UserID)
	require.Equal(t, 1, f.outbox.MailCount(interfaces.TemplateOrderPlaced))
}

func TestStaffTransitions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.fillCart(t, f.customer.ID)
	order := f.checkout(t, 0)

	_, err := f.svc.Transition(ctx, f.customerActor(), order.ID, domain.StatusConfirmed, nil)
	require.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.svc.Transition(ctx, f.staffActor(), order.ID, domain.StatusConfirmed, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, updated.Status)

	updated, err = f.svc.Transition(ctx, f.staffActor(), order.ID, domain.StatusReady, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, updated.Status)

	_, err = f.svc.Transition(ctx, f.staffActor(), order.ID, domain.StatusPreparing, nil)
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = f.svc.Transition(ctx, f.staffActor(), order.ID, domain.StatusDelivered, nil)
	require.NoError(t, err)

	for _, s := range []domain.Status{domain.StatusReady, domain.StatusCancelled, domain.StatusPending} {
		_, err = f.svc.Transition(ctx, f.staffActor(), order.ID, s, nil)
		require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
	}

	history, err := f.svc.History(ctx, f.staffActor(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Len(t, f.outbox.StatusUpdates, 3)
}

func TestCancelRefundsRedeemedPoints(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.grant(t, f.customer.ID, 15)
	f.fillCart(t, f.customer.ID)
	order := f.checkout(t, 15)
	require.Zero(t, f.balance(t, f.customer.ID))

	reason := "changed my mind"
	cancelled, err := f.svc.Cancel(ctx, f.customerActor(), order.ID, &reason)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.EqualValues(t, 15, f.balance(t, f.customer.ID))

	_, err = f.svc.Cancel(ctx, f.customerActor(), order.ID, nil)
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
	require.EqualValues(t, 15, f.balance(t, f.customer.ID))
}

func TestCancelAfterPaymentKeepsPoints(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.grant(t, f.customer.ID, 15)
	f.fillCart(t, f.customer.ID)
	order := f.checkout(t, 15)

	paidAt := now
	require.NoError(t, f.payments.Create(ctx, &domain.Payment{
		OrderID: order.ID, UserID: f.customer.ID, Amount: order.Total,
		Method: domain.MethodCard, Status: domain.PaymentPaid, Reference: "ref-1", PaidAt: &paidAt,
	}))

	_, err := f.svc.Cancel(ctx, f.staffActor(), order.ID, nil)
	require.NoError(t, err)
	require.Zero(t, f.balance(t, f.customer.ID))
}

func TestCustomerCannotCancelConfirmedOrOthersOrders(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.fillCart(t, f.customer.ID)
	order := f.checkout(t, 0)

	stranger := domain.Actor{UserID: 999, Role: domain.RoleCustomer}
	_, err := f.svc.Cancel(ctx, stranger, order.ID, nil)
	require.ErrorIs(t, err, domain.ErrWrongOwner)

	_, err = f.svc.Transition(ctx, f.staffActor(), order.ID, domain.StatusConfirmed, nil)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.customerActor(), order.ID, nil)
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	cancelled, err := f.svc.Transition(ctx, f.staffActor(), order.ID, domain.StatusCancelled, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
}

func TestAssignAgent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.fillCart(t, f.customer.ID)
	order := f.checkout(t, 0)

	_, err := f.svc.AssignAgent(ctx, f.staffActor(), order.ID, f.customer.ID)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.svc.AssignAgent(ctx, f.customerActor(), order.ID, f.staff.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.svc.AssignAgent(ctx, f.staffActor(), order.ID, f.staff.ID)
	require.NoError(t, err)
	require.Equal(t, f.staff.ID, *updated.DeliveryAgentID)

	track, err := f.svc.Track(ctx, f.customerActor(), order.Number)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, track.CurrentStatus)
	require.Equal(t, f.staff.ID, *track.DeliveryAgentID)
	require.NotNil(t, track.ExpectedArrival)
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.fillCart(t, f.customer.ID)
	order := f.checkout(t, 0)

	got, err := f.svc.Get(ctx, f.customerActor(), order.ID)
	require.NoError(t, err)
	require.Equal(t, order.Number, got.Number)
	require.Len(t, got.Lines, 2)

	_, err = f.svc.Get(ctx, domain.Actor{UserID: 999, Role: domain.RoleCustomer}, order.ID)
	require.ErrorIs(t, err, domain.ErrWrongOwner)

	mine, err := f.svc.List(ctx, f.customerActor())
	require.NoError(t, err)
	require.Len(t, mine, 1)

	pending, err := f.svc.ListByStatus(ctx, f.staffActor(), domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.svc.ListByStatus(ctx, f.customerActor(), domain.StatusPending)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestFirstOrderPaysReferrer(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	referrer := f.store.AddUser(&domain.User{Name: "Ref", Email: "ref@example.com", Role: domain.RoleCustomer, Status: domain.AccountActive, ReferralCode: "REF1"})
	referrals := referral.NewService(memory.NewTxManager(f.store), f.users, f.orders, memory.NewReferralRepository(f.store), f.ledger,
		notification.NewDispatcher(memory.NewNotificationRepository(f.store), f.users, f.outbox, f.outbox, logger.Nop()),
		referral.Bonuses{Signup: 10, FirstOrder: 20}, logger.Nop())
	_, err := referrals.OnRegistration(ctx, f.customer, "REF1")
	require.NoError(t, err)

	f.fillCart(t, f.customer.ID)
	f.checkout(t, 0)
	require.EqualValues(t, 30, f.balance(t, referrer.ID))

	f.fillCart(t, f.customer.ID)
	f.checkout(t, 0)
	require.EqualValues(t, 30, f.balance(t, referrer.ID))
}

func TestConcurrentCheckoutsOfOneCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.grant(t, f.customer.ID, 15)
	f.fillCart(t, f.customer.ID)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Checkout(ctx, interfaces.CheckoutCommand{
				UserID:          f.customer.ID,
				OrderType:       domain.OrderTypeDelivery,
				DeliveryAddress: address(),
				PointsToRedeem:  15,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			require.ErrorIs(t, err, domain.ErrEmptyCart)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Zero(t, f.balance(t, f.customer.ID))

	placed, err := f.svc.List(ctx, f.customerActor())
	require.NoError(t, err)
	require.Len(t, placed, 1)
	require.Equal(t, "3500", placed[0].Total.String())
}
