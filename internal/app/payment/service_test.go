package payment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/adapter/memory"
	"github.com/YelzhanWeb/foodorder/internal/app/ledger"
	"github.com/YelzhanWeb/foodorder/internal/app/notification"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

var now = time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)

type fakeGateway struct {
	initErr  error
	initReqs []interfaces.InitializeTransactionRequest
	refs     []string
	status   map[string]string
	checkErr error
	checks   int
}

func (g *fakeGateway) InitializeTransaction(ctx context.Context, req interfaces.InitializeTransactionRequest) (*interfaces.InitializeTransactionResult, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.initReqs = append(g.initReqs, req)
	ref := g.refs[len(g.initReqs)-1]
	return &interfaces.InitializeTransactionResult{Reference: ref, RedirectURL: "https://pay.example/" + ref}, nil
}

func (g *fakeGateway) CheckStatus(ctx context.Context, reference string) (*interfaces.TransactionStatus, error) {
	g.checks++
	if g.checkErr != nil {
		return nil, g.checkErr
	}
	return &interfaces.TransactionStatus{Reference: reference, Status: g.status[reference], Channel: "MOBILE MONEY"}, nil
}

type fixture struct {
	svc      *Service
	gateway  *fakeGateway
	store    *memory.Store
	outbox   *memory.Outbox
	ledger   *ledger.Service
	orders   interfaces.OrderRepository
	payments interfaces.PaymentRepository
	customer *domain.User
	order    *domain.Order
}

func setup(t *testing.T, guard interfaces.WebhookGuard) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clock := func() time.Time { return now }
	txm := memory.NewTxManager(store)
	users := memory.NewUserRepository(store)
	orders := memory.NewOrderRepository(store)
	payments := memory.NewPaymentRepository(store)
	outbox := memory.NewOutbox()
	gateway := &fakeGateway{refs: []string{"ref-1", "ref-2"}, status: map[string]string{}}

	f := &fixture{
		gateway:  gateway,
		store:    store,
		outbox:   outbox,
		orders:   orders,
		payments: payments,
		ledger:   ledger.NewService(txm, users, memory.NewPointRepository(store), logger.Nop()).WithClock(clock),
		customer: store.AddUser(&domain.User{Name: "Ama", Email: "ama@example.com", Role: domain.RoleCustomer, Status: domain.AccountActive}),
	}

	order := domain.NewCart(f.customer.ID, now)
	require.NoError(t, orders.CreateCart(ctx, order))
	order.Number = "ORD_20240601_001"
	order.Type = domain.OrderTypeDelivery
	order.Status = domain.StatusPending
	order.Subtotal = decimal.NewFromInt(2500)
	order.DeliveryFee = decimal.NewFromInt(2000)
	order.Total = decimal.NewFromInt(4500)
	require.NoError(t, orders.Update(ctx, order))
	f.order = order

	f.svc = NewService(Deps{
		Tx:       txm,
		Orders:   orders,
		Users:    users,
		Payments: payments,
		Ledger:   f.ledger,
		Gateway:  gateway,
		Guard:    guard,
		Notifier: notification.NewDispatcher(memory.NewNotificationRepository(store), users, outbox, outbox, logger.Nop()),
		Logger:   logger.Nop(),
		Clock:    clock,
	}, Settings{Currency: "XAF", EarnRate: 1000, NotifyURL: "https://api.example/webhooks/payments"})
	return f
}

func (f *fixture) actor() domain.Actor {
	return domain.Actor{UserID: f.customer.ID, Role: domain.RoleCustomer}
}

func (f *fixture) initialize(t *testing.T, method domain.PaymentMethod) *domain.Payment {
	t.Helper()
	res, err := f.svc.Initialize(context.Background(), f.actor(), interfaces.InitializePaymentCommand{OrderID: f.order.ID, Method: method})
	require.NoError(t, err)
	return res.Payment
}

// deliver reports status for reference at the processor and posts the matching webhook.
func (f *fixture) deliver(ctx context.Context, reference, status string) (*domain.Payment, error) {
	f.gateway.status[reference] = status
	return f.svc.HandleWebhook(ctx, interfaces.PaymentWebhook{Reference: reference, Status: status})
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), f.customer.ID)
	require.NoError(t, err)
	return b
}

func TestInitializeStoresPendingPayment(t *testing.T) {
	f := setup(t, nil)

	res, err := f.svc.Initialize(context.Background(), f.actor(), interfaces.InitializePaymentCommand{OrderID: f.order.ID, Method: "mobile_money"})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/ref-1", res.RedirectURL)
	require.Equal(t, domain.PaymentPending, res.Payment.Status)
	require.Equal(t, "ref-1", res.Payment.Reference)
	require.Equal(t, "4500", res.Payment.Amount.String())

	req := f.gateway.initReqs[0]
	require.Equal(t, []string{"MOBILE MONEY"}, req.Channels)
	require.Equal(t, "XAF", req.Currency)
	require.Contains(t, req.MerchantRef, f.order.Number)
	require.Equal(t, "ama@example.com", req.Customer.Email)
}

func TestInitializeUnknownMethodDefaultsToCard(t *testing.T) {
	f := setup(t, nil)
	p := f.initialize(t, "bitcoin")
	require.Equal(t, domain.MethodCard, p.Method)
	require.Equal(t, []string{"CARD"}, f.gateway.initReqs[0].Channels)
}

func TestInitializeGatewayFailureCreatesNothing(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	f.gateway.initErr = domain.Wrap(domain.ErrGatewayUnavailable, context.DeadlineExceeded)

	_, err := f.svc.Initialize(ctx, f.actor(), interfaces.InitializePaymentCommand{OrderID: f.order.ID, Method: domain.MethodCard})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	require.Equal(t, domain.KindExternal, domain.KindOf(err))

	list, err := f.payments.ListByOrder(ctx, f.order.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestInitializeGuards(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)

	_, err := f.svc.Initialize(ctx, domain.Actor{UserID: 999, Role: domain.RoleCustomer}, interfaces.InitializePaymentCommand{OrderID: f.order.ID})
	require.ErrorIs(t, err, domain.ErrWrongOwner)

	f.initialize(t, domain.MethodCard)
	_, err = f.deliver(ctx, "ref-1", "SUCCESS")
	require.NoError(t, err)

	_, err = f.svc.Initialize(ctx, f.actor(), interfaces.InitializePaymentCommand{OrderID: f.order.ID})
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestWebhookSuccessIsAppliedOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	f.initialize(t, domain.MethodCard)

	for i := 0; i < 2; i++ {
		p, err := f.deliver(ctx, "ref-1", "SUCCESS")
		require.NoError(t, err)
		require.Equal(t, domain.PaymentPaid, p.Status)
		require.NotNil(t, p.PaidAt)
	}

	require.EqualValues(t, 4, f.balance(t))
	require.Equal(t, 1, f.outbox.MailCount(interfaces.TemplateReceipt))

	order, err := f.orders.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, order.Status)

	history, err := f.orders.GetStatusHistory(ctx, f.order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Len(t, f.outbox.StatusUpdates, 1)
}

func TestWebhookGuardDropsReplays(t *testing.T) {
	ctx := context.Background()
	f := setup(t, memory.NewWebhookGuard())
	f.initialize(t, domain.MethodCard)

	for i := 0; i < 3; i++ {
		p, err := f.deliver(ctx, "ref-1", "success")
		require.NoError(t, err)
		require.Equal(t, domain.PaymentPaid, p.Status)
	}
	require.EqualValues(t, 4, f.balance(t))
	require.Equal(t, 1, f.outbox.MailCount(interfaces.TemplateReceipt))
}

func TestWebhookGuardReleasedOnFailure(t *testing.T) {
	ctx := context.Background()
	guard := memory.NewWebhookGuard()
	f := setup(t, guard)
	f.initialize(t, domain.MethodCard)
	f.initialize(t, domain.MethodMobileMoney)

	_, err := f.deliver(ctx, "ref-2", "SUCCESS")
	require.NoError(t, err)
	_, err = f.deliver(ctx, "ref-1", "SUCCESS")
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)

	first, err := guard.Acquire(ctx, "ref-1:SUCCESS")
	require.NoError(t, err)
	require.True(t, first)
}

func TestWebhookUnknownReference(t *testing.T) {
	f := setup(t, memory.NewWebhookGuard())

	_, err := f.deliver(context.Background(), "missing", "SUCCESS")
	require.ErrorIs(t, err, domain.ErrPaymentNotFound)
	require.Zero(t, f.gateway.checks)
}

func TestWebhookStatusComesFromProcessor(t *testing.T) {
	ctx := context.Background()
	f := setup(t, memory.NewWebhookGuard())
	f.initialize(t, domain.MethodCard)
	f.gateway.status["ref-1"] = "PENDING"

	p, err := f.svc.HandleWebhook(ctx, interfaces.PaymentWebhook{Reference: "ref-1", Status: "SUCCESS"})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPending, p.Status)
	require.Zero(t, f.balance(t))
	require.Zero(t, f.outbox.MailCount(interfaces.TemplateReceipt))

	order, err := f.orders.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, order.Status)

	// The processor settles later; the genuine delivery still goes through.
	p, err = f.deliver(ctx, "ref-1", "SUCCESS")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, p.Status)
	require.EqualValues(t, 4, f.balance(t))
}

func TestWebhookProcessorUnavailable(t *testing.T) {
	ctx := context.Background()
	f := setup(t, memory.NewWebhookGuard())
	f.initialize(t, domain.MethodCard)
	f.gateway.checkErr = domain.Wrap(domain.ErrGatewayUnavailable, context.DeadlineExceeded)

	_, err := f.svc.HandleWebhook(ctx, interfaces.PaymentWebhook{Reference: "ref-1", Status: "SUCCESS"})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	p, err := f.payments.FindByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPending, p.Status)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		gateway string
		want    domain.PaymentStatus
	}{
		{"DECLINED", domain.PaymentFailed},
		{"CANCELED", domain.PaymentCancelled},
		{"PROCESSING", domain.PaymentPending},
		{"", domain.PaymentPending},
	}
	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			ctx := context.Background()
			f := setup(t, nil)
			f.initialize(t, domain.MethodCard)

			p, err := f.deliver(ctx, "ref-1", tt.gateway)
			require.NoError(t, err)
			require.Equal(t, tt.want, p.Status)
			require.Zero(t, f.balance(t))

			order, err := f.orders.FindByID(ctx, f.order.ID)
			require.NoError(t, err)
			require.Equal(t, domain.StatusPending, order.Status)
		})
	}
}

func TestPaidIsFinal(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	f.initialize(t, domain.MethodCard)

	_, err := f.deliver(ctx, "ref-1", "SUCCESS")
	require.NoError(t, err)
	p, err := f.deliver(ctx, "ref-1", "DECLINED")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, p.Status)
}

func TestVerifyAndCheckStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	f.initialize(t, domain.MethodCard)
	f.gateway.status["ref-1"] = "SUCCESS"

	p, err := f.svc.Verify(ctx, "ref-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, p.Status)
	require.Equal(t, domain.MethodMobileMoney, p.Method)

	p, err = f.svc.CheckStatus(ctx, f.actor(), "ref-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, p.Status)
	require.EqualValues(t, 4, f.balance(t))

	_, err = f.svc.CheckStatus(ctx, domain.Actor{UserID: 999, Role: domain.RoleCustomer}, "ref-1")
	require.ErrorIs(t, err, domain.ErrWrongOwner)

	list, err := f.svc.ListByOrder(ctx, domain.Actor{UserID: 1000, Role: domain.RoleStaff}, f.order.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSecondAttemptCannotAlsoBePaid(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	f.initialize(t, domain.MethodCard)
	f.initialize(t, domain.MethodMobileMoney)

	_, err := f.deliver(ctx, "ref-2", "SUCCESS")
	require.NoError(t, err)

	_, err = f.deliver(ctx, "ref-1", "SUCCESS")
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)
	require.EqualValues(t, 4, f.balance(t))
}
