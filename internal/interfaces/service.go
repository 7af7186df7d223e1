package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/domain"
)

// Ledger is the only way points balances change.
type Ledger interface {
	Credit(ctx context.Context, userID int, amount int64, source, reference string) (int64, error)
	Debit(ctx context.Context, userID int, amount int64, source, reference string) (int64, error)
	Balance(ctx context.Context, userID int) (int64, error)
	History(ctx context.Context, userID int) ([]*domain.PointTransaction, error)
	Reconcile(ctx context.Context, userID int) (*LedgerAudit, error)
}

type LedgerAudit struct {
	UserID     int   `json:"user_id"`
	Balance    int64 `json:"balance"`
	LedgerSum  int64 `json:"ledger_sum"`
	Consistent bool  `json:"consistent"`
}

type PromoValidation struct {
	Promotion *domain.Promotion
	Discount  decimal.Decimal
}

type PromotionService interface {
	ValidateCode(ctx context.Context, code string, cartTotal decimal.Decimal) (*PromoValidation, error)
	// Redeem validates code and counts one usage. It must run inside the caller's transaction.
	Redeem(ctx context.Context, code string, cartTotal decimal.Decimal) (*PromoValidation, error)
}

type CartService interface {
	Get(ctx context.Context, userID int) (*domain.Order, error)
	AddItem(ctx context.Context, userID, menuItemID, quantity int) (*domain.Order, error)
	UpdateLine(ctx context.Context, userID, lineID, quantity int) (*domain.Order, error)
	RemoveLine(ctx context.Context, userID, lineID int) (*domain.Order, error)
	Clear(ctx context.Context, userID int) error
}

type CheckoutCommand struct {
	UserID          int
	OrderType       domain.OrderType
	DeliveryAddress *string
	PointsToRedeem  int64
	PromoCode       *string
}

type TrackingOrderResponse struct {
	OrderNumber     string
	CurrentStatus   domain.Status
	UpdatedAt       time.Time
	ExpectedArrival *time.Time
	ProcessedBy     *string
	DeliveryAgentID *int
}

type OrderService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error)
	Transition(ctx context.Context, actor domain.Actor, orderID int, status domain.Status, notes *string) (*domain.Order, error)
	Cancel(ctx context.Context, actor domain.Actor, orderID int, reason *string) (*domain.Order, error)
	AssignAgent(ctx context.Context, actor domain.Actor, orderID, agentID int) (*domain.Order, error)
	Get(ctx context.Context, actor domain.Actor, orderID int) (*domain.Order, error)
	Track(ctx context.Context, actor domain.Actor, number string) (*TrackingOrderResponse, error)
	History(ctx context.Context, actor domain.Actor, orderID int) ([]*domain.StatusLog, error)
	List(ctx context.Context, actor domain.Actor) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, actor domain.Actor, status domain.Status) ([]*domain.Order, error)
}

type InitializePaymentCommand struct {
	OrderID int
	Method  domain.PaymentMethod
}

type PaymentInit struct {
	Payment     *domain.Payment
	RedirectURL string
}

type PaymentWebhook struct {
	Reference string
	Status    string
	Channel   string
}

type PaymentService interface {
	Initialize(ctx context.Context, actor domain.Actor, cmd InitializePaymentCommand) (*PaymentInit, error)
	HandleWebhook(ctx context.Context, hook PaymentWebhook) (*domain.Payment, error)
	// Verify polls the processor for reference, as done on the success redirect.
	Verify(ctx context.Context, reference string) (*domain.Payment, error)
	CheckStatus(ctx context.Context, actor domain.Actor, reference string) (*domain.Payment, error)
	ListByOrder(ctx context.Context, actor domain.Actor, orderID int) ([]*domain.Payment, error)
}

type ReferralProgram interface {
	OnRegistration(ctx context.Context, referee *domain.User, code string) (*domain.Referral, error)
	OnOrderPlaced(ctx context.Context, order *domain.Order) error
}

// Notifier fans domain events out to the affected parties. Callers log and discard
// its errors; a failed notification never fails the operation that raised it.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *domain.Order) error
	OrderStatusChanged(ctx context.Context, order *domain.Order, old domain.Status, changedBy string) error
	PaymentConfirmed(ctx context.Context, order *domain.Order, payment *domain.Payment) error
	ReferralSignup(ctx context.Context, referrerID int, referee *domain.User, bonus int64) error
	ReferralFirstOrder(ctx context.Context, referrerID int, order *domain.Order, bonus int64) error
}

type NotificationService interface {
	List(ctx context.Context, userID int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int) error
}

type RegisterCommand struct {
	Name         string
	Email        string
	ReferralCode string
}

type AccountService interface {
	Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error)
	Profile(ctx context.Context, userID int) (*domain.User, error)
}
