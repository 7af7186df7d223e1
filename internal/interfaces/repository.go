package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/domain"
)

// TxManager runs fn inside one transaction. A ctx that already carries a transaction
// joins it instead of opening a new one.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int) (*domain.User, error)
	// FindByIDForUpdate locks the user row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id int) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.User, error)
	UpdateBalance(ctx context.Context, userID int, balance int64) error
	SetReferrer(ctx context.Context, userID, referrerID int) error
	ListActiveStaff(ctx context.Context) ([]*domain.User, error)
}

// OrderRepository stores carts and orders in one table, discriminated by status.
type OrderRepository interface {
	CreateCart(ctx context.Context, cart *domain.Order) error
	FindCart(ctx context.Context, userID int) (*domain.Order, error)
	FindCartForUpdate(ctx context.Context, userID int) (*domain.Order, error)
	DeleteCart(ctx context.Context, orderID int) error
	InsertLine(ctx context.Context, line *domain.OrderLine) error
	UpdateLine(ctx context.Context, line *domain.OrderLine) error
	DeleteLine(ctx context.Context, lineID int) error

	FindByID(ctx context.Context, id int) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	ListByUser(ctx context.Context, userID int) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error)
	// CountPlacedByUser counts the user's non-cart orders other than excludeID.
	CountPlacedByUser(ctx context.Context, userID, excludeID int) (int, error)

	GenerateOrderNumber(ctx context.Context, now time.Time) (string, error)
	LogStatus(ctx context.Context, orderID int, status domain.Status, changedBy string, notes *string, at time.Time) error
	GetStatusHistory(ctx context.Context, orderID int) ([]*domain.StatusLog, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	FindByReference(ctx context.Context, reference string) (*domain.Payment, error)
	FindByReferenceForUpdate(ctx context.Context, reference string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	ListByOrder(ctx context.Context, orderID int) ([]*domain.Payment, error)
	HasPaid(ctx context.Context, orderID int) (bool, error)
}

type PointRepository interface {
	Append(ctx context.Context, tx *domain.PointTransaction) error
	ListByUser(ctx context.Context, userID int) ([]*domain.PointTransaction, error)
	SumByUser(ctx context.Context, userID int) (int64, error)
}

type ReferralRepository interface {
	Create(ctx context.Context, referral *domain.Referral) error
	FindByReferee(ctx context.Context, refereeID int) (*domain.Referral, error)
	FindByRefereeForUpdate(ctx context.Context, refereeID int) (*domain.Referral, error)
	Update(ctx context.Context, referral *domain.Referral) error
}

type PromotionRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.Promotion, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*domain.Promotion, error)
	IncrementUsage(ctx context.Context, promotionID int) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int) error
}
