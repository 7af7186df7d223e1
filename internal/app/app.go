package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/app/account"
	"github.com/YelzhanWeb/foodorder/internal/app/cart"
	"github.com/YelzhanWeb/foodorder/internal/app/ledger"
	"github.com/YelzhanWeb/foodorder/internal/app/notification"
	"github.com/YelzhanWeb/foodorder/internal/app/order"
	"github.com/YelzhanWeb/foodorder/internal/app/payment"
	"github.com/YelzhanWeb/foodorder/internal/app/promotion"
	"github.com/YelzhanWeb/foodorder/internal/app/referral"
	"github.com/YelzhanWeb/foodorder/internal/config"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// Repositories is the persistence a deployment provides, postgres or in-memory.
type Repositories struct {
	Tx            interfaces.TxManager
	Users         interfaces.UserRepository
	Orders        interfaces.OrderRepository
	Payments      interfaces.PaymentRepository
	Points        interfaces.PointRepository
	Referrals     interfaces.ReferralRepository
	Promotions    interfaces.PromotionRepository
	Notifications interfaces.NotificationRepository
	Menu          interfaces.MenuCatalog
}

type Externals struct {
	Gateway   interfaces.PaymentProcessorClient
	Publisher interfaces.MessagePublisher
	Mailer    interfaces.Mailer
	// Guard may be nil.
	Guard interfaces.WebhookGuard
}

type Services struct {
	Ledger        *ledger.Service
	Promotions    *promotion.Service
	Cart          *cart.Service
	Notifications *notification.Dispatcher
	Referrals     *referral.Service
	Orders        *order.Service
	Payments      *payment.Service
	Accounts      *account.Service
}

// New wires the services. clock may be nil.
func New(repos Repositories, ext Externals, cfg *config.Config, log logger.Logger, clock func() time.Time) *Services {
	if clock == nil {
		clock = time.Now
	}

	ledgerSvc := ledger.NewService(repos.Tx, repos.Users, repos.Points, log).WithClock(clock)
	promoSvc := promotion.NewService(repos.Promotions).WithClock(clock)
	cartSvc := cart.NewService(repos.Tx, repos.Orders, repos.Menu, log).WithClock(clock)
	dispatcher := notification.NewDispatcher(repos.Notifications, repos.Users, ext.Publisher, ext.Mailer, log).WithClock(clock)

	referralSvc := referral.NewService(
		repos.Tx, repos.Users, repos.Orders, repos.Referrals, ledgerSvc, dispatcher,
		referral.Bonuses{Signup: cfg.Points.SignupBonus, FirstOrder: cfg.Points.FirstOrderBonus},
		log,
	).WithClock(clock)

	orderSvc := order.NewService(order.Deps{
		Tx:         repos.Tx,
		Orders:     repos.Orders,
		Users:      repos.Users,
		Payments:   repos.Payments,
		Ledger:     ledgerSvc,
		Promotions: promoSvc,
		Referrals:  referralSvc,
		Notifier:   dispatcher,
		Logger:     log,
		Clock:      clock,
	}, order.Pricing{
		DeliveryFee: decimal.NewFromInt(cfg.App.DeliveryFee),
		PointsRate:  domain.PointsRate{Amount: cfg.Points.ValueAmount, Points: cfg.Points.ValuePoints},
		PrepTime:    time.Duration(cfg.App.PrepMinutes) * time.Minute,
	})

	paymentSvc := payment.NewService(payment.Deps{
		Tx:       repos.Tx,
		Orders:   repos.Orders,
		Users:    repos.Users,
		Payments: repos.Payments,
		Ledger:   ledgerSvc,
		Gateway:  ext.Gateway,
		Guard:    ext.Guard,
		Notifier: dispatcher,
		Logger:   log,
		Clock:    clock,
	}, payment.Settings{
		Currency:  cfg.App.Currency,
		EarnRate:  cfg.Points.EarnRate,
		ReturnURL: cfg.Gateway.ReturnURL,
		CancelURL: cfg.Gateway.CancelURL,
		NotifyURL: cfg.Gateway.NotifyURL,
	})

	return &Services{
		Ledger:        ledgerSvc,
		Promotions:    promoSvc,
		Cart:          cartSvc,
		Notifications: dispatcher,
		Referrals:     referralSvc,
		Orders:        orderSvc,
		Payments:      paymentSvc,
		Accounts:      account.NewService(repos.Users, referralSvc, log),
	}
}
