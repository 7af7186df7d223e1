package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type Services struct {
	Accounts      interfaces.AccountService
	Cart          interfaces.CartService
	Promotions    interfaces.PromotionService
	Orders        interfaces.OrderService
	Payments      interfaces.PaymentService
	Ledger        interfaces.Ledger
	Notifications interfaces.NotificationService
	Auth          interfaces.AuthProvider
}

type RouterConfig struct {
	Production    bool
	RatePerSecond float64
	Burst         int
}

// NewRouter builds the HTTP API.
func NewRouter(svc Services, cfg RouterConfig, logger logger.Logger) http.Handler {
	rs := responder{logger: logger, production: cfg.Production}

	accounts := NewAccountHandler(svc.Accounts, svc.Ledger, svc.Notifications, rs)
	cart := NewCartHandler(svc.Cart, svc.Promotions, rs)
	orders := NewOrderHandler(svc.Orders, rs)
	payments := NewPaymentHandler(svc.Payments, rs)

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))
	if cfg.RatePerSecond > 0 {
		r.Use(RateLimitMiddleware(cfg.RatePerSecond, cfg.Burst))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		rs.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public: registration and processor callbacks.
		r.Post("/accounts/register", accounts.Register)
		r.Post("/payments/webhook", payments.Webhook)
		r.Get("/payments/callback", payments.Callback)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svc.Auth, rs))

			r.Get("/me", accounts.Me)
			r.Get("/points", accounts.Points)
			r.Get("/points/history", accounts.PointsHistory)
			r.Get("/notifications", accounts.Notifications)
			r.Post("/notifications/{notificationID}/read", accounts.MarkRead)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.Get)
				r.Delete("/", cart.Clear)
				r.Post("/items", cart.AddItem)
				r.Patch("/items/{lineID}", cart.UpdateLine)
				r.Delete("/items/{lineID}", cart.RemoveLine)
				r.Post("/promo", cart.ValidatePromo)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orders.Checkout)
				r.Get("/", orders.List)
				r.Get("/track/{number}", orders.Track)
				r.Get("/{orderID}", orders.Get)
				r.Get("/{orderID}/history", orders.History)
				r.Post("/{orderID}/cancel", orders.Cancel)
				r.Post("/{orderID}/payments", payments.Initialize)
				r.Get("/{orderID}/payments", payments.ListByOrder)
			})

			r.Get("/payments/{reference}", payments.Status)

			r.Route("/staff", func(r chi.Router) {
				r.Use(RequireStaff(rs))
				r.Get("/orders", orders.ListByStatus)
				r.Patch("/orders/{orderID}/status", orders.ChangeStatus)
				r.Post("/orders/{orderID}/agent", orders.AssignAgent)
				r.Get("/users/{userID}/points/audit", accounts.PointsAudit)
			})
		})
	})

	return r
}
