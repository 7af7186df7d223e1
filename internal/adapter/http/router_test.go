package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/adapter/memory"
	"github.com/YelzhanWeb/foodorder/internal/app"
	"github.com/YelzhanWeb/foodorder/internal/config"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type tokenAuth struct {
	users interfaces.UserRepository
}

// Authenticate accepts "user-<id>" tokens.
func (a tokenAuth) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	raw, ok := strings.CutPrefix(token, "user-")
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	user, err := a.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

type stubGateway struct {
	n      int
	status map[string]string
}

func (g *stubGateway) InitializeTransaction(ctx context.Context, req interfaces.InitializeTransactionRequest) (*interfaces.InitializeTransactionResult, error) {
	g.n++
	ref := "ref-" + strconv.Itoa(g.n)
	return &interfaces.InitializeTransactionResult{Reference: ref, RedirectURL: "https://pay.example/" + ref}, nil
}

func (g *stubGateway) CheckStatus(ctx context.Context, reference string) (*interfaces.TransactionStatus, error) {
	return &interfaces.TransactionStatus{Reference: reference, Status: g.status[reference], Channel: "CARD"}, nil
}

type env struct {
	t        *testing.T
	srv      *httptest.Server
	store    *memory.Store
	outbox   *memory.Outbox
	gateway  *stubGateway
	customer *domain.User
	staff    *domain.User
	burger   *domain.MenuItem
	fries    *domain.MenuItem
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	outbox := memory.NewOutbox()
	gateway := &stubGateway{status: map[string]string{}}
	users := memory.NewUserRepository(store)
	cfg := config.Default()

	svc := app.New(app.Repositories{
		Tx:            memory.NewTxManager(store),
		Users:         users,
		Orders:        memory.NewOrderRepository(store),
		Payments:      memory.NewPaymentRepository(store),
		Points:        memory.NewPointRepository(store),
		Referrals:     memory.NewReferralRepository(store),
		Promotions:    memory.NewPromotionRepository(store),
		Notifications: memory.NewNotificationRepository(store),
		Menu:          memory.NewMenuCatalog(store),
	}, app.Externals{
		Gateway:   gateway,
		Publisher: outbox,
		Mailer:    outbox,
		Guard:     memory.NewWebhookGuard(),
	}, &cfg, logger.Nop(), func() time.Time { return now })

	router := NewRouter(Services{
		Accounts:      svc.Accounts,
		Cart:          svc.Cart,
		Promotions:    svc.Promotions,
		Orders:        svc.Orders,
		Payments:      svc.Payments,
		Ledger:        svc.Ledger,
		Notifications: svc.Notifications,
		Auth:          tokenAuth{users: users},
	}, RouterConfig{Production: true}, logger.Nop())

	e := &env{
		t:        t,
		srv:      httptest.NewServer(router),
		store:    store,
		outbox:   outbox,
		gateway:  gateway,
		customer: store.AddUser(&domain.User{Name: "Ama", Email: "ama@example.com", Role: domain.RoleCustomer, Status: domain.AccountActive, ReferralCode: "AMA"}),
		staff:    store.AddUser(&domain.User{Name: "Kofi", Email: "kofi@example.com", Role: domain.RoleStaff, Status: domain.AccountActive, ReferralCode: "KOFI"}),
		burger:   store.AddMenuItem(&domain.MenuItem{Name: "Burger", Price: decimal.NewFromInt(1000), Available: true}),
		fries:    store.AddMenuItem(&domain.MenuItem{Name: "Fries", Price: decimal.NewFromInt(500), Available: true}),
	}
	t.Cleanup(e.srv.Close)
	return e
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Detail  string            `json:"detail"`
	Errors  []ValidationError `json:"errors"`
}

func (e *env) do(method, path string, user *domain.User, body interface{}) (int, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(e.t, err)
	if user != nil {
		req.Header.Set("Authorization", "Bearer user-"+strconv.Itoa(user.ID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var out envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (e *env) fillCart() {
	e.t.Helper()
	status, _ := e.do(http.MethodPost, "/api/v1/cart/items", e.customer, AddItemRequest{MenuItemID: e.burger.ID, Quantity: 2})
	require.Equal(e.t, http.StatusOK, status)
	status, body := e.do(http.MethodPost, "/api/v1/cart/items", e.customer, AddItemRequest{MenuItemID: e.fries.ID, Quantity: 1})
	require.Equal(e.t, http.StatusOK, status)
	require.Equal(e.t, "2500", decodeData[CartResponse](e.t, body).Subtotal.String())
}

func (e *env) checkout() OrderResponse {
	e.t.Helper()
	e.fillCart()
	address := "12 Independence Avenue"
	status, body := e.do(http.MethodPost, "/api/v1/orders", e.customer, CheckoutRequest{
		OrderType:       "delivery",
		DeliveryAddress: &address,
	})
	require.Equal(e.t, http.StatusCreated, status, body.Message)
	return decodeData[OrderResponse](e.t, body)
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(http.MethodGet, "/api/v1/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.False(t, body.Success)
	require.Equal(t, "unauthorized", body.Code)

	status, body = e.do(http.MethodGet, "/api/v1/staff/orders", e.customer, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "forbidden", body.Code)
}

func TestRegisterWithReferral(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(http.MethodPost, "/api/v1/accounts/register", nil, RegisterRequest{
		Name:         "Efua",
		Email:        "Efua@Example.com",
		ReferralCode: e.customer.ReferralCode,
	})
	require.Equal(t, http.StatusCreated, status)
	user := decodeData[UserResponse](t, body)
	require.Equal(t, "efua@example.com", user.Email)
	require.NotEmpty(t, user.ReferralCode)

	status, body = e.do(http.MethodGet, "/api/v1/points", e.customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 10, decodeData[map[string]int64](t, body)["balance"])

	status, body = e.do(http.MethodPost, "/api/v1/accounts/register", nil, RegisterRequest{Name: "Efua", Email: "efua@example.com"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "email_taken", body.Code)
}

func TestCheckoutValidation(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(http.MethodPost, "/api/v1/orders", e.customer, CheckoutRequest{OrderType: "delivery"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation_error", body.Error)
	require.Len(t, body.Errors, 1)
	require.Equal(t, "delivery_address", body.Errors[0].Field)

	status, body = e.do(http.MethodPost, "/api/v1/orders", e.customer, CheckoutRequest{OrderType: "pickup"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "empty_cart", body.Code)

	status, body = e.do(http.MethodPost, "/api/v1/orders", e.customer, map[string]any{"order_type": "pickup", "tip": 5})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_input", body.Code)
}

func TestCheckoutPayAndReplayWebhook(t *testing.T) {
	e := newEnv(t)
	order := e.checkout()

	require.Equal(t, domain.StatusPending, order.Status)
	require.Equal(t, "4500", order.Total.String())
	require.Equal(t, "2000", order.DeliveryFee.String())
	require.Len(t, order.Lines, 2)

	path := "/api/v1/orders/" + strconv.Itoa(order.ID) + "/payments"
	status, body := e.do(http.MethodPost, path, e.customer, InitializePaymentRequest{Method: "card"})
	require.Equal(t, http.StatusCreated, status)
	payment := decodeData[PaymentResponse](t, body)
	require.Equal(t, "https://pay.example/ref-1", payment.RedirectURL)
	require.Equal(t, domain.PaymentPending, payment.Status)

	e.gateway.status["ref-1"] = "SUCCESS"
	hook := map[string]any{"payment": map[string]string{"reference": "ref-1", "status": "SUCCESS", "channel": "CARD"}}
	for i := 0; i < 2; i++ {
		status, body = e.do(http.MethodPost, "/api/v1/payments/webhook", nil, hook)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, domain.PaymentPaid, decodeData[PaymentResponse](t, body).Status)
	}

	status, body = e.do(http.MethodGet, "/api/v1/orders/"+strconv.Itoa(order.ID), e.customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, domain.StatusConfirmed, decodeData[OrderResponse](t, body).Status)

	status, body = e.do(http.MethodGet, "/api/v1/points", e.customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 4, decodeData[map[string]int64](t, body)["balance"])
	require.Equal(t, 1, e.outbox.MailCount(interfaces.TemplateReceipt))

	status, body = e.do(http.MethodPost, path, e.customer, InitializePaymentRequest{Method: "card"})
	require.Equal(t, http.StatusConflict, status)
}

func TestForgedWebhookLeavesOrderPending(t *testing.T) {
	e := newEnv(t)
	order := e.checkout()

	status, _ := e.do(http.MethodPost, "/api/v1/orders/"+strconv.Itoa(order.ID)+"/payments", e.customer, InitializePaymentRequest{Method: "card"})
	require.Equal(t, http.StatusCreated, status)
	e.gateway.status["ref-1"] = "PENDING"

	hook := map[string]any{"payment": map[string]string{"reference": "ref-1", "status": "SUCCESS", "channel": "CARD"}}
	status, body := e.do(http.MethodPost, "/api/v1/payments/webhook", nil, hook)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, domain.PaymentPending, decodeData[PaymentResponse](t, body).Status)

	status, body = e.do(http.MethodGet, "/api/v1/orders/"+strconv.Itoa(order.ID), e.customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, domain.StatusPending, decodeData[OrderResponse](t, body).Status)

	status, body = e.do(http.MethodGet, "/api/v1/points", e.customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, decodeData[map[string]int64](t, body)["balance"])
	require.Zero(t, e.outbox.MailCount(interfaces.TemplateReceipt))
}

func TestStaffTransitions(t *testing.T) {
	e := newEnv(t)
	order := e.checkout()
	statusPath := "/api/v1/staff/orders/" + strconv.Itoa(order.ID) + "/status"

	status, body := e.do(http.MethodGet, "/api/v1/staff/orders?status=pending", e.staff, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, decodeData[[]OrderResponse](t, body), 1)

	status, _ = e.do(http.MethodPatch, statusPath, e.staff, StatusChangeRequest{Status: "preparing"})
	require.Equal(t, http.StatusOK, status)

	status, body = e.do(http.MethodPatch, statusPath, e.staff, StatusChangeRequest{Status: "confirmed"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "invalid_status_transition", body.Code)

	status, body = e.do(http.MethodPatch, statusPath, e.staff, StatusChangeRequest{Status: "lost"})
	require.Equal(t, http.StatusBadRequest, status)

	status, body = e.do(http.MethodGet, "/api/v1/orders/track/"+order.OrderNumber, e.customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, domain.StatusPreparing, decodeData[TrackingResponse](t, body).CurrentStatus)

	status, body = e.do(http.MethodGet, "/api/v1/orders/"+strconv.Itoa(order.ID)+"/history", e.customer, nil)
	require.Equal(t, http.StatusOK, status)
	history := decodeData[[]StatusLogResponse](t, body)
	require.Len(t, history, 2)
	require.Equal(t, domain.StatusPending, history[0].Status)
	require.Equal(t, domain.StatusPreparing, history[1].Status)
}

func TestCustomerCannotReadOthersOrder(t *testing.T) {
	e := newEnv(t)
	order := e.checkout()
	other := e.store.AddUser(&domain.User{Name: "Yaw", Email: "yaw@example.com", Role: domain.RoleCustomer, Status: domain.AccountActive, ReferralCode: "YAW"})

	status, body := e.do(http.MethodGet, "/api/v1/orders/"+strconv.Itoa(order.ID), other, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "wrong_owner", body.Code)

	status, _ = e.do(http.MethodGet, "/api/v1/orders/abc", e.customer, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	for _, production := range []bool{true, false} {
		rs := responder{logger: logger.Nop(), production: production}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		rs.respondError(rec, req, errors.New("pq: connection refused"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "internal server error", body.Message)
		require.Equal(t, domain.KindInternal, body.Error)
		if production {
			require.Empty(t, body.Detail)
		} else {
			require.Equal(t, "pq: connection refused", body.Detail)
		}
	}
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(domain.Validation("x")))
	require.Equal(t, http.StatusNotFound, statusFor(domain.ErrOrderNotFound))
	require.Equal(t, http.StatusConflict, statusFor(domain.ErrInsufficientPoints))
	require.Equal(t, http.StatusBadGateway, statusFor(domain.Wrap(domain.ErrGatewayUnavailable, errors.New("timeout"))))
	require.Equal(t, http.StatusUnauthorized, statusFor(domain.ErrUnauthorized))
	require.Equal(t, http.StatusForbidden, statusFor(domain.ErrForbidden))
}

func TestRateLimit(t *testing.T) {
	h := RateLimitMiddleware(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimitForgetsIdleClients(t *testing.T) {
	clock := now
	v := newVisitors(1, 1, time.Minute, func() time.Time { return clock })
	h := rateLimit(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, hit("10.0.0."+strconv.Itoa(i)))
	}
	require.Equal(t, 50, v.size())

	clock = clock.Add(30 * time.Second)
	require.Equal(t, http.StatusOK, hit("10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	require.Equal(t, 50, v.size())

	clock = clock.Add(45 * time.Second)
	require.Equal(t, http.StatusOK, hit("10.0.1.1"))
	require.Equal(t, 2, v.size())
}

func TestRequestIDEchoed(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", seen)
	require.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, rec.Header().Get(requestIDHeader), 36)
}
