package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type OrderLineResponse struct {
	ID         int             `json:"id"`
	MenuItemID int             `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	ID       int                 `json:"id,omitempty"`
	Lines    []OrderLineResponse `json:"lines"`
	Subtotal decimal.Decimal     `json:"subtotal"`
}

type OrderResponse struct {
	ID              int                 `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          domain.Status       `json:"status"`
	OrderType       domain.OrderType    `json:"order_type"`
	DeliveryAddress *string             `json:"delivery_address,omitempty"`
	Lines           []OrderLineResponse `json:"lines"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	PointsRedeemed  int64               `json:"points_redeemed"`
	PointsDiscount  decimal.Decimal     `json:"points_discount"`
	PromoCode       *string             `json:"promo_code,omitempty"`
	PromoDiscount   decimal.Decimal     `json:"promo_discount"`
	Total           decimal.Decimal     `json:"total"`
	DeliveryAgentID *int                `json:"delivery_agent_id,omitempty"`
	PlacedAt        *time.Time          `json:"placed_at,omitempty"`
	ExpectedArrival *time.Time          `json:"expected_arrival,omitempty"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toLines(lines []domain.OrderLine) []OrderLineResponse {
	out := make([]OrderLineResponse, len(lines))
	for i, l := range lines {
		out[i] = OrderLineResponse{
			ID:         l.ID,
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			LineTotal:  l.LineTotal,
		}
	}
	return out
}

func toCart(o *domain.Order) CartResponse {
	return CartResponse{ID: o.ID, Lines: toLines(o.Lines), Subtotal: o.Subtotal}
}

func toOrder(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.Number,
		Status:          o.Status,
		OrderType:       o.Type,
		DeliveryAddress: o.DeliveryAddress,
		Lines:           toLines(o.Lines),
		Subtotal:        o.Subtotal,
		DeliveryFee:     o.DeliveryFee,
		PointsRedeemed:  o.PointsRedeemed,
		PointsDiscount:  o.PointsDiscount,
		PromoCode:       o.PromoCode,
		PromoDiscount:   o.PromoDiscount,
		Total:           o.Total,
		DeliveryAgentID: o.DeliveryAgentID,
		PlacedAt:        o.PlacedAt,
		ExpectedArrival: o.ExpectedArrival,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrders(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrder(o)
	}
	return out
}

type StatusLogResponse struct {
	Status    domain.Status `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	ChangedBy string        `json:"changed_by"`
	Notes     *string       `json:"notes,omitempty"`
}

type TrackingResponse struct {
	OrderNumber     string        `json:"order_number"`
	CurrentStatus   domain.Status `json:"current_status"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ExpectedArrival *time.Time    `json:"expected_arrival,omitempty"`
	ProcessedBy     *string       `json:"processed_by,omitempty"`
	DeliveryAgentID *int          `json:"delivery_agent_id,omitempty"`
}

func toTracking(t *interfaces.TrackingOrderResponse) TrackingResponse {
	return TrackingResponse{
		OrderNumber:     t.OrderNumber,
		CurrentStatus:   t.CurrentStatus,
		UpdatedAt:       t.UpdatedAt,
		ExpectedArrival: t.ExpectedArrival,
		ProcessedBy:     t.ProcessedBy,
		DeliveryAgentID: t.DeliveryAgentID,
	}
}

type PaymentResponse struct {
	ID          int                  `json:"id"`
	OrderID     int                  `json:"order_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency"`
	Method      domain.PaymentMethod `json:"method"`
	Status      domain.PaymentStatus `json:"status"`
	Reference   string               `json:"reference"`
	PaidAt      *time.Time           `json:"paid_at,omitempty"`
	RedirectURL string               `json:"redirect_url,omitempty"`
}

func toPayment(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Method:    p.Method,
		Status:    p.Status,
		Reference: p.Reference,
		PaidAt:    p.PaidAt,
	}
}

type PointTransactionResponse struct {
	Type         domain.PointTxType `json:"type"`
	Amount       int64              `json:"amount"`
	BalanceAfter int64              `json:"balance_after"`
	Source       string             `json:"source"`
	Reference    string             `json:"reference"`
	CreatedAt    time.Time          `json:"created_at"`
}

type NotificationResponse struct {
	ID        int                     `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	Data      map[string]any          `json:"data,omitempty"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}

type UserResponse struct {
	ID            int                  `json:"id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	Role          domain.Role          `json:"role"`
	Status        domain.AccountStatus `json:"status"`
	PointsBalance int64                `json:"points_balance"`
	ReferralCode  string               `json:"referral_code"`
}

func toUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		Status:        u.Status,
		PointsBalance: u.PointsBalance,
		ReferralCode:  u.ReferralCode,
	}
}
