package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is both the pre-order cart (status cart) and the placed order.
type Order struct {
	ID              int
	Number          string
	UserID          int
	Type            OrderType
	Status          Status
	DeliveryAddress *string
	Lines           []OrderLine
	Subtotal        decimal.Decimal
	DeliveryFee     decimal.Decimal
	PointsRedeemed  int64
	PointsDiscount  decimal.Decimal
	PromoCode       *string
	PromoDiscount   decimal.Decimal
	Total           decimal.Decimal
	DeliveryAgentID *int
	ProcessedBy     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PlacedAt        *time.Time
	ExpectedArrival *time.Time
}

// OrderLine is a cart or order line with the unit price captured when it was added.
type OrderLine struct {
	ID         int
	OrderID    int
	MenuItemID int
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

const (
	maxLineQuantity       = 50
	minDeliveryAddressLen = 10
)

// NewCart creates an empty basket for userID.
func NewCart(userID int, now time.Time) *Order {
	return &Order{
		UserID:    userID,
		Type:      OrderTypePickup,
		Status:    StatusCart,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddLine adds qty of item to the cart, merging into an existing line for the same item.
func (o *Order) AddLine(item MenuItem, qty int, now time.Time) (*OrderLine, error) {
	if o.Status != StatusCart {
		return nil, ErrInvalidStatusTransition
	}
	if qty < 1 || qty > maxLineQuantity {
		return nil, Validation("quantity must be between 1 and 50")
	}
	if !item.Available {
		return nil, ErrItemUnavailable
	}

	for i := range o.Lines {
		if o.Lines[i].MenuItemID == item.ID {
			if o.Lines[i].Quantity+qty > maxLineQuantity {
				return nil, Validation("quantity must be between 1 and 50")
			}
			o.Lines[i].Quantity += qty
			o.Lines[i].calculate()
			o.touch(now)
			return &o.Lines[i], nil
		}
	}

	line := OrderLine{
		OrderID:    o.ID,
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   qty,
		UnitPrice:  item.Price,
	}
	line.calculate()
	o.Lines = append(o.Lines, line)
	o.touch(now)
	return &o.Lines[len(o.Lines)-1], nil
}

// UpdateLine sets the quantity of an existing line.
func (o *Order) UpdateLine(lineID, qty int, now time.Time) (*OrderLine, error) {
	if qty < 1 || qty > maxLineQuantity {
		return nil, Validation("quantity must be between 1 and 50")
	}
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			o.Lines[i].Quantity = qty
			o.Lines[i].calculate()
			o.touch(now)
			return &o.Lines[i], nil
		}
	}
	return nil, ErrLineNotFound
}

// RemoveLine drops a line from the cart.
func (o *Order) RemoveLine(lineID int, now time.Time) error {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.touch(now)
			return nil
		}
	}
	return ErrLineNotFound
}

func (l *OrderLine) calculate() {
	l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
	o.CalculateSubtotal()
}

// CalculateSubtotal sums the line totals.
func (o *Order) CalculateSubtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range o.Lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	o.Subtotal = subtotal
	return subtotal
}

// ValidateDelivery checks the order type against the delivery address.
func ValidateDelivery(orderType OrderType, address *string) error {
	if !orderType.Valid() {
		return Validation("order type must be one of: delivery, pickup")
	}
	if orderType == OrderTypeDelivery {
		if address == nil || len(strings.TrimSpace(*address)) < minDeliveryAddressLen {
			return Validation("delivery address required (min 10 characters)")
		}
	}
	if orderType == OrderTypePickup && address != nil {
		return Validation("delivery address must not be present for pickup orders")
	}
	return nil
}

// Totals is the priced breakdown of a checkout.
type Totals struct {
	Subtotal       decimal.Decimal
	DeliveryFee    decimal.Decimal
	PointsDiscount decimal.Decimal
	PromoDiscount  decimal.Decimal
	Total          decimal.Decimal
}

// ComputeTotals clamps the discounts to the subtotal and floors the total at zero.
func ComputeTotals(subtotal, deliveryFee, pointsDiscount, promoDiscount decimal.Decimal) Totals {
	pointsDiscount = clamp(pointsDiscount, subtotal)
	promoDiscount = clamp(promoDiscount, subtotal.Sub(pointsDiscount))

	total := subtotal.Add(deliveryFee).Sub(pointsDiscount).Sub(promoDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		DeliveryFee:    deliveryFee,
		PointsDiscount: pointsDiscount,
		PromoDiscount:  promoDiscount,
		Total:          total,
	}
}

func clamp(v, max decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}

// Place turns the cart into a pending order.
func (o *Order) Place(number string, t Totals, pointsRedeemed int64, now time.Time, prep time.Duration) error {
	if o.Status != StatusCart {
		return ErrInvalidStatusTransition
	}
	if len(o.Lines) == 0 {
		return ErrEmptyCart
	}

	o.Number = number
	o.Subtotal = t.Subtotal
	o.DeliveryFee = t.DeliveryFee
	o.PointsRedeemed = pointsRedeemed
	o.PointsDiscount = t.PointsDiscount
	o.PromoDiscount = t.PromoDiscount
	o.Total = t.Total
	o.Status = StatusPending
	o.UpdatedAt = now
	o.PlacedAt = &now
	arrival := now.Add(prep)
	o.ExpectedArrival = &arrival
	return nil
}

// TransitionTo transitions the order to a new status
func (o *Order) TransitionTo(newStatus Status, processedBy string, now time.Time) error {
	if !o.CanTransitionTo(newStatus) {
		return ErrInvalidStatusTransition
	}

	o.Status = newStatus
	o.UpdatedAt = now

	if processedBy != "" {
		o.ProcessedBy = &processedBy
	}

	return nil
}

// CanTransitionTo checks if the order can move to newStatus. Staff may skip forward
// steps; nothing leaves a terminal status and nothing moves backwards. The cart only
// leaves its status through Place.
func (o *Order) CanTransitionTo(newStatus Status) bool {
	if o.Status == StatusCart || o.Status.IsTerminal() {
		return false
	}
	if newStatus == StatusCancelled {
		return true
	}

	next, ok := progression[newStatus]
	if !ok || newStatus == StatusCart {
		return false
	}
	return next > progression[o.Status]
}

// Line returns the line with lineID.
func (o *Order) Line(lineID int) (*OrderLine, bool) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], true
		}
	}
	return nil, false
}
