package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

type PaymentMethod string

const (
	MethodCard        PaymentMethod = "card"
	MethodMobileMoney PaymentMethod = "mobile_money"
)

// Payment is one attempt to pay an order through the gateway.
type Payment struct {
	ID        int
	OrderID   int
	UserID    int
	Amount    decimal.Decimal
	Currency  string
	Method    PaymentMethod
	Status    PaymentStatus
	Reference string
	// MerchantRef is the id sent to the processor for this attempt.
	MerchantRef string
	Channel     string
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Gateway statuses reported by the payment processor.
const (
	GatewaySuccess  = "SUCCESS"
	GatewayCanceled = "CANCELED"
	GatewayDeclined = "DECLINED"
)

// Gateway channel names.
const (
	ChannelCard        = "CARD"
	ChannelMobileMoney = "MOBILE MONEY"
)

// MapGatewayStatus maps a processor status onto a local payment status. Anything the
// processor reports that is not final stays pending for a later reconciliation.
func MapGatewayStatus(status string) PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case GatewaySuccess:
		return PaymentPaid
	case GatewayCanceled:
		return PaymentCancelled
	case GatewayDeclined:
		return PaymentFailed
	default:
		return PaymentPending
	}
}

// ParseMethod defaults to card for anything unrecognised.
func ParseMethod(method string) PaymentMethod {
	if PaymentMethod(strings.ToLower(strings.TrimSpace(method))) == MethodMobileMoney {
		return MethodMobileMoney
	}
	return MethodCard
}

// Channel is the gateway channel list entry for the method.
func (m PaymentMethod) Channel() string {
	if m == MethodMobileMoney {
		return ChannelMobileMoney
	}
	return ChannelCard
}

// MethodFromChannel is the inverse of Channel.
func MethodFromChannel(channel string) PaymentMethod {
	if strings.EqualFold(strings.TrimSpace(channel), ChannelMobileMoney) {
		return MethodMobileMoney
	}
	return MethodCard
}

// ApplyStatus moves the payment to next and reports whether this call is the one that
// made it paid. A paid payment never changes again.
func (p *Payment) ApplyStatus(next PaymentStatus, now time.Time) (becamePaid bool, changed bool) {
	if p.Status == PaymentPaid || p.Status == next {
		return false, false
	}
	if next == PaymentPending {
		return false, false
	}

	p.Status = next
	p.UpdatedAt = now
	if next == PaymentPaid {
		p.PaidAt = &now
		return true, true
	}
	return false, true
}
