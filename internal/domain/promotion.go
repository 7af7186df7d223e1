package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromotionType string

const (
	PromoPercentage   PromotionType = "percentage"
	PromoFixedAmount  PromotionType = "fixed_amount"
	PromoSpecialOffer PromotionType = "special_offer"
)

// Promotion is a discount rule, optionally redeemable through Code.
type Promotion struct {
	ID           int
	Name         string
	Code         *string
	Type         PromotionType
	Value        decimal.Decimal
	MinCartValue decimal.Decimal
	StartsAt     *time.Time
	EndsAt       *time.Time
	UsageLimit   *int
	UsageCount   int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Check reports why the promotion cannot be applied to cartTotal at now, if it cannot.
func (p *Promotion) Check(cartTotal decimal.Decimal, now time.Time) error {
	if !p.Active {
		return ErrPromoInactive
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return ErrPromoExpired
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return ErrPromoExpired
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return ErrPromoExhausted
	}
	if cartTotal.LessThan(p.MinCartValue) {
		return ErrPromoBelowMinimum
	}
	return nil
}

// Discount is the money taken off cartTotal, never negative and never above cartTotal.
func (p *Promotion) Discount(cartTotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch p.Type {
	case PromoPercentage:
		d = cartTotal.Mul(p.Value).Div(decimal.NewFromInt(100)).Round(2)
	case PromoFixedAmount, PromoSpecialOffer:
		d = decimal.Min(p.Value, cartTotal)
	}
	return clamp(d, cartTotal)
}
