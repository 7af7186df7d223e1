package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PointTxType string

const (
	PointsEarn   PointTxType = "earn"
	PointsRedeem PointTxType = "redeem"
)

// Ledger sources.
const (
	SourceOrderPayment    = "order_payment"
	SourceOrderRedemption = "order_redemption"
	SourceOrderCancelled  = "order_cancelled"
	SourceReferralSignup  = "referral_signup"
	SourceReferralOrder   = "referral_first_order"
)

// PointTransaction is an append-only ledger row. Amount is signed.
type PointTransaction struct {
	ID           int
	UserID       int
	Type         PointTxType
	Amount       int64
	BalanceAfter int64
	Source       string
	Reference    string
	CreatedAt    time.Time
}

// PointsRate converts loyalty points to money: Amount currency units per Points points.
type PointsRate struct {
	Amount int64
	Points int64
}

// Discount is the money value of points, rounded to two places.
func (r PointsRate) Discount(points int64) decimal.Decimal {
	if points <= 0 || r.Points <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(points).
		Mul(decimal.NewFromInt(r.Amount)).
		Div(decimal.NewFromInt(r.Points)).
		Round(2)
}

// EarnedPoints is floor(total / earnRate).
func EarnedPoints(total decimal.Decimal, earnRate int64) int64 {
	if earnRate <= 0 || !total.IsPositive() {
		return 0
	}
	return total.Div(decimal.NewFromInt(earnRate)).Floor().IntPart()
}
