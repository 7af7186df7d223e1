package domain

import "time"

// Referral links a referrer to the user who signed up with their code.
type Referral struct {
	ID                   int
	ReferrerID           int
	RefereeID            int
	SignupBonus          int64
	FirstOrderBonusPaid  bool
	FirstOrderBonus      int64
	FirstOrderRewardedAt *time.Time
	CreatedAt            time.Time
}

// RewardFirstOrder marks the first-order bonus as paid. It reports false if it already was.
func (r *Referral) RewardFirstOrder(bonus int64, now time.Time) bool {
	if r.FirstOrderBonusPaid {
		return false
	}
	r.FirstOrderBonusPaid = true
	r.FirstOrderBonus = bonus
	r.FirstOrderRewardedAt = &now
	return true
}
