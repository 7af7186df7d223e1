package domain

import "time"

// User is a platform account. PointsBalance is only changed through the ledger.
type User struct {
	ID            int
	Name          string
	Email         string
	Role          Role
	Status        AccountStatus
	PointsBalance int64
	ReferralCode  string
	ReferrerID    *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) IsActive() bool {
	return u.Status == AccountActive
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int
	Role   Role
}

// CanAccess reports whether the actor may read or act on an order owned by ownerID.
func (a Actor) CanAccess(ownerID int) bool {
	return a.UserID == ownerID || a.Role.IsStaff()
}
