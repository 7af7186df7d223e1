package domain

import "time"

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDelivery || t == OrderTypePickup
}

type Status string

const (
	StatusCart      Status = "cart"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// progression ranks the forward path of an order. Cancelled sits outside it.
var progression = map[Status]int{
	StatusCart:      0,
	StatusPending:   1,
	StatusConfirmed: 2,
	StatusPreparing: 3,
	StatusReady:     4,
	StatusDelivered: 5,
}

func (s Status) Valid() bool {
	_, ok := progression[s]
	return ok || s == StatusCancelled
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// IsStaff reports whether the role may operate on other users' orders.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleManager || r == RoleAdmin
}

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

// StatusLog represents a log entry for order status changes
type StatusLog struct {
	ID        int
	OrderID   int
	Status    Status
	ChangedBy string
	ChangedAt time.Time
	Notes     *string
}
