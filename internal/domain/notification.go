package domain

import "time"

type NotificationType string

const (
	NotifyOrderPlaced        NotificationType = "order_placed"
	NotifyNewOrder           NotificationType = "new_order"
	NotifyOrderStatus        NotificationType = "order_status"
	NotifyPaymentConfirmed   NotificationType = "payment_confirmed"
	NotifyReferralSignup     NotificationType = "referral_signup"
	NotifyReferralFirstOrder NotificationType = "referral_first_order"
)

// Notification is an in-app message for one recipient.
type Notification struct {
	ID        int
	UserID    int
	Type      NotificationType
	Title     string
	Body      string
	Data      map[string]any
	Read      bool
	CreatedAt time.Time
}
