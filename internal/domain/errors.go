package domain

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a failure.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindExternal   Kind = "external_service_error"
	KindInternal   Kind = "internal_error"
)

// Error is a business failure with a kind, a stable code and a human readable message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code so that wrapped copies of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Kind == t.Kind
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrEmptyCart               = newError(KindConflict, "empty_cart", "cart is empty")
	ErrInsufficientPoints      = newError(KindConflict, "insufficient_points", "not enough loyalty points")
	ErrInsufficientBalance     = newError(KindConflict, "insufficient_balance", "points balance too low")
	ErrAlreadyPaid             = newError(KindConflict, "already_paid", "order is already paid")
	ErrWrongOwner              = newError(KindConflict, "wrong_owner", "order belongs to another user")
	ErrInvalidStatusTransition = newError(KindConflict, "invalid_status_transition", "invalid status transition")
	ErrItemUnavailable         = newError(KindConflict, "item_unavailable", "menu item is not available")
	ErrOrderNotPayable         = newError(KindConflict, "order_not_payable", "order is not awaiting payment")
	ErrEmailTaken              = newError(KindConflict, "email_taken", "email is already registered")
	ErrAccountInactive         = newError(KindConflict, "account_inactive", "account is not active")

	ErrPromoNotFound     = newError(KindNotFound, "promo_not_found", "promotion code not found")
	ErrPromoInactive     = newError(KindConflict, "promo_inactive", "promotion is not active")
	ErrPromoExpired      = newError(KindConflict, "promo_expired", "promotion is outside its validity window")
	ErrPromoExhausted    = newError(KindConflict, "promo_exhausted", "promotion usage limit reached")
	ErrPromoBelowMinimum = newError(KindConflict, "promo_below_minimum", "cart total below promotion minimum")

	ErrNotFound        = newError(KindNotFound, "not_found", "resource not found")
	ErrUserNotFound    = newError(KindNotFound, "user_not_found", "user not found")
	ErrOrderNotFound   = newError(KindNotFound, "order_not_found", "order not found")
	ErrPaymentNotFound = newError(KindNotFound, "payment_not_found", "payment not found")
	ErrItemNotFound    = newError(KindNotFound, "menu_item_not_found", "menu item not found")
	ErrLineNotFound    = newError(KindNotFound, "cart_line_not_found", "cart line not found")

	ErrGatewayUnavailable = newError(KindExternal, "gateway_unavailable", "payment gateway unavailable")
	ErrGatewayRejected    = newError(KindExternal, "gateway_rejected", "payment gateway rejected the request")

	ErrUnauthorized = newError(KindValidation, "unauthorized", "authentication required")
	ErrForbidden    = newError(KindValidation, "forbidden", "operation not permitted")
)

// Validation builds a user-correctable input error.
func Validation(message string) *Error {
	return newError(KindValidation, "invalid_input", message)
}

// Wrap attaches a cause to a sentinel while keeping errors.Is matching on it.
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, Err: err}
}

// KindOf reports the category of err; anything that is not a domain error is internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err, or "internal_error".
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return string(KindInternal)
}
