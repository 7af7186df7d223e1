package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/domain"
)

// MenuCatalog prices cart lines.
type MenuCatalog interface {
	GetItem(ctx context.Context, id int) (*domain.MenuItem, error)
}

// Mailer hands a templated mail to the delivery pipeline.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// WebhookGuard drops repeated deliveries of the same gateway callback.
type WebhookGuard interface {
	// Acquire reports false when key was already seen.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// AuthProvider resolves the caller behind a bearer token.
type AuthProvider interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type PaymentCustomer struct {
	Name  string
	Email string
}

type InitializeTransactionRequest struct {
	MerchantRef string
	Currency    string
	Amount      decimal.Decimal
	Customer    PaymentCustomer
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
	Channels    []string
}

type InitializeTransactionResult struct {
	Reference   string
	RedirectURL string
}

type TransactionStatus struct {
	Reference string
	Status    string
	Channel   string
}

// PaymentProcessorClient is the wire boundary to the payment processor.
type PaymentProcessorClient interface {
	InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error)
	CheckStatus(ctx context.Context, reference string) (*TransactionStatus, error)
}
