package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type paymentRepository struct {
	db DB
}

func NewPaymentRepository(db DB) interfaces.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, order_id, user_id, amount, currency, method, status, reference, merchant_ref,
	COALESCE(channel, ''), paid_at, created_at, updated_at`

func scanPayment(row Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Currency, &p.Method, &p.Status,
		&p.Reference, &p.MerchantRef, &p.Channel, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (order_id, user_id, amount, currency, method, status, reference,
		                      merchant_ref, channel, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		payment.OrderID, payment.UserID, payment.Amount, payment.Currency, payment.Method, payment.Status,
		payment.Reference, payment.MerchantRef, payment.Channel, payment.PaidAt, payment.CreatedAt, payment.UpdatedAt,
	).Scan(&payment.ID)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
}

func (r *paymentRepository) FindByReferenceForUpdate(ctx context.Context, reference string) (*domain.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1 FOR UPDATE`, reference)
}

func (r *paymentRepository) findOne(ctx context.Context, query, reference string) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, query, reference))
	if err != nil {
		return nil, notFound(err, domain.ErrPaymentNotFound, "failed to load payment")
	}
	return p, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, method = $2, channel = NULLIF($3, ''), paid_at = $4, updated_at = $5
		WHERE id = $6
	`
	tag, err := conn(ctx, r.db).Exec(ctx, query,
		payment.Status, payment.Method, payment.Channel, payment.PaidAt, payment.UpdatedAt, payment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int) ([]*domain.Payment, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) HasPaid(ctx context.Context, orderID int) (bool, error) {
	var paid bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1 AND status = 'paid')`, orderID,
	).Scan(&paid)
	if err != nil {
		return false, fmt.Errorf("failed to check payments: %w", err)
	}
	return paid, nil
}
