package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type pointRepository struct {
	db DB
}

func NewPointRepository(db DB) interfaces.PointRepository {
	return &pointRepository{db: db}
}

func (r *pointRepository) Append(ctx context.Context, tx *domain.PointTransaction) error {
	query := `
		INSERT INTO point_transactions (user_id, type, amount, balance_after, source, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		tx.UserID, tx.Type, tx.Amount, tx.BalanceAfter, tx.Source, tx.Reference, tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("failed to append point transaction: %w", err)
	}
	return nil
}

func (r *pointRepository) ListByUser(ctx context.Context, userID int) ([]*domain.PointTransaction, error) {
	query := `
		SELECT id, user_id, type, amount, balance_after, source, reference, created_at
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query point transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.PointTransaction
	for rows.Next() {
		var t domain.PointTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter,
			&t.Source, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan point transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

func (r *pointRepository) SumByUser(ctx context.Context, userID int) (int64, error) {
	var sum int64
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM point_transactions WHERE user_id = $1`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum point transactions: %w", err)
	}
	return sum, nil
}
