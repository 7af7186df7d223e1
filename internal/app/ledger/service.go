package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// Service owns the points balance. Every change locks the user row, rewrites the
// balance and appends one ledger row in the same transaction.
type Service struct {
	tx     interfaces.TxManager
	users  interfaces.UserRepository
	points interfaces.PointRepository
	logger logger.Logger
	now    func() time.Time
}

func NewService(tx interfaces.TxManager, users interfaces.UserRepository, points interfaces.PointRepository, logger logger.Logger) *Service {
	return &Service{
		tx:     tx,
		users:  users,
		points: points,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Credit(ctx context.Context, userID int, amount int64, source, reference string) (int64, error) {
	if amount <= 0 {
		return 0, domain.Validation("points amount must be positive")
	}
	return s.apply(ctx, userID, amount, domain.PointsEarn, source, reference)
}

func (s *Service) Debit(ctx context.Context, userID int, amount int64, source, reference string) (int64, error) {
	if amount <= 0 {
		return 0, domain.Validation("points amount must be positive")
	}
	return s.apply(ctx, userID, -amount, domain.PointsRedeem, source, reference)
}

func (s *Service) apply(ctx context.Context, userID int, delta int64, txType domain.PointTxType, source, reference string) (int64, error) {
	var balance int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		balance = user.PointsBalance + delta
		if balance < 0 {
			return domain.ErrInsufficientBalance
		}

		if err := s.users.UpdateBalance(ctx, userID, balance); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		return s.points.Append(ctx, &domain.PointTransaction{
			UserID:       userID,
			Type:         txType,
			Amount:       delta,
			BalanceAfter: balance,
			Source:       source,
			Reference:    reference,
			CreatedAt:    s.now(),
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("points_"+string(txType), "Points balance changed", logger.RequestID(ctx), map[string]interface{}{
		"user_id":   userID,
		"amount":    delta,
		"balance":   balance,
		"source":    source,
		"reference": reference,
	})
	return balance, nil
}

func (s *Service) Balance(ctx context.Context, userID int) (int64, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.PointsBalance, nil
}

func (s *Service) History(ctx context.Context, userID int) ([]*domain.PointTransaction, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.points.ListByUser(ctx, userID)
}

// Reconcile compares the stored balance with the sum of the user's ledger rows.
func (s *Service) Reconcile(ctx context.Context, userID int) (*interfaces.LedgerAudit, error) {
	var audit *interfaces.LedgerAudit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		sum, err := s.points.SumByUser(ctx, userID)
		if err != nil {
			return err
		}
		audit = &interfaces.LedgerAudit{
			UserID:     userID,
			Balance:    user.PointsBalance,
			LedgerSum:  sum,
			Consistent: sum == user.PointsBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !audit.Consistent {
		s.logger.Error("ledger_mismatch", "Points balance does not match ledger", logger.RequestID(ctx), map[string]interface{}{
			"user_id":    userID,
			"balance":    audit.Balance,
			"ledger_sum": audit.LedgerSum,
		}, nil)
	}
	return audit, nil
}
