package referral

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type Bonuses struct {
	Signup     int64
	FirstOrder int64
}

type Service struct {
	tx        interfaces.TxManager
	users     interfaces.UserRepository
	orders    interfaces.OrderRepository
	referrals interfaces.ReferralRepository
	ledger    interfaces.Ledger
	notifier  interfaces.Notifier
	bonuses   Bonuses
	logger    logger.Logger
	now       func() time.Time
}

func NewService(
	tx interfaces.TxManager,
	users interfaces.UserRepository,
	orders interfaces.OrderRepository,
	referrals interfaces.ReferralRepository,
	ledger interfaces.Ledger,
	notifier interfaces.Notifier,
	bonuses Bonuses,
	logger logger.Logger,
) *Service {
	return &Service{
		tx:        tx,
		users:     users,
		orders:    orders,
		referrals: referrals,
		ledger:    ledger,
		notifier:  notifier,
		bonuses:   bonuses,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// OnRegistration links referee to the owner of code and credits the signup bonus.
// An empty, unknown or unusable code is ignored and returns a nil referral.
func (s *Service) OnRegistration(ctx context.Context, referee *domain.User, code string) (*domain.Referral, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	referrer, err := s.users.FindByReferralCode(ctx, code)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.ignore(ctx, referee, code, "unknown referral code")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if referrer.ID == referee.ID || !referrer.IsActive() {
		s.ignore(ctx, referee, code, "referrer cannot receive referrals")
		return nil, nil
	}

	var referral *domain.Referral
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.referrals.FindByRefereeForUpdate(ctx, referee.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		r := &domain.Referral{
			ReferrerID:  referrer.ID,
			RefereeID:   referee.ID,
			SignupBonus: s.bonuses.Signup,
			CreatedAt:   s.now(),
		}
		if err := s.referrals.Create(ctx, r); err != nil {
			return err
		}
		if err := s.users.SetReferrer(ctx, referee.ID, referrer.ID); err != nil {
			return err
		}
		if s.bonuses.Signup > 0 {
			if _, err := s.ledger.Credit(ctx, referrer.ID, s.bonuses.Signup, domain.SourceReferralSignup, strconv.Itoa(referee.ID)); err != nil {
				return err
			}
		}
		referral = r
		return nil
	})
	if err != nil || referral == nil {
		return nil, err
	}

	referee.ReferrerID = &referrer.ID
	if err := s.notifier.ReferralSignup(ctx, referrer.ID, referee, s.bonuses.Signup); err != nil {
		s.logger.Error("notification_failed", "Failed to notify referrer", logger.RequestID(ctx), map[string]interface{}{
			"referrer_id": referrer.ID,
		}, err)
	}
	return referral, nil
}

// OnOrderPlaced pays the first-order bonus once, when order is the referee's only
// non-cart order.
func (s *Service) OnOrderPlaced(ctx context.Context, order *domain.Order) error {
	var (
		rewarded   bool
		referrerID int
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.referrals.FindByRefereeForUpdate(ctx, order.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if r.FirstOrderBonusPaid {
			return nil
		}

		others, err := s.orders.CountPlacedByUser(ctx, order.UserID, order.ID)
		if err != nil {
			return err
		}
		if others > 0 {
			return nil
		}

		r.RewardFirstOrder(s.bonuses.FirstOrder, s.now())
		if err := s.referrals.Update(ctx, r); err != nil {
			return err
		}
		if s.bonuses.FirstOrder > 0 {
			if _, err := s.ledger.Credit(ctx, r.ReferrerID, s.bonuses.FirstOrder, domain.SourceReferralOrder, order.Number); err != nil {
				return err
			}
		}
		rewarded = true
		referrerID = r.ReferrerID
		return nil
	})
	if err != nil || !rewarded {
		return err
	}

	s.logger.Info("referral_rewarded", "First order referral bonus credited", logger.RequestID(ctx), map[string]interface{}{
		"referrer_id":  referrerID,
		"referee_id":   order.UserID,
		"order_number": order.Number,
	})
	if err := s.notifier.ReferralFirstOrder(ctx, referrerID, order, s.bonuses.FirstOrder); err != nil {
		s.logger.Error("notification_failed", "Failed to notify referrer", logger.RequestID(ctx), map[string]interface{}{
			"referrer_id": referrerID,
		}, err)
	}
	return nil
}

func (s *Service) ignore(ctx context.Context, referee *domain.User, code, reason string) {
	s.logger.Debug("referral_ignored", reason, logger.RequestID(ctx), map[string]interface{}{
		"referee_id": referee.ID,
		"code":       code,
	})
}
