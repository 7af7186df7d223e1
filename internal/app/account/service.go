package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type Service struct {
	users     interfaces.UserRepository
	referrals interfaces.ReferralProgram
	logger    logger.Logger
	now       func() time.Time
}

func NewService(users interfaces.UserRepository, referrals interfaces.ReferralProgram, logger logger.Logger) *Service {
	return &Service{
		users:     users,
		referrals: referrals,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an active customer with its own referral code, then applies the
// referral code it signed up with. A failing referral never fails registration.
func (s *Service) Register(ctx context.Context, cmd interfaces.RegisterCommand) (*domain.User, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" || len(name) > 100 {
		return nil, domain.Validation("name is required (max 100 characters)")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(cmd.Email))
	if err != nil {
		return nil, domain.Validation("email is not valid")
	}
	email := strings.ToLower(addr.Address)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		Name:         name,
		Email:        email,
		Role:         domain.RoleCustomer,
		Status:       domain.AccountActive,
		ReferralCode: newReferralCode(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	requestID := logger.RequestID(ctx)
	s.logger.Info("user_registered", "User registered", requestID, map[string]interface{}{
		"user_id": user.ID,
	})

	if _, err := s.referrals.OnRegistration(ctx, user, cmd.ReferralCode); err != nil {
		s.logger.Error("referral_failed", "Failed to apply referral code", requestID, map[string]interface{}{
			"user_id": user.ID,
		}, err)
	}
	return user, nil
}

func (s *Service) Profile(ctx context.Context, userID int) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
