package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type Service struct {
	repo interfaces.PromotionRepository
	now  func() time.Time
}

func NewService(repo interfaces.PromotionRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ValidateCode prices code against cartTotal without counting a usage.
func (s *Service) ValidateCode(ctx context.Context, code string, cartTotal decimal.Decimal) (*interfaces.PromoValidation, error) {
	code, err := normalize(code)
	if err != nil {
		return nil, err
	}
	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.evaluate(promo, cartTotal)
}

func (s *Service) Redeem(ctx context.Context, code string, cartTotal decimal.Decimal) (*interfaces.PromoValidation, error) {
	code, err := normalize(code)
	if err != nil {
		return nil, err
	}
	promo, err := s.repo.FindByCodeForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}

	result, err := s.evaluate(promo, cartTotal)
	if err != nil {
		return nil, err
	}

	if err := s.repo.IncrementUsage(ctx, promo.ID); err != nil {
		return nil, err
	}
	promo.UsageCount++
	return result, nil
}

func (s *Service) evaluate(promo *domain.Promotion, cartTotal decimal.Decimal) (*interfaces.PromoValidation, error) {
	if err := promo.Check(cartTotal, s.now()); err != nil {
		return nil, err
	}
	return &interfaces.PromoValidation{
		Promotion: promo,
		Discount:  promo.Discount(cartTotal),
	}, nil
}

func normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", domain.Validation("promo code is required")
	}
	return code, nil
}
