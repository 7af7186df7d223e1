package memory

import (
	"context"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type referralRepository struct {
	s *Store
}

func NewReferralRepository(s *Store) interfaces.ReferralRepository {
	return &referralRepository{s: s}
}

func (r *referralRepository) Create(ctx context.Context, referral *domain.Referral) error {
	return r.s.write(ctx, func(st *state) error {
		for _, ref := range st.referrals {
			if ref.RefereeID == referral.RefereeID {
				return domain.Validation("user was already referred")
			}
		}
		referral.ID = st.nextID()
		cp := *referral
		st.referrals[referral.ID] = &cp
		return nil
	})
}

func (r *referralRepository) FindByReferee(ctx context.Context, refereeID int) (*domain.Referral, error) {
	var out *domain.Referral
	err := r.s.read(func(st *state) error {
		for _, ref := range st.referrals {
			if ref.RefereeID == refereeID {
				cp := *ref
				out = &cp
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *referralRepository) FindByRefereeForUpdate(ctx context.Context, refereeID int) (*domain.Referral, error) {
	return r.FindByReferee(ctx, refereeID)
}

func (r *referralRepository) Update(ctx context.Context, referral *domain.Referral) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.referrals[referral.ID]; !ok {
			return domain.ErrNotFound
		}
		cp := *referral
		st.referrals[referral.ID] = &cp
		return nil
	})
}
