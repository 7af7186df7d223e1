package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type referralRepository struct {
	db DB
}

func NewReferralRepository(db DB) interfaces.ReferralRepository {
	return &referralRepository{db: db}
}

const referralColumns = `id, referrer_id, referee_id, signup_bonus, first_order_bonus_paid,
	first_order_bonus, first_order_rewarded_at, created_at`

func (r *referralRepository) Create(ctx context.Context, referral *domain.Referral) error {
	query := `
		INSERT INTO referrals (referrer_id, referee_id, signup_bonus, first_order_bonus_paid,
		                       first_order_bonus, first_order_rewarded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		referral.ReferrerID, referral.RefereeID, referral.SignupBonus, referral.FirstOrderBonusPaid,
		referral.FirstOrderBonus, referral.FirstOrderRewardedAt, referral.CreatedAt,
	).Scan(&referral.ID)
	if err != nil {
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

func (r *referralRepository) FindByReferee(ctx context.Context, refereeID int) (*domain.Referral, error) {
	return r.findOne(ctx, `SELECT `+referralColumns+` FROM referrals WHERE referee_id = $1`, refereeID)
}

func (r *referralRepository) FindByRefereeForUpdate(ctx context.Context, refereeID int) (*domain.Referral, error) {
	return r.findOne(ctx, `SELECT `+referralColumns+` FROM referrals WHERE referee_id = $1 FOR UPDATE`, refereeID)
}

func (r *referralRepository) findOne(ctx context.Context, query string, refereeID int) (*domain.Referral, error) {
	var ref domain.Referral
	err := conn(ctx, r.db).QueryRow(ctx, query, refereeID).Scan(
		&ref.ID, &ref.ReferrerID, &ref.RefereeID, &ref.SignupBonus, &ref.FirstOrderBonusPaid,
		&ref.FirstOrderBonus, &ref.FirstOrderRewardedAt, &ref.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "failed to load referral")
	}
	return &ref, nil
}

func (r *referralRepository) Update(ctx context.Context, referral *domain.Referral) error {
	query := `
		UPDATE referrals
		SET first_order_bonus_paid = $1, first_order_bonus = $2, first_order_rewarded_at = $3
		WHERE id = $4
	`
	tag, err := conn(ctx, r.db).Exec(ctx, query,
		referral.FirstOrderBonusPaid, referral.FirstOrderBonus, referral.FirstOrderRewardedAt, referral.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update referral: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
