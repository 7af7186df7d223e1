package memory

import (
	"context"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type pointRepository struct {
	s *Store
}

func NewPointRepository(s *Store) interfaces.PointRepository {
	return &pointRepository{s: s}
}

func (r *pointRepository) Append(ctx context.Context, tx *domain.PointTransaction) error {
	return r.s.write(ctx, func(st *state) error {
		tx.ID = st.nextID()
		cp := *tx
		st.points = append(st.points, &cp)
		return nil
	})
}

func (r *pointRepository) ListByUser(ctx context.Context, userID int) ([]*domain.PointTransaction, error) {
	var out []*domain.PointTransaction
	err := r.s.read(func(st *state) error {
		for _, p := range st.points {
			if p.UserID == userID {
				cp := *p
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (r *pointRepository) SumByUser(ctx context.Context, userID int) (int64, error) {
	var sum int64
	err := r.s.read(func(st *state) error {
		for _, p := range st.points {
			if p.UserID == userID {
				sum += p.Amount
			}
		}
		return nil
	})
	return sum, err
}
