package memory

import (
	"context"
	"sort"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type paymentRepository struct {
	s *Store
}

func NewPaymentRepository(s *Store) interfaces.PaymentRepository {
	return &paymentRepository{s: s}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.s.write(ctx, func(st *state) error {
		for _, p := range st.payments {
			if p.Reference == payment.Reference {
				return domain.Validation("payment reference already exists")
			}
		}
		payment.ID = st.nextID()
		cp := *payment
		st.payments[payment.ID] = &cp
		return nil
	})
}

func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.s.read(func(st *state) error {
		for _, p := range st.payments {
			if p.Reference == reference {
				cp := *p
				out = &cp
				return nil
			}
		}
		return domain.ErrPaymentNotFound
	})
	return out, err
}

func (r *paymentRepository) FindByReferenceForUpdate(ctx context.Context, reference string) (*domain.Payment, error) {
	return r.FindByReference(ctx, reference)
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.payments[payment.ID]; !ok {
			return domain.ErrPaymentNotFound
		}
		cp := *payment
		st.payments[payment.ID] = &cp
		return nil
	})
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.s.read(func(st *state) error {
		for _, p := range st.payments {
			if p.OrderID == orderID {
				cp := *p
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *paymentRepository) HasPaid(ctx context.Context, orderID int) (bool, error) {
	paid := false
	err := r.s.read(func(st *state) error {
		for _, p := range st.payments {
			if p.OrderID == orderID && p.Status == domain.PaymentPaid {
				paid = true
			}
		}
		return nil
	})
	return paid, err
}
