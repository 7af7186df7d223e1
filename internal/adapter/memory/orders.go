package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type orderRepository struct {
	s *Store
}

func NewOrderRepository(s *Store) interfaces.OrderRepository {
	return &orderRepository{s: s}
}

func (r *orderRepository) CreateCart(ctx context.Context, cart *domain.Order) error {
	return r.s.write(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == cart.UserID && o.Status == domain.StatusCart {
				*cart = *cloneOrder(o)
				return nil
			}
		}
		cart.ID = st.nextID()
		st.orders[cart.ID] = cloneOrder(cart)
		return nil
	})
}

func (r *orderRepository) FindCart(ctx context.Context, userID int) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.read(func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == userID && o.Status == domain.StatusCart {
				out = cloneOrder(o)
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *orderRepository) FindCartForUpdate(ctx context.Context, userID int) (*domain.Order, error) {
	return r.FindCart(ctx, userID)
}

func (r *orderRepository) DeleteCart(ctx context.Context, orderID int) error {
	return r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok || o.Status != domain.StatusCart {
			return domain.ErrNotFound
		}
		delete(st.orders, orderID)
		return nil
	})
}

func (r *orderRepository) InsertLine(ctx context.Context, line *domain.OrderLine) error {
	return r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[line.OrderID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		line.ID = st.nextID()
		o.Lines = append(o.Lines, *line)
		return nil
	})
}

func (r *orderRepository) UpdateLine(ctx context.Context, line *domain.OrderLine) error {
	return r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[line.OrderID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		for i := range o.Lines {
			if o.Lines[i].ID == line.ID {
				o.Lines[i] = *line
				return nil
			}
		}
		return domain.ErrLineNotFound
	})
}

func (r *orderRepository) DeleteLine(ctx context.Context, lineID int) error {
	return r.s.write(ctx, func(st *state) error {
		for _, o := range st.orders {
			for i := range o.Lines {
				if o.Lines[i].ID == lineID {
					o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
					return nil
				}
			}
		}
		return domain.ErrLineNotFound
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.read(func(st *state) error {
		for _, o := range st.orders {
			if o.Number != "" && o.Number == number {
				out = cloneOrder(o)
				return nil
			}
		}
		return domain.ErrOrderNotFound
	})
	return out, err
}

// Update stores the order columns. Lines are written through the line methods.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.s.write(ctx, func(st *state) error {
		existing, ok := st.orders[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		lines := existing.Lines
		updated := cloneOrder(order)
		updated.Lines = lines
		st.orders[order.ID] = updated
		return nil
	})
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int) ([]*domain.Order, error) {
	return r.list(func(o *domain.Order) bool {
		return o.UserID == userID && o.Status != domain.StatusCart
	})
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	return r.list(func(o *domain.Order) bool { return o.Status == status })
}

func (r *orderRepository) list(match func(o *domain.Order) bool) ([]*domain.Order, error) {
	var out []*domain.Order
	err := r.s.read(func(st *state) error {
		for _, o := range st.orders {
			if match(o) {
				out = append(out, cloneOrder(o))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *orderRepository) CountPlacedByUser(ctx context.Context, userID, excludeID int) (int, error) {
	count := 0
	err := r.s.read(func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == userID && o.ID != excludeID && o.Status != domain.StatusCart {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *orderRepository) GenerateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	prefix := fmt.Sprintf("ORD_%s_", now.UTC().Format("20060102"))
	count := 0
	err := r.s.read(func(st *state) error {
		for _, o := range st.orders {
			if strings.HasPrefix(o.Number, prefix) {
				count++
			}
		}
		return nil
	})
	return fmt.Sprintf("%s%03d", prefix, count+1), err
}

func (r *orderRepository) LogStatus(ctx context.Context, orderID int, status domain.Status, changedBy string, notes *string, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		st.statusLogs = append(st.statusLogs, &domain.StatusLog{
			ID:        st.nextID(),
			OrderID:   orderID,
			Status:    status,
			ChangedBy: changedBy,
			ChangedAt: at,
			Notes:     notes,
		})
		return nil
	})
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID int) ([]*domain.StatusLog, error) {
	var out []*domain.StatusLog
	err := r.s.read(func(st *state) error {
		for _, l := range st.statusLogs {
			if l.OrderID == orderID {
				cp := *l
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
