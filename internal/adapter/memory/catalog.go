package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type promotionRepository struct {
	s *Store
}

func NewPromotionRepository(s *Store) interfaces.PromotionRepository {
	return &promotionRepository{s: s}
}

func (r *promotionRepository) FindByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	var out *domain.Promotion
	err := r.s.read(func(st *state) error {
		for _, p := range st.promotions {
			if p.Code != nil && strings.EqualFold(*p.Code, code) {
				cp := *p
				out = &cp
				return nil
			}
		}
		return domain.ErrPromoNotFound
	})
	return out, err
}

func (r *promotionRepository) FindByCodeForUpdate(ctx context.Context, code string) (*domain.Promotion, error) {
	return r.FindByCode(ctx, code)
}

func (r *promotionRepository) IncrementUsage(ctx context.Context, promotionID int) error {
	return r.s.write(ctx, func(st *state) error {
		p, ok := st.promotions[promotionID]
		if !ok {
			return domain.ErrPromoNotFound
		}
		p.UsageCount++
		return nil
	})
}

type menuCatalog struct {
	s *Store
}

func NewMenuCatalog(s *Store) interfaces.MenuCatalog {
	return &menuCatalog{s: s}
}

func (c *menuCatalog) GetItem(ctx context.Context, id int) (*domain.MenuItem, error) {
	var out *domain.MenuItem
	err := c.s.read(func(st *state) error {
		item, ok := st.menu[id]
		if !ok {
			return domain.ErrItemNotFound
		}
		cp := *item
		out = &cp
		return nil
	})
	return out, err
}

type notificationRepository struct {
	s *Store
}

func NewNotificationRepository(s *Store) interfaces.NotificationRepository {
	return &notificationRepository{s: s}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.s.write(ctx, func(st *state) error {
		n.ID = st.nextID()
		cp := *n
		st.notifications[n.ID] = &cp
		return nil
	})
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.s.read(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID == userID {
				cp := *n
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID int) error {
	return r.s.write(ctx, func(st *state) error {
		n, ok := st.notifications[notificationID]
		if !ok || n.UserID != userID {
			return domain.ErrNotFound
		}
		n.Read = true
		return nil
	})
}
