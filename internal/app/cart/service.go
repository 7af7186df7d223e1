package cart

import (
	"context"
	"errors"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// Service keeps one cart per user: an order row in status cart.
type Service struct {
	tx     interfaces.TxManager
	orders interfaces.OrderRepository
	menu   interfaces.MenuCatalog
	logger logger.Logger
	now    func() time.Time
}

func NewService(tx interfaces.TxManager, orders interfaces.OrderRepository, menu interfaces.MenuCatalog, logger logger.Logger) *Service {
	return &Service{
		tx:     tx,
		orders: orders,
		menu:   menu,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns the user's cart, or an empty unsaved one.
func (s *Service) Get(ctx context.Context, userID int) (*domain.Order, error) {
	cart, err := s.orders.FindCart(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewCart(userID, s.now()), nil
	}
	if err != nil {
		return nil, err
	}
	cart.CalculateSubtotal()
	return cart, nil
}

func (s *Service) AddItem(ctx context.Context, userID, menuItemID, quantity int) (*domain.Order, error) {
	item, err := s.menu.GetItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}

	var cart *domain.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err = s.findOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		line, err := cart.AddLine(*item, quantity, s.now())
		if err != nil {
			return err
		}
		if line.ID == 0 {
			err = s.orders.InsertLine(ctx, line)
		} else {
			err = s.orders.UpdateLine(ctx, line)
		}
		if err != nil {
			return err
		}
		return s.orders.Update(ctx, cart)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cart_item_added", "Item added to cart", logger.RequestID(ctx), map[string]interface{}{
		"user_id":      userID,
		"menu_item_id": menuItemID,
		"quantity":     quantity,
	})
	return cart, nil
}

func (s *Service) UpdateLine(ctx context.Context, userID, lineID, quantity int) (*domain.Order, error) {
	return s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Order) error {
		line, err := cart.UpdateLine(lineID, quantity, s.now())
		if err != nil {
			return err
		}
		return s.orders.UpdateLine(ctx, line)
	})
}

func (s *Service) RemoveLine(ctx context.Context, userID, lineID int) (*domain.Order, error) {
	return s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Order) error {
		if err := cart.RemoveLine(lineID, s.now()); err != nil {
			return err
		}
		return s.orders.DeleteLine(ctx, lineID)
	})
}

// Clear deletes the cart row and its lines.
func (s *Service) Clear(ctx context.Context, userID int) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := s.orders.FindCartForUpdate(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.orders.DeleteCart(ctx, cart.ID)
	})
}

func (s *Service) mutate(ctx context.Context, userID int, fn func(ctx context.Context, cart *domain.Order) error) (*domain.Order, error) {
	var cart *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.orders.FindCartForUpdate(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrLineNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(ctx, cart); err != nil {
			return err
		}
		return s.orders.Update(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) findOrCreate(ctx context.Context, userID int) (*domain.Order, error) {
	cart, err := s.orders.FindCartForUpdate(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	cart = domain.NewCart(userID, s.now())
	if err := s.orders.CreateCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
