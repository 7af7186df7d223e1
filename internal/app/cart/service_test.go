package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/adapter/memory"
	"github.com/YelzhanWeb/foodorder/internal/domain"
)

type fixture struct {
	svc     *Service
	store   *memory.Store
	burger  *domain.MenuItem
	fries   *domain.MenuItem
	soldOut *domain.MenuItem
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:   store,
		burger:  store.AddMenuItem(&domain.MenuItem{Name: "Burger", Price: decimal.NewFromInt(1000), Available: true}),
		fries:   store.AddMenuItem(&domain.MenuItem{Name: "Fries", Price: decimal.NewFromInt(500), Available: true}),
		soldOut: store.AddMenuItem(&domain.MenuItem{Name: "Soup", Price: decimal.NewFromInt(700)}),
	}
	f.svc = NewService(
		memory.NewTxManager(store),
		memory.NewOrderRepository(store),
		memory.NewMenuCatalog(store),
		logger.Nop(),
	).WithClock(func() time.Time { return time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC) })
	return f
}

func TestAddItemMergesLines(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.AddItem(ctx, 1, f.burger.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 1, f.fries.ID, 1)
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, 1, f.burger.ID, 1)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 2)
	require.Equal(t, "2500", cart.Subtotal.String())

	got, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, cart.ID, got.ID)
	require.Len(t, got.Lines, 2)
	require.Equal(t, 2, got.Lines[0].Quantity)
	require.Equal(t, "2000", got.Lines[0].LineTotal.String())
	require.Equal(t, "2500", got.Subtotal.String())
}

func TestAddItemRejectsUnavailableAndUnknown(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.AddItem(ctx, 1, f.soldOut.ID, 1)
	require.ErrorIs(t, err, domain.ErrItemUnavailable)

	_, err = f.svc.AddItem(ctx, 1, 999, 1)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.svc.AddItem(ctx, 1, f.burger.ID, 0)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	cart, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, cart.ID)
	require.Empty(t, cart.Lines)
}

func TestUpdateAndRemoveLine(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	cart, err := f.svc.AddItem(ctx, 1, f.burger.ID, 1)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = f.svc.UpdateLine(ctx, 1, lineID, 3)
	require.NoError(t, err)
	require.Equal(t, "3000", cart.Subtotal.String())

	_, err = f.svc.UpdateLine(ctx, 1, lineID, 0)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.svc.UpdateLine(ctx, 2, lineID, 2)
	require.ErrorIs(t, err, domain.ErrLineNotFound)

	cart, err = f.svc.RemoveLine(ctx, 1, lineID)
	require.NoError(t, err)
	require.Empty(t, cart.Lines)
	require.True(t, cart.Subtotal.IsZero())

	_, err = f.svc.RemoveLine(ctx, 1, lineID)
	require.ErrorIs(t, err, domain.ErrLineNotFound)
}

func TestClearDeletesCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.AddItem(ctx, 1, f.burger.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, 1))
	require.NoError(t, f.svc.Clear(ctx, 1))

	_, err = memory.NewOrderRepository(f.store).FindCart(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
