package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"

	"github.com/jackc/pgx/v5"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `
	id, COALESCE(number, ''), user_id, type, status, delivery_address,
	subtotal, delivery_fee, points_redeemed, points_discount, promo_code, promo_discount,
	total, delivery_agent_id, processed_by, created_at, updated_at, placed_at, expected_arrival`

func scanOrder(row Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.Type, &o.Status, &o.DeliveryAddress,
		&o.Subtotal, &o.DeliveryFee, &o.PointsRedeemed, &o.PointsDiscount, &o.PromoCode, &o.PromoDiscount,
		&o.Total, &o.DeliveryAgentID, &o.ProcessedBy, &o.CreatedAt, &o.UpdatedAt, &o.PlacedAt, &o.ExpectedArrival,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateCart inserts an empty cart. If the user already has one, cart is overwritten with it.
func (r *orderRepository) CreateCart(ctx context.Context, cart *domain.Order) error {
	query := `
		INSERT INTO orders (user_id, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) WHERE status = 'cart' DO NOTHING
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		cart.UserID, cart.Type, domain.StatusCart, cart.CreatedAt, cart.UpdatedAt,
	).Scan(&cart.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to insert cart: %w", err)
	}

	existing, err := r.FindCart(ctx, cart.UserID)
	if err != nil {
		return err
	}
	*cart = *existing
	return nil
}

func (r *orderRepository) FindCart(ctx context.Context, userID int) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND status = 'cart'`, userID, domain.ErrNotFound)
}

func (r *orderRepository) FindCartForUpdate(ctx context.Context, userID int) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND status = 'cart' FOR UPDATE`, userID, domain.ErrNotFound)
}

func (r *orderRepository) DeleteCart(ctx context.Context, orderID int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM orders WHERE id = $1 AND status = 'cart'`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepository) InsertLine(ctx context.Context, line *domain.OrderLine) error {
	query := `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		line.OrderID, line.MenuItemID, line.Name, line.Quantity, line.UnitPrice, line.LineTotal,
	).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdateLine(ctx context.Context, line *domain.OrderLine) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE order_items SET quantity = $1, line_total = $2 WHERE id = $3 AND order_id = $4`,
		line.Quantity, line.LineTotal, line.ID, line.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (r *orderRepository) DeleteLine(ctx context.Context, lineID int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM order_items WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("failed to delete order item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id, domain.ErrOrderNotFound)
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id, domain.ErrOrderNotFound)
}

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number, domain.ErrOrderNotFound)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg any, missing error) (*domain.Order, error) {
	order, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err, missing, "failed to load order")
	}
	if err := r.loadLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	order.Lines = nil
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.MenuItemID, &line.Name,
			&line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	return rows.Err()
}

// Update writes the order header. Lines are written through InsertLine/UpdateLine/DeleteLine.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET number = NULLIF($1, ''), type = $2, status = $3, delivery_address = $4,
		    subtotal = $5, delivery_fee = $6, points_redeemed = $7, points_discount = $8,
		    promo_code = $9, promo_discount = $10, total = $11, delivery_agent_id = $12,
		    processed_by = $13, updated_at = $14, placed_at = $15, expected_arrival = $16
		WHERE id = $17
	`
	tag, err := conn(ctx, r.db).Exec(ctx, query,
		order.Number, order.Type, order.Status, order.DeliveryAddress,
		order.Subtotal, order.DeliveryFee, order.PointsRedeemed, order.PointsDiscount,
		order.PromoCode, order.PromoDiscount, order.Total, order.DeliveryAgentID,
		order.ProcessedBy, order.UpdatedAt, order.PlacedAt, order.ExpectedArrival,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND status <> 'cart' ORDER BY id DESC`, userID)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY id DESC`, status)
}

func (r *orderRepository) list(ctx context.Context, query string, arg any) ([]*domain.Order, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	// Lines are loaded after the cursor is closed; a transaction runs one query at a time.
	for _, o := range orders {
		if err := r.loadLines(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) CountPlacedByUser(ctx context.Context, userID, excludeID int) (int, error) {
	var count int
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1 AND id <> $2 AND status <> 'cart'`,
		userID, excludeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// GenerateOrderNumber takes the next value of the day's counter. Concurrent checkouts
// queue on the counter row, so two transactions never see the same value.
func (r *orderRepository) GenerateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	query := `
		INSERT INTO order_number_counters (day, last_value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = order_number_counters.last_value + 1
		RETURNING last_value
	`
	var seq int
	if err := conn(ctx, r.db).QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}

	return fmt.Sprintf("ORD_%s_%03d", day.Format("20060102"), seq), nil
}

func (r *orderRepository) LogStatus(ctx context.Context, orderID int, status domain.Status, changedBy string, notes *string, at time.Time) error {
	query := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := conn(ctx, r.db).Exec(ctx, query, orderID, status, changedBy, at, notes)
	if err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID int) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id, status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.OrderID, &log.Status, &log.ChangedBy, &log.ChangedAt, &log.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
