package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type promotionRepository struct {
	db DB
}

func NewPromotionRepository(db DB) interfaces.PromotionRepository {
	return &promotionRepository{db: db}
}

const promotionColumns = `id, name, code, type, value, min_cart_value, starts_at, ends_at,
	usage_limit, usage_count, active, created_at, updated_at`

func (r *promotionRepository) FindByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	return r.findOne(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE upper(code) = upper($1)`, code)
}

func (r *promotionRepository) FindByCodeForUpdate(ctx context.Context, code string) (*domain.Promotion, error) {
	return r.findOne(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE upper(code) = upper($1) FOR UPDATE`, code)
}

func (r *promotionRepository) findOne(ctx context.Context, query, code string) (*domain.Promotion, error) {
	var p domain.Promotion
	err := conn(ctx, r.db).QueryRow(ctx, query, code).Scan(
		&p.ID, &p.Name, &p.Code, &p.Type, &p.Value, &p.MinCartValue, &p.StartsAt, &p.EndsAt,
		&p.UsageLimit, &p.UsageCount, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrPromoNotFound, "failed to load promotion")
	}
	return &p, nil
}

func (r *promotionRepository) IncrementUsage(ctx context.Context, promotionID int) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE promotions SET usage_count = usage_count + 1, updated_at = now() WHERE id = $1`, promotionID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment promotion usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPromoNotFound
	}
	return nil
}

type menuCatalog struct {
	db DB
}

func NewMenuCatalog(db DB) interfaces.MenuCatalog {
	return &menuCatalog{db: db}
}

func (c *menuCatalog) GetItem(ctx context.Context, id int) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := conn(ctx, c.db).QueryRow(ctx,
		`SELECT id, name, price, available FROM menu_items WHERE id = $1`, id,
	).Scan(&item.ID, &item.Name, &item.Price, &item.Available)
	if err != nil {
		return nil, notFound(err, domain.ErrItemNotFound, "failed to load menu item")
	}
	return &item, nil
}

type notificationRepository struct {
	db DB
}

func NewNotificationRepository(db DB) interfaces.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, body, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		n.UserID, n.Type, n.Title, n.Body, n.Data, n.Read, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, type, title, body, data, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY id DESC
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Data, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID int) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
