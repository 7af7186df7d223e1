package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type userRepository struct {
	db DB
}

func NewUserRepository(db DB) interfaces.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, role, status, points_balance, referral_code, referrer_id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (name, email, role, status, points_balance, referral_code, referrer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		user.Name, user.Email, user.Role, user.Status, user.PointsBalance,
		user.ReferralCode, user.ReferrerID, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_email_key" {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) FindByIDForUpdate(ctx context.Context, id int) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(conn(ctx, r.db).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound, "failed to load user")
	}
	return user, nil
}

func scanUser(row Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.PointsBalance,
		&u.ReferralCode, &u.ReferrerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UpdateBalance(ctx context.Context, userID int, balance int64) error {
	return r.exec(ctx, `UPDATE users SET points_balance = $1, updated_at = now() WHERE id = $2`, balance, userID)
}

func (r *userRepository) SetReferrer(ctx context.Context, userID, referrerID int) error {
	return r.exec(ctx, `UPDATE users SET referrer_id = $1, updated_at = now() WHERE id = $2`, referrerID, userID)
}

func (r *userRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListActiveStaff(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role IN ('staff', 'manager', 'admin') AND status = 'active'
		ORDER BY id
	`
	rows, err := conn(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
