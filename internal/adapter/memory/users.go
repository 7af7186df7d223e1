package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type userRepository struct {
	s *Store
}

func NewUserRepository(s *Store) interfaces.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return domain.ErrEmailTaken
			}
		}
		user.ID = st.nextID()
		st.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r *userRepository) FindByIDForUpdate(ctx context.Context, id int) (*domain.User, error) {
	return r.FindByID(ctx, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.ReferralCode, code) })
}

func (r *userRepository) find(match func(u *domain.User) bool) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				out = cloneUser(u)
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

func (r *userRepository) UpdateBalance(ctx context.Context, userID int, balance int64) error {
	return r.s.write(ctx, func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return domain.ErrUserNotFound
		}
		u.PointsBalance = balance
		return nil
	})
}

func (r *userRepository) SetReferrer(ctx context.Context, userID, referrerID int) error {
	return r.s.write(ctx, func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return domain.ErrUserNotFound
		}
		u.ReferrerID = &referrerID
		return nil
	})
}

func (r *userRepository) ListActiveStaff(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	err := r.s.read(func(st *state) error {
		for _, u := range st.users {
			if u.Role.IsStaff() && u.IsActive() {
				out = append(out, cloneUser(u))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}
