package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/domain"
)

// AddUser stores u and assigns its id.
func (s *Store) AddUser(u *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.st.nextID()
	s.st.users[u.ID] = cloneUser(u)
	return u
}

func (s *Store) AddMenuItem(item *domain.MenuItem) *domain.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.st.nextID()
	cp := *item
	s.st.menu[item.ID] = &cp
	return item
}

func (s *Store) AddPromotion(p *domain.Promotion) *domain.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.st.nextID()
	cp := *p
	s.st.promotions[p.ID] = &cp
	return p
}

// SeedDemo loads a small menu, a staff member and a promotion for local runs.
func (s *Store) SeedDemo(now time.Time) {
	for _, item := range []domain.MenuItem{
		{Name: "Ndole with plantains", Price: decimal.NewFromInt(3500), Available: true},
		{Name: "Grilled fish", Price: decimal.NewFromInt(5000), Available: true},
		{Name: "Puff-puff", Price: decimal.NewFromInt(500), Available: true},
		{Name: "Folere juice", Price: decimal.NewFromInt(1000), Available: true},
	} {
		item := item
		s.AddMenuItem(&item)
	}

	s.AddUser(&domain.User{
		Name:         "Kitchen staff",
		Email:        "staff@foodorder.local",
		Role:         domain.RoleStaff,
		Status:       domain.AccountActive,
		ReferralCode: "STAFF001",
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	code := "WELCOME10"
	s.AddPromotion(&domain.Promotion{
		Name:         "Welcome discount",
		Code:         &code,
		Type:         domain.PromoPercentage,
		Value:        decimal.NewFromInt(10),
		MinCartValue: decimal.NewFromInt(2000),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
