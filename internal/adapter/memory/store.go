// Package memory keeps every repository in process memory. It backs the service
// tests and the --store=memory mode.
package memory

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type state struct {
	users         map[int]*domain.User
	orders        map[int]*domain.Order
	statusLogs    []*domain.StatusLog
	payments      map[int]*domain.Payment
	points        []*domain.PointTransaction
	referrals     map[int]*domain.Referral
	promotions    map[int]*domain.Promotion
	menu          map[int]*domain.MenuItem
	notifications map[int]*domain.Notification
	seq           int
}

func newState() *state {
	return &state{
		users:         make(map[int]*domain.User),
		orders:        make(map[int]*domain.Order),
		payments:      make(map[int]*domain.Payment),
		referrals:     make(map[int]*domain.Referral),
		promotions:    make(map[int]*domain.Promotion),
		menu:          make(map[int]*domain.MenuItem),
		notifications: make(map[int]*domain.Notification),
	}
}

func (st *state) nextID() int {
	st.seq++
	return st.seq
}

func (st *state) clone() *state {
	c := newState()
	c.seq = st.seq
	for id, u := range st.users {
		c.users[id] = cloneUser(u)
	}
	for id, o := range st.orders {
		c.orders[id] = cloneOrder(o)
	}
	for _, l := range st.statusLogs {
		cp := *l
		c.statusLogs = append(c.statusLogs, &cp)
	}
	for id, p := range st.payments {
		cp := *p
		c.payments[id] = &cp
	}
	for _, p := range st.points {
		cp := *p
		c.points = append(c.points, &cp)
	}
	for id, r := range st.referrals {
		cp := *r
		c.referrals[id] = &cp
	}
	for id, p := range st.promotions {
		cp := *p
		c.promotions[id] = &cp
	}
	for id, m := range st.menu {
		cp := *m
		c.menu[id] = &cp
	}
	for id, n := range st.notifications {
		cp := *n
		c.notifications[id] = &cp
	}
	return c
}

// Store holds the data. Transactions are serialised; a failed transaction restores
// the snapshot taken when it began.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

type txManager struct {
	s *Store
}

func NewTxManager(s *Store) interfaces.TxManager {
	return &txManager{s: s}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.RLock()
	snapshot := m.s.st.clone()
	m.s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.s.mu.Lock()
		m.s.st = snapshot
		m.s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// write keeps writes made outside a transaction from interleaving with one.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.ReferrerID != nil {
		id := *u.ReferrerID
		cp.ReferrerID = &id
	}
	return &cp
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &cp
}
