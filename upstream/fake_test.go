package upstream_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"vogue/db"
	"vogue/models"
	"vogue/utils"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu            sync.Mutex
	products      []models.Product
	users         []models.User
	carts         map[string][]models.CartItem
	lists         map[string][]string
	notifications map[string][]models.Notification
	events        []models.AnalyticsEvent
	logins        map[string]time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		carts:         map[string][]models.CartItem{},
		lists:         map[string][]string{},
		notifications: map[string][]models.Notification{},
		logins:        map[string]time.Time{},
	}
}

func (m *memRepo) Products(_ context.Context, q utils.QueryOptions) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.products {
		if q.Category != "" && q.Category != models.CategoryAll && p.Category != q.Category {
			continue
		}
		if q.Search != "" && !utils.ContainsIgnoreCase(p.Name, q.Search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) Product(_ context.Context, id string) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, db.ErrNotFound
}

func (m *memRepo) QuickView(ctx context.Context, id string) (models.QuickView, error) {
	p, err := m.Product(ctx, id)
	if err != nil {
		return models.QuickView{}, err
	}
	return models.QuickView{Product: p, Sizes: []string{"S", "M"}}, nil
}

func (m *memRepo) Cart(_ context.Context, owner string) (models.CartSync, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.carts[owner]
	if items == nil {
		items = []models.CartItem{}
	}
	return models.CartSync{Items: items}, nil
}

func (m *memRepo) SaveCart(_ context.Context, owner string, items []models.CartItem, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[owner] = slices.Clone(items)
	return nil
}

func (m *memRepo) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (m *memRepo) UserByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == id {
			return u, nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (m *memRepo) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[id] = at
	return nil
}

func (m *memRepo) List(_ context.Context, owner, kind string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.lists[owner+"/"+kind]
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (m *memRepo) SaveList(_ context.Context, owner, kind string, ids []string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[owner+"/"+kind] = slices.Clone(ids)
	return nil
}

func (m *memRepo) UnreadNotifications(_ context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.notifications[userID]
	delete(m.notifications, userID)
	if ns == nil {
		ns = []models.Notification{}
	}
	return ns, nil
}

func (m *memRepo) RecordEvent(_ context.Context, ev models.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) hasCart(owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.carts[owner]
	return ok
}

func (m *memRepo) storedList(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists[key]
}

func (m *memRepo) loggedIn(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.logins[id]
	return ok
}

func (m *memRepo) eventNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Event)
	}
	return out
}
