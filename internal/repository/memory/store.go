// Package memory is an in-process implementation of the repository contracts. Tests run on it,
// and `serve --in-memory` uses it for local development without a database.
// Transactions are serialized on one mutex and restore a snapshot when the unit of work fails.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository"
)

type dataset struct {
	users         *table[domain.User]
	catalog       map[domain.CatalogKind]*table[domain.CatalogItem]
	orders        *table[domain.Order]
	items         *table[domain.OrderItem]
	promotions    *table[domain.Promotion]
	plans         *table[domain.SubscriptionPlan]
	subscriptions *table[domain.UserSubscription]
	notifications *table[domain.Notification]
}

func newDataset() *dataset {
	d := &dataset{
		users:         newTable[domain.User](nil),
		catalog:       make(map[domain.CatalogKind]*table[domain.CatalogItem]),
		orders:        newTable[domain.Order](nil),
		items:         newTable(func(i domain.OrderItem) domain.OrderItem { i.Pizza = i.Pizza.Clone(); return i }),
		promotions:    newTable[domain.Promotion](nil),
		plans:         newTable(func(p domain.SubscriptionPlan) domain.SubscriptionPlan { p.Pizza = p.Pizza.Clone(); return p }),
		subscriptions: newTable[domain.UserSubscription](nil),
		notifications: newTable[domain.Notification](nil),
	}
	for _, kind := range domain.CatalogKinds {
		d.catalog[kind] = newTable[domain.CatalogItem](nil)
	}
	return d
}

func (d *dataset) clone() *dataset {
	cp := &dataset{
		users:         d.users.clone(),
		catalog:       make(map[domain.CatalogKind]*table[domain.CatalogItem], len(d.catalog)),
		orders:        d.orders.clone(),
		items:         d.items.clone(),
		promotions:    d.promotions.clone(),
		plans:         d.plans.clone(),
		subscriptions: d.subscriptions.clone(),
		notifications: d.notifications.clone(),
	}
	for kind, t := range d.catalog {
		cp.catalog[kind] = t.clone()
	}
	return cp
}

// Store implements repository.UnitOfWork in memory.
type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newDataset(), now: time.Now}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Repositories() repository.Repositories {
	return s.repositories(false)
}

func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, s.repositories(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) repositories(inTx bool) repository.Repositories {
	b := base{store: s, inTx: inTx}
	return repository.Repositories{
		Users:         &userRepository{base: b},
		Catalog:       &catalog{base: b},
		Orders:        &orderRepository{base: b},
		Promotions:    &promotionRepository{base: b},
		Plans:         &planRepository{base: b},
		Subscriptions: &subscriptionRepository{base: b},
		Notifications: &notificationRepository{base: b},
	}
}

// base takes the store lock for calls made outside a transaction; inside one the lock is already held.
type base struct {
	store *Store
	inTx  bool
}

func (b base) lock() func() {
	if b.inTx {
		return func() {}
	}
	b.store.mu.Lock()
	return b.store.mu.Unlock
}

func (b base) data() *dataset {
	return b.store.data
}

func (b base) now() time.Time {
	return b.store.now()
}
