package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/repository/memory"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type catalogFixture struct {
	base, sauce, cheese, olive, basil domain.CatalogItem
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(fixedClock)
	return store
}

func seedCatalog(t *testing.T, store *memory.Store) catalogFixture {
	t.Helper()
	ctx := context.Background()
	create := func(kind domain.CatalogKind, name string, price float64, stock, threshold int) domain.CatalogItem {
		item := &domain.CatalogItem{Name: name, Price: price, Stock: stock, Threshold: threshold}
		require.NoError(t, store.Repositories().Catalog.Kind(kind).Create(ctx, item))
		return *item
	}
	return catalogFixture{
		base:   create(domain.KindBase, "Thin Crust", 100, 20, 5),
		sauce:  create(domain.KindSauce, "Tomato", 30, 20, 5),
		cheese: create(domain.KindCheese, "Mozzarella", 50, 20, 5),
		olive:  create(domain.KindTopping, "Olive", 20, 3, 2),
		basil:  create(domain.KindTopping, "Basil", 10, 20, 5),
	}
}

func seedUser(t *testing.T, store *memory.Store, username string, points int) *domain.User {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, store.Repositories().Users.Create(ctx, user))
	if points > 0 {
		_, err := store.Repositories().Users.AdjustLoyaltyPoints(ctx, user.ID, points)
		require.NoError(t, err)
	}
	got, err := store.Repositories().Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	return got
}

func (f catalogFixture) pizza(toppings ...domain.CatalogItem) domain.PizzaConfig {
	cfg := domain.PizzaConfig{BaseID: f.base.ID, SauceID: f.sauce.ID, CheeseID: f.cheese.ID}
	for _, t := range toppings {
		cfg.ToppingIDs = append(cfg.ToppingIDs, t.ID)
	}
	return cfg
}

func stockOf(t *testing.T, store *memory.Store, kind domain.CatalogKind, id string) int {
	t.Helper()
	item, err := store.Repositories().Catalog.Kind(kind).GetByID(context.Background(), id)
	require.NoError(t, err)
	return item.Stock
}

func validOrderInput(f catalogFixture, quantity int, toppings ...domain.CatalogItem) PlaceOrderInput {
	return PlaceOrderInput{
		DeliveryAddress: "221B Baker Street, London",
		ContactNumber:   "+44 20 7946 0000",
		Items: []OrderLineInput{{
			Pizza:    f.pizza(toppings...),
			Price:    250,
			Quantity: quantity,
		}},
	}
}
