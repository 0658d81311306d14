//go:build integration
// +build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/persistence"
	"github.com/slicehouse/pizzeria/internal/repository"
	"github.com/slicehouse/pizzeria/internal/service"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

func setupStore(t *testing.T) repository.UnitOfWork {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("pizzeria"),
		postgres.WithUsername("pizzeria"),
		postgres.WithPassword("pizzeria"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	// A second run must be a no-op.
	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))

	return repository.NewPostgresStore(pool)
}

func TestPostgresUsersAndLoyalty(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	users := store.Repositories().Users

	user := &domain.User{Username: "mona", Email: "mona@example.com", Password: "hash.salt"}
	require.NoError(t, users.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	err := users.Create(ctx, &domain.User{Username: "mona", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	byEmail, err := users.GetByEmail(ctx, "mona@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	balance, err := users.AdjustLoyaltyPoints(ctx, user.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, balance)

	_, err = users.AdjustLoyaltyPoints(ctx, user.ID, -41)
	assert.ErrorIs(t, err, repository.ErrInsufficientPoints)

	_, err = users.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgresStockIsConditional(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	toppings := store.Repositories().Catalog.Kind(domain.KindTopping)

	item := &domain.CatalogItem{Name: "Olive", Price: 0.5, Stock: 2, Threshold: 1, IsVegetarian: true}
	require.NoError(t, toppings.Create(ctx, item))

	updated, err := toppings.AdjustStock(ctx, item.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)

	_, err = toppings.AdjustStock(ctx, item.ID, -1)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	inStock, err := toppings.List(ctx, repository.CatalogFilter{InStockOnly: true})
	require.NoError(t, err)
	assert.Empty(t, inStock)
}

func TestPostgresTransactionRollsBack(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	bases := store.Repositories().Catalog.Kind(domain.KindBase)

	item := &domain.CatalogItem{Name: "Thin", Price: 2, Stock: 5, Threshold: 1}
	require.NoError(t, bases.Create(ctx, item))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Catalog.Kind(domain.KindBase).AdjustStock(ctx, item.ID, -3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	reloaded, err := bases.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestPostgresPromotionUsageLimit(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	promos := store.Repositories().Promotions

	now := time.Now().UTC()
	promo := &domain.Promotion{
		Code:          "ONCE",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 5,
		MaxUses:       1,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		IsActive:      true,
	}
	require.NoError(t, promos.Create(ctx, promo))

	byCode, err := promos.GetByCode(ctx, " once ")
	require.NoError(t, err)
	assert.Equal(t, promo.ID, byCode.ID)

	require.NoError(t, promos.IncrementUsage(ctx, promo.ID))
	assert.ErrorIs(t, promos.IncrementUsage(ctx, promo.ID), repository.ErrUsageLimitReached)
}

func TestPostgresOrderPlacement(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	repos := store.Repositories()

	user := &domain.User{Username: "nina", Email: "nina@example.com", Password: "x"}
	require.NoError(t, repos.Users.Create(ctx, user))

	create := func(kind domain.CatalogKind, name string, stock int) domain.CatalogItem {
		item := &domain.CatalogItem{Name: name, Price: 1, Stock: stock, Threshold: 2}
		require.NoError(t, repos.Catalog.Kind(kind).Create(ctx, item))
		return *item
	}
	base := create(domain.KindBase, "Thin", 10)
	sauce := create(domain.KindSauce, "Tomato", 10)
	cheese := create(domain.KindCheese, "Mozzarella", 10)
	basil := create(domain.KindTopping, "Basil", 3)

	orders := service.NewOrderService(service.OrderDependencies{Store: store})
	placement, err := orders.PlaceOrder(ctx, user.ID, service.PlaceOrderInput{
		DeliveryAddress: "221B Baker Street, London",
		ContactNumber:   "+44 20 7946 0000",
		Items: []service.OrderLineInput{{
			Pizza:    domain.PizzaConfig{BaseID: base.ID, SauceID: sauce.ID, CheeseID: cheese.ID, ToppingIDs: []string{basil.ID}},
			Price:    12.5,
			Quantity: 2,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, placement.Order.TotalAmount)
	require.Len(t, placement.LowStock, 1)
	assert.Equal(t, basil.ID, placement.LowStock[0].ID)

	items, err := repos.Orders.ListItems(ctx, placement.Order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Basil", items[0].Pizza.Toppings[0].Name)

	history, err := repos.Orders.ListItemsByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = orders.PlaceOrder(ctx, user.ID, service.PlaceOrderInput{
		DeliveryAddress: "221B Baker Street, London",
		ContactNumber:   "+44 20 7946 0000",
		Items: []service.OrderLineInput{{
			Pizza:    domain.PizzaConfig{BaseID: base.ID, SauceID: sauce.ID, CheeseID: cheese.ID, ToppingIDs: []string{basil.ID}},
			Price:    12.5,
			Quantity: 2,
		}},
	})
	require.Error(t, err)

	reloaded, err := repos.Catalog.Kind(domain.KindBase).GetByID(ctx, base.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Stock, "failed order must not consume stock")

	malformed := service.PlaceOrderInput{
		DeliveryAddress: "221B Baker Street, London",
		ContactNumber:   "+44 20 7946 0000",
		Items: []service.OrderLineInput{{
			Pizza:    domain.PizzaConfig{BaseID: "x", SauceID: sauce.ID, CheeseID: cheese.ID},
			Price:    0.004,
			Quantity: 1,
		}},
	}
	_, err = orders.PlaceOrder(ctx, user.ID, malformed)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, 400, domainErr.HTTPStatus)
	assert.Contains(t, domainErr.Fields, "items[0].pizza.base_id")
	assert.Contains(t, domainErr.Fields, "items[0].price")
}

func TestPostgresCatalogEditKeepsStock(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	bases := store.Repositories().Catalog.Kind(domain.KindBase)

	item := &domain.CatalogItem{Name: "Thin", Price: 2, Stock: 20, Threshold: 1}
	require.NoError(t, bases.Create(ctx, item))

	stale, err := bases.GetByID(ctx, item.ID)
	require.NoError(t, err)
	_, err = bases.AdjustStock(ctx, item.ID, -2)
	require.NoError(t, err)

	stale.Price = 2.5
	require.NoError(t, bases.Update(ctx, stale))
	assert.Equal(t, 18, stale.Stock)

	catalog := service.NewCatalogService(store)
	restocked, err := catalog.Update(ctx, domain.KindBase, item.ID, service.CatalogInput{Stock: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, restocked.Stock)
	assert.Equal(t, 2.5, restocked.Price)
}

func ptr[T any](v T) *T { return &v }

func TestPostgresMalformedIDIsNotFound(t *testing.T) {
	store := setupStore(t)
	_, err := store.Repositories().Orders.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
