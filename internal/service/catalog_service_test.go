package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

func TestCatalogHidesOutOfStockFromCustomers(t *testing.T) {
	store := newStore(t)
	svc := NewCatalogService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.KindTopping, CatalogInput{Name: ptr("Anchovy"), Price: ptr(1.5), Stock: ptr(0), IsVegetarian: ptr(false)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.KindTopping, CatalogInput{Name: ptr("Pepper"), Price: ptr(1.0), Stock: ptr(4), IsVegetarian: ptr(true)})
	require.NoError(t, err)

	visible, err := svc.List(ctx, domain.KindTopping, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Pepper", visible[0].Name)
	assert.True(t, visible[0].IsVegetarian)

	all, err := svc.List(ctx, domain.KindTopping, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, low, 2, "default threshold is 10")
}

func TestCatalogAdminEdits(t *testing.T) {
	store := newStore(t)
	svc := NewCatalogService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.KindBase, CatalogInput{Price: ptr(2.0)})
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	item, err := svc.Create(ctx, domain.KindBase, CatalogInput{Name: ptr("Deep Dish"), Price: ptr(3.0), Stock: ptr(40), Threshold: ptr(5), IsVegetarian: ptr(true)})
	require.NoError(t, err)
	assert.False(t, item.IsVegetarian, "only toppings carry the vegetarian flag")

	updated, err := svc.Update(ctx, domain.KindBase, item.ID, CatalogInput{Stock: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, "Deep Dish", updated.Name)

	_, err = svc.Update(ctx, domain.KindBase, item.ID, CatalogInput{Stock: ptr(-1)})
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	require.NoError(t, svc.Delete(ctx, domain.KindBase, item.ID))
	err = svc.Delete(ctx, domain.KindBase, item.ID)
	assert.True(t, apperrors.IsStatus(err, http.StatusNotFound))

	_, err = svc.List(ctx, domain.CatalogKind("crust"), true)
	assert.True(t, apperrors.IsStatus(err, http.StatusNotFound))
}

// interleavingStore runs hook right after a catalog row is read for update, standing in for
// an order decrement that lands between the admin's read and write.
type interleavingStore struct {
	repository.UnitOfWork
	hook func(ctx context.Context, repos repository.Repositories, id string)
}

func (s interleavingStore) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return s.UnitOfWork.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		wrapped := repos
		wrapped.Catalog = interleavingCatalog{Catalog: repos.Catalog, repos: repos, hook: s.hook}
		return fn(ctx, wrapped)
	})
}

type interleavingCatalog struct {
	repository.Catalog
	repos repository.Repositories
	hook  func(ctx context.Context, repos repository.Repositories, id string)
}

func (c interleavingCatalog) Kind(kind domain.CatalogKind) repository.CatalogRepository {
	return interleavingRepo{CatalogRepository: c.Catalog.Kind(kind), catalog: c}
}

type interleavingRepo struct {
	repository.CatalogRepository
	catalog interleavingCatalog
}

func (r interleavingRepo) GetForUpdate(ctx context.Context, id string) (*domain.CatalogItem, error) {
	item, err := r.CatalogRepository.GetForUpdate(ctx, id)
	if err == nil && r.catalog.hook != nil {
		r.catalog.hook(ctx, r.catalog.repos, id)
	}
	return item, err
}

func TestCatalogEditDoesNotOverwriteStockDecrement(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	ctx := context.Background()

	svc := NewCatalogService(interleavingStore{
		UnitOfWork: store,
		hook: func(ctx context.Context, repos repository.Repositories, id string) {
			_, err := repos.Catalog.Kind(domain.KindBase).AdjustStock(ctx, id, -2)
			require.NoError(t, err)
		},
	})

	updated, err := svc.Update(ctx, domain.KindBase, f.base.ID, CatalogInput{Price: ptr(4.25)})
	require.NoError(t, err)
	assert.Equal(t, 4.25, updated.Price)
	assert.Equal(t, f.base.Stock-2, updated.Stock)
	assert.Equal(t, f.base.Stock-2, stockOf(t, store, domain.KindBase, f.base.ID))
}

func TestCatalogStockEditAfterOrders(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	ctx := context.Background()
	user := seedUser(t, store, "olga", 0)

	orders := NewOrderService(OrderDependencies{Store: store, Now: fixedClock})
	_, err := orders.PlaceOrder(ctx, user.ID, validOrderInput(f, 2))
	require.NoError(t, err)

	svc := NewCatalogService(store)
	renamed, err := svc.Update(ctx, domain.KindBase, f.base.ID, CatalogInput{Name: ptr("Sourdough")})
	require.NoError(t, err)
	assert.Equal(t, f.base.Stock-2, renamed.Stock)

	restocked, err := svc.Update(ctx, domain.KindBase, f.base.ID, CatalogInput{Stock: ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, 50, restocked.Stock)
	assert.Equal(t, "Sourdough", restocked.Name)
	assert.Equal(t, 50, stockOf(t, store, domain.KindBase, f.base.ID))
}
