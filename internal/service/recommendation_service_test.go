package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/domain"
)

func TestRecommendFromHistory(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	user := seedUser(t, store, "tess", 0)
	ctx := context.Background()
	orders := NewOrderService(OrderDependencies{Store: store})

	_, err := orders.PlaceOrder(ctx, user.ID, validOrderInput(f, 3, f.basil))
	require.NoError(t, err)
	_, err = orders.PlaceOrder(ctx, user.ID, validOrderInput(f, 1, f.olive, f.basil))
	require.NoError(t, err)

	recs, err := NewRecommendationService(store).Recommend(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.True(t, recs.Personalized)

	require.Len(t, recs.Toppings, 2)
	assert.Equal(t, "Basil", recs.Toppings[0].Topping.Name)
	assert.Equal(t, 4, recs.Toppings[0].Count)
	assert.Equal(t, "Olive", recs.Toppings[1].Topping.Name)

	require.Len(t, recs.Configs, 2)
	assert.Equal(t, 3, recs.Configs[0].Count)
	assert.Equal(t, []string{f.basil.ID}, recs.Configs[0].Pizza.Config().ToppingIDs)
}

func TestRecommendSkipsOutOfStockAndFallsBack(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	user := seedUser(t, store, "uma", 0)
	ctx := context.Background()

	_, err := NewOrderService(OrderDependencies{Store: store}).PlaceOrder(ctx, user.ID, validOrderInput(f, 3, f.olive))
	require.NoError(t, err)
	require.Equal(t, 0, stockOf(t, store, domain.KindTopping, f.olive.ID))

	recs, err := NewRecommendationService(store).Recommend(ctx, user.ID, 5)
	require.NoError(t, err)
	assert.False(t, recs.Personalized)
	assert.Empty(t, recs.Configs)
	require.Len(t, recs.Toppings, 1)
	assert.Equal(t, "Basil", recs.Toppings[0].Topping.Name)

	fresh := seedUser(t, store, "vic", 0)
	recs, err = NewRecommendationService(store).Recommend(ctx, fresh.ID, 5)
	require.NoError(t, err)
	assert.False(t, recs.Personalized)
	assert.Len(t, recs.Toppings, 1)
}
