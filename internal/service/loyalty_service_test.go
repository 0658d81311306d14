package service

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/config"
	"github.com/slicehouse/pizzeria/internal/domain"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

func TestRedeemFullPolicyChargesRequestedPoints(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	user := seedUser(t, store, "fay", 3000)
	ctx := context.Background()

	orders := NewOrderService(OrderDependencies{Store: store, Now: fixedClock})
	placement, err := orders.PlaceOrder(ctx, user.ID, validOrderInput(f, 1))
	require.NoError(t, err)

	svc := NewLoyaltyService(LoyaltyDependencies{Store: store})
	result, err := svc.Redeem(ctx, user.ID, placement.Order.ID, 3000)
	require.NoError(t, err)

	assert.Equal(t, 250.0, result.Discount, "300 worth of points clamps to the 250 order")
	assert.Equal(t, 3000, result.PointsCharged)
	assert.Equal(t, 0, result.Balance)
	assert.Equal(t, 0.0, result.Order.FinalAmount)

	_, err = svc.Redeem(ctx, user.ID, placement.Order.ID, 10)
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest))
}

func TestRedeemProportionalPolicyChargesConvertedPoints(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	user := seedUser(t, store, "gus", 3000)
	ctx := context.Background()

	orders := NewOrderService(OrderDependencies{Store: store, Now: fixedClock})
	placement, err := orders.PlaceOrder(ctx, user.ID, validOrderInput(f, 1))
	require.NoError(t, err)

	svc := NewLoyaltyService(LoyaltyDependencies{Store: store, Policy: config.RedeemPolicyProportional})
	result, err := svc.Redeem(ctx, user.ID, placement.Order.ID, 3000)
	require.NoError(t, err)

	assert.Equal(t, 3000, result.PointsRequested)
	assert.Equal(t, 2500, result.PointsCharged)
	assert.Equal(t, 500, result.Balance)
}

func TestRedeemRejectsInsufficientBalance(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	user := seedUser(t, store, "hal", 50)
	ctx := context.Background()

	placement, err := NewOrderService(OrderDependencies{Store: store}).PlaceOrder(ctx, user.ID, validOrderInput(f, 1))
	require.NoError(t, err)

	svc := NewLoyaltyService(LoyaltyDependencies{Store: store})
	_, err = svc.Redeem(ctx, user.ID, placement.Order.ID, 100)
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	_, err = svc.Redeem(ctx, user.ID, placement.Order.ID, 0)
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	summary, err := svc.Summary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.Points)
	assert.Equal(t, 5.0, summary.Value)
}

func TestConcurrentRedemptionsNeverOverspend(t *testing.T) {
	store := newStore(t)
	f := seedCatalog(t, store)
	user := seedUser(t, store, "ivy", 100)
	ctx := context.Background()

	orders := NewOrderService(OrderDependencies{Store: store})
	var orderIDs []string
	for i := 0; i < 5; i++ {
		placement, err := orders.PlaceOrder(ctx, user.ID, validOrderInput(f, 1))
		require.NoError(t, err)
		orderIDs = append(orderIDs, placement.Order.ID)
	}

	svc := NewLoyaltyService(LoyaltyDependencies{Store: store})
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, id := range orderIDs {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			if _, err := svc.Redeem(ctx, user.ID, orderID, 100); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	got, err := store.Repositories().Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LoyaltyPoints)
}

func TestLoyaltySummaryNextTier(t *testing.T) {
	store := newStore(t)
	user := seedUser(t, store, "jo", 600)
	summary, err := NewLoyaltyService(LoyaltyDependencies{Store: store}).Summary(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierBronze, summary.Tier)
	assert.Equal(t, domain.TierGold, summary.NextTier)
	assert.Equal(t, 900, summary.PointsToNext)
}
