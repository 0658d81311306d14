package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarnedPoints(t *testing.T) {
	assert.Equal(t, 9, EarnedPoints(97))
	assert.Equal(t, 10, EarnedPoints(100))
	assert.Equal(t, 0, EarnedPoints(9.99))
	assert.Equal(t, 0, EarnedPoints(-20))
	assert.Equal(t, 3, EarnedPoints(0.1+0.2+29.7))
}

func TestRedemptionDiscount(t *testing.T) {
	assert.Equal(t, 5.0, RedemptionDiscount(50, 100))
	assert.Equal(t, 12.5, RedemptionDiscount(500, 12.5))
	assert.Zero(t, RedemptionDiscount(10, 0))
	assert.Equal(t, 10.0, PointsValue(100))
}

func TestPointsForDiscount(t *testing.T) {
	assert.Equal(t, 125, PointsForDiscount(12.5))
	assert.Equal(t, 126, PointsForDiscount(12.51))
	assert.Equal(t, 0, PointsForDiscount(0))
}

func TestTierForPoints(t *testing.T) {
	assert.Equal(t, TierBronze, TierForPoints(0))
	assert.Equal(t, TierSilver, TierForPoints(500))
	assert.Equal(t, TierGold, TierForPoints(1500))
	assert.Equal(t, TierPlatinum, TierForPoints(7000))
	assert.Equal(t, TierGold, HigherTier(TierGold, TierSilver))
	assert.Equal(t, TierPlatinum, HigherTier(TierBronze, TierPlatinum))
}

func TestNextTier(t *testing.T) {
	tier, needed := NextTier(120)
	assert.Equal(t, TierSilver, tier)
	assert.Equal(t, 380, needed)

	tier, needed = NextTier(1500)
	assert.Equal(t, TierPlatinum, tier)
	assert.Equal(t, 3500, needed)

	tier, needed = NextTier(5000)
	assert.Empty(t, tier)
	assert.Zero(t, needed)
}
