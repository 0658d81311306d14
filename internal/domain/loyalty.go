package domain

const (
	// CentsPerPoint is the redemption value of one loyalty point (0.1 currency units).
	CentsPerPoint = 10
	// CentsPerEarnedPoint is the spend that earns one point (10 currency units).
	CentsPerEarnedPoint = 1000
)

var tierThresholds = []struct {
	tier   MembershipTier
	points int
}{
	{TierPlatinum, 5000},
	{TierGold, 1500},
	{TierSilver, 500},
}

// EarnedPoints returns floor(amountPaid / 10).
func EarnedPoints(amountPaid float64) int {
	cents := ToCents(amountPaid)
	if cents <= 0 {
		return 0
	}
	return int(cents / CentsPerEarnedPoint)
}

// PointsValue returns the currency value of points.
func PointsValue(points int) float64 {
	return FromCents(int64(points) * CentsPerPoint)
}

// RedemptionDiscount returns the discount for points, clamped to the remaining amount.
func RedemptionDiscount(points int, remaining float64) float64 {
	value := int64(points) * CentsPerPoint
	if limit := ToCents(remaining); value > limit {
		value = limit
	}
	if value < 0 {
		value = 0
	}
	return FromCents(value)
}

// PointsForDiscount returns the fewest points worth at least discount.
func PointsForDiscount(discount float64) int {
	cents := ToCents(discount)
	return int((cents + CentsPerPoint - 1) / CentsPerPoint)
}

// TierForPoints maps a balance to a membership tier.
func TierForPoints(points int) MembershipTier {
	for _, t := range tierThresholds {
		if points >= t.points {
			return t.tier
		}
	}
	return TierBronze
}

// HigherTier returns whichever tier ranks higher.
func HigherTier(a, b MembershipTier) MembershipTier {
	if tierRank(b) > tierRank(a) {
		return b
	}
	return a
}

func tierRank(t MembershipTier) int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	}
	return 0
}

// NextTier returns the next tier above the balance and the points still needed to reach it.
// It returns an empty tier at the top of the ladder.
func NextTier(points int) (MembershipTier, int) {
	var next MembershipTier
	needed := 0
	for _, t := range tierThresholds {
		if points < t.points {
			next, needed = t.tier, t.points-points
		}
	}
	return next, needed
}
