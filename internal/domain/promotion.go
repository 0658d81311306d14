package domain

import (
	"strings"
	"time"
)

// DiscountType selects how a promotion value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Promotion is a code-based discount with date and usage constraints.
type Promotion struct {
	ID             string
	Code           string
	Description    string
	DiscountType   DiscountType
	DiscountValue  float64
	MinOrderAmount float64
	MaxUses        int
	CurrentUses    int
	StartDate      time.Time
	EndDate        time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeCode canonicalises a promotion code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidFor reports whether the promotion can be used at now for orderAmount.
func (p Promotion) IsValidFor(now time.Time, orderAmount float64) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return false
	}
	if p.CurrentUses >= p.MaxUses {
		return false
	}
	return ToCents(p.MinOrderAmount) <= ToCents(orderAmount)
}

// DiscountFor computes the discount on orderAmount, clamped so the total never goes negative.
func (p Promotion) DiscountFor(orderAmount float64) float64 {
	if orderAmount <= 0 {
		return 0
	}
	var discount float64
	switch p.DiscountType {
	case DiscountPercentage:
		discount = orderAmount * p.DiscountValue / 100
	case DiscountFixed:
		discount = p.DiscountValue
	}
	cents := ToCents(discount)
	if limit := ToCents(orderAmount); cents > limit {
		cents = limit
	}
	if cents < 0 {
		cents = 0
	}
	return FromCents(cents)
}
