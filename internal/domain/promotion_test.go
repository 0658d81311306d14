package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validPromotion(now time.Time) Promotion {
	return Promotion{
		Code:           "SPRING20",
		DiscountType:   DiscountPercentage,
		DiscountValue:  20,
		MinOrderAmount: 50,
		MaxUses:        10,
		CurrentUses:    3,
		StartDate:      now.Add(-24 * time.Hour),
		EndDate:        now.Add(24 * time.Hour),
		IsActive:       true,
	}
}

func TestPromotionIsValidFor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(p *Promotion)
		amount float64
		want   bool
	}{
		{name: "all conditions hold", mutate: func(*Promotion) {}, amount: 100, want: true},
		{name: "minimum amount is inclusive", mutate: func(*Promotion) {}, amount: 50, want: true},
		{name: "inactive", mutate: func(p *Promotion) { p.IsActive = false }, amount: 100},
		{name: "not started", mutate: func(p *Promotion) { p.StartDate = now.Add(time.Minute) }, amount: 100},
		{name: "ended", mutate: func(p *Promotion) { p.EndDate = now.Add(-time.Minute) }, amount: 100},
		{name: "usage cap reached", mutate: func(p *Promotion) { p.CurrentUses = p.MaxUses }, amount: 100},
		{name: "below minimum", mutate: func(*Promotion) {}, amount: 49.99},
		{name: "start boundary", mutate: func(p *Promotion) { p.StartDate = now }, amount: 100, want: true},
		{name: "end boundary", mutate: func(p *Promotion) { p.EndDate = now }, amount: 100, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPromotion(now)
			tt.mutate(&p)
			assert.Equal(t, tt.want, p.IsValidFor(now, tt.amount))
		})
	}
}

func TestPromotionDiscountFor(t *testing.T) {
	percent := Promotion{DiscountType: DiscountPercentage, DiscountValue: 20}
	assert.Equal(t, 20.0, percent.DiscountFor(100))

	fixed := Promotion{DiscountType: DiscountFixed, DiscountValue: 500}
	assert.Equal(t, 100.0, fixed.DiscountFor(100))

	smallFixed := Promotion{DiscountType: DiscountFixed, DiscountValue: 15}
	assert.Equal(t, 15.0, smallFixed.DiscountFor(100))

	assert.Equal(t, 3.33, Promotion{DiscountType: DiscountPercentage, DiscountValue: 10}.DiscountFor(33.3))
	assert.Zero(t, percent.DiscountFor(0))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WELCOME10", NormalizeCode("  welcome10 "))
}
