package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPizzaConfigComponentsAndSignature(t *testing.T) {
	cfg := PizzaConfig{BaseID: "b1", SauceID: "s1", CheeseID: "c1", ToppingIDs: []string{"t2", "t1"}}

	refs := cfg.Components()
	assert.Len(t, refs, 5)
	assert.Equal(t, ComponentRef{Kind: KindBase, ID: "b1"}, refs[0])
	assert.Equal(t, ComponentRef{Kind: KindTopping, ID: "t1"}, refs[4])

	reordered := PizzaConfig{BaseID: "b1", SauceID: "s1", CheeseID: "c1", ToppingIDs: []string{"t1", "t2"}}
	assert.Equal(t, cfg.Signature(), reordered.Signature())
	assert.Equal(t, []string{"t2", "t1"}, cfg.ToppingIDs, "signature must not reorder the receiver")
}

func TestOrderRecomputeFinal(t *testing.T) {
	o := Order{TotalAmount: 100, PromotionDiscount: 20, LoyaltyDiscount: 5}
	o.RecomputeFinal()
	assert.Equal(t, 75.0, o.FinalAmount)

	o.LoyaltyDiscount = 90
	o.RecomputeFinal()
	assert.Zero(t, o.FinalAmount)
}

func TestParseCatalogKind(t *testing.T) {
	kind, ok := ParseCatalogKind("toppings")
	assert.True(t, ok)
	assert.Equal(t, KindTopping, kind)

	_, ok = ParseCatalogKind("crusts")
	assert.False(t, ok)
}
