package domain

import "time"

// CatalogKind enumerates the purchasable pizza component families.
type CatalogKind string

const (
	KindBase    CatalogKind = "base"
	KindSauce   CatalogKind = "sauce"
	KindCheese  CatalogKind = "cheese"
	KindTopping CatalogKind = "topping"
)

// CatalogKinds lists every component kind in display order.
var CatalogKinds = []CatalogKind{KindBase, KindSauce, KindCheese, KindTopping}

// Valid reports whether k is a known component kind.
func (k CatalogKind) Valid() bool {
	switch k {
	case KindBase, KindSauce, KindCheese, KindTopping:
		return true
	}
	return false
}

// ParseCatalogKind accepts singular or plural names ("base", "bases", "toppings").
func ParseCatalogKind(raw string) (CatalogKind, bool) {
	switch raw {
	case "base", "bases":
		return KindBase, true
	case "sauce", "sauces":
		return KindSauce, true
	case "cheese", "cheeses":
		return KindCheese, true
	case "topping", "toppings":
		return KindTopping, true
	}
	return "", false
}

// CatalogItem is a base, sauce, cheese or topping with stock bookkeeping.
type CatalogItem struct {
	ID           string
	Kind         CatalogKind
	Name         string
	Description  string
	Price        float64
	ImageURL     string
	Stock        int
	Threshold    int
	IsVegetarian bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLowStock reports whether the item sits at or below its restock threshold.
func (c CatalogItem) IsLowStock() bool {
	return c.Stock <= c.Threshold
}

// InStock reports whether at least one unit is available.
func (c CatalogItem) InStock() bool {
	return c.Stock > 0
}
