package domain

import (
	"sort"
	"strings"
)

// PizzaSize is an optional size label carried on a configuration.
type PizzaSize string

const (
	SizeSmall  PizzaSize = "small"
	SizeMedium PizzaSize = "medium"
	SizeLarge  PizzaSize = "large"
)

// PizzaConfig is the explicit schema of a customised pizza. Every id references a catalog item.
type PizzaConfig struct {
	BaseID     string
	SauceID    string
	CheeseID   string
	ToppingIDs []string
	Size       PizzaSize
}

// ComponentRef identifies one catalog item used by a configuration.
type ComponentRef struct {
	Kind CatalogKind
	ID   string
}

// Components returns every catalog reference in the configuration, toppings last.
// A topping listed twice appears twice.
func (p PizzaConfig) Components() []ComponentRef {
	refs := make([]ComponentRef, 0, 3+len(p.ToppingIDs))
	refs = append(refs,
		ComponentRef{Kind: KindBase, ID: p.BaseID},
		ComponentRef{Kind: KindSauce, ID: p.SauceID},
		ComponentRef{Kind: KindCheese, ID: p.CheeseID},
	)
	for _, id := range p.ToppingIDs {
		refs = append(refs, ComponentRef{Kind: KindTopping, ID: id})
	}
	return refs
}

// Signature is a stable key for a configuration, independent of topping order.
func (p PizzaConfig) Signature() string {
	toppings := append([]string(nil), p.ToppingIDs...)
	sort.Strings(toppings)
	return strings.Join([]string{p.BaseID, p.SauceID, p.CheeseID, strings.Join(toppings, "+")}, "|")
}

// Clone returns a copy that shares no slices with p.
func (p PizzaConfig) Clone() PizzaConfig {
	p.ToppingIDs = append([]string(nil), p.ToppingIDs...)
	return p
}

// ComponentSnapshot freezes the name and price of a component at order time.
type ComponentSnapshot struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PizzaSnapshot is the denormalized configuration stored on an order item.
type PizzaSnapshot struct {
	Base     ComponentSnapshot   `json:"base"`
	Sauce    ComponentSnapshot   `json:"sauce"`
	Cheese   ComponentSnapshot   `json:"cheese"`
	Toppings []ComponentSnapshot `json:"toppings"`
	Size     PizzaSize           `json:"size,omitempty"`
}

// Config rebuilds the id-only configuration from a snapshot.
func (s PizzaSnapshot) Config() PizzaConfig {
	cfg := PizzaConfig{
		BaseID:   s.Base.ID,
		SauceID:  s.Sauce.ID,
		CheeseID: s.Cheese.ID,
		Size:     s.Size,
	}
	for _, t := range s.Toppings {
		cfg.ToppingIDs = append(cfg.ToppingIDs, t.ID)
	}
	return cfg
}

// Clone returns a copy that shares no slices with s.
func (s PizzaSnapshot) Clone() PizzaSnapshot {
	s.Toppings = append([]ComponentSnapshot(nil), s.Toppings...)
	return s
}
