package service

import (
	"context"
	"sort"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository"
)

const defaultRecommendationLimit = 5

// RecommendationService suggests toppings and pizzas from a user's order history.
type RecommendationService struct {
	store repository.UnitOfWork
}

// ToppingSuggestion is a topping with how many times the user ordered it.
type ToppingSuggestion struct {
	Topping domain.CatalogItem
	Count   int
}

// ConfigSuggestion is a previously ordered configuration and its frequency.
type ConfigSuggestion struct {
	Pizza domain.PizzaSnapshot
	Count int
}

// Recommendations is the result of Recommend. Personalized is false when the user has no
// usable history and the suggestions are the in-stock catalog.
type Recommendations struct {
	Toppings     []ToppingSuggestion
	Configs      []ConfigSuggestion
	Personalized bool
}

func NewRecommendationService(store repository.UnitOfWork) *RecommendationService {
	return &RecommendationService{store: store}
}

// Recommend ranks toppings and full configurations by how often the user ordered them.
// Anything currently out of stock is left out.
func (s *RecommendationService) Recommend(ctx context.Context, userID string, limit int) (*Recommendations, error) {
	if limit <= 0 {
		limit = defaultRecommendationLimit
	}
	repos := s.store.Repositories()

	available := map[domain.CatalogKind]map[string]domain.CatalogItem{}
	for _, kind := range domain.CatalogKinds {
		items, err := repos.Catalog.Kind(kind).List(ctx, repository.CatalogFilter{InStockOnly: true})
		if err != nil {
			return nil, err
		}
		byID := make(map[string]domain.CatalogItem, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}
		available[kind] = byID
	}

	history, err := repos.Orders.ListItemsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	toppingCounts := map[string]int{}
	configCounts := map[string]int{}
	configSnapshots := map[string]domain.PizzaSnapshot{}
	for _, item := range history {
		for _, t := range item.Pizza.Toppings {
			toppingCounts[t.ID] += item.Quantity
		}
		sig := item.Pizza.Config().Signature()
		configCounts[sig] += item.Quantity
		if _, seen := configSnapshots[sig]; !seen {
			configSnapshots[sig] = item.Pizza
		}
	}

	result := &Recommendations{}
	for id, count := range toppingCounts {
		if topping, ok := available[domain.KindTopping][id]; ok {
			result.Toppings = append(result.Toppings, ToppingSuggestion{Topping: topping, Count: count})
		}
	}
	sort.Slice(result.Toppings, func(i, j int) bool {
		a, b := result.Toppings[i], result.Toppings[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Topping.Name < b.Topping.Name
	})
	if len(result.Toppings) > limit {
		result.Toppings = result.Toppings[:limit]
	}

	signatures := make([]string, 0, len(configCounts))
	for sig := range configCounts {
		if configAvailable(configSnapshots[sig].Config(), available) {
			signatures = append(signatures, sig)
		}
	}
	sort.Slice(signatures, func(i, j int) bool {
		if configCounts[signatures[i]] != configCounts[signatures[j]] {
			return configCounts[signatures[i]] > configCounts[signatures[j]]
		}
		return signatures[i] < signatures[j]
	})
	for _, sig := range signatures {
		if len(result.Configs) == limit {
			break
		}
		result.Configs = append(result.Configs, ConfigSuggestion{Pizza: configSnapshots[sig].Clone(), Count: configCounts[sig]})
	}

	if len(result.Toppings) > 0 || len(result.Configs) > 0 {
		result.Personalized = true
		return result, nil
	}

	fallback := make([]domain.CatalogItem, 0, len(available[domain.KindTopping]))
	for _, item := range available[domain.KindTopping] {
		fallback = append(fallback, item)
	}
	sort.Slice(fallback, func(i, j int) bool { return fallback[i].Name < fallback[j].Name })
	for _, item := range fallback {
		if len(result.Toppings) == limit {
			break
		}
		result.Toppings = append(result.Toppings, ToppingSuggestion{Topping: item})
	}
	return result, nil
}

func configAvailable(cfg domain.PizzaConfig, available map[domain.CatalogKind]map[string]domain.CatalogItem) bool {
	for _, ref := range cfg.Components() {
		if _, ok := available[ref.Kind][ref.ID]; !ok {
			return false
		}
	}
	return true
}
