package dto

import (
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/service"
)

// CreatePlanRequest payload for admin plan creation.
type CreatePlanRequest struct {
	Name         string             `json:"name" validate:"required,max=100"`
	Description  string             `json:"description" validate:"max=500"`
	Price        float64            `json:"price" validate:"gt=0"`
	IntervalDays int                `json:"interval_days" validate:"gte=1"`
	Pizza        PizzaConfigRequest `json:"pizza"`
	IsActive     *bool              `json:"is_active"`
}

func (r CreatePlanRequest) Input() service.PlanInput {
	return service.PlanInput{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		IntervalDays: r.IntervalDays,
		Pizza:        r.Pizza.Config(),
		IsActive:     r.IsActive,
	}
}

// SubscribeRequest payload for POST /api/subscribe.
type SubscribeRequest struct {
	PlanID          string `json:"plan_id" validate:"required"`
	DeliveryAddress string `json:"delivery_address" validate:"required,min=10,max=500"`
}

// PlanResponse is a subscription plan.
type PlanResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Price        float64            `json:"price"`
	IntervalDays int                `json:"interval_days"`
	Pizza        PizzaConfigRequest `json:"pizza"`
	IsActive     bool               `json:"is_active"`
}

// SubscriptionResponse is a user subscription with its plan.
type SubscriptionResponse struct {
	ID               string        `json:"id"`
	Status           string        `json:"status"`
	StartDate        time.Time     `json:"start_date"`
	NextDeliveryDate time.Time     `json:"next_delivery_date"`
	DeliveryAddress  string        `json:"delivery_address"`
	Plan             *PlanResponse `json:"plan,omitempty"`
}

func Plan(p domain.SubscriptionPlan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		IntervalDays: p.IntervalDays,
		Pizza: PizzaConfigRequest{
			BaseID:     p.Pizza.BaseID,
			SauceID:    p.Pizza.SauceID,
			CheeseID:   p.Pizza.CheeseID,
			ToppingIDs: p.Pizza.ToppingIDs,
			Size:       string(p.Pizza.Size),
		},
		IsActive: p.IsActive,
	}
}

func Plans(plans []domain.SubscriptionPlan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, Plan(p))
	}
	return out
}

func Subscription(d service.SubscriptionDetail) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:               d.Subscription.ID,
		Status:           string(d.Subscription.Status),
		StartDate:        d.Subscription.StartDate,
		NextDeliveryDate: d.Subscription.NextDeliveryDate,
		DeliveryAddress:  d.Subscription.DeliveryAddress,
	}
	if d.Plan != nil {
		plan := Plan(*d.Plan)
		resp.Plan = &plan
	}
	return resp
}

func Subscriptions(details []service.SubscriptionDetail) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(details))
	for _, d := range details {
		out = append(out, Subscription(d))
	}
	return out
}

// RecommendationsResponse lists suggested toppings and configurations.
type RecommendationsResponse struct {
	Toppings     []ToppingSuggestionResponse `json:"toppings"`
	Pizzas       []PizzaSuggestionResponse   `json:"pizzas"`
	Personalized bool                        `json:"personalized"`
}

type ToppingSuggestionResponse struct {
	Topping CatalogItemResponse `json:"topping"`
	Count   int                 `json:"times_ordered"`
}

type PizzaSuggestionResponse struct {
	Pizza domain.PizzaSnapshot `json:"pizza"`
	Count int                  `json:"times_ordered"`
}

func Recommendations(r *service.Recommendations) RecommendationsResponse {
	resp := RecommendationsResponse{
		Toppings:     make([]ToppingSuggestionResponse, 0, len(r.Toppings)),
		Pizzas:       make([]PizzaSuggestionResponse, 0, len(r.Configs)),
		Personalized: r.Personalized,
	}
	for _, t := range r.Toppings {
		resp.Toppings = append(resp.Toppings, ToppingSuggestionResponse{Topping: CatalogItem(t.Topping), Count: t.Count})
	}
	for _, c := range r.Configs {
		resp.Pizzas = append(resp.Pizzas, PizzaSuggestionResponse{Pizza: c.Pizza, Count: c.Count})
	}
	return resp
}
