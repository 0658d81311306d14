package domain

import "time"

// SubscriptionStatus enumerates the recurring plan lifecycle.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// SubscriptionAction is a customer-initiated lifecycle change.
type SubscriptionAction string

const (
	ActionPause  SubscriptionAction = "pause"
	ActionResume SubscriptionAction = "resume"
	ActionCancel SubscriptionAction = "cancel"
)

var subscriptionTransitions = map[SubscriptionAction]struct {
	from []SubscriptionStatus
	to   SubscriptionStatus
}{
	ActionPause:  {from: []SubscriptionStatus{SubscriptionActive}, to: SubscriptionPaused},
	ActionResume: {from: []SubscriptionStatus{SubscriptionPaused}, to: SubscriptionActive},
	ActionCancel: {from: []SubscriptionStatus{SubscriptionActive, SubscriptionPaused}, to: SubscriptionCancelled},
}

// NextSubscriptionStatus returns the status reached by applying action to current.
func NextSubscriptionStatus(current SubscriptionStatus, action SubscriptionAction) (SubscriptionStatus, bool) {
	rule, ok := subscriptionTransitions[action]
	if !ok {
		return "", false
	}
	for _, from := range rule.from {
		if from == current {
			return rule.to, true
		}
	}
	return "", false
}

// SubscriptionPlan is a recurring delivery offer.
type SubscriptionPlan struct {
	ID           string
	Name         string
	Description  string
	Price        float64
	IntervalDays int
	Pizza        PizzaConfig
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSubscription links a user to a plan.
type UserSubscription struct {
	ID               string
	UserID           string
	PlanID           string
	Status           SubscriptionStatus
	StartDate        time.Time
	NextDeliveryDate time.Time
	DeliveryAddress  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
