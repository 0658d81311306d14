package events

import (
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderCreated        EventType = "order_created"
	EventOrderStatusChanged  EventType = "order_status_changed"
	EventPaymentRecorded     EventType = "payment_recorded"
	EventPromotionApplied    EventType = "promotion_applied"
	EventLoyaltyChanged      EventType = "loyalty_changed"
	EventSubscriptionChanged EventType = "subscription_changed"
	EventLowStock            EventType = "low_stock"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	SubjectID string    `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// OrderCreatedPayload payload.
type OrderCreatedPayload struct {
	FinalAmount float64 `json:"final_amount"`
	ItemCount   int     `json:"item_count"`
}

// OrderStatusChangedPayload payload.
type OrderStatusChangedPayload struct {
	OldStatus domain.OrderStatus `json:"old_status"`
	NewStatus domain.OrderStatus `json:"new_status"`
	Note      string             `json:"note,omitempty"`
}

// PaymentRecordedPayload payload.
type PaymentRecordedPayload struct {
	PaymentID    string               `json:"payment_id"`
	Status       domain.PaymentStatus `json:"status"`
	Amount       float64              `json:"amount"`
	PointsEarned int                  `json:"points_earned"`
}

// PromotionAppliedPayload payload.
type PromotionAppliedPayload struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

// LoyaltyChangedPayload payload. Delta is negative for redemptions.
type LoyaltyChangedPayload struct {
	Delta   int                   `json:"delta"`
	Balance int                   `json:"balance"`
	Tier    domain.MembershipTier `json:"tier"`
	Upgrade bool                  `json:"upgrade"`
}

// SubscriptionChangedPayload payload.
type SubscriptionChangedPayload struct {
	PlanName  string                    `json:"plan_name"`
	OldStatus domain.SubscriptionStatus `json:"old_status,omitempty"`
	NewStatus domain.SubscriptionStatus `json:"new_status"`
}

// LowStockPayload payload.
type LowStockPayload struct {
	Items []domain.LowStockItem `json:"items"`
}
