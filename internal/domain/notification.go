package domain

import "time"

// NotificationType classifies user-facing notifications.
type NotificationType string

const (
	NotificationOrderCreated NotificationType = "order_created"
	NotificationOrderStatus  NotificationType = "order_status"
	NotificationPayment      NotificationType = "payment"
	NotificationPromotion    NotificationType = "promotion"
	NotificationLoyalty      NotificationType = "loyalty"
	NotificationSubscription NotificationType = "subscription"
	NotificationLowStock     NotificationType = "low_stock"
)

// Notification is a persisted message for one user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	Link      *string          `json:"link,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
