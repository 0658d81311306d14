package domain

import "time"

// OrderStatus enumerates the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusReceived       OrderStatus = "received"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusCooking        OrderStatus = "cooking"
	OrderStatusQualityCheck   OrderStatus = "quality_check"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending: {}, OrderStatusReceived: {}, OrderStatusPreparing: {}, OrderStatusCooking: {},
	OrderStatusQualityCheck: {}, OrderStatusPacked: {}, OrderStatusOutForDelivery: {},
	OrderStatusDelivered: {}, OrderStatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatuses[s]
	return ok
}

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentStatus tracks the mocked gateway outcome.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Order is a placed checkout.
type Order struct {
	ID                    string
	UserID                string
	Status                OrderStatus
	TotalAmount           float64
	FinalAmount           float64
	PaymentID             *string
	PaymentStatus         PaymentStatus
	DeliveryAddress       string
	ContactNumber         string
	PromotionID           *string
	PromotionCode         *string
	PromotionDiscount     float64
	LoyaltyPointsUsed     int
	LoyaltyDiscount       float64
	EstimatedDeliveryTime *time.Time
	ActualDeliveryTime    *time.Time
	TrackingNote          string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// RecomputeFinal sets FinalAmount from the total and both discounts, never below zero.
func (o *Order) RecomputeFinal() {
	final := ToCents(o.TotalAmount) - ToCents(o.PromotionDiscount) - ToCents(o.LoyaltyDiscount)
	if final < 0 {
		final = 0
	}
	o.FinalAmount = FromCents(final)
}

// Payable reports whether the order can still be paid or discounted.
func (o *Order) Payable() bool {
	return o.PaymentStatus != PaymentCompleted && o.Status != OrderStatusCancelled
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID        string
	OrderID   string
	Pizza     PizzaSnapshot
	Price     float64
	Quantity  int
	CreatedAt time.Time
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() float64 {
	return FromCents(ToCents(i.Price) * int64(i.Quantity))
}

// LowStockItem flags a component whose stock fell to or below its threshold.
type LowStockItem struct {
	ID        string
	Kind      CatalogKind
	Name      string
	Stock     int
	Threshold int
}
