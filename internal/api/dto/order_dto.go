package dto

import (
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/service"
)

// PizzaConfigRequest is the wire form of a customised pizza.
type PizzaConfigRequest struct {
	BaseID     string   `json:"base_id" validate:"required,uuid"`
	SauceID    string   `json:"sauce_id" validate:"required,uuid"`
	CheeseID   string   `json:"cheese_id" validate:"required,uuid"`
	ToppingIDs []string `json:"topping_ids" validate:"omitempty,dive,required,uuid"`
	Size       string   `json:"size" validate:"omitempty,oneof=small medium large"`
}

func (p PizzaConfigRequest) Config() domain.PizzaConfig {
	return domain.PizzaConfig{
		BaseID:     p.BaseID,
		SauceID:    p.SauceID,
		CheeseID:   p.CheeseID,
		ToppingIDs: append([]string(nil), p.ToppingIDs...),
		Size:       domain.PizzaSize(p.Size),
	}
}

// OrderItemRequest is one cart line.
type OrderItemRequest struct {
	Pizza    PizzaConfigRequest `json:"pizza"`
	Price    float64            `json:"price" validate:"gt=0"`
	Quantity int                `json:"quantity" validate:"gte=1"`
}

// CreateOrderRequest payload for POST /api/orders.
type CreateOrderRequest struct {
	DeliveryAddress string             `json:"delivery_address" validate:"required,min=10,max=500"`
	ContactNumber   string             `json:"contact_number" validate:"required,min=10,max=30"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r CreateOrderRequest) Input() service.PlaceOrderInput {
	input := service.PlaceOrderInput{
		DeliveryAddress: r.DeliveryAddress,
		ContactNumber:   r.ContactNumber,
		Items:           make([]service.OrderLineInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		input.Items = append(input.Items, service.OrderLineInput{
			Pizza:    item.Pizza.Config(),
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return input
}

// UpdateOrderStatusRequest payload for admin status changes.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

// UpdateTrackingRequest payload for admin tracking changes.
type UpdateTrackingRequest struct {
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
	Note                  *string    `json:"note" validate:"omitempty,max=500"`
}

// OrderResponse is an order with its lines.
type OrderResponse struct {
	ID                    string              `json:"id"`
	UserID                string              `json:"user_id"`
	Status                string              `json:"status"`
	TotalAmount           float64             `json:"total_amount"`
	FinalAmount           float64             `json:"final_amount"`
	PaymentID             *string             `json:"payment_id"`
	PaymentStatus         string              `json:"payment_status"`
	DeliveryAddress       string              `json:"delivery_address"`
	ContactNumber         string              `json:"contact_number"`
	PromotionCode         *string             `json:"promotion_code"`
	PromotionDiscount     float64             `json:"promotion_discount"`
	LoyaltyPointsUsed     int                 `json:"loyalty_points_used"`
	LoyaltyDiscount       float64             `json:"loyalty_discount"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time          `json:"actual_delivery_time"`
	TrackingNote          string              `json:"tracking_note,omitempty"`
	Items                 []OrderItemResponse `json:"items,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// OrderItemResponse is one order line with its frozen configuration.
type OrderItemResponse struct {
	ID        string               `json:"id"`
	Pizza     domain.PizzaSnapshot `json:"pizza"`
	Price     float64              `json:"price"`
	Quantity  int                  `json:"quantity"`
	LineTotal float64              `json:"line_total"`
}

// PlaceOrderResponse is returned after checkout.
type PlaceOrderResponse struct {
	Order         OrderResponse          `json:"order"`
	LowStockItems []LowStockItemResponse `json:"low_stock_items"`
}

func Order(o *domain.Order, items []domain.OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:                    o.ID,
		UserID:                o.UserID,
		Status:                string(o.Status),
		TotalAmount:           o.TotalAmount,
		FinalAmount:           o.FinalAmount,
		PaymentID:             o.PaymentID,
		PaymentStatus:         string(o.PaymentStatus),
		DeliveryAddress:       o.DeliveryAddress,
		ContactNumber:         o.ContactNumber,
		PromotionCode:         o.PromotionCode,
		PromotionDiscount:     o.PromotionDiscount,
		LoyaltyPointsUsed:     o.LoyaltyPointsUsed,
		LoyaltyDiscount:       o.LoyaltyDiscount,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		TrackingNote:          o.TrackingNote,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:        item.ID,
			Pizza:     item.Pizza,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return resp
}

func Orders(details []service.OrderDetail) []OrderResponse {
	out := make([]OrderResponse, 0, len(details))
	for _, d := range details {
		out = append(out, Order(d.Order, d.Items))
	}
	return out
}
