package dto

import (
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/service"
)

// ValidatePromotionRequest checks a code against an amount.
type ValidatePromotionRequest struct {
	Code        string  `json:"code" validate:"required"`
	OrderAmount float64 `json:"order_amount" validate:"gte=0"`
}

// ApplyPromotionRequest attaches a code to an order.
type ApplyPromotionRequest struct {
	Code string `json:"code" validate:"required"`
}

// PromotionRequest creates or edits a promotion. Omitted fields are left unchanged on edit.
type PromotionRequest struct {
	Code           *string    `json:"code" validate:"omitempty,min=3,max=50"`
	Description    *string    `json:"description" validate:"omitempty,max=500"`
	DiscountType   *string    `json:"discount_type" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue  *float64   `json:"discount_value" validate:"omitempty,gt=0"`
	MinOrderAmount *float64   `json:"min_order_amount" validate:"omitempty,gte=0"`
	MaxUses        *int       `json:"max_uses" validate:"omitempty,gte=1"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	IsActive       *bool      `json:"is_active"`
}

func (r PromotionRequest) Input() service.PromotionInput {
	input := service.PromotionInput{
		Code:           r.Code,
		Description:    r.Description,
		DiscountValue:  r.DiscountValue,
		MinOrderAmount: r.MinOrderAmount,
		MaxUses:        r.MaxUses,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		IsActive:       r.IsActive,
	}
	if r.DiscountType != nil {
		kind := domain.DiscountType(*r.DiscountType)
		input.DiscountType = &kind
	}
	return input
}

// PromotionResponse is a promotion as shown to clients.
type PromotionResponse struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Description    string    `json:"description"`
	DiscountType   string    `json:"discount_type"`
	DiscountValue  float64   `json:"discount_value"`
	MinOrderAmount float64   `json:"min_order_amount"`
	MaxUses        int       `json:"max_uses"`
	CurrentUses    int       `json:"current_uses"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	IsActive       bool      `json:"is_active"`
}

// PromotionQuoteResponse is the result of validating a code.
type PromotionQuoteResponse struct {
	Promotion   PromotionResponse `json:"promotion"`
	Discount    float64           `json:"discount"`
	FinalAmount float64           `json:"final_amount"`
}

func Promotion(p domain.Promotion) PromotionResponse {
	return PromotionResponse{
		ID:             p.ID,
		Code:           p.Code,
		Description:    p.Description,
		DiscountType:   string(p.DiscountType),
		DiscountValue:  p.DiscountValue,
		MinOrderAmount: p.MinOrderAmount,
		MaxUses:        p.MaxUses,
		CurrentUses:    p.CurrentUses,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		IsActive:       p.IsActive,
	}
}

func Promotions(items []domain.Promotion) []PromotionResponse {
	out := make([]PromotionResponse, 0, len(items))
	for _, p := range items {
		out = append(out, Promotion(p))
	}
	return out
}

// ProcessPaymentRequest confirms a payment for an order.
type ProcessPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"max=100"`
}

// PaymentResponse reports a completed payment.
type PaymentResponse struct {
	Order        OrderResponse `json:"order"`
	PointsEarned int           `json:"points_earned"`
	Balance      int           `json:"loyalty_points"`
	Tier         string        `json:"membership_tier"`
	TierUpgraded bool          `json:"tier_upgraded"`
}

func Payment(r *service.PaymentResult) PaymentResponse {
	return PaymentResponse{
		Order:        Order(r.Order, nil),
		PointsEarned: r.PointsEarned,
		Balance:      r.Balance,
		Tier:         string(r.Tier),
		TierUpgraded: r.TierUpgraded,
	}
}

// RedeemPointsRequest trades points for an order discount.
type RedeemPointsRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Points  int    `json:"points" validate:"required,gt=0"`
}

// LoyaltyResponse summarises a loyalty balance.
type LoyaltyResponse struct {
	Points        int     `json:"points"`
	Tier          string  `json:"tier"`
	PointValue    float64 `json:"point_value"`
	Value         float64 `json:"value"`
	EarnPerAmount float64 `json:"earn_per_amount"`
	NextTier      string  `json:"next_tier,omitempty"`
	PointsToNext  int     `json:"points_to_next_tier,omitempty"`
}

func Loyalty(s *service.LoyaltySummary) LoyaltyResponse {
	return LoyaltyResponse{
		Points:        s.Points,
		Tier:          string(s.Tier),
		PointValue:    s.PointValue,
		Value:         s.Value,
		EarnPerAmount: s.EarnPerAmount,
		NextTier:      string(s.NextTier),
		PointsToNext:  s.PointsToNext,
	}
}

// RedemptionResponse reports the effect of a redemption.
type RedemptionResponse struct {
	Order           OrderResponse `json:"order"`
	PointsRequested int           `json:"points_requested"`
	PointsCharged   int           `json:"points_charged"`
	Discount        float64       `json:"discount"`
	Balance         int           `json:"loyalty_points"`
}

func Redemption(r *service.Redemption) RedemptionResponse {
	return RedemptionResponse{
		Order:           Order(r.Order, nil),
		PointsRequested: r.PointsRequested,
		PointsCharged:   r.PointsCharged,
		Discount:        r.Discount,
		Balance:         r.Balance,
	}
}
