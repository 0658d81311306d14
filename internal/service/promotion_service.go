package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/observability"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// PromotionService validates and applies discount codes.
type PromotionService struct {
	store   repository.UnitOfWork
	metrics *observability.Metrics
	events  publisher
	now     func() time.Time
}

// PromotionDependencies bundles requirements for the promotion service.
type PromotionDependencies struct {
	Store      repository.UnitOfWork
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// PromotionInput carries admin-editable promotion fields. Nil fields are left unchanged on update.
type PromotionInput struct {
	Code           *string
	Description    *string
	DiscountType   *domain.DiscountType
	DiscountValue  *float64
	MinOrderAmount *float64
	MaxUses        *int
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       *bool
}

// PromotionQuote is the result of validating a code against an amount.
type PromotionQuote struct {
	Promotion *domain.Promotion
	Discount  float64
	Final     float64
}

func NewPromotionService(deps PromotionDependencies) *PromotionService {
	return &PromotionService{
		store:   deps.Store,
		metrics: deps.Metrics,
		events:  newPublisher(deps.Dispatcher, deps.Now),
		now:     clock(deps.Now),
	}
}

// Validate checks code against amount without consuming it.
func (s *PromotionService) Validate(ctx context.Context, code string, amount float64) (*PromotionQuote, error) {
	promo, err := s.lookup(ctx, s.store.Repositories().Promotions, code, amount)
	if err != nil {
		return nil, err
	}
	discount := promo.DiscountFor(amount)
	return &PromotionQuote{
		Promotion: promo,
		Discount:  discount,
		Final:     domain.FromCents(domain.ToCents(amount) - domain.ToCents(discount)),
	}, nil
}

// ApplyToOrder attaches code to an unpaid order of the user and consumes one use.
func (s *PromotionService) ApplyToOrder(ctx context.Context, userID, orderID, code string) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if order.UserID != userID {
			return apperrors.NewForbidden("order belongs to another user")
		}
		if !order.Payable() {
			return apperrors.NewConflict("order is already paid or cancelled", nil)
		}
		if order.PromotionID != nil {
			return apperrors.NewConflict("a promotion is already applied to this order", nil)
		}

		promo, err := s.lookup(ctx, repos.Promotions, code, order.TotalAmount)
		if err != nil {
			return err
		}
		if err := repos.Promotions.IncrementUsage(ctx, promo.ID); err != nil {
			if errors.Is(err, repository.ErrUsageLimitReached) {
				return apperrors.NewValidationError("promotion usage limit reached", nil)
			}
			return err
		}

		order.PromotionID = &promo.ID
		order.PromotionCode = &promo.Code
		order.PromotionDiscount = promo.DiscountFor(order.TotalAmount)
		order.RecomputeFinal()
		return repos.Orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PromotionApplied()
	s.events.publish(ctx, events.Event{
		Type:      events.EventPromotionApplied,
		UserID:    userID,
		SubjectID: order.ID,
		Payload: events.PromotionAppliedPayload{
			Code:     *order.PromotionCode,
			Discount: order.PromotionDiscount,
		},
	})
	return order, nil
}

// ListActive returns promotions usable right now.
func (s *PromotionService) ListActive(ctx context.Context) ([]domain.Promotion, error) {
	promos, err := s.store.Repositories().Promotions.List(ctx, repository.PromotionFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := promos[:0]
	for _, p := range promos {
		if p.IsActive && !now.Before(p.StartDate) && !now.After(p.EndDate) && p.CurrentUses < p.MaxUses {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListAll returns every promotion for admins.
func (s *PromotionService) ListAll(ctx context.Context) ([]domain.Promotion, error) {
	return s.store.Repositories().Promotions.List(ctx, repository.PromotionFilter{})
}

func (s *PromotionService) Create(ctx context.Context, input PromotionInput) (*domain.Promotion, error) {
	fields := map[string]string{}
	if input.Code == nil || domain.NormalizeCode(*input.Code) == "" {
		fields["code"] = "code is required"
	}
	if input.DiscountType == nil {
		fields["discount_type"] = "discount_type is required"
	}
	if input.DiscountValue == nil {
		fields["discount_value"] = "discount_value is required"
	}
	if input.StartDate == nil {
		fields["start_date"] = "start_date is required"
	}
	if input.EndDate == nil {
		fields["end_date"] = "end_date is required"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	promo := &domain.Promotion{MaxUses: 100, IsActive: true}
	if err := applyPromotionInput(promo, input); err != nil {
		return nil, err
	}
	if err := s.store.Repositories().Promotions.Create(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("promotion code already exists", map[string]any{"code": promo.Code})
		}
		return nil, err
	}
	return promo, nil
}

func (s *PromotionService) Update(ctx context.Context, id string, input PromotionInput) (*domain.Promotion, error) {
	promos := s.store.Repositories().Promotions
	promo, err := promos.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "promotion")
	}
	if err := applyPromotionInput(promo, input); err != nil {
		return nil, err
	}
	if promo.MaxUses < promo.CurrentUses {
		return nil, apperrors.NewFieldValidationError(map[string]string{"max_uses": "must not be below current uses"})
	}
	if err := promos.Update(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("promotion code already exists", map[string]any{"code": promo.Code})
		}
		return nil, notFound(err, "promotion")
	}
	return promo, nil
}

func (s *PromotionService) Delete(ctx context.Context, id string) error {
	return notFound(s.store.Repositories().Promotions.Delete(ctx, id), "promotion")
}

// lookup resolves code and checks it is usable for amount at the current time.
func (s *PromotionService) lookup(ctx context.Context, promos repository.PromotionRepository, code string, amount float64) (*domain.Promotion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.NewFieldValidationError(map[string]string{"code": "code is required"})
	}
	promo, err := promos.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("promotion", map[string]any{"code": domain.NormalizeCode(code)})
		}
		return nil, err
	}
	if !promo.IsValidFor(s.now(), amount) {
		details := map[string]any{"code": promo.Code}
		if domain.ToCents(amount) < domain.ToCents(promo.MinOrderAmount) {
			details["min_order_amount"] = promo.MinOrderAmount
		}
		return nil, apperrors.NewValidationError("promotion is not valid for this order", details)
	}
	return promo, nil
}

func applyPromotionInput(p *domain.Promotion, input PromotionInput) error {
	fields := map[string]string{}
	if input.Code != nil {
		p.Code = domain.NormalizeCode(*input.Code)
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.DiscountType != nil {
		switch *input.DiscountType {
		case domain.DiscountPercentage, domain.DiscountFixed:
			p.DiscountType = *input.DiscountType
		default:
			fields["discount_type"] = "must be percentage or fixed"
		}
	}
	if input.DiscountValue != nil {
		p.DiscountValue = *input.DiscountValue
	}
	if input.MinOrderAmount != nil {
		p.MinOrderAmount = *input.MinOrderAmount
	}
	if input.MaxUses != nil {
		p.MaxUses = *input.MaxUses
	}
	if input.StartDate != nil {
		p.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		p.EndDate = input.EndDate.UTC()
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}

	if p.DiscountValue <= 0 {
		fields["discount_value"] = "must be greater than 0"
	} else if p.DiscountType == domain.DiscountPercentage && p.DiscountValue > 100 {
		fields["discount_value"] = "percentage must not exceed 100"
	}
	if p.MinOrderAmount < 0 {
		fields["min_order_amount"] = "must not be negative"
	}
	if p.MaxUses < 1 {
		fields["max_uses"] = "must be at least 1"
	}
	if p.EndDate.Before(p.StartDate) {
		fields["end_date"] = "must not be before start_date"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(fields)
	}
	return nil
}
