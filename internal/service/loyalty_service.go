package service

import (
	"context"
	"errors"

	"github.com/slicehouse/pizzeria/internal/config"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/observability"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// LoyaltyService exposes point balances and redemption against orders.
type LoyaltyService struct {
	store   repository.UnitOfWork
	policy  string
	metrics *observability.Metrics
	events  publisher
}

// LoyaltyDependencies bundles requirements for the loyalty service.
type LoyaltyDependencies struct {
	Store      repository.UnitOfWork
	Policy     string
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// LoyaltySummary describes a user's balance.
type LoyaltySummary struct {
	Points        int
	Tier          domain.MembershipTier
	PointValue    float64
	Value         float64
	EarnPerAmount float64
	NextTier      domain.MembershipTier
	PointsToNext  int
}

// Redemption reports the effect of redeeming points on an order.
type Redemption struct {
	Order           *domain.Order
	PointsRequested int
	PointsCharged   int
	Discount        float64
	Balance         int
}

func NewLoyaltyService(deps LoyaltyDependencies) *LoyaltyService {
	policy := deps.Policy
	if policy == "" {
		policy = config.RedeemPolicyFull
	}
	return &LoyaltyService{
		store:   deps.Store,
		policy:  policy,
		metrics: deps.Metrics,
		events:  newPublisher(deps.Dispatcher, nil),
	}
}

// Summary returns the balance and tier of the user.
func (s *LoyaltyService) Summary(ctx context.Context, userID string) (*LoyaltySummary, error) {
	user, err := s.store.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	summary := &LoyaltySummary{
		Points:        user.LoyaltyPoints,
		Tier:          user.MembershipTier,
		PointValue:    domain.PointsValue(1),
		Value:         domain.PointsValue(user.LoyaltyPoints),
		EarnPerAmount: domain.FromCents(domain.CentsPerEarnedPoint),
	}
	summary.NextTier, summary.PointsToNext = domain.NextTier(user.LoyaltyPoints)
	return summary, nil
}

// Redeem converts points into a discount on an unpaid order of the user. The balance check
// and deduction are one conditional write, so concurrent redemptions cannot overspend.
func (s *LoyaltyService) Redeem(ctx context.Context, userID, orderID string, points int) (*Redemption, error) {
	if points <= 0 {
		return nil, apperrors.NewFieldValidationError(map[string]string{"points": "must be greater than 0"})
	}

	var result *Redemption
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		if user.LoyaltyPoints < points {
			return insufficientPoints(user.LoyaltyPoints, points)
		}

		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if order.UserID != userID {
			return apperrors.NewForbidden("order belongs to another user")
		}
		if !order.Payable() {
			return apperrors.NewConflict("order is already paid or cancelled", nil)
		}
		if order.LoyaltyPointsUsed > 0 {
			return apperrors.NewConflict("points were already redeemed on this order", nil)
		}

		remaining := domain.FromCents(domain.ToCents(order.TotalAmount) - domain.ToCents(order.PromotionDiscount))
		discount := domain.RoundCents(domain.RedemptionDiscount(points, remaining))
		charged := points
		if s.policy == config.RedeemPolicyProportional {
			charged = domain.PointsForDiscount(discount)
		}
		if charged == 0 {
			return apperrors.NewConflict("order has nothing left to discount", nil)
		}

		balance, err := repos.Users.AdjustLoyaltyPoints(ctx, userID, -charged)
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientPoints) {
				return insufficientPoints(user.LoyaltyPoints, points)
			}
			return err
		}

		order.LoyaltyPointsUsed = charged
		order.LoyaltyDiscount = discount
		order.RecomputeFinal()
		if err := repos.Orders.Update(ctx, order); err != nil {
			return err
		}

		result = &Redemption{
			Order:           order,
			PointsRequested: points,
			PointsCharged:   charged,
			Discount:        discount,
			Balance:         balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PointsRedeemed(result.PointsCharged)
	s.events.publish(ctx, events.Event{
		Type:      events.EventLoyaltyChanged,
		UserID:    userID,
		SubjectID: orderID,
		Payload: events.LoyaltyChangedPayload{
			Delta:   -result.PointsCharged,
			Balance: result.Balance,
		},
	})
	return result, nil
}

func insufficientPoints(balance, requested int) error {
	return apperrors.NewValidationError("insufficient loyalty points", map[string]any{
		"balance":   balance,
		"requested": requested,
	})
}

// creditPoints adds points earned by a payment and upgrades the tier when the new balance
// crosses a threshold. It must run inside the payment transaction.
func creditPoints(ctx context.Context, repos repository.Repositories, user *domain.User, earned int) (int, domain.MembershipTier, bool, error) {
	if earned <= 0 {
		return user.LoyaltyPoints, user.MembershipTier, false, nil
	}
	balance, err := repos.Users.AdjustLoyaltyPoints(ctx, user.ID, earned)
	if err != nil {
		return 0, "", false, err
	}
	tier := domain.HigherTier(user.MembershipTier, domain.TierForPoints(balance))
	if tier == user.MembershipTier {
		return balance, tier, false, nil
	}
	if err := repos.Users.SetMembershipTier(ctx, user.ID, tier); err != nil {
		return 0, "", false, err
	}
	return balance, tier, true, nil
}
