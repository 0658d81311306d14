package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

const dayDuration = 24 * time.Hour

// SubscriptionService manages plans and customer subscriptions.
type SubscriptionService struct {
	store  repository.UnitOfWork
	events publisher
	now    func() time.Time
}

// SubscriptionDependencies bundles requirements for the subscription service.
type SubscriptionDependencies struct {
	Store      repository.UnitOfWork
	Dispatcher events.Dispatcher
	Now        func() time.Time
}

// PlanInput describes a new plan.
type PlanInput struct {
	Name         string
	Description  string
	Price        float64
	IntervalDays int
	Pizza        domain.PizzaConfig
	IsActive     *bool
}

// SubscriptionDetail pairs a subscription with its plan.
type SubscriptionDetail struct {
	Subscription *domain.UserSubscription
	Plan         *domain.SubscriptionPlan
}

func NewSubscriptionService(deps SubscriptionDependencies) *SubscriptionService {
	return &SubscriptionService{
		store:  deps.Store,
		events: newPublisher(deps.Dispatcher, deps.Now),
		now:    clock(deps.Now),
	}
}

// ListPlans returns plans open for subscription.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	return s.store.Repositories().Plans.List(ctx, true)
}

// CreatePlan stores a plan after checking its pizza references the catalog.
func (s *SubscriptionService) CreatePlan(ctx context.Context, input PlanInput) (*domain.SubscriptionPlan, error) {
	fields := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		fields["name"] = "name is required"
	}
	if input.Price <= 0 {
		fields["price"] = "must be greater than 0"
	}
	if input.IntervalDays < 1 {
		fields["interval_days"] = "must be at least 1"
	}
	validatePizzaConfig(input.Pizza, "pizza", fields)
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	repos := s.store.Repositories()
	if _, err := resolveSnapshot(ctx, repos.Catalog, input.Pizza, "pizza", fields); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	plan := &domain.SubscriptionPlan{
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Price:        domain.RoundCents(input.Price),
		IntervalDays: input.IntervalDays,
		Pizza:        input.Pizza.Clone(),
		IsActive:     true,
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}
	if err := repos.Plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Subscribe starts an active subscription whose first delivery is one interval from now.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, planID, address string) (*SubscriptionDetail, error) {
	if trimmedLen(address) < minAddressLen {
		return nil, apperrors.NewFieldValidationError(map[string]string{
			"delivery_address": fmt.Sprintf("must be at least %d characters", minAddressLen),
		})
	}

	repos := s.store.Repositories()
	plan, err := repos.Plans.GetByID(ctx, planID)
	if err != nil {
		return nil, notFound(err, "subscription plan")
	}
	if !plan.IsActive {
		return nil, apperrors.NewConflict("subscription plan is not available", nil)
	}

	now := s.now()
	sub := &domain.UserSubscription{
		UserID:           userID,
		PlanID:           plan.ID,
		Status:           domain.SubscriptionActive,
		StartDate:        now,
		NextDeliveryDate: now.Add(time.Duration(plan.IntervalDays) * dayDuration),
		DeliveryAddress:  strings.TrimSpace(address),
	}
	if err := repos.Subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.changed(ctx, sub, plan, "")
	return &SubscriptionDetail{Subscription: sub, Plan: plan}, nil
}

// ListForUser returns the user's subscriptions with their plans.
func (s *SubscriptionService) ListForUser(ctx context.Context, userID string) ([]SubscriptionDetail, error) {
	repos := s.store.Repositories()
	subs, err := repos.Subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SubscriptionDetail, 0, len(subs))
	for i := range subs {
		detail := SubscriptionDetail{Subscription: &subs[i]}
		if plan, err := repos.Plans.GetByID(ctx, subs[i].PlanID); err == nil {
			detail.Plan = plan
		}
		out = append(out, detail)
	}
	return out, nil
}

// Transition applies a pause, resume or cancel action. The next delivery date is left as is.
func (s *SubscriptionService) Transition(ctx context.Context, userID, subscriptionID string, action domain.SubscriptionAction) (*SubscriptionDetail, error) {
	var (
		sub       *domain.UserSubscription
		oldStatus domain.SubscriptionStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		sub, err = repos.Subscriptions.GetByID(ctx, subscriptionID)
		if err != nil {
			return notFound(err, "subscription")
		}
		if sub.UserID != userID {
			return apperrors.NewForbidden("subscription belongs to another user")
		}
		next, ok := domain.NextSubscriptionStatus(sub.Status, action)
		if !ok {
			return apperrors.NewConflict(fmt.Sprintf("cannot %s a %s subscription", action, sub.Status), map[string]any{
				"status": sub.Status,
			})
		}
		oldStatus = sub.Status
		sub.Status = next
		return repos.Subscriptions.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	plan, _ := s.store.Repositories().Plans.GetByID(ctx, sub.PlanID)
	s.changed(ctx, sub, plan, oldStatus)
	return &SubscriptionDetail{Subscription: sub, Plan: plan}, nil
}

func (s *SubscriptionService) changed(ctx context.Context, sub *domain.UserSubscription, plan *domain.SubscriptionPlan, oldStatus domain.SubscriptionStatus) {
	payload := events.SubscriptionChangedPayload{OldStatus: oldStatus, NewStatus: sub.Status}
	if plan != nil {
		payload.PlanName = plan.Name
	}
	s.events.publish(ctx, events.Event{
		Type:      events.EventSubscriptionChanged,
		UserID:    sub.UserID,
		SubjectID: sub.ID,
		Payload:   payload,
	})
}
