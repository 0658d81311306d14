package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/slicehouse/pizzeria/internal/domain"
)

// pizzaDocument is the JSONB shape of a plan's pizza configuration.
type pizzaDocument struct {
	BaseID     string           `json:"base_id"`
	SauceID    string           `json:"sauce_id"`
	CheeseID   string           `json:"cheese_id"`
	ToppingIDs []string         `json:"topping_ids"`
	Size       domain.PizzaSize `json:"size,omitempty"`
}

func toPizzaDocument(cfg domain.PizzaConfig) pizzaDocument {
	return pizzaDocument{BaseID: cfg.BaseID, SauceID: cfg.SauceID, CheeseID: cfg.CheeseID, ToppingIDs: cfg.ToppingIDs, Size: cfg.Size}
}

func (d pizzaDocument) config() domain.PizzaConfig {
	return domain.PizzaConfig{BaseID: d.BaseID, SauceID: d.SauceID, CheeseID: d.CheeseID, ToppingIDs: d.ToppingIDs, Size: d.Size}
}

type planRepository struct {
	db DBTX
}

// NewPlanRepository constructs repository.
func NewPlanRepository(db DBTX) PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `id, name, description, price, interval_days, pizza, is_active, created_at, updated_at`

func (r *planRepository) Create(ctx context.Context, plan *domain.SubscriptionPlan) error {
	const query = `
        INSERT INTO subscription_plans (id, name, description, price, interval_days, pizza, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	return translate(r.db.QueryRow(ctx, query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.Price,
		plan.IntervalDays,
		toPizzaDocument(plan.Pizza),
		plan.IsActive,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt))
}

func (r *planRepository) Update(ctx context.Context, plan *domain.SubscriptionPlan) error {
	const query = `
        UPDATE subscription_plans SET name=$1, description=$2, price=$3, interval_days=$4, pizza=$5,
            is_active=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`

	return translate(r.db.QueryRow(ctx, query,
		plan.Name,
		plan.Description,
		plan.Price,
		plan.IntervalDays,
		toPizzaDocument(plan.Pizza),
		plan.IsActive,
		plan.ID,
	).Scan(&plan.UpdatedAt))
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	plan, err := scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return plan, nil
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY price`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []domain.SubscriptionPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.SubscriptionPlan, error) {
	var (
		plan domain.SubscriptionPlan
		doc  pizzaDocument
	)
	if err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&plan.Price,
		&plan.IntervalDays,
		&doc,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	); err != nil {
		return nil, err
	}
	plan.Pizza = doc.config()
	return &plan, nil
}

type subscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository constructs repository.
func NewSubscriptionRepository(db DBTX) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, status, start_date, next_delivery_date, delivery_address, created_at, updated_at`

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.UserSubscription) error {
	const query = `
        INSERT INTO user_subscriptions (id, user_id, plan_id, status, start_date, next_delivery_date, delivery_address)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	return translate(r.db.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		sub.StartDate,
		sub.NextDeliveryDate,
		sub.DeliveryAddress,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt))
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *domain.UserSubscription) error {
	const query = `
        UPDATE user_subscriptions SET status=$1, next_delivery_date=$2, delivery_address=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`

	return translate(r.db.QueryRow(ctx, query,
		sub.Status,
		sub.NextDeliveryDate,
		sub.DeliveryAddress,
		sub.ID,
	).Scan(&sub.UpdatedAt))
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*domain.UserSubscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM user_subscriptions WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return sub, nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserSubscription, error) {
	rows, err := r.db.Query(ctx, `SELECT `+subscriptionColumns+` FROM user_subscriptions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []domain.UserSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func scanSubscription(row pgx.Row) (*domain.UserSubscription, error) {
	var sub domain.UserSubscription
	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.Status,
		&sub.StartDate,
		&sub.NextDeliveryDate,
		&sub.DeliveryAddress,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}
