package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository"
)

type userRepository struct{ base }

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	defer r.lock()()
	for _, existing := range r.data().users.all(nil) {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.MembershipTier == "" {
		user.MembershipTier = domain.TierBronze
	}
	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.data().users.put(user.ID, *user)
	return nil
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	defer r.lock()()
	current, ok := r.data().users.get(user.ID)
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range r.data().users.all(nil) {
		if existing.ID == user.ID {
			continue
		}
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	updated := *user
	updated.LoyaltyPoints = current.LoyaltyPoints
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.now()
	r.data().users.put(user.ID, updated)
	user.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	defer r.lock()()
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.lock()()
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	defer r.lock()()
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepository) GetByResetToken(_ context.Context, token string) (*domain.User, error) {
	defer r.lock()()
	return r.find(func(u domain.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (r *userRepository) GetByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	defer r.lock()()
	return r.find(func(u domain.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (r *userRepository) AdjustLoyaltyPoints(_ context.Context, userID string, delta int) (int, error) {
	defer r.lock()()
	user, ok := r.data().users.get(userID)
	if !ok {
		return 0, repository.ErrNotFound
	}
	if user.LoyaltyPoints+delta < 0 {
		return 0, repository.ErrInsufficientPoints
	}
	user.LoyaltyPoints += delta
	user.UpdatedAt = r.now()
	r.data().users.put(userID, user)
	return user.LoyaltyPoints, nil
}

func (r *userRepository) SetMembershipTier(_ context.Context, userID string, tier domain.MembershipTier) error {
	defer r.lock()()
	user, ok := r.data().users.get(userID)
	if !ok {
		return repository.ErrNotFound
	}
	user.MembershipTier = tier
	user.UpdatedAt = r.now()
	r.data().users.put(userID, user)
	return nil
}

func (r *userRepository) find(match func(domain.User) bool) (*domain.User, error) {
	found := r.data().users.all(match)
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

type catalog struct{ base }

func (c *catalog) Kind(kind domain.CatalogKind) repository.CatalogRepository {
	return &catalogRepository{base: c.base, kind: kind}
}

type catalogRepository struct {
	base
	kind domain.CatalogKind
}

func (r *catalogRepository) table() *table[domain.CatalogItem] {
	t, ok := r.data().catalog[r.kind]
	if !ok {
		t = newTable[domain.CatalogItem](nil)
		r.data().catalog[r.kind] = t
	}
	return t
}

func (r *catalogRepository) Create(_ context.Context, item *domain.CatalogItem) error {
	defer r.lock()()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Kind = r.kind
	if item.Kind != domain.KindTopping {
		item.IsVegetarian = false
	}
	now := r.now()
	item.CreatedAt, item.UpdatedAt = now, now
	r.table().put(item.ID, *item)
	return nil
}

func (r *catalogRepository) Update(_ context.Context, item *domain.CatalogItem) error {
	defer r.lock()()
	current, ok := r.table().get(item.ID)
	if !ok {
		return repository.ErrNotFound
	}
	updated := *item
	updated.Kind = r.kind
	updated.Stock = current.Stock
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.now()
	r.table().put(item.ID, updated)
	item.Stock, item.UpdatedAt = updated.Stock, updated.UpdatedAt
	return nil
}

func (r *catalogRepository) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if !r.table().remove(id) {
		return repository.ErrNotFound
	}
	return nil
}

func (r *catalogRepository) GetByID(_ context.Context, id string) (*domain.CatalogItem, error) {
	defer r.lock()()
	item, ok := r.table().get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

// GetForUpdate needs no row lock here: transactions already hold the store mutex.
func (r *catalogRepository) GetForUpdate(ctx context.Context, id string) (*domain.CatalogItem, error) {
	return r.GetByID(ctx, id)
}

func (r *catalogRepository) List(_ context.Context, filter repository.CatalogFilter) ([]domain.CatalogItem, error) {
	defer r.lock()()
	items := r.table().all(func(item domain.CatalogItem) bool {
		if filter.InStockOnly && !item.InStock() {
			return false
		}
		if filter.LowStockOnly && !item.IsLowStock() {
			return false
		}
		return true
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *catalogRepository) AdjustStock(_ context.Context, id string, delta int) (*domain.CatalogItem, error) {
	defer r.lock()()
	item, ok := r.table().get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	if item.Stock+delta < 0 {
		return nil, repository.ErrInsufficientStock
	}
	item.Stock += delta
	item.UpdatedAt = r.now()
	r.table().put(id, item)
	return &item, nil
}

type orderRepository struct{ base }

func (r *orderRepository) Create(_ context.Context, order *domain.Order) error {
	defer r.lock()()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := r.now()
	order.CreatedAt, order.UpdatedAt = now, now
	r.data().orders.put(order.ID, *order)
	return nil
}

func (r *orderRepository) Update(_ context.Context, order *domain.Order) error {
	defer r.lock()()
	current, ok := r.data().orders.get(order.ID)
	if !ok {
		return repository.ErrNotFound
	}
	updated := *order
	updated.UserID = current.UserID
	updated.TotalAmount = current.TotalAmount
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.now()
	r.data().orders.put(order.ID, updated)
	order.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *orderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	defer r.lock()()
	order, ok := r.data().orders.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &order, nil
}

func (r *orderRepository) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	defer r.lock()()
	statuses := make(map[domain.OrderStatus]struct{}, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = struct{}{}
	}
	orders := r.data().orders.newest(func(o domain.Order) bool {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			return false
		}
		if len(statuses) > 0 {
			if _, ok := statuses[o.Status]; !ok {
				return false
			}
		}
		return true
	})
	return paginate(orders, filter.Limit, filter.Offset), nil
}

func (r *orderRepository) CreateItems(_ context.Context, items []domain.OrderItem) error {
	defer r.lock()()
	now := r.now()
	for i := range items {
		if _, ok := r.data().orders.get(items[i].OrderID); !ok {
			return repository.ErrNotFound
		}
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].CreatedAt = now
		r.data().items.put(items[i].ID, items[i])
	}
	return nil
}

func (r *orderRepository) ListItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	defer r.lock()()
	return r.data().items.all(func(i domain.OrderItem) bool { return i.OrderID == orderID }), nil
}

func (r *orderRepository) ListItemsByUser(_ context.Context, userID string) ([]domain.OrderItem, error) {
	defer r.lock()()
	return r.data().items.newest(func(i domain.OrderItem) bool {
		order, ok := r.data().orders.get(i.OrderID)
		return ok && order.UserID == userID && order.Status != domain.OrderStatusCancelled
	}), nil
}

type promotionRepository struct{ base }

func (r *promotionRepository) Create(_ context.Context, promo *domain.Promotion) error {
	defer r.lock()()
	promo.Code = domain.NormalizeCode(promo.Code)
	if len(r.data().promotions.all(func(p domain.Promotion) bool { return p.Code == promo.Code })) > 0 {
		return repository.ErrDuplicate
	}
	if promo.ID == "" {
		promo.ID = uuid.NewString()
	}
	now := r.now()
	promo.CreatedAt, promo.UpdatedAt = now, now
	r.data().promotions.put(promo.ID, *promo)
	return nil
}

func (r *promotionRepository) Update(_ context.Context, promo *domain.Promotion) error {
	defer r.lock()()
	current, ok := r.data().promotions.get(promo.ID)
	if !ok {
		return repository.ErrNotFound
	}
	promo.Code = domain.NormalizeCode(promo.Code)
	if len(r.data().promotions.all(func(p domain.Promotion) bool { return p.Code == promo.Code && p.ID != promo.ID })) > 0 {
		return repository.ErrDuplicate
	}
	updated := *promo
	updated.CurrentUses = current.CurrentUses
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.now()
	r.data().promotions.put(promo.ID, updated)
	promo.CurrentUses = current.CurrentUses
	promo.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *promotionRepository) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if !r.data().promotions.remove(id) {
		return repository.ErrNotFound
	}
	return nil
}

func (r *promotionRepository) GetByID(_ context.Context, id string) (*domain.Promotion, error) {
	defer r.lock()()
	promo, ok := r.data().promotions.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &promo, nil
}

func (r *promotionRepository) GetByCode(_ context.Context, code string) (*domain.Promotion, error) {
	defer r.lock()()
	code = domain.NormalizeCode(code)
	found := r.data().promotions.all(func(p domain.Promotion) bool { return p.Code == code })
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

func (r *promotionRepository) List(_ context.Context, filter repository.PromotionFilter) ([]domain.Promotion, error) {
	defer r.lock()()
	now := r.now()
	return r.data().promotions.newest(func(p domain.Promotion) bool {
		if !filter.ActiveOnly {
			return true
		}
		return p.IsActive && !now.Before(p.StartDate) && !now.After(p.EndDate) && p.CurrentUses < p.MaxUses
	}), nil
}

func (r *promotionRepository) IncrementUsage(_ context.Context, id string) error {
	defer r.lock()()
	promo, ok := r.data().promotions.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	if promo.CurrentUses >= promo.MaxUses {
		return repository.ErrUsageLimitReached
	}
	promo.CurrentUses++
	promo.UpdatedAt = r.now()
	r.data().promotions.put(id, promo)
	return nil
}

type planRepository struct{ base }

func (r *planRepository) Create(_ context.Context, plan *domain.SubscriptionPlan) error {
	defer r.lock()()
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := r.now()
	plan.CreatedAt, plan.UpdatedAt = now, now
	r.data().plans.put(plan.ID, *plan)
	return nil
}

func (r *planRepository) Update(_ context.Context, plan *domain.SubscriptionPlan) error {
	defer r.lock()()
	current, ok := r.data().plans.get(plan.ID)
	if !ok {
		return repository.ErrNotFound
	}
	updated := *plan
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.now()
	r.data().plans.put(plan.ID, updated)
	plan.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *planRepository) GetByID(_ context.Context, id string) (*domain.SubscriptionPlan, error) {
	defer r.lock()()
	plan, ok := r.data().plans.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &plan, nil
}

func (r *planRepository) List(_ context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error) {
	defer r.lock()()
	plans := r.data().plans.all(func(p domain.SubscriptionPlan) bool { return !activeOnly || p.IsActive })
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].Price < plans[j].Price })
	return plans, nil
}

type subscriptionRepository struct{ base }

func (r *subscriptionRepository) Create(_ context.Context, sub *domain.UserSubscription) error {
	defer r.lock()()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := r.now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	r.data().subscriptions.put(sub.ID, *sub)
	return nil
}

func (r *subscriptionRepository) Update(_ context.Context, sub *domain.UserSubscription) error {
	defer r.lock()()
	current, ok := r.data().subscriptions.get(sub.ID)
	if !ok {
		return repository.ErrNotFound
	}
	current.Status = sub.Status
	current.NextDeliveryDate = sub.NextDeliveryDate
	current.DeliveryAddress = sub.DeliveryAddress
	current.UpdatedAt = r.now()
	r.data().subscriptions.put(sub.ID, current)
	sub.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *subscriptionRepository) GetByID(_ context.Context, id string) (*domain.UserSubscription, error) {
	defer r.lock()()
	sub, ok := r.data().subscriptions.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUser(_ context.Context, userID string) ([]domain.UserSubscription, error) {
	defer r.lock()()
	return r.data().subscriptions.newest(func(s domain.UserSubscription) bool { return s.UserID == userID }), nil
}

type notificationRepository struct{ base }

func (r *notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	defer r.lock()()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = r.now()
	r.data().notifications.put(n.ID, *n)
	return nil
}

func (r *notificationRepository) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	defer r.lock()()
	n, ok := r.data().notifications.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (r *notificationRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	defer r.lock()()
	if limit <= 0 {
		limit = 50
	}
	list := r.data().notifications.newest(func(n domain.Notification) bool { return n.UserID == userID })
	return paginate(list, limit, 0), nil
}

func (r *notificationRepository) MarkRead(_ context.Context, id string) error {
	defer r.lock()()
	n, ok := r.data().notifications.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	n.IsRead = true
	r.data().notifications.put(id, n)
	return nil
}

func (r *notificationRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	defer r.lock()()
	count := 0
	for _, n := range r.data().notifications.all(func(n domain.Notification) bool { return n.UserID == userID && !n.IsRead }) {
		n.IsRead = true
		r.data().notifications.put(n.ID, n)
		count++
	}
	return count, nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return []T{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
