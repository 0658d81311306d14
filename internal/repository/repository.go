package repository

import (
	"context"
	"errors"

	"github.com/slicehouse/pizzeria/internal/domain"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	ErrUsageLimitReached  = errors.New("promotion usage limit reached")
)

// Getter loads an entity by primary key.
type Getter[T any] interface {
	GetByID(ctx context.Context, id string) (*T, error)
}

// Creator persists a new entity, filling generated fields.
type Creator[T any] interface {
	Create(ctx context.Context, entity *T) error
}

// Updater overwrites the mutable fields of an existing entity.
type Updater[T any] interface {
	Update(ctx context.Context, entity *T) error
}

// Deleter removes an entity by primary key.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// CRUD is the full capability set.
type CRUD[T any] interface {
	Getter[T]
	Creator[T]
	Updater[T]
	Deleter
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Users         UserRepository
	Catalog       Catalog
	Orders        OrderRepository
	Promotions    PromotionRepository
	Plans         PlanRepository
	Subscriptions SubscriptionRepository
	Notifications NotificationRepository
}

// TxFunc is a unit of work executed against transaction-scoped repositories.
type TxFunc func(ctx context.Context, repos Repositories) error

// UnitOfWork exposes plain repositories and an all-or-nothing transaction boundary.
type UnitOfWork interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
}

// UserRepository defines persistence access for users. Users are never hard-deleted.
type UserRepository interface {
	Getter[domain.User]
	Creator[domain.User]
	Updater[domain.User]
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByResetToken(ctx context.Context, token string) (*domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	// AdjustLoyaltyPoints adds delta to the balance and returns the new balance.
	// It fails with ErrInsufficientPoints instead of going below zero.
	AdjustLoyaltyPoints(ctx context.Context, userID string, delta int) (int, error)
	SetMembershipTier(ctx context.Context, userID string, tier domain.MembershipTier) error
}

// CatalogFilter narrows catalog listings.
type CatalogFilter struct {
	InStockOnly  bool
	LowStockOnly bool
}

// CatalogRepository manages one component table. Update never writes stock; stock only
// moves through AdjustStock so concurrent decrements are never overwritten.
type CatalogRepository interface {
	CRUD[domain.CatalogItem]
	// GetForUpdate loads the item and, inside a transaction, locks its row until commit.
	GetForUpdate(ctx context.Context, id string) (*domain.CatalogItem, error)
	List(ctx context.Context, filter CatalogFilter) ([]domain.CatalogItem, error)
	// AdjustStock adds delta to stock and returns the updated item.
	// A decrement below zero fails with ErrInsufficientStock.
	AdjustStock(ctx context.Context, id string, delta int) (*domain.CatalogItem, error)
}

// Catalog resolves the repository for a component kind.
type Catalog interface {
	Kind(kind domain.CatalogKind) CatalogRepository
}

// OrderFilter captures admin listing parameters.
type OrderFilter struct {
	UserID   *string
	Statuses []domain.OrderStatus
	Limit    int
	Offset   int
}

// OrderRepository persists orders and their items.
type OrderRepository interface {
	Getter[domain.Order]
	Creator[domain.Order]
	Updater[domain.Order]
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	CreateItems(ctx context.Context, items []domain.OrderItem) error
	ListItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	ListItemsByUser(ctx context.Context, userID string) ([]domain.OrderItem, error)
}

// PromotionFilter narrows promotion listings.
type PromotionFilter struct {
	ActiveOnly bool
}

// PromotionRepository persists promotion codes.
type PromotionRepository interface {
	CRUD[domain.Promotion]
	GetByCode(ctx context.Context, code string) (*domain.Promotion, error)
	List(ctx context.Context, filter PromotionFilter) ([]domain.Promotion, error)
	// IncrementUsage bumps current_uses unless the cap is already reached.
	IncrementUsage(ctx context.Context, id string) error
}

// PlanRepository persists subscription plans.
type PlanRepository interface {
	Getter[domain.SubscriptionPlan]
	Creator[domain.SubscriptionPlan]
	Updater[domain.SubscriptionPlan]
	List(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error)
}

// SubscriptionRepository persists user subscriptions.
type SubscriptionRepository interface {
	Getter[domain.UserSubscription]
	Creator[domain.UserSubscription]
	Updater[domain.UserSubscription]
	ListByUser(ctx context.Context, userID string) ([]domain.UserSubscription, error)
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Getter[domain.Notification]
	Creator[domain.Notification]
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}
