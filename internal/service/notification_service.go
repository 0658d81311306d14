package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/config"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/observability"
	"github.com/slicehouse/pizzeria/internal/realtime"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

const defaultNotificationLimit = 50

// NotificationService persists user notifications for domain events and pushes them to
// the user's open realtime connections.
type NotificationService struct {
	store      repository.UnitOfWork
	registry   realtime.ConnectionRegistry
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles requirements for the notification service.
type NotificationDependencies struct {
	Store      repository.UnitOfWork
	Registry   realtime.ConnectionRegistry
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Config     config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		store:      deps.Store,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        deps.Config,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventOrderCreated, n.handleOrderCreated)
	n.dispatcher.Subscribe(events.EventOrderStatusChanged, n.handleOrderStatusChanged)
	n.dispatcher.Subscribe(events.EventPaymentRecorded, n.handlePaymentRecorded)
	n.dispatcher.Subscribe(events.EventPromotionApplied, n.handlePromotionApplied)
	n.dispatcher.Subscribe(events.EventLoyaltyChanged, n.handleLoyaltyChanged)
	n.dispatcher.Subscribe(events.EventSubscriptionChanged, n.handleSubscriptionChanged)
	n.dispatcher.Subscribe(events.EventLowStock, n.handleLowStock)
}

// Notify persists a notification and then pushes it. A failed push is logged; the stored
// row stays available through List.
func (n *NotificationService) Notify(ctx context.Context, userID, title, message string, kind domain.NotificationType, link string) (*domain.Notification, error) {
	note := &domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	if link != "" {
		note.Link = &link
	}
	if err := n.store.Repositories().Notifications.Create(ctx, note); err != nil {
		return nil, err
	}
	n.metrics.NotificationSent(string(kind))

	if n.registry != nil {
		if err := n.registry.Send(ctx, userID, realtime.Envelope{Type: "notification", Data: note}); err != nil {
			n.logger.Warn("notification push failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	n.sendEmailNotificationStub(note)
	return note, nil
}

// List returns the user's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	return n.store.Repositories().Notifications.ListByUser(ctx, userID, limit)
}

// MarkRead marks one notification of the user as read.
func (n *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	repo := n.store.Repositories().Notifications
	note, err := repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, notFound(err, "notification")
	}
	if note.UserID != userID {
		return nil, apperrors.NewNotFound("notification", nil)
	}
	if err := repo.MarkRead(ctx, notificationID); err != nil {
		return nil, notFound(err, "notification")
	}
	note.IsRead = true
	return note, nil
}

// MarkAllRead marks every unread notification of the user and returns how many changed.
func (n *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return n.store.Repositories().Notifications.MarkAllRead(ctx, userID)
}

func (n *NotificationService) handleOrderCreated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.OrderCreatedPayload)
	_, err := n.Notify(ctx, event.UserID,
		"Order placed",
		fmt.Sprintf("Your order #%s for %.2f has been placed.", shortID(event.SubjectID), payload.FinalAmount),
		domain.NotificationOrderCreated,
		orderLink(event.SubjectID),
	)
	return err
}

func (n *NotificationService) handleOrderStatusChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.OrderStatusChangedPayload)
	title := "Order update"
	message := fmt.Sprintf("Your order #%s is now %s.", shortID(event.SubjectID), humanize(string(payload.NewStatus)))
	if payload.OldStatus == payload.NewStatus {
		title = "Delivery update"
		message = fmt.Sprintf("Tracking for order #%s was updated.", shortID(event.SubjectID))
	}
	if payload.Note != "" {
		message += " " + payload.Note
	}
	_, err := n.Notify(ctx, event.UserID, title, message, domain.NotificationOrderStatus, orderLink(event.SubjectID))
	return err
}

func (n *NotificationService) handlePaymentRecorded(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PaymentRecordedPayload)
	title, message := "Payment received", fmt.Sprintf("We received %.2f for order #%s.", payload.Amount, shortID(event.SubjectID))
	if payload.Status == domain.PaymentFailed {
		title, message = "Payment failed", fmt.Sprintf("The payment for order #%s did not go through.", shortID(event.SubjectID))
	}
	_, err := n.Notify(ctx, event.UserID, title, message, domain.NotificationPayment, orderLink(event.SubjectID))
	return err
}

func (n *NotificationService) handlePromotionApplied(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PromotionAppliedPayload)
	_, err := n.Notify(ctx, event.UserID,
		"Promotion applied",
		fmt.Sprintf("Code %s saved you %.2f on order #%s.", payload.Code, payload.Discount, shortID(event.SubjectID)),
		domain.NotificationPromotion,
		orderLink(event.SubjectID),
	)
	return err
}

func (n *NotificationService) handleLoyaltyChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.LoyaltyChangedPayload)
	var message string
	switch {
	case payload.Delta > 0 && payload.Upgrade:
		message = fmt.Sprintf("You earned %d points and reached %s tier. Balance: %d.", payload.Delta, payload.Tier, payload.Balance)
	case payload.Delta > 0:
		message = fmt.Sprintf("You earned %d points. Balance: %d.", payload.Delta, payload.Balance)
	default:
		message = fmt.Sprintf("You redeemed %d points. Balance: %d.", -payload.Delta, payload.Balance)
	}
	_, err := n.Notify(ctx, event.UserID, "Loyalty points", message, domain.NotificationLoyalty, "/loyalty")
	return err
}

func (n *NotificationService) handleSubscriptionChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SubscriptionChangedPayload)
	message := fmt.Sprintf("Your %s subscription is now %s.", payload.PlanName, payload.NewStatus)
	if payload.OldStatus == "" {
		message = fmt.Sprintf("You subscribed to %s.", payload.PlanName)
	}
	_, err := n.Notify(ctx, event.UserID, "Subscription", message, domain.NotificationSubscription, "/subscriptions")
	return err
}

func (n *NotificationService) handleLowStock(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.LowStockPayload)
	for _, item := range payload.Items {
		n.logger.Warn("component low on stock",
			zap.String("kind", string(item.Kind)),
			zap.String("id", item.ID),
			zap.String("name", item.Name),
			zap.Int("stock", item.Stock),
			zap.Int("threshold", item.Threshold),
			zap.String("order_id", event.SubjectID),
		)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(note *domain.Notification) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("user_id", note.UserID),
		zap.String("type", string(note.Type)))
}

func orderLink(orderID string) string {
	return "/orders/" + orderID
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
