package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/observability"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

const (
	minAddressLen = 10
	minContactLen = 10
)

// OrderService coordinates checkout and order lifecycle.
type OrderService struct {
	store   repository.UnitOfWork
	metrics *observability.Metrics
	logger  *zap.Logger
	events  publisher
	now     func() time.Time
}

// OrderDependencies bundles requirements for the order service.
type OrderDependencies struct {
	Store      repository.UnitOfWork
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// OrderLineInput is one cart line. Price is the client-computed unit price.
type OrderLineInput struct {
	Pizza    domain.PizzaConfig
	Price    float64
	Quantity int
}

// PlaceOrderInput describes a checkout.
type PlaceOrderInput struct {
	DeliveryAddress string
	ContactNumber   string
	Items           []OrderLineInput
}

// OrderPlacement is the outcome of a successful checkout.
type OrderPlacement struct {
	Order    *domain.Order
	Items    []domain.OrderItem
	LowStock []domain.LowStockItem
}

// OrderDetail is an order with its lines.
type OrderDetail struct {
	Order *domain.Order
	Items []domain.OrderItem
}

// TrackingInput updates delivery tracking fields. Nil fields are left unchanged.
type TrackingInput struct {
	EstimatedDeliveryTime *time.Time
	Note                  *string
}

func NewOrderService(deps OrderDependencies) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		store:   deps.Store,
		metrics: deps.Metrics,
		logger:  logger,
		events:  newPublisher(deps.Dispatcher, deps.Now),
		now:     clock(deps.Now),
	}
}

// PlaceOrder validates the cart, then creates the order, its items and the stock decrements
// in one transaction. Any failure, including insufficient stock, leaves no trace.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, input PlaceOrderInput) (*OrderPlacement, error) {
	if fields := validatePlaceOrder(input); len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	var placement *OrderPlacement
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		fields := map[string]string{}
		items := make([]domain.OrderItem, 0, len(input.Items))
		var total int64
		for i, line := range input.Items {
			snapshot, err := resolveSnapshot(ctx, repos.Catalog, line.Pizza, fmt.Sprintf("items[%d].pizza", i), fields)
			if err != nil {
				return err
			}
			item := domain.OrderItem{
				Pizza:    snapshot,
				Price:    domain.RoundCents(line.Price),
				Quantity: line.Quantity,
			}
			total += domain.ToCents(item.LineTotal())
			items = append(items, item)
		}
		if len(fields) > 0 {
			return apperrors.NewFieldValidationError(fields)
		}

		order := &domain.Order{
			UserID:          userID,
			Status:          domain.OrderStatusPending,
			PaymentStatus:   domain.PaymentPending,
			TotalAmount:     domain.FromCents(total),
			DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
			ContactNumber:   strings.TrimSpace(input.ContactNumber),
		}
		order.RecomputeFinal()
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repos.Orders.CreateItems(ctx, items); err != nil {
			return err
		}

		lowStock, err := adjustStock(ctx, repos.Catalog, items, -1)
		if err != nil {
			return err
		}

		placement = &OrderPlacement{Order: order, Items: items, LowStock: lowStock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderPlaced()
	s.metrics.LowStock(len(placement.LowStock))
	s.events.publish(ctx, events.Event{
		Type:      events.EventOrderCreated,
		UserID:    userID,
		SubjectID: placement.Order.ID,
		Payload: events.OrderCreatedPayload{
			FinalAmount: placement.Order.FinalAmount,
			ItemCount:   len(placement.Items),
		},
	})
	if len(placement.LowStock) > 0 {
		s.events.publish(ctx, events.Event{
			Type:      events.EventLowStock,
			UserID:    userID,
			SubjectID: placement.Order.ID,
			Payload:   events.LowStockPayload{Items: placement.LowStock},
		})
	}
	return placement, nil
}

// ListForUser returns the user's orders newest first, each with its items.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]OrderDetail, error) {
	return s.list(ctx, repository.OrderFilter{UserID: &userID})
}

// ListAll returns every order for admins, optionally filtered by status.
func (s *OrderService) ListAll(ctx context.Context, statuses []domain.OrderStatus, limit, offset int) ([]OrderDetail, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, apperrors.NewFieldValidationError(map[string]string{"status": fmt.Sprintf("unknown status %q", st)})
		}
	}
	return s.list(ctx, repository.OrderFilter{Statuses: statuses, Limit: limit, Offset: offset})
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) ([]OrderDetail, error) {
	repos := s.store.Repositories()
	orders, err := repos.Orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]OrderDetail, 0, len(orders))
	for i := range orders {
		items, err := repos.Orders.ListItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, OrderDetail{Order: &orders[i], Items: items})
	}
	return out, nil
}

// Get returns an order visible to the caller.
func (s *OrderService) Get(ctx context.Context, userID string, isAdmin bool, orderID string) (*OrderDetail, error) {
	repos := s.store.Repositories()
	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if !isAdmin && order.UserID != userID {
		return nil, apperrors.NewForbidden("order belongs to another user")
	}
	items, err := repos.Orders.ListItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

// Cancel lets a customer cancel an unpaid order that has not entered the kitchen.
// Stock consumed by the order is returned.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	var (
		order     *domain.Order
		oldStatus domain.OrderStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if order.UserID != userID {
			return apperrors.NewForbidden("order belongs to another user")
		}
		if order.PaymentStatus == domain.PaymentCompleted ||
			(order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusReceived) {
			return apperrors.NewConflict("order can no longer be cancelled", map[string]any{"status": order.Status})
		}
		oldStatus = order.Status
		return s.cancelInTx(ctx, repos, order)
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, order, oldStatus, "")
	return order, nil
}

// UpdateStatus sets any valid status on a non-terminal order.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, apperrors.NewFieldValidationError(map[string]string{"status": fmt.Sprintf("unknown status %q", status)})
	}

	var (
		order     *domain.Order
		oldStatus domain.OrderStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		oldStatus = order.Status
		if oldStatus == status {
			return nil
		}
		if oldStatus.Terminal() {
			return apperrors.NewConflict("order is already "+string(oldStatus), map[string]any{"status": oldStatus})
		}
		if note = strings.TrimSpace(note); note != "" {
			order.TrackingNote = note
		}
		if status == domain.OrderStatusCancelled {
			return s.cancelInTx(ctx, repos, order)
		}
		order.Status = status
		if status == domain.OrderStatusDelivered {
			now := s.now()
			order.ActualDeliveryTime = &now
		}
		return repos.Orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	if oldStatus != order.Status {
		s.statusChanged(ctx, order, oldStatus, note)
	}
	return order, nil
}

// MarkDelivered is UpdateStatus with the delivered status.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, orderID, domain.OrderStatusDelivered, "")
}

// UpdateTracking sets the estimated delivery time and tracking note.
func (s *OrderService) UpdateTracking(ctx context.Context, orderID string, input TrackingInput) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if order.Status.Terminal() {
			return apperrors.NewConflict("order is already "+string(order.Status), nil)
		}
		if input.EstimatedDeliveryTime != nil {
			eta := input.EstimatedDeliveryTime.UTC()
			order.EstimatedDeliveryTime = &eta
		}
		if input.Note != nil {
			order.TrackingNote = strings.TrimSpace(*input.Note)
		}
		return repos.Orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, order, order.Status, order.TrackingNote)
	return order, nil
}

func (s *OrderService) cancelInTx(ctx context.Context, repos repository.Repositories, order *domain.Order) error {
	items, err := repos.Orders.ListItems(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := adjustStock(ctx, repos.Catalog, items, 1); err != nil {
		return err
	}
	order.Status = domain.OrderStatusCancelled
	if err := repos.Orders.Update(ctx, order); err != nil {
		return err
	}
	s.metrics.OrderCancelled()
	return nil
}

func (s *OrderService) statusChanged(ctx context.Context, order *domain.Order, oldStatus domain.OrderStatus, note string) {
	s.events.publish(ctx, events.Event{
		Type:      events.EventOrderStatusChanged,
		UserID:    order.UserID,
		SubjectID: order.ID,
		Payload: events.OrderStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: order.Status,
			Note:      note,
		},
	})
}

func validatePlaceOrder(input PlaceOrderInput) map[string]string {
	fields := map[string]string{}
	if trimmedLen(input.DeliveryAddress) < minAddressLen {
		fields["delivery_address"] = fmt.Sprintf("must be at least %d characters", minAddressLen)
	}
	if trimmedLen(input.ContactNumber) < minContactLen {
		fields["contact_number"] = fmt.Sprintf("must be at least %d characters", minContactLen)
	}
	if len(input.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	for i, line := range input.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if domain.ToCents(line.Price) < 1 {
			fields[prefix+".price"] = "must be at least 0.01"
		}
		if line.Quantity < 1 {
			fields[prefix+".quantity"] = "must be at least 1"
		}
		validatePizzaConfig(line.Pizza, prefix+".pizza", fields)
	}
	return fields
}

// validatePizzaConfig rejects malformed ids before any lookup; postgres aborts the whole
// transaction on a non-uuid comparison.
func validatePizzaConfig(cfg domain.PizzaConfig, prefix string, fields map[string]string) {
	checkID := func(id, field string) {
		switch {
		case id == "":
			fields[prefix+"."+field] = "is required"
		case uuid.Validate(id) != nil:
			fields[prefix+"."+field] = "must be a valid id"
		}
	}
	checkID(cfg.BaseID, "base_id")
	checkID(cfg.SauceID, "sauce_id")
	checkID(cfg.CheeseID, "cheese_id")
	for i, id := range cfg.ToppingIDs {
		checkID(id, fmt.Sprintf("topping_ids[%d]", i))
	}
	switch cfg.Size {
	case "", domain.SizeSmall, domain.SizeMedium, domain.SizeLarge:
	default:
		fields[prefix+".size"] = "must be small, medium or large"
	}
}

// resolveSnapshot loads every component of cfg. Unknown ids are reported in fields rather
// than returned as errors so one response lists them all.
func resolveSnapshot(ctx context.Context, catalog repository.Catalog, cfg domain.PizzaConfig, prefix string, fields map[string]string) (domain.PizzaSnapshot, error) {
	snapshot := domain.PizzaSnapshot{Size: cfg.Size}
	lookup := func(kind domain.CatalogKind, id, field string) (domain.ComponentSnapshot, error) {
		item, err := catalog.Kind(kind).GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			fields[prefix+"."+field] = fmt.Sprintf("unknown %s", kind)
			return domain.ComponentSnapshot{ID: id}, nil
		}
		if err != nil {
			return domain.ComponentSnapshot{}, err
		}
		return domain.ComponentSnapshot{ID: item.ID, Name: item.Name, Price: item.Price}, nil
	}

	var err error
	if snapshot.Base, err = lookup(domain.KindBase, cfg.BaseID, "base_id"); err != nil {
		return snapshot, err
	}
	if snapshot.Sauce, err = lookup(domain.KindSauce, cfg.SauceID, "sauce_id"); err != nil {
		return snapshot, err
	}
	if snapshot.Cheese, err = lookup(domain.KindCheese, cfg.CheeseID, "cheese_id"); err != nil {
		return snapshot, err
	}
	snapshot.Toppings = make([]domain.ComponentSnapshot, 0, len(cfg.ToppingIDs))
	for i, id := range cfg.ToppingIDs {
		topping, err := lookup(domain.KindTopping, id, fmt.Sprintf("topping_ids[%d]", i))
		if err != nil {
			return snapshot, err
		}
		snapshot.Toppings = append(snapshot.Toppings, topping)
	}
	return snapshot, nil
}

// adjustStock applies sign*quantity to every distinct component used by items, in a fixed
// order so concurrent transactions lock rows consistently. It returns the components that
// ended at or below their threshold when decrementing.
func adjustStock(ctx context.Context, catalog repository.Catalog, items []domain.OrderItem, sign int) ([]domain.LowStockItem, error) {
	totals := map[domain.ComponentRef]int{}
	for _, item := range items {
		for _, ref := range item.Pizza.Config().Components() {
			totals[ref] += item.Quantity
		}
	}
	refs := make([]domain.ComponentRef, 0, len(totals))
	for ref := range totals {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].ID < refs[j].ID
	})

	var lowStock []domain.LowStockItem
	for _, ref := range refs {
		updated, err := catalog.Kind(ref.Kind).AdjustStock(ctx, ref.ID, sign*totals[ref])
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, apperrors.NewConflict("insufficient stock", map[string]any{
				"kind":      ref.Kind,
				"id":        ref.ID,
				"requested": totals[ref],
			})
		case errors.Is(err, repository.ErrNotFound) && sign > 0:
			// Components deleted since the order was placed have nothing to restock.
			continue
		case err != nil:
			return nil, notFound(err, string(ref.Kind))
		}
		if sign < 0 && updated.IsLowStock() {
			lowStock = append(lowStock, lowStockItem(*updated))
		}
	}
	return lowStock, nil
}
