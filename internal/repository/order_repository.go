package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/slicehouse/pizzeria/internal/domain"
)

type orderRepository struct {
	db DBTX
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, status, total_amount, final_amount, payment_id, payment_status,
        delivery_address, contact_number, promotion_id, promotion_code, promotion_discount,
        loyalty_points_used, loyalty_discount, estimated_delivery_time, actual_delivery_time,
        tracking_note, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
        INSERT INTO orders (id, user_id, status, total_amount, final_amount, payment_id, payment_status,
            delivery_address, contact_number)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, updated_at`

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	return translate(r.db.QueryRow(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.TotalAmount,
		order.FinalAmount,
		order.PaymentID,
		order.PaymentStatus,
		order.DeliveryAddress,
		order.ContactNumber,
	).Scan(&order.CreatedAt, &order.UpdatedAt))
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	const query = `
        UPDATE orders SET status=$1, final_amount=$2, payment_id=$3, payment_status=$4,
            delivery_address=$5, contact_number=$6, promotion_id=$7, promotion_code=$8,
            promotion_discount=$9, loyalty_points_used=$10, loyalty_discount=$11,
            estimated_delivery_time=$12, actual_delivery_time=$13, tracking_note=$14, updated_at=NOW()
        WHERE id=$15
        RETURNING updated_at`

	return translate(r.db.QueryRow(ctx, query,
		order.Status,
		order.FinalAmount,
		order.PaymentID,
		order.PaymentStatus,
		order.DeliveryAddress,
		order.ContactNumber,
		order.PromotionID,
		order.PromotionCode,
		order.PromotionDiscount,
		order.LoyaltyPointsUsed,
		order.LoyaltyDiscount,
		order.EstimatedDeliveryTime,
		order.ActualDeliveryTime,
		order.TrackingNote,
		order.ID,
	).Scan(&order.UpdatedAt))
}

// GetByID locks the row when called inside a transaction so concurrent writers serialize on it.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if _, inTx := r.db.(pgx.Tx); inTx {
		query += ` FOR UPDATE`
	}
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (r *orderRepository) CreateItems(ctx context.Context, items []domain.OrderItem) error {
	const query = `
        INSERT INTO order_items (id, order_id, pizza, price, quantity)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if err := r.db.QueryRow(ctx, query,
			items[i].ID,
			items[i].OrderID,
			items[i].Pizza,
			items[i].Price,
			items[i].Quantity,
		).Scan(&items[i].CreatedAt); err != nil {
			return translate(err)
		}
	}
	return nil
}

func (r *orderRepository) ListItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	const query = `
        SELECT id, order_id, pizza, price, quantity, created_at
        FROM order_items WHERE order_id=$1 ORDER BY created_at, id`
	return r.queryItems(ctx, query, orderID)
}

func (r *orderRepository) ListItemsByUser(ctx context.Context, userID string) ([]domain.OrderItem, error) {
	const query = `
        SELECT oi.id, oi.order_id, oi.pizza, oi.price, oi.quantity, oi.created_at
        FROM order_items oi JOIN orders o ON o.id = oi.order_id
        WHERE o.user_id=$1 AND o.status <> 'cancelled'
        ORDER BY oi.created_at DESC`
	return r.queryItems(ctx, query, userID)
}

func (r *orderRepository) queryItems(ctx context.Context, query string, arg any) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Pizza, &item.Price, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.FinalAmount,
		&order.PaymentID,
		&order.PaymentStatus,
		&order.DeliveryAddress,
		&order.ContactNumber,
		&order.PromotionID,
		&order.PromotionCode,
		&order.PromotionDiscount,
		&order.LoyaltyPointsUsed,
		&order.LoyaltyDiscount,
		&order.EstimatedDeliveryTime,
		&order.ActualDeliveryTime,
		&order.TrackingNote,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}
