package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/slicehouse/pizzeria/internal/domain"
)

type notificationRepository struct {
	db DBTX
}

// NewNotificationRepository constructs repository.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, title, message, type, is_read, link, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, user_id, title, message, type, is_read, link)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return translate(r.db.QueryRow(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.IsRead,
		n.Link,
	).Scan(&n.CreatedAt))
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1`, id))
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.Link, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
