package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/slicehouse/pizzeria/internal/domain"
)

type promotionRepository struct {
	db DBTX
}

// NewPromotionRepository constructs repository.
func NewPromotionRepository(db DBTX) PromotionRepository {
	return &promotionRepository{db: db}
}

const promotionColumns = `id, code, description, discount_type, discount_value, min_order_amount,
        max_uses, current_uses, start_date, end_date, is_active, created_at, updated_at`

func (r *promotionRepository) Create(ctx context.Context, promo *domain.Promotion) error {
	const query = `
        INSERT INTO promotions (id, code, description, discount_type, discount_value, min_order_amount,
            max_uses, current_uses, start_date, end_date, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`

	if promo.ID == "" {
		promo.ID = uuid.NewString()
	}
	return translate(r.db.QueryRow(ctx, query,
		promo.ID,
		promo.Code,
		promo.Description,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MinOrderAmount,
		promo.MaxUses,
		promo.CurrentUses,
		promo.StartDate,
		promo.EndDate,
		promo.IsActive,
	).Scan(&promo.CreatedAt, &promo.UpdatedAt))
}

// Update leaves current_uses alone; usage only moves through IncrementUsage.
func (r *promotionRepository) Update(ctx context.Context, promo *domain.Promotion) error {
	const query = `
        UPDATE promotions SET code=$1, description=$2, discount_type=$3, discount_value=$4,
            min_order_amount=$5, max_uses=$6, start_date=$7, end_date=$8, is_active=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`

	return translate(r.db.QueryRow(ctx, query,
		promo.Code,
		promo.Description,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MinOrderAmount,
		promo.MaxUses,
		promo.StartDate,
		promo.EndDate,
		promo.IsActive,
		promo.ID,
	).Scan(&promo.UpdatedAt))
}

func (r *promotionRepository) Delete(ctx context.Context, id string) error {
	return requireAffected(r.db.Exec(ctx, `DELETE FROM promotions WHERE id=$1`, id))
}

func (r *promotionRepository) GetByID(ctx context.Context, id string) (*domain.Promotion, error) {
	return r.fetchSingle(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id=$1`, id)
}

func (r *promotionRepository) GetByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	return r.fetchSingle(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE code=$1`, domain.NormalizeCode(code))
}

func (r *promotionRepository) List(ctx context.Context, filter PromotionFilter) ([]domain.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions`
	if filter.ActiveOnly {
		query += ` WHERE is_active AND start_date <= NOW() AND end_date >= NOW() AND current_uses < max_uses`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := []domain.Promotion{}
	for rows.Next() {
		promo, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, *promo)
	}
	return promos, rows.Err()
}

func (r *promotionRepository) IncrementUsage(ctx context.Context, id string) error {
	const query = `
        UPDATE promotions SET current_uses = current_uses + 1, updated_at=NOW()
        WHERE id=$1 AND current_uses < max_uses
        RETURNING current_uses`

	var uses int
	err := r.db.QueryRow(ctx, query, id).Scan(&uses)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrUsageLimitReached
	}
	return translate(err)
}

func (r *promotionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Promotion, error) {
	promo, err := scanPromotion(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return promo, nil
}

func scanPromotion(row pgx.Row) (*domain.Promotion, error) {
	var promo domain.Promotion
	if err := row.Scan(
		&promo.ID,
		&promo.Code,
		&promo.Description,
		&promo.DiscountType,
		&promo.DiscountValue,
		&promo.MinOrderAmount,
		&promo.MaxUses,
		&promo.CurrentUses,
		&promo.StartDate,
		&promo.EndDate,
		&promo.IsActive,
		&promo.CreatedAt,
		&promo.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &promo, nil
}
