package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/slicehouse/pizzeria/internal/domain"
)

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password, full_name, phone, address, is_admin, is_verified,
        verification_token, reset_token, reset_token_expiry, loyalty_points, membership_tier, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, username, email, password, full_name, phone, address, is_admin, is_verified,
            verification_token, loyalty_points, membership_tier)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING created_at, updated_at`

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.MembershipTier == "" {
		user.MembershipTier = domain.TierBronze
	}
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Password,
		user.FullName,
		user.Phone,
		user.Address,
		user.IsAdmin,
		user.IsVerified,
		user.VerificationToken,
		user.LoyaltyPoints,
		user.MembershipTier,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

// Update writes profile and credential fields. Loyalty balance is only changed through AdjustLoyaltyPoints.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET username=$1, email=$2, password=$3, full_name=$4, phone=$5, address=$6,
            is_admin=$7, is_verified=$8, verification_token=$9, reset_token=$10, reset_token_expiry=$11,
            membership_tier=$12, updated_at=NOW()
        WHERE id=$13
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.Password,
		user.FullName,
		user.Phone,
		user.Address,
		user.IsAdmin,
		user.IsVerified,
		user.VerificationToken,
		user.ResetToken,
		user.ResetTokenExpiry,
		user.MembershipTier,
		user.ID,
	).Scan(&user.UpdatedAt)
	return translate(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token=$1`, token)
}

func (r *userRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token=$1`, token)
}

func (r *userRepository) AdjustLoyaltyPoints(ctx context.Context, userID string, delta int) (int, error) {
	const query = `
        UPDATE users SET loyalty_points = loyalty_points + $1, updated_at=NOW()
        WHERE id=$2 AND loyalty_points + $1 >= 0
        RETURNING loyalty_points`

	var balance int
	err := r.db.QueryRow(ctx, query, delta, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, userID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrInsufficientPoints
	}
	if err != nil {
		return 0, translate(err)
	}
	return balance, nil
}

func (r *userRepository) SetMembershipTier(ctx context.Context, userID string, tier domain.MembershipTier) error {
	const query = `UPDATE users SET membership_tier=$1, updated_at=NOW() WHERE id=$2`
	return requireAffected(r.db.Exec(ctx, query, tier, userID))
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.FullName,
		&user.Phone,
		&user.Address,
		&user.IsAdmin,
		&user.IsVerified,
		&user.VerificationToken,
		&user.ResetToken,
		&user.ResetTokenExpiry,
		&user.LoyaltyPoints,
		&user.MembershipTier,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
