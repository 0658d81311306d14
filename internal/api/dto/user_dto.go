package dto

import (
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"max=120"`
	Phone    string `json:"phone" validate:"max=30"`
	Address  string `json:"address" validate:"max=500"`
}

// LoginRequest accepts either a username or an email.
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// Identifier returns the login name the caller supplied.
func (r LoginRequest) Identifier() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

// ForgotPasswordRequest starts password recovery.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes password recovery.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// VerifyEmailRequest confirms an email address.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// ProfileRequest carries optional profile changes.
type ProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	IsAdmin        bool      `json:"is_admin"`
	IsVerified     bool      `json:"is_verified"`
	LoyaltyPoints  int       `json:"loyalty_points"`
	MembershipTier string    `json:"membership_tier"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func User(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FullName:       u.FullName,
		Phone:          u.Phone,
		Address:        u.Address,
		IsAdmin:        u.IsAdmin,
		IsVerified:     u.IsVerified,
		LoyaltyPoints:  u.LoyaltyPoints,
		MembershipTier: string(u.MembershipTier),
		CreatedAt:      u.CreatedAt,
	}
}
