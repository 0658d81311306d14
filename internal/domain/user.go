package domain

import "time"

// MembershipTier is a coarse loyalty classification attached to a user.
type MembershipTier string

const (
	TierBronze   MembershipTier = "bronze"
	TierSilver   MembershipTier = "silver"
	TierGold     MembershipTier = "gold"
	TierPlatinum MembershipTier = "platinum"
)

// User is a registered customer or administrator.
type User struct {
	ID                string
	Username          string
	Email             string
	Password          string
	FullName          string
	Phone             string
	Address           string
	IsAdmin           bool
	IsVerified        bool
	VerificationToken *string
	ResetToken        *string
	ResetTokenExpiry  *time.Time
	LoyaltyPoints     int
	MembershipTier    MembershipTier
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
