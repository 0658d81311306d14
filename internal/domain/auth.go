package domain

import "time"

// Session describes an issued login session.
type Session struct {
	ID        string
	UserID    string
	IsAdmin   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}
