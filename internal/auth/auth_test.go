package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/domain"
)

func TestHashAndComparePassword(t *testing.T) {
	stored, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.Contains(t, stored, ".")

	assert.NoError(t, ComparePassword(stored, "s3cret!"))
	assert.ErrorIs(t, ComparePassword(stored, "wrong"), ErrPasswordMismatch)
	assert.ErrorIs(t, ComparePassword("not-a-hash", "s3cret!"), ErrPasswordMismatch)

	other, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, stored, other)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, session, err := tm.GenerateToken(&domain.User{ID: "u1", IsAdmin: true})
	require.NoError(t, err)

	parsed, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, "u1", parsed.UserID)
	assert.True(t, parsed.IsAdmin)

	_, err = NewTokenManager("other", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpires(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return base }
	token, _, err := tm.GenerateToken(&domain.User{ID: "u1"})
	require.NoError(t, err)

	tm.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	require.NoError(t, store.Revoke(ctx, "s1", time.Now().Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "s2", time.Now().Add(-time.Hour)))

	revoked, err := store.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, revoked)
}
