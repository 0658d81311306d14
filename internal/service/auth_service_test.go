package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/auth"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

func newAuthService(t *testing.T, now func() time.Time) *AuthService {
	t.Helper()
	return NewAuthService(AuthDependencies{
		Store:  newStore(t),
		Tokens: auth.NewTokenManager("test-secret", time.Hour),
		Now:    now,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t, fixedClock)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Username: "wendy", Email: "Wendy@Example.com", Password: "pizza123"})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "wendy@example.com", registered.User.Email)
	assert.NotEqual(t, "pizza123", registered.User.Password)

	_, err = svc.Register(ctx, RegisterInput{Username: "wendy", Email: "other@example.com", Password: "pizza123"})
	assert.True(t, apperrors.IsStatus(err, http.StatusConflict))

	byName, err := svc.Login(ctx, "wendy", "pizza123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, byName.User.ID)

	byEmail, err := svc.Login(ctx, "WENDY@example.com", "pizza123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, byEmail.User.ID)

	_, err = svc.Login(ctx, "wendy", "wrong")
	assert.True(t, apperrors.IsStatus(err, http.StatusUnauthorized))
	_, err = svc.Login(ctx, "nobody", "pizza123")
	assert.True(t, apperrors.IsStatus(err, http.StatusUnauthorized))
}

func TestLogoutRevokesSession(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()
	result, err := svc.Register(ctx, RegisterInput{Username: "xena", Email: "xena@example.com", Password: "pizza123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Session))
	revoked, err := svc.Revocations().IsRevoked(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestPasswordResetFlow(t *testing.T) {
	now := testNow
	svc := newAuthService(t, func() time.Time { return now })
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "yuri", Email: "yuri@example.com", Password: "pizza123"})
	require.NoError(t, err)

	token, err := svc.ForgotPassword(ctx, "unknown@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = svc.ForgotPassword(ctx, "yuri@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	now = testNow.Add(61 * time.Minute)
	err = svc.ResetPassword(ctx, token, "newpass1")
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	now = testNow.Add(30 * time.Minute)
	require.NoError(t, svc.ResetPassword(ctx, token, "newpass1"))
	_, err = svc.Login(ctx, "yuri", "newpass1")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, token, "again123")
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest), "token is single use")
}

func TestVerifyEmail(t *testing.T) {
	svc := newAuthService(t, fixedClock)
	ctx := context.Background()
	result, err := svc.Register(ctx, RegisterInput{Username: "zoe", Email: "zoe@example.com", Password: "pizza123"})
	require.NoError(t, err)
	require.NotNil(t, result.User.VerificationToken)

	user, err := svc.VerifyEmail(ctx, *result.User.VerificationToken)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.VerificationToken)

	_, err = svc.VerifyEmail(ctx, "bogus")
	assert.True(t, apperrors.IsStatus(err, http.StatusBadRequest))
}

func TestUpdateProfile(t *testing.T) {
	svc := newAuthService(t, fixedClock)
	ctx := context.Background()
	result, err := svc.Register(ctx, RegisterInput{Username: "adam", Email: "adam@example.com", Password: "pizza123"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "beth", Email: "beth@example.com", Password: "pizza123"})
	require.NoError(t, err)

	address := "  1 Infinite Loop, Cupertino "
	user, err := svc.UpdateProfile(ctx, result.User.ID, ProfileInput{Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "1 Infinite Loop, Cupertino", user.Address)

	taken := "beth@example.com"
	_, err = svc.UpdateProfile(ctx, result.User.ID, ProfileInput{Email: &taken})
	assert.True(t, apperrors.IsStatus(err, http.StatusConflict))
}

func TestSetAdmin(t *testing.T) {
	svc := newAuthService(t, fixedClock)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "carl", Email: "carl@example.com", Password: "pizza123"})
	require.NoError(t, err)

	user, err := svc.SetAdmin(ctx, "carl", true)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	_, err = svc.SetAdmin(ctx, "nobody", true)
	assert.True(t, apperrors.IsStatus(err, http.StatusNotFound))
}
