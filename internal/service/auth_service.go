package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/auth"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// AuthService coordinates registration, login and account recovery.
type AuthService struct {
	store       repository.UnitOfWork
	tokens      *auth.TokenManager
	revocations auth.RevocationStore
	resetTTL    time.Duration
	emailFrom   string
	logger      *zap.Logger
	now         func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Store       repository.UnitOfWork
	Tokens      *auth.TokenManager
	Revocations auth.RevocationStore
	ResetTTL    time.Duration
	EmailFrom   string
	Logger      *zap.Logger
	Now         func() time.Time
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
	Address  string
}

// ProfileInput carries optional profile changes.
type ProfileInput struct {
	FullName *string
	Email    *string
	Phone    *string
	Address  *string
}

// LoginResult is returned by Register and Login.
type LoginResult struct {
	User    *domain.User
	Token   string
	Session *domain.Session
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	revocations := deps.Revocations
	if revocations == nil {
		revocations = auth.NewMemoryRevocationStore()
	}
	resetTTL := deps.ResetTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &AuthService{
		store:       deps.Store,
		tokens:      deps.Tokens,
		revocations: revocations,
		resetTTL:    resetTTL,
		emailFrom:   deps.EmailFrom,
		logger:      logger,
		now:         clock(deps.Now),
	}
}

// TokenManager exposes the session token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Revocations exposes the revocation store used by the auth middleware.
func (s *AuthService) Revocations() auth.RevocationStore {
	return s.revocations
}

// Register creates a customer account and starts a session.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	verification := uuid.NewString()
	user := &domain.User{
		Username:          strings.TrimSpace(input.Username),
		Email:             strings.ToLower(strings.TrimSpace(input.Email)),
		Password:          hash,
		FullName:          strings.TrimSpace(input.FullName),
		Phone:             strings.TrimSpace(input.Phone),
		Address:           strings.TrimSpace(input.Address),
		VerificationToken: &verification,
		MembershipTier:    domain.TierBronze,
	}

	users := s.store.Repositories().Users
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username or email already registered", nil)
		}
		return nil, err
	}

	s.sendEmailStub("verify_email", user.Email, verification)
	return s.startSession(user)
}

// Login authenticates by username or email.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	users := s.store.Repositories().Users
	identifier = strings.TrimSpace(identifier)

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.Password, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.startSession(user)
}

// Logout revokes the session until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, session.ID, session.ExpiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Profile returns the current user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// UpdateProfile applies the provided fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*domain.User, error) {
	users := s.store.Repositories().Users
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}

	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			user.Email = email
			user.IsVerified = false
			token := uuid.NewString()
			user.VerificationToken = &token
			s.sendEmailStub("verify_email", email, token)
		}
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		user.Address = strings.TrimSpace(*input.Address)
	}

	if err := users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
		return nil, err
	}
	return user, nil
}

// ForgotPassword issues a reset token when the email is known. Unknown emails succeed silently
// so callers cannot probe for accounts. The token is returned for delivery by the caller.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	users := s.store.Repositories().Users
	user, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	token := uuid.NewString()
	expiry := s.now().Add(s.resetTTL)
	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry
	if err := users.Update(ctx, user); err != nil {
		return "", err
	}

	s.sendEmailStub("reset_password", user.Email, token)
	return token, nil
}

// ResetPassword sets a new password using an unexpired reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	users := s.store.Repositories().Users
	user, err := users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("invalid or expired reset token", nil)
		}
		return err
	}
	if user.ResetTokenExpiry == nil || s.now().After(*user.ResetTokenExpiry) {
		return apperrors.NewValidationError("invalid or expired reset token", nil)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.Password = hash
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	return users.Update(ctx, user)
}

// VerifyEmail marks the account owning token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	users := s.store.Repositories().Users
	user, err := users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("invalid verification token", nil)
		}
		return nil, err
	}
	user.IsVerified = true
	user.VerificationToken = nil
	if err := users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAdmin grants or revokes administrator rights by username.
func (s *AuthService) SetAdmin(ctx context.Context, username string, admin bool) (*domain.User, error) {
	users := s.store.Repositories().Users
	user, err := users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, notFound(err, "user")
	}
	user.IsAdmin = admin
	if err := users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) startSession(user *domain.User) (*LoginResult, error) {
	token, session, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, Session: session}, nil
}

// sendEmailStub stands in for outbound mail delivery.
func (s *AuthService) sendEmailStub(kind, to, token string) {
	if strings.TrimSpace(s.emailFrom) == "" {
		return
	}
	s.logger.Info("email queued",
		zap.String("kind", kind),
		zap.String("from", s.emailFrom),
		zap.String("to", to),
		zap.Int("token_len", len(token)),
	)
}
