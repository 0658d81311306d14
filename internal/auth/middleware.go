package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User    *domain.User
	Session *domain.Session
}

// AuthMiddleware validates session tokens and loads the user.
type AuthMiddleware struct {
	tokens      *TokenManager
	users       repository.UserRepository
	revocations RevocationStore
	cookieName  string
	logger      *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, revocations RevocationStore, cookieName string, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, users: users, revocations: revocations, cookieName: cookieName, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw := m.extractToken(c)
	if raw == "" {
		return apperrors.NewUnauthorized("authentication required")
	}

	session, err := m.tokens.ParseToken(raw)
	if err != nil {
		return apperrors.NewUnauthorized("invalid session")
	}

	revoked, err := m.revocations.IsRevoked(c.UserContext(), session.ID)
	if err != nil {
		m.logger.Error("session revocation lookup failed", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	if revoked {
		return apperrors.NewUnauthorized("session has ended")
	}

	user, err := m.users.GetByID(c.UserContext(), session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.NewInternalError(err)
	}

	c.Locals(principalKey, &Principal{User: user, Session: session})
	return c.Next()
}

// Optional loads the principal when a valid session is presented and otherwise lets the
// request through anonymously.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	raw := m.extractToken(c)
	if raw == "" {
		return c.Next()
	}
	session, err := m.tokens.ParseToken(raw)
	if err != nil {
		return c.Next()
	}
	if revoked, err := m.revocations.IsRevoked(c.UserContext(), session.ID); err != nil || revoked {
		return c.Next()
	}
	if user, err := m.users.GetByID(c.UserContext(), session.UserID); err == nil {
		c.Locals(principalKey, &Principal{User: user, Session: session})
	}
	return c.Next()
}

// extractToken reads the session cookie, then the bearer header, then the token query
// parameter used by websocket clients that cannot set headers.
func (m *AuthMiddleware) extractToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(m.cookieName); cookie != "" {
		return cookie
	}
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
