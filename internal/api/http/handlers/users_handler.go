package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/service"
)

// CookieSettings controls the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
}

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth   *service.AuthService
	cookie CookieSettings
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cookie CookieSettings) *UsersHandler {
	if cookie.Name == "" {
		cookie.Name = "pizza_session"
	}
	return &UsersHandler{auth: authService, cookie: cookie}
}

// Register handles POST /api/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}
	h.setSession(c, result)
	return c.Status(http.StatusCreated).JSON(data(h.authResponse(result)))
}

// Login handles POST /api/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.Identifier(), req.Password)
	if err != nil {
		return err
	}
	h.setSession(c, result)
	return c.JSON(data(h.authResponse(result)))
}

// Logout handles POST /api/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), principal.Session); err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Me handles GET /api/user.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Profile(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.User(user)))
}

// UpdateProfile handles PATCH /api/user.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.UpdateProfile(c.UserContext(), principal.User.ID, service.ProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(data(dto.User(user)))
}

// ForgotPassword handles POST /api/forgot-password. The response never reveals whether
// the email is registered.
func (h *UsersHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "if the email is registered, a reset link has been sent"})
}

// ResetPassword handles POST /api/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

// VerifyEmail handles POST /api/verify-email.
func (h *UsersHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.VerifyEmail(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.User(user)))
}

func (h *UsersHandler) setSession(c *fiber.Ctx, result *service.LoginResult) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *UsersHandler) authResponse(result *service.LoginResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:      dto.User(result.User),
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
	}
}
