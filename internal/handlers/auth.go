package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/auth"
	"github.com/gmp-id/gmpcms/internal/database"
	"github.com/gmp-id/gmpcms/internal/httpx"
	"github.com/gmp-id/gmpcms/internal/logging"
	"github.com/gmp-id/gmpcms/internal/middleware"
	"github.com/gmp-id/gmpcms/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of the signed-in account.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

var (
	fetchUserByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return models.GetUserByEmail(ctx, database.DB, email)
	}
	touchLastLogin = func(ctx context.Context, userID string) error {
		return models.TouchLastLogin(ctx, database.DB, userID)
	}
	revokeToken = func(ctx context.Context, jti, userID string, expiresAt time.Time) error {
		return models.RevokeToken(ctx, database.DB, jti, userID, expiresAt)
	}
)

// AuthHandler serves login, logout and the current-user lookup.
type AuthHandler struct {
	Issuer        *auth.Issuer
	SecureCookies bool
}

// HandleLogin authenticates by email and password and sets the session cookie.
func (h *AuthHandler) HandleLogin(c fiber.Ctx) error {
	var req LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return httpx.BadRequest(c, "Invalid request body")
	}

	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return httpx.BadRequest(c, "Email and password are required")
	}

	user, err := fetchUserByEmail(c.Context(), email)
	if errors.Is(err, models.ErrUserNotFound) {
		return httpx.Unauthorized(c, "Invalid email or password")
	}
	if err != nil {
		return httpx.Internal(c, "Login failed", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return httpx.Unauthorized(c, "Invalid email or password")
	}

	token, claims, err := h.Issuer.Sign(auth.Subject{ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return httpx.Internal(c, "Login failed", err)
	}

	if err := touchLastLogin(c.Context(), user.ID); err != nil {
		logging.L().Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	c.Cookie(h.sessionCookie(token, claims.Expiry()))

	return httpx.OK(c, fiber.Map{
		"success": true,
		"data": UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
			Name:  user.Name,
		},
	})
}

// HandleLogout revokes the presented token, if still valid, and clears the
// cookie. It always succeeds so a stale browser can sign out.
func (h *AuthHandler) HandleLogout(c fiber.Ctx) error {
	if token := middleware.ExtractToken(c); token != "" {
		if claims, err := h.Issuer.Verify(token); err == nil {
			if err := revokeToken(c.Context(), claims.ID, claims.Subject, claims.Expiry()); err != nil {
				return httpx.Internal(c, "Logout failed", err)
			}
		}
	}

	c.Cookie(h.sessionCookie("", time.Unix(0, 0)))

	return httpx.OK(c, fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// HandleMe returns the current user. It must run behind RequireAuth.
func (h *AuthHandler) HandleMe(c fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return httpx.Unauthorized(c, "Unauthorized")
	}
	return httpx.OK(c, fiber.Map{
		"success": true,
		"data": UserResponse{
			ID:    user.UserID,
			Email: user.Email,
			Role:  user.Role,
			Name:  user.Name,
		},
	})
}

// sessionCookie builds the token cookie; an empty value expires it.
func (h *AuthHandler) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	maxAge := int(h.Issuer.TTL().Seconds())
	if value == "" {
		maxAge = -1
	}
	return &fiber.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
