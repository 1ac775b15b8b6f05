package middleware

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/auth"
	"github.com/gmp-id/gmpcms/internal/database"
	"github.com/gmp-id/gmpcms/internal/httpx"
	"github.com/gmp-id/gmpcms/internal/logging"
	"github.com/gmp-id/gmpcms/internal/models"
)

// UserContext holds the authenticated user information
type UserContext struct {
	UserID    string
	Email     string
	Name      string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type localsKey string

const userLocalsKey localsKey = "user"

// sessionLoader reads user and revocation state (can be mocked in tests)
var sessionLoader = func(ctx context.Context, userID, jti string) (*models.Session, error) {
	return models.LoadSession(ctx, database.DB, userID, jti)
}

// RequireAuth validates the session token from the cookie or a Bearer header
// and loads the user into the request locals.
func RequireAuth(issuer *auth.Issuer) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := ExtractToken(c)
		if token == "" {
			return httpx.Unauthorized(c, "Unauthorized - no token provided")
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			return httpx.Unauthorized(c, "Unauthorized - invalid or expired token")
		}

		session, err := sessionLoader(c.Context(), claims.Subject, claims.ID)
		if errors.Is(err, models.ErrUserNotFound) {
			return httpx.Unauthorized(c, "Unauthorized - invalid or expired token")
		}
		if err != nil {
			logging.L().Error("failed to load session", zap.Error(err))
			return httpx.Error(c, fiber.StatusInternalServerError, "Authentication error")
		}
		if session.Revoked {
			return httpx.Unauthorized(c, "Unauthorized - token revoked")
		}
		if claims.IssuedAt != nil && claims.IssuedAt.Time.Before(session.TokensValidAfter) {
			return httpx.Unauthorized(c, "Unauthorized - token revoked")
		}

		// Role comes from the database so demotions apply immediately.
		c.Locals(userLocalsKey, &UserContext{
			UserID:    session.UserID,
			Email:     session.Email,
			Name:      session.Name,
			Role:      session.Role,
			TokenID:   claims.ID,
			ExpiresAt: claims.Expiry(),
		})

		return c.Next()
	}
}

// RequireRole rejects authenticated users whose role is not listed.
// It must run after RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return httpx.Unauthorized(c, "Unauthorized - no token provided")
		}
		if !slices.Contains(roles, user.Role) {
			return httpx.Forbidden(c, "Forbidden - insufficient role")
		}
		return c.Next()
	}
}

// GetUser retrieves the authenticated user from context
func GetUser(c fiber.Ctx) *UserContext {
	if user, ok := c.Locals(userLocalsKey).(*UserContext); ok {
		return user
	}
	return nil
}

// ExtractToken prefers the session cookie, then an Authorization Bearer header.
func ExtractToken(c fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(auth.CookieName)); token != "" {
		return token
	}
	fields := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(fields) == 2 && strings.EqualFold(fields[0], "Bearer") {
		return strings.Trim(fields[1], `"'`)
	}
	return ""
}
