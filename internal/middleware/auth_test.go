package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmp-id/gmpcms/internal/auth"
	"github.com/gmp-id/gmpcms/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func stubSessionLoader(t *testing.T, stub func(userID, jti string) (*models.Session, error)) {
	t.Helper()
	original := sessionLoader
	sessionLoader = func(_ context.Context, userID, jti string) (*models.Session, error) {
		return stub(userID, jti)
	}
	t.Cleanup(func() {
		sessionLoader = original
	})
}

func activeSession(role string) func(string, string) (*models.Session, error) {
	return func(userID, jti string) (*models.Session, error) {
		return &models.Session{UserID: userID, Email: "a@gmp.or.id", Name: "A", Role: role}, nil
	}
}

func newTestApp(issuer *auth.Issuer, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(RequireAuth(issuer))
	for _, h := range extra {
		app.Use(h)
	}
	app.Get("/", func(c fiber.Ctx) error {
		user := GetUser(c)
		return c.SendString(user.UserID + "|" + user.Role)
	})
	return app
}

func signToken(t *testing.T, issuer *auth.Issuer, role string) (string, *auth.Claims) {
	t.Helper()
	token, claims, err := issuer.Sign(auth.Subject{ID: "u-1", Email: "a@gmp.or.id", Role: role})
	require.NoError(t, err)
	return token, claims
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMissingTokenReturnsUnauthorized(t *testing.T) {
	app := newTestApp(auth.NewIssuer(testSecret, time.Hour))

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "no token provided")
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	app := newTestApp(issuer)
	token, _ := signToken(t, issuer, auth.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token + "x"})

	status, body := do(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "invalid or expired")
}

func TestAuthCookieSuccessUsesDatabaseRole(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, claims := signToken(t, issuer, auth.RoleAdmin)
	stubSessionLoader(t, func(userID, jti string) (*models.Session, error) {
		assert.Equal(t, "u-1", userID)
		assert.Equal(t, claims.ID, jti)
		return &models.Session{UserID: userID, Role: auth.RoleEditor}, nil
	})
	app := newTestApp(issuer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})

	status, body := do(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u-1|editor", body)
}

func TestAuthBearerHeader(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, _ := signToken(t, issuer, auth.RoleAdmin)
	stubSessionLoader(t, activeSession(auth.RoleAdmin))
	app := newTestApp(issuer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer   "+token)

	status, _ := do(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAuthRevokedToken(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, _ := signToken(t, issuer, auth.RoleAdmin)
	stubSessionLoader(t, func(userID, jti string) (*models.Session, error) {
		return &models.Session{UserID: userID, Role: auth.RoleAdmin, Revoked: true}, nil
	})
	app := newTestApp(issuer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})

	status, body := do(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "revoked")
}

func TestAuthTokenIssuedBeforePasswordReset(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, _ := signToken(t, issuer, auth.RoleAdmin)
	stubSessionLoader(t, func(userID, jti string) (*models.Session, error) {
		return &models.Session{UserID: userID, Role: auth.RoleAdmin, TokensValidAfter: time.Now().Add(time.Minute)}, nil
	})
	app := newTestApp(issuer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})

	status, _ := do(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuthDeletedUser(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, _ := signToken(t, issuer, auth.RoleAdmin)
	stubSessionLoader(t, func(string, string) (*models.Session, error) {
		return nil, models.ErrUserNotFound
	})
	app := newTestApp(issuer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})

	status, _ := do(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuthStoreFailure(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, _ := signToken(t, issuer, auth.RoleAdmin)
	stubSessionLoader(t, func(string, string) (*models.Session, error) {
		return nil, errors.New("connection refused")
	})
	app := newTestApp(issuer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})

	status, body := do(t, app, req)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Contains(t, body, "Authentication error")
}

func TestRequireRole(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	token, _ := signToken(t, issuer, auth.RoleEditor)

	stubSessionLoader(t, activeSession(auth.RoleEditor))
	app := newTestApp(issuer, RequireRole(auth.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	status, body := do(t, app, req)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Contains(t, body, "insufficient role")

	stubSessionLoader(t, activeSession(auth.RoleAdmin))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	status, _ = do(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequireRole(auth.RoleAdmin), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
