package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"

	"github.com/gmp-id/gmpcms/internal/auth"
)

func newRoutedApp(t *testing.T) *fiber.App {
	t.Helper()
	db, _ := newMockDB(t)
	app := fiber.New()
	Register(app, Deps{
		DB:        db,
		Issuer:    auth.NewIssuer("0123456789abcdef0123456789abcdef", time.Hour),
		UploadDir: t.TempDir(),
		MaxUpload: 1 << 20,
		Version:   "1.2.3",
	})
	return app
}

func TestRegisterServesHealthAndVersion(t *testing.T) {
	app := newRoutedApp(t)

	resp, body := perform(t, app, jsonRequest(http.MethodGet, "/health", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, body = perform(t, app, jsonRequest(http.MethodGet, "/api/version", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.2.3", body["version"])
}

func TestRegisterProtectsAdminRoutes(t *testing.T) {
	app := newRoutedApp(t)

	for _, target := range []string{
		"/api/admin/acara",
		"/api/admin/dashboard/stats",
		"/api/admin/dashboard/chart",
		"/api/admin/research-data",
		"/api/admin/newsletter",
		"/api/auth/me",
	} {
		resp, body := perform(t, app, jsonRequest(http.MethodGet, target, ""))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestUpReportsMissingDatabase(t *testing.T) {
	app := fiber.New()
	app.Get("/up", handleUp(nil))

	resp, err := app.Test(jsonRequest(http.MethodGet, "/up", ""))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
