package cli

import (
	"github.com/gofiber/fiber/v3"
)

// createFiberConfig returns Fiber configuration.
func createFiberConfig(appName string, maxUploadBytes int64) fiber.Config {
	cfg := fiber.Config{
		AppName: appName,
		// Use X-Forwarded-For to get real client IP behind reverse proxy
		ProxyHeader: fiber.HeaderXForwardedFor,
	}
	// Leave headroom over the file itself for the multipart envelope.
	if limit := maxUploadBytes + 1<<20; maxUploadBytes > 0 && limit > fiber.DefaultBodyLimit {
		cfg.BodyLimit = int(limit)
	}
	return cfg
}
