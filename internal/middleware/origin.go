package middleware

import (
	"net/url"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/httpx"
)

// OriginGuard blocks state-changing requests whose Origin (or Referer) names
// a site outside allowed. Requests carrying neither header are let through;
// browsers always send one on cross-site writes.
func OriginGuard(allowed []string) fiber.Handler {
	return func(c fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			origin = refererOrigin(c.Get(fiber.HeaderReferer))
		}
		if origin == "" {
			return c.Next()
		}

		origin = strings.ToLower(origin)
		if slices.Contains(allowed, origin) || origin == strings.ToLower(c.Scheme()+"://"+c.Host()) {
			return c.Next()
		}
		return httpx.Forbidden(c, "Forbidden - origin not allowed")
	}
}

func refererOrigin(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
