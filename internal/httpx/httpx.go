// Package httpx holds the JSON envelope helpers shared by every handler.
package httpx

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/logging"
)

// JSON writes payload with the provided status code.
func JSON(c fiber.Ctx, status int, payload any) error {
	if err := c.Status(status).JSON(payload); err != nil {
		logging.L().Warn("failed to encode JSON response", zap.Error(err))
		return err
	}
	return nil
}

// OK writes payload with 200.
func OK(c fiber.Ctx, payload any) error {
	return JSON(c, fiber.StatusOK, payload)
}

// Created writes payload with 201.
func Created(c fiber.Ctx, payload any) error {
	return JSON(c, fiber.StatusCreated, payload)
}

// Error writes the standard error envelope.
func Error(c fiber.Ctx, status int, message string) error {
	return JSON(c, status, fiber.Map{
		"error": message,
	})
}

func BadRequest(c fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

func NotFound(c fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

func Conflict(c fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// Internal logs err and writes a 500 with a client-safe message.
func Internal(c fiber.Ctx, message string, err error) error {
	logging.L().Error(message,
		zap.Error(err),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	)
	return Error(c, fiber.StatusInternalServerError, message)
}

// ValidationError reports per-field failures.
func ValidationError(c fiber.Ctx, fields map[string]string) error {
	return JSON(c, fiber.StatusBadRequest, fiber.Map{
		"error":  "Validation failed",
		"fields": fields,
	})
}

// ClientIP attempts to determine the real client IP respecting proxy headers.
func ClientIP(c fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		if ip := net.ParseIP(strings.TrimSpace(realIP)); ip != nil {
			return ip.String()
		}
	}
	return c.IP()
}
