package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/httpx"
	"github.com/gmp-id/gmpcms/internal/models"
)

type subscribeRequest struct {
	Email string  `json:"email" validate:"required,email,max=254"`
	Name  *string `json:"name" validate:"omitempty,max=200"`
}

// NewsletterHandler manages public subscriptions.
type NewsletterHandler struct {
	DB *sql.DB
}

// HandleSubscribe adds an address or reactivates a previous subscription.
func (h *NewsletterHandler) HandleSubscribe(c fiber.Ctx) error {
	var req subscribeRequest
	if err := bindJSON(c, &req); err != nil {
		return writeBindError(c, err)
	}

	var inserted bool
	err := h.DB.QueryRowContext(c.Context(), `
		INSERT INTO newsletter_subscriptions (email, name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET
			is_active = TRUE,
			unsubscribed_at = NULL,
			name = COALESCE(EXCLUDED.name, newsletter_subscriptions.name)
		RETURNING (xmax = 0)`,
		models.NormalizeEmail(req.Email), optional(req.Name),
	).Scan(&inserted)
	if err != nil {
		return httpx.Internal(c, "Failed to subscribe", err)
	}

	if !inserted {
		return httpx.OK(c, fiber.Map{"success": true, "message": "Subscription reactivated"})
	}
	return httpx.Created(c, fiber.Map{"success": true, "message": "Subscribed successfully"})
}

// HandleUnsubscribe deactivates an address. Unknown addresses get the same
// answer so the endpoint cannot be used to enumerate the list.
func (h *NewsletterHandler) HandleUnsubscribe(c fiber.Ctx) error {
	var req subscribeRequest
	if err := bindJSON(c, &req); err != nil {
		return writeBindError(c, err)
	}

	if _, err := h.DB.ExecContext(c.Context(), `
		UPDATE newsletter_subscriptions
		SET is_active = FALSE, unsubscribed_at = NOW()
		WHERE email = $1 AND is_active = TRUE`,
		models.NormalizeEmail(req.Email),
	); err != nil {
		return httpx.Internal(c, "Failed to unsubscribe", err)
	}
	return httpx.OK(c, fiber.Map{"success": true, "message": "Unsubscribed successfully"})
}
