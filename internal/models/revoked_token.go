package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken blacklists a token id until it would have expired anyway.
func RevokeToken(ctx context.Context, db *sql.DB, jti, userID string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`,
		jti, userID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
