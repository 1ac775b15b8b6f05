package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Activity is one admin write recorded for the dashboard feed.
type Activity struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"actor_id,omitempty"`
	ActorEmail string    `json:"actor_email"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RecordActivity inserts a into the log, usually inside the write transaction,
// and fills in its id and timestamp.
func RecordActivity(ctx context.Context, q rowQuerier, a *Activity) error {
	var actorID any
	if a.ActorID != "" {
		actorID = a.ActorID
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO activity_log (actor_id, actor_email, action, resource, resource_id, title)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		actorID, a.ActorEmail, a.Action, a.Resource, a.ResourceID, a.Title,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// RecentActivity returns the latest entries, newest first.
func RecentActivity(ctx context.Context, db *sql.DB, limit int) ([]Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(actor_id::text, ''), actor_email, action, resource, resource_id, title, created_at
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Activity, 0, limit)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.ActorID, &a.ActorEmail, &a.Action, &a.Resource, &a.ResourceID, &a.Title, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
