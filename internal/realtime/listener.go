package realtime

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/logging"
)

// ChannelName is the Postgres NOTIFY channel carrying activity events.
const ChannelName = "gmpcms_activity"

const (
	EventActivity = "activity"
	EventVisit    = "visit"
)

// Event is the JSON payload pushed to dashboards.
type Event struct {
	Type       string    `json:"type"`
	Action     string    `json:"action,omitempty"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Title      string    `json:"title,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Country    string    `json:"country,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Notify queues ev on the channel. Inside a transaction the notification is
// only delivered if the transaction commits.
func Notify(ctx context.Context, db execer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal activity event: %w", err)
	}
	if _, err := db.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChannelName, string(data)); err != nil {
		return fmt.Errorf("notify activity event: %w", err)
	}
	return nil
}

// decodeEvent parses a NOTIFY payload. Malformed payloads are logged and skipped.
func decodeEvent(payload string) (Event, bool) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Type == "" {
		logging.L().Warn("ignoring malformed activity notification", zap.String("payload", payload), zap.Error(err))
		return Event{}, false
	}
	return ev, true
}

var listenerPingInterval = time.Minute

// StartListener subscribes to ChannelName and forwards payloads to hub until
// ctx is cancelled.
func StartListener(ctx context.Context, databaseURL string, hub *Hub) error {
	listener := pq.NewListener(databaseURL, 5*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			logging.L().Warn("activity listener event", zap.Int("event", int(event)), zap.Error(err))
		}
	})

	if err := listener.Listen(ChannelName); err != nil {
		_ = listener.Close()
		return err
	}

	go func() {
		defer func() {
			_ = listener.Close()
		}()

		ping := time.NewTicker(listenerPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// nil after a reconnect; events sent while disconnected are lost.
				if n == nil {
					continue
				}
				if ev, ok := decodeEvent(n.Extra); ok {
					hub.Publish(ev)
				}
			case <-ping.C:
				if err := listener.Ping(); err != nil {
					logging.L().Warn("activity listener ping failed", zap.Error(err))
				}
			}
		}
	}()

	return nil
}
