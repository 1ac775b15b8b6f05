package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/gmp-id/gmpcms/internal/database"
	"github.com/gmp-id/gmpcms/internal/geoip"
	"github.com/gmp-id/gmpcms/internal/httpx"
	"github.com/gmp-id/gmpcms/internal/realtime"
)

// viewDedupWindow suppresses repeat views from one session, e.g. refreshes.
const viewDedupWindow = 5 * time.Minute

var nowFunc = time.Now

// lookupCountry can be mocked in tests
var lookupCountry = geoip.LookupCountry

// TrackRequest is the body of POST /api/visitor-tracking.
type TrackRequest struct {
	ContentType  string `json:"contentType" validate:"required,oneof=publikasi acara"`
	ContentID    int64  `json:"contentId" validate:"required,gt=0"`
	ContentTitle string `json:"contentTitle" validate:"required,max=500"`
	ActionType   string `json:"actionType" validate:"required,oneof=view download"`
	SessionID    string `json:"sessionId" validate:"max=128"`
}

// VisitorHandler records and reports content views and downloads.
type VisitorHandler struct {
	DB *sql.DB
}

// HandleTrack records one visitor action.
func (h *VisitorHandler) HandleTrack(c fiber.Ctx) error {
	var req TrackRequest
	if err := bindJSON(c, &req); err != nil {
		return writeBindError(c, err)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := nowFunc()
	ctx := c.Context()

	ip := httpx.ClientIP(c)
	country := lookupCountry(ip)

	err := database.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		if req.ActionType == "view" {
			seen, err := recentlyViewed(ctx, tx, req, sessionID, now)
			if err != nil {
				return err
			}
			if seen {
				return errAlreadyViewed
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO visitor_tracking
				(content_type, content_id, content_title, action_type, session_id, user_agent, ip_address, referrer, country, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			req.ContentType, req.ContentID, nullable(req.ContentTitle), req.ActionType, sessionID,
			nullable(c.Get(fiber.HeaderUserAgent)), nullable(ip), nullable(c.Get(fiber.HeaderReferer)),
			nullable(country), now,
		); err != nil {
			return fmt.Errorf("insert visitor action: %w", err)
		}

		if req.ContentType == "publikasi" && req.ActionType == "view" {
			if _, err := tx.ExecContext(ctx,
				"UPDATE publications SET view_count = view_count + 1 WHERE id = $1", req.ContentID); err != nil {
				return fmt.Errorf("increment view count: %w", err)
			}
		}

		return realtime.Notify(ctx, tx, realtime.Event{
			Type:       realtime.EventVisit,
			Action:     req.ActionType,
			Resource:   req.ContentType,
			ResourceID: strconv.FormatInt(req.ContentID, 10),
			Title:      req.ContentTitle,
			Country:    country,
			CreatedAt:  now,
		})
	})
	if errors.Is(err, errAlreadyViewed) {
		return httpx.OK(c, fiber.Map{
			"success":   true,
			"message":   "View already recorded recently",
			"sessionId": sessionID,
		})
	}
	if err != nil {
		return httpx.Internal(c, "Failed to track visitor action", err)
	}

	return httpx.OK(c, fiber.Map{
		"success":   true,
		"message":   "Visitor action tracked successfully",
		"sessionId": sessionID,
	})
}

// errAlreadyViewed rolls back a view seen within viewDedupWindow.
var errAlreadyViewed = errors.New("view already recorded")

// recentlyViewed takes a transaction-scoped advisory lock on the
// session/content pair before looking, so concurrent views from one session
// are serialized and only the first is recorded.
func recentlyViewed(ctx context.Context, tx *sql.Tx, req TrackRequest, sessionID string, now time.Time) (bool, error) {
	key := fmt.Sprintf("%s:%d:%s", req.ContentType, req.ContentID, sessionID)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return false, fmt.Errorf("lock view session: %w", err)
	}

	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM visitor_tracking
			WHERE content_type = $1 AND content_id = $2 AND action_type = 'view'
			  AND session_id = $3 AND created_at > $4
		)`,
		req.ContentType, req.ContentID, sessionID, now.Add(-viewDedupWindow),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent views: %w", err)
	}
	return exists, nil
}

// ContentStat is one grouped visitor count.
type ContentStat struct {
	ContentType  string `json:"contentType"`
	ContentID    int64  `json:"contentId"`
	ContentTitle string `json:"contentTitle"`
	ActionType   string `json:"actionType"`
	Count        int64  `json:"count"`
}

// DailyStat is one day's count for a single action type.
type DailyStat struct {
	Date       string `json:"date"`
	ActionType string `json:"actionType"`
	Count      int64  `json:"count"`
}

// visitorFilter holds the validated query parameters of the stats endpoints.
type visitorFilter struct {
	contentType string
	contentID   int64
	actionType  string
	since       *time.Time
}

func parseVisitorFilter(c fiber.Ctx) (visitorFilter, error) {
	var f visitorFilter
	switch ct := c.Query("contentType"); ct {
	case "", "all":
	case "publikasi", "acara":
		f.contentType = ct
	default:
		return f, invalidInput("Invalid content type")
	}
	switch at := c.Query("actionType"); at {
	case "", "all":
	case "view", "download":
		f.actionType = at
	default:
		return f, invalidInput("Invalid action type")
	}
	if raw := c.Query("contentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, invalidInput("Invalid content ID")
		}
		f.contentID = id
	}

	timeRange := c.Query("timeRange", "30")
	if timeRange != "all" {
		days, err := strconv.Atoi(timeRange)
		if err != nil || days <= 0 || days > 3650 {
			return f, invalidInput("Invalid timeRange")
		}
		since := nowFunc().AddDate(0, 0, -days)
		f.since = &since
	}
	return f, nil
}

// where renders the filter as a WHERE clause with positional args.
func (f visitorFilter) where(extra ...string) (string, []any) {
	conds := append([]string(nil), extra...)
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.contentType != "" {
		add("content_type = $%d", f.contentType)
	}
	if f.contentID != 0 {
		add("content_id = $%d", f.contentID)
	}
	if f.actionType != "" {
		add("action_type = $%d", f.actionType)
	}
	if f.since != nil {
		add("created_at > $%d", *f.since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// HandleStats returns grouped counts and, for one content item, a daily breakdown.
func (h *VisitorHandler) HandleStats(c fiber.Ctx) error {
	f, err := parseVisitorFilter(c)
	if err != nil {
		return writeBindError(c, err)
	}
	ctx := c.Context()

	where, args := f.where()
	rows, err := h.DB.QueryContext(ctx, `
		SELECT content_type, content_id, COALESCE(content_title, ''), action_type, COUNT(*)
		FROM visitor_tracking`+where+`
		GROUP BY content_type, content_id, content_title, action_type
		ORDER BY COUNT(*) DESC`, args...)
	if err != nil {
		return httpx.Internal(c, "Failed to fetch visitor statistics", err)
	}
	stats := make([]ContentStat, 0)
	for rows.Next() {
		var s ContentStat
		if err := rows.Scan(&s.ContentType, &s.ContentID, &s.ContentTitle, &s.ActionType, &s.Count); err != nil {
			_ = rows.Close()
			return httpx.Internal(c, "Failed to fetch visitor statistics", err)
		}
		stats = append(stats, s)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return httpx.Internal(c, "Failed to fetch visitor statistics", err)
	}

	var daily []DailyStat
	if f.contentType != "" && f.contentID != 0 {
		daily, err = h.dailyBreakdown(ctx, f)
		if err != nil {
			return httpx.Internal(c, "Failed to fetch visitor statistics", err)
		}
	}

	return httpx.OK(c, fiber.Map{
		"success":        true,
		"data":           stats,
		"dailyBreakdown": daily,
	})
}

func (h *VisitorHandler) dailyBreakdown(ctx context.Context, f visitorFilter) ([]DailyStat, error) {
	// The breakdown covers every action type of the item.
	f.actionType = ""
	where, args := f.where()
	rows, err := h.DB.QueryContext(ctx, `
		SELECT TO_CHAR(created_at, 'YYYY-MM-DD') AS day, action_type, COUNT(*)
		FROM visitor_tracking`+where+`
		GROUP BY day, action_type
		ORDER BY day DESC, action_type`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	daily := make([]DailyStat, 0)
	for rows.Next() {
		var d DailyStat
		if err := rows.Scan(&d.Date, &d.ActionType, &d.Count); err != nil {
			return nil, err
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

// CountryStat is the visitor count of one country.
type CountryStat struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// HandleCountries groups visitor actions by resolved country.
func (h *VisitorHandler) HandleCountries(c fiber.Ctx) error {
	f, err := parseVisitorFilter(c)
	if err != nil {
		return writeBindError(c, err)
	}

	where, args := f.where("country IS NOT NULL")
	rows, err := h.DB.QueryContext(c.Context(), `
		SELECT country, COUNT(*)
		FROM visitor_tracking`+where+`
		GROUP BY country
		ORDER BY COUNT(*) DESC, country`, args...)
	if err != nil {
		return httpx.Internal(c, "Failed to fetch visitor countries", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]CountryStat, 0)
	for rows.Next() {
		var s CountryStat
		if err := rows.Scan(&s.Code, &s.Count); err != nil {
			return httpx.Internal(c, "Failed to fetch visitor countries", err)
		}
		s.Code = strings.TrimSpace(s.Code)
		s.Name = geoip.CountryName(s.Code)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return httpx.Internal(c, "Failed to fetch visitor countries", err)
	}

	return httpx.OK(c, fiber.Map{"success": true, "data": result})
}

func nullable(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}
