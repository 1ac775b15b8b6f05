package handlers

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/httpx"
	"github.com/gmp-id/gmpcms/internal/models"
)

// dashboardTables are counted for the overview, keyed by the name clients see.
var dashboardTables = []struct {
	key, table string
}{
	{"authors", "authors"},
	{"events", "events"},
	{"publications", "publications"},
	{"programs", "programs"},
	{"careers", "careers"},
	{"discussions", "discussions"},
	{"partners", "partners"},
	{"testimonials", "testimonials"},
	{"subscribers", "newsletter_subscriptions"},
}

// DashboardHandler serves the admin overview.
type DashboardHandler struct {
	DB *sql.DB
}

// TopPublication is one entry of the most-viewed list.
type TopPublication struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	ViewCount int64  `json:"view_count"`
}

// HandleStats returns row counts per content table and recent traffic.
func (h *DashboardHandler) HandleStats(c fiber.Ctx) error {
	ctx := c.Context()

	totals := make(map[string]int64, len(dashboardTables))
	for _, t := range dashboardTables {
		var n int64
		if err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(&n); err != nil {
			return httpx.Internal(c, "Failed to fetch dashboard stats", fmt.Errorf("count %s: %w", t.table, err))
		}
		totals[t.key] = n
	}

	var openEvents int64
	if err := h.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE is_registration_open = TRUE AND event_date >= CURRENT_DATE",
	).Scan(&openEvents); err != nil {
		return httpx.Internal(c, "Failed to fetch dashboard stats", err)
	}

	since := nowFunc().AddDate(0, 0, -30)
	var views, downloads int64
	if err := h.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE action_type = 'view'),
			COUNT(*) FILTER (WHERE action_type = 'download')
		FROM visitor_tracking
		WHERE created_at > $1`, since,
	).Scan(&views, &downloads); err != nil {
		return httpx.Internal(c, "Failed to fetch dashboard stats", err)
	}

	rows, err := h.DB.QueryContext(ctx, `
		SELECT id, title, slug, view_count
		FROM publications
		ORDER BY view_count DESC, id DESC
		LIMIT 5`)
	if err != nil {
		return httpx.Internal(c, "Failed to fetch dashboard stats", err)
	}
	defer func() { _ = rows.Close() }()
	top := make([]TopPublication, 0, 5)
	for rows.Next() {
		var p TopPublication
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.ViewCount); err != nil {
			return httpx.Internal(c, "Failed to fetch dashboard stats", err)
		}
		top = append(top, p)
	}
	if err := rows.Err(); err != nil {
		return httpx.Internal(c, "Failed to fetch dashboard stats", err)
	}

	return httpx.OK(c, fiber.Map{
		"success": true,
		"data": fiber.Map{
			"totals":          totals,
			"openEvents":      openEvents,
			"views30d":        views,
			"downloads30d":    downloads,
			"topPublications": top,
		},
	})
}

// HandleActivity returns the latest admin writes.
func (h *DashboardHandler) HandleActivity(c fiber.Ctx) error {
	limit := min(max(fiber.Query[int](c, "limit", 20), 1), 100)
	entries, err := models.RecentActivity(c.Context(), h.DB, limit)
	if err != nil {
		return httpx.Internal(c, "Failed to fetch activity", err)
	}
	return httpx.OK(c, fiber.Map{"success": true, "data": entries})
}

// chartMonths is how many calendar months the activity chart covers.
const chartMonths = 6

var shortMonthsID = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// ChartPoint is the number of items created in one calendar month.
type ChartPoint struct {
	Month        string `json:"month"`
	Key          string `json:"key"`
	Events       int64  `json:"events"`
	Publications int64  `json:"publications"`
	Discussions  int64  `json:"discussions"`
}

// HandleChart returns monthly creation counts for the last six months, oldest first.
// Months without rows are reported with zero counts.
func (h *DashboardHandler) HandleChart(c fiber.Ctx) error {
	now := nowFunc().UTC()
	start := time.Date(now.Year(), now.Month()-(chartMonths-1), 1, 0, 0, 0, 0, time.UTC)

	points := make([]ChartPoint, chartMonths)
	index := make(map[string]int, chartMonths)
	for i := range points {
		m := start.AddDate(0, i, 0)
		key := m.Format("2006-01")
		points[i] = ChartPoint{Month: fmt.Sprintf("%s %d", shortMonthsID[m.Month()-1], m.Year()), Key: key}
		index[key] = i
	}

	rows, err := h.DB.QueryContext(c.Context(), `
		SELECT 'events', date_trunc('month', created_at AT TIME ZONE 'UTC'), COUNT(*)
		FROM events WHERE created_at >= $1 GROUP BY 2
		UNION ALL
		SELECT 'publications', date_trunc('month', created_at AT TIME ZONE 'UTC'), COUNT(*)
		FROM publications WHERE created_at >= $1 GROUP BY 2
		UNION ALL
		SELECT 'discussions', date_trunc('month', created_at AT TIME ZONE 'UTC'), COUNT(*)
		FROM discussions WHERE created_at >= $1 GROUP BY 2`, start)
	if err != nil {
		return httpx.Internal(c, "Failed to fetch chart data", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var kind string
		var month time.Time
		var n int64
		if err := rows.Scan(&kind, &month, &n); err != nil {
			return httpx.Internal(c, "Failed to fetch chart data", err)
		}
		i, ok := index[month.Format("2006-01")]
		if !ok {
			continue
		}
		switch kind {
		case "events":
			points[i].Events = n
		case "publications":
			points[i].Publications = n
		case "discussions":
			points[i].Discussions = n
		}
	}
	if err := rows.Err(); err != nil {
		return httpx.Internal(c, "Failed to fetch chart data", err)
	}

	return httpx.OK(c, fiber.Map{"success": true, "data": points})
}
