package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLookupCountry(t *testing.T, country string) {
	t.Helper()
	original := lookupCountry
	lookupCountry = func(string) string { return country }
	t.Cleanup(func() {
		lookupCountry = original
	})
}

func newVisitorApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	h := &VisitorHandler{DB: db}
	app := fiber.New()
	app.Post("/api/visitor-tracking", h.HandleTrack)
	app.Get("/api/admin/visitor-tracking", h.HandleStats)
	app.Get("/api/admin/visitor-tracking/countries", h.HandleCountries)
	return app, mock
}

func TestTrackViewRecordsAndIncrementsPublication(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	stubNow(t, now)
	stubLookupCountry(t, "ID")
	app, mock := newVisitorApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("publikasi:12:sess-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("publikasi", int64(12), "sess-1", now.Add(-5*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO visitor_tracking`).
		WithArgs("publikasi", int64(12), "Laporan Tahunan", "view", "sess-1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), nil, "ID", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE publications SET view_count = view_count \+ 1 WHERE id = \$1`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, body := perform(t, app, jsonRequest(http.MethodPost, "/api/visitor-tracking",
		`{"contentType":"publikasi","contentId":12,"contentTitle":"Laporan Tahunan","actionType":"view","sessionId":"sess-1"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Visitor action tracked successfully", body["message"])
	assert.Equal(t, "sess-1", body["sessionId"])
}

func TestTrackViewWithinWindowIsDeduplicated(t *testing.T) {
	stubNow(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	app, mock := newVisitorApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("acara:4:sess-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	resp, body := perform(t, app, jsonRequest(http.MethodPost, "/api/visitor-tracking",
		`{"contentType":"acara","contentId":4,"contentTitle":"Temu Warga","actionType":"view","sessionId":"sess-1"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "View already recorded recently", body["message"])
	assert.Equal(t, "sess-1", body["sessionId"])
	require.NoError(t, mock.ExpectationsWereMet(), "a duplicate view writes nothing and rolls back")
}

func TestTrackViewLockFailureIs500(t *testing.T) {
	stubNow(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	stubLookupCountry(t, "")
	app, mock := newVisitorApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	resp, body := perform(t, app, jsonRequest(http.MethodPost, "/api/visitor-tracking",
		`{"contentType":"acara","contentId":4,"contentTitle":"Temu Warga","actionType":"view","sessionId":"sess-1"}`))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to track visitor action", body["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackRequiresContentTitle(t *testing.T) {
	app, mock := newVisitorApp(t)

	for _, payload := range []string{
		`{"contentType":"acara","contentId":4,"actionType":"view"}`,
		`{"contentType":"acara","contentId":4,"contentTitle":"","actionType":"download"}`,
	} {
		resp, body := perform(t, app, jsonRequest(http.MethodPost, "/api/visitor-tracking", payload))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, payload)
		assert.Equal(t, "Missing required field: contentTitle", body["error"], payload)
	}
	require.NoError(t, mock.ExpectationsWereMet(), "nothing is written without a title")
}

func TestTrackDownloadSkipsDedupAndCounter(t *testing.T) {
	stubNow(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	stubLookupCountry(t, "")
	app, mock := newVisitorApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO visitor_tracking`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`SELECT pg_notify`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, body := perform(t, app, jsonRequest(http.MethodPost, "/api/visitor-tracking",
		`{"contentType":"publikasi","contentId":12,"contentTitle":"Laporan","actionType":"download"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["sessionId"], "a session id is issued when none is sent")
}

func TestTrackRejectsUnknownContentType(t *testing.T) {
	app, _ := newVisitorApp(t)

	resp, body := perform(t, app, jsonRequest(http.MethodPost, "/api/visitor-tracking",
		`{"contentType":"video","contentId":1,"contentTitle":"Klip","actionType":"view"}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["error"])
}

func TestTrackRollsBackWhenInsertFails(t *testing.T) {
	stubNow(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	stubLookupCountry(t, "")
	app, mock := newVisitorApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO visitor_tracking`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	resp, body := perform(t, app, jsonRequest(http.MethodPost, "/api/visitor-tracking",
		`{"contentType":"acara","contentId":3,"contentTitle":"Diskusi Publik","actionType":"download"}`))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to track visitor action", body["error"])
}

func TestVisitorStatsWithDailyBreakdown(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	stubNow(t, now)
	app, mock := newVisitorApp(t)
	since := now.AddDate(0, 0, -7)

	mock.ExpectQuery(`FROM visitor_tracking WHERE content_type = \$1 AND content_id = \$2 AND created_at > \$3\s+GROUP BY content_type`).
		WithArgs("acara", int64(4), since).
		WillReturnRows(sqlmock.NewRows([]string{"content_type", "content_id", "content_title", "action_type", "count"}).
			AddRow("acara", int64(4), "Temu Warga", "view", int64(9)))
	mock.ExpectQuery(`GROUP BY day, action_type`).
		WithArgs("acara", int64(4), since).
		WillReturnRows(sqlmock.NewRows([]string{"day", "action_type", "count"}).
			AddRow("2025-05-31", "view", int64(5)).
			AddRow("2025-05-30", "view", int64(4)))

	resp, body := perform(t, app, jsonRequest(http.MethodGet,
		"/api/admin/visitor-tracking?contentType=acara&contentId=4&timeRange=7", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, body["data"], 1)
	daily := body["dailyBreakdown"].([]any)
	require.Len(t, daily, 2)
	assert.Equal(t, "2025-05-31", daily[0].(map[string]any)["date"])
}

func TestVisitorStatsAllTimeWithoutBreakdown(t *testing.T) {
	app, mock := newVisitorApp(t)

	mock.ExpectQuery(`SELECT content_type, content_id`).
		WithArgs("download").
		WillReturnRows(sqlmock.NewRows([]string{"content_type", "content_id", "content_title", "action_type", "count"}))

	resp, body := perform(t, app, jsonRequest(http.MethodGet,
		"/api/admin/visitor-tracking?actionType=download&timeRange=all", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])
	assert.Nil(t, body["dailyBreakdown"])
}

func TestVisitorStatsRejectsBadTimeRange(t *testing.T) {
	app, _ := newVisitorApp(t)

	resp, body := perform(t, app, jsonRequest(http.MethodGet, "/api/admin/visitor-tracking?timeRange=forever", ""))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid timeRange", body["error"])
}

func TestVisitorCountriesAreNamed(t *testing.T) {
	app, mock := newVisitorApp(t)

	mock.ExpectQuery(`WHERE country IS NOT NULL\s+GROUP BY country`).
		WillReturnRows(sqlmock.NewRows([]string{"country", "count"}).
			AddRow("ID", int64(40)).
			AddRow("SG", int64(3)))

	resp, body := perform(t, app, jsonRequest(http.MethodGet, "/api/admin/visitor-tracking/countries?timeRange=all", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "ID", first["code"])
	assert.Equal(t, "Indonesia", first["name"])
	assert.EqualValues(t, 40, first["count"])
}
