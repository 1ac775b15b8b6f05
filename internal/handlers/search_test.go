package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmp-id/gmpcms/internal/crud"
)

func searchResource(table string) *crud.Resource {
	return &crud.Resource{
		Name:         table,
		Table:        table,
		Columns:      []string{"id", "slug", "title", "title_en", "description"},
		SearchFields: []string{"title"},
		DefaultSort:  "id",
		Localized:    []string{"title"},
	}
}

func TestSearchIgnoresShortQueries(t *testing.T) {
	db, _ := newMockDB(t)
	h := NewSearchHandler(crud.NewStore(db), searchResource("publications"), searchResource("events"), searchResource("programs"))

	app := fiber.New()
	app.Get("/api/search", h.HandleSearch)

	resp, body := perform(t, app, jsonRequest(http.MethodGet, "/api/search?q=a", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])
}

func TestSearchMergesSourcesInOrder(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewSearchHandler(crud.NewStore(db), searchResource("publications"), searchResource("events"), searchResource("programs"))

	app := fiber.New()
	app.Get("/api/search", h.HandleSearch)

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "slug", "title", "title_en", "description"})
	}
	count := func(n int64) *sqlmock.Rows { return sqlmock.NewRows([]string{"count"}).AddRow(n) }

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM publications WHERE \(title ILIKE \$1\)`).
		WithArgs("%pemilu%").WillReturnRows(count(1))
	mock.ExpectQuery(`FROM publications WHERE .* LIMIT \$2 OFFSET \$3`).
		WithArgs("%pemilu%", 5, 0).
		WillReturnRows(rows().AddRow(int64(1), "riset-pemilu", "Riset Pemilu", "Election Study", "Temuan  utama\nriset"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events`).WithArgs("%pemilu%").WillReturnRows(count(0))
	mock.ExpectQuery(`FROM events WHERE`).WithArgs("%pemilu%", 5, 0).WillReturnRows(rows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM programs`).WithArgs("%pemilu%").WillReturnRows(count(1))
	mock.ExpectQuery(`FROM programs WHERE`).WithArgs("%pemilu%", 5, 0).
		WillReturnRows(rows().AddRow(int64(4), "sekolah-pemilu", "Sekolah Pemilu", nil, ""))

	resp, body := perform(t, app, jsonRequest(http.MethodGet, "/api/search?q=pemilu&lang=en", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	data := body["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "publikasi", first["type"])
	assert.Equal(t, "Election Study", first["title"])
	assert.Equal(t, "Temuan utama riset", first["excerpt"])
	assert.Equal(t, "/publikasi/riset-pemilu", first["url"])

	second := data[1].(map[string]any)
	assert.Equal(t, "program", second["type"])
	assert.Equal(t, "Sekolah Pemilu", second["title"])
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "singkat", excerpt("  singkat "))

	long := strings.Repeat("kata ", 60)
	got := excerpt(long)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), excerptLength+1)
}
