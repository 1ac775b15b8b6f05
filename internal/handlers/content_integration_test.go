//go:build integration

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmp-id/gmpcms/internal/crud"
	"github.com/gmp-id/gmpcms/internal/test"
)

func TestPublicationLifecycleAgainstPostgres(t *testing.T) {
	db := test.NewDB(t)
	h := NewHandlers(crud.NewStore(db))
	ctx := context.Background()

	author, err := h.Seed(ctx, "authors", []byte(`{"first_name":"Sari","last_name":"Wulandari"}`))
	require.NoError(t, err)
	authorID, ok := author["id"].(int64)
	require.True(t, ok)

	pub, err := h.Seed(ctx, "publications", []byte(fmt.Sprintf(
		`{"title":"Riset Pemuda","title_en":"Youth Research","type":"riset","author_ids":[%d]}`, authorID)))
	require.NoError(t, err)
	assert.Equal(t, "riset-pemuda", pub["slug"])
	assert.Equal(t, "youth-research", pub["slug_en"])

	_, err = h.Seed(ctx, "publications", []byte(`{"title":"Riset Pemuda","type":"artikel"}`))
	assert.ErrorIs(t, err, crud.ErrConflict)

	app := fiber.New()
	app.Get("/api/publikasi", h.Publications.PublicList)
	app.Get("/api/publikasi/:slug", h.Publications.PublicGetBy("slug", "slug"))

	resp, body := perform(t, app, jsonRequest(http.MethodGet, "/api/publikasi/riset-pemuda?lang=en", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Youth Research", data["title"])
	authors := data["authors"].([]any)
	require.Len(t, authors, 1)
	assert.Equal(t, "Sari", authors[0].(map[string]any)["first_name"])

	resp, body = perform(t, app, jsonRequest(http.MethodGet, "/api/publikasi?search=pemuda&type=riset", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["pagination"].(map[string]any)["total"])
}

func TestEventUpdateAndDeleteAgainstPostgres(t *testing.T) {
	db := test.NewDB(t)
	h := NewHandlers(crud.NewStore(db))
	ctx := context.Background()

	event, err := h.Seed(ctx, "events", []byte(`{"title":"Temu Warga","event_date":"2025-03-01"}`))
	require.NoError(t, err)
	id := event["id"].(int64)

	values, hooks, err := h.Events.Decode([]byte(`{"title":"Temu Warga Bandung","slug":"temu-warga","event_date":"2025-03-02","location":"Bandung"}`))
	require.NoError(t, err)
	updated, err := h.Events.Store.Update(ctx, h.Events.Resource, id, values, hooks)
	require.NoError(t, err)
	assert.Equal(t, "Bandung", updated["location"])

	require.NoError(t, h.Events.Store.Delete(ctx, h.Events.Resource, id, crud.Hooks{}))
	_, err = h.Events.Store.Get(ctx, h.Events.Resource, id)
	assert.ErrorIs(t, err, crud.ErrNotFound)
}
