package handlers

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/crud"
	"github.com/gmp-id/gmpcms/internal/httpx"
)

const (
	searchPerType   = 5
	minSearchLength = 2
	excerptLength   = 160
)

// SearchResult is one hit of the site-wide search.
type SearchResult struct {
	Type    string `json:"type"`
	ID      any    `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

type searchSource struct {
	kind     string
	path     string
	resource *crud.Resource
}

// SearchHandler runs one query across the public content types.
type SearchHandler struct {
	Store   *crud.Store
	sources []searchSource
}

// NewSearchHandler searches publications, events and programs, in that order.
func NewSearchHandler(store *crud.Store, publications, events, programs *crud.Resource) *SearchHandler {
	return &SearchHandler{
		Store: store,
		sources: []searchSource{
			{kind: "publikasi", path: "/publikasi/", resource: publications},
			{kind: "acara", path: "/acara/", resource: events},
			{kind: "program", path: "/program/", resource: programs},
		},
	}
}

// HandleSearch merges up to five hits per content type.
func (h *SearchHandler) HandleSearch(c fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	results := make([]SearchResult, 0)
	if utf8.RuneCountInString(q) < minSearchLength {
		return httpx.OK(c, fiber.Map{"success": true, "query": q, "data": results})
	}
	lang := language(c)

	for _, src := range h.sources {
		page, err := h.Store.List(c.Context(), src.resource, crud.ListParams{
			Page:   1,
			Limit:  searchPerType,
			Search: q,
		})
		if err != nil {
			return httpx.Internal(c, "Failed to search", err)
		}
		for _, rec := range crud.LocalizeAll(page.Data, lang, src.resource.Localized) {
			results = append(results, SearchResult{
				Type:    src.kind,
				ID:      rec.ID(src.resource),
				Slug:    rec.String("slug"),
				Title:   rec.String("title"),
				Excerpt: excerpt(rec.String("description")),
				URL:     src.path + rec.String("slug"),
			})
		}
	}

	return httpx.OK(c, fiber.Map{"success": true, "query": q, "data": results})
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= excerptLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}
