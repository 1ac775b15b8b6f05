package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/crud"
)

// ParseListParams extracts paging, search, sort and filter query parameters
// for res. "per" is accepted as an alias of "limit". Unknown filter keys are
// ignored; clamping and sort whitelisting happen in the store.
func ParseListParams(c fiber.Ctx, res *crud.Resource) crud.ListParams {
	search := c.Query("search")
	if search == "" {
		search = c.Query("q")
	}

	params := crud.ListParams{
		Page:   fiber.Query[int](c, "page", 1),
		Limit:  queryLimit(c),
		Search: search,
		Sort:   strings.ToLower(c.Query("sort", c.Query("sortBy"))),
		Order:  strings.ToLower(c.Query("order", c.Query("sortOrder"))),
	}

	for key := range res.Filters {
		value := strings.TrimSpace(c.Query(key))
		if value == "" || strings.EqualFold(value, "all") {
			continue
		}
		if params.Filters == nil {
			params.Filters = make(map[string]string)
		}
		params.Filters[key] = value
	}

	return crud.NormalizeListParams(params)
}

// queryLimit reads "limit" (or "per"). An absent or unparsable value means
// DefaultLimit; an explicit one is clamped to [1, MaxLimit], so limit=0 asks
// for a single row rather than the default page size.
func queryLimit(c fiber.Ctx) int {
	for _, key := range []string{"limit", "per"} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return crud.DefaultLimit
		}
		return max(1, min(crud.MaxLimit, n))
	}
	return crud.DefaultLimit
}

// language returns the requested content language, "id" unless "en" is asked for.
func language(c fiber.Ctx) string {
	if strings.EqualFold(c.Query("lang"), "en") {
		return "en"
	}
	return "id"
}
