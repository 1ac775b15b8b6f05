package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/crud"
	"github.com/gmp-id/gmpcms/internal/httpx"
	"github.com/gmp-id/gmpcms/internal/logging"
	"github.com/gmp-id/gmpcms/internal/middleware"
	"github.com/gmp-id/gmpcms/internal/models"
	"github.com/gmp-id/gmpcms/internal/realtime"
)

// Decoder decodes and validates a JSON document into column assignments. The
// returned hooks carry request-specific work, such as linking related rows,
// into the write transaction.
type Decoder func(raw []byte) (crud.Values, crud.Hooks, error)

// CRUDHandler exposes one crud.Resource over HTTP.
type CRUDHandler struct {
	// Resource is the unscoped admin view.
	Resource *crud.Resource
	// Public is the scoped, localized view served to visitors. Nil means Resource.
	Public *crud.Resource
	Store  *crud.Store
	Decode Decoder
	Hooks  crud.Hooks
	// Enrich decorates records before they are written out, e.g. joining
	// related rows.
	Enrich func(ctx context.Context, records []crud.Record) error
	// TitleColumn names the column quoted in the activity log.
	TitleColumn string
	// ConflictMessage is returned on unique violations.
	ConflictMessage string
}

func (h *CRUDHandler) public() *crud.Resource {
	if h.Public != nil {
		return h.Public
	}
	return h.Resource
}

// AdminList returns one page of every row, regardless of scope.
func (h *CRUDHandler) AdminList(c fiber.Ctx) error {
	return h.list(c, h.Resource, false)
}

// PublicList returns one page of the public view, localized.
func (h *CRUDHandler) PublicList(c fiber.Ctx) error {
	return h.list(c, h.public(), true)
}

func (h *CRUDHandler) list(c fiber.Ctx, res *crud.Resource, localize bool) error {
	page, err := h.Store.List(c.Context(), res, ParseListParams(c, res))
	if err != nil {
		return h.writeError(c, "fetch", err)
	}
	if err := h.enrich(c.Context(), page.Data); err != nil {
		return h.writeError(c, "fetch", err)
	}
	if localize {
		crud.LocalizeAll(page.Data, language(c), res.Localized)
	}
	return httpx.OK(c, page)
}

// AdminGet returns one row by id.
func (h *CRUDHandler) AdminGet(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.invalidID(c)
	}
	return h.get(c, h.Resource, h.Resource.IDColumnName(), id, false)
}

// PublicGet returns one visible row by id.
func (h *CRUDHandler) PublicGet(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.invalidID(c)
	}
	res := h.public()
	return h.get(c, res, res.IDColumnName(), id, true)
}

// PublicGetBy returns one visible row whose column equals the named route
// parameter, e.g. a slug.
func (h *CRUDHandler) PublicGetBy(column, param string) fiber.Handler {
	return func(c fiber.Ctx) error {
		value := c.Params(param)
		if value == "" {
			return httpx.BadRequest(c, "Missing "+param)
		}
		return h.get(c, h.public(), column, value, true)
	}
}

func (h *CRUDHandler) get(c fiber.Ctx, res *crud.Resource, column string, value any, localize bool) error {
	rec, err := h.Store.GetBy(c.Context(), res, column, value)
	if err != nil {
		return h.writeError(c, "fetch", err)
	}
	if err := h.enrich(c.Context(), []crud.Record{rec}); err != nil {
		return h.writeError(c, "fetch", err)
	}
	if localize {
		crud.Localize(rec, language(c), res.Localized)
	}
	return httpx.OK(c, fiber.Map{"data": rec})
}

// Create inserts a row from the request body.
func (h *CRUDHandler) Create(c fiber.Ctx) error {
	values, extra, err := h.Decode(c.Body())
	if err != nil {
		return writeBindError(c, err)
	}

	hooks := h.Hooks.Chain(extra).Chain(h.activityHooks(c))
	rec, err := h.Store.Create(c.Context(), h.Resource, values, hooks)
	if err != nil {
		return h.writeError(c, "create", err)
	}
	if err := h.enrich(c.Context(), []crud.Record{rec}); err != nil {
		return h.writeError(c, "create", err)
	}
	return httpx.Created(c, fiber.Map{"success": true, "data": rec})
}

// Update replaces the writable columns of an existing row.
func (h *CRUDHandler) Update(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.invalidID(c)
	}
	values, extra, err := h.Decode(c.Body())
	if err != nil {
		return writeBindError(c, err)
	}

	hooks := h.Hooks.Chain(extra).Chain(h.activityHooks(c))
	rec, err := h.Store.Update(c.Context(), h.Resource, id, values, hooks)
	if err != nil {
		return h.writeError(c, "update", err)
	}
	if err := h.enrich(c.Context(), []crud.Record{rec}); err != nil {
		return h.writeError(c, "update", err)
	}
	return httpx.OK(c, fiber.Map{"success": true, "data": rec})
}

// Delete removes a row.
func (h *CRUDHandler) Delete(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.invalidID(c)
	}

	hooks := h.Hooks.Chain(h.activityHooks(c))
	if err := h.Store.Delete(c.Context(), h.Resource, id, hooks); err != nil {
		return h.writeError(c, "delete", err)
	}
	return httpx.OK(c, fiber.Map{
		"success": true,
		"message": h.Resource.Label() + " deleted successfully",
	})
}

func (h *CRUDHandler) enrich(ctx context.Context, records []crud.Record) error {
	if h.Enrich == nil || len(records) == 0 {
		return nil
	}
	return h.Enrich(ctx, records)
}

// parseID reads the numeric :id route parameter.
func parseID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *CRUDHandler) invalidID(c fiber.Ctx) error {
	return httpx.BadRequest(c, fmt.Sprintf("Invalid %s ID", h.Resource.Name))
}

// writeError maps store errors onto HTTP statuses.
func (h *CRUDHandler) writeError(c fiber.Ctx, verb string, err error) error {
	switch {
	case errors.Is(err, crud.ErrNotFound):
		return httpx.NotFound(c, h.Resource.NotFoundError())
	case errors.Is(err, crud.ErrConflict):
		msg := h.ConflictMessage
		if msg == "" {
			msg = h.Resource.Label() + " already exists"
		}
		return httpx.Conflict(c, msg)
	case errors.Is(err, crud.ErrCancelled):
		return httpx.BadRequest(c, "Delete operation cancelled")
	case errors.Is(err, crud.ErrConstraint), errors.Is(err, crud.ErrInvalidColumn):
		logging.L().Warn("rejected write",
			zap.String("resource", h.Resource.Name),
			zap.Error(err),
		)
		return httpx.BadRequest(c, fmt.Sprintf("Invalid %s data", h.Resource.Name))
	default:
		var msg *inputError
		if errors.As(err, &msg) {
			return httpx.BadRequest(c, msg.Error())
		}
		return httpx.Internal(c, fmt.Sprintf("Failed to %s %s", verb, h.Resource.Name), err)
	}
}

// activityHooks log every admin write in the write transaction and queue a
// notification for live dashboards, delivered on commit.
func (h *CRUDHandler) activityHooks(c fiber.Ctx) crud.Hooks {
	actor := middleware.GetUser(c)
	record := func(action string) func(context.Context, *sql.Tx, crud.Record) error {
		return func(ctx context.Context, tx *sql.Tx, rec crud.Record) error {
			return logActivity(ctx, tx, actor, action, h.Resource.Name, fmt.Sprint(rec.ID(h.Resource)), h.title(rec))
		}
	}
	return crud.Hooks{
		AfterInsert: record(models.ActionCreate),
		AfterUpdate: record(models.ActionUpdate),
		AfterDelete: record(models.ActionDelete),
	}
}

func (h *CRUDHandler) title(rec crud.Record) string {
	col := h.TitleColumn
	if col == "" {
		col = "title"
	}
	return rec.String(col)
}

// logActivity is shared by every admin write path.
func logActivity(ctx context.Context, tx *sql.Tx, actor *middleware.UserContext, action, resource, resourceID, title string) error {
	entry := &models.Activity{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Title:      title,
	}
	if actor != nil {
		entry.ActorID = actor.UserID
		entry.ActorEmail = actor.Email
	}
	if err := models.RecordActivity(ctx, tx, entry); err != nil {
		return err
	}
	return realtime.Notify(ctx, tx, realtime.Event{
		Type:       realtime.EventActivity,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Title:      title,
		Actor:      entry.ActorEmail,
		CreatedAt:  entry.CreatedAt,
	})
}
