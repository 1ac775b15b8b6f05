package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/gmp-id/gmpcms/internal/auth"
	"github.com/gmp-id/gmpcms/internal/crud"
	"github.com/gmp-id/gmpcms/internal/middleware"
	"github.com/gmp-id/gmpcms/internal/realtime"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	DB            *sql.DB
	Issuer        *auth.Issuer
	Hub           *realtime.Hub
	SecureCookies bool
	UploadDir     string
	MaxUpload     int64
	Version       string
	// PublicCache, when set, wraps public read-only routes.
	PublicCache fiber.Handler
}

// Handlers are the resource handlers, exposed for the CLI seeder.
type Handlers struct {
	Authors       *CRUDHandler
	Events        *CRUDHandler
	Publications  *CRUDHandler
	Slides        *CRUDHandler
	Partners      *CRUDHandler
	Programs      *CRUDHandler
	Careers       *CRUDHandler
	Discussions   *CRUDHandler
	BoardMembers  *CRUDHandler
	SocialMedia   *CRUDHandler
	PageContent   *CRUDHandler
	Testimonials  *CRUDHandler
	ResearchData  *CRUDHandler
	Subscriptions *CRUDHandler
}

// NewHandlers wires every content resource to store.
func NewHandlers(store *crud.Store) *Handlers {
	publications := publicationsResource()
	return &Handlers{
		Authors: &CRUDHandler{
			Resource:    authorsResource(),
			Store:       store,
			Decode:      decodeInput[authorInput](),
			TitleColumn: "first_name",
		},
		Events: &CRUDHandler{
			Resource:        eventsResource(),
			Store:           store,
			Decode:          decodeInput[eventInput](),
			ConflictMessage: "Slug already exists",
		},
		Publications: &CRUDHandler{
			Resource:        publications,
			Public:          publications.WithScope("is_published = TRUE"),
			Store:           store,
			Decode:          decodeInput[publicationInput](),
			Enrich:          publicationAuthors(store.DB()),
			ConflictMessage: "Slug already exists",
		},
		Slides: &CRUDHandler{
			Resource: homepageSlidesResource(),
			Public:   homepageSlidesResource().WithScope(activeScope),
			Store:    store,
			Decode:   decodeInput[homepageSlideInput](),
		},
		Partners: &CRUDHandler{
			Resource:        partnersResource(),
			Store:           store,
			Decode:          decodeInput[partnerInput](),
			TitleColumn:     "name",
			ConflictMessage: "Display order already in use",
		},
		Programs: &CRUDHandler{
			Resource:        programsResource(),
			Public:          programsResource().WithScope(activeScope),
			Store:           store,
			Decode:          decodeInput[programInput](),
			ConflictMessage: "Slug already exists",
		},
		Careers: &CRUDHandler{
			Resource:        careersResource(),
			Public:          careersResource().WithScope(activeScope),
			Store:           store,
			Decode:          decodeInput[careerInput](),
			ConflictMessage: "Slug already exists",
		},
		Discussions: &CRUDHandler{
			Resource:        discussionsResource(),
			Public:          discussionsResource().WithScope(activeScope),
			Store:           store,
			Decode:          decodeInput[discussionInput](),
			ConflictMessage: "Slug already exists",
		},
		BoardMembers: &CRUDHandler{
			Resource:    boardMembersResource(),
			Public:      boardMembersResource().WithScope(activeScope),
			Store:       store,
			Decode:      decodeInput[boardMemberInput](),
			TitleColumn: "name",
		},
		SocialMedia: &CRUDHandler{
			Resource:        socialMediaResource(),
			Public:          socialMediaResource().WithScope(activeScope),
			Store:           store,
			Decode:          decodeInput[socialMediaInput](),
			TitleColumn:     "platform",
			ConflictMessage: "Platform already configured",
		},
		PageContent: &CRUDHandler{
			Resource:        pageContentResource(),
			Public:          pageContentResource().WithScope(activeScope),
			Store:           store,
			Decode:          decodeInput[pageContentInput](),
			TitleColumn:     "page_name",
			ConflictMessage: "Page key already exists",
		},
		Testimonials: &CRUDHandler{
			Resource:    testimonialsResource(),
			Public:      testimonialsResource().WithScope(activeScope),
			Store:       store,
			Decode:      decodeInput[testimonialInput](),
			TitleColumn: "name",
		},
		ResearchData: &CRUDHandler{
			Resource:    researchDataResource(),
			Store:       store,
			Decode:      decodeInput[researchDataInput](),
			TitleColumn: "region_live",
		},
		Subscriptions: &CRUDHandler{
			Resource:    newsletterResource(),
			Store:       store,
			TitleColumn: "email",
		},
	}
}

// Register mounts every route on app and returns the resource handlers.
func Register(app *fiber.App, d Deps) *Handlers {
	store := crud.NewStore(d.DB)
	h := NewHandlers(store)

	authHandler := &AuthHandler{Issuer: d.Issuer, SecureCookies: d.SecureCookies}
	visitors := &VisitorHandler{DB: d.DB}
	dashboard := &DashboardHandler{DB: d.DB}
	mapData := &MapDataHandler{DB: d.DB}
	newsletter := &NewsletterHandler{DB: d.DB}
	uploads := &UploadHandler{Dir: d.UploadDir, MaxBytes: d.MaxUpload}
	search := NewSearchHandler(store, h.Publications.public(), h.Events.public(), h.Programs.public())

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "gmpcms"})
	})
	app.Get("/up", handleUp(d.DB))
	app.Get("/api/version", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"version": d.Version})
	})

	// Public API
	api := app.Group("/api")
	api.Post("/auth/login", authHandler.HandleLogin)
	api.Post("/auth/logout", authHandler.HandleLogout)
	api.Get("/auth/me", middleware.RequireAuth(d.Issuer), authHandler.HandleMe)
	api.Post("/visitor-tracking", visitors.HandleTrack)
	api.Post("/newsletter", newsletter.HandleSubscribe)
	api.Post("/newsletter/unsubscribe", newsletter.HandleUnsubscribe)

	// Group middleware would also match /api/admin, so the cache is attached per route.
	public := func(path string, handler fiber.Handler) {
		if d.PublicCache != nil {
			api.Get(path, d.PublicCache, handler)
			return
		}
		api.Get(path, handler)
	}
	public("/search", search.HandleSearch)
	public("/authors", h.Authors.PublicList)
	public("/authors/:id", h.Authors.PublicGet)
	public("/acara", h.Events.PublicList)
	public("/acara/:slug", h.Events.PublicGetBy("slug", "slug"))
	public("/publikasi", h.Publications.PublicList)
	public("/publikasi/:slug", h.Publications.PublicGetBy("slug", "slug"))
	public("/homepage-slides", h.Slides.PublicList)
	public("/partners", h.Partners.PublicList)
	public("/program", h.Programs.PublicList)
	public("/program/:slug", h.Programs.PublicGetBy("slug", "slug"))
	public("/karir", h.Careers.PublicList)
	public("/karir/:slug", h.Careers.PublicGetBy("slug", "slug"))
	public("/diskusi", h.Discussions.PublicList)
	public("/diskusi/:slug", h.Discussions.PublicGetBy("slug", "slug"))
	public("/pengurus", h.BoardMembers.PublicList)
	public("/social-media", h.SocialMedia.PublicList)
	public("/page-content/:key", h.PageContent.PublicGetBy("page_key", "key"))
	public("/testimonials", h.Testimonials.PublicList)
	public("/map-data", mapData.HandleMapData)

	// Admin API
	admin := api.Group("/admin", middleware.RequireAuth(d.Issuer))
	content := admin.Group("", middleware.RequireRole(auth.RoleAdmin, auth.RoleEditor))
	mountAdmin(content, "/authors", h.Authors)
	mountAdmin(content, "/acara", h.Events)
	mountAdmin(content, "/publikasi", h.Publications)
	mountAdmin(content, "/homepage-slides", h.Slides)
	mountAdmin(content, "/partners", h.Partners)
	mountAdmin(content, "/program", h.Programs)
	mountAdmin(content, "/karir", h.Careers)
	mountAdmin(content, "/diskusi", h.Discussions)
	mountAdmin(content, "/pengurus", h.BoardMembers)
	mountAdmin(content, "/social-media", h.SocialMedia)
	mountAdmin(content, "/page-content", h.PageContent)
	mountAdmin(content, "/testimonials", h.Testimonials)
	mountAdmin(content, "/research-data", h.ResearchData)
	content.Post("/upload", uploads.HandleUpload)

	// An empty-prefix group would guard every /api/admin route, so the
	// admin-only routes carry the role check themselves.
	adminOnly := middleware.RequireRole(auth.RoleAdmin)
	admin.Get("/newsletter", adminOnly, h.Subscriptions.AdminList)
	admin.Delete("/newsletter/:id", adminOnly, h.Subscriptions.Delete)
	admin.Get("/visitor-tracking", adminOnly, visitors.HandleStats)
	admin.Get("/visitor-tracking/countries", adminOnly, visitors.HandleCountries)
	admin.Get("/dashboard/stats", adminOnly, dashboard.HandleStats)
	admin.Get("/dashboard/activity", adminOnly, dashboard.HandleActivity)
	admin.Get("/dashboard/chart", adminOnly, dashboard.HandleChart)
	if d.Hub != nil {
		admin.Get("/activity/ws", adminOnly, realtime.RequireUpgrade, d.Hub.Handler())
	}

	return h
}

func mountAdmin(r fiber.Router, path string, h *CRUDHandler) {
	r.Get(path, h.AdminList)
	r.Get(path+"/:id", h.AdminGet)
	r.Post(path, h.Create)
	r.Put(path+"/:id", h.Update)
	r.Delete(path+"/:id", h.Delete)
}

func handleUp(db *sql.DB) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if db == nil || db.PingContext(ctx) != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("database unavailable")
		}
		return c.SendStatus(fiber.StatusOK)
	}
}
