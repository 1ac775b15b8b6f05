package handlers

import "github.com/gmp-id/gmpcms/internal/crud"

const activeScope = "is_active = TRUE"

// The resource table below is the single source of truth for which columns
// each content type exposes and accepts.

func authorsResource() *crud.Resource {
	return &crud.Resource{
		Name:  "author",
		Table: "authors",
		Columns: []string{"id", "first_name", "last_name", "email", "phone_number", "organization",
			"bio", "bio_en", "category", "photo_url", "created_at", "updated_at"},
		Writable: []string{"first_name", "last_name", "email", "phone_number", "organization",
			"bio", "bio_en", "category", "photo_url"},
		SearchFields:    []string{"first_name", "last_name", "email", "organization"},
		SortColumns:     []string{"first_name", "last_name", "organization", "created_at"},
		DefaultSort:     "created_at",
		DefaultOrder:    "desc",
		Filters:         map[string]string{"category": "category"},
		Localized:       []string{"bio"},
		NotFoundMessage: "Author not found",
		Timestamps:      true,
	}
}

func eventsResource() *crud.Resource {
	return &crud.Resource{
		Name:  "event",
		Table: "events",
		Columns: []string{"id", "slug", "title", "title_en", "event_date", "event_time", "location", "address",
			"description", "description_en", "image", "category", "is_paid", "price", "is_registration_open",
			"registration_url", "capacity", "registered_count", "created_at", "updated_at"},
		Writable: []string{"slug", "title", "title_en", "event_date", "event_time", "location", "address",
			"description", "description_en", "image", "category", "is_paid", "price", "is_registration_open",
			"registration_url", "capacity"},
		SearchFields:    []string{"title", "title_en", "description", "location"},
		SortColumns:     []string{"event_date", "title", "created_at"},
		DefaultSort:     "event_date",
		DefaultOrder:    "desc",
		Filters:         map[string]string{"category": "category"},
		Localized:       []string{"title", "description"},
		NotFoundMessage: "Event not found",
		Timestamps:      true,
	}
}

func publicationsResource() *crud.Resource {
	return &crud.Resource{
		Name:  "publication",
		Table: "publications",
		Columns: []string{"id", "slug", "slug_en", "title", "title_en", "author", "author_en", "description",
			"description_en", "content", "content_en", "publication_date", "type", "image_url", "pdf_url",
			"view_count", "display_order", "is_published", "created_at", "updated_at"},
		Writable: []string{"slug", "slug_en", "title", "title_en", "author", "author_en", "description",
			"description_en", "content", "content_en", "publication_date", "type", "image_url", "pdf_url",
			"display_order", "is_published"},
		SearchFields:    []string{"title", "title_en", "description", "author"},
		SortColumns:     []string{"publication_date", "title", "view_count", "display_order", "created_at"},
		DefaultSort:     "publication_date",
		DefaultOrder:    "desc",
		Filters:         map[string]string{"type": "type"},
		Localized:       []string{"title", "author", "description", "content"},
		NotFoundMessage: "Publication not found",
		Timestamps:      true,
	}
}

func homepageSlidesResource() *crud.Resource {
	return &crud.Resource{
		Name:  "homepage slide",
		Table: "homepage_slides",
		Columns: []string{"id", "type", "display_order", "title", "title_en", "subtitle", "subtitle_en",
			"description", "description_en", "image", "button_text", "button_text_en", "button_link",
			"is_active", "created_at", "updated_at"},
		Writable: []string{"type", "display_order", "title", "title_en", "subtitle", "subtitle_en",
			"description", "description_en", "image", "button_text", "button_text_en", "button_link", "is_active"},
		SortColumns:     []string{"display_order", "created_at"},
		DefaultSort:     "display_order",
		DefaultOrder:    "asc",
		Filters:         map[string]string{"type": "type"},
		Localized:       []string{"title", "subtitle", "description", "button_text"},
		NotFoundMessage: "Slide not found",
		Timestamps:      true,
	}
}

func partnersResource() *crud.Resource {
	return &crud.Resource{
		Name:            "partner",
		Table:           "partners",
		Columns:         []string{"id", "display_order", "name", "logo", "url", "created_at", "updated_at"},
		Writable:        []string{"display_order", "name", "logo", "url"},
		SearchFields:    []string{"name"},
		SortColumns:     []string{"display_order", "name"},
		DefaultSort:     "display_order",
		DefaultOrder:    "asc",
		NotFoundMessage: "Partner not found",
		Timestamps:      true,
	}
}

func programsResource() *crud.Resource {
	return &crud.Resource{
		Name:  "program",
		Table: "programs",
		Columns: []string{"id", "slug", "title", "title_en", "subtitle", "subtitle_en", "description",
			"description_en", "hero_image", "content", "content_en", "display_order", "is_active",
			"created_at", "updated_at"},
		Writable: []string{"slug", "title", "title_en", "subtitle", "subtitle_en", "description",
			"description_en", "hero_image", "content", "content_en", "display_order", "is_active"},
		SearchFields:    []string{"title", "title_en", "description"},
		SortColumns:     []string{"display_order", "title", "created_at"},
		DefaultSort:     "display_order",
		DefaultOrder:    "asc",
		Localized:       []string{"title", "subtitle", "description", "content"},
		NotFoundMessage: "Program not found",
		Timestamps:      true,
	}
}

func careersResource() *crud.Resource {
	return &crud.Resource{
		Name:  "career",
		Table: "careers",
		Columns: []string{"id", "slug", "title", "type", "location", "duration", "deadline", "posted_date",
			"poster", "description", "responsibilities", "requirements", "benefits", "apply_url", "is_active",
			"created_at", "updated_at"},
		Writable: []string{"slug", "title", "type", "location", "duration", "deadline", "posted_date",
			"poster", "description", "responsibilities", "requirements", "benefits", "apply_url", "is_active"},
		SearchFields:    []string{"title", "description", "location"},
		SortColumns:     []string{"posted_date", "deadline", "title", "created_at"},
		DefaultSort:     "posted_date",
		DefaultOrder:    "desc",
		Filters:         map[string]string{"type": "type"},
		NotFoundMessage: "Career not found",
		Timestamps:      true,
	}
}

func discussionsResource() *crud.Resource {
	return &crud.Resource{
		Name:  "discussion",
		Table: "discussions",
		Columns: []string{"id", "slug", "title", "image", "discussion_date", "description", "content",
			"is_active", "created_at", "updated_at"},
		Writable:        []string{"slug", "title", "image", "discussion_date", "description", "content", "is_active"},
		SearchFields:    []string{"title", "description"},
		SortColumns:     []string{"discussion_date", "title", "created_at"},
		DefaultSort:     "discussion_date",
		DefaultOrder:    "desc",
		NotFoundMessage: "Discussion not found",
		Timestamps:      true,
	}
}

func boardMembersResource() *crud.Resource {
	return &crud.Resource{
		Name:  "board member",
		Table: "board_members",
		Columns: []string{"id", "name", "position", "photo", "bio", "display_order", "is_active",
			"created_at", "updated_at"},
		Writable:        []string{"name", "position", "photo", "bio", "display_order", "is_active"},
		SearchFields:    []string{"name", "position"},
		SortColumns:     []string{"display_order", "name"},
		DefaultSort:     "display_order",
		DefaultOrder:    "asc",
		NotFoundMessage: "Board member not found",
		Timestamps:      true,
	}
}

func socialMediaResource() *crud.Resource {
	return &crud.Resource{
		Name:  "social media setting",
		Table: "social_media_settings",
		Columns: []string{"id", "platform", "url", "display_name", "display_order", "is_active",
			"created_at", "updated_at"},
		Writable:        []string{"platform", "url", "display_name", "display_order", "is_active"},
		SortColumns:     []string{"display_order", "platform"},
		DefaultSort:     "display_order",
		DefaultOrder:    "asc",
		NotFoundMessage: "Social media setting not found",
		Timestamps:      true,
	}
}

func pageContentResource() *crud.Resource {
	return &crud.Resource{
		Name:  "page content",
		Table: "page_content",
		Columns: []string{"id", "page_key", "page_name", "page_url", "hero_title", "hero_title_en",
			"hero_subtitle", "hero_subtitle_en", "hero_background_color", "hero_background_image",
			"sections", "is_active", "created_at", "updated_at"},
		Writable: []string{"page_key", "page_name", "page_url", "hero_title", "hero_title_en",
			"hero_subtitle", "hero_subtitle_en", "hero_background_color", "hero_background_image",
			"sections", "is_active"},
		SearchFields:    []string{"page_key", "page_name"},
		SortColumns:     []string{"page_key", "page_name", "updated_at"},
		DefaultSort:     "page_key",
		DefaultOrder:    "asc",
		Localized:       []string{"hero_title", "hero_subtitle"},
		NotFoundMessage: "Page content not found",
		Timestamps:      true,
	}
}

func testimonialsResource() *crud.Resource {
	return &crud.Resource{
		Name:  "testimonial",
		Table: "testimonials",
		Columns: []string{"id", "name", "age", "school", "image", "quote", "quote_en", "is_active",
			"created_at", "updated_at"},
		Writable:        []string{"name", "age", "school", "image", "quote", "quote_en", "is_active"},
		SearchFields:    []string{"name", "school", "quote"},
		SortColumns:     []string{"name", "created_at"},
		DefaultSort:     "created_at",
		DefaultOrder:    "desc",
		Localized:       []string{"quote"},
		NotFoundMessage: "Testimonial not found",
		Timestamps:      true,
	}
}

func newsletterResource() *crud.Resource {
	return &crud.Resource{
		Name:            "subscription",
		Table:           "newsletter_subscriptions",
		Columns:         []string{"id", "email", "name", "is_active", "subscribed_at", "unsubscribed_at"},
		SearchFields:    []string{"email", "name"},
		SortColumns:     []string{"email", "subscribed_at"},
		DefaultSort:     "subscribed_at",
		DefaultOrder:    "desc",
		Filters:         map[string]string{"active": "is_active"},
		NotFoundMessage: "Subscription not found",
	}
}

func researchDataResource() *crud.Resource {
	return &crud.Resource{
		Name:  "survey response",
		Table: "research_data",
		Columns: []string{"id", "region_live", "province_code", "age", "gender", "activism", "political_exposure",
			"polexp_peers_intensity", "civspace_understanding", "issue_commited_voicing", "created_at", "updated_at"},
		Writable: []string{"region_live", "province_code", "age", "gender", "activism", "political_exposure",
			"polexp_peers_intensity", "civspace_understanding", "issue_commited_voicing"},
		SortColumns:     []string{"age", "created_at"},
		DefaultSort:     "created_at",
		DefaultOrder:    "desc",
		Filters:         map[string]string{"region": "region_live", "province": "province_code"},
		NotFoundMessage: "Survey response not found",
		Timestamps:      true,
	}
}
