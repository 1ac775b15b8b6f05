package handlers

import (
	"context"
	"fmt"

	"github.com/gmp-id/gmpcms/internal/crud"
)

// SeedOrder lists the sections a seed file may contain, in insertion order.
// Authors precede publications so author_ids can point at seeded rows.
var SeedOrder = []string{
	"authors",
	"events",
	"publications",
	"homepage_slides",
	"partners",
	"programs",
	"careers",
	"discussions",
	"board_members",
	"social_media",
	"page_content",
	"testimonials",
	"research_data",
}

func (h *Handlers) seedTargets() map[string]*CRUDHandler {
	return map[string]*CRUDHandler{
		"authors":         h.Authors,
		"events":          h.Events,
		"publications":    h.Publications,
		"homepage_slides": h.Slides,
		"partners":        h.Partners,
		"programs":        h.Programs,
		"careers":         h.Careers,
		"discussions":     h.Discussions,
		"board_members":   h.BoardMembers,
		"social_media":    h.SocialMedia,
		"page_content":    h.PageContent,
		"testimonials":    h.Testimonials,
		"research_data":   h.ResearchData,
	}
}

// Seed inserts one JSON document into section, applying the same decoding
// and validation as the admin API. No activity entry is recorded.
func (h *Handlers) Seed(ctx context.Context, section string, doc []byte) (crud.Record, error) {
	target, ok := h.seedTargets()[section]
	if !ok {
		return nil, fmt.Errorf("unknown section %q", section)
	}
	values, hooks, err := target.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", section, err)
	}
	return target.Store.Create(ctx, target.Resource, values, target.Hooks.Chain(hooks))
}
