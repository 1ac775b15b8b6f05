package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/gmp-id/gmpcms/internal/crud"
)

type publicationInput struct {
	Slug            string  `json:"slug" validate:"max=120"`
	SlugEn          *string `json:"slug_en" validate:"omitempty,max=120"`
	Title           string  `json:"title" validate:"required,max=300"`
	TitleEn         *string `json:"title_en"`
	Author          string  `json:"author" validate:"max=300"`
	AuthorEn        *string `json:"author_en"`
	Description     string  `json:"description"`
	DescriptionEn   *string `json:"description_en"`
	Content         string  `json:"content"`
	ContentEn       *string `json:"content_en"`
	PublicationDate string  `json:"publication_date" validate:"omitempty,datetime=2006-01-02"`
	Type            string  `json:"type" validate:"required,oneof=riset artikel dampak"`
	ImageURL        *string `json:"image_url"`
	PDFURL          *string `json:"pdf_url"`
	DisplayOrder    int     `json:"display_order" validate:"gte=0"`
	IsPublished     *bool   `json:"is_published"`
	// AuthorIDs replaces the linked authors when present; nil leaves them alone.
	AuthorIDs []int64 `json:"author_ids" validate:"omitempty,dive,gt=0"`
}

func (in *publicationInput) values() (crud.Values, crud.Hooks, error) {
	s, err := resolveSlug(in.Slug, in.Title)
	if err != nil {
		return nil, crud.Hooks{}, err
	}
	var slugEn any
	if en := optional(in.SlugEn); en != nil {
		if slugEn, err = resolveSlug(en.(string), ""); err != nil {
			return nil, crud.Hooks{}, err
		}
	} else if title := optional(in.TitleEn); title != nil {
		slugEn, _ = resolveSlug("", title.(string))
		if slugEn == "" {
			slugEn = nil
		}
	}

	var v crud.Values
	v.Set("slug", s)
	v.Set("slug_en", slugEn)
	v.Set("title", strings.TrimSpace(in.Title))
	v.Set("title_en", optional(in.TitleEn))
	v.Set("author", strings.TrimSpace(in.Author))
	v.Set("author_en", optional(in.AuthorEn))
	v.Set("description", in.Description)
	v.Set("description_en", optional(in.DescriptionEn))
	v.Set("content", in.Content)
	v.Set("content_en", optional(in.ContentEn))
	if in.PublicationDate != "" {
		v.Set("publication_date", in.PublicationDate)
	}
	v.Set("type", in.Type)
	v.Set("image_url", optional(in.ImageURL))
	v.Set("pdf_url", optional(in.PDFURL))
	v.Set("display_order", in.DisplayOrder)
	v.Set("is_published", boolOr(in.IsPublished, true))

	var hooks crud.Hooks
	if in.AuthorIDs != nil {
		link := func(ctx context.Context, tx *sql.Tx, rec crud.Record) error {
			return linkAuthors(ctx, tx, rec["id"], dedupe(in.AuthorIDs))
		}
		hooks.AfterInsert = link
		hooks.AfterUpdate = link
	}
	return v, hooks, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// linkAuthors replaces a publication's author links, keeping the given order.
func linkAuthors(ctx context.Context, tx *sql.Tx, publicationID any, authorIDs []int64) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM authors_on_publications WHERE publication_id = $1", publicationID); err != nil {
		return fmt.Errorf("unlink authors: %w", err)
	}
	for i, authorID := range authorIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO authors_on_publications (publication_id, author_id, display_order) VALUES ($1, $2, $3)",
			publicationID, authorID, i); err != nil {
			return fmt.Errorf("link author %d: %w", authorID, err)
		}
	}
	return nil
}

// PublicationAuthor is an author as embedded in a publication.
type PublicationAuthor struct {
	ID           int64   `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Organization *string `json:"organization"`
	PhotoURL     *string `json:"photo_url"`
	Role         *string `json:"role"`
}

// publicationAuthors attaches an "authors" list to every record.
func publicationAuthors(db *sql.DB) func(ctx context.Context, records []crud.Record) error {
	return func(ctx context.Context, records []crud.Record) error {
		byID := make(map[int64]crud.Record, len(records))
		ids := make([]int64, 0, len(records))
		for _, rec := range records {
			rec["authors"] = []PublicationAuthor{}
			if id, ok := rec["id"].(int64); ok {
				byID[id] = rec
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		rows, err := db.QueryContext(ctx, `
			SELECT ap.publication_id, a.id, a.first_name, a.last_name, a.organization, a.photo_url, ap.role
			FROM authors_on_publications ap
			JOIN authors a ON a.id = ap.author_id
			WHERE ap.publication_id = ANY($1)
			ORDER BY ap.publication_id, ap.display_order`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("query publication authors: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var (
				pubID int64
				a     PublicationAuthor
			)
			if err := rows.Scan(&pubID, &a.ID, &a.FirstName, &a.LastName, &a.Organization, &a.PhotoURL, &a.Role); err != nil {
				return fmt.Errorf("scan publication author: %w", err)
			}
			if rec, ok := byID[pubID]; ok {
				rec["authors"] = append(rec["authors"].([]PublicationAuthor), a)
			}
		}
		return rows.Err()
	}
}
