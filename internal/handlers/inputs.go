package handlers

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gmp-id/gmpcms/internal/crud"
	"github.com/gmp-id/gmpcms/internal/slug"
)

// input is implemented by every request body decoded through decodeInput.
type input interface {
	values() (crud.Values, crud.Hooks, error)
}

// decodeInput builds a Decoder unmarshalling into a fresh T. The HTTP
// handlers and the seeder share it so both apply the same rules.
func decodeInput[T any, P interface {
	*T
	input
}]() Decoder {
	return func(raw []byte) (crud.Values, crud.Hooks, error) {
		in := P(new(T))
		if err := json.Unmarshal(raw, in); err != nil {
			return nil, crud.Hooks{}, errBadBody
		}
		if err := validate.Struct(in); err != nil {
			return nil, crud.Hooks{}, err
		}
		return in.values()
	}
}

// optional trims s and maps blank input to NULL.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	if t := strings.TrimSpace(*s); t != "" {
		return t
	}
	return nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func intOrNil(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

// resolveSlug normalizes an explicit slug or derives one from the title.
func resolveSlug(given, title string) (string, error) {
	source := strings.TrimSpace(given)
	if source == "" {
		source = title
	}
	s := slug.Make(source)
	if !slug.Valid(s) {
		return "", invalidInput("Slug must contain letters or digits")
	}
	return s, nil
}

// jsonDocument returns raw as a JSON string column value, def when absent.
func jsonDocument(raw json.RawMessage, def any) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return def
	}
	return string(trimmed)
}

type authorInput struct {
	FirstName    string  `json:"first_name" validate:"required,max=100"`
	LastName     string  `json:"last_name" validate:"max=100"`
	Email        *string `json:"email" validate:"omitempty,email"`
	PhoneNumber  *string `json:"phone_number" validate:"omitempty,max=30"`
	Organization *string `json:"organization" validate:"omitempty,max=200"`
	Bio          *string `json:"bio"`
	BioEn        *string `json:"bio_en"`
	Category     *string `json:"category" validate:"omitempty,max=50"`
	PhotoURL     *string `json:"photo_url"`
}

func (in *authorInput) values() (crud.Values, crud.Hooks, error) {
	var v crud.Values
	v.Set("first_name", strings.TrimSpace(in.FirstName))
	v.Set("last_name", strings.TrimSpace(in.LastName))
	email := optional(in.Email)
	if s, ok := email.(string); ok {
		email = strings.ToLower(s)
	}
	v.Set("email", email)
	v.Set("phone_number", optional(in.PhoneNumber))
	v.Set("organization", optional(in.Organization))
	v.Set("bio", optional(in.Bio))
	v.Set("bio_en", optional(in.BioEn))
	v.Set("category", optional(in.Category))
	v.Set("photo_url", optional(in.PhotoURL))
	return v, crud.Hooks{}, nil
}

type eventInput struct {
	Slug               string  `json:"slug" validate:"max=120"`
	Title              string  `json:"title" validate:"required,max=300"`
	TitleEn            *string `json:"title_en"`
	EventDate          string  `json:"event_date" validate:"required,datetime=2006-01-02"`
	EventTime          string  `json:"event_time" validate:"max=50"`
	Location           string  `json:"location" validate:"max=300"`
	Address            *string `json:"address"`
	Description        string  `json:"description"`
	DescriptionEn      *string `json:"description_en"`
	Image              *string `json:"image"`
	Category           string  `json:"category" validate:"max=50"`
	IsPaid             bool    `json:"is_paid"`
	Price              int     `json:"price" validate:"gte=0"`
	IsRegistrationOpen *bool   `json:"is_registration_open"`
	RegistrationURL    *string `json:"registration_url" validate:"omitempty,url"`
	Capacity           *int    `json:"capacity" validate:"omitempty,gt=0"`
}

func (in *eventInput) values() (crud.Values, crud.Hooks, error) {
	s, err := resolveSlug(in.Slug, in.Title)
	if err != nil {
		return nil, crud.Hooks{}, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "general"
	}
	price := in.Price
	if !in.IsPaid {
		price = 0
	}

	var v crud.Values
	v.Set("slug", s)
	v.Set("title", strings.TrimSpace(in.Title))
	v.Set("title_en", optional(in.TitleEn))
	v.Set("event_date", in.EventDate)
	v.Set("event_time", strings.TrimSpace(in.EventTime))
	v.Set("location", strings.TrimSpace(in.Location))
	v.Set("address", optional(in.Address))
	v.Set("description", in.Description)
	v.Set("description_en", optional(in.DescriptionEn))
	v.Set("image", optional(in.Image))
	v.Set("category", category)
	v.Set("is_paid", in.IsPaid)
	v.Set("price", price)
	v.Set("is_registration_open", boolOr(in.IsRegistrationOpen, true))
	v.Set("registration_url", optional(in.RegistrationURL))
	v.Set("capacity", intOrNil(in.Capacity))
	return v, crud.Hooks{}, nil
}

type homepageSlideInput struct {
	Type          string  `json:"type" validate:"required,oneof=map image"`
	DisplayOrder  *int    `json:"display_order" validate:"required,gte=0"`
	Title         *string `json:"title"`
	TitleEn       *string `json:"title_en"`
	Subtitle      *string `json:"subtitle"`
	SubtitleEn    *string `json:"subtitle_en"`
	Description   *string `json:"description"`
	DescriptionEn *string `json:"description_en"`
	Image         *string `json:"image"`
	ButtonText    *string `json:"button_text"`
	ButtonTextEn  *string `json:"button_text_en"`
	ButtonLink    *string `json:"button_link"`
	IsActive      *bool   `json:"is_active"`
}

func (in *homepageSlideInput) values() (crud.Values, crud.Hooks, error) {
	if in.Type == "image" && (optional(in.Title) == nil || optional(in.Image) == nil) {
		return nil, crud.Hooks{}, invalidInput("Title and image are required for image slides")
	}

	var v crud.Values
	v.Set("type", in.Type)
	v.Set("display_order", *in.DisplayOrder)
	v.Set("title", optional(in.Title))
	v.Set("title_en", optional(in.TitleEn))
	v.Set("subtitle", optional(in.Subtitle))
	v.Set("subtitle_en", optional(in.SubtitleEn))
	v.Set("description", optional(in.Description))
	v.Set("description_en", optional(in.DescriptionEn))
	v.Set("image", optional(in.Image))
	v.Set("button_text", optional(in.ButtonText))
	v.Set("button_text_en", optional(in.ButtonTextEn))
	v.Set("button_link", optional(in.ButtonLink))
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type partnerInput struct {
	DisplayOrder *int    `json:"display_order" validate:"required,gte=0"`
	Name         string  `json:"name" validate:"required,max=200"`
	Logo         string  `json:"logo" validate:"required"`
	URL          *string `json:"url" validate:"omitempty,url"`
}

func (in *partnerInput) values() (crud.Values, crud.Hooks, error) {
	var v crud.Values
	v.Set("display_order", *in.DisplayOrder)
	v.Set("name", strings.TrimSpace(in.Name))
	v.Set("logo", strings.TrimSpace(in.Logo))
	v.Set("url", optional(in.URL))
	return v, crud.Hooks{}, nil
}

type programInput struct {
	Slug          string          `json:"slug" validate:"max=120"`
	Title         string          `json:"title" validate:"required,max=300"`
	TitleEn       *string         `json:"title_en"`
	Subtitle      *string         `json:"subtitle"`
	SubtitleEn    *string         `json:"subtitle_en"`
	Description   *string         `json:"description"`
	DescriptionEn *string         `json:"description_en"`
	HeroImage     *string         `json:"hero_image"`
	Content       json.RawMessage `json:"content"`
	ContentEn     json.RawMessage `json:"content_en"`
	DisplayOrder  int             `json:"display_order" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"`
}

func (in *programInput) values() (crud.Values, crud.Hooks, error) {
	s, err := resolveSlug(in.Slug, in.Title)
	if err != nil {
		return nil, crud.Hooks{}, err
	}

	var v crud.Values
	v.Set("slug", s)
	v.Set("title", strings.TrimSpace(in.Title))
	v.Set("title_en", optional(in.TitleEn))
	v.Set("subtitle", optional(in.Subtitle))
	v.Set("subtitle_en", optional(in.SubtitleEn))
	v.Set("description", optional(in.Description))
	v.Set("description_en", optional(in.DescriptionEn))
	v.Set("hero_image", optional(in.HeroImage))
	v.Set("content", jsonDocument(in.Content, "[]"))
	v.Set("content_en", jsonDocument(in.ContentEn, nil))
	v.Set("display_order", in.DisplayOrder)
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type careerInput struct {
	Slug             string  `json:"slug" validate:"max=120"`
	Title            string  `json:"title" validate:"required,max=300"`
	Type             string  `json:"type" validate:"required,oneof=internship full-time part-time contract volunteer"`
	Location         string  `json:"location" validate:"max=300"`
	Duration         *string `json:"duration"`
	Deadline         *string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	PostedDate       string  `json:"posted_date" validate:"omitempty,datetime=2006-01-02"`
	Poster           *string `json:"poster"`
	Description      string  `json:"description"`
	Responsibilities *string `json:"responsibilities"`
	Requirements     *string `json:"requirements"`
	Benefits         *string `json:"benefits"`
	ApplyURL         *string `json:"apply_url" validate:"omitempty,url"`
	IsActive         *bool   `json:"is_active"`
}

func (in *careerInput) values() (crud.Values, crud.Hooks, error) {
	s, err := resolveSlug(in.Slug, in.Title)
	if err != nil {
		return nil, crud.Hooks{}, err
	}

	var v crud.Values
	v.Set("slug", s)
	v.Set("title", strings.TrimSpace(in.Title))
	v.Set("type", in.Type)
	v.Set("location", strings.TrimSpace(in.Location))
	v.Set("duration", optional(in.Duration))
	v.Set("deadline", optional(in.Deadline))
	if in.PostedDate != "" {
		v.Set("posted_date", in.PostedDate)
	}
	v.Set("poster", optional(in.Poster))
	v.Set("description", in.Description)
	v.Set("responsibilities", optional(in.Responsibilities))
	v.Set("requirements", optional(in.Requirements))
	v.Set("benefits", optional(in.Benefits))
	v.Set("apply_url", optional(in.ApplyURL))
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type discussionInput struct {
	Slug           string  `json:"slug" validate:"max=120"`
	Title          string  `json:"title" validate:"required,max=300"`
	Image          *string `json:"image"`
	DiscussionDate string  `json:"discussion_date" validate:"omitempty,datetime=2006-01-02"`
	Description    string  `json:"description"`
	Content        string  `json:"content"`
	IsActive       *bool   `json:"is_active"`
}

func (in *discussionInput) values() (crud.Values, crud.Hooks, error) {
	s, err := resolveSlug(in.Slug, in.Title)
	if err != nil {
		return nil, crud.Hooks{}, err
	}

	var v crud.Values
	v.Set("slug", s)
	v.Set("title", strings.TrimSpace(in.Title))
	v.Set("image", optional(in.Image))
	if in.DiscussionDate != "" {
		v.Set("discussion_date", in.DiscussionDate)
	}
	v.Set("description", in.Description)
	v.Set("content", in.Content)
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type boardMemberInput struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Position     string  `json:"position" validate:"required,max=200"`
	Photo        *string `json:"photo"`
	Bio          *string `json:"bio"`
	DisplayOrder int     `json:"display_order" validate:"gte=0"`
	IsActive     *bool   `json:"is_active"`
}

func (in *boardMemberInput) values() (crud.Values, crud.Hooks, error) {
	var v crud.Values
	v.Set("name", strings.TrimSpace(in.Name))
	v.Set("position", strings.TrimSpace(in.Position))
	v.Set("photo", optional(in.Photo))
	v.Set("bio", optional(in.Bio))
	v.Set("display_order", in.DisplayOrder)
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type socialMediaInput struct {
	Platform     string  `json:"platform" validate:"required,max=50"`
	URL          string  `json:"url" validate:"required,url"`
	DisplayName  *string `json:"display_name"`
	DisplayOrder int     `json:"display_order" validate:"gte=0"`
	IsActive     *bool   `json:"is_active"`
}

func (in *socialMediaInput) values() (crud.Values, crud.Hooks, error) {
	var v crud.Values
	v.Set("platform", strings.ToLower(strings.TrimSpace(in.Platform)))
	v.Set("url", strings.TrimSpace(in.URL))
	v.Set("display_name", optional(in.DisplayName))
	v.Set("display_order", in.DisplayOrder)
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type pageContentInput struct {
	PageKey             string          `json:"page_key" validate:"required,max=100"`
	PageName            string          `json:"page_name" validate:"required,max=200"`
	PageURL             *string         `json:"page_url"`
	HeroTitle           *string         `json:"hero_title"`
	HeroTitleEn         *string         `json:"hero_title_en"`
	HeroSubtitle        *string         `json:"hero_subtitle"`
	HeroSubtitleEn      *string         `json:"hero_subtitle_en"`
	HeroBackgroundColor string          `json:"hero_background_color" validate:"omitempty,hexcolor"`
	HeroBackgroundImage *string         `json:"hero_background_image"`
	Sections            json.RawMessage `json:"sections"`
	IsActive            *bool           `json:"is_active"`
}

func (in *pageContentInput) values() (crud.Values, crud.Hooks, error) {
	key := slug.Make(in.PageKey)
	if !slug.Valid(key) {
		return nil, crud.Hooks{}, invalidInput("Invalid page key")
	}
	color := in.HeroBackgroundColor
	if color == "" {
		color = "#f06d98"
	}

	var v crud.Values
	v.Set("page_key", key)
	v.Set("page_name", strings.TrimSpace(in.PageName))
	v.Set("page_url", optional(in.PageURL))
	v.Set("hero_title", optional(in.HeroTitle))
	v.Set("hero_title_en", optional(in.HeroTitleEn))
	v.Set("hero_subtitle", optional(in.HeroSubtitle))
	v.Set("hero_subtitle_en", optional(in.HeroSubtitleEn))
	v.Set("hero_background_color", color)
	v.Set("hero_background_image", optional(in.HeroBackgroundImage))
	v.Set("sections", jsonDocument(in.Sections, "[]"))
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type testimonialInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Age      *int    `json:"age" validate:"omitempty,gt=0,lt=150"`
	School   *string `json:"school"`
	Image    *string `json:"image"`
	Quote    string  `json:"quote" validate:"required"`
	QuoteEn  *string `json:"quote_en"`
	IsActive *bool   `json:"is_active"`
}

func (in *testimonialInput) values() (crud.Values, crud.Hooks, error) {
	var v crud.Values
	v.Set("name", strings.TrimSpace(in.Name))
	v.Set("age", intOrNil(in.Age))
	v.Set("school", optional(in.School))
	v.Set("image", optional(in.Image))
	v.Set("quote", strings.TrimSpace(in.Quote))
	v.Set("quote_en", optional(in.QuoteEn))
	v.Set("is_active", boolOr(in.IsActive, true))
	return v, crud.Hooks{}, nil
}

type researchDataInput struct {
	RegionLive            string  `json:"region_live" validate:"required,oneof=West Central East"`
	ProvinceCode          *string `json:"province_code"`
	Age                   *int    `json:"age" validate:"omitempty,gt=0,lt=150"`
	Gender                *string `json:"gender"`
	Activism              *string `json:"activism"`
	PoliticalExposure     *string `json:"political_exposure"`
	PolexpPeersIntensity  *string `json:"polexp_peers_intensity"`
	CivspaceUnderstanding *string `json:"civspace_understanding"`
	IssueCommitedVoicing  *string `json:"issue_commited_voicing"`
}

func (in *researchDataInput) values() (crud.Values, crud.Hooks, error) {
	province := optional(in.ProvinceCode)
	if code, ok := province.(string); ok {
		code = strings.ToUpper(code)
		if _, known := provinceByCode[code]; !known {
			return nil, crud.Hooks{}, invalidInput("Unknown province code")
		}
		province = code
	}

	var v crud.Values
	v.Set("region_live", in.RegionLive)
	v.Set("province_code", province)
	v.Set("age", intOrNil(in.Age))
	v.Set("gender", optional(in.Gender))
	v.Set("activism", optional(in.Activism))
	v.Set("political_exposure", optional(in.PoliticalExposure))
	v.Set("polexp_peers_intensity", optional(in.PolexpPeersIntensity))
	v.Set("civspace_understanding", optional(in.CivspaceUnderstanding))
	v.Set("issue_commited_voicing", optional(in.IssueCommitedVoicing))
	return v, crud.Hooks{}, nil
}
