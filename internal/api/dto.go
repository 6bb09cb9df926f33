package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/placeholder"
	"github.com/steinmetz/vorlage/internal/rules"
	"github.com/steinmetz/vorlage/internal/templateservice"
)

// CreateTemplateRequest is the request body for creating a template.
type CreateTemplateRequest struct {
	Path    string `json:"path" example:"zahlungen/mahnung.md" validate:"required"`
	Content string `json:"content" example:"# Mahnung\nSehr geehrte/r @mieter.name" validate:"required"`
}

// Validate implements request validation.
func (r CreateTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// UpdateTemplateRequest is the request body for updating a template.
type UpdateTemplateRequest struct {
	Content string `json:"content" example:"# Mahnung\nAktualisierter Text" validate:"required"`
}

// Validate implements request validation.
func (r UpdateTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

// RenderRequest is the request body for rendering. Exactly one of Path and
// Content must be set; Context supplies the entity records and date.
type RenderRequest struct {
	Path    string                  `json:"path,omitempty" example:"zahlungen/mahnung.md"`
	Content string                  `json:"content,omitempty"`
	Context *models.TemplateContext `json:"context,omitempty"`
}

// Validate implements request validation.
func (r RenderRequest) Validate() error {
	if (r.Path == "") == (r.Content == "") {
		return validation.NewError("render_source", "genau eines von path und content angeben")
	}
	return nil
}

// ValidateRequest is the request body for template validation.
type ValidateRequest struct {
	Path            string   `json:"path,omitempty" example:"zahlungen/mahnung.md"`
	Content         string   `json:"content,omitempty"`
	Kontext         []string `json:"kontext,omitempty" example:"mieter,datum"`
	IncludeDisabled bool     `json:"include_disabled,omitempty"`
}

// Validate implements request validation.
func (r ValidateRequest) Validate() error {
	if (r.Path == "") == (r.Content == "") {
		return validation.NewError("validate_source", "genau eines von path und content angeben")
	}
	return nil
}

// ValidateLiveRequest is the request body for editor-oriented validation.
// Mode selects the response shape: "inline" returns counts only,
// "detailed" (default) returns positioned errors and suggestions.
type ValidateLiveRequest struct {
	Content string                  `json:"content" validate:"required"`
	Context *models.TemplateContext `json:"context,omitempty"`
	Kontext []string                `json:"kontext,omitempty" example:"mieter,datum"`
	Mode    string                  `json:"mode,omitempty" example:"detailed"`
}

// Validate implements request validation.
func (r ValidateLiveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Mode, validation.In("", "inline", "detailed")),
	)
}

// TemplateDetail is the full template response type (aliased from the domain layer).
type TemplateDetail = templateservice.TemplateDetail

// TemplateListItem is a lightweight item in a list response (aliased from the domain layer).
type TemplateListItem = templateservice.TemplateListItem

// TemplateListResponse wraps paginated template listings.
type TemplateListResponse struct {
	Templates []TemplateListItem `json:"templates" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// CategoriesResponse wraps the category buckets.
type CategoriesResponse struct {
	Categories []models.CategoryBucket `json:"categories" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"zahlungen/mahnung.md" validate:"required"`
	Title   string `json:"title" example:"Mahnung" validate:"required"`
	Snippet string `json:"snippet" example:"...Treffer..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// RenderResponse is the rendering result (aliased from the domain layer).
type RenderResponse = placeholder.ProcessingResult

// ValidationReport is the validation result (aliased from the domain layer).
type ValidationReport = templateservice.ValidationReport

// LiveResult is the detailed live-validation result (aliased from the domain layer).
type LiveResult = rules.LiveResult

// TemplateListItemDTO mirrors TemplateListItem for swag.
type TemplateListItemDTO struct {
	Path      string    `json:"path" example:"zahlungen/mahnung.md"`
	Title     string    `json:"title" example:"Mahnung"`
	Category  string    `json:"category" example:"Zahlungen"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	UpdatedAt time.Time `json:"updated_at"`
}
