package templateservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/steinmetz/vorlage/internal/apperr"
	"github.com/steinmetz/vorlage/internal/checksum"
	"github.com/steinmetz/vorlage/internal/index"
	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/parser"
	"github.com/steinmetz/vorlage/internal/placeholder"
	"github.com/steinmetz/vorlage/internal/rules"
	"github.com/steinmetz/vorlage/internal/storage"
)

// TemplateDetail is the full representation of a template.
type TemplateDetail struct {
	Path         string         `json:"path"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	Checksum     string         `json:"checksum"`
	Category     string         `json:"category"`
	RequiredKeys []string       `json:"required_keys"`
	Placeholders []string       `json:"placeholders"`
	Frontmatter  map[string]any `json:"frontmatter,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TemplateListItem is a lightweight item in a list response.
type TemplateListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidationReport bundles rule issues with the aggregate summary.
type ValidationReport struct {
	Issues  []rules.Issue `json:"issues"`
	Summary rules.Summary `json:"summary"`
}

// Service coordinates storage, index, rendering, and validation.
type Service struct {
	store  storage.Provider
	db     *index.DB
	engine *rules.Engine
	errs   *apperr.Classifier
}

// NewService creates a new template service.
func NewService(store storage.Provider, db *index.DB, engine *rules.Engine, errs *apperr.Classifier) *Service {
	if engine == nil {
		engine = rules.NewEngine(rules.DefaultConfig())
	}
	if errs == nil {
		errs = apperr.NewClassifier(nil, nil, nil, nil)
	}
	return &Service{store: store, db: db, engine: engine, errs: errs}
}

// GetTemplate reads a template from storage and parses it.
func (s *Service) GetTemplate(_ context.Context, path string) (*TemplateDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, s.loadFailed(path, err)
	}
	return s.buildDetail(path, data)
}

// CreateTemplate writes a new template and indexes it. Templates without a
// title are rejected.
func (s *Service) CreateTemplate(_ context.Context, path string, content []byte) (*TemplateDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.requireTitle(content); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, s.saveFailed(path, err)
	}
	if err := s.IndexTemplate(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// UpdateTemplate writes updated content with optimistic concurrency.
func (s *Service) UpdateTemplate(_ context.Context, path string, content []byte, ifMatch string) (*TemplateDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, s.loadFailed(path, err)
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.requireTitle(content); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, s.saveFailed(path, err)
	}
	if err := s.IndexTemplate(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// DeleteTemplate removes a template from storage and index.
func (s *Service) DeleteTemplate(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return s.errs.New(apperr.TypeDeleteFailed, "Vorlage konnte nicht gelöscht werden.", err.Error(), map[string]any{"path": path})
	}
	return s.db.DeleteTemplate(path)
}

// ListTemplates returns paginated templates with optional category filter.
func (s *Service) ListTemplates(_ context.Context, limit, offset int, category, sort string) ([]TemplateListItem, int, error) {
	rows, total, err := s.db.ListTemplates(limit, offset, category, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]TemplateListItem, len(rows))
	for i, r := range rows {
		items[i] = TemplateListItem{
			Path:      r.Path,
			Title:     r.Title,
			Category:  r.Category,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Categories returns per-category template counts.
func (s *Service) Categories(_ context.Context) ([]models.CategoryBucket, error) {
	return s.db.Categories()
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Render resolves all placeholders in content against ctx. The template is
// never modified; rendering works on a copy of the content.
func (s *Service) Render(_ context.Context, content string, ctx *models.TemplateContext) placeholder.ProcessingResult {
	res := placeholder.Process(content, ctx)
	if !res.Success {
		s.errs.New(apperr.TypeInvalidContent, "Die Vorlage konnte nicht vollständig verarbeitet werden.",
			res.Errors, nil)
	}
	return res
}

// RenderPath reads a template by path and renders it.
func (s *Service) RenderPath(ctx context.Context, path string, tctx *models.TemplateContext) (placeholder.ProcessingResult, error) {
	detail, err := s.GetTemplate(ctx, path)
	if err != nil {
		return placeholder.ProcessingResult{}, err
	}
	return s.Render(ctx, detail.Content, tctx), nil
}

// Validate runs all enabled rules over content and returns the report.
func (s *Service) Validate(_ context.Context, content string, requiredKeys []string, includeDisabled bool) ValidationReport {
	issues := s.engine.Evaluate(content, requiredKeys, includeDisabled)
	return ValidationReport{
		Issues:  issues,
		Summary: s.engine.Summarize(issues),
	}
}

// ValidateLive runs the editor-oriented validation pass with positions.
func (s *Service) ValidateLive(_ context.Context, content string, ctx *models.TemplateContext, requiredKeys []string) rules.LiveResult {
	return s.engine.ValidateLive(content, ctx, requiredKeys)
}

// ValidatePath reads a template by path and validates it using its own
// declared context keys.
func (s *Service) ValidatePath(ctx context.Context, path string) (ValidationReport, error) {
	detail, err := s.GetTemplate(ctx, path)
	if err != nil {
		return ValidationReport{}, err
	}
	return s.Validate(ctx, detail.Content, detail.RequiredKeys, false), nil
}

// IndexTemplate parses data and upserts it into the index.
// Exported so that sync and watcher can reuse it.
func (s *Service) IndexTemplate(path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	cs := checksum.Sum(data)
	return s.db.UpsertTemplate(index.TemplateRow{
		Path:         path,
		Title:        res.Title,
		Category:     res.Category,
		RequiredKeys: nonNilSlice(res.RequiredKeys),
		Checksum:     cs,
		UpdatedAt:    time.Now(),
	}, res.Body, refsFromTokens(res.Tokens))
}

// buildDetail constructs a TemplateDetail from raw data without re-reading the file.
func (s *Service) buildDetail(path string, data []byte) (*TemplateDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(res.Tokens))
	seen := make(map[string]struct{}, len(res.Tokens))
	for _, tok := range res.Tokens {
		if _, ok := seen[tok.Raw]; ok {
			continue
		}
		seen[tok.Raw] = struct{}{}
		tokens = append(tokens, tok.Raw)
	}
	return &TemplateDetail{
		Path:         path,
		Title:        res.Title,
		Content:      string(data),
		Checksum:     checksum.Sum(data),
		Category:     res.Category,
		RequiredKeys: nonNilSlice(res.RequiredKeys),
		Placeholders: tokens,
		Frontmatter:  res.Frontmatter,
		UpdatedAt:    time.Now(),
	}, nil
}

// requireTitle rejects content that yields no title (no frontmatter titel
// and no leading heading).
func (s *Service) requireTitle(content []byte) error {
	res, err := parser.Parse(content)
	if err != nil {
		return err
	}
	if res.Title == "" {
		return s.errs.New(apperr.TypeMissingTitle, "Die Vorlage benötigt einen Titel.",
			"weder frontmatter-titel noch Überschrift gefunden", nil)
	}
	return nil
}

func (s *Service) loadFailed(path string, err error) error {
	return s.errs.New(apperr.TypeLoadFailed, "Vorlage konnte nicht geladen werden.", err.Error(), map[string]any{"path": path})
}

func (s *Service) saveFailed(path string, err error) error {
	return s.errs.New(apperr.TypeSaveFailed, "Vorlage konnte nicht gespeichert werden.", err.Error(), map[string]any{"path": path})
}

func refsFromTokens(tokens []parser.Token) []index.PlaceholderRef {
	seen := make(map[string]struct{}, len(tokens))
	refs := make([]index.PlaceholderRef, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok.Raw]; ok {
			continue
		}
		seen[tok.Raw] = struct{}{}
		refs = append(refs, index.PlaceholderRef{Token: tok.Raw, Entity: tok.Entity, Field: tok.Field})
	}
	return refs
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
