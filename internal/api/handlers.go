package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/steinmetz/vorlage/internal/apperr"
	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/templateservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *templateservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *templateservice.Service) *Handler {
	return &Handler{svc: svc}
}

// templatePath extracts the template path from the URL (everything after /api/templates/).
// Supports encoded slashes from OpenAPI clients (e.g. zahlungen%2Fmahnung.md).
func templatePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListTemplates handles GET /api/templates.
//
//	@Summary		List templates with optional pagination and filtering
//	@Tags			templates
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			kategorie	query		string	false	"Filter by category (Sonstiges selects uncategorized)"
//	@Param			sort		query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200			{object}	TemplateListResponse
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	category := q.Get("kategorie")
	sort := q.Get("sort")

	items, total, err := h.svc.ListTemplates(r.Context(), limit, offset, category, sort)
	if err != nil {
		slog.Error("list templates failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": items,
		"total":     total,
	})
}

// GetTemplate handles GET /api/templates/*.
//
//	@Summary		Get a single template by path
//	@Tags			templates
//	@Produce		json
//	@Param			path	path		string	true	"Template path"
//	@Success		200		{object}	TemplateDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{path} [get]
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	path := templatePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	tpl, err := h.svc.GetTemplate(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get template failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// CreateTemplate handles POST /api/templates.
//
//	@Summary		Create a new template
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTemplateRequest	true	"Template to create"
//	@Success		201		{object}	TemplateDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates [post]
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	tpl, err := h.svc.CreateTemplate(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("template already exists"))
		case isAppErrType(err, apperr.TypeMissingTitle):
			writeJSON(w, http.StatusBadRequest, errorBody(appErrMessage(err)))
		default:
			slog.Error("create template failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// UpdateTemplate handles PUT /api/templates/*.
//
//	@Summary		Update a template with optimistic concurrency
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string					true	"Template path"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateTemplateRequest	true	"Updated content"
//	@Success		200			{object}	TemplateDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{path} [put]
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := templatePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req UpdateTemplateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	tpl, err := h.svc.UpdateTemplate(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		case isAppErrType(err, apperr.TypeMissingTitle):
			writeJSON(w, http.StatusBadRequest, errorBody(appErrMessage(err)))
		default:
			slog.Error("update template failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// DeleteTemplate handles DELETE /api/templates/*.
//
//	@Summary		Delete a template
//	@Tags			templates
//	@Param			path	path	string	true	"Template path"
//	@Success		204		"Template deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{path} [delete]
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	path := templatePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteTemplate(r.Context(), path); err != nil {
		slog.Error("delete template failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /api/categories.
//
//	@Summary		Get per-category template counts
//	@Tags			templates
//	@Produce		json
//	@Success		200	{object}	CategoriesResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.svc.Categories(r.Context())
	if err != nil {
		slog.Error("categories failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if buckets == nil {
		buckets = []models.CategoryBucket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": buckets,
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across templates
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Render handles POST /api/render.
//
//	@Summary		Render a template against a context
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderRequest	true	"Template source and context"
//	@Success		200		{object}	RenderResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if req.Path != "" {
		res, err := h.svc.RenderPath(r.Context(), req.Path, req.Context)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorBody("not found"))
			} else {
				slog.Error("render failed", slog.String("path", req.Path), slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Render(r.Context(), req.Content, req.Context))
}

// Validate handles POST /api/validate.
//
//	@Summary		Validate a template and compute its quality score
//	@Tags			validate
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ValidateRequest	true	"Template source and declared context keys"
//	@Success		200		{object}	ValidationReport
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if req.Path != "" {
		report, err := h.svc.ValidatePath(r.Context(), req.Path)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorBody("not found"))
			} else {
				slog.Error("validate failed", slog.String("path", req.Path), slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Validate(r.Context(), req.Content, req.Kontext, req.IncludeDisabled))
}

// ValidateLive handles POST /api/validate/live.
//
//	@Summary		Editor-oriented validation with positions and quick fixes
//	@Tags			validate
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ValidateLiveRequest	true	"Content, context, and response mode"
//	@Success		200		{object}	LiveResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate/live [post]
func (h *Handler) ValidateLive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ValidateLiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res := h.svc.ValidateLive(r.Context(), req.Content, req.Context, req.Kontext)
	if req.Mode == "inline" {
		writeJSON(w, http.StatusOK, res.Counts())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func isAppErrType(err error, t apperr.Type) bool {
	var appErr *apperr.AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func appErrMessage(err error) string {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "invalid request"
}
