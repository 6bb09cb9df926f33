package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/steinmetz/vorlage/internal/templateservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *templateservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Templates CRUD.
	r.Get("/templates", h.ListTemplates)
	r.Post("/templates", h.CreateTemplate)
	r.Get("/templates/*", h.GetTemplate)
	r.Put("/templates/*", h.UpdateTemplate)
	r.Delete("/templates/*", h.DeleteTemplate)

	// Categories.
	r.Get("/categories", h.Categories)

	// Search.
	r.Get("/search", h.Search)

	// Rendering and validation.
	r.Post("/render", h.Render)
	r.Post("/validate", h.Validate)
	r.Post("/validate/live", h.ValidateLive)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
