package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lberthe/dicolex/internal/termservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *termservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Dictionary reads.
	r.Get("/terms", h.ListTerms)
	r.Get("/terms/{word}", h.GetTerm)
	r.Get("/verbs", h.ListVerbs)
	r.Get("/grammar", h.ListGrammar)
	r.Get("/facets", h.Facets)
	r.Get("/search", h.Search)

	// Mutations.
	r.Post("/terms", h.UpsertTerm)
	r.Patch("/terms/{word}/fields", h.UpdateTermField)
	r.Post("/terms/{word}/classify", h.ClassifyTerm)
	r.Post("/cache/refresh", h.RefreshCache)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
