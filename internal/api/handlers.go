package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lberthe/dicolex/internal/apperr"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/termservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *termservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *termservice.Service) *Handler {
	return &Handler{svc: svc}
}

// termWord extracts the target word from the URL, tolerating encoded
// characters from OpenAPI clients (e.g. %C3%A9l%C3%A8ve).
func termWord(r *http.Request) string {
	raw := chi.URLParam(r, "word")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// filterFromQuery builds a FilterState from query parameters. Absent
// parameters stay at the "all" sentinel.
func filterFromQuery(q url.Values) models.FilterState {
	f := models.NewFilterState()
	if v := q.Get("target_word"); v != "" {
		f.TargetWord = v
	}
	if v := q.Get("source_word"); v != "" {
		f.SourceWord = v
	}
	if v := q.Get("type"); v != "" {
		f.Type = v
	}
	if v := q.Get("context"); v != "" {
		f.Context = v
	}
	if v := q.Get("revision"); v != "" {
		f.Revision = v
	}
	if v := q.Get("rating"); v != "" {
		f.Rating = v
	}
	if v := q.Get("group"); v != "" {
		f.Group = v
	}
	if v := q.Get("irregular"); v != "" {
		f.Irregular = v
	}
	f.Study = q.Get("study") == "true"
	return f
}

func pageFromQuery(q url.Values) (start, size int) {
	start, _ = strconv.Atoi(q.Get("start"))
	size, _ = strconv.Atoi(q.Get("size"))
	return start, size
}

// ListTerms handles GET /api/terms.
//
//	@Summary		List dictionary entries with filtering and pagination
//	@Tags			terms
//	@Produce		json
//	@Param			target_word	query		string	false	"Substring filter on the target word"
//	@Param			source_word	query		string	false	"Substring filter on the translation"
//	@Param			type		query		string	false	"Substring filter on type tags"
//	@Param			context		query		string	false	"Substring filter on context tags"
//	@Param			revision	query		string	false	"Exact revision filter"
//	@Param			rating		query		string	false	"Exact rating filter"
//	@Param			study		query		bool	false	"Study mode: hide unrevised entries"
//	@Param			start		query		int		false	"Page start offset"
//	@Param			size		query		int		false	"Page size (0 = all)"
//	@Success		200			{object}	TermListResponse
//	@Security		BearerAuth
//	@Router			/terms [get]
func (h *Handler) ListTerms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, size := pageFromQuery(q)
	page, err := h.svc.ListTerms(r.Context(), filterFromQuery(q), start, size)
	if err != nil {
		slog.Error("list terms failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListVerbs handles GET /api/verbs.
//
//	@Summary		List the verb view with group and irregularity filters
//	@Tags			terms
//	@Produce		json
//	@Param			group		query		string	false	"Exact group filter; i1 matches any irregular group"
//	@Param			irregular	query		string	false	"Exact irregularity filter"
//	@Success		200			{object}	VerbListResponse
//	@Security		BearerAuth
//	@Router			/verbs [get]
func (h *Handler) ListVerbs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, size := pageFromQuery(q)
	page, err := h.svc.ListVerbs(r.Context(), filterFromQuery(q), start, size)
	if err != nil {
		slog.Error("list verbs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListGrammar handles GET /api/grammar.
//
//	@Summary		List grammar reference pages
//	@Tags			grammar
//	@Produce		json
//	@Success		200	{array}	models.GrammarPage
//	@Security		BearerAuth
//	@Router			/grammar [get]
func (h *Handler) ListGrammar(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.GrammarPages(r.Context())
	if err != nil {
		slog.Error("list grammar failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if pages == nil {
		pages = []models.GrammarPage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// GetTerm handles GET /api/terms/{word}.
//
//	@Summary		Get one dictionary entry by target word
//	@Tags			terms
//	@Produce		json
//	@Param			word	path		string	true	"Target word"
//	@Success		200		{object}	TermDetailResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/terms/{word} [get]
func (h *Handler) GetTerm(w http.ResponseWriter, r *http.Request) {
	word := termWord(r)
	if word == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("word is required"))
		return
	}
	entry, note, err := h.svc.GetTermDetail(r.Context(), word)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get term failed", slog.String("word", word), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, TermDetailResponse{DictionaryEntry: *entry, Note: note})
}

// UpsertTerm handles POST /api/terms.
//
//	@Summary		Create a term note or enrich an existing one
//	@Tags			terms
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpsertTermRequest	true	"Term fields"
//	@Success		200		{object}	models.FileRef
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/terms [post]
func (h *Handler) UpsertTerm(w http.ResponseWriter, r *http.Request) {
	var req UpsertTermRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TargetWord == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("target_word is required"))
		return
	}
	ref, err := h.svc.UpsertTerm(r.Context(), models.Term{
		TargetWord: req.TargetWord,
		SourceWord: req.SourceWord,
		Type:       req.Type,
		Context:    req.Context,
		Rating:     req.Rating,
		Examples:   req.Examples,
	}, req.Force)
	if err != nil {
		slog.Error("upsert term failed", slog.String("word", req.TargetWord), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// UpdateTermField handles PATCH /api/terms/{word}/fields.
//
//	@Summary		Rewrite one field of a term note
//	@Tags			terms
//	@Accept			json
//	@Param			word	path		string				true	"Target word"
//	@Param			body	body		UpdateFieldRequest	true	"Field and value"
//	@Success		204		"Field updated"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/terms/{word}/fields [patch]
func (h *Handler) UpdateTermField(w http.ResponseWriter, r *http.Request) {
	word := termWord(r)
	if word == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("word is required"))
		return
	}
	var req UpdateFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Field == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("field is required"))
		return
	}
	if err := h.svc.UpdateTermField(r.Context(), word, req.Field, req.Value, req.AllowClear); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update field failed",
				slog.String("word", word), slog.String("field", req.Field), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClassifyTerm handles POST /api/terms/{word}/classify.
//
//	@Summary		Run AI classification for a term and persist the answer
//	@Tags			terms
//	@Produce		json
//	@Param			word	path		string	true	"Target word"
//	@Success		200		{object}	classifier.Result
//	@Failure		429		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/terms/{word}/classify [post]
func (h *Handler) ClassifyTerm(w http.ResponseWriter, r *http.Request) {
	word := termWord(r)
	if word == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("word is required"))
		return
	}
	result, err := h.svc.ClassifyTerm(r.Context(), word)
	if err != nil {
		slog.Error("classify failed", slog.String("word", word), slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrRateLimited) {
			writeJSON(w, http.StatusTooManyRequests, errorBody("classification rate limited"))
			return
		}
		writeJSON(w, http.StatusBadGateway, errorBody("classification failed"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Facets handles GET /api/facets.
//
//	@Summary		Compute dropdown options for filter fields
//	@Tags			terms
//	@Produce		json
//	@Param			fields	query		string	true	"Comma-separated field names"
//	@Success		200		{object}	FacetsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/facets [get]
func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := splitCSV(q.Get("fields"))
	if len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'fields' is required"))
		return
	}
	facets, err := h.svc.Facets(r.Context(), filterFromQuery(q), fields)
	if err != nil {
		slog.Error("facets failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, FacetsResponse{Facets: facets})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across term notes
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

// RefreshCache handles POST /api/cache/refresh.
//
//	@Summary		Force a dictionary cache rebuild
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	RefreshResponse
//	@Security		BearerAuth
//	@Router			/cache/refresh [post]
func (h *Handler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	gen, err := h.svc.RefreshCache(r.Context())
	if err != nil {
		slog.Error("cache refresh failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Generation: gen})
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
