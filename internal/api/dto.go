package api

import (
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/termservice"
)

// UpsertTermRequest is the request body for creating or updating a term.
type UpsertTermRequest struct {
	TargetWord string `json:"target_word" example:"bonjour" validate:"required"`
	SourceWord string `json:"source_word,omitempty" example:"hello"`
	Type       string `json:"type,omitempty" example:"#expression"`
	Context    string `json:"context,omitempty" example:"#social"`
	Rating     string `json:"rating,omitempty" example:"3"`
	Examples   string `json:"examples,omitempty" example:"Bonjour tout le monde."`
	Force      bool   `json:"force,omitempty"`
}

// UpdateFieldRequest is the request body for rewriting a single field.
type UpdateFieldRequest struct {
	Field      string `json:"field" example:"Rating" validate:"required"`
	Value      string `json:"value" example:"5"`
	AllowClear bool   `json:"allow_clear,omitempty"`
}

// TermDetailResponse is a single entry plus the raw Markdown note it was
// built from.
type TermDetailResponse struct {
	models.DictionaryEntry
	Note string `json:"note"`
}

// TermListResponse wraps paginated term listings (aliased from the domain layer).
type TermListResponse = termservice.TermPage

// VerbListResponse wraps paginated verb listings (aliased from the domain layer).
type VerbListResponse = termservice.VerbPage

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path       string `json:"path" example:"dictionary/bonjour.md" validate:"required"`
	TargetWord string `json:"target_word" example:"bonjour" validate:"required"`
	SourceWord string `json:"source_word" example:"hello"`
	Snippet    string `json:"snippet" example:"...matched text..."`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// FacetsResponse maps field names to their option lists.
type FacetsResponse struct {
	Facets map[string][]string `json:"facets" validate:"required"`
}

// RefreshResponse is returned after a forced cache rebuild.
type RefreshResponse struct {
	Generation int64 `json:"generation" example:"7" validate:"required"`
}
