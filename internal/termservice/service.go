// Package termservice coordinates the dictionary cache, filter engine,
// mutation engine, search index and classifier behind one API used by the
// HTTP handlers and the MCP server.
package termservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/lberthe/dicolex/internal/apperr"
	"github.com/lberthe/dicolex/internal/classifier"
	"github.com/lberthe/dicolex/internal/dictionary"
	"github.com/lberthe/dicolex/internal/index"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/storage"
	"github.com/lberthe/dicolex/internal/writer"
)

// Classifier is the slice of the orchestrator the service needs.
type Classifier interface {
	ClassifyTerm(ctx context.Context, targetWord string) (*classifier.Result, error)
}

// Service coordinates read and write paths over the dictionary.
type Service struct {
	cache      *dictionary.Cache
	writer     *writer.Writer
	db         index.TermIndex
	store      storage.Provider
	classifier Classifier // nil when no AI backend is configured
	locale     string
}

// NewService creates a term service. classifier may be nil; classification
// requests then fail with apperr.ErrClassification.
func NewService(cache *dictionary.Cache, w *writer.Writer, db index.TermIndex, store storage.Provider, cl Classifier, locale string) *Service {
	return &Service{cache: cache, writer: w, db: db, store: store, classifier: cl, locale: locale}
}

// TermPage is one page of filtered dictionary entries.
type TermPage struct {
	Items []models.DictionaryEntry `json:"items"`
	Total int                      `json:"total"`
}

// VerbPage is one page of filtered verb entries.
type VerbPage struct {
	Items []models.VerbEntry `json:"items"`
	Total int                `json:"total"`
}

// ListTerms returns the filtered dictionary, paginated. Total counts the
// filtered collection, not the page.
func (s *Service) ListTerms(ctx context.Context, f models.FilterState, start, size int) (*TermPage, error) {
	entries, err := s.cache.Dictionary(ctx)
	if err != nil {
		return nil, err
	}
	filtered := dictionary.Apply(entries, f)
	if size <= 0 {
		return &TermPage{Items: filtered, Total: len(filtered)}, nil
	}
	return &TermPage{
		Items: dictionary.Paginate(filtered, start, size),
		Total: len(filtered),
	}, nil
}

// ListVerbs returns the filtered verb view, paginated.
func (s *Service) ListVerbs(ctx context.Context, f models.FilterState, start, size int) (*VerbPage, error) {
	verbs, err := s.cache.Verbs(ctx)
	if err != nil {
		return nil, err
	}
	filtered := dictionary.ApplyVerbs(verbs, f)
	if size <= 0 {
		return &VerbPage{Items: filtered, Total: len(filtered)}, nil
	}
	return &VerbPage{
		Items: dictionary.Paginate(filtered, start, size),
		Total: len(filtered),
	}, nil
}

// GrammarPages returns all grammar reference pages.
func (s *Service) GrammarPages(ctx context.Context) ([]models.GrammarPage, error) {
	return s.cache.GrammarPages(ctx)
}

// GetTerm finds one entry by target word, case-insensitively.
func (s *Service) GetTerm(ctx context.Context, targetWord string) (*models.DictionaryEntry, error) {
	entries, err := s.cache.Dictionary(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(targetWord))
	for i := range entries {
		if entries[i].TargetWord == want {
			return &entries[i], nil
		}
	}
	return nil, apperr.ErrNotFound
}

// GetTermDetail returns one entry together with its raw Markdown note.
func (s *Service) GetTermDetail(ctx context.Context, targetWord string) (*models.DictionaryEntry, string, error) {
	entry, err := s.GetTerm(ctx, targetWord)
	if err != nil {
		return nil, "", err
	}
	data, err := s.store.Read(entry.File.Path)
	if err != nil {
		return nil, "", fmt.Errorf("read note %s: %w", entry.File.Path, err)
	}
	return entry, string(data), nil
}

// Facets computes context-sensitive option lists for the requested fields
// against the current filter.
func (s *Service) Facets(ctx context.Context, f models.FilterState, fields []string) (map[string][]string, error) {
	entries, err := s.cache.Dictionary(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(fields))
	for _, field := range fields {
		out[field] = dictionary.FacetOptions(entries, f, field, s.locale)
	}
	return out, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// UpsertTerm creates or updates a term note, then drops the cached
// snapshot so the next read reflects the change immediately instead of
// waiting out the TTL.
func (s *Service) UpsertTerm(ctx context.Context, term models.Term, force bool) (models.FileRef, error) {
	ref, err := s.writer.UpsertTerm(ctx, term, force)
	if err != nil {
		return models.FileRef{}, err
	}
	s.cache.Invalidate()
	return ref, nil
}

// UpdateTermField rewrites one field of an existing term's note.
func (s *Service) UpdateTermField(ctx context.Context, targetWord, field, value string, allowClear bool) error {
	path := s.writer.PathFor(targetWord)
	if entry, err := s.GetTerm(ctx, targetWord); err == nil {
		path = entry.File.Path
	}
	if err := s.writer.UpdateField(ctx, path, field, value, allowClear); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// ClassifyTerm runs AI classification for a term and persists the answer.
func (s *Service) ClassifyTerm(ctx context.Context, targetWord string) (*classifier.Result, error) {
	if s.classifier == nil {
		return nil, apperr.ErrClassification
	}
	result, err := s.classifier.ClassifyTerm(ctx, targetWord)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate()
	return result, nil
}

// RefreshCache forces a rebuild and returns the new generation counter.
func (s *Service) RefreshCache(ctx context.Context) (int64, error) {
	s.cache.Invalidate()
	return s.cache.Generation(ctx)
}
