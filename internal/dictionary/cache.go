// Package dictionary builds and serves the in-memory dictionary collection:
// a time-boxed cache of normalized entries scanned from the vault, plus the
// pure filter/facet/pagination pipeline over it.
package dictionary

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lberthe/dicolex/internal/builder"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/parser"
	"github.com/lberthe/dicolex/internal/storage"
)

// DefaultTTL bounds how long a published generation is served without a
// rebuild.
const DefaultTTL = 5 * time.Second

// databaseMarker is the reserved path component excluded from scans.
const databaseMarker = "database"

// snapshot is one immutable generation of the cached collections. Readers
// never observe a partially built snapshot; a rebuild publishes a fully
// constructed replacement.
type snapshot struct {
	generation int64
	builtAt    time.Time
	entries    []models.DictionaryEntry
	verbs      []models.VerbEntry
	grammar    []models.GrammarPage
}

// Config carries the cache's scan parameters. Passed whole on construction
// and on Reconfigure rather than shared mutably with other services.
type Config struct {
	Languages     models.Languages
	DictionaryDir string // vault-relative folder holding vocabulary notes
	TemplatesDir  string // excluded from scans
	TTL           time.Duration
}

// Cache scans the vault, builds entries per file, sorts them and keeps the
// result in a time-boxed snapshot with explicit invalidation.
type Cache struct {
	store  storage.Provider
	logger *slog.Logger

	mu    sync.Mutex
	cfg   Config
	snap  *snapshot
	dirty bool
	gen   int64
}

// NewCache creates a cache in the Empty state; the first read populates it.
func NewCache(store storage.Provider, cfg Config, logger *slog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Cache{store: store, cfg: cfg, logger: logger, dirty: true}
}

// Invalidate forces the next read to rebuild regardless of TTL. Called by
// the file watcher on dictionary-folder changes and by explicit user
// refresh actions.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Reconfigure swaps the scan parameters and invalidates. Settings changes
// (folder path, language names, TTL) must not serve stale generations.
func (c *Cache) Reconfigure(cfg Config) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	c.mu.Lock()
	c.cfg = cfg
	c.dirty = true
	c.mu.Unlock()
}

// Dictionary returns the current generation's entries, rebuilding if the
// snapshot is stale or invalidated.
func (c *Cache) Dictionary(ctx context.Context) ([]models.DictionaryEntry, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.entries, nil
}

// Verbs returns the verb view of the current generation.
func (c *Cache) Verbs(ctx context.Context) ([]models.VerbEntry, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.verbs, nil
}

// GrammarPages returns the grammar notes of the current generation. Unlike
// the dictionary scan these cover the whole vault, not just the dictionary
// folder.
func (c *Cache) GrammarPages(ctx context.Context) ([]models.GrammarPage, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.grammar, nil
}

// Generation returns the current generation number, rebuilding if needed.
// Two reads inside the TTL window observe the same number.
func (c *Cache) Generation(ctx context.Context) (int64, error) {
	s, err := c.current(ctx)
	if err != nil {
		return 0, err
	}
	return s.generation, nil
}

// current serves the published snapshot when fresh, otherwise rebuilds.
// The mutex makes rebuilds single-flight; the rebuild itself reflects the
// state of storage at the time it completes reading.
func (c *Cache) current(ctx context.Context) (*snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap != nil && !c.dirty && time.Since(c.snap.builtAt) < c.cfg.TTL {
		return c.snap, nil
	}

	s, err := c.rebuild(ctx)
	if err != nil {
		return nil, err
	}
	c.snap = s
	c.dirty = false
	return s, nil
}

// rebuild scans the vault and constructs a fresh snapshot. A file that
// fails to parse is skipped with a warning, never aborting the batch.
func (c *Cache) rebuild(ctx context.Context) (*snapshot, error) {
	cfg := c.cfg
	c.gen++

	s := &snapshot{generation: c.gen, builtAt: time.Now()}

	col := collate.New(language.Make(cfg.Languages.Locale))

	metas, err := c.store.List(cfg.DictionaryDir)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		c.logger.Warn("dictionary: folder missing or empty",
			slog.String("folder", cfg.DictionaryDir))
	}

	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if excluded(m.Path, cfg.TemplatesDir) {
			continue
		}
		entry, res, ok := c.buildOne(m.Path, cfg.Languages)
		if !ok {
			continue
		}
		s.entries = append(s.entries, entry)
		if builder.IsVerb(entry) {
			s.verbs = append(s.verbs, builder.BuildVerb(entry, res))
		}
	}

	sortEntries(s.entries, col)
	sortVerbs(s.verbs, col)

	s.grammar = c.scanGrammar(ctx, cfg, col)

	c.logger.Debug("dictionary: rebuilt",
		slog.Int64("generation", s.generation),
		slog.Int("entries", len(s.entries)),
		slog.Int("verbs", len(s.verbs)),
		slog.Int("grammar", len(s.grammar)))
	return s, nil
}

// scanGrammar walks the full vault for grammar-flagged notes.
func (c *Cache) scanGrammar(ctx context.Context, cfg Config, col *collate.Collator) []models.GrammarPage {
	metas, err := c.store.List("")
	if err != nil {
		c.logger.Warn("dictionary: grammar scan failed", slog.String("error", err.Error()))
		return nil
	}
	var pages []models.GrammarPage
	for _, m := range metas {
		if ctx.Err() != nil {
			return pages
		}
		if excluded(m.Path, cfg.TemplatesDir) {
			continue
		}
		data, err := c.store.Read(m.Path)
		if err != nil {
			continue
		}
		res, err := parser.Parse(data)
		if err != nil {
			continue
		}
		if builder.IsGrammar(res) {
			pages = append(pages, builder.BuildGrammarPage(builder.FileRefFor(m.Path), res))
		}
	}
	sortGrammar(pages, col)
	return pages
}

// buildOne reads and normalizes a single note, reporting ok=false on any
// failure so the scan continues.
func (c *Cache) buildOne(path string, langs models.Languages) (models.DictionaryEntry, *parser.Result, bool) {
	data, err := c.store.Read(path)
	if err != nil {
		c.logger.Warn("dictionary: read failed, skipping",
			slog.String("path", path), slog.String("error", err.Error()))
		return models.DictionaryEntry{}, nil, false
	}
	res, err := parser.Parse(data)
	if err != nil {
		c.logger.Warn("dictionary: parse failed, skipping",
			slog.String("path", path), slog.String("error", err.Error()))
		return models.DictionaryEntry{}, nil, false
	}
	return builder.Build(builder.FileRefFor(path), res, langs), res, true
}

// excluded reports whether a scan should skip this path: anything under the
// templates folder or carrying the reserved database marker.
func excluded(path, templatesDir string) bool {
	if templatesDir != "" {
		prefix := strings.TrimSuffix(templatesDir, "/") + "/"
		if strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(templatesDir, "/") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(path), databaseMarker)
}

func sortEntries(entries []models.DictionaryEntry, col *collate.Collator) {
	sort.SliceStable(entries, func(i, j int) bool {
		return col.CompareString(entries[i].File.Basename, entries[j].File.Basename) < 0
	})
}

func sortVerbs(verbs []models.VerbEntry, col *collate.Collator) {
	sort.SliceStable(verbs, func(i, j int) bool {
		return col.CompareString(verbs[i].File.Basename, verbs[j].File.Basename) < 0
	})
}

func sortGrammar(pages []models.GrammarPage, col *collate.Collator) {
	sort.SliceStable(pages, func(i, j int) bool {
		return col.CompareString(pages[i].File.Basename, pages[j].File.Basename) < 0
	})
}
