// Package writer applies partial field updates to note files and creates
// new notes from a template, under per-file serialized locking. File
// storage has no read-modify-write atomicity of its own; the lock is what
// keeps two near-simultaneous field updates from silently losing one.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lberthe/dicolex/internal/apperr"
	"github.com/lberthe/dicolex/internal/builder"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/parser"
	"github.com/lberthe/dicolex/internal/storage"
)

// defaultTemplate is the built-in note skeleton used when no template file
// is configured or the configured one is missing.
const defaultTemplate = `---
{{source_language}}:
cssclasses:
  - dictionary
---
# {{title}}

Type::
Context::
Rating::
Examples::
Synonyms::
Relations::
Revision:: new
Project::
`

// Config carries the writer's vault parameters.
type Config struct {
	Languages     models.Languages
	DictionaryDir string // where new term notes are created
	TemplateFile  string // vault-relative template note, optional
}

// Writer is the mutation engine. Safe for concurrent use.
type Writer struct {
	store  storage.Provider
	logger *slog.Logger
	locks  *pathLocks

	cfg Config
}

// New creates a Writer.
func New(store storage.Provider, cfg Config, logger *slog.Logger) *Writer {
	return &Writer{store: store, cfg: cfg, logger: logger, locks: newPathLocks()}
}

// Reconfigure swaps the vault parameters for subsequent operations.
func (w *Writer) Reconfigure(cfg Config) {
	w.cfg = cfg
}

// PathFor returns the vault-relative note path for a target word. The
// word's identity is its filename, case-insensitively.
func (w *Writer) PathFor(targetWord string) string {
	name := strings.ToLower(strings.TrimSpace(targetWord)) + ".md"
	return filepath.Join(w.cfg.DictionaryDir, name)
}

// UpsertTerm creates the term's note from a template when absent, or
// applies the term's fields to the existing note.
//
// On update, force=false enforces the do-not-clobber policy: only blank
// fields accept incoming values, except examples which accumulate up to
// the cap. force=true overwrites every supplied field, but an empty
// incoming value still never clears (clearing requires UpdateField with
// allowClear). Errors are returned as values, never thrown past this
// boundary.
func (w *Writer) UpsertTerm(ctx context.Context, term models.Term, force bool) (models.FileRef, error) {
	if strings.TrimSpace(term.TargetWord) == "" {
		return models.FileRef{}, fmt.Errorf("writer: target word is required")
	}
	path := w.PathFor(term.TargetWord)
	ref := builder.FileRefFor(path)

	err := w.locks.do(path, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.store.Exists(path) {
			if err := w.createLocked(path, term); err != nil {
				return err
			}
			// A fresh note has only blank fields; the do-not-clobber
			// apply below fills them without a special create branch.
			force = false
		}
		return w.applyLocked(path, term, force)
	})
	if err != nil {
		w.logger.Error("writer: upsert failed",
			slog.String("term", term.TargetWord), slog.String("error", err.Error()))
		return models.FileRef{}, err
	}
	return ref, nil
}

// UpdateField rewrites one field of an existing note. An empty value only
// erases an existing non-empty value when allowClear is set; without it an
// incoming empty string is a no-op, so a stray blank from automation can
// never wipe user data.
func (w *Writer) UpdateField(ctx context.Context, path, field, value string, allowClear bool) error {
	err := w.locks.do(path, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := w.store.Read(path)
		if err != nil {
			return apperr.ErrNotFound
		}
		text := string(data)

		if value == "" && !allowClear {
			if current := w.currentValue(text, field); current != "" {
				return nil
			}
		}

		updated := w.setField(text, field, value)
		if updated == text {
			return nil
		}
		return w.store.Write(path, []byte(updated))
	})
	if err != nil {
		w.logger.Warn("writer: update field failed",
			slog.String("path", path), slog.String("field", field),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// createLocked writes a new note from the configured template, falling
// back to the built-in skeleton. Must be called with the path lock held.
func (w *Writer) createLocked(path string, term models.Term) error {
	tpl := defaultTemplate
	if w.cfg.TemplateFile != "" {
		data, err := w.store.Read(w.cfg.TemplateFile)
		if err != nil {
			w.logger.Warn("writer: template not found, using default",
				slog.String("template", w.cfg.TemplateFile))
		} else {
			tpl = string(data)
		}
	}

	content := strings.NewReplacer(
		"{{title}}", strings.TrimSpace(term.TargetWord),
		"{{target_language}}", w.cfg.Languages.Target,
		"{{source_language}}", w.cfg.Languages.SourceFieldName(),
	).Replace(tpl)

	if err := w.store.Write(path, []byte(content)); err != nil {
		return fmt.Errorf("writer: create %s: %w", path, err)
	}
	return nil
}

// applyLocked writes the term's supplied fields into the note at path.
// Must be called with the path lock held.
func (w *Writer) applyLocked(path string, term models.Term, force bool) error {
	data, err := w.store.Read(path)
	if err != nil {
		return apperr.ErrNotFound
	}
	text := string(data)

	for _, fv := range []struct{ field, value string }{
		{w.cfg.Languages.SourceFieldName(), term.SourceWord},
		{builder.FieldType, term.Type},
		{builder.FieldContext, term.Context},
		{builder.FieldRating, term.Rating},
	} {
		if fv.value == "" {
			continue
		}
		if force || w.currentValue(text, fv.field) == "" {
			text = w.setField(text, fv.field, fv.value)
		}
	}

	if term.Examples != "" {
		text = w.accumulateExamples(text, term.Examples, force)
	}

	if text == string(data) {
		return nil
	}
	return w.store.Write(path, []byte(text))
}

// accumulateExamples appends a new example to the Examples field when
// fewer than the cap already exist; at or past the cap it leaves the note
// untouched. Examples are delimited by the literal <br> token. Automation
// may enrich an under-filled note but never erase curated sentences; force
// mode replaces the whole list.
func (w *Writer) accumulateExamples(text, incoming string, force bool) string {
	existing := w.currentValue(text, builder.FieldExamples)
	if force || existing == "" {
		return w.setField(text, builder.FieldExamples, incoming)
	}
	count := 0
	for _, part := range strings.Split(existing, models.ExampleDelimiter) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	if count >= models.MaxExamples {
		return text
	}
	return w.setField(text, builder.FieldExamples, existing+models.ExampleDelimiter+incoming)
}

// setField dispatches a field write: the dynamic source-language field
// lives in frontmatter, everything else is an inline field.
func (w *Writer) setField(text, field, value string) string {
	if field == w.cfg.Languages.SourceFieldName() {
		return setFrontmatterKey(text, field, value)
	}
	return replaceInlineField(text, field, value)
}

// currentValue reads a field's present value from raw text using the same
// extraction rules the cache uses.
func (w *Writer) currentValue(text, field string) string {
	res, err := parser.Parse([]byte(text))
	if err != nil {
		return ""
	}
	if field == w.cfg.Languages.SourceFieldName() {
		if v, ok := res.FrontmatterString(field); ok {
			return v
		}
		if v, ok := res.FrontmatterString(strings.ToLower(field)); ok {
			return v
		}
		return ""
	}
	v, _ := res.InlineValue(field)
	return v
}

var anyInlineFieldRe = regexp.MustCompile(`^\s*[A-Za-zÀ-ÿ][A-Za-z0-9À-ÿ_-]*\s*::`)

// replaceInlineField rewrites the first line matching the field (optional
// single space before ::) with "field:: value". When the field is absent
// the new line is inserted right after the last existing inline field, or
// appended at document end if there are none. Unrelated lines are never
// touched.
func replaceInlineField(text, field, value string) string {
	fieldRe := regexp.MustCompile(`^` + regexp.QuoteMeta(field) + `\s?::.*$`)
	newLine := field + ":: " + value

	lines := strings.Split(text, "\n")
	lastInline := -1
	inFrontmatter := false
	for i, line := range lines {
		if i == 0 && line == "---" {
			inFrontmatter = true
			continue
		}
		if inFrontmatter {
			if line == "---" {
				inFrontmatter = false
			}
			continue
		}
		if fieldRe.MatchString(line) {
			lines[i] = newLine
			return strings.Join(lines, "\n")
		}
		if anyInlineFieldRe.MatchString(line) {
			lastInline = i
		}
	}

	if lastInline >= 0 {
		lines = append(lines[:lastInline+1], append([]string{newLine}, lines[lastInline+1:]...)...)
		return strings.Join(lines, "\n")
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + newLine + "\n"
}

// setFrontmatterKey assigns one frontmatter key as a line-level edit,
// leaving every other line of the block untouched. A note without a
// frontmatter block gains one.
func setFrontmatterKey(text, key, value string) string {
	newLine := key + ": " + quoteYAMLValue(value)

	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[0] == "---" {
		for i := 1; i < len(lines); i++ {
			if lines[i] == "---" {
				// Key absent; insert before the closing delimiter.
				lines = append(lines[:i], append([]string{newLine}, lines[i:]...)...)
				return strings.Join(lines, "\n")
			}
			if strings.HasPrefix(lines[i], key+":") {
				lines[i] = newLine
				return strings.Join(lines, "\n")
			}
		}
	}
	return "---\n" + newLine + "\n---\n" + text
}

// quoteYAMLValue quotes values that YAML would otherwise reinterpret.
func quoteYAMLValue(v string) string {
	if v == "" {
		return `""`
	}
	if strings.ContainsAny(v, "#:\"'\n{}[]&*!|>%@`") {
		return fmt.Sprintf("%q", v)
	}
	return v
}
