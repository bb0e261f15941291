package dictionary

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lberthe/dicolex/internal/models"
)

// Filterable field names accepted by UniqueValues and FacetOptions.
const (
	FieldTargetWord = "target_word"
	FieldSourceWord = "source_word"
	FieldType       = "type"
	FieldContext    = "context"
	FieldRevision   = "revision"
	FieldRating     = "rating"
	FieldGroup      = "group"
	FieldIrregular  = "irregular"
)

// Apply runs the compound filter pipeline over entries. Pure and
// order-preserving: the input slice is never mutated.
//
// Non-"all" filters are case-insensitive substring tests against the
// normalized field value, except revision and rating which match exactly.
// Study mode restricts the result to entries already in the revision loop
// (revision != "new").
func Apply(entries []models.DictionaryEntry, f models.FilterState) []models.DictionaryEntry {
	out := make([]models.DictionaryEntry, 0, len(entries))
	for _, e := range entries {
		if matchesEntry(e, f) {
			out = append(out, e)
		}
	}
	return out
}

// ApplyVerbs runs the same pipeline over the verb view, adding the
// verb-only group and irregular filters. Group matches exactly, with the
// "i1" sentinel meaning "any irregular group" (derived Irregular starts
// with "i").
func ApplyVerbs(verbs []models.VerbEntry, f models.FilterState) []models.VerbEntry {
	out := make([]models.VerbEntry, 0, len(verbs))
	for _, v := range verbs {
		if !matchesEntry(v.DictionaryEntry, f) {
			continue
		}
		if f.Group != "" && f.Group != models.All {
			if f.Group == models.AnyIrregularGroup {
				if !strings.HasPrefix(v.Irregular, "i") {
					continue
				}
			} else if v.Group != f.Group {
				continue
			}
		}
		if f.Irregular != "" && f.Irregular != models.All && v.Irregular != f.Irregular {
			continue
		}
		out = append(out, v)
	}
	return out
}

func matchesEntry(e models.DictionaryEntry, f models.FilterState) bool {
	if !substringMatch(e.TargetWord, f.TargetWord) {
		return false
	}
	if !substringMatch(e.SourceWord, f.SourceWord) {
		return false
	}
	if !substringMatch(e.Type, f.Type) {
		return false
	}
	if !substringMatch(e.Context, f.Context) {
		return false
	}
	if !exactMatch(e.Revision, f.Revision) {
		return false
	}
	if !exactMatch(e.Rating, f.Rating) {
		return false
	}
	if f.Study && e.Revision == models.RevisionNew {
		return false
	}
	return true
}

func substringMatch(value, filter string) bool {
	if filter == "" || filter == models.All {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}

func exactMatch(value, filter string) bool {
	if filter == "" || filter == models.All {
		return true
	}
	return value == filter
}

// UniqueValues derives the facet option list for one field: "all" followed
// by the sorted distinct values found across entries. Compound values are
// split on commas, and tag-shaped tokens (leading '#') are expanded into
// all their hierarchical prefixes so a parent tag like "#verbe" is
// selectable even when no entry carries it as a leaf.
func UniqueValues(entries []models.DictionaryEntry, field, locale string) []string {
	set := make(map[string]struct{})
	for _, e := range entries {
		for _, tok := range splitTokens(entryField(e, field)) {
			for _, v := range expandTag(tok) {
				set[v] = struct{}{}
			}
		}
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	collate.New(language.Make(locale)).SortStrings(values)
	return append([]string{models.All}, values...)
}

// FacetOptions computes context-sensitive options for one field: all other
// active filters are applied first (the field's own filter is excluded), so
// a dropdown only offers values reachable from the current selection. The
// field's currently selected value is force-included even when the
// narrowed collection no longer contains it, keeping the active selection
// valid and visible.
func FacetOptions(entries []models.DictionaryEntry, f models.FilterState, field, locale string) []string {
	relaxed := clearField(f, field)
	options := UniqueValues(Apply(entries, relaxed), field, locale)

	current := selectedValue(f, field)
	if current == "" || current == models.All {
		return options
	}
	for _, v := range options {
		if v == current {
			return options
		}
	}
	// Keep "all" first, re-sort the rest with the selection included.
	rest := append(options[1:], current)
	collate.New(language.Make(locale)).SortStrings(rest)
	return append([]string{models.All}, rest...)
}

// Paginate returns items[start:start+size) with no wraparound. Bounds are
// clamped; callers are responsible for meaningful start values.
func Paginate[T any](items []T, start, size int) []T {
	if start < 0 {
		start = 0
	}
	if size < 0 {
		size = 0
	}
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func entryField(e models.DictionaryEntry, field string) string {
	switch field {
	case FieldTargetWord:
		return e.TargetWord
	case FieldSourceWord:
		return e.SourceWord
	case FieldType:
		return e.Type
	case FieldContext:
		return e.Context
	case FieldRevision:
		return e.Revision
	case FieldRating:
		return e.Rating
	default:
		return ""
	}
}

func selectedValue(f models.FilterState, field string) string {
	switch field {
	case FieldTargetWord:
		return f.TargetWord
	case FieldSourceWord:
		return f.SourceWord
	case FieldType:
		return f.Type
	case FieldContext:
		return f.Context
	case FieldRevision:
		return f.Revision
	case FieldRating:
		return f.Rating
	case FieldGroup:
		return f.Group
	case FieldIrregular:
		return f.Irregular
	default:
		return ""
	}
}

func clearField(f models.FilterState, field string) models.FilterState {
	switch field {
	case FieldTargetWord:
		f.TargetWord = models.All
	case FieldSourceWord:
		f.SourceWord = models.All
	case FieldType:
		f.Type = models.All
	case FieldContext:
		f.Context = models.All
	case FieldRevision:
		f.Revision = models.All
	case FieldRating:
		f.Rating = models.All
	case FieldGroup:
		f.Group = models.All
	case FieldIrregular:
		f.Irregular = models.All
	}
	return f
}

func splitTokens(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandTag turns "#a/b/c" into ["#a", "#a/b", "#a/b/c"]. Non-tag tokens
// pass through unchanged.
func expandTag(tok string) []string {
	if !strings.HasPrefix(tok, "#") {
		return []string{tok}
	}
	segments := strings.Split(tok, "/")
	out := make([]string, 0, len(segments))
	prefix := ""
	for i, seg := range segments {
		if i == 0 {
			prefix = seg
		} else {
			prefix = prefix + "/" + seg
		}
		out = append(out, prefix)
	}
	return out
}
