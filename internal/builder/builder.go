// Package builder turns an extracted field map plus file identity into
// normalized dictionary records.
package builder

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/parser"
)

// Tag markers recognized in type/context fields.
const (
	VerbMarker    = "#verbe"
	GrammarMarker = "#grammaire"
)

// Inline/frontmatter field names. Keys are case-sensitive in notes; the
// resolver additionally probes the lowercased variant to tolerate
// inconsistent capitalization across a vault.
const (
	FieldType      = "Type"
	FieldContext   = "Context"
	FieldRevision  = "Revision"
	FieldRating    = "Rating"
	FieldExamples  = "Examples"
	FieldSynonyms  = "Synonyms"
	FieldRelations = "Relations"
	FieldProject   = "Project"
	FieldIsGrammar = "isGrammar"
)

var irregularRe = regexp.MustCompile(`#verbe/irrégulier(/\d+)?`)

// conjugationFields are the verb tense fields passed through untouched.
var conjugationFields = []string{
	"présent", "imparfait", "passé-composé", "futur",
	"conditionnel", "subjonctif", "impératif", "participe-passé",
}

// Build constructs a normalized DictionaryEntry from a parsed note.
//
// Resolution order per logical field: inline value, then frontmatter value,
// then the lowercased-key variant of each, then empty string. List-valued
// frontmatter fields are sorted and joined with ", " so that tag order in
// the note never affects the normalized record.
func Build(file models.FileRef, res *parser.Result, langs models.Languages) models.DictionaryEntry {
	return models.DictionaryEntry{
		File:       file,
		TargetWord: strings.ToLower(file.Basename),
		SourceWord: strings.ToLower(resolve(res, langs.SourceFieldName())),
		Type:       resolve(res, FieldType),
		Context:    resolve(res, FieldContext),
		Revision:   normalizeRevision(res),
		Rating:     resolve(res, FieldRating),
		Examples:   resolve(res, FieldExamples),
		Synonyms:   resolve(res, FieldSynonyms),
		Relations:  resolve(res, FieldRelations),
		Project:    resolve(res, FieldProject),
	}
}

// BuildVerb wraps a dictionary entry in its verb view, deriving group and
// irregularity from the type tags and collecting conjugation fields.
func BuildVerb(entry models.DictionaryEntry, res *parser.Result) models.VerbEntry {
	group, irregular := DeriveVerbFields(entry)
	v := models.VerbEntry{
		DictionaryEntry: entry,
		Group:           group,
		Irregular:       irregular,
	}
	if res != nil {
		for _, f := range conjugationFields {
			if val, ok := res.InlineValue(f); ok && val != "" {
				if v.Conjugations == nil {
					v.Conjugations = make(map[string]string)
				}
				v.Conjugations[f] = val
			}
		}
	}
	return v
}

// DeriveVerbFields computes the verb group and irregular flag from an
// entry's type tags. Pure function of entry.Type.
//
// Group precedence is most-specific first; both fields are kept even though
// Group already encodes irregularity, because filters key off each
// independently.
func DeriveVerbFields(entry models.DictionaryEntry) (group, irregular string) {
	t := entry.Type
	switch {
	case strings.Contains(t, "#verbe/régulier/1"):
		group = "1"
	case strings.Contains(t, "#verbe/régulier/2"):
		group = "2"
	case strings.Contains(t, "#verbe/irrégulier/3/ir"):
		group = "3ir"
	case strings.Contains(t, "#verbe/irrégulier/3/oir"):
		group = "3oir"
	case strings.Contains(t, "#verbe/irrégulier/3/re"):
		group = "3re"
	case strings.Contains(t, "#verbe/irrégulier/3"):
		group = "3"
	case strings.Contains(t, "#verbe/irrégulier"):
		group = "i"
	}
	if irregularRe.MatchString(t) {
		irregular = "i"
	}
	return group, irregular
}

// IsVerb reports whether an entry's type carries the verb marker tag.
func IsVerb(entry models.DictionaryEntry) bool {
	return strings.Contains(entry.Type, VerbMarker)
}

// IsGrammar reports whether a parsed note is flagged as grammar reference,
// either via the isGrammar frontmatter flag or a grammar marker tag in its
// context field.
func IsGrammar(res *parser.Result) bool {
	if res.FrontmatterBool(FieldIsGrammar) || res.FrontmatterBool(strings.ToLower(FieldIsGrammar)) {
		return true
	}
	return strings.Contains(resolve(res, FieldContext), GrammarMarker)
}

// BuildGrammarPage constructs a GrammarPage from a parsed note.
func BuildGrammarPage(file models.FileRef, res *parser.Result) models.GrammarPage {
	typ := resolve(res, FieldType)
	page := models.GrammarPage{
		File:      file,
		Type:      typ,
		Context:   resolve(res, FieldContext),
		IsGrammar: true,
	}
	// Tags merge the note's generic tag list with the type tags.
	seen := make(map[string]struct{})
	if tags, ok := res.FrontmatterList("tags"); ok {
		for _, tag := range tags {
			if _, dup := seen[tag]; !dup {
				seen[tag] = struct{}{}
				page.Tags = append(page.Tags, tag)
			}
		}
	}
	for _, tok := range strings.Split(typ, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; !dup {
			seen[tok] = struct{}{}
			page.Tags = append(page.Tags, tok)
		}
	}
	return page
}

// FileRefFor derives a FileRef from a vault-relative path.
func FileRefFor(path string) models.FileRef {
	name := filepath.Base(path)
	return models.FileRef{
		Path:     path,
		Name:     name,
		Basename: strings.TrimSuffix(name, filepath.Ext(name)),
	}
}

// resolve applies the field resolution order: inline exact, inline
// lowercased, frontmatter exact (scalar or sorted-joined list), frontmatter
// lowercased, empty string. Inline values that are present-but-empty still
// win over frontmatter, preserving an explicit "Type::" clearing a note.
func resolve(res *parser.Result, field string) string {
	lower := strings.ToLower(field)
	if v, ok := res.InlineValue(field); ok {
		return v
	}
	if lower != field {
		if v, ok := res.InlineValue(lower); ok {
			return v
		}
	}
	for _, key := range frontmatterKeys(field, lower) {
		if list, ok := res.FrontmatterList(key); ok {
			return sortJoin(list)
		}
		if v, ok := res.FrontmatterString(key); ok {
			return v
		}
	}
	return ""
}

func frontmatterKeys(field, lower string) []string {
	if lower == field {
		return []string{field}
	}
	return []string{field, lower}
}

// sortJoin renders a tag list deterministically: lexicographic sort, ", "
// join. Two notes with the same tag set in different order must normalize
// identically for filter and facet matching to agree.
func sortJoin(list []string) string {
	sorted := make([]string, len(list))
	copy(sorted, list)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// normalizeRevision takes the first non-blank revision candidate from the
// inline and frontmatter namespaces. A trimmed, lowercased "new" collapses
// to the sentinel; any other value is kept trimmed but otherwise untouched
// so numeric revisions like "2" survive exactly.
func normalizeRevision(res *parser.Result) string {
	candidates := []string{}
	if v, ok := res.InlineValue(FieldRevision); ok {
		candidates = append(candidates, v)
	}
	if v, ok := res.InlineValue(strings.ToLower(FieldRevision)); ok {
		candidates = append(candidates, v)
	}
	if v, ok := res.FrontmatterString(FieldRevision); ok {
		candidates = append(candidates, v)
	}
	if v, ok := res.FrontmatterString(strings.ToLower(FieldRevision)); ok {
		candidates = append(candidates, v)
	}
	for _, c := range candidates {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		if strings.EqualFold(trimmed, models.RevisionNew) {
			return models.RevisionNew
		}
		return trimmed
	}
	return models.RevisionNew
}
