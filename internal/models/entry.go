// Package models defines the domain types for dicolex.
package models

// Sentinel values shared across the filter and builder layers.
const (
	// All is the filter value meaning "no constraint on this field".
	All = "all"
	// RevisionNew marks an entry that has never been reviewed.
	RevisionNew = "new"
	// AnyIrregularGroup is the verb group filter sentinel matching every
	// irregular group ("i", "3", "3ir", "3oir", "3re").
	AnyIrregularGroup = "i1"
	// ExampleDelimiter separates multiple example sentences inside the
	// Examples inline field. Literal token, not a newline.
	ExampleDelimiter = "<br>"
	// MaxExamples is the accumulation cap for automation-appended examples.
	MaxExamples = 3
)

// FileRef identifies the note backing an entry. The basename (without
// extension) IS the target-language word; renaming the file renames the word.
type FileRef struct {
	Path     string `json:"path"`     // relative to vault root
	Name     string `json:"name"`     // filename with extension
	Basename string `json:"basename"` // filename without extension
}

// DictionaryEntry is one vocabulary item, normalized from a note.
//
// TargetWord and SourceWord are stored lowercased; display casing is the
// UI's concern. Type and Context are comma-joined sorted tag sets so two
// notes carrying the same tags in different order normalize identically.
type DictionaryEntry struct {
	File       FileRef `json:"file"`
	TargetWord string  `json:"target_word"`
	SourceWord string  `json:"source_word"`
	Type       string  `json:"type"`
	Context    string  `json:"context"`
	Revision   string  `json:"revision"`
	Rating     string  `json:"rating,omitempty"`
	Examples   string  `json:"examples,omitempty"`
	Synonyms   string  `json:"synonyms,omitempty"`
	Relations  string  `json:"relations,omitempty"`
	Project    string  `json:"project,omitempty"`
}

// VerbEntry is a read-only view over a DictionaryEntry whose type carries
// the verb marker tag. It is derived at cache-build time and never
// persisted independently; all writes go through the entry's file.
type VerbEntry struct {
	DictionaryEntry
	// Group is one of "", "1", "2", "i", "3", "3ir", "3oir", "3re".
	Group string `json:"group"`
	// Irregular is "i" for irregular verbs, "" otherwise. Redundant with
	// Group but kept separate: UI filters key off each independently.
	Irregular string `json:"irregular"`
	// Conjugations holds pass-through inline fields (présent, imparfait,
	// passé-composé, futur, subjonctif, ...) without further normalization.
	Conjugations map[string]string `json:"conjugations,omitempty"`
}

// GrammarPage is a note flagged as grammar reference, either via a
// frontmatter isGrammar flag or a grammar marker tag in its context.
type GrammarPage struct {
	File      FileRef  `json:"file"`
	Type      string   `json:"type"`
	Context   string   `json:"context"`
	Tags      []string `json:"tags,omitempty"`
	IsGrammar bool     `json:"is_grammar"`
}

// FilterState is ephemeral query state. The zero value is not usable;
// construct with NewFilterState so every field starts at All.
type FilterState struct {
	TargetWord string `json:"target_word"`
	SourceWord string `json:"source_word"`
	Type       string `json:"type"`
	Context    string `json:"context"`
	Revision   string `json:"revision"`
	Rating     string `json:"rating"`
	Study      bool   `json:"study"`
	// Verb-only filters.
	Group     string `json:"group"`
	Irregular string `json:"irregular"`
}

// NewFilterState returns a FilterState with every field unconstrained.
func NewFilterState() FilterState {
	return FilterState{
		TargetWord: All,
		SourceWord: All,
		Type:       All,
		Context:    All,
		Revision:   All,
		Rating:     All,
		Group:      All,
		Irregular:  All,
	}
}

// Term carries an incoming create-or-update request for one vocabulary item.
// TargetWord is the identity; everything else is optional.
type Term struct {
	TargetWord string `json:"target_word"`
	SourceWord string `json:"source_word,omitempty"`
	Type       string `json:"type,omitempty"`
	Context    string `json:"context,omitempty"`
	Rating     string `json:"rating,omitempty"`
	Examples   string `json:"examples,omitempty"`
}

// Languages holds the configured language pair. The source language's
// display name doubles as the frontmatter key holding the translation.
type Languages struct {
	Target string // language being learned, e.g. "French"
	Source string // learner's native language, e.g. "English"
	Locale string // BCP-47 tag for collation, e.g. "fr"
}

// SourceFieldName is the single seam mapping configuration to the dynamic
// frontmatter key that holds the translation. Renaming the configured source
// language orphans notes written under the old name; that is a product
// decision, not handled here.
func (l Languages) SourceFieldName() string {
	return l.Source
}
