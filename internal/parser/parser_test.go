package parser

import (
	"testing"
)

func TestParse_FrontmatterAndInline(t *testing.T) {
	input := []byte("---\nEnglish: hello\ncssclasses:\n  - dictionary\n---\nType:: #expression\nContext:: #social/greetings\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := r.FrontmatterString("English"); !ok || v != "hello" {
		t.Errorf("English = %q, %v", v, ok)
	}
	if v, ok := r.InlineValue("Type"); !ok || v != "#expression" {
		t.Errorf("Type = %q, %v", v, ok)
	}
	if v, ok := r.InlineValue("Context"); !ok || v != "#social/greetings" {
		t.Errorf("Context = %q, %v", v, ok)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("Type:: #nom\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if v, _ := r.InlineValue("Type"); v != "#nom" {
		t.Errorf("Type = %q", v)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nType:: #verbe\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	// Inline fields still extracted from the full content.
	if v, ok := r.InlineValue("Type"); !ok || v != "#verbe" {
		t.Errorf("Type = %q, %v", v, ok)
	}
}

func TestExtractInlineFields_EmptyValuePresent(t *testing.T) {
	fields := extractInlineFields("Type::\nRating:: 3\n")
	v, ok := fields["Type"]
	if !ok {
		t.Fatal("Type should be present")
	}
	if v != "" {
		t.Errorf("Type = %q, want empty", v)
	}
	if fields["Rating"] != "3" {
		t.Errorf("Rating = %q", fields["Rating"])
	}
}

func TestExtractInlineFields_LastOccurrenceWins(t *testing.T) {
	fields := extractInlineFields("Revision:: 1\ntext\nRevision:: 2\n")
	if fields["Revision"] != "2" {
		t.Errorf("Revision = %q, want 2", fields["Revision"])
	}
}

func TestExtractInlineFields_WhitespaceAroundSeparator(t *testing.T) {
	fields := extractInlineFields("Type ::   #verbe/régulier/1  \n")
	if fields["Type"] != "#verbe/régulier/1" {
		t.Errorf("Type = %q", fields["Type"])
	}
}

func TestExtractInlineFields_ValueNeverSpansLines(t *testing.T) {
	fields := extractInlineFields("Examples:: first sentence\nsecond line is body\n")
	if fields["Examples"] != "first sentence" {
		t.Errorf("Examples = %q", fields["Examples"])
	}
}

func TestExtractInlineFields_AccentedKey(t *testing.T) {
	fields := extractInlineFields("présent:: je parle\n")
	if fields["présent"] != "je parle" {
		t.Errorf("présent = %q", fields["présent"])
	}
}

func TestExtractInlineFields_IgnoresNonFieldColons(t *testing.T) {
	fields := extractInlineFields("see https://example.com\nnot a field: value\n")
	if len(fields) != 0 {
		t.Errorf("fields = %v, want none", fields)
	}
}

func TestFrontmatterList(t *testing.T) {
	r, err := Parse([]byte("---\nType:\n  - \"#b\"\n  - \"#a\"\n---\nbody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := r.FrontmatterList("Type")
	if !ok || len(list) != 2 || list[0] != "#b" || list[1] != "#a" {
		t.Errorf("list = %v, %v", list, ok)
	}
}

func TestFrontmatterString_ScalarKinds(t *testing.T) {
	r, err := Parse([]byte("---\nRevision: 2\nisGrammar: true\n---\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := r.FrontmatterString("Revision"); v != "2" {
		t.Errorf("Revision = %q", v)
	}
	if !r.FrontmatterBool("isGrammar") {
		t.Error("isGrammar should be true")
	}
}
