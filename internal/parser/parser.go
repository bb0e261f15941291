// Package parser extracts frontmatter and inline fields from note content.
//
// A note carries two co-existing field syntaxes: a YAML frontmatter block
// between leading --- delimiters, and inline fields of the form
// "Key:: value" anywhere in the body, one per line. The two are kept as
// separate namespaces; resolution order is the entry builder's decision.
package parser

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// inlineFieldRe matches one inline field line: optional leading whitespace,
// a case-sensitive identifier key, "::", an optional single space, then the
// value to end of line. An inline value never spans lines.
var inlineFieldRe = regexp.MustCompile(`^\s*([A-Za-zÀ-ÿ][A-Za-z0-9À-ÿ_-]*)\s*:: ?(.*)$`)

// Result holds the output of parsing a note.
type Result struct {
	Frontmatter map[string]interface{}
	Inline      map[string]string
	Body        string
}

// Parse extracts frontmatter and inline fields from raw note bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Inline:      extractInlineFields(body),
		Body:        body,
	}, nil
}

// InlineValue reports the value of an inline field and whether the field is
// present at all. A field written as "Type::" with nothing after is present
// with an empty value, which is distinct from absent.
func (r *Result) InlineValue(name string) (string, bool) {
	v, ok := r.Inline[name]
	return v, ok
}

// FrontmatterString returns the frontmatter value for key rendered as a
// string. Lists are NOT joined here; use FrontmatterList for those.
func (r *Result) FrontmatterString(key string) (string, bool) {
	if r.Frontmatter == nil {
		return "", false
	}
	raw, ok := r.Frontmatter[key]
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// FrontmatterList returns the frontmatter value for key as a string slice
// when it is a YAML list, or nil and false otherwise.
func (r *Result) FrontmatterList(key string) ([]string, bool) {
	if r.Frontmatter == nil {
		return nil, false
	}
	raw, ok := r.Frontmatter[key]
	if !ok {
		return nil, false
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out, true
}

// FrontmatterBool returns the frontmatter value for key as a bool.
func (r *Result) FrontmatterBool(key string) bool {
	if r.Frontmatter == nil {
		return false
	}
	b, _ := r.Frontmatter[key].(bool)
	return b
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the note body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML; the note still contributes its inline fields.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractInlineFields scans the body line by line for "Key:: value" fields.
// When the same key appears more than once the last occurrence wins,
// consistent with the writer's whole-line replacement.
func extractInlineFields(body string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		m := inlineFieldRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		fields[m[1]] = strings.TrimSpace(m[2])
	}
	return fields
}
