// Package parser extracts frontmatter and placeholder tokens from template content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// tokenRe matches @entity, @entity.field, and @entity.field.modifier.
// Segments after the entity key are identifiers; the match is greedy so
// `@datum.lang` is one token, not `@datum` plus literal ".lang".
var tokenRe = regexp.MustCompile(`@([a-zA-Z][a-zA-Z0-9_]*)((?:\.[a-zA-Z][a-zA-Z0-9_]*){0,2})`)

// Token is one placeholder occurrence in template content.
type Token struct {
	Raw      string // literal substring matched, e.g. "@mieter.email"
	Entity   string // entity key, e.g. "mieter"
	Field    string // field path, empty for standalone directives
	Modifier string // second segment, e.g. "lang" in "@datum.lang"
	Start    int    // byte offset of the token in the content
	End      int    // byte offset just past the token
}

// Result holds the output of parsing a template file.
type Result struct {
	Frontmatter  map[string]interface{}
	Body         string
	Tokens       []Token
	Title        string
	Category     string
	RequiredKeys []string
}

// Parse extracts frontmatter, body, and placeholder tokens from raw
// template bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter:  fm,
		Body:         body,
		Tokens:       ExtractTokens(body),
		Title:        deriveTitle(fm, body),
		Category:     stringField(fm, "kategorie"),
		RequiredKeys: stringListField(fm, "kontext"),
	}, nil
}

// ExtractTokens returns every placeholder occurrence in content, in
// document order, with byte spans. Tokens with unknown entity keys are
// included; deciding validity is the resolver's job.
func ExtractTokens(content string) []Token {
	idx := tokenRe.FindAllStringSubmatchIndex(content, -1)
	out := make([]Token, 0, len(idx))
	for _, m := range idx {
		raw := content[m[0]:m[1]]
		entity := content[m[2]:m[3]]
		var field, modifier string
		if m[4] >= 0 && m[4] < m[5] {
			segs := strings.Split(strings.TrimPrefix(content[m[4]:m[5]], "."), ".")
			field = segs[0]
			if len(segs) > 1 {
				modifier = segs[1]
			}
		}
		out = append(out, Token{
			Raw:      raw,
			Entity:   entity,
			Field:    field,
			Modifier: modifier,
			Start:    m[0],
			End:      m[1],
		})
	}
	return out
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the template body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter — treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML — return body only, no error.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// deriveTitle returns the frontmatter "titel" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t := stringField(fm, "titel"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// stringListField collects the deduplicated string items of a YAML list
// field, preserving order.
func stringListField(fm map[string]interface{}, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key].([]interface{})
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
