package placeholder

import (
	"fmt"
	"strings"

	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/parser"
)

// ProcessingResult is the outcome of rendering template content against a
// context. Unresolved placeholders are not a failure: they are rendered
// in-band as bracket labels and listed here so callers can prompt for the
// missing data.
type ProcessingResult struct {
	ProcessedContent       string   `json:"processed_content"`
	UnresolvedPlaceholders []string `json:"unresolved_placeholders"`
	Success                bool     `json:"success"`
	Errors                 []string `json:"errors,omitempty"`
}

// Process renders content against ctx: literal spans are preserved
// byte-for-byte, each token is resolved or replaced with its fallback
// label, and every token that fell back is recorded once in
// first-occurrence order.
//
// Success flips to false only when the pipeline itself fails; in that
// case ProcessedContent equals the original content unchanged.
func Process(content string, ctx *models.TemplateContext) (result ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ProcessingResult{
				ProcessedContent:       content,
				UnresolvedPlaceholders: []string{},
				Success:                false,
				Errors:                 []string{fmt.Sprintf("process: %v", r)},
			}
		}
	}()

	tokens := parser.ExtractTokens(content)

	var b strings.Builder
	b.Grow(len(content))

	unresolved := []string{}
	seen := make(map[string]struct{})

	pos := 0
	for _, tok := range tokens {
		b.WriteString(content[pos:tok.Start])
		value, ok := Resolve(tok, ctx)
		if !ok {
			value = FallbackLabel(tok)
			if _, dup := seen[tok.Raw]; !dup {
				seen[tok.Raw] = struct{}{}
				unresolved = append(unresolved, tok.Raw)
			}
		}
		b.WriteString(value)
		pos = tok.End
	}
	b.WriteString(content[pos:])

	return ProcessingResult{
		ProcessedContent:       b.String(),
		UnresolvedPlaceholders: unresolved,
		Success:                true,
	}
}
