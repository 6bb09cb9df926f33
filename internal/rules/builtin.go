package rules

import (
	"fmt"
	"strings"

	"github.com/steinmetz/vorlage/internal/parser"
	"github.com/steinmetz/vorlage/internal/placeholder"
)

// builtinRules returns the fixed registry in evaluation order.
func builtinRules(cfg Config) []Rule {
	return []Rule{
		{
			ID:       "empty_content",
			Category: CategoryStructure,
			Severity: SeverityError,
			Enabled:  true,
			Evaluate: func(content string, _ []string) *Issue {
				if strings.TrimSpace(content) != "" {
					return nil
				}
				return &Issue{
					RuleID:      "empty_content",
					Severity:    SeverityError,
					Category:    CategoryStructure,
					Message:     "Vorlage ist leer",
					Description: "Die Vorlage enthält keinen Inhalt.",
					Suggestion:  "Fügen Sie Text und Platzhalter hinzu.",
				}
			},
		},
		{
			ID:       "missing_headings",
			Category: CategoryStructure,
			Severity: SeverityWarning,
			Enabled:  true,
			Evaluate: func(content string, _ []string) *Issue {
				if len(content) <= cfg.HeadingThreshold || hasHeading(content) {
					return nil
				}
				return &Issue{
					RuleID:      "missing_headings",
					Severity:    SeverityWarning,
					Category:    CategoryStructure,
					Message:     "Keine Überschriften gefunden",
					Description: "Längere Vorlagen sind mit Überschriften besser lesbar.",
					Suggestion:  "Gliedern Sie den Text mit Überschriften (# Titel).",
				}
			},
		},
		{
			ID:       "content_too_short",
			Category: CategoryContent,
			Severity: SeverityWarning,
			Enabled:  true,
			Evaluate: func(content string, _ []string) *Issue {
				trimmed := strings.TrimSpace(content)
				if trimmed == "" || len(trimmed) >= cfg.MinContentLength {
					return nil
				}
				return &Issue{
					RuleID:      "content_too_short",
					Severity:    SeverityWarning,
					Category:    CategoryContent,
					Message:     "Inhalt sehr kurz",
					Description: fmt.Sprintf("Der Inhalt hat weniger als %d Zeichen.", cfg.MinContentLength),
					Suggestion:  "Ergänzen Sie die Vorlage um die üblichen Briefbestandteile.",
				}
			},
		},
		{
			ID:       "invalid_variables",
			Category: CategoryVariables,
			Severity: SeverityError,
			Enabled:  true,
			Evaluate: func(content string, _ []string) *Issue {
				bad := invalidTokens(content)
				if len(bad) == 0 {
					return nil
				}
				return &Issue{
					RuleID:      "invalid_variables",
					Severity:    SeverityError,
					Category:    CategoryVariables,
					Message:     fmt.Sprintf("Unbekannte Platzhalter: %s", strings.Join(bad, ", ")),
					Description: "Diese Platzhalter entsprechen keiner bekannten Variable und bleiben beim Erstellen unaufgelöst.",
					Suggestion:  "Verwenden Sie nur dokumentierte Platzhalter (z. B. @mieter.name).",
				}
			},
		},
		{
			ID:       "unused_variables",
			Category: CategoryVariables,
			Severity: SeverityInfo,
			Enabled:  true,
			Evaluate: func(content string, requiredKeys []string) *Issue {
				unused := unusedKeys(content, requiredKeys)
				if len(unused) == 0 {
					return nil
				}
				return &Issue{
					RuleID:      "unused_variables",
					Severity:    SeverityInfo,
					Category:    CategoryVariables,
					Message:     fmt.Sprintf("Deklarierte Kontexte ohne Verwendung: %s", strings.Join(unused, ", ")),
					Description: "Die Vorlage deklariert Kontext-Schlüssel, auf die kein Platzhalter verweist.",
					Suggestion:  "Entfernen Sie ungenutzte Kontexte oder referenzieren Sie sie im Text.",
				}
			},
		},
	}
}

func hasHeading(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			return true
		}
	}
	return false
}

// invalidTokens returns the distinct raw tokens whose entity/field do not
// match the documented placeholder grammar, in first-occurrence order.
func invalidTokens(content string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range parser.ExtractTokens(content) {
		if placeholder.KnownToken(tok) {
			continue
		}
		if _, dup := seen[tok.Raw]; dup {
			continue
		}
		seen[tok.Raw] = struct{}{}
		out = append(out, tok.Raw)
	}
	return out
}

// unusedKeys returns the declared required keys never referenced by any
// token in the content, preserving declaration order.
func unusedKeys(content string, requiredKeys []string) []string {
	if len(requiredKeys) == 0 {
		return nil
	}
	used := make(map[string]struct{})
	for _, tok := range parser.ExtractTokens(content) {
		used[tok.Entity] = struct{}{}
	}
	var out []string
	for _, key := range requiredKeys {
		if _, ok := used[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}
