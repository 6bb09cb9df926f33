package rules

import (
	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/parser"
	"github.com/steinmetz/vorlage/internal/placeholder"
)

// Span marks a byte range of the content for in-editor highlighting.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// LiveError is an error-severity finding shaped for incremental display.
type LiveError struct {
	Field    string    `json:"field"`
	Message  string    `json:"message"`
	Code     string    `json:"code"`
	Severity Severity  `json:"severity"`
	Position *Span     `json:"position,omitempty"`
	QuickFix *QuickFix `json:"quick_fix,omitempty"`
}

// LiveWarning is a warning-severity finding shaped for incremental display.
type LiveWarning struct {
	Field      string   `json:"field"`
	Message    string   `json:"message"`
	Code       string   `json:"code"`
	Severity   Severity `json:"severity"`
	Position   *Span    `json:"position,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// LiveSuggestion is an informational hint with a caller-routable action.
type LiveSuggestion struct {
	Field       string `json:"field"`
	Message     string `json:"message"`
	Code        string `json:"code"`
	Action      string `json:"action"`
	ActionLabel string `json:"action_label"`
	Priority    int    `json:"priority"`
}

// LiveResult is the full "detailed" shape of a real-time validation pass.
type LiveResult struct {
	IsValid     bool             `json:"is_valid"`
	Errors      []LiveError      `json:"errors"`
	Warnings    []LiveWarning    `json:"warnings"`
	Suggestions []LiveSuggestion `json:"suggestions"`
}

// LiveCounts is the compact "inline" shape: counts only, details fetched
// on demand.
type LiveCounts struct {
	IsValid         bool `json:"is_valid"`
	ErrorCount      int  `json:"error_count"`
	WarningCount    int  `json:"warning_count"`
	SuggestionCount int  `json:"suggestion_count"`
}

// Counts collapses a LiveResult into its inline shape.
func (r LiveResult) Counts() LiveCounts {
	return LiveCounts{
		IsValid:         r.IsValid,
		ErrorCount:      len(r.Errors),
		WarningCount:    len(r.Warnings),
		SuggestionCount: len(r.Suggestions),
	}
}

// ValidateLive runs the rule registry plus a context-aware resolution
// pass and shapes the findings for interactive display. It is a pure
// function of its inputs: debouncing rapid edits is the caller's job.
func (e *Engine) ValidateLive(content string, ctx *models.TemplateContext, requiredKeys []string) LiveResult {
	res := LiveResult{
		Errors:      []LiveError{},
		Warnings:    []LiveWarning{},
		Suggestions: []LiveSuggestion{},
	}

	for _, issue := range e.Evaluate(content, requiredKeys, false) {
		switch issue.Severity {
		case SeverityError:
			res.Errors = append(res.Errors, LiveError{
				Field:    "content",
				Message:  issue.Message,
				Code:     issue.RuleID,
				Severity: issue.Severity,
				Position: firstInvalidSpan(content, issue.RuleID),
				QuickFix: issue.QuickFix,
			})
		case SeverityWarning:
			res.Warnings = append(res.Warnings, LiveWarning{
				Field:      "content",
				Message:    issue.Message,
				Code:       issue.RuleID,
				Severity:   issue.Severity,
				Suggestion: issue.Suggestion,
			})
		case SeverityInfo:
			res.Suggestions = append(res.Suggestions, LiveSuggestion{
				Field:       "content",
				Message:     issue.Message,
				Code:        issue.RuleID,
				Action:      issue.RuleID,
				ActionLabel: issue.Suggestion,
				Priority:    1,
			})
		}
	}

	// Resolution pass: tokens that would fall back to bracket labels with
	// the supplied context become positioned warnings.
	if ctx != nil {
		for _, tok := range parser.ExtractTokens(content) {
			if !placeholder.KnownToken(tok) {
				continue // already covered by invalid_variables
			}
			if _, ok := placeholder.Resolve(tok, ctx); ok {
				continue
			}
			res.Warnings = append(res.Warnings, LiveWarning{
				Field:      tok.Raw,
				Message:    "Platzhalter kann mit den vorhandenen Daten nicht aufgelöst werden",
				Code:       "unresolved_placeholder",
				Severity:   SeverityWarning,
				Position:   &Span{Start: tok.Start, End: tok.End},
				Suggestion: "Ergänzen Sie die fehlenden Kontextdaten.",
			})
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// firstInvalidSpan locates the first unknown token for highlighting the
// invalid_variables finding. Other rules have no meaningful position.
func firstInvalidSpan(content, ruleID string) *Span {
	if ruleID != "invalid_variables" {
		return nil
	}
	for _, tok := range parser.ExtractTokens(content) {
		if !placeholder.KnownToken(tok) {
			return &Span{Start: tok.Start, End: tok.End}
		}
	}
	return nil
}
