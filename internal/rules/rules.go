// Package rules implements the template validation rule engine: an
// ordered registry of content rules, issue scoring, and the real-time
// validation shapes used by interactive editors.
package rules

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups related rules.
type Category string

const (
	CategoryStructure Category = "structure"
	CategoryVariables Category = "variables"
	CategoryContent   Category = "content"
)

// QuickFix is a caller-supplied remedial action attached to an issue.
// Action is an opaque callback owned by the invoking layer; it never
// crosses the wire.
type QuickFix struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Action      func() `json:"-"`
}

// Issue is a single finding produced by a rule.
type Issue struct {
	RuleID      string    `json:"rule_id"`
	Severity    Severity  `json:"severity"`
	Category    Category  `json:"category"`
	Message     string    `json:"message"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion,omitempty"`
	QuickFix    *QuickFix `json:"quick_fix,omitempty"`
}

// Rule is one entry in the registry. Evaluate returns nil when the rule
// does not fire. Adding a rule means adding a registry entry, not
// branching logic elsewhere.
type Rule struct {
	ID       string
	Category Category
	Severity Severity
	Enabled  bool
	Evaluate func(content string, requiredKeys []string) *Issue
}

// Config carries the engine's tunable thresholds and score weights.
type Config struct {
	MinContentLength int `yaml:"min_content_length"`
	HeadingThreshold int `yaml:"heading_threshold"`
	ErrorWeight      int `yaml:"error_weight"`
	WarningWeight    int `yaml:"warning_weight"`
	InfoWeight       int `yaml:"info_weight"`
	RevisionScore    int `yaml:"revision_score"`
}

// DefaultConfig returns the default thresholds and weights
// (2 errors + 2 warnings + 1 info score a 75).
func DefaultConfig() Config {
	return Config{
		MinContentLength: 50,
		HeadingThreshold: 400,
		ErrorWeight:      8,
		WarningWeight:    4,
		InfoWeight:       1,
		RevisionScore:    60,
	}
}

// Engine evaluates the rule registry against template content.
type Engine struct {
	cfg   Config
	rules []Rule
}

// NewEngine builds an engine with the built-in rule registry.
func NewEngine(cfg Config) *Engine {
	e := &Engine{cfg: cfg}
	e.rules = builtinRules(cfg)
	return e
}

// Rules returns the full registry in evaluation order, including
// disabled entries.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate runs every enabled rule against content and the declared
// required context keys, in registry order. Disabled rules run only when
// includeDisabled is set (the UI layer's "show all rules" toggle).
func (e *Engine) Evaluate(content string, requiredKeys []string, includeDisabled bool) []Issue {
	var out []Issue
	for _, r := range e.rules {
		if !r.Enabled && !includeDisabled {
			continue
		}
		if issue := r.Evaluate(content, requiredKeys); issue != nil {
			out = append(out, *issue)
		}
	}
	return out
}

// Validate evaluates the registry and builds the summary in one call.
func (e *Engine) Validate(content string, requiredKeys []string, includeDisabled bool) Summary {
	return e.Summarize(e.Evaluate(content, requiredKeys, includeDisabled))
}
