package rules

import "fmt"

// Summary aggregates issues into a score, counts, category buckets, and
// recommendations. IsValid holds iff no error-severity issue fired.
type Summary struct {
	IsValid          bool                 `json:"is_valid"`
	Score            int                  `json:"score"`
	TotalIssues      int                  `json:"total_issues"`
	ErrorCount       int                  `json:"error_count"`
	WarningCount     int                  `json:"warning_count"`
	InfoCount        int                  `json:"info_count"`
	IssuesByCategory map[Category][]Issue `json:"issues_by_category"`
	Recommendations  []string             `json:"recommendations"`
}

// Summarize builds a Summary from an issue list. The score starts at 100,
// loses a per-severity weight per issue, and is clamped at 0. Category
// buckets exist only for categories that produced at least one issue.
func (e *Engine) Summarize(issues []Issue) Summary {
	s := Summary{
		TotalIssues:      len(issues),
		IssuesByCategory: make(map[Category][]Issue),
	}

	score := 100
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			s.ErrorCount++
			score -= e.cfg.ErrorWeight
		case SeverityWarning:
			s.WarningCount++
			score -= e.cfg.WarningWeight
		case SeverityInfo:
			s.InfoCount++
			score -= e.cfg.InfoWeight
		}
		s.IssuesByCategory[issue.Category] = append(s.IssuesByCategory[issue.Category], issue)
	}
	if score < 0 {
		score = 0
	}
	s.Score = score
	s.IsValid = s.ErrorCount == 0
	s.Recommendations = e.recommendations(s)
	return s
}

// recommendations generates the textual advice shown next to the score.
func (e *Engine) recommendations(s Summary) []string {
	var out []string
	if s.ErrorCount > 0 {
		out = append(out, fmt.Sprintf("Beheben Sie %d kritische Fehler, bevor die Vorlage verwendet wird.", s.ErrorCount))
	}
	if s.WarningCount > 0 {
		out = append(out, fmt.Sprintf("Überprüfen Sie %d Warnungen zur Verbesserung der Qualität.", s.WarningCount))
	}
	if s.Score < e.cfg.RevisionScore {
		out = append(out, "Die Vorlage sollte grundlegend überarbeitet werden.")
	}
	if len(out) == 0 {
		out = append(out, "Die Vorlage erfüllt alle Qualitätskriterien.")
	}
	return out
}
