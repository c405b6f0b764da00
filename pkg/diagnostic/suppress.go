package diagnostic

import (
	"regexp"

	"github.com/runningman84/pve-diag/pkg/models"
)

// Suppress flags every finding matched by at least one rule and returns the
// same slice. Findings are never removed or reordered.
func Suppress(results []*models.DiagnosticResult, rules []*models.IgnoreRule) []*models.DiagnosticResult {
	for _, rule := range rules {
		for _, r := range results {
			if !r.IsIgnoredIssue && Matches(rule, r) {
				r.IsIgnoredIssue = true
			}
		}
	}
	return results
}

// Matches reports whether the rule covers the finding. Context and gravity
// must be equal; a nil pattern matches any value, otherwise the pattern is
// searched anywhere in the field.
func Matches(rule *models.IgnoreRule, r *models.DiagnosticResult) bool {
	if rule == nil || rule.Context != r.Context || rule.Gravity != r.Gravity {
		return false
	}
	return search(rule.ID, r.ID) &&
		search(rule.SubContext, r.SubContext) &&
		search(rule.Description, r.Description)
}

func search(pattern *regexp.Regexp, value string) bool {
	return pattern == nil || pattern.MatchString(value)
}
