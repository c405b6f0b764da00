package parser

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/runningman84/pve-diag/pkg/models"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// ErrInvalidPattern is returned when an ignore rule holds a pattern that does not compile
var ErrInvalidPattern = errors.New("invalid ignore pattern")

// IgnoreRuleYAML is one entry of an ignored issues file. A missing or null
// pattern matches any value.
type IgnoreRuleYAML struct {
	ID          *string `yaml:"id"`
	SubContext  *string `yaml:"subContext"`
	Description *string `yaml:"description"`
	Context     string  `yaml:"context"`
	Gravity     string  `yaml:"gravity"`
}

// ParseIgnoreRules parses an ignored issues document (YAML or JSON) and compiles its patterns
func ParseIgnoreRules(data []byte) ([]*models.IgnoreRule, error) {
	var entries []IgnoreRuleYAML
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse ignored issues: %w", err)
	}

	rules := make([]*models.IgnoreRule, 0, len(entries))
	for i, entry := range entries {
		rule, err := entry.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (e IgnoreRuleYAML) compile() (*models.IgnoreRule, error) {
	ctx, err := models.ParseContext(e.Context)
	if err != nil {
		return nil, err
	}
	gravity, err := models.ParseGravity(e.Gravity)
	if err != nil {
		return nil, err
	}

	rule := &models.IgnoreRule{Context: ctx, Gravity: gravity}
	for _, field := range []struct {
		name    string
		pattern *string
		target  **regexp.Regexp
	}{
		{"id", e.ID, &rule.ID},
		{"subContext", e.SubContext, &rule.SubContext},
		{"description", e.Description, &rule.Description},
	} {
		if field.pattern == nil {
			continue
		}
		re, err := regexp.Compile(*field.pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidPattern, field.name, *field.pattern, err)
		}
		*field.target = re
	}
	return rule, nil
}

// LoadIgnoreRules reads an ignored issues file. An empty path yields no rules.
func LoadIgnoreRules(path string) ([]*models.IgnoreRule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignored issues file: %w", err)
	}

	rules, err := ParseIgnoreRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	klog.V(1).Infof("Loaded %d ignore rule(s) from %s", len(rules), path)
	return rules, nil
}

// WriteIgnoredIssuesTemplate writes an ignored issues file with one example rule
func WriteIgnoredIssuesTemplate(path string) error {
	example := "^100$"
	description := "Protection"
	entries := []IgnoreRuleYAML{{
		ID:          &example,
		SubContext:  nil,
		Description: &description,
		Context:     models.ContextQemu.String(),
		Gravity:     models.GravityInfo.String(),
	}}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode ignored issues: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ignored issues file: %w", err)
	}
	return nil
}
