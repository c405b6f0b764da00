package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/runningman84/pve-diag/pkg/models"
)

func TestParseIgnoreRules(t *testing.T) {
	data := `
- id: "^10[0-9]$"
  subContext: null
  description: Protection
  context: Qemu
  gravity: Info
- context: node
  gravity: warning
  subContext: Subscription
`

	rules, err := ParseIgnoreRules([]byte(data))
	if err != nil {
		t.Fatalf("ParseIgnoreRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("len(rules) = %d, want 2", len(rules))
	}

	first := rules[0]
	if first.Context != models.ContextQemu || first.Gravity != models.GravityInfo {
		t.Errorf("first rule context/gravity = %v/%v", first.Context, first.Gravity)
	}
	if first.ID == nil || !first.ID.MatchString("105") || first.ID.MatchString("1050") {
		t.Errorf("first rule id pattern = %v", first.ID)
	}
	if first.SubContext != nil {
		t.Errorf("null subContext compiled to %v, want nil", first.SubContext)
	}

	second := rules[1]
	if second.Context != models.ContextNode || second.Gravity != models.GravityWarning {
		t.Errorf("second rule context/gravity = %v/%v", second.Context, second.Gravity)
	}
	if second.ID != nil || second.Description != nil || second.SubContext == nil {
		t.Errorf("second rule patterns = %v/%v/%v", second.ID, second.SubContext, second.Description)
	}
}

func TestParseIgnoreRulesJSON(t *testing.T) {
	data := `[{"id": null, "subContext": "Backup", "description": null, "context": "Lxc", "gravity": "Critical"}]`

	rules, err := ParseIgnoreRules([]byte(data))
	if err != nil {
		t.Fatalf("ParseIgnoreRules() error = %v", err)
	}
	if len(rules) != 1 || rules[0].Context != models.ContextLxc || rules[0].Gravity != models.GravityCritical {
		t.Errorf("rules = %+v", rules)
	}
}

func TestParseIgnoreRulesErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		pattern bool
	}{
		{name: "invalid regexp", data: "- context: Node\n  gravity: Info\n  id: \"([\"\n", pattern: true},
		{name: "unknown context", data: "- context: Datacenter\n  gravity: Info\n"},
		{name: "unknown gravity", data: "- context: Node\n  gravity: Fatal\n"},
		{name: "not a list", data: "context: Node\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIgnoreRules([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseIgnoreRules() error = nil, want error")
			}
			if got := errors.Is(err, ErrInvalidPattern); got != tt.pattern {
				t.Errorf("errors.Is(err, ErrInvalidPattern) = %v, want %v (%v)", got, tt.pattern, err)
			}
		})
	}
}

func TestLoadIgnoreRulesEmptyPath(t *testing.T) {
	rules, err := LoadIgnoreRules("")
	if err != nil || rules != nil {
		t.Errorf("LoadIgnoreRules(\"\") = %v, %v, want nil, nil", rules, err)
	}
}

func TestLoadIgnoreRulesMissingFile(t *testing.T) {
	if _, err := LoadIgnoreRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadIgnoreRules() error = nil, want error")
	}
}

func TestWriteIgnoredIssuesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignored-issues.yaml")

	if err := WriteIgnoredIssuesTemplate(path); err != nil {
		t.Fatalf("WriteIgnoredIssuesTemplate() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	rules, err := LoadIgnoreRules(path)
	if err != nil {
		t.Fatalf("LoadIgnoreRules() error = %v", err)
	}
	if len(rules) != 1 || rules[0].SubContext != nil || rules[0].ID == nil {
		t.Errorf("template rules = %+v", rules)
	}
}
