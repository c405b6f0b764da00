package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Context is the category a finding belongs to
type Context int

const (
	ContextNode Context = iota
	ContextCluster
	ContextStorage
	ContextQemu
	ContextLxc
)

var contextNames = []string{"Node", "Cluster", "Storage", "Qemu", "Lxc"}

// Contexts returns the names of every context, in declaration order
func Contexts() []string { return append([]string(nil), contextNames...) }

func (c Context) String() string {
	if int(c) < 0 || int(c) >= len(contextNames) {
		return fmt.Sprintf("Context(%d)", int(c))
	}
	return contextNames[c]
}

// ParseContext decodes a context name, case-insensitively
func ParseContext(s string) (Context, error) {
	for i, name := range contextNames {
		if strings.EqualFold(name, s) {
			return Context(i), nil
		}
	}
	return 0, fmt.Errorf("unknown context %q", s)
}

// DecodeContext maps a resource type tag to a context, falling back to Cluster
func DecodeContext(s string) Context {
	if c, err := ParseContext(s); err == nil {
		return c
	}
	return ContextCluster
}

func (c Context) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Context) UnmarshalText(text []byte) error {
	v, err := ParseContext(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Gravity is the severity of a finding
type Gravity int

const (
	GravityInfo Gravity = iota
	GravityWarning
	GravityCritical
)

var gravityNames = []string{"Info", "Warning", "Critical"}

// Gravities returns the names of every gravity, lowest first
func Gravities() []string { return append([]string(nil), gravityNames...) }

func (g Gravity) String() string {
	if int(g) < 0 || int(g) >= len(gravityNames) {
		return fmt.Sprintf("Gravity(%d)", int(g))
	}
	return gravityNames[g]
}

// ParseGravity decodes a gravity name, case-insensitively
func ParseGravity(s string) (Gravity, error) {
	for i, name := range gravityNames {
		if strings.EqualFold(name, s) {
			return Gravity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown gravity %q", s)
}

func (g Gravity) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Gravity) UnmarshalText(text []byte) error {
	v, err := ParseGravity(string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// DiagnosticResult is one classified finding.
// IsIgnoredIssue is the only field changed after creation.
type DiagnosticResult struct {
	ID             string  `json:"id"`
	ErrorCode      string  `json:"errorCode"`
	Context        Context `json:"context"`
	SubContext     string  `json:"subContext"`
	Description    string  `json:"description"`
	Gravity        Gravity `json:"gravity"`
	IsIgnoredIssue bool    `json:"isIgnoredIssue"`
}

// IgnoreRule flags matching findings as suppressed.
// A nil pattern matches any value.
type IgnoreRule struct {
	ID          *regexp.Regexp
	SubContext  *regexp.Regexp
	Description *regexp.Regexp
	Context     Context
	Gravity     Gravity
}
