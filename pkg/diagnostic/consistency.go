package diagnostic

import (
	"strings"

	"github.com/runningman84/pve-diag/pkg/models"
)

// nodeAttribute is one setting every cluster member is expected to share
type nodeAttribute struct {
	name        string
	description string
	gravity     models.Gravity
	key         func(*models.NodeInfo) string
}

var nodeAttributes = []nodeAttribute{
	{
		name:        "Version",
		description: "Nodes version not equal",
		gravity:     models.GravityCritical,
		key: func(n *models.NodeInfo) string {
			return n.Version.Version + "|" + n.Version.Release + "|" + n.Version.RepoID
		},
	},
	{
		name:        "Hosts",
		description: "Nodes hosts configuration not equal",
		gravity:     models.GravityWarning,
		key:         func(n *models.NodeInfo) string { return strings.Join(n.Hosts, "") },
	},
	{
		name:        "DNS",
		description: "Nodes DNS not equal",
		gravity:     models.GravityWarning,
		key: func(n *models.NodeInfo) string {
			return strings.Join([]string{n.DNS.Search, n.DNS.DNS1, n.DNS.DNS2, n.DNS.DNS3}, "|")
		},
	},
	{
		name:        "Timezone",
		description: "Nodes Timezone not equal",
		gravity:     models.GravityWarning,
		key:         func(n *models.NodeInfo) string { return n.Timezone },
	},
}

// CompareNodes checks node against the other online members and returns at
// most one finding per attribute.
//
// When one value is held by more members than any other, only the members
// holding a different value are reported. Without such a majority every
// member that differs from at least one other member is reported.
func CompareNodes(node *models.NodeInfo, members []*models.NodeInfo) []*models.DiagnosticResult {
	mismatches := make(map[string]*models.DiagnosticResult, len(nodeAttributes))

	for _, attr := range nodeAttributes {
		own := attr.key(node)
		if reference, ok := majority(attr, members); ok && reference == own {
			continue
		}

		for _, other := range members {
			if other.Node == node.Node || attr.key(other) == own {
				continue
			}
			mismatches[attr.name] = &models.DiagnosticResult{
				ID:          node.Node,
				ErrorCode:   "WN0001",
				Context:     models.ContextNode,
				SubContext:  attr.name,
				Description: attr.description,
				Gravity:     attr.gravity,
			}
			break
		}
	}

	var results []*models.DiagnosticResult
	for _, attr := range nodeAttributes {
		if r, ok := mismatches[attr.name]; ok {
			results = append(results, r)
		}
	}

	if r := comparePackages(node, members); r != nil {
		results = append(results, r)
	}

	return results
}

// majority returns the value held by the most members, if exactly one value has that count
func majority(attr nodeAttribute, members []*models.NodeInfo) (string, bool) {
	counts := make(map[string]int)
	for _, m := range members {
		counts[attr.key(m)]++
	}

	var best string
	bestCount, ties := 0, 0
	for value, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount, ties = value, count, 1
		case count == bestCount:
			ties++
		}
	}
	return best, ties == 1
}

// comparePackages reports node once when one of its installed package
// versions is missing on another member
func comparePackages(node *models.NodeInfo, members []*models.NodeInfo) *models.DiagnosticResult {
	for _, other := range members {
		if other.Node == node.Node {
			continue
		}

		installed := make(map[models.Package]bool, len(other.Packages))
		for _, pkg := range other.Packages {
			installed[pkg] = true
		}

		for _, pkg := range node.Packages {
			if !installed[pkg] {
				return &models.DiagnosticResult{
					ID:          node.Node,
					ErrorCode:   "WN0001",
					Context:     models.ContextNode,
					SubContext:  "PackageVersions",
					Description: "Nodes package version not equal",
					Gravity:     models.GravityCritical,
				}
			}
		}
	}
	return nil
}
