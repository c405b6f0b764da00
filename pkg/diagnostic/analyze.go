// Package diagnostic evaluates a cluster snapshot against the threshold
// settings and produces the list of findings.
package diagnostic

import (
	"errors"
	"fmt"

	"github.com/runningman84/pve-diag/pkg/config"
	"github.com/runningman84/pve-diag/pkg/models"
	"k8s.io/klog/v2"
)

var (
	// ErrMissingNode is returned when a resource refers to a node without a detail record
	ErrMissingNode = errors.New("node detail not found")
	// ErrMissingGuest is returned when a guest resource has no detail record
	ErrMissingGuest = errors.New("guest detail not found")
)

// evaluator accumulates the findings of one run
type evaluator struct {
	snapshot *models.Snapshot
	settings *config.Settings
	results  []*models.DiagnosticResult
}

// Analyze evaluates the snapshot and flags findings matched by the ignore rules.
//
// Rule groups run in a fixed order: unknown resources, storage, nodes, QEMU
// guests, containers. A resource whose detail record is missing from the
// snapshot aborts the run.
func Analyze(snapshot *models.Snapshot, settings *config.Settings, rules []*models.IgnoreRule) ([]*models.DiagnosticResult, error) {
	if snapshot == nil {
		return nil, nil
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}

	e := &evaluator{snapshot: snapshot, settings: settings}

	e.checkUnknown()

	if err := e.checkStorage(); err != nil {
		return nil, fmt.Errorf("storage checks: %w", err)
	}
	if err := e.checkNodes(); err != nil {
		return nil, fmt.Errorf("node checks: %w", err)
	}
	if err := e.checkQemu(); err != nil {
		return nil, fmt.Errorf("qemu checks: %w", err)
	}
	if err := e.checkLxc(); err != nil {
		return nil, fmt.Errorf("lxc checks: %w", err)
	}

	klog.V(1).Infof("Evaluated %d resource(s), %d finding(s)", len(snapshot.Resources), len(e.results))

	return Suppress(e.results, rules), nil
}

func (e *evaluator) add(results ...*models.DiagnosticResult) {
	for _, r := range results {
		if r != nil {
			e.results = append(e.results, r)
		}
	}
}

func (e *evaluator) report(id, errorCode string, ctx models.Context, subContext string, gravity models.Gravity, format string, args ...any) {
	e.add(&models.DiagnosticResult{
		ID:          id,
		ErrorCode:   errorCode,
		Context:     ctx,
		SubContext:  subContext,
		Description: fmt.Sprintf(format, args...),
		Gravity:     gravity,
	})
}

// resources returns the known resources of the given type
func (e *evaluator) resources(t models.ResourceType) []*models.ClusterResource {
	var out []*models.ClusterResource
	for _, r := range e.snapshot.Resources {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func (e *evaluator) checkUnknown() {
	for _, r := range e.snapshot.Resources {
		if !r.IsUnknown() {
			continue
		}
		e.report(r.ID, "CU0001", models.DecodeContext(r.RawType), "Status", models.GravityCritical,
			"Unknown resource %s", r.RawType)
	}
}

func findNode(snapshot *models.Snapshot, name string) (*models.NodeInfo, error) {
	for _, n := range snapshot.Nodes {
		if n.Node == name {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingNode, name)
}

// findGuest resolves a qemu or lxc resource to its node and detail record
func findGuest(snapshot *models.Snapshot, r *models.ClusterResource) (*models.NodeInfo, models.Guest, error) {
	node, err := findNode(snapshot, r.Node)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", r.ID, err)
	}

	switch r.Type {
	case models.ResourceQemu:
		if vm := node.FindQemu(r.VMID); vm != nil {
			return node, vm, nil
		}
	case models.ResourceLxc:
		if ct := node.FindLxc(r.VMID); ct != nil {
			return node, ct, nil
		}
	default:
		return nil, nil, fmt.Errorf("%s: not a guest resource", r.ID)
	}

	return nil, nil, fmt.Errorf("%w: %s on node %s", ErrMissingGuest, r.ID, r.Node)
}
