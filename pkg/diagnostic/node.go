package diagnostic

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/runningman84/pve-diag/pkg/models"
	"k8s.io/klog/v2"
)

// endOfLife maps a major platform version to its end-of-life date.
// A version is reported once the snapshot date reaches it.
var endOfLife = map[int]time.Time{
	4: time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC),
	5: time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC),
	6: time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC),
	7: time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
}

// MajorVersion returns the major number of a version string such as "8.1.4", or 0
func MajorVersion(version string) int {
	major, _, _ := strings.Cut(version, ".")
	v, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return v
}

// ExcludedServices returns the services that are allowed to be stopped on a node
func ExcludedServices(hasCluster bool, majorVersion int) []string {
	var excluded []string
	if !hasCluster {
		excluded = append(excluded, "corosync")
	}
	// chrony replaced systemd-timesyncd with version 7
	if majorVersion >= 7 {
		excluded = append(excluded, "systemd-timesyncd")
	} else {
		excluded = append(excluded, "chrony")
	}
	return excluded
}

func (e *evaluator) checkNodes() error {
	var members []*models.NodeInfo
	for _, r := range e.resources(models.ResourceNode) {
		if !r.IsOnline() {
			continue
		}
		node, err := findNode(e.snapshot, r.Node)
		if err != nil {
			return err
		}
		members = append(members, node)
	}

	hasCluster := len(e.snapshot.ClusterNodes) > 0

	for _, r := range e.resources(models.ResourceNode) {
		id := r.Node

		if !r.IsOnline() {
			e.report(id, "WN0001", models.ContextNode, "Status", models.GravityWarning, "Node not online")
			continue
		}

		node, err := findNode(e.snapshot, r.Node)
		if err != nil {
			return err
		}

		e.checkNode(id, node, members, hasCluster)
	}

	return nil
}

func (e *evaluator) checkNode(id string, node *models.NodeInfo, members []*models.NodeInfo, hasCluster bool) {
	major := MajorVersion(node.Version.Version)
	if major == 0 {
		klog.Warningf("Node %s reports unparsable version %q", id, node.Version.Version)
	}

	if eol, ok := endOfLife[major]; ok && !e.snapshot.Date.Before(eol) {
		e.report(id, "WN0001", models.ContextNode, "EOL", models.GravityWarning,
			"Version %s end of life %s", node.Version.Version, eol.Format("2006-01-02"))
	}

	if node.Subscription != "Active" {
		e.report(id, "WN0001", models.ContextNode, "Subscription", models.GravityWarning,
			"Node not have subscription active")
	}

	e.checkNodeMetrics(id, window(node.Metrics, e.settings.Node.TimeSeries))

	e.add(CompareNodes(node, members)...)

	for _, iface := range node.Network {
		if iface.Type == "eth" && !iface.Active {
			e.report(id, "WN0002", models.ContextNode, "Network", models.GravityWarning,
				"Network card '%s' not active", iface.Interface)
		}
	}

	excluded := ExcludedServices(hasCluster, major)
	for _, service := range node.Services {
		if !service.IsRunning() && !slices.Contains(excluded, service.Name) {
			e.report(id, "WN0002", models.ContextNode, "Service", models.GravityWarning,
				"Service '%s' not running", service.Description)
		}
	}

	for _, cert := range node.Certificates {
		if cert.NotAfter.Before(e.snapshot.Date) {
			e.report(id, "WN0002", models.ContextNode, "Certificates", models.GravityCritical,
				"Certificate '%s' expired", cert.FileName)
		}
	}

	replicationErrors := 0
	for _, job := range node.Replication {
		if job.HasErrors() {
			replicationErrors++
		}
	}
	if replicationErrors > 0 {
		e.report(id, "IN0001", models.ContextNode, "Replication", models.GravityCritical,
			"%d Replication has errors", replicationErrors)
	}

	e.checkNodeDisks(id, node)

	if count := len(node.Updates); count > 0 {
		e.report(id, "IN0001", models.ContextNode, "Update", models.GravityInfo,
			"%d Update available", count)
	}

	important := 0
	for _, update := range node.Updates {
		if update.Priority == "important" {
			important++
		}
	}
	if important > 0 {
		e.report(id, "IN0001", models.ContextNode, "Update", models.GravityWarning,
			"%d Update Important available", important)
	}

	e.checkTaskHistory(node.Tasks, models.ContextNode, id)
}

func (e *evaluator) checkNodeMetrics(id string, points []models.MetricPoint) {
	e.checkHostMetrics(models.ContextNode, id, e.settings.Node, points)

	ts := e.settings.Node.TimeSeries

	if ioWait, ok := average(points, func(p models.MetricPoint) float64 { return p.IOWait }); ok {
		e.add(usageCheck(models.ContextNode, e.settings.Node.CPU, true, false).Evaluate(Measure{Usage: ioWait * 100, ID: id, Prefix: metricLabel("IOWait", ts)}))
	}

	storage := e.settings.Storage.Threshold
	used, ok1 := average(points, func(p models.MetricPoint) float64 { return p.RootUsed })
	total, ok2 := average(points, func(p models.MetricPoint) float64 { return p.RootTotal })
	if ok1 && ok2 {
		e.add(usageCheck(models.ContextNode, storage, false, true).Evaluate(Measure{Usage: used, Size: total, ID: id, Prefix: metricLabel("Root space", ts)}))
	}

	used, ok1 = average(points, func(p models.MetricPoint) float64 { return p.SwapUsed })
	total, ok2 = average(points, func(p models.MetricPoint) float64 { return p.SwapTotal })
	if ok1 && ok2 {
		e.add(usageCheck(models.ContextNode, storage, false, true).Evaluate(Measure{Usage: used, Size: total, ID: id, Prefix: metricLabel("SWAP", ts)}))
	}
}

func (e *evaluator) checkNodeDisks(id string, node *models.NodeInfo) {
	wearout := ThresholdCheck{
		Threshold:  e.settings.SSDWearout,
		ErrorCode:  "CN0003",
		Context:    models.ContextNode,
		SubContext: "SSD Wearout",
		IsValue:    true,
	}

	for _, disk := range node.Disks {
		if disk.Health != "PASSED" && disk.Health != "OK" {
			e.report(id, "CN0003", models.ContextNode, "S.M.A.R.T.", models.GravityWarning,
				"Disk '%s' S.M.A.R.T. status problem", disk.DevPath)
		}

		if !disk.IsSSD() {
			continue
		}
		if !disk.WearoutKnown {
			e.report(id, "CN0003", models.ContextNode, "SSD Wearout", models.GravityWarning,
				"Disk ssd '%s' wearout not valid.", disk.DevPath)
			continue
		}
		e.add(wearout.Evaluate(Measure{
			Usage:  100 - disk.Wearout,
			ID:     id,
			Prefix: fmt.Sprintf("SSD '%s'", disk.DevPath),
		}))
	}

	zfsUsage := ThresholdCheck{
		Threshold:   e.settings.Storage.Threshold,
		ErrorCode:   "CS0001",
		Context:     models.ContextStorage,
		SubContext:  "Zfs",
		FormatBytes: true,
	}

	for _, pool := range node.Zfs {
		if pool.Health != "ONLINE" {
			e.report(id, "CN0003", models.ContextNode, "Zfs", models.GravityCritical,
				"Zfs '%s' health problem %s", pool.Name, pool.Health)
		}
		e.add(zfsUsage.Evaluate(Measure{
			Usage:  float64(pool.Alloc),
			Size:   float64(pool.Size),
			ID:     id,
			Prefix: fmt.Sprintf("Zfs '%s'", pool.Name),
		}))
	}
}

func (e *evaluator) checkTaskHistory(tasks []models.Task, ctx models.Context, id string) {
	failed := 0
	for _, task := range tasks {
		if !task.IsOK() {
			failed++
		}
	}
	if failed > 0 {
		e.report(id, "IN0001", ctx, "Tasks", models.GravityCritical, "%d Task history has errors", failed)
	}
}
