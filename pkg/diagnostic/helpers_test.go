package diagnostic

import (
	"time"

	"github.com/runningman84/pve-diag/pkg/models"
)

var testDate = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func testNode(name string) *models.NodeInfo {
	return &models.NodeInfo{
		Node:         name,
		Version:      models.NodeVersion{Version: "8.3.2", Release: "8.3", RepoID: "3e76eec21c4a14a7"},
		Subscription: "Active",
		Timezone:     "Europe/Rome",
		Hosts:        []string{"127.0.0.1 localhost"},
		DNS:          models.DNS{Search: "lan", DNS1: "192.168.1.1"},
	}
}

func testQemu(vmid int, disks ...models.GuestDisk) *models.QemuInfo {
	vm := models.NewQemuInfo(vmid, models.GuestConfig{
		OSType:     "l26",
		OnBoot:     true,
		Protection: true,
		Disks:      disks,
	}, nil, []models.GuestSnapshot{{Name: "auto1", Description: "cv4pve-autosnap", Date: testDate}}, models.MetricSeries{})
	vm.AgentEnabled = true
	vm.AgentHostName = "guest"
	return vm
}

func findByDescription(results []*models.DiagnosticResult, description string) []*models.DiagnosticResult {
	var out []*models.DiagnosticResult
	for _, r := range results {
		if r.Description == description {
			out = append(out, r)
		}
	}
	return out
}
