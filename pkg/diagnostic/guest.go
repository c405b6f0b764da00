package diagnostic

import (
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/runningman84/pve-diag/pkg/models"
)

// unmaintainedOS lists the guest OS types no longer supported by their vendor
var unmaintainedOS = []string{"win8", "win7", "w2k8", "wxp", "w2k"}

// osNames maps the configured os type to a readable name
var osNames = map[string]string{
	"other":   "Other",
	"wxp":     "Windows XP",
	"w2k":     "Windows 2000",
	"w2k3":    "Windows 2003",
	"w2k8":    "Windows 2008",
	"wvista":  "Windows Vista",
	"win7":    "Windows 7",
	"win8":    "Windows 8/2012/2012r2",
	"win10":   "Windows 10/2016/2019",
	"win11":   "Windows 11/2022",
	"l24":     "Linux 2.4 Kernel",
	"l26":     "Linux 2.6 - 6.X Kernel",
	"solaris": "Solaris Kernel",
}

// OSName returns the readable name of an os type, or the type itself
func OSName(osType string) string {
	if name, ok := osNames[osType]; ok {
		return name
	}
	return osType
}

const (
	autoSnapMarker       = "cv4pve-autosnap"
	legacyAutoSnapMarker = "eve4pve-autosnap"
)

func (e *evaluator) checkQemu() error {
	for _, r := range e.resources(models.ResourceQemu) {
		if r.Template {
			continue
		}

		node, guest, err := findGuest(e.snapshot, r)
		if err != nil {
			return err
		}
		vm := guest.(*models.QemuInfo)
		id := strconv.Itoa(r.VMID)

		e.checkQemuGuest(id, r, node, vm)
		e.checkGuest(id, node, vm)
	}
	return nil
}

func (e *evaluator) checkLxc() error {
	for _, r := range e.resources(models.ResourceLxc) {
		if r.Template {
			continue
		}

		node, guest, err := findGuest(e.snapshot, r)
		if err != nil {
			return err
		}

		e.checkGuest(strconv.Itoa(r.VMID), node, guest)
	}
	return nil
}

// checkQemuGuest runs the rules that only apply to virtual machines
func (e *evaluator) checkQemuGuest(id string, r *models.ClusterResource, node *models.NodeInfo, vm *models.QemuInfo) {
	const ctx = models.ContextQemu
	cfg := vm.Config()

	switch {
	case cfg.OSType == "":
		e.report(id, "WV0001", ctx, "OS", models.GravityCritical, "OsType not set!")
	case slices.Contains(unmaintainedOS, cfg.OSType):
		e.report(id, "WV0001", ctx, "OSNotMaintained", models.GravityWarning,
			"OS '%s' not maintained from vendor!", OSName(cfg.OSType))
	}

	if !vm.AgentEnabled {
		e.report(id, "WV0001", ctx, "Agent", models.GravityWarning, "Qemu Agent not enabled")
	} else if r.IsRunning() && strings.TrimSpace(vm.AgentHostName) == "" {
		e.report(id, "WV0001", ctx, "Agent", models.GravityWarning, "Qemu Agent in guest not running")
	}

	if vm.SCSIHardware != "" && !strings.HasPrefix(vm.SCSIHardware, "virtio") {
		e.report(id, "WV0001", ctx, "VirtIO", models.GravityInfo,
			"For more performance switch controller to VirtIO SCSI")
		for _, disk := range cfg.Disks {
			if !strings.HasPrefix(disk.ID, "virtio") && !isFirmwareDisk(disk.ID) {
				e.report(id, "WV0001", ctx, "VirtIO", models.GravityInfo,
					"For more performance switch '%s' hdd to VirtIO", disk.ID)
			}
		}
	}

	for _, nic := range vm.Networks {
		if !strings.HasPrefix(nic.Model, "virtio") {
			e.report(id, "WV0001", ctx, "VirtIO", models.GravityInfo,
				"For more performance switch '%s' network to VirtIO", nic.ID)
		}
	}

	for _, unused := range vm.Unused {
		size := ""
		if volume := node.FindVolume(unused.Volume); volume != nil {
			size = humanize.IBytes(volume.Size)
		}
		e.report(id, "IV0001", ctx, "Hardware", models.GravityWarning,
			"disk '%s' %s", unused.ID, size)
	}

	for _, key := range vm.MountedMedia {
		e.report(id, "WV0002", ctx, "Hardware", models.GravityWarning, "Cdrom mounted '%s'", key)
	}
}

// isFirmwareDisk reports EFI vars and TPM state volumes, which have no bus to switch
func isFirmwareDisk(key string) bool {
	return strings.HasPrefix(key, "efidisk") || strings.HasPrefix(key, "tpmstate")
}

// checkGuest runs the rules shared by virtual machines and containers
func (e *evaluator) checkGuest(id string, node *models.NodeInfo, guest models.Guest) {
	ctx, thr := models.ContextQemu, e.settings.Qemu
	if guest.Type() == models.ResourceLxc {
		ctx, thr = models.ContextLxc, e.settings.Lxc
	}
	cfg := guest.Config()

	if !cfg.OnBoot {
		e.report(id, "WV0001", ctx, "StartOnBoot", models.GravityWarning, "Start on boot not enabled")
	}
	if !cfg.Protection {
		e.report(id, "WV0001", ctx, "Protection", models.GravityInfo,
			"For production environment is better VM Protection = enabled")
	}
	if cfg.IsLocked() {
		e.report(id, "WV0001", ctx, "Status", models.GravityWarning, "VM is locked by '%s'", cfg.Lock)
	}

	for _, change := range guest.Pending() {
		if change.Key == "vmstate" {
			e.report(id, "WV0001", ctx, "VM State", models.GravityCritical, "Found vmstate '%s'", change.Value)
		}
	}

	e.add(EvaluateBackup(e.snapshot, node, guest, ctx)...)

	var tasks []models.Task
	for _, task := range node.Tasks {
		if task.ID == id {
			tasks = append(tasks, task)
		}
	}
	e.checkTaskHistory(tasks, ctx, id)

	e.checkSnapshots(id, ctx, guest.Snapshots())

	e.checkHostMetrics(ctx, id, thr, window(guest.Metrics(), thr.TimeSeries))
}

func (e *evaluator) checkSnapshots(id string, ctx models.Context, snapshots []models.GuestSnapshot) {
	hasMarker := func(marker string) bool {
		return slices.ContainsFunc(snapshots, func(s models.GuestSnapshot) bool { return s.Description == marker })
	}

	if !hasMarker(autoSnapMarker) {
		e.report(id, "WV0003", ctx, "AutoSnapshot", models.GravityWarning, "cv4pve-autosnap not configured")
	}
	if hasMarker(legacyAutoSnapMarker) {
		e.report(id, "WV0003", ctx, "AutoSnapshot", models.GravityWarning,
			"Old AutoSnap 'eve4pve-autosnap' are present. Update new version")
	}

	limit := e.snapshot.Date.AddDate(0, -1, 0)
	old := 0
	for _, s := range snapshots {
		if s.Name != "current" && s.Date.Before(limit) {
			old++
		}
	}
	if old > 0 {
		e.report(id, "WV0003", ctx, "SnapshotOld", models.GravityWarning, "%d snapshots older than 1 month", old)
	}
}
