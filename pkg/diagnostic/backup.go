package diagnostic

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/runningman84/pve-diag/pkg/models"
)

// BackupStalenessDays is the age after which a backup archive is reported as old
const BackupStalenessDays = 60

const contentBackup = "backup"

// IsBackupConfigured reports whether an enabled backup job covers the guest,
// either through the all flag, the explicit id list or pool membership.
func IsBackupConfigured(vmid int, jobs []*models.BackupJob, pools []*models.Pool) bool {
	for _, job := range jobs {
		if job.Enabled && job.All {
			return true
		}
	}

	for _, job := range jobs {
		if job.Enabled && slices.Contains(job.VMIDs, vmid) {
			return true
		}
	}

	for _, job := range jobs {
		if !job.Enabled || job.Pool == "" {
			continue
		}
		for _, pool := range pools {
			if pool.ID == job.Pool && slices.Contains(pool.VMIDs, vmid) {
				return true
			}
		}
	}

	return false
}

// backupVolumes returns the backup archives of a guest on the node storages
func backupVolumes(node *models.NodeInfo, vmid int) []*models.StorageContent {
	var volumes []*models.StorageContent
	for _, storage := range node.Storages {
		if !storage.HasContent(contentBackup) {
			continue
		}
		for _, v := range storage.Volumes {
			if v.Content == contentBackup && v.VMID == vmid {
				volumes = append(volumes, v)
			}
		}
	}
	return volumes
}

// EvaluateBackup returns the backup findings of a guest: missing job coverage,
// disks excluded from backup, stale archives and the absence of a recent one.
// The checks are independent of each other.
func EvaluateBackup(snapshot *models.Snapshot, node *models.NodeInfo, guest models.Guest, ctx models.Context) []*models.DiagnosticResult {
	vmid := guest.ID()
	id := strconv.Itoa(vmid)

	var results []*models.DiagnosticResult
	finding := func(code string, gravity models.Gravity, description string) {
		results = append(results, &models.DiagnosticResult{
			ID:          id,
			ErrorCode:   code,
			Context:     ctx,
			SubContext:  "Backup",
			Description: description,
			Gravity:     gravity,
		})
	}

	if !IsBackupConfigured(vmid, snapshot.Backups, snapshot.Pools) {
		finding("CC0001", models.GravityWarning, "vzdump backup not configured")
	}

	for _, disk := range guest.Config().Disks {
		if !disk.Backup {
			finding("WV0001", models.GravityCritical, fmt.Sprintf("Disk '%s' disabled for backup", disk.ID))
		}
	}

	staleBefore := snapshot.Date.AddDate(0, 0, -BackupStalenessDays)
	recentAfter := snapshot.Date.AddDate(0, 0, -1)

	var (
		stale     int
		staleSize uint64
		recent    bool
	)
	for _, v := range backupVolumes(node, vmid) {
		if !v.Created.After(staleBefore) {
			stale++
			staleSize += v.Size
		}
		if !v.Created.Before(recentAfter) {
			recent = true
		}
	}

	if stale > 0 {
		finding("CC0001", models.GravityWarning, fmt.Sprintf("%d backup %s more than %d days are found!",
			stale, humanize.IBytes(staleSize), BackupStalenessDays))
	}
	if !recent {
		finding("CC0001", models.GravityWarning, "No recent backups found!")
	}

	return results
}
