package diagnostic

import (
	"testing"

	"github.com/runningman84/pve-diag/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orphanSnapshot() *models.Snapshot {
	node := testNode("pve1")
	node.Storages = []*models.NodeStorage{{
		Storage: "local-lvm",
		Content: []string{"images", "rootdir"},
		Volumes: []*models.StorageContent{
			{Volume: "local-lvm:vm-100-disk-0", Storage: "local-lvm", FileName: "vm-100-disk-0", VMID: 100, Content: "images", Size: 1 << 30},
			{Volume: "local-lvm:vm-100-disk-1", Storage: "local-lvm", FileName: "vm-100-disk-1", VMID: 100, Content: "images", Size: 2 << 30},
			{Volume: "local-lvm:vm-999-disk-0", Storage: "local-lvm", FileName: "vm-999-disk-0", VMID: 999, Content: "images", Size: 1 << 30},
			{Volume: "local-lvm:vm-100-disk-1", Storage: "local-lvm", FileName: "vm-100-disk-1", VMID: 100, Content: "images", Size: 2 << 30},
		},
	}}
	node.Qemu = []*models.QemuInfo{testQemu(100, models.GuestDisk{
		ID: "scsi0", Storage: "local-lvm", FileName: "vm-100-disk-0", Volume: "local-lvm:vm-100-disk-0", Backup: true,
	})}

	return &models.Snapshot{
		Date: testDate,
		Resources: []*models.ClusterResource{
			{ID: "node/pve1", Type: models.ResourceNode, Node: "pve1", Status: "online"},
			{ID: "storage/pve1/local-lvm", Type: models.ResourceStorage, Node: "pve1", Storage: "local-lvm", Status: "available", Content: []string{"images", "rootdir"}},
			{ID: "qemu/100", Type: models.ResourceQemu, Node: "pve1", VMID: 100, Status: "running"},
		},
		Nodes: []*models.NodeInfo{node},
	}
}

func volumeIDs(volumes []*models.StorageContent) []string {
	var out []string
	for _, v := range volumes {
		out = append(out, v.Volume)
	}
	return out
}

func TestDetectOrphans(t *testing.T) {
	orphans, err := DetectOrphans(orphanSnapshot())
	require.NoError(t, err)

	assert.Equal(t, []string{"local-lvm:vm-100-disk-1", "local-lvm:vm-999-disk-0"}, volumeIDs(orphans))
}

func TestDetectOrphansContainerRootfs(t *testing.T) {
	snapshot := orphanSnapshot()
	node := snapshot.Nodes[0]
	node.Storages[0].Volumes = append(node.Storages[0].Volumes,
		&models.StorageContent{Volume: "local-lvm:vm-105-disk-0", Storage: "local-lvm", FileName: "vm-105-disk-0", VMID: 105, Content: "images", Size: 8 << 30},
		&models.StorageContent{Volume: "local-lvm:vm-105-disk-1", Storage: "local-lvm", FileName: "vm-105-disk-1", VMID: 105, Content: "images", Size: 8 << 30},
	)
	node.Lxc = []*models.LxcInfo{models.NewLxcInfo(105, models.GuestConfig{
		Disks: []models.GuestDisk{{ID: "rootfs", Storage: "local-lvm", FileName: "vm-105-disk-0", Volume: "local-lvm:vm-105-disk-0", Backup: true}},
	}, nil, nil, models.MetricSeries{})}
	snapshot.Resources = append(snapshot.Resources,
		&models.ClusterResource{ID: "lxc/105", Type: models.ResourceLxc, Node: "pve1", VMID: 105, Status: "running"})

	orphans, err := DetectOrphans(snapshot)
	require.NoError(t, err)

	ids := volumeIDs(orphans)
	assert.NotContains(t, ids, "local-lvm:vm-105-disk-0")
	assert.Equal(t, []string{"local-lvm:vm-100-disk-1", "local-lvm:vm-999-disk-0", "local-lvm:vm-105-disk-1"}, ids)
}

func TestDetectOrphansIdempotent(t *testing.T) {
	snapshot := orphanSnapshot()

	first, err := DetectOrphans(snapshot)
	require.NoError(t, err)
	second, err := DetectOrphans(snapshot)
	require.NoError(t, err)

	assert.Equal(t, volumeIDs(first), volumeIDs(second))
}

func TestDetectOrphansSkipsUnavailableStorage(t *testing.T) {
	snapshot := orphanSnapshot()
	snapshot.Resources[1].Status = "unknown"

	orphans, err := DetectOrphans(snapshot)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestDetectOrphansMissingGuest(t *testing.T) {
	snapshot := orphanSnapshot()
	snapshot.Nodes[0].Qemu = nil

	_, err := DetectOrphans(snapshot)
	assert.ErrorIs(t, err, ErrMissingGuest)
}
