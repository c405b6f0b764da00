package models

import (
	"slices"
	"time"
)

// ResourceType is the type tag of a cluster resource row
type ResourceType string

const (
	ResourceNode    ResourceType = "node"
	ResourceStorage ResourceType = "storage"
	ResourceQemu    ResourceType = "qemu"
	ResourceLxc     ResourceType = "lxc"
)

// Snapshot is the full collected state of a cluster at one point in time
type Snapshot struct {
	Date      time.Time
	Resources []*ClusterResource
	Nodes     []*NodeInfo
	Backups   []*BackupJob
	Pools     []*Pool

	// ClusterNodes lists the members of the corosync configuration (empty on a standalone host)
	ClusterNodes []string
}

// ClusterResource is a summary row from the cluster resource list
type ClusterResource struct {
	ID       string
	Type     ResourceType
	RawType  string
	Name     string
	Node     string
	Storage  string
	VMID     int
	Status   string
	Template bool
	Content  []string // content categories, storage rows only
	Disk     uint64
	MaxDisk  uint64
}

// IsUnknown reports whether the type tag is outside the known categories
func (r *ClusterResource) IsUnknown() bool {
	switch r.Type {
	case ResourceNode, ResourceStorage, ResourceQemu, ResourceLxc:
		return false
	}
	return true
}

// IsGuest reports whether the row is a QEMU VM or a container
func (r *ClusterResource) IsGuest() bool {
	return r.Type == ResourceQemu || r.Type == ResourceLxc
}

func (r *ClusterResource) IsOnline() bool    { return r.Status == "online" }
func (r *ClusterResource) IsRunning() bool   { return r.Status == "running" }
func (r *ClusterResource) IsAvailable() bool { return r.Status == "available" }

// HasContent reports whether a storage row serves the given content category
func (r *ClusterResource) HasContent(content string) bool {
	return slices.Contains(r.Content, content)
}

// NodeVersion is the platform version of a node
type NodeVersion struct {
	Version string
	Release string
	RepoID  string
}

// DNS is the resolver configuration of a node
type DNS struct {
	Search string
	DNS1   string
	DNS2   string
	DNS3   string
}

// NetworkInterface is a node network interface
type NetworkInterface struct {
	Interface string
	Type      string
	Active    bool
}

// Package is an installed package version
type Package struct {
	Name    string
	Version string
	Title   string
}

// PendingUpdate is an entry of the node update queue
type PendingUpdate struct {
	Name     string
	Priority string
}

// Service is a node system service
type Service struct {
	Name        string
	Description string
	State       string
}

func (s Service) IsRunning() bool { return s.State == "running" }

// Certificate is a node TLS certificate
type Certificate struct {
	FileName string
	NotAfter time.Time
}

// ReplicationJob is the status of a storage replication job
type ReplicationJob struct {
	ID        string
	Guest     int
	Error     string
	FailCount int
}

func (r ReplicationJob) HasErrors() bool { return r.Error != "" || r.FailCount > 0 }

// Disk is a physical disk of a node
type Disk struct {
	DevPath string
	Health  string
	Type    string

	// Wearout is the remaining life in percent; WearoutKnown is false when the device reports N/A
	Wearout      float64
	WearoutKnown bool
}

func (d Disk) IsSSD() bool { return d.Type == "ssd" }

// ZfsPool is a ZFS pool of a node
type ZfsPool struct {
	Name   string
	Health string
	Alloc  uint64
	Size   uint64
}

// Task is a task history entry
type Task struct {
	UPID      string
	Type      string
	ID        string
	Status    string
	StartTime time.Time
}

func (t Task) IsOK() bool { return t.Status == "OK" }

// MetricPoint is one sample of a time series
type MetricPoint struct {
	Time      time.Time
	CPU       float64 // fraction 0..1
	Mem       float64
	MaxMem    float64
	NetIn     float64
	NetOut    float64
	IOWait    float64 // fraction 0..1
	RootUsed  float64
	RootTotal float64
	SwapUsed  float64
	SwapTotal float64
}

// MetricSeries holds the short and long time windows
type MetricSeries struct {
	Day  []MetricPoint
	Week []MetricPoint
}

// StorageContent is a volume on a storage
type StorageContent struct {
	Volume   string
	Storage  string
	FileName string
	VMID     int
	Content  string
	Format   string
	Size     uint64
	Created  time.Time
}

// NodeStorage is a storage as seen from one node
type NodeStorage struct {
	Storage string
	Content []string
	Volumes []*StorageContent
}

func (s *NodeStorage) HasContent(content string) bool {
	return slices.Contains(s.Content, content)
}

// NodeInfo is the detail record of one physical host
type NodeInfo struct {
	Node         string
	Version      NodeVersion
	Subscription string
	DNS          DNS
	Hosts        []string
	Timezone     string
	Network      []NetworkInterface
	Packages     []Package
	Updates      []PendingUpdate
	Services     []Service
	Certificates []Certificate
	Replication  []ReplicationJob
	Disks        []Disk
	Zfs          []ZfsPool
	Tasks        []Task
	Metrics      MetricSeries
	Storages     []*NodeStorage
	Qemu         []*QemuInfo
	Lxc          []*LxcInfo
}

// FindQemu returns the QEMU detail with the given id, or nil
func (n *NodeInfo) FindQemu(vmid int) *QemuInfo {
	for _, vm := range n.Qemu {
		if vm.VMID == vmid {
			return vm
		}
	}
	return nil
}

// FindLxc returns the container detail with the given id, or nil
func (n *NodeInfo) FindLxc(vmid int) *LxcInfo {
	for _, ct := range n.Lxc {
		if ct.VMID == vmid {
			return ct
		}
	}
	return nil
}

// FindVolume looks a volume up across the node storages
func (n *NodeInfo) FindVolume(volume string) *StorageContent {
	for _, s := range n.Storages {
		for _, v := range s.Volumes {
			if v.Volume == volume {
				return v
			}
		}
	}
	return nil
}

// BackupJob is a scheduled backup job definition
type BackupJob struct {
	ID      string
	Enabled bool
	All     bool
	VMIDs   []int
	Pool    string
}

// Pool is a resource pool and its guest members
type Pool struct {
	ID    string
	VMIDs []int
}
