package models

import "time"

// GuestDisk is a disk entry of a guest configuration
type GuestDisk struct {
	ID       string // config key, e.g. scsi0 or rootfs
	Storage  string
	FileName string
	Volume   string
	Backup   bool
}

// NetworkDevice is a virtual network card of a QEMU guest
type NetworkDevice struct {
	ID    string
	Model string
}

// UnusedDisk is a detached volume still listed in a guest configuration
type UnusedDisk struct {
	ID     string
	Volume string
}

// PendingChange is an entry of the pending configuration changes list
type PendingChange struct {
	Key   string
	Value string
}

// GuestSnapshot is a guest snapshot entry
type GuestSnapshot struct {
	Name        string
	Description string
	Date        time.Time
}

// GuestConfig holds the configuration fields shared by VMs and containers
type GuestConfig struct {
	OSType     string
	OnBoot     bool
	Protection bool
	Lock       string
	Disks      []GuestDisk
}

func (c *GuestConfig) IsLocked() bool { return c.Lock != "" }

// Guest is the capability set the shared guest rules evaluate
type Guest interface {
	ID() int
	Type() ResourceType
	Config() *GuestConfig
	Pending() []PendingChange
	Snapshots() []GuestSnapshot
	Metrics() MetricSeries
}

// guestBase carries the fields common to both guest variants
type guestBase struct {
	VMID          int
	Configuration GuestConfig
	PendingList   []PendingChange
	SnapshotList  []GuestSnapshot
	MetricData    MetricSeries
}

func (g *guestBase) ID() int                    { return g.VMID }
func (g *guestBase) Config() *GuestConfig       { return &g.Configuration }
func (g *guestBase) Pending() []PendingChange   { return g.PendingList }
func (g *guestBase) Snapshots() []GuestSnapshot { return g.SnapshotList }
func (g *guestBase) Metrics() MetricSeries      { return g.MetricData }

// QemuInfo is the detail record of a QEMU virtual machine
type QemuInfo struct {
	guestBase

	AgentEnabled  bool
	AgentHostName string // empty when the guest agent did not answer
	SCSIHardware  string
	Networks      []NetworkDevice
	Unused        []UnusedDisk
	MountedMedia  []string // config keys with a cdrom image inserted
}

func (q *QemuInfo) Type() ResourceType { return ResourceQemu }

// LxcInfo is the detail record of a container
type LxcInfo struct {
	guestBase
}

func (l *LxcInfo) Type() ResourceType { return ResourceLxc }

// NewQemuInfo builds a QEMU detail record
func NewQemuInfo(vmid int, cfg GuestConfig, pending []PendingChange, snapshots []GuestSnapshot, metrics MetricSeries) *QemuInfo {
	return &QemuInfo{guestBase: guestBase{
		VMID:          vmid,
		Configuration: cfg,
		PendingList:   pending,
		SnapshotList:  snapshots,
		MetricData:    metrics,
	}}
}

// NewLxcInfo builds a container detail record
func NewLxcInfo(vmid int, cfg GuestConfig, pending []PendingChange, snapshots []GuestSnapshot, metrics MetricSeries) *LxcInfo {
	return &LxcInfo{guestBase: guestBase{
		VMID:          vmid,
		Configuration: cfg,
		PendingList:   pending,
		SnapshotList:  snapshots,
		MetricData:    metrics,
	}}
}
