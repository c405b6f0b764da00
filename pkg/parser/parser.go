package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/runningman84/pve-diag/pkg/models"
	"k8s.io/klog/v2"
)

// SnapshotJSON is the root object of a collector export
type SnapshotJSON struct {
	Date    time.Time      `json:"date"`
	Cluster ClusterJSON    `json:"cluster"`
	Pools   []PoolJSON     `json:"pools"`
	Nodes   []NodeInfoJSON `json:"nodes"`
}

// ClusterJSON holds the cluster wide part of the export
type ClusterJSON struct {
	Resources []ResourceJSON `json:"resources"`
	Config    struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"config"`
	Backups []BackupJobJSON `json:"backups"`
}

// ResourceJSON is one row of the cluster resource list
type ResourceJSON struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Node     string `json:"node"`
	Storage  string `json:"storage"`
	VMID     int    `json:"vmid"`
	Status   string `json:"status"`
	Template int    `json:"template"`
	Content  string `json:"content"`
	Disk     uint64 `json:"disk"`
	MaxDisk  uint64 `json:"maxdisk"`
}

// BackupJobJSON is a vzdump job definition
type BackupJobJSON struct {
	ID      string `json:"id"`
	Enabled int    `json:"enabled"`
	All     int    `json:"all"`
	VMID    string `json:"vmid"`
	Pool    string `json:"pool"`
}

// PoolJSON is a resource pool with its members
type PoolJSON struct {
	ID      string `json:"id"`
	Members []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		VMID int    `json:"vmid"`
	} `json:"members"`
}

// NodeInfoJSON is the detail record of one node
type NodeInfoJSON struct {
	Node    string `json:"node"`
	Version struct {
		Version string `json:"version"`
		Release string `json:"release"`
		RepoID  string `json:"repoid"`
	} `json:"version"`
	Subscription struct {
		Status string `json:"status"`
	} `json:"subscription"`
	DNS struct {
		Search string `json:"search"`
		DNS1   string `json:"dns1"`
		DNS2   string `json:"dns2"`
		DNS3   string `json:"dns3"`
	} `json:"dns"`
	Hosts    []string `json:"hosts"`
	Timezone string   `json:"timezone"`
	Network  []struct {
		Iface  string `json:"iface"`
		Type   string `json:"type"`
		Active int    `json:"active"`
	} `json:"network"`
	Apt struct {
		Versions []struct {
			Package string `json:"Package"`
			Version string `json:"Version"`
			Title   string `json:"Title"`
		} `json:"versions"`
		Updates []struct {
			Package  string `json:"Package"`
			Priority string `json:"Priority"`
		} `json:"updates"`
	} `json:"apt"`
	Services []struct {
		Name  string `json:"name"`
		Desc  string `json:"desc"`
		State string `json:"state"`
	} `json:"services"`
	Certificates []struct {
		FileName string `json:"filename"`
		NotAfter int64  `json:"notafter"`
	} `json:"certificates"`
	Replication []struct {
		ID        string `json:"id"`
		Guest     int    `json:"guest"`
		Error     string `json:"error"`
		FailCount int    `json:"fail_count"`
	} `json:"replication"`
	Disks struct {
		List []struct {
			DevPath string          `json:"devpath"`
			Health  string          `json:"health"`
			Type    string          `json:"type"`
			Wearout json.RawMessage `json:"wearout"`
		} `json:"list"`
		Zfs []struct {
			Name   string `json:"name"`
			Health string `json:"health"`
			Alloc  uint64 `json:"alloc"`
			Size   uint64 `json:"size"`
		} `json:"zfs"`
	} `json:"disks"`
	Tasks []struct {
		UPID      string `json:"upid"`
		Type      string `json:"type"`
		ID        string `json:"id"`
		Status    string `json:"status"`
		StartTime int64  `json:"starttime"`
	} `json:"tasks"`
	RRD      RRDJSON         `json:"rrd"`
	Storages []StorageJSON   `json:"storages"`
	Qemu     []GuestInfoJSON `json:"qemu"`
	Lxc      []GuestInfoJSON `json:"lxc"`
}

// RRDJSON holds the metric series of a node or guest
type RRDJSON struct {
	Day  []MetricPointJSON `json:"day"`
	Week []MetricPointJSON `json:"week"`
}

// MetricPointJSON is one averaged rrd sample
type MetricPointJSON struct {
	Time      int64   `json:"time"`
	CPU       float64 `json:"cpu"`
	MaxCPU    float64 `json:"maxcpu"`
	Mem       float64 `json:"mem"`
	MaxMem    float64 `json:"maxmem"`
	NetIn     float64 `json:"netin"`
	NetOut    float64 `json:"netout"`
	IOWait    float64 `json:"iowait"`
	RootUsed  float64 `json:"rootused"`
	RootTotal float64 `json:"roottotal"`
	SwapUsed  float64 `json:"swapused"`
	SwapTotal float64 `json:"swaptotal"`
}

// StorageJSON is a storage with its content as seen from a node
type StorageJSON struct {
	Storage     string `json:"storage"`
	Content     string `json:"content"`
	ContentList []struct {
		VolID   string `json:"volid"`
		VMID    int    `json:"vmid"`
		Content string `json:"content"`
		Size    uint64 `json:"size"`
		CTime   int64  `json:"ctime"`
		Format  string `json:"format"`
	} `json:"content_list"`
}

// GuestInfoJSON is the detail record of a VM or container
type GuestInfoJSON struct {
	VMID    int             `json:"vmid"`
	Config  json.RawMessage `json:"config"`
	Pending []struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	} `json:"pending"`
	Snapshots []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		SnapTime    int64  `json:"snaptime"`
	} `json:"snapshots"`
	RRD           RRDJSON `json:"rrd"`
	AgentHostName string  `json:"agent_hostname"`
}

// ParseSnapshotJSON parses a collector export into a snapshot
func ParseSnapshotJSON(data []byte) (*models.Snapshot, error) {
	var response SnapshotJSON

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	snapshot := &models.Snapshot{Date: response.Date}
	if snapshot.Date.IsZero() {
		klog.Warning("Snapshot has no date, using current time")
		snapshot.Date = time.Now()
	}

	for _, r := range response.Cluster.Resources {
		snapshot.Resources = append(snapshot.Resources, &models.ClusterResource{
			ID:       r.ID,
			Type:     models.ResourceType(r.Type),
			RawType:  r.Type,
			Name:     r.Name,
			Node:     r.Node,
			Storage:  r.Storage,
			VMID:     r.VMID,
			Status:   r.Status,
			Template: r.Template == 1,
			Content:  splitList(r.Content),
			Disk:     r.Disk,
			MaxDisk:  r.MaxDisk,
		})
	}

	for _, n := range response.Cluster.Config.Nodes {
		snapshot.ClusterNodes = append(snapshot.ClusterNodes, n.Name)
	}

	for _, b := range response.Cluster.Backups {
		ids, err := parseVMIDs(b.VMID)
		if err != nil {
			return nil, fmt.Errorf("backup job %s: %w", b.ID, err)
		}
		snapshot.Backups = append(snapshot.Backups, &models.BackupJob{
			ID:      b.ID,
			Enabled: b.Enabled == 1,
			All:     b.All == 1,
			VMIDs:   ids,
			Pool:    b.Pool,
		})
	}

	for _, p := range response.Pools {
		pool := &models.Pool{ID: p.ID}
		for _, m := range p.Members {
			if m.Type == string(models.ResourceQemu) || m.Type == string(models.ResourceLxc) {
				pool.VMIDs = append(pool.VMIDs, m.VMID)
			}
		}
		snapshot.Pools = append(snapshot.Pools, pool)
	}

	for i := range response.Nodes {
		node, err := parseNode(&response.Nodes[i])
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", response.Nodes[i].Node, err)
		}
		snapshot.Nodes = append(snapshot.Nodes, node)
	}

	klog.V(1).Infof("Parsed snapshot of %s: %d resource(s), %d node(s), %d backup job(s)",
		snapshot.Date.Format(time.RFC3339), len(snapshot.Resources), len(snapshot.Nodes), len(snapshot.Backups))

	return snapshot, nil
}

func parseNode(n *NodeInfoJSON) (*models.NodeInfo, error) {
	node := &models.NodeInfo{
		Node:         n.Node,
		Version:      models.NodeVersion{Version: n.Version.Version, Release: n.Version.Release, RepoID: n.Version.RepoID},
		Subscription: n.Subscription.Status,
		DNS:          models.DNS{Search: n.DNS.Search, DNS1: n.DNS.DNS1, DNS2: n.DNS.DNS2, DNS3: n.DNS.DNS3},
		Hosts:        n.Hosts,
		Timezone:     n.Timezone,
		Metrics:      parseRRD(n.RRD),
	}

	for _, iface := range n.Network {
		node.Network = append(node.Network, models.NetworkInterface{Interface: iface.Iface, Type: iface.Type, Active: iface.Active == 1})
	}
	for _, p := range n.Apt.Versions {
		node.Packages = append(node.Packages, models.Package{Name: p.Package, Version: p.Version, Title: p.Title})
	}
	for _, u := range n.Apt.Updates {
		node.Updates = append(node.Updates, models.PendingUpdate{Name: u.Package, Priority: u.Priority})
	}
	for _, s := range n.Services {
		node.Services = append(node.Services, models.Service{Name: s.Name, Description: s.Desc, State: s.State})
	}
	for _, c := range n.Certificates {
		node.Certificates = append(node.Certificates, models.Certificate{FileName: c.FileName, NotAfter: time.Unix(c.NotAfter, 0).UTC()})
	}
	for _, r := range n.Replication {
		node.Replication = append(node.Replication, models.ReplicationJob{ID: r.ID, Guest: r.Guest, Error: r.Error, FailCount: r.FailCount})
	}
	for _, d := range n.Disks.List {
		wearout, known := parseWearout(d.Wearout)
		node.Disks = append(node.Disks, models.Disk{
			DevPath:      d.DevPath,
			Health:       d.Health,
			Type:         d.Type,
			Wearout:      wearout,
			WearoutKnown: known,
		})
	}
	for _, z := range n.Disks.Zfs {
		node.Zfs = append(node.Zfs, models.ZfsPool{Name: z.Name, Health: z.Health, Alloc: z.Alloc, Size: z.Size})
	}
	for _, t := range n.Tasks {
		node.Tasks = append(node.Tasks, models.Task{
			UPID:      t.UPID,
			Type:      t.Type,
			ID:        t.ID,
			Status:    t.Status,
			StartTime: time.Unix(t.StartTime, 0).UTC(),
		})
	}

	for _, s := range n.Storages {
		storage := &models.NodeStorage{Storage: s.Storage, Content: splitList(s.Content)}
		for _, c := range s.ContentList {
			storageName, fileName := splitVolume(c.VolID)
			if storageName == "" {
				storageName = s.Storage
			}
			storage.Volumes = append(storage.Volumes, &models.StorageContent{
				Volume:   c.VolID,
				Storage:  storageName,
				FileName: fileName,
				VMID:     c.VMID,
				Content:  c.Content,
				Format:   c.Format,
				Size:     c.Size,
				Created:  time.Unix(c.CTime, 0).UTC(),
			})
		}
		node.Storages = append(node.Storages, storage)
	}

	for i := range n.Qemu {
		vm, err := parseQemu(&n.Qemu[i])
		if err != nil {
			return nil, fmt.Errorf("qemu %d: %w", n.Qemu[i].VMID, err)
		}
		node.Qemu = append(node.Qemu, vm)
	}
	for i := range n.Lxc {
		ct, err := parseLxc(&n.Lxc[i])
		if err != nil {
			return nil, fmt.Errorf("lxc %d: %w", n.Lxc[i].VMID, err)
		}
		node.Lxc = append(node.Lxc, ct)
	}

	return node, nil
}

func parseRRD(rrd RRDJSON) models.MetricSeries {
	convert := func(points []MetricPointJSON) []models.MetricPoint {
		var out []models.MetricPoint
		for _, p := range points {
			out = append(out, models.MetricPoint{
				Time:      time.Unix(p.Time, 0).UTC(),
				CPU:       p.CPU,
				Mem:       p.Mem,
				MaxMem:    p.MaxMem,
				NetIn:     p.NetIn,
				NetOut:    p.NetOut,
				IOWait:    p.IOWait,
				RootUsed:  p.RootUsed,
				RootTotal: p.RootTotal,
				SwapUsed:  p.SwapUsed,
				SwapTotal: p.SwapTotal,
			})
		}
		return out
	}
	return models.MetricSeries{Day: convert(rrd.Day), Week: convert(rrd.Week)}
}

// splitList turns a comma separated list into its non-empty items
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseVMIDs(s string) ([]int, error) {
	var ids []int
	for _, item := range splitList(s) {
		id, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid vmid %q: %w", item, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitVolume splits a volume id such as "local-lvm:vm-100-disk-0" into storage and file name
func splitVolume(volume string) (string, string) {
	storage, file, ok := strings.Cut(volume, ":")
	if !ok {
		return "", volume
	}
	return storage, file
}
