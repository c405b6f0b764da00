package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/runningman84/pve-diag/pkg/models"
	"github.com/tidwall/gjson"
)

var (
	qemuDiskKey = regexp.MustCompile(`^(ide|sata|scsi|virtio|efidisk|tpmstate)\d+$`)
	lxcDiskKey  = regexp.MustCompile(`^(rootfs|mp\d+)$`)
	netKey      = regexp.MustCompile(`^net\d+$`)
	unusedKey   = regexp.MustCompile(`^unused\d+$`)
)

// guestConfig is the raw PVE configuration object of a guest
type guestConfig struct {
	raw gjson.Result
}

func newGuestConfig(data json.RawMessage) (*guestConfig, error) {
	if len(data) == 0 || string(data) == "null" {
		return &guestConfig{}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid config JSON")
	}
	raw := gjson.ParseBytes(data)
	if !raw.IsObject() {
		return nil, fmt.Errorf("config is not an object: %s", raw.Type)
	}
	return &guestConfig{raw: raw}, nil
}

func (c *guestConfig) get(key string) string {
	return c.raw.Get(key).String()
}

// each calls fn for the config keys matching re, in key order
func (c *guestConfig) each(re *regexp.Regexp, fn func(key, value string)) {
	var keys []string
	values := make(map[string]string)
	c.raw.ForEach(func(key, value gjson.Result) bool {
		if re.MatchString(key.String()) {
			keys = append(keys, key.String())
			values[key.String()] = value.String()
		}
		return true
	})
	slices.Sort(keys)
	for _, k := range keys {
		fn(k, values[k])
	}
}

func (c *guestConfig) common(diskKey *regexp.Regexp) models.GuestConfig {
	cfg := models.GuestConfig{
		OSType:     c.get("ostype"),
		OnBoot:     c.raw.Get("onboot").Bool(),
		Protection: c.raw.Get("protection").Bool(),
		Lock:       c.get("lock"),
	}

	c.each(diskKey, func(key, value string) {
		if isCdrom(value) {
			return
		}
		cfg.Disks = append(cfg.Disks, parseDisk(key, value))
	})

	return cfg
}

// parseDisk reads a disk entry such as "local-lvm:vm-100-disk-0,size=32G,backup=0"
func parseDisk(key, value string) models.GuestDisk {
	volume, options, _ := strings.Cut(value, ",")
	storage, fileName := splitVolume(volume)

	disk := models.GuestDisk{
		ID:       key,
		Storage:  storage,
		FileName: fileName,
		Volume:   volume,
		Backup:   true,
	}
	if v, ok := option(options, "backup"); ok {
		disk.Backup = v == "1" || v == "true" || v == "yes" || v == "on"
	}
	return disk
}

// option returns the value of name in a "k=v,k=v" option string
func option(options, name string) (string, bool) {
	for _, item := range strings.Split(options, ",") {
		k, v, ok := strings.Cut(item, "=")
		if ok && k == name {
			return v, true
		}
	}
	return "", false
}

func isCdrom(value string) bool {
	return strings.Contains(value, "media=cdrom")
}

// agentEnabled reads the agent option, either "1" or "enabled=1,fstrim_cloned_disks=1"
func agentEnabled(value string) bool {
	first, _, _ := strings.Cut(value, ",")
	if first == "1" {
		return true
	}
	v, ok := option(value, "enabled")
	return ok && v == "1"
}

func parseQemu(g *GuestInfoJSON) (*models.QemuInfo, error) {
	cfg, err := newGuestConfig(g.Config)
	if err != nil {
		return nil, err
	}

	vm := models.NewQemuInfo(g.VMID, cfg.common(qemuDiskKey), parsePending(g), parseSnapshots(g), parseRRD(g.RRD))
	vm.AgentEnabled = agentEnabled(cfg.get("agent"))
	vm.AgentHostName = g.AgentHostName
	vm.SCSIHardware = cfg.get("scsihw")

	cfg.each(netKey, func(key, value string) {
		model, _, _ := strings.Cut(value, "=")
		model, _, _ = strings.Cut(model, ",")
		vm.Networks = append(vm.Networks, models.NetworkDevice{ID: key, Model: model})
	})

	cfg.each(unusedKey, func(key, value string) {
		vm.Unused = append(vm.Unused, models.UnusedDisk{ID: key, Volume: value})
	})

	cfg.each(qemuDiskKey, func(key, value string) {
		if isCdrom(value) && value != "none,media=cdrom" {
			vm.MountedMedia = append(vm.MountedMedia, key)
		}
	})

	return vm, nil
}

func parseLxc(g *GuestInfoJSON) (*models.LxcInfo, error) {
	cfg, err := newGuestConfig(g.Config)
	if err != nil {
		return nil, err
	}
	return models.NewLxcInfo(g.VMID, cfg.common(lxcDiskKey), parsePending(g), parseSnapshots(g), parseRRD(g.RRD)), nil
}

func parsePending(g *GuestInfoJSON) []models.PendingChange {
	var out []models.PendingChange
	for _, p := range g.Pending {
		out = append(out, models.PendingChange{Key: p.Key, Value: gjson.ParseBytes(p.Value).String()})
	}
	return out
}

func parseSnapshots(g *GuestInfoJSON) []models.GuestSnapshot {
	var out []models.GuestSnapshot
	for _, s := range g.Snapshots {
		out = append(out, models.GuestSnapshot{
			Name:        s.Name,
			Description: strings.TrimSpace(s.Description),
			Date:        time.Unix(s.SnapTime, 0).UTC(),
		})
	}
	return out
}

// parseWearout reads the SSD wearout, a number or "N/A"
func parseWearout(data json.RawMessage) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	v := gjson.ParseBytes(data)
	switch v.Type {
	case gjson.Number:
		return v.Float(), true
	case gjson.String:
		if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
