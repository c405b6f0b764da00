package diagnostic

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/runningman84/pve-diag/pkg/models"
)

const contentImages = "images"

// DetectOrphans returns the image volumes no guest configuration references.
//
// Candidates are the "images" volumes of available storages that serve
// images, deduplicated by volume id. Every qemu and lxc resource of the
// snapshot then removes the volumes its disks point at (same owner id,
// storage and file name). Volumes owned by a guest missing from the
// resource list are therefore always reported.
func DetectOrphans(snapshot *models.Snapshot) ([]*models.StorageContent, error) {
	var candidates []*models.StorageContent
	seen := make(map[string]bool)

	for _, r := range snapshot.Resources {
		if r.Type != models.ResourceStorage || !r.IsAvailable() || !r.HasContent(contentImages) {
			continue
		}

		node, err := findNode(snapshot, r.Node)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.ID, err)
		}

		for _, storage := range node.Storages {
			if storage.Storage != r.Storage || !storage.HasContent(contentImages) {
				continue
			}
			for _, volume := range storage.Volumes {
				if volume.Content != contentImages || seen[volume.Volume] {
					continue
				}
				seen[volume.Volume] = true
				candidates = append(candidates, volume)
			}
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	for _, r := range snapshot.Resources {
		if !r.IsGuest() {
			continue
		}

		_, guest, err := findGuest(snapshot, r)
		if err != nil {
			return nil, err
		}

		for _, disk := range guest.Config().Disks {
			candidates = removeVolumes(candidates, func(v *models.StorageContent) bool {
				return v.VMID == r.VMID && v.Storage == disk.Storage && v.FileName == disk.FileName
			})
		}
	}

	return candidates, nil
}

func removeVolumes(volumes []*models.StorageContent, match func(*models.StorageContent) bool) []*models.StorageContent {
	kept := volumes[:0]
	for _, v := range volumes {
		if !match(v) {
			kept = append(kept, v)
		}
	}
	return kept
}

func (e *evaluator) checkOrphans() error {
	orphans, err := DetectOrphans(e.snapshot)
	if err != nil {
		return err
	}

	for _, image := range orphans {
		e.report(image.Storage, "WN0001", models.ContextStorage, "Image", models.GravityWarning,
			"Image Orphaned %s file %s", humanize.IBytes(image.Size), image.FileName)
	}
	return nil
}
