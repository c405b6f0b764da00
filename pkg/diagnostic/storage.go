package diagnostic

import (
	"github.com/runningman84/pve-diag/pkg/models"
)

func (e *evaluator) checkStorage() error {
	usage := ThresholdCheck{
		Threshold:   e.settings.Storage.Threshold,
		ErrorCode:   "CS0001",
		Context:     models.ContextStorage,
		SubContext:  "Usage",
		FormatBytes: true,
	}

	for _, r := range e.resources(models.ResourceStorage) {
		if !r.IsAvailable() {
			e.report(r.ID, "CS0001", models.ContextStorage, "Status", models.GravityCritical, "Storage not available")
			continue
		}

		e.add(usage.Evaluate(Measure{
			Usage:  float64(r.Disk),
			Size:   float64(r.MaxDisk),
			ID:     r.ID,
			Prefix: "Storage",
		}))
	}

	return e.checkOrphans()
}
