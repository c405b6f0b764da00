// Package render prints diagnostic results as tables or JSON.
package render

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/runningman84/pve-diag/pkg/config"
	"github.com/runningman84/pve-diag/pkg/models"
)

var columns = []string{"Id", "Description", "Context", "SubContext", "Gravity"}

// Sort returns a copy of the results ordered by gravity (highest first),
// then context, then sub context
func Sort(results []*models.DiagnosticResult) []*models.DiagnosticResult {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b *models.DiagnosticResult) int {
		if c := cmp.Compare(b.Gravity, a.Gravity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Context, b.Context); c != 0 {
			return c
		}
		return strings.Compare(a.SubContext, b.SubContext)
	})
	return sorted
}

// Split separates active findings from suppressed ones, keeping their order
func Split(results []*models.DiagnosticResult) (active, ignored []*models.DiagnosticResult) {
	for _, r := range results {
		if r.IsIgnoredIssue {
			ignored = append(ignored, r)
		} else {
			active = append(active, r)
		}
	}
	return active, ignored
}

// Render writes the active findings and, when showIgnored is set, a second
// table with the suppressed ones
func Render(w io.Writer, format string, results []*models.DiagnosticResult, showIgnored bool) error {
	active, ignored := Split(Sort(results))
	if !showIgnored {
		ignored = nil
	}

	switch format {
	case config.OutputText, "":
		return writeTables(w, active, ignored, showIgnored, writeText)
	case config.OutputMarkdown:
		return writeTables(w, active, ignored, showIgnored, writeMarkdown)
	case config.OutputHTML:
		return writeHTML(w, active, ignored, showIgnored)
	case config.OutputJSON:
		return writeJSON(w, active, ignored, showIgnored, false)
	case config.OutputJSONPretty:
		return writeJSON(w, active, ignored, showIgnored, true)
	}
	return fmt.Errorf("unsupported output format %q (must be one of %s)", format, strings.Join(config.OutputFormats(), ", "))
}

type tableWriter func(io.Writer, []*models.DiagnosticResult) error

func writeTables(w io.Writer, active, ignored []*models.DiagnosticResult, showIgnored bool, table tableWriter) error {
	if err := table(w, active); err != nil {
		return err
	}
	if !showIgnored {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return table(w, ignored)
}

func row(r *models.DiagnosticResult) []string {
	return []string{r.ID, r.Description, r.Context.String(), r.SubContext, r.Gravity.String()}
}

func writeText(w io.Writer, results []*models.DiagnosticResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, r := range results {
		fmt.Fprintln(tw, strings.Join(row(r), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, results []*models.DiagnosticResult) error {
	var b strings.Builder
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, r := range results {
		cells := row(r)
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type jsonReport struct {
	Results []*models.DiagnosticResult `json:"results"`
	Ignored []*models.DiagnosticResult `json:"ignored,omitempty"`
}

func writeJSON(w io.Writer, active, ignored []*models.DiagnosticResult, showIgnored, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}

	if active == nil {
		active = []*models.DiagnosticResult{}
	}
	if !showIgnored {
		return enc.Encode(active)
	}
	return enc.Encode(jsonReport{Results: active, Ignored: ignored})
}
