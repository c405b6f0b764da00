package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/runningman84/pve-diag/pkg/models"
)

//go:embed templates/report.html.tmpl
var templates embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"gravityClass": func(g models.Gravity) string {
		switch g {
		case models.GravityCritical:
			return "critical"
		case models.GravityWarning:
			return "warning"
		}
		return "info"
	},
	"dict": dict,
}).ParseFS(templates, "templates/report.html.tmpl"))

// dict builds a map from key/value pairs so sub templates can take several arguments
func dict(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments, got %d", len(values))
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", values[i])
		}
		m[key] = values[i+1]
	}
	return m, nil
}

type htmlReport struct {
	Columns     []string
	Results     []*models.DiagnosticResult
	Ignored     []*models.DiagnosticResult
	ShowIgnored bool
}

func writeHTML(w io.Writer, active, ignored []*models.DiagnosticResult, showIgnored bool) error {
	return reportTemplate.Execute(w, htmlReport{
		Columns:     columns,
		Results:     active,
		Ignored:     ignored,
		ShowIgnored: showIgnored,
	})
}
