package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/jonathan/career-agent/internal/types"
)

//go:embed report.md.tmpl
var defaultTemplate string

// TemplateData is the view passed to the report template.
type TemplateData struct {
	Report *types.Report
	// Degraded holds display names of stages whose output was not validated.
	Degraded         []string
	MarketDegraded   bool
	ListingsDegraded bool
	GapsDegraded     bool
	Unattached       []types.SkillGap
}

// RenderMarkdown renders the report with the built-in template.
func RenderMarkdown(rep *types.Report) (string, error) {
	tmpl, err := parseTemplate("report", defaultTemplate)
	if err != nil {
		return "", err
	}
	return execute(tmpl, rep)
}

// RenderWithTemplate renders the report with a template file from disk.
func RenderWithTemplate(rep *types.Report, templatePath string) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return "", &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}
	tmpl, err := parseTemplate(filepath.Base(templatePath), string(content))
	if err != nil {
		return "", err
	}
	return execute(tmpl, rep)
}

func execute(tmpl *template.Template, rep *types.Report) (string, error) {
	if rep == nil {
		return "", &RenderError{Message: "no report to render"}
	}
	var result strings.Builder
	if err := tmpl.Execute(&result, buildTemplateData(rep)); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return result.String(), nil
}

func parseTemplate(name, content string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"cell":      EscapeCell,
		"inline":    Inline,
		"join":      func(items []string) string { return strings.Join(items, ", ") },
		"inc":       func(i int) int { return i + 1 },
		"orDash":    orDash,
		"salary":    salary,
		"link":      sourceLink,
		"resource":  resource,
		"display":   func(s types.StageID) string { return s.DisplayName() },
		"status":    statusLabel,
		"timestamp": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	}).Parse(content)
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}
	return tmpl, nil
}

func buildTemplateData(rep *types.Report) *TemplateData {
	data := &TemplateData{
		Report:           rep,
		MarketDegraded:   rep.Metadata.IsDegraded(types.StageMarketAnalyst),
		ListingsDegraded: rep.Metadata.IsDegraded(types.StageListingFinder),
		GapsDegraded:     rep.Metadata.IsDegraded(types.StageGapCoach),
		Unattached:       Unattached(rep),
	}
	for _, stage := range rep.Metadata.DegradedStages() {
		data.Degraded = append(data.Degraded, stage.DisplayName())
	}
	return data
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func salary(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return types.SalaryUnknown
	}
	return *s
}

func sourceLink(l types.JobListing) string {
	label := string(l.Source)
	if label == "" {
		label = "-"
	}
	if l.URL != "" {
		return fmt.Sprintf("[%s](%s)", EscapeCell(label), l.URL)
	}
	return EscapeCell(label)
}

func resource(g types.SkillGap) string {
	switch {
	case g.Resource == "":
		return "_no resource found_"
	case g.ResourceURL != "":
		return fmt.Sprintf("[%s](%s)", g.Resource, g.ResourceURL)
	default:
		return "`" + g.Resource + "`"
	}
}

func statusLabel(s types.RunStatus) string {
	switch s {
	case types.RunCompleted:
		return "Completed"
	case types.RunCompletedWithDegradation:
		return "Completed with degradation"
	case types.RunAborted:
		return "Aborted"
	default:
		return string(s)
	}
}

// Save writes the rendered report to path. A ".json" path gets the report as JSON.
func Save(rep *types.Report, path string) error {
	var content []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return &RenderError{Message: "failed to marshal report", Cause: err}
		}
		content = append(b, '\n')
	} else {
		md, err := RenderMarkdown(rep)
		if err != nil {
			return err
		}
		content = []byte(md)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &RenderError{Message: fmt.Sprintf("failed to create %s", dir), Cause: err}
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return &RenderError{Message: fmt.Sprintf("failed to write %s", path), Cause: err}
	}
	return nil
}
