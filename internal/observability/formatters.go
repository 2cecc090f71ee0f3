// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/career-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode. Boxes from concurrent runs never interleave.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList writes up to maxItemsToShow items under a heading.
func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintResumeProfile outputs a human-readable summary of the extracted resume profile.
func (p *Printer) PrintResumeProfile(profile *types.ResumeProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Experience: %.1f years\n", profile.YearsExperience))
	if profile.Education != "" {
		sb.WriteString(fmt.Sprintf("Education:  %s\n", profile.Education))
	}
	sb.WriteString("\n")
	writeList(&sb, "Skills", profile.Skills)
	writeList(&sb, "Prior Roles", profile.PriorRoles)
	if len(profile.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(profile.Tags, ", ")))
	}

	p.printBox("RESUME PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMarketProfile outputs the ranked candidate companies.
func (p *Printer) PrintMarketProfile(m *types.MarketProfile) {
	if m == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidates: %d\n\n", len(m.Candidates)))
	for i, c := range m.Candidates {
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, c.Company, c.FitTier))
		if c.Rationale != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", c.Rationale))
		}
	}
	if m.EvidenceUnavailable {
		sb.WriteString("\n⚠ market search unavailable; ranked from profile only\n")
	}

	p.printBox("MARKET ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintListings outputs the listings found per company.
func (p *Printer) PrintListings(s *types.ListingSet) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Companies: %d  Cache hits: %d  Lookups: %d\n\n", len(s.CompaniesSearched), s.CacheHits, s.ExternalLookups))
	for _, l := range s.Listings {
		salary := types.SalaryUnknown
		if l.Salary != nil && *l.Salary != "" {
			salary = *l.Salary
		}
		sb.WriteString(fmt.Sprintf("• %s: %s (%s)\n", l.Company, l.RoleTitle, l.Source))
		sb.WriteString(fmt.Sprintf("  %s, %s\n", l.Location, salary))
	}

	p.printBox("JOB LISTINGS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGapAnalysis outputs the skill gaps and their resources.
func (p *Printer) PrintGapAnalysis(g *types.GapAnalysis) {
	if g == nil {
		return
	}
	if len(g.Gaps) == 0 {
		p.printBox("SKILL GAPS", "✅ NO SKILL GAPS FOUND")
		return
	}

	var sb strings.Builder
	for _, gap := range g.Gaps {
		resource := gap.Resource
		if resource == "" {
			resource = "(no resource)"
		}
		sb.WriteString(fmt.Sprintf("• %s → %s\n", gap.Skill, resource))
	}

	p.printBox("SKILL GAPS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStageSummary outputs how a stage concluded.
func (p *Printer) PrintStageSummary(s *types.StageSummary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:   %s\n", s.Status))
	sb.WriteString(fmt.Sprintf("Attempts: %d\n", s.Attempts))
	sb.WriteString(fmt.Sprintf("Steps:    %d\n", s.Steps))
	if s.Degraded {
		sb.WriteString("⚠ degraded: output was not validated\n")
	}
	if len(s.Reasons) > 0 {
		sb.WriteString("\n")
		for _, r := range s.Reasons {
			sb.WriteString(fmt.Sprintf("⚠ %s\n", r.Code))
			if r.Details != "" {
				sb.WriteString(fmt.Sprintf("  %s\n", r.Details))
			}
		}
	}

	p.printBox(strings.ToUpper(s.Stage.DisplayName()), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs the run status, step totals and conditions.
func (p *Printer) PrintRunSummary(m *types.RunMetadata) {
	if m == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:    %s\n", m.RunID))
	sb.WriteString(fmt.Sprintf("Status: %s\n", m.Status))
	if m.AbortReason != "" {
		sb.WriteString(fmt.Sprintf("Reason: %s\n", m.AbortReason))
	}
	sb.WriteString(fmt.Sprintf("Steps:  %d\n", m.TotalSteps))
	if !m.StartedAt.IsZero() && !m.CompletedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Time:   %s\n", m.CompletedAt.Sub(m.StartedAt).Round(time.Millisecond)))
	}
	for _, stage := range m.DegradedStages() {
		sb.WriteString(fmt.Sprintf("⚠ degraded: %s\n", stage.DisplayName()))
	}
	writeList(&sb, "Conditions", m.Conditions)

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}
