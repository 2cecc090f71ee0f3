package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/career-agent/internal/types"
)

func TestPrintResumeProfile(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResumeProfile(&types.ResumeProfile{
		Skills:          []string{"Go", "Docker", "SQL", "Python", "Linux", "Kubernetes", "Terraform"},
		YearsExperience: 6,
		PriorRoles:      []string{"Backend Engineer"},
		Education:       "BSc Computer Science",
		Tags:            []string{"bachelor", "senior"},
	})
	output := buf.String()

	assert.Contains(t, output, "RESUME PROFILE")
	assert.Contains(t, output, "6.0 years")
	assert.Contains(t, output, "BSc Computer Science")
	assert.Contains(t, output, "Linux")
	assert.NotContains(t, output, "Terraform")
	assert.Contains(t, output, "... and 2 more")
	assert.Contains(t, output, "bachelor, senior")
}

func TestPrintResumeProfile_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResumeProfile(nil)
	assert.Empty(t, buf.String())
}

func TestPrintMarketProfile(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintMarketProfile(&types.MarketProfile{
		Candidates: []types.CompanyCandidate{
			{Company: "Acme", Rationale: "Go shop", FitTier: types.FitStrong},
			{Company: "Globex", FitTier: types.FitStretch},
		},
		EvidenceUnavailable: true,
	})
	output := buf.String()

	assert.Contains(t, output, "MARKET ANALYSIS")
	assert.Contains(t, output, "1. Acme [strong]")
	assert.Contains(t, output, "2. Globex [stretch]")
	assert.Contains(t, output, "market search unavailable")
}

func TestPrintListings(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	salary := "25k-40k"
	p.PrintListings(&types.ListingSet{
		Listings: []types.JobListing{
			{Company: "Acme", RoleTitle: "Backend Engineer", Location: "Berlin", Salary: &salary, Source: types.SourceFetched},
			{Company: "Globex", RoleTitle: "Data Engineer", Source: types.SourceUnavailable},
		},
		CompaniesSearched: []string{"Acme", "Globex"},
		CacheHits:         1,
		ExternalLookups:   1,
	})
	output := buf.String()

	assert.Contains(t, output, "JOB LISTINGS")
	assert.Contains(t, output, "Cache hits: 1")
	assert.Contains(t, output, "Berlin, 25k-40k")
	assert.Contains(t, output, "Data Engineer (unavailable)")
	assert.Contains(t, output, ", unknown")
}

func TestPrintGapAnalysis(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintGapAnalysis(&types.GapAnalysis{})
	assert.Contains(t, buf.String(), "NO SKILL GAPS FOUND")

	buf.Reset()
	p.PrintGapAnalysis(&types.GapAnalysis{Gaps: []types.SkillGap{
		{Skill: "Kafka", Resource: "segmentio/kafka-go"},
		{Skill: "Rust"},
	}})
	output := buf.String()
	assert.Contains(t, output, "Kafka → segmentio/kafka-go")
	assert.Contains(t, output, "Rust → (no resource)")
}

func TestPrintStageSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintStageSummary(&types.StageSummary{
		Stage:    types.StageListingFinder,
		Status:   types.StageFailed,
		Attempts: 3,
		Steps:    48,
		Degraded: true,
		Reasons:  []types.Rejection{{Code: types.ReasonBudgetExhausted, Details: "no steps left"}},
	})
	output := buf.String()

	assert.Contains(t, output, "LISTING-FINDER")
	assert.Contains(t, output, "Attempts: 3")
	assert.Contains(t, output, "degraded")
	assert.Contains(t, output, "budget_exhausted")
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.PrintRunSummary(&types.RunMetadata{
		RunID:       "abc",
		Status:      types.RunCompletedWithDegradation,
		StartedAt:   start,
		CompletedAt: start.Add(90 * time.Second),
		TotalSteps:  42,
		Stages: []types.StageSummary{
			{Stage: types.StageGapCoach, Degraded: true},
		},
		Conditions: []string{"cache unwritable: read-only file system"},
	})
	output := buf.String()

	assert.Contains(t, output, "RUN SUMMARY")
	assert.Contains(t, output, "completed_with_degradation")
	assert.Contains(t, output, "1m30s")
	assert.Contains(t, output, "degraded: Gap-Coach")
	assert.Contains(t, output, "cache unwritable")
}

func TestPrintBox_ClipsLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("é", 100))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
