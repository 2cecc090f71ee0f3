package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageID(t *testing.T) {
	assert.Equal(t, "Market-Analyst", StageMarketAnalyst.DisplayName())
	assert.Equal(t, "Listing-Finder", StageListingFinder.DisplayName())
	assert.Equal(t, "Gap-Coach", StageGapCoach.DisplayName())
	assert.Equal(t, "manager", StageID("manager").DisplayName())

	for _, s := range StageOrder {
		assert.True(t, s.Valid())
	}
	assert.False(t, StageID("manager").Valid())
}

func TestStageStatus_Terminal(t *testing.T) {
	tests := map[StageStatus]bool{
		StagePending:   false,
		StageRunning:   false,
		StageRetrying:  false,
		StageAccepted:  true,
		StageFailed:    true,
		StageTruncated: true,
	}
	for status, want := range tests {
		assert.Equal(t, want, status.Terminal(), string(status))
	}
}

func TestFitTier_Rank(t *testing.T) {
	assert.Equal(t, 0, FitStrong.Rank())
	assert.Equal(t, 1, FitTier(" Moderate ").Rank())
	assert.Equal(t, 2, FitStretch.Rank())
	assert.Equal(t, -1, FitTier("dream").Rank())
}

func TestMarketProfile_Top(t *testing.T) {
	m := &MarketProfile{Candidates: []CompanyCandidate{{Company: "A"}, {Company: "B"}, {Company: "C"}}}

	top := m.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[1].Company)
	top[0].Company = "changed"
	assert.Equal(t, "A", m.Candidates[0].Company)

	assert.Len(t, m.Top(10), 3)
	assert.Len(t, m.Top(-1), 3)
	assert.Nil(t, (*MarketProfile)(nil).Top(2))
}

func TestClone_IsDeep(t *testing.T) {
	salary := "25k-40k"
	set := &ListingSet{Listings: []JobListing{{Company: "Grab", Salary: &salary, Requirements: []string{"Go"}}}}
	cp := set.Clone()
	*cp.Listings[0].Salary = "changed"
	cp.Listings[0].Requirements[0] = "Rust"
	assert.Equal(t, "25k-40k", *set.Listings[0].Salary)
	assert.Equal(t, "Go", set.Listings[0].Requirements[0])

	p := &ResumeProfile{Skills: []string{"Go"}, PriorRoles: []string{"SRE"}}
	pc := p.Clone()
	pc.Skills[0] = "Java"
	assert.Equal(t, "Go", p.Skills[0])

	g := &GapAnalysis{Gaps: []SkillGap{{Skill: "Kafka"}}}
	gc := g.Clone()
	gc.Gaps[0].Skill = "Redis"
	assert.Equal(t, "Kafka", g.Gaps[0].Skill)

	assert.Nil(t, (*ListingSet)(nil).Clone())
	assert.Nil(t, (*ResumeProfile)(nil).Clone())
}

func TestRunMetadata_Degraded(t *testing.T) {
	meta := RunMetadata{Stages: []StageSummary{
		{Stage: StageMarketAnalyst},
		{Stage: StageListingFinder, Degraded: true},
		{Stage: StageGapCoach, Degraded: true},
	}}
	assert.Equal(t, []StageID{StageListingFinder, StageGapCoach}, meta.DegradedStages())
	assert.True(t, meta.IsDegraded(StageGapCoach))
	assert.False(t, meta.IsDegraded(StageMarketAnalyst))
	assert.Nil(t, RunMetadata{}.DegradedStages())
}

func TestJobListing_NullSalaryMarshals(t *testing.T) {
	data, err := json.Marshal(JobListing{Company: "Grab", Source: SourceUnavailable})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"salary":null`)
	assert.Contains(t, string(data), `"source":"unavailable"`)
}
