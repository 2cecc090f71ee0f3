package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-agent/internal/types"
)

func strPtr(s string) *string { return &s }

func codes(v types.Verdict) []string {
	out := make([]string, 0, len(v.Reasons))
	for _, r := range v.Reasons {
		out = append(out, r.Code)
	}
	return out
}

func rankedMarket(n int) *types.MarketProfile {
	names := []string{"Grab", "Shopee", "Sea", "Lazada", "GoTo", "Agoda"}
	tiers := []types.FitTier{types.FitStrong, types.FitStrong, types.FitModerate, types.FitStretch, types.FitStretch, types.FitStretch}
	m := &types.MarketProfile{}
	for i := 0; i < n; i++ {
		m.Candidates = append(m.Candidates, types.CompanyCandidate{
			Company:   names[i],
			Rationale: "Go backend teams hiring at this level",
			FitTier:   tiers[i],
		})
	}
	return m
}

func TestValidate_NilAndWrongType(t *testing.T) {
	g := New(3)

	v := g.Validate(types.StageMarketAnalyst, nil)
	assert.False(t, v.Pass)
	assert.Equal(t, []string{types.ReasonNoArtifact}, codes(v))

	v = g.Validate(types.StageMarketAnalyst, &types.ListingSet{})
	assert.Equal(t, []string{types.ReasonWrongArtifactType}, codes(v))
}

func TestValidate_MarketCandidateCount(t *testing.T) {
	g := New(3)
	for n := 0; n <= 6; n++ {
		v := g.Validate(types.StageMarketAnalyst, rankedMarket(n))
		if n >= MinCandidates && n <= MaxCandidates {
			assert.True(t, v.Pass, "n=%d: %v", n, v.Reasons)
		} else {
			assert.Contains(t, codes(v), types.ReasonCandidateCount, "n=%d", n)
		}
	}
}

func TestValidate_MarketRules(t *testing.T) {
	g := New(3)

	m := rankedMarket(4)
	m.Candidates[1].Rationale = "  "
	assert.Equal(t, []string{types.ReasonMissingRationale}, codes(g.Validate(types.StageMarketAnalyst, m)))

	m = rankedMarket(4)
	m.Candidates[0].FitTier = types.FitStretch
	v := g.Validate(types.StageMarketAnalyst, m)
	assert.Equal(t, []string{types.ReasonNotRanked}, codes(v))
	assert.Equal(t, "candidates[1].fit_tier", v.Reasons[0].Field)

	m = rankedMarket(4)
	m.Candidates[2].FitTier = "excellent"
	assert.Equal(t, []string{types.ReasonInvalidFitTier}, codes(g.Validate(types.StageMarketAnalyst, m)))

	m = rankedMarket(4)
	m.Candidates[3].Company = " grab "
	assert.Equal(t, []string{types.ReasonDuplicateCompany}, codes(g.Validate(types.StageMarketAnalyst, m)))

	m = rankedMarket(3)
	m.Candidates[0].Company = ""
	assert.Equal(t, []string{types.ReasonMissingCompany}, codes(g.Validate(types.StageMarketAnalyst, m)))
}

func goodListings() *types.ListingSet {
	return &types.ListingSet{
		CompaniesSearched: []string{"Grab", "Shopee", "Sea"},
		Listings: []types.JobListing{
			{Company: "Grab", RoleTitle: "Backend Engineer", Location: "Kuala Lumpur", Salary: strPtr("8000-12000 MYR/month"), Source: types.SourceFetched},
			{Company: "Shopee", RoleTitle: "Backend Engineer", Location: "Singapore", Salary: strPtr("unknown"), Source: types.SourceCached},
			{Company: "Sea", RoleTitle: "Backend Engineer", Location: "Singapore", Source: types.SourceFetched},
		},
	}
}

func TestValidate_ListingsPass(t *testing.T) {
	v := New(3).Validate(types.StageListingFinder, goodListings())
	assert.True(t, v.Pass, "%v", v.Reasons)
}

func TestValidate_ListingsRules(t *testing.T) {
	g := New(3)

	s := goodListings()
	s.Listings[1].Location = "待定"
	s.Listings[2].Location = ""
	v := g.Validate(types.StageListingFinder, s)
	assert.Equal(t, []string{types.ReasonMissingLocation, types.ReasonMissingLocation}, codes(v))
	assert.Equal(t, "listings[1].location", v.Reasons[0].Field)

	s = goodListings()
	s.Listings[0].Salary = strPtr("competitive")
	assert.Equal(t, []string{types.ReasonMalformedSalary}, codes(g.Validate(types.StageListingFinder, s)))

	s = goodListings()
	s.CompaniesSearched = append(s.CompaniesSearched, "Lazada")
	assert.Equal(t, []string{types.ReasonTooManyCompanies}, codes(g.Validate(types.StageListingFinder, s)))

	// Case variants of one company count once.
	s = goodListings()
	s.CompaniesSearched = append(s.CompaniesSearched, " GRAB")
	assert.True(t, g.Validate(types.StageListingFinder, s).Pass)
}

func TestValidate_Gaps(t *testing.T) {
	g := New(3)
	base := types.GapAnalysis{
		ResumeSkills:   []string{"Go", "Docker", "SQL", "Python", "Linux"},
		RequiredSkills: []string{"Go", "Kafka"},
	}

	empty := base
	v := g.Validate(types.StageGapCoach, &empty)
	assert.Equal(t, []string{types.ReasonMissingGaps}, codes(v))
	assert.Contains(t, v.Reasons[0].Details, "Kafka")

	covered := base
	covered.RequiredSkills = []string{"golang", "docker"}
	assert.True(t, g.Validate(types.StageGapCoach, &covered).Pass)

	good := base
	good.Gaps = []types.SkillGap{{Skill: "Kafka", Resource: "apache/kafka", Justification: "Reference implementation"}}
	assert.True(t, g.Validate(types.StageGapCoach, &good).Pass)

	url := base
	url.Gaps = []types.SkillGap{{Skill: "Kafka", Resource: "https://github.com/confluentinc/confluent-kafka-go", Justification: "Go client"}}
	assert.True(t, g.Validate(types.StageGapCoach, &url).Pass)

	generic := base
	generic.Gaps = []types.SkillGap{
		{Skill: "Kafka", Resource: "read the docs and practice", Justification: "x"},
		{Skill: "", Resource: ""},
	}
	assert.Equal(t,
		[]string{types.ReasonGenericResource, types.ReasonMissingSkill, types.ReasonMissingResource},
		codes(g.Validate(types.StageGapCoach, &generic)))
}

func TestValidate_GenericAdvice(t *testing.T) {
	g := New(3)
	a := &types.GapAnalysis{
		Gaps:           []types.SkillGap{{Skill: "Kafka", Resource: "segmentio/kafka-go", Justification: "Keep learning and Stay Curious!"}},
		ResumeSkills:   []string{"Go"},
		RequiredSkills: []string{"Go", "Kafka"},
	}
	v := g.Validate(types.StageGapCoach, a)
	require.False(t, v.Pass)
	assert.Equal(t, []string{types.ReasonGenericAdvice}, codes(v))
	assert.Equal(t, "gaps[0].justification", v.Reasons[0].Field)

	assert.Equal(t, []string{"keep learning", "stay curious"}, GenericAdvice("Keep learning and Stay Curious!"))
	assert.Nil(t, GenericAdvice("Both listings run Kafka for order events"))
}

func TestValidate_Deterministic(t *testing.T) {
	g := New(3)
	s := goodListings()
	s.Listings[0].Location = "TBD"

	first := g.Validate(types.StageListingFinder, s)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, g.Validate(types.StageListingFinder, s))
	}
}

func TestConcreteResource(t *testing.T) {
	assert.True(t, ConcreteResource("golang/go"))
	assert.True(t, ConcreteResource("https://github.com/kubernetes/kubernetes/"))
	assert.False(t, ConcreteResource("golang"))
	assert.False(t, ConcreteResource("https://example.com/a/b"))
	assert.False(t, ConcreteResource("a/b/c"))
}
