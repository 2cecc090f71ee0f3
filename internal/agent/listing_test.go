package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/fetch"
	"github.com/jonathan/career-agent/internal/gate"
	"github.com/jonathan/career-agent/internal/search"
	"github.com/jonathan/career-agent/internal/types"
)

const role = "Backend Engineer"

func listingLLM(names ...string) *fakeLLM {
	return &fakeLLM{respond: func(prompt string) (string, error) {
		c := companyIn(prompt, names...)
		return fmt.Sprintf(`{"role_title":"Senior Backend Engineer","location":"Kuala Lumpur, Malaysia","salary":"Negotiable","requirements":["Go","Kafka"," "],"url":"https://careers.example.com/%s"}`, c), nil
	}}
}

func listingSearch() *fakeSearcher {
	return &fakeSearcher{respond: func(q string) ([]search.Snippet, error) {
		return []search.Snippet{{Title: "Job", Text: "Backend role", URL: "https://jobs.example.com/1"}}, nil
	}}
}

func seed(t *testing.T, store *cache.Store, company string) {
	t.Helper()
	require.NoError(t, store.Put(cache.Normalize(company, role), types.CacheEntry{
		Company: company,
		Role:    role,
		Listings: []types.JobListing{{
			Company: company, RoleTitle: role, Location: "Singapore",
			Salary: strPtr("unknown"), Requirements: []string{"Go"}, Source: types.SourceFetched,
		}},
	}))
}

func TestListingFinder_QueryFirstSkipsSearchOnFreshHit(t *testing.T) {
	store := newCache(t)
	for _, c := range []string{"Grab", "Shopee", "Sea"} {
		seed(t, store, c)
	}
	searcher := &fakeSearcher{}
	gen := listingLLM()

	w := NewListingFinder(Deps{LLM: gen, Listings: searcher, Cache: store})
	in := types.StageInput{Profile: sampleProfile(), TargetRole: " backend engineer ", MaxCompanies: 3, Candidates: candidates("grab", "SHOPEE", "Sea ")}
	res, err := w.Execute(context.Background(), in, 16)
	require.NoError(t, err)

	set := res.Artifact.(*types.ListingSet)
	assert.Equal(t, 0, searcher.count())
	assert.Equal(t, 0, gen.calls())
	assert.Equal(t, 3, set.CacheHits)
	assert.Equal(t, 0, set.ExternalLookups)
	assert.Equal(t, 3, res.StepsUsed)
	for _, l := range set.Listings {
		assert.Equal(t, types.SourceCached, l.Source)
	}
}

func TestListingFinder_MissSearchesAndWritesBack(t *testing.T) {
	store := newCache(t)
	searcher := listingSearch()
	gen := listingLLM("Grab", "Shopee", "Sea", "Lazada")
	visitor := &fakeVisitor{}

	w := NewListingFinder(Deps{LLM: gen, Listings: searcher, Cache: store, Visitor: visitor})
	in := types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab", "Shopee", "Sea", "Lazada")}
	res, err := w.Execute(context.Background(), in, 16)
	require.NoError(t, err)

	set := res.Artifact.(*types.ListingSet)
	require.Len(t, set.Listings, 3, "cap limits processing to the top 3 candidates")
	assert.Equal(t, []string{"Grab", "Shopee", "Sea"}, set.CompaniesSearched)
	assert.Equal(t, 3, searcher.count())
	assert.Equal(t, 3, set.ExternalLookups)

	l := set.Listings[0]
	assert.Equal(t, "Grab", l.Company)
	assert.Equal(t, "Kuala Lumpur, Malaysia", l.Location)
	assert.Equal(t, types.SalaryUnknown, *l.Salary)
	assert.Equal(t, []string{"Go", "Kafka"}, l.Requirements)
	assert.Equal(t, types.SourceFetched, l.Source)
	assert.Equal(t, "https://careers.example.com/Grab", l.URL)

	// Write-back happened for every fetched company.
	for _, c := range []string{"Grab", "Shopee", "Sea"} {
		entry, ok := store.Get(cache.Normalize(c, role))
		require.True(t, ok, c)
		assert.Equal(t, c, entry.Listings[0].Company)
	}
	_, ok := store.Get(cache.Normalize("Lazada", role))
	assert.False(t, ok)

	// A second run is served from the cache.
	searcher2 := &fakeSearcher{}
	res2, err := NewListingFinder(Deps{LLM: gen, Listings: searcher2, Cache: store}).Execute(context.Background(), in, 16)
	require.NoError(t, err)
	assert.Equal(t, 0, searcher2.count())
	assert.Equal(t, 3, res2.Artifact.(*types.ListingSet).CacheHits)
}

func TestListingFinder_VisitsPageWhenBudgetAllows(t *testing.T) {
	visitor := &fakeVisitor{}
	w := NewListingFinder(Deps{LLM: listingLLM("Grab"), Listings: listingSearch(), Cache: newCache(t), Visitor: visitor})

	res, err := w.Execute(context.Background(), types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab")}, 16)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jobs.example.com/1"}, visitor.visited)
	assert.Contains(t, res.Artifact.(*types.ListingSet).Listings[0].Excerpt, "Kuala Lumpur")
	assert.Equal(t, 5, res.StepsUsed)
}

func TestListingFinder_UnavailableFallsBackToCompanyCache(t *testing.T) {
	store := newCache(t)
	require.NoError(t, store.Put(cache.Normalize("Grab", "Data Engineer"), types.CacheEntry{
		Company:  "Grab",
		Role:     "Data Engineer",
		Listings: []types.JobListing{{Company: "Grab", RoleTitle: "Data Engineer", Location: "Singapore"}},
	}))

	w := NewListingFinder(Deps{LLM: listingLLM(), Listings: &fakeSearcher{respond: unavailable}, Cache: store})
	res, err := w.Execute(context.Background(), types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab", "Shopee")}, 16)
	require.NoError(t, err)

	set := res.Artifact.(*types.ListingSet)
	require.Len(t, set.Listings, 2)
	assert.Equal(t, "Data Engineer", set.Listings[0].RoleTitle)
	assert.Equal(t, types.SourceCached, set.Listings[0].Source)

	shopee := set.Listings[1]
	assert.Equal(t, types.SourceUnavailable, shopee.Source)
	assert.Equal(t, types.SalaryUnknown, *shopee.Salary)
	assert.Empty(t, shopee.Location)
	// read, search, fallback read per company
	assert.Equal(t, 6, res.StepsUsed)
}

func TestListingFinder_BudgetExhaustedReturnsPartial(t *testing.T) {
	w := NewListingFinder(Deps{LLM: listingLLM("Grab", "Shopee", "Sea"), Listings: listingSearch(), Cache: newCache(t)})
	in := types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab", "Shopee", "Sea")}

	res, err := w.Execute(context.Background(), in, 5)
	require.Error(t, err)
	var ef *ExecutionFailure
	require.ErrorAs(t, err, &ef)
	assert.True(t, ef.BudgetExhausted())

	set, ok := res.Artifact.(*types.ListingSet)
	require.True(t, ok)
	assert.Len(t, set.Listings, 1)
	assert.LessOrEqual(t, res.StepsUsed, 5)
}

func TestListingFinder_StaleEntryIsRefetched(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newCache(t, cache.WithClock(clock), cache.WithFreshness(cache.StaleAfter(24*time.Hour)))
	seed(t, store, "Grab")
	now = now.Add(48 * time.Hour)

	searcher := listingSearch()
	w := NewListingFinder(Deps{LLM: listingLLM("Grab"), Listings: searcher, Cache: store})
	res, err := w.Execute(context.Background(), types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab")}, 16)
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.count())
	assert.Equal(t, types.SourceFetched, res.Artifact.(*types.ListingSet).Listings[0].Source)
}

func TestListingFinder_UnwritableCacheIsACondition(t *testing.T) {
	dir := t.TempDir()
	store := cache.Open(dir) // a directory cannot be replaced by the flushed file

	w := NewListingFinder(Deps{LLM: listingLLM("Grab"), Listings: listingSearch(), Cache: store})
	res, err := w.Execute(context.Background(), types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab")}, 16)
	require.NoError(t, err)
	require.Len(t, res.Conditions, 1)
	assert.Contains(t, res.Conditions[0], "cache unwritable")
	assert.Len(t, res.Artifact.(*types.ListingSet).Listings, 1)
}

func TestListingFinder_RejectedListingIsSearchedAgain(t *testing.T) {
	store := newCache(t)
	searcher := listingSearch()
	gen := &fakeLLM{respond: func(prompt string) (string, error) {
		location := ""
		if strings.Contains(prompt, types.ReasonMissingLocation) {
			location = "Kuala Lumpur"
		}
		return fmt.Sprintf(`{"role_title":"Backend Engineer","location":%q,"salary":"25k-40k","requirements":["Go"]}`, location), nil
	}}
	w := NewListingFinder(Deps{LLM: gen, Listings: searcher, Cache: store})
	in := types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab")}

	first, err := w.Execute(context.Background(), in, 16)
	require.NoError(t, err)
	verdict := gate.New(3).Validate(types.StageListingFinder, first.Artifact)
	require.False(t, verdict.Pass)
	assert.Equal(t, "Grab", verdict.Reasons[0].Subject)

	_, cached := store.Get(cache.Normalize("Grab", role))
	assert.False(t, cached, "a listing the gate rejects is not written back")
	assert.Equal(t, 3, first.StepsUsed)

	in.Attempt, in.Feedback = 2, verdict.Reasons
	second, err := w.Execute(context.Background(), in, 16)
	require.NoError(t, err)
	assert.Equal(t, 2, searcher.count())
	assert.Equal(t, 2, gen.calls())
	assert.True(t, gate.New(3).Validate(types.StageListingFinder, second.Artifact).Pass)

	entry, ok := store.Get(cache.Normalize("Grab", role))
	require.True(t, ok)
	assert.Equal(t, "Kuala Lumpur", entry.Listings[0].Location)
}

func TestListingFinder_UnusableCachedEntryIsNotServed(t *testing.T) {
	store := newCache(t)
	require.NoError(t, store.Put(cache.Normalize("Grab", role), types.CacheEntry{
		Company:  "Grab",
		Role:     role,
		Listings: []types.JobListing{{Company: "Grab", RoleTitle: role, Location: "TBD", Source: types.SourceFetched}},
	}))

	searcher := listingSearch()
	w := NewListingFinder(Deps{LLM: listingLLM("Grab"), Listings: searcher, Cache: store})
	res, err := w.Execute(context.Background(), types.StageInput{Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab")}, 16)
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.count())
	assert.Equal(t, 0, res.Artifact.(*types.ListingSet).CacheHits)

	entry, ok := store.Get(cache.Normalize("Grab", role))
	require.True(t, ok)
	assert.Equal(t, "Kuala Lumpur, Malaysia", entry.Listings[0].Location, "the bad entry is overwritten")
}

func TestListingFinder_FeedbackBypassesCacheForNamedCompany(t *testing.T) {
	store := newCache(t)
	seed(t, store, "Grab")
	seed(t, store, "Sea")

	searcher := listingSearch()
	w := NewListingFinder(Deps{LLM: listingLLM("Grab", "Sea"), Listings: searcher, Cache: store})
	in := types.StageInput{
		Profile: sampleProfile(), TargetRole: role, MaxCompanies: 3, Candidates: candidates("Grab", "Sea"), Attempt: 2,
		Feedback: []types.Rejection{{Code: types.ReasonMalformedSalary, Field: "listings[0].salary", Subject: "grab"}},
	}
	res, err := w.Execute(context.Background(), in, 16)
	require.NoError(t, err)

	set := res.Artifact.(*types.ListingSet)
	assert.Equal(t, 1, searcher.count())
	assert.Equal(t, 1, set.CacheHits)
	assert.Equal(t, types.SourceFetched, set.Listings[0].Source)
	assert.Equal(t, types.SourceCached, set.Listings[1].Source)
}

func TestFillFromPosting(t *testing.T) {
	posting := &fetch.Posting{Title: "Backend Engineer", Location: "Kuala Lumpur, Malaysia", Salary: "MYR 12000-18000 / month", Skills: []string{"Go", "Kafka"}}

	negotiable := "Negotiable"
	resp := listingResponse{Location: "  ", Salary: &negotiable, Requirements: []string{" "}}
	fillFromPosting(&resp, posting)
	assert.Equal(t, "Backend Engineer", resp.RoleTitle)
	assert.Equal(t, "Kuala Lumpur, Malaysia", resp.Location)
	require.NotNil(t, resp.Salary)
	assert.Equal(t, "MYR 12000-18000 / month", *resp.Salary)
	assert.Equal(t, []string{"Go", "Kafka"}, resp.Requirements)

	published := "10k-15k MYR/month"
	kept := listingResponse{RoleTitle: "Staff Engineer", Location: "Penang", Salary: &published, Requirements: []string{"Rust"}}
	fillFromPosting(&kept, posting)
	assert.Equal(t, "Staff Engineer", kept.RoleTitle)
	assert.Equal(t, "Penang", kept.Location)
	assert.Equal(t, "10k-15k MYR/month", *kept.Salary)
	assert.Equal(t, []string{"Rust"}, kept.Requirements)

	untouched := listingResponse{}
	fillFromPosting(&untouched, nil)
	assert.Equal(t, listingResponse{}, untouched)
}
