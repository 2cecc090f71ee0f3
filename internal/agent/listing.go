package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/fetch"
	"github.com/jonathan/career-agent/internal/gate"
	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/prompts"
	"github.com/jonathan/career-agent/internal/schemas"
	"github.com/jonathan/career-agent/internal/search"
	"github.com/jonathan/career-agent/internal/types"
)

const (
	// minStepsPerMiss is read + search + generate + write for an uncached company.
	minStepsPerMiss = 4
	maxExcerpt      = 600
)

// ListingFinder resolves one listing per candidate company, consulting the lookup cache
// before any external search and writing fresh results back.
type ListingFinder struct {
	deps Deps
	log  *zap.Logger
}

// NewListingFinder creates the Listing-Finder worker.
func NewListingFinder(d Deps) *ListingFinder {
	return &ListingFinder{deps: d, log: d.logger().Named("listing_finder")}
}

// Stage implements Worker.
func (w *ListingFinder) Stage() types.StageID { return types.StageListingFinder }

type listingResponse struct {
	RoleTitle    string   `json:"role_title"`
	Location     string   `json:"location"`
	Salary       *string  `json:"salary"`
	Requirements []string `json:"requirements"`
	URL          string   `json:"url"`
}

// Execute implements Worker. Only the first MaxCompanies candidates are processed.
func (w *ListingFinder) Execute(ctx context.Context, in types.StageInput, budget int) (Result, error) {
	s := NewSession(w.Stage(), budget, w.log)
	if w.deps.Cache == nil {
		return Result{}, fail(s, "no lookup cache configured", nil)
	}

	companies := in.Candidates
	if in.MaxCompanies > 0 && len(companies) > in.MaxCompanies {
		companies = companies[:in.MaxCompanies]
	}

	set := &types.ListingSet{}
	res := Result{Artifact: set}
	rejected := rejectedCompanies(in.Feedback)
	for i, c := range companies {
		left := len(companies) - i
		err := w.resolve(ctx, s, in, c.Company, left, rejected[cache.NormalizeCompany(c.Company)], set, &res)
		if err != nil {
			res.StepsUsed = s.Used()
			return res, fail(s, fmt.Sprintf("resolving %s", c.Company), err)
		}
	}
	res.StepsUsed = s.Used()
	return res, nil
}

// resolve handles one company. left counts this company and those after it.
// A company whose listing the previous attempt had rejected skips the cache.
func (w *ListingFinder) resolve(ctx context.Context, s *Session, in types.StageInput, company string, left int, rejected bool, set *types.ListingSet, res *Result) error {
	key := cache.Normalize(company, in.TargetRole)
	log := w.log.With(zap.String("company", company), zap.String("key", string(key)))

	var (
		entry types.CacheEntry
		hit   bool
	)
	if err := s.Call(ctx, ToolCacheRead, func(context.Context) error {
		entry, hit = w.deps.Cache.Get(key)
		return nil
	}); err != nil {
		return err
	}

	switch {
	case !hit:
	case rejected:
		log.Debug("cached listing was rejected, searching again")
	case !w.deps.Cache.IsFresh(entry):
		log.Debug("cached listing is stale")
	case !usableEntry(entry):
		log.Debug("cached listing fails the listing rules, searching again")
	default:
		log.Debug("cache hit")
		for _, l := range entry.Listings {
			l.Source = types.SourceCached
			set.Listings = append(set.Listings, l)
		}
		set.CacheHits++
		set.CompaniesSearched = append(set.CompaniesSearched, company)
		return nil
	}

	// An uncached company needs search, generation and write-back.
	if s.Remaining() < minStepsPerMiss-1 {
		return fmt.Errorf("%w: %d steps left, %s needs %d", ErrBudgetExhausted, s.Remaining(), company, minStepsPerMiss-1)
	}

	query := fmt.Sprintf("%q %q job location salary", company, in.TargetRole)
	var snippets []search.Snippet
	err := s.Call(ctx, ToolListingSearch, func(ctx context.Context) error {
		var qerr error
		snippets, qerr = w.deps.listings().Query(ctx, query)
		return qerr
	})
	set.CompaniesSearched = append(set.CompaniesSearched, company)
	set.ExternalLookups++
	if err != nil {
		if !errors.Is(err, search.ErrLookupUnavailable) {
			return err
		}
		log.Warn("listing search unavailable, falling back to cache", zap.Error(err))
		return w.fallback(ctx, s, company, in.TargetRole, set)
	}

	// Visit the likeliest posting only if every remaining company can still be resolved.
	var (
		pageText string
		posting  *fetch.Posting
	)
	if top := search.BestListingURL(snippets); top != "" && w.deps.Visitor != nil &&
		s.Remaining()-1 >= (minStepsPerMiss-1)+minStepsPerMiss*(left-1) {
		verr := s.Call(ctx, ToolVisitPage, func(ctx context.Context) error {
			page, perr := w.deps.Visitor.Visit(ctx, top)
			if perr == nil {
				pageText, posting = page.Text, page.Posting
			}
			return perr
		})
		if verr != nil {
			log.Debug("page visit failed", zap.String("url", top), zap.Error(verr))
		}
	}

	prompt := prompts.Format(prompts.Agent(prompts.KeyExtractListing), map[string]string{
		"Company":  company,
		"Role":     in.TargetRole,
		"Snippets": snippetBlock(snippets),
		"Posting":  orNone(posting.String()),
		"Page":     orNone(prompts.Excerpt(pageText, fetch.MaxPageText)),
	})
	prompt = withFeedback(prompt, in.Feedback)

	var resp listingResponse
	if err := generate(ctx, s, w.deps.LLM, llm.TierStandard, prompt, schemas.Listing, &resp); err != nil {
		if errors.Is(err, ErrBudgetExhausted) {
			return err
		}
		log.Warn("listing extraction failed", zap.Error(err))
		set.Listings = append(set.Listings, unavailableListing(company, in.TargetRole))
		return nil
	}

	fillFromPosting(&resp, posting)
	listing := types.JobListing{
		Company:      company,
		RoleTitle:    firstNonEmpty(strings.TrimSpace(resp.RoleTitle), in.TargetRole),
		Location:     strings.TrimSpace(resp.Location),
		Salary:       gate.NormalizeSalary(resp.Salary),
		Requirements: trimAll(resp.Requirements),
		Source:       types.SourceFetched,
		URL:          firstNonEmpty(strings.TrimSpace(resp.URL), search.BestListingURL(snippets)),
		Excerpt:      excerpt(pageText, snippets),
	}
	set.Listings = append(set.Listings, listing)

	// Only listings the gate could accept are remembered.
	if !gate.Usable(listing) {
		log.Debug("listing fails the listing rules, not caching it",
			zap.String("location", listing.Location))
		return nil
	}
	newEntry := types.CacheEntry{
		Company:  company,
		Role:     in.TargetRole,
		Listings: []types.JobListing{listing},
		Tags:     listingTags(in.Profile, listing),
	}
	werr := s.Call(ctx, ToolCacheWrite, func(context.Context) error {
		return w.deps.Cache.Put(key, newEntry)
	})
	if werr != nil {
		if errors.Is(werr, ErrBudgetExhausted) {
			return werr
		}
		if errors.Is(werr, cache.ErrCacheUnwritable) {
			res.Conditions = appendOnce(res.Conditions, "cache unwritable: "+werr.Error())
		}
		log.Warn("cache write failed", zap.Error(werr))
	}
	return nil
}

// fallback is the single recovery for an unavailable listing search: any cached
// listing for the same company under another role.
func (w *ListingFinder) fallback(ctx context.Context, s *Session, company, role string, set *types.ListingSet) error {
	var entries []types.CacheEntry
	if err := s.Call(ctx, ToolCacheRead, func(context.Context) error {
		entries = w.deps.Cache.FindByCompany(company)
		return nil
	}); err != nil {
		return err
	}
	var found *types.CacheEntry
	for i := range entries {
		if usableEntry(entries[i]) {
			found = &entries[i]
			break
		}
	}
	if found == nil {
		set.Listings = append(set.Listings, unavailableListing(company, role))
		return nil
	}
	for _, l := range found.Listings {
		l.Source = types.SourceCached
		set.Listings = append(set.Listings, l)
	}
	set.CacheHits++
	return nil
}

func usableEntry(e types.CacheEntry) bool {
	if len(e.Listings) == 0 {
		return false
	}
	for _, l := range e.Listings {
		if !gate.Usable(l) {
			return false
		}
	}
	return true
}

// rejectedCompanies collects the companies named by listing rejections.
func rejectedCompanies(feedback []types.Rejection) map[string]bool {
	out := make(map[string]bool)
	for _, r := range feedback {
		if r.Subject != "" && strings.HasPrefix(r.Field, "listings[") {
			out[cache.NormalizeCompany(r.Subject)] = true
		}
	}
	return out
}

// unavailableListing surfaces a failed lookup inside the artifact.
// The empty location keeps the gate from accepting it as a real listing.
func unavailableListing(company, role string) types.JobListing {
	unknown := types.SalaryUnknown
	return types.JobListing{
		Company:   company,
		RoleTitle: role,
		Salary:    &unknown,
		Source:    types.SourceUnavailable,
	}
}

func listingTags(p *types.ResumeProfile, l types.JobListing) []string {
	var tags []string
	if p != nil {
		tags = append(tags, p.Tags...)
	}
	if l.Location != "" {
		tags = append(tags, strings.ToLower(l.Location))
	}
	return appendOnce(nil, tags...)
}

func snippetBlock(snippets []search.Snippet) string {
	if len(snippets) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, sn := range snippets {
		fmt.Fprintf(&sb, "- %s\n  %s\n  %s\n", sn.Title, sn.Text, sn.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func excerpt(page string, snippets []search.Snippet) string {
	text := page
	if text == "" {
		text = strings.Join(search.Texts(snippets), " ")
	}
	r := []rune(strings.TrimSpace(text))
	if len(r) > maxExcerpt {
		r = r[:maxExcerpt]
	}
	return string(r)
}

// fillFromPosting completes fields the model left blank from the page's structured posting.
func fillFromPosting(resp *listingResponse, p *fetch.Posting) {
	if p == nil {
		return
	}
	if strings.TrimSpace(resp.RoleTitle) == "" {
		resp.RoleTitle = p.Title
	}
	if strings.TrimSpace(resp.Location) == "" {
		resp.Location = p.Location
	}
	if p.Salary != "" && (resp.Salary == nil || *gate.NormalizeSalary(resp.Salary) == types.SalaryUnknown) {
		salary := p.Salary
		resp.Salary = &salary
	}
	if len(trimAll(resp.Requirements)) == 0 {
		resp.Requirements = append([]string(nil), p.Skills...)
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func appendOnce(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
