package search

import (
	"net/url"
	"strings"
)

// applicantTrackers host postings on behalf of many companies.
var applicantTrackers = []string{
	"greenhouse.io",
	"lever.co",
	"workday.com",
	"myworkdayjobs.com",
	"ashbyhq.com",
	"smartrecruiters.com",
}

// aggregators repost listings; their pages are often stale or behind a login.
var aggregators = []string{
	"linkedin.com",
	"indeed.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"jobstreet.com",
	"seek.com.au",
}

var (
	postingPatterns = []string{"/job/", "/jobs/", "/positions/", "/opening", "/vacanc", "gh_jid=", "/careers/"}
	indexPatterns   = []string{"careers", "jobs", "join-us", "work-with-us"}
	skipPatterns    = []string{"/blog/", "/news/", "/press/", "/salaries/", "/reviews/", "/interview"}
)

// Host returns the lower-cased host of urlStr without a leading "www.".
func Host(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func hostMatches(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsApplicantTracker reports whether urlStr is hosted by an applicant tracking system.
func IsApplicantTracker(urlStr string) bool {
	return hostMatches(Host(urlStr), applicantTrackers)
}

// ListingPriority scores how likely urlStr is a single job posting, in [0, 1].
func ListingPriority(urlStr string) float64 {
	host := Host(urlStr)
	if host == "" {
		return 0
	}
	lower := strings.ToLower(urlStr)

	for _, p := range skipPatterns {
		if strings.Contains(lower, p) {
			return 0.1
		}
	}

	posting := false
	for _, p := range postingPatterns {
		if strings.Contains(lower, p) {
			posting = true
			break
		}
	}

	switch {
	case hostMatches(host, applicantTrackers):
		if posting {
			return 0.95
		}
		return 0.8
	case posting && hostMatches(host, aggregators):
		return 0.6
	case posting:
		return 0.85
	case hostMatches(host, aggregators):
		return 0.3
	}

	for _, p := range indexPatterns {
		if strings.Contains(lower, p) {
			return 0.55
		}
	}
	return 0.4
}

// BestListingURL picks the hit most likely to be a posting. Ties keep search order.
func BestListingURL(snippets []Snippet) string {
	best, bestScore := "", -1.0
	for _, sn := range snippets {
		if sn.URL == "" {
			continue
		}
		if score := ListingPriority(sn.URL); score > bestScore {
			best, bestScore = sn.URL, score
		}
	}
	return best
}
