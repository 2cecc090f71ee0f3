package search

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// DefaultResultsPerQuery is the number of hits requested per query.
const DefaultResultsPerQuery = 5

// ListingSites are the job boards listing search is restricted to.
var ListingSites = []string{
	"boards.greenhouse.io",
	"jobs.lever.co",
	"linkedin.com/jobs",
	"glassdoor.com",
	"jobstreet.com",
	"seek.com.au",
}

// GoogleSearcher queries a Google Programmable Search Engine.
// SiteFilter, when set, restricts every query to the listed sites.
type GoogleSearcher struct {
	svc        *customsearch.Service
	cx         string
	num        int64
	siteFilter []string
	backend    string
}

// NewGoogleSearcher creates a searcher bound to the engine cx.
func NewGoogleSearcher(ctx context.Context, apiKey, cx, backend string, sites ...string) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires an API key and engine id")
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{
		svc:        svc,
		cx:         cx,
		num:        DefaultResultsPerQuery,
		siteFilter: sites,
		backend:    backend,
	}, nil
}

// Query implements Searcher.
func (g *GoogleSearcher) Query(ctx context.Context, text string) ([]Snippet, error) {
	q := withSites(text, g.siteFilter)
	resp, err := g.svc.Cse.List().Cx(g.cx).Q(q).Num(g.num).Context(ctx).Do()
	if err != nil {
		return nil, &LookupError{Backend: g.backend, Query: q, Cause: err}
	}

	snippets := make([]Snippet, 0, len(resp.Items))
	for _, item := range resp.Items {
		snippets = append(snippets, Snippet{
			Title: strings.TrimSpace(item.Title),
			Text:  strings.TrimSpace(item.Snippet),
			URL:   item.Link,
		})
	}
	return snippets, nil
}

// withSites appends an OR'ed site: restriction to the query.
func withSites(text string, sites []string) string {
	if len(sites) == 0 {
		return text
	}
	parts := make([]string, 0, len(sites))
	for _, s := range sites {
		parts = append(parts, "site:"+s)
	}
	return text + " (" + strings.Join(parts, " OR ") + ")"
}
