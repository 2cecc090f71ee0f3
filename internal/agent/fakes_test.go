package agent

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/fetch"
	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/search"
	"github.com/jonathan/career-agent/internal/types"
)

// fakeLLM answers prompts through respond and records them.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateContent(ctx, prompt, tier)
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeSearcher records queries and answers from respond.
type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	respond func(q string) ([]search.Snippet, error)
}

func (f *fakeSearcher) Query(_ context.Context, q string) ([]search.Snippet, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(q)
}

func (f *fakeSearcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func unavailable(q string) ([]search.Snippet, error) {
	return search.Unavailable{Backend: "test"}.Query(context.Background(), q)
}

type fakeVisitor struct {
	visited []string
}

func (f *fakeVisitor) Visit(_ context.Context, url string) (*fetch.Page, error) {
	f.visited = append(f.visited, url)
	return &fetch.Page{URL: url, Text: "Requirements: Go, Kafka, Kubernetes. Location: Kuala Lumpur."}, nil
}

func newCache(t *testing.T, opts ...cache.Option) *cache.Store {
	t.Helper()
	return cache.Open(filepath.Join(t.TempDir(), "jd_cache.json"), opts...)
}

func sampleProfile() *types.ResumeProfile {
	return &types.ResumeProfile{
		Skills:          []string{"Go", "Docker", "SQL", "Python", "Linux"},
		YearsExperience: 4,
		PriorRoles:      []string{"Backend Engineer"},
		Education:       "BSc Computer Science",
		Tags:            []string{"bachelor", "computer science", "mid", "go"},
	}
}

func candidates(names ...string) []types.CompanyCandidate {
	out := make([]types.CompanyCandidate, len(names))
	for i, n := range names {
		out[i] = types.CompanyCandidate{Company: n, Rationale: "fit", FitTier: types.FitStrong}
	}
	return out
}

func strPtr(s string) *string { return &s }

// companyIn extracts the company from a listing-extraction prompt.
func companyIn(prompt string, names ...string) string {
	for _, n := range names {
		if strings.Contains(prompt, " at "+n+" ") {
			return n
		}
	}
	return ""
}
