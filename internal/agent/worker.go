package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/fetch"
	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/search"
	"github.com/jonathan/career-agent/internal/types"
)

// Result is what a worker hands back to the orchestrator.
type Result struct {
	// Artifact may be non-nil even when Execute returns an error.
	Artifact  types.Artifact
	StepsUsed int
	// Conditions are run-level notes, such as an unwritable cache.
	Conditions []string
}

// Worker executes one stage within a step budget.
type Worker interface {
	Stage() types.StageID
	Execute(ctx context.Context, in types.StageInput, budget int) (Result, error)
}

// PageVisitor fetches the readable text of a listing page.
type PageVisitor interface {
	Visit(ctx context.Context, url string) (*fetch.Page, error)
}

// Deps are the collaborators shared by all workers of a run.
type Deps struct {
	LLM      llm.Client
	Market   search.Searcher
	Listings search.Searcher
	Code     search.Searcher
	// Visitor is optional; without it the Listing-Finder relies on search snippets.
	Visitor PageVisitor
	Cache   *cache.Store
	Log     *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

func (d Deps) market() search.Searcher {
	if d.Market == nil {
		return search.Unavailable{Backend: "market"}
	}
	return d.Market
}

func (d Deps) listings() search.Searcher {
	if d.Listings == nil {
		return search.Unavailable{Backend: "listings"}
	}
	return d.Listings
}

func (d Deps) code() search.Searcher {
	if d.Code == nil {
		return search.Unavailable{Backend: "code"}
	}
	return d.Code
}

// Workers returns the three stage workers keyed by stage.
func Workers(d Deps) map[types.StageID]Worker {
	return map[types.StageID]Worker{
		types.StageMarketAnalyst: NewMarketAnalyst(d),
		types.StageListingFinder: NewListingFinder(d),
		types.StageGapCoach:      NewGapCoach(d),
	}
}
