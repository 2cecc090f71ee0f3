// Package agent implements the bounded stage workers and the harness that enforces
// their step budgets and tool sets.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/metrics"
	"github.com/jonathan/career-agent/internal/types"
)

// Tool is one kind of discrete tool invocation. Every call costs one step.
type Tool string

// Tools available to workers.
const (
	ToolMarketSearch  Tool = "market_search"
	ToolListingSearch Tool = "listing_search"
	ToolVisitPage     Tool = "visit_page"
	ToolCacheRead     Tool = "cache_read"
	ToolCacheWrite    Tool = "cache_write"
	ToolCodeSearch    Tool = "code_search"
	ToolGenerate      Tool = "generate"
)

// Capabilities is the closed set of tools each stage may call.
var Capabilities = map[types.StageID][]Tool{
	types.StageMarketAnalyst: {ToolMarketSearch, ToolGenerate},
	types.StageListingFinder: {ToolCacheRead, ToolCacheWrite, ToolListingSearch, ToolVisitPage, ToolGenerate},
	types.StageGapCoach:      {ToolCodeSearch, ToolGenerate},
}

// Allowed reports whether stage may call tool.
func Allowed(stage types.StageID, tool Tool) bool {
	for _, t := range Capabilities[stage] {
		if t == tool {
			return true
		}
	}
	return false
}

// Session tracks one worker attempt: the steps it has used and the tools it may call.
// A Session is owned by a single goroutine.
type Session struct {
	stage  types.StageID
	budget int
	used   int
	calls  map[Tool]int
	log    *zap.Logger
}

// NewSession starts a session with the given budget.
func NewSession(stage types.StageID, budget int, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		stage:  stage,
		budget: budget,
		calls:  make(map[Tool]int),
		log:    log.With(zap.String("stage", string(stage))),
	}
}

// Call runs fn as one tool invocation. It fails without calling fn when the tool is
// outside the stage's capability set or the budget is spent.
func (s *Session) Call(ctx context.Context, tool Tool, fn func(ctx context.Context) error) error {
	if !Allowed(s.stage, tool) {
		return fmt.Errorf("%w: %s cannot call %s", ErrToolNotAllowed, s.stage.DisplayName(), tool)
	}
	if s.used >= s.budget {
		return fmt.Errorf("%w: %d of %d steps used before %s", ErrBudgetExhausted, s.used, s.budget, tool)
	}
	s.used++
	s.calls[tool]++
	metrics.ToolCalls.WithLabelValues(string(s.stage), string(tool)).Inc()

	err := fn(ctx)
	s.log.Debug("tool call",
		zap.String("tool", string(tool)),
		zap.Int("step", s.used),
		zap.Int("budget", s.budget),
		zap.Error(err))
	return err
}

// Stage returns the stage this session belongs to.
func (s *Session) Stage() types.StageID { return s.stage }

// Used returns the number of steps consumed.
func (s *Session) Used() int { return s.used }

// Remaining returns the number of steps left.
func (s *Session) Remaining() int {
	if s.used >= s.budget {
		return 0
	}
	return s.budget - s.used
}

// Calls returns how many times tool was invoked.
func (s *Session) Calls(tool Tool) int { return s.calls[tool] }
