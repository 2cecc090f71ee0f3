package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/prompts"
	"github.com/jonathan/career-agent/internal/schemas"
	"github.com/jonathan/career-agent/internal/search"
	"github.com/jonathan/career-agent/internal/types"
)

// maxEvidence bounds the number of market snippets passed to generation.
const maxEvidence = 12

// MarketAnalyst proposes and ranks target companies from market signals.
type MarketAnalyst struct {
	deps Deps
	log  *zap.Logger
}

// NewMarketAnalyst creates the Market-Analyst worker.
func NewMarketAnalyst(d Deps) *MarketAnalyst {
	return &MarketAnalyst{deps: d, log: d.logger().Named("market_analyst")}
}

// Stage implements Worker.
func (w *MarketAnalyst) Stage() types.StageID { return types.StageMarketAnalyst }

type rankingResponse struct {
	Candidates []types.CompanyCandidate `json:"candidates"`
}

// Execute implements Worker.
func (w *MarketAnalyst) Execute(ctx context.Context, in types.StageInput, budget int) (Result, error) {
	s := NewSession(w.Stage(), budget, w.log)
	if in.Profile == nil {
		return Result{}, fail(s, "missing resume profile", nil)
	}

	artifact := &types.MarketProfile{}
	var attempted, failed int
	for _, q := range marketQueries(in) {
		// Keep room for generation and one correction.
		if s.Remaining() <= 1+maxCorrections {
			break
		}
		attempted++
		var snippets []search.Snippet
		err := s.Call(ctx, ToolMarketSearch, func(ctx context.Context) error {
			var qerr error
			snippets, qerr = w.deps.market().Query(ctx, q)
			return qerr
		})
		if err != nil {
			if !errors.Is(err, search.ErrLookupUnavailable) {
				return Result{StepsUsed: s.Used()}, fail(s, "market search", err)
			}
			failed++
			w.log.Warn("market search unavailable", zap.String("query", q), zap.Error(err))
			continue
		}
		artifact.Evidence = append(artifact.Evidence, search.Texts(snippets)...)
	}
	if len(artifact.Evidence) > maxEvidence {
		artifact.Evidence = artifact.Evidence[:maxEvidence]
	}
	// Fallback: rank from the profile alone.
	artifact.EvidenceUnavailable = attempted > 0 && failed == attempted

	evidence := "- " + strings.Join(artifact.Evidence, "\n- ")
	if len(artifact.Evidence) == 0 {
		evidence = "(no market evidence available; rank from the candidate background only)"
	}
	prompt := prompts.Format(prompts.Agent(prompts.KeyRankCompanies), map[string]string{
		"Profile":    describeProfile(in.Profile),
		"TargetRole": in.TargetRole,
		"Evidence":   evidence,
	})
	prompt = withFeedback(prompt, in.Feedback)

	var resp rankingResponse
	if err := generate(ctx, s, w.deps.LLM, llm.TierStandard, prompt, schemas.Ranking, &resp); err != nil {
		return Result{StepsUsed: s.Used()}, fail(s, "ranking generation", err)
	}

	for _, c := range resp.Candidates {
		artifact.Candidates = append(artifact.Candidates, types.CompanyCandidate{
			Company:   strings.TrimSpace(c.Company),
			Rationale: strings.TrimSpace(c.Rationale),
			FitTier:   types.FitTier(strings.ToLower(strings.TrimSpace(string(c.FitTier)))),
		})
	}
	return Result{Artifact: artifact, StepsUsed: s.Used()}, nil
}

func marketQueries(in types.StageInput) []string {
	role := in.TargetRole
	if role == "" && len(in.Profile.PriorRoles) > 0 {
		role = in.Profile.PriorRoles[0]
	}
	tags := in.Profile.Tags
	if len(tags) > 3 {
		tags = tags[:3]
	}
	queries := []string{
		strings.TrimSpace(fmt.Sprintf("%s offer salary %s", role, strings.Join(tags, " "))),
	}
	if len(in.Profile.Skills) > 0 {
		queries = append(queries, fmt.Sprintf("%s hiring %s", role, in.Profile.Skills[0]))
	}
	return queries
}

func describeProfile(p *types.ResumeProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Skills: %s\n", strings.Join(p.Skills, ", "))
	fmt.Fprintf(&sb, "Years of experience: %g\n", p.YearsExperience)
	if len(p.PriorRoles) > 0 {
		fmt.Fprintf(&sb, "Prior roles: %s\n", strings.Join(p.PriorRoles, "; "))
	}
	if p.Education != "" {
		fmt.Fprintf(&sb, "Education: %s\n", p.Education)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&sb, "Background: %s\n", strings.Join(p.Tags, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
