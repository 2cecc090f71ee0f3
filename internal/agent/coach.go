package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/gate"
	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/prompts"
	"github.com/jonathan/career-agent/internal/schemas"
	"github.com/jonathan/career-agent/internal/search"
	"github.com/jonathan/career-agent/internal/skills"
	"github.com/jonathan/career-agent/internal/types"
)

// maxGapSkills bounds how many missing skills are coached per run.
const maxGapSkills = 6

// GapCoach matches missing skills to concrete code repositories.
type GapCoach struct {
	deps Deps
	log  *zap.Logger
}

// NewGapCoach creates the Gap-Coach worker.
func NewGapCoach(d Deps) *GapCoach {
	return &GapCoach{deps: d, log: d.logger().Named("gap_coach")}
}

// Stage implements Worker.
func (w *GapCoach) Stage() types.StageID { return types.StageGapCoach }

type coachingResponse struct {
	Gaps []types.SkillGap `json:"gaps"`
}

// Execute implements Worker.
func (w *GapCoach) Execute(ctx context.Context, in types.StageInput, budget int) (Result, error) {
	s := NewSession(w.Stage(), budget, w.log)
	if in.Profile == nil {
		return Result{}, fail(s, "missing resume profile", nil)
	}

	required := skills.Names(skills.Required(in.Listings))
	analysis := &types.GapAnalysis{
		ResumeSkills:   append([]string(nil), in.Profile.Skills...),
		RequiredSkills: required,
	}
	res := Result{Artifact: analysis}

	missing := skills.Missing(in.Profile.Skills, required)
	if len(missing) > maxGapSkills {
		missing = missing[:maxGapSkills]
	}
	if len(missing) == 0 {
		return res, nil
	}

	resources := make(map[string][]search.Snippet)
	var searched []string
	for _, skill := range missing {
		// One step stays reserved for generation.
		if s.Remaining() <= 1 {
			w.log.Debug("no budget left to search", zap.String("skill", skill))
			break
		}
		found, err := w.findRepos(ctx, s, skill)
		if err != nil {
			res.StepsUsed = s.Used()
			return res, fail(s, "code search", err)
		}
		searched = append(searched, skill)
		resources[skill] = found
	}

	var offered []string
	for _, skill := range searched {
		if len(resources[skill]) > 0 {
			offered = append(offered, skill)
		}
	}

	var chosen []types.SkillGap
	if len(offered) > 0 {
		prompt := prompts.Format(prompts.Agent(prompts.KeyCoachGaps), map[string]string{
			"TargetRole":   in.TargetRole,
			"ResumeSkills": strings.Join(in.Profile.Skills, ", "),
			"Resources":    resourceBlock(offered, resources),
		})
		prompt = withFeedback(prompt, in.Feedback)

		var resp coachingResponse
		err := generate(ctx, s, w.deps.LLM, llm.TierAdvanced, prompt, schemas.Coaching, &resp)
		switch {
		case err == nil:
			chosen = resp.Gaps
		case errors.Is(err, ErrBudgetExhausted):
			analysis.Gaps = assembleGaps(searched, resources, nil)
			res.StepsUsed = s.Used()
			return res, fail(s, "coaching generation", err)
		default:
			w.log.Warn("coaching generation failed, using top repositories", zap.Error(err))
		}
	}

	analysis.Gaps = assembleGaps(searched, resources, chosen)
	res.StepsUsed = s.Used()
	return res, nil
}

// findRepos runs the code search for a skill with one fallback query.
func (w *GapCoach) findRepos(ctx context.Context, s *Session, skill string) ([]search.Snippet, error) {
	queries := []string{skill + " tutorial", "awesome " + skill}
	var lastErr error
	for i, q := range queries {
		if i > 0 && s.Remaining() <= 1 {
			break
		}
		var snippets []search.Snippet
		err := s.Call(ctx, ToolCodeSearch, func(ctx context.Context) error {
			var qerr error
			snippets, qerr = w.deps.code().Query(ctx, q)
			return qerr
		})
		if err != nil {
			if !errors.Is(err, search.ErrLookupUnavailable) {
				return nil, err
			}
			lastErr = err
			continue
		}
		repos := repoSnippets(snippets)
		if len(repos) > 0 {
			return repos, nil
		}
	}
	if lastErr != nil {
		w.log.Warn("code search unavailable", zap.String("skill", skill), zap.Error(lastErr))
	}
	return nil, nil
}

func repoSnippets(snippets []search.Snippet) []search.Snippet {
	var out []search.Snippet
	for _, sn := range snippets {
		if gate.ConcreteResource(sn.Title) {
			out = append(out, sn)
		}
	}
	return out
}

func resourceBlock(skillsList []string, resources map[string][]search.Snippet) string {
	var sb strings.Builder
	for _, skill := range skillsList {
		fmt.Fprintf(&sb, "%s:\n", skill)
		for _, r := range resources[skill] {
			fmt.Fprintf(&sb, "  - %s: %s\n", r.Title, r.Text)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// assembleGaps produces one gap per searched skill, in order. Generated choices win;
// skills the generator skipped get their top repository; skills with no repository
// are surfaced with an empty resource.
func assembleGaps(searched []string, resources map[string][]search.Snippet, chosen []types.SkillGap) []types.SkillGap {
	byKey := make(map[string]types.SkillGap)
	for _, g := range chosen {
		k := skills.Key(g.Skill)
		if _, dup := byKey[k]; !dup && k != "" {
			byKey[k] = g
		}
	}

	gaps := make([]types.SkillGap, 0, len(searched))
	for _, skill := range searched {
		if g, ok := byKey[skills.Key(skill)]; ok && strings.TrimSpace(g.Resource) != "" {
			g.Skill = skill
			g.Resource = strings.TrimSpace(g.Resource)
			if g.ResourceURL == "" && gate.ConcreteResource(g.Resource) && !strings.HasPrefix(g.Resource, "http") {
				g.ResourceURL = "https://github.com/" + g.Resource
			}
			gaps = append(gaps, g)
			continue
		}
		if repos := resources[skill]; len(repos) > 0 {
			gaps = append(gaps, types.SkillGap{
				Skill:         skill,
				Resource:      repos[0].Title,
				ResourceURL:   repos[0].URL,
				Justification: fmt.Sprintf("Most-starred repository matching %s.", skill),
			})
			continue
		}
		gaps = append(gaps, types.SkillGap{
			Skill:         skill,
			Justification: "code search unavailable; no repository found",
		})
	}
	return gaps
}
