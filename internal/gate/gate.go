// Package gate holds the deterministic quality rules each stage artifact must pass
// before the orchestrator forwards it downstream.
package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/skills"
	"github.com/jonathan/career-agent/internal/types"
)

// Candidate count bounds for a market profile.
const (
	MinCandidates = 3
	MaxCandidates = 5
)

// placeholderLocations are values that do not name a place.
var placeholderLocations = map[string]bool{
	"tbd":     true,
	"tba":     true,
	"待定":      true,
	"n/a":     true,
	"na":      true,
	"unknown": true,
	"none":    true,
	"null":    true,
	"-":       true,
}

var (
	repoRefRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})/[A-Za-z0-9._-]{1,100}$`)
	repoURLRe = regexp.MustCompile(`^https?://(?:www\.)?github\.com/[A-Za-z0-9-]{1,39}/[A-Za-z0-9._-]{1,100}/?$`)
)

// Gate evaluates stage artifacts. It holds no mutable state, so the same artifact
// always yields the same verdict.
type Gate struct {
	maxCompanies int
}

// New creates a gate that enforces the given company cap on the Listing-Finder.
func New(maxCompanies int) *Gate {
	return &Gate{maxCompanies: maxCompanies}
}

// Validate judges an artifact produced for stage.
func (g *Gate) Validate(stage types.StageID, artifact types.Artifact) types.Verdict {
	if artifact == nil {
		return reject(types.Rejection{Code: types.ReasonNoArtifact, Details: "stage produced no artifact"})
	}
	if artifact.ArtifactStage() != stage {
		return reject(types.Rejection{
			Code:    types.ReasonWrongArtifactType,
			Details: fmt.Sprintf("expected %s artifact, got %s", stage, artifact.ArtifactStage()),
		})
	}

	var reasons []types.Rejection
	switch a := artifact.(type) {
	case *types.MarketProfile:
		reasons = g.market(a)
	case *types.ListingSet:
		reasons = g.listings(a)
	case *types.GapAnalysis:
		reasons = g.gaps(a)
	default:
		reasons = []types.Rejection{{Code: types.ReasonWrongArtifactType, Details: fmt.Sprintf("unsupported artifact %T", artifact)}}
	}
	if len(reasons) > 0 {
		return reject(reasons...)
	}
	return types.Verdict{Pass: true}
}

func reject(reasons ...types.Rejection) types.Verdict {
	return types.Verdict{Pass: false, Reasons: reasons}
}

func (g *Gate) market(m *types.MarketProfile) []types.Rejection {
	var out []types.Rejection
	if n := len(m.Candidates); n < MinCandidates || n > MaxCandidates {
		out = append(out, types.Rejection{
			Code:    types.ReasonCandidateCount,
			Field:   "candidates",
			Details: fmt.Sprintf("got %d candidates, need between %d and %d", n, MinCandidates, MaxCandidates),
		})
	}

	seen := make(map[string]int)
	prevRank, prevIdx := -1, -1
	for i, c := range m.Candidates {
		field := fmt.Sprintf("candidates[%d]", i)
		if strings.TrimSpace(c.Company) == "" {
			out = append(out, types.Rejection{Code: types.ReasonMissingCompany, Field: field + ".company", Details: "company name is empty"})
		} else {
			key := cache.NormalizeCompany(c.Company)
			if j, dup := seen[key]; dup {
				out = append(out, types.Rejection{
					Code:    types.ReasonDuplicateCompany,
					Field:   field + ".company",
					Details: fmt.Sprintf("%q repeats candidates[%d]", c.Company, j),
				})
			} else {
				seen[key] = i
			}
		}
		if strings.TrimSpace(c.Rationale) == "" {
			out = append(out, types.Rejection{Code: types.ReasonMissingRationale, Field: field + ".rationale", Details: fmt.Sprintf("%q has no rationale", c.Company)})
		}

		rank := c.FitTier.Rank()
		if rank < 0 {
			out = append(out, types.Rejection{
				Code:    types.ReasonInvalidFitTier,
				Field:   field + ".fit_tier",
				Details: fmt.Sprintf("fit tier %q is not one of strong, moderate, stretch", c.FitTier),
			})
			continue
		}
		if prevIdx >= 0 && rank < prevRank {
			out = append(out, types.Rejection{
				Code:    types.ReasonNotRanked,
				Field:   field + ".fit_tier",
				Details: fmt.Sprintf("%q (%s) is ranked below candidates[%d] with a weaker tier", c.Company, c.FitTier, prevIdx),
			})
		}
		prevRank, prevIdx = rank, i
	}
	return out
}

func (g *Gate) listings(s *types.ListingSet) []types.Rejection {
	var out []types.Rejection

	companies := make(map[string]bool)
	for _, c := range s.CompaniesSearched {
		companies[cache.NormalizeCompany(c)] = true
	}
	for _, l := range s.Listings {
		companies[cache.NormalizeCompany(l.Company)] = true
	}
	if g.maxCompanies > 0 && len(companies) > g.maxCompanies {
		out = append(out, types.Rejection{
			Code:    types.ReasonTooManyCompanies,
			Field:   "companies_searched",
			Details: fmt.Sprintf("searched %d companies, cap is %d", len(companies), g.maxCompanies),
		})
	}

	for i, l := range s.Listings {
		out = append(out, ListingProblems(fmt.Sprintf("listings[%d]", i), l)...)
	}
	return out
}

// ListingProblems applies the rules every single listing must meet. Rejections name
// the listing's company as their subject so a retry can target it.
func ListingProblems(field string, l types.JobListing) []types.Rejection {
	var out []types.Rejection
	if !ValidLocation(l.Location) {
		out = append(out, types.Rejection{
			Code:    types.ReasonMissingLocation,
			Field:   field + ".location",
			Subject: l.Company,
			Details: fmt.Sprintf("%s listing %q has no usable location (%q)", l.Company, l.RoleTitle, l.Location),
		})
	}
	if l.Salary != nil {
		if _, err := ParseSalary(*l.Salary); err != nil {
			out = append(out, types.Rejection{
				Code:    types.ReasonMalformedSalary,
				Field:   field + ".salary",
				Subject: l.Company,
				Details: err.Error(),
			})
		}
	}
	return out
}

// Usable reports whether a listing passes the per-listing rules.
func Usable(l types.JobListing) bool {
	return len(ListingProblems("", l)) == 0
}

func (g *Gate) gaps(a *types.GapAnalysis) []types.Rejection {
	var out []types.Rejection

	missing := skills.Missing(a.ResumeSkills, a.RequiredSkills)
	if len(a.Gaps) == 0 && len(missing) > 0 {
		out = append(out, types.Rejection{
			Code:    types.ReasonMissingGaps,
			Field:   "gaps",
			Details: fmt.Sprintf("listings require skills absent from the resume: %s", strings.Join(missing, ", ")),
		})
	}

	for i, gap := range a.Gaps {
		field := fmt.Sprintf("gaps[%d]", i)
		if strings.TrimSpace(gap.Skill) == "" {
			out = append(out, types.Rejection{Code: types.ReasonMissingSkill, Field: field + ".skill", Details: "gap names no skill"})
		}
		if found := GenericAdvice(gap.Justification); len(found) > 0 {
			out = append(out, types.Rejection{
				Code:    types.ReasonGenericAdvice,
				Field:   field + ".justification",
				Details: fmt.Sprintf("justification for %q is boilerplate (%s); tie it to the listings", gap.Skill, strings.Join(found, ", ")),
			})
		}
		switch {
		case strings.TrimSpace(gap.Resource) == "":
			out = append(out, types.Rejection{
				Code:    types.ReasonMissingResource,
				Field:   field + ".resource",
				Details: fmt.Sprintf("gap %q has no learning resource", gap.Skill),
			})
		case !ConcreteResource(gap.Resource):
			out = append(out, types.Rejection{
				Code:    types.ReasonGenericResource,
				Field:   field + ".resource",
				Details: fmt.Sprintf("resource %q for %q is not a repository reference (owner/repo)", gap.Resource, gap.Skill),
			})
		}
	}
	return out
}

// genericAdvicePhrases mark coaching text that would fit any skill.
var genericAdvicePhrases = []string{
	"keep learning",
	"practice makes perfect",
	"stay curious",
	"never stop learning",
	"learn the basics",
	"improve your skills",
	"read the documentation",
	"watch tutorials",
	"take an online course",
	"it is important to",
}

// GenericAdvice returns the boilerplate phrases found in text, matched case-insensitively, each once.
func GenericAdvice(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, phrase := range genericAdvicePhrases {
		if strings.Contains(lower, phrase) {
			found = append(found, phrase)
		}
	}
	return found
}

// ValidLocation reports whether loc names a place.
func ValidLocation(loc string) bool {
	trimmed := strings.TrimSpace(loc)
	return trimmed != "" && !placeholderLocations[strings.ToLower(trimmed)]
}

// ConcreteResource reports whether ref is an owner/repo identifier or a repository URL.
func ConcreteResource(ref string) bool {
	ref = strings.TrimSpace(ref)
	return repoRefRe.MatchString(ref) || repoURLRe.MatchString(ref)
}
