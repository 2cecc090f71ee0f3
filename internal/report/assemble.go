package report

import (
	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/skills"
	"github.com/jonathan/career-agent/internal/types"
)

// Assemble merges the stage outputs into a report. There is one row per candidate,
// paired with the listing whose requirements overlap the resume skills the most;
// each row carries only the gaps relevant to its listing.
func Assemble(profile *types.ResumeProfile, candidates []types.CompanyCandidate, listings []types.JobListing, gaps []types.SkillGap, meta types.RunMetadata) *types.Report {
	rep := &types.Report{
		Candidates: append([]types.CompanyCandidate(nil), candidates...),
		Gaps:       append([]types.SkillGap(nil), gaps...),
		Metadata:   meta,
	}
	rep.Metadata.Stages = append([]types.StageSummary(nil), meta.Stages...)
	rep.Metadata.Conditions = append([]string(nil), meta.Conditions...)

	var resumeSkills []string
	if profile != nil {
		rep.Profile = *profile.Clone()
		resumeSkills = profile.Skills
	}

	byCompany := make(map[string][]types.JobListing)
	for _, l := range listings {
		key := cache.NormalizeCompany(l.Company)
		byCompany[key] = append(byCompany[key], l)
	}

	for _, c := range candidates {
		best, ok := bestListing(byCompany[cache.NormalizeCompany(c.Company)], resumeSkills)
		if !ok {
			best = types.JobListing{Company: c.Company, Source: types.SourceUnavailable}
		}
		row := types.ReportRow{Candidate: c, Listing: best.Clone()}
		for _, g := range gaps {
			if skills.Relevant(g.Skill, best.Requirements) {
				row.Gaps = append(row.Gaps, g)
			}
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep
}

// bestListing picks the listing with the most requirements the resume already covers.
// Resolved listings beat unavailable ones; ties keep the earlier listing.
func bestListing(candidates []types.JobListing, resumeSkills []string) (types.JobListing, bool) {
	if len(candidates) == 0 {
		return types.JobListing{}, false
	}
	have := make(map[string]bool, len(resumeSkills))
	for _, s := range resumeSkills {
		have[skills.Key(s)] = true
	}

	bestIdx, bestScore := -1, -1
	for i, l := range candidates {
		score := 0
		for _, req := range l.Requirements {
			if have[skills.Key(req)] {
				score++
			}
		}
		if l.Source != types.SourceUnavailable {
			// Outranks any overlap an unavailable placeholder could have.
			score += len(resumeSkills) + 1
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	return candidates[bestIdx], true
}

// Unattached returns the gaps that no row's listing requires.
func Unattached(rep *types.Report) []types.SkillGap {
	attached := make(map[string]bool)
	for _, row := range rep.Rows {
		for _, g := range row.Gaps {
			attached[skills.Key(g.Skill)] = true
		}
	}
	var out []types.SkillGap
	for _, g := range rep.Gaps {
		if !attached[skills.Key(g.Skill)] {
			out = append(out, g)
		}
	}
	return out
}
