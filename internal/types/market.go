package types

import "strings"

// FitTier is the estimated fit of a company for the candidate.
type FitTier string

// Fit tiers, best first.
const (
	FitStrong   FitTier = "strong"
	FitModerate FitTier = "moderate"
	FitStretch  FitTier = "stretch"
)

// Rank returns the ordinal of the tier (lower is better), or -1 for an unknown tier.
func (t FitTier) Rank() int {
	switch FitTier(strings.ToLower(strings.TrimSpace(string(t)))) {
	case FitStrong:
		return 0
	case FitModerate:
		return 1
	case FitStretch:
		return 2
	default:
		return -1
	}
}

// CompanyCandidate is a target company recommended by the Market-Analyst.
type CompanyCandidate struct {
	Company   string  `json:"company"`
	Rationale string  `json:"rationale"`
	FitTier   FitTier `json:"fit_tier"`
}

// MarketProfile is the Market-Analyst artifact: candidates in rank order, best fit first.
type MarketProfile struct {
	Candidates []CompanyCandidate `json:"candidates"`
	// Evidence lists the market snippets the ranking was based on.
	Evidence []string `json:"evidence,omitempty"`
	// EvidenceUnavailable is set when market search failed and the ranking used the profile only.
	EvidenceUnavailable bool `json:"evidence_unavailable,omitempty"`
}

// ArtifactStage implements Artifact.
func (m *MarketProfile) ArtifactStage() StageID { return StageMarketAnalyst }

// Clone returns a deep copy.
func (m *MarketProfile) Clone() *MarketProfile {
	if m == nil {
		return nil
	}
	out := *m
	out.Candidates = append([]CompanyCandidate(nil), m.Candidates...)
	out.Evidence = append([]string(nil), m.Evidence...)
	return &out
}

// Top returns at most n candidates from the head of the ranking.
func (m *MarketProfile) Top(n int) []CompanyCandidate {
	if m == nil {
		return nil
	}
	if n < 0 || n > len(m.Candidates) {
		n = len(m.Candidates)
	}
	return append([]CompanyCandidate(nil), m.Candidates[:n]...)
}
