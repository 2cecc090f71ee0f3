// Package types provides type definitions for structured data used throughout the career-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// StageID identifies one phase of the career-planning pipeline.
type StageID string

// Stage identifiers, in execution order.
const (
	StageMarketAnalyst StageID = "market_analyst"
	StageListingFinder StageID = "listing_finder"
	StageGapCoach      StageID = "gap_coach"
)

// StageOrder is the strict sequential order in which stages run.
var StageOrder = []StageID{StageMarketAnalyst, StageListingFinder, StageGapCoach}

// DisplayName returns the human-facing stage name used in reports and logs.
func (s StageID) DisplayName() string {
	switch s {
	case StageMarketAnalyst:
		return "Market-Analyst"
	case StageListingFinder:
		return "Listing-Finder"
	case StageGapCoach:
		return "Gap-Coach"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known stages.
func (s StageID) Valid() bool {
	for _, id := range StageOrder {
		if id == s {
			return true
		}
	}
	return false
}

// StageStatus is the lifecycle state of a stage inside one run.
type StageStatus string

// Stage lifecycle states.
const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageRetrying  StageStatus = "retrying"
	StageAccepted  StageStatus = "accepted"
	StageFailed    StageStatus = "failed"
	StageTruncated StageStatus = "truncated"
)

// Terminal reports whether no further transitions are possible from this state.
func (s StageStatus) Terminal() bool {
	return s == StageAccepted || s == StageFailed || s == StageTruncated
}

// RunStatus is the completion state of a whole run.
type RunStatus string

// Run completion states.
const (
	RunCompleted                RunStatus = "completed"
	RunCompletedWithDegradation RunStatus = "completed_with_degradation"
	RunAborted                  RunStatus = "aborted"
)

// Rejection codes produced by the quality gate and the retry loop.
const (
	ReasonCandidateCount    = "candidate_count"
	ReasonMissingCompany    = "missing_company"
	ReasonMissingRationale  = "missing_rationale"
	ReasonInvalidFitTier    = "invalid_fit_tier"
	ReasonNotRanked         = "not_ranked"
	ReasonDuplicateCompany  = "duplicate_company"
	ReasonMissingLocation   = "missing_location"
	ReasonTooManyCompanies  = "too_many_companies"
	ReasonMalformedSalary   = "malformed_salary"
	ReasonMissingResource   = "missing_resource"
	ReasonGenericResource   = "generic_resource"
	ReasonGenericAdvice     = "generic_advice"
	ReasonMissingGaps       = "missing_gaps"
	ReasonMissingSkill      = "missing_skill"
	ReasonBudgetExhausted   = "budget_exhausted"
	ReasonExecutionFailed   = "execution_failed"
	ReasonNoArtifact        = "no_artifact"
	ReasonWrongArtifactType = "wrong_artifact_type"
)

// Rejection is a machine-readable reason why a stage attempt was not accepted.
// It is fed back to the worker on the next attempt.
type Rejection struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	// Subject names the company a listing rejection concerns.
	Subject string `json:"subject,omitempty"`
	Details string `json:"details"`
}

// Verdict is the outcome of a quality-gate evaluation.
type Verdict struct {
	Pass    bool        `json:"pass"`
	Reasons []Rejection `json:"reasons,omitempty"`
}

// Artifact is the typed structured output of a stage.
type Artifact interface {
	ArtifactStage() StageID
}

// StageAttempt records one worker invocation and how the gate judged it.
type StageAttempt struct {
	Stage     StageID  `json:"stage"`
	Attempt   int      `json:"attempt"`
	StepsUsed int      `json:"steps_used"`
	Artifact  Artifact `json:"artifact,omitempty"`
	Verdict   Verdict  `json:"verdict"`
	Error     string   `json:"error,omitempty"`
}
