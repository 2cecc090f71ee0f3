package types

import "time"

// StageSummary records how one stage concluded inside a run.
type StageSummary struct {
	Stage    StageID     `json:"stage"`
	Status   StageStatus `json:"status"`
	Attempts int         `json:"attempts"`
	Steps    int         `json:"steps"`
	// Degraded is set when the artifact used downstream was never accepted by the gate.
	Degraded bool        `json:"degraded"`
	Reasons  []Rejection `json:"reasons,omitempty"`
}

// RunMetadata describes how a run went.
type RunMetadata struct {
	RunID       string         `json:"run_id"`
	TargetRole  string         `json:"target_role"`
	Status      RunStatus      `json:"status"`
	AbortReason string         `json:"abort_reason,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	TotalSteps  int            `json:"total_steps"`
	Stages      []StageSummary `json:"stages"`
	// Conditions are run-level notes such as an unwritable cache file.
	Conditions []string `json:"conditions,omitempty"`
}

// DegradedStages returns the stages whose output was not validated.
func (m RunMetadata) DegradedStages() []StageID {
	var out []StageID
	for _, s := range m.Stages {
		if s.Degraded {
			out = append(out, s.Stage)
		}
	}
	return out
}

// IsDegraded reports whether the given stage was degraded.
func (m RunMetadata) IsDegraded(stage StageID) bool {
	for _, s := range m.Stages {
		if s.Stage == stage {
			return s.Degraded
		}
	}
	return false
}

// ReportRow pairs a candidate with its best-matching listing and the gaps relevant to it.
type ReportRow struct {
	Candidate CompanyCandidate `json:"candidate"`
	Listing   JobListing       `json:"listing"`
	Gaps      []SkillGap       `json:"gaps,omitempty"`
}

// Report is the final merged document of a run.
type Report struct {
	Profile    ResumeProfile      `json:"profile"`
	Candidates []CompanyCandidate `json:"candidates"`
	Rows       []ReportRow        `json:"rows"`
	Gaps       []SkillGap         `json:"gaps"`
	Metadata   RunMetadata        `json:"metadata"`
}
