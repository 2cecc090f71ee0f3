package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/career-agent/internal/types"
)

// Run status values stored before a run concludes. Finished runs store a types.RunStatus.
const RunStatusRunning = "running"

// Run represents an archived career-planning run
type Run struct {
	ID          uuid.UUID  `json:"id"`
	TargetRole  string     `json:"target_role"`
	Status      string     `json:"status"`
	AbortReason string     `json:"abort_reason,omitempty"`
	TotalSteps  int        `json:"total_steps"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Attempt represents one archived worker invocation
type Attempt struct {
	RunID     uuid.UUID         `json:"run_id"`
	Stage     types.StageID     `json:"stage"`
	Attempt   int               `json:"attempt"`
	StepsUsed int               `json:"steps_used"`
	Passed    bool              `json:"passed"`
	Reasons   []types.Rejection `json:"reasons,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Status string
	Limit  int
}
