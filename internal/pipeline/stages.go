package pipeline

import (
	"fmt"

	"github.com/jonathan/career-agent/internal/types"
)

// StageDefinition defines metadata for a pipeline stage
type StageDefinition struct {
	ID types.StageID
	// Dependencies must have produced an artifact, accepted or degraded, before the stage runs.
	Dependencies []types.StageID
}

// StageRegistry holds all stage definitions
var StageRegistry = map[types.StageID]StageDefinition{
	types.StageMarketAnalyst: {
		ID: types.StageMarketAnalyst,
	},
	types.StageListingFinder: {
		ID:           types.StageListingFinder,
		Dependencies: []types.StageID{types.StageMarketAnalyst},
	},
	types.StageGapCoach: {
		ID:           types.StageGapCoach,
		Dependencies: []types.StageID{types.StageListingFinder},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Stage               types.StageID
	MissingDependencies []types.StageID
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s is missing dependencies: %v", e.Stage.DisplayName(), e.MissingDependencies)
}

// TransitionError is returned for a state change the stage lifecycle does not allow.
type TransitionError struct {
	Stage types.StageID
	From  types.StageStatus
	To    types.StageStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.Stage, e.From, e.To)
}

var transitions = map[types.StageStatus][]types.StageStatus{
	types.StagePending:  {types.StageRunning, types.StageTruncated},
	types.StageRunning:  {types.StageAccepted, types.StageRetrying, types.StageFailed},
	types.StageRetrying: {types.StageRunning, types.StageFailed},
}

// stageMachine tracks the lifecycle of every stage in one run.
type stageMachine struct {
	status   map[types.StageID]types.StageStatus
	produced map[types.StageID]bool
}

func newStageMachine() *stageMachine {
	m := &stageMachine{
		status:   make(map[types.StageID]types.StageStatus, len(types.StageOrder)),
		produced: make(map[types.StageID]bool, len(types.StageOrder)),
	}
	for _, id := range types.StageOrder {
		m.status[id] = types.StagePending
	}
	return m
}

func (m *stageMachine) Status(stage types.StageID) types.StageStatus {
	return m.status[stage]
}

func (m *stageMachine) To(stage types.StageID, next types.StageStatus) error {
	from := m.status[stage]
	for _, allowed := range transitions[from] {
		if allowed == next {
			m.status[stage] = next
			return nil
		}
	}
	return &TransitionError{Stage: stage, From: from, To: next}
}

// MarkProduced records that the stage left an artifact for its dependents.
func (m *stageMachine) MarkProduced(stage types.StageID) {
	m.produced[stage] = true
}

// ValidateDependencies checks that every dependency of stage has concluded with an artifact.
func (m *stageMachine) ValidateDependencies(stage types.StageID) error {
	def, ok := StageRegistry[stage]
	if !ok {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	var missing []types.StageID
	for _, dep := range def.Dependencies {
		if !m.status[dep].Terminal() || !m.produced[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Stage: stage, MissingDependencies: missing}
	}
	return nil
}
