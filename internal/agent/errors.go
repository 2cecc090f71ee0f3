package agent

import (
	"errors"
	"fmt"

	"github.com/jonathan/career-agent/internal/types"
)

// ErrBudgetExhausted is returned when a worker has used every step it was given.
var ErrBudgetExhausted = errors.New("step budget exhausted")

// ErrToolNotAllowed is returned when a worker calls a tool outside its capability set.
var ErrToolNotAllowed = errors.New("tool not allowed for stage")

// ExecutionFailure is the error a worker returns when it could not finish its artifact.
// The Result returned alongside it may still carry a partial artifact.
type ExecutionFailure struct {
	Stage     types.StageID
	StepsUsed int
	Message   string
	Cause     error
}

func (e *ExecutionFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s execution failed after %d steps: %s: %v", e.Stage.DisplayName(), e.StepsUsed, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s execution failed after %d steps: %s", e.Stage.DisplayName(), e.StepsUsed, e.Message)
}

func (e *ExecutionFailure) Unwrap() error {
	return e.Cause
}

// BudgetExhausted reports whether the failure was caused by running out of steps.
func (e *ExecutionFailure) BudgetExhausted() bool {
	return errors.Is(e.Cause, ErrBudgetExhausted)
}

// Rejection converts the failure into feedback for the next attempt.
func (e *ExecutionFailure) Rejection() types.Rejection {
	code := types.ReasonExecutionFailed
	if e.BudgetExhausted() {
		code = types.ReasonBudgetExhausted
	}
	return types.Rejection{Code: code, Details: e.Error()}
}

func fail(s *Session, message string, cause error) *ExecutionFailure {
	return &ExecutionFailure{
		Stage:     s.Stage(),
		StepsUsed: s.Used(),
		Message:   message,
		Cause:     cause,
	}
}
