package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-agent/internal/types"
)

func TestSession_EnforcesCapabilities(t *testing.T) {
	s := NewSession(types.StageMarketAnalyst, 5, nil)

	called := false
	err := s.Call(context.Background(), ToolCacheWrite, func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotAllowed)
	assert.False(t, called)
	assert.Equal(t, 0, s.Used())
}

func TestSession_EnforcesBudget(t *testing.T) {
	s := NewSession(types.StageGapCoach, 2, nil)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Call(context.Background(), ToolCodeSearch, noop))
	require.NoError(t, s.Call(context.Background(), ToolGenerate, noop))
	assert.Equal(t, 0, s.Remaining())

	err := s.Call(context.Background(), ToolGenerate, noop)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, 2, s.Used())
	assert.Equal(t, 1, s.Calls(ToolCodeSearch))
	assert.Equal(t, 1, s.Calls(ToolGenerate))
}

func TestSession_FailedCallStillCostsAStep(t *testing.T) {
	s := NewSession(types.StageListingFinder, 3, nil)
	boom := errors.New("boom")

	err := s.Call(context.Background(), ToolListingSearch, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Used())
}

func TestCapabilities_ClosedPerStage(t *testing.T) {
	assert.True(t, Allowed(types.StageListingFinder, ToolCacheWrite))
	assert.False(t, Allowed(types.StageMarketAnalyst, ToolCacheRead))
	assert.False(t, Allowed(types.StageGapCoach, ToolListingSearch))
	assert.False(t, Allowed(types.StageGapCoach, ToolCacheWrite))
	assert.False(t, Allowed("unknown", ToolGenerate))
}

func TestExecutionFailure_Rejection(t *testing.T) {
	s := NewSession(types.StageListingFinder, 1, nil)
	f := fail(s, "resolving Grab", ErrBudgetExhausted)

	assert.True(t, f.BudgetExhausted())
	assert.Equal(t, types.ReasonBudgetExhausted, f.Rejection().Code)
	assert.Contains(t, f.Error(), "Listing-Finder")

	other := fail(s, "x", errors.New("boom"))
	assert.Equal(t, types.ReasonExecutionFailed, other.Rejection().Code)
}

func TestFormatFeedback(t *testing.T) {
	got := FormatFeedback([]types.Rejection{
		{Code: types.ReasonMissingLocation, Field: "listings[0].location", Details: "no location"},
		{Code: types.ReasonBudgetExhausted, Details: "ran out"},
	})
	assert.Equal(t, "- [missing_location] listings[0].location: no location\n- [budget_exhausted]: ran out", got)
}
