package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)
	return engine
}

func TestEvaluateDefaultPolicy(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name       string
		input      Input
		allow      bool
		violations []string
	}{
		{
			name:  "simulation with run",
			input: Input{Action: ActionSimulate, RunID: "R1", ScenarioType: "fraud", Value: 0.5},
			allow: true,
		},
		{
			name:       "simulation without run",
			input:      Input{Action: ActionSimulate, ScenarioType: "risk", Value: 0.5},
			violations: []string{ViolationNoActiveRun},
		},
		{
			name:       "simulation with unknown type and bad value",
			input:      Input{Action: ActionSimulate, RunID: "R1", ScenarioType: "churn", Value: 2},
			violations: []string{ViolationUnsupportedType, ViolationValueOutOfRange},
		},
		{
			name:  "override with reason",
			input: Input{Action: ActionOverride, RunID: "R1", Reason: "board directive"},
			allow: true,
		},
		{
			name:       "override without reason or run",
			input:      Input{Action: ActionOverride},
			violations: []string{ViolationNoActiveRun, ViolationReasonRequired},
		},
		{
			name:       "unknown action",
			input:      Input{Action: "delete", RunID: "R1"},
			violations: []string{ViolationUnknownAction},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := engine.Evaluate(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.allow, d.Allow)
			assert.ElementsMatch(t, tt.violations, d.Violations)
		})
	}
}

func TestEvaluateSliderBounds(t *testing.T) {
	engine := newTestEngine(t)
	for _, v := range []float64{0.1, 0.45, 0.9} {
		d, err := engine.Evaluate(context.Background(), Input{Action: ActionSimulate, RunID: "R1", ScenarioType: "risk", Value: v})
		require.NoError(t, err)
		assert.True(t, d.Allow, "value %v", v)
	}
	d, err := engine.Evaluate(context.Background(), Input{Action: ActionSimulate, RunID: "R1", ScenarioType: "risk", Value: 0.05})
	require.NoError(t, err)
	assert.True(t, d.Has(ViolationValueOutOfRange))
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package nexus.gate\nallow if {")
	assert.Error(t, err)
}
