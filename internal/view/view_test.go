package view

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

func scenarioRun(t *testing.T) *domain.Run {
	t.Helper()
	body := `{
		"run_id": "R1",
		"steps": ["Plan A"],
		"data": {"log": "ingested 500 rows"},
		"insights": "Retail sector elevated | Cluster 4 flagged",
		"decision": "Flag Cluster 4 for review",
		"debate": ["Data Scientist: scores proposed", "CDO: approved"]
	}`
	var res domain.Result
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	return &domain.Run{RunID: res.RunID, Result: res}
}

func TestStageOutputScenario(t *testing.T) {
	run := scenarioRun(t)

	assert.Equal(t, "Plan A", StageOutput(0, run))
	assert.Equal(t, "ingested 500 rows", StageOutput(1, run))
	assert.Equal(t, Placeholder, StageOutput(2, run), "cleaning_log absent")
	assert.Equal(t, "Retail sector elevated", StageOutput(3, run))
	assert.Equal(t, "Cluster 4 flagged", StageOutput(4, run))
	assert.Equal(t, "Flag Cluster 4 for review", StageOutput(5, run))
}

func TestStageOutputMissingData(t *testing.T) {
	for i := -1; i <= domain.StageCount; i++ {
		assert.Equal(t, Placeholder, StageOutput(i, nil))
		assert.Equal(t, Placeholder, StageOutput(i, &domain.Run{}))
	}

	single := &domain.Run{Result: domain.Result{Insights: "only one segment"}}
	assert.Equal(t, "only one segment", StageOutput(3, single))
	assert.Equal(t, Placeholder, StageOutput(4, single))
}

func TestStageOutputNonStringStep(t *testing.T) {
	run := &domain.Run{Result: domain.Result{Steps: []json.RawMessage{json.RawMessage(`{"plan": "A"}`)}}}
	assert.Equal(t, `{"plan": "A"}`, StageOutput(0, run))

	nullStep := &domain.Run{Result: domain.Result{Steps: []json.RawMessage{json.RawMessage(`null`)}}}
	assert.Equal(t, Placeholder, StageOutput(0, nullStep))
}

func TestStageOutputIsPure(t *testing.T) {
	run := scenarioRun(t)
	for i := 0; i < domain.StageCount; i++ {
		first := StageOutput(i, run)
		assert.Equal(t, first, StageOutput(i, run))
	}
	assert.Equal(t, "Retail sector elevated | Cluster 4 flagged", run.Result.Insights)
}

func TestWorkflowIdle(t *testing.T) {
	v := Workflow(state.New().Snapshot())

	assert.Equal(t, IdleRunID, v.RunID)
	assert.Equal(t, "Execute Strategy", v.ButtonText)
	require.Len(t, v.Stages, domain.StageCount)
	assert.True(t, v.Stages[0].Reached)
	assert.False(t, v.Stages[0].Active)
	assert.False(t, v.Stages[1].Reached)
	for _, st := range v.Stages {
		assert.Equal(t, Placeholder, st.Output)
	}
	assert.Empty(t, v.Debate)
}

func TestWorkflowInProgressAndDone(t *testing.T) {
	s := state.New()
	gen := s.BeginRun()
	s.AdvanceStep(gen)
	s.AdvanceStep(gen)

	v := Workflow(s.Snapshot())
	assert.True(t, v.Analyzing)
	assert.Equal(t, "Orchestrating Agents...", v.ButtonText)
	assert.True(t, v.Stages[2].Active)
	assert.True(t, v.Stages[2].Reached)
	assert.False(t, v.Stages[3].Reached)

	s.CompleteRun(gen, scenarioRun(t))
	v = Workflow(s.Snapshot())
	assert.Equal(t, "R1", v.RunID)
	assert.Equal(t, domain.FinalStep(), v.Step)
	for _, st := range v.Stages {
		assert.True(t, st.Reached)
		assert.False(t, st.Active)
	}
	require.Len(t, v.Debate, 2)
	assert.Equal(t, DebateEntry{Speaker: "Data Scientist", Avatar: "D", Message: "Data Scientist: scores proposed"}, v.Debate[0])
}

func TestReport(t *testing.T) {
	empty := Report(state.New().Snapshot(), "http://localhost:8000")
	assert.False(t, empty.Available)
	assert.Equal(t, ReportEmpty, empty.Empty)

	s := state.New()
	gen := s.BeginRun()
	run := scenarioRun(t)
	run.Result.ReportPath = `reports\summary_R1.pdf`
	run.Result.Data.Charts = []string{"charts/risk.png"}
	s.CompleteRun(gen, run)

	v := Report(s.Snapshot(), "http://localhost:8000/")
	assert.True(t, v.Available)
	assert.Equal(t, "http://localhost:8000/reports/summary_R1.pdf", v.ReportURL)
	assert.Equal(t, []string{"http://localhost:8000/charts/risk.png"}, v.Charts)
	assert.Equal(t, "Flag Cluster 4 for review", v.Decision)
}

func TestTrends(t *testing.T) {
	empty := Trends(nil)
	assert.Equal(t, 0, empty.FraudCases)
	assert.Empty(t, empty.Bars)
	assert.False(t, empty.DeltaUp)

	v := Trends([]domain.TrendPoint{
		{AvgRisk: 0.3, FraudCases: 2},
		{AvgRisk: 0.5, FraudCases: 7},
	})
	require.Len(t, v.Bars, 2)
	assert.InDelta(t, 72.0, v.Bars[0].HeightPx, 1e-9)
	assert.InDelta(t, 120.0, v.Bars[1].HeightPx, 1e-9)
	assert.InDelta(t, 0.3, v.Bars[0].Opacity, 1e-9)
	assert.InDelta(t, 0.8, v.Bars[1].Opacity, 1e-9)
	assert.Equal(t, 7, v.FraudCases)
	assert.True(t, v.DeltaUp)
}

func TestExplanationsClampAndOrder(t *testing.T) {
	cards := Explanations(map[string]domain.Explanation{
		"0.81": {PlainEnglish: "High risk flag", FeatureImportance: map[string]float64{
			"Total Assets":          -25.5,
			"Cross-Border Activity": 140,
		}},
		"0.12": {PlainEnglish: "Low risk profile"},
	})

	require.Len(t, cards, 2)
	assert.Equal(t, "0.12", cards[0].Key)
	assert.Equal(t, ConfidenceLabel, cards[1].Label)
	require.Len(t, cards[1].Features, 2)
	assert.Equal(t, FeatureBar{Feature: "Cross-Border Activity", Value: 140, Width: 100, Overflow: true}, cards[1].Features[0])
	assert.Equal(t, FeatureBar{Feature: "Total Assets", Value: -25.5, Width: 25.5}, cards[1].Features[1])
}

func TestGovernance(t *testing.T) {
	v := Governance(state.New().Snapshot(), nil)
	assert.Equal(t, "N/A", v.RunID)
	assert.Equal(t, GovernanceEmpty, v.Empty)
	assert.False(t, v.CanOverride)

	s := state.New()
	gen := s.BeginRun()
	s.CompleteRun(gen, scenarioRun(t))
	at := time.Date(2026, 2, 21, 14, 45, 0, 0, time.Local)
	journal := []domain.JournalEntry{
		{Kind: domain.JournalRunStarted, Ts: at.UnixMilli()},
		{Kind: domain.JournalRunCompleted, RunID: "R1", Ts: at.Add(5 * time.Minute).UnixMilli()},
	}

	v = Governance(s.Snapshot(), journal)
	assert.True(t, v.CanOverride)
	assert.Equal(t, []AuditRow{
		{Time: "2026-02-21 14:45", Label: "Run Start: N/A"},
		{Time: "2026-02-21 14:50", Label: "State Persisted: R1"},
	}, v.AuditTrail)
}

func TestSimulationHidesResultWithoutRun(t *testing.T) {
	s := state.New()
	gen := s.BeginRun()
	s.CompleteRun(gen, &domain.Run{RunID: "R1"})
	s.ApplySimulation(&domain.SimulationResult{RunID: "R1", Parameter: "Fraud Threshold"})

	v := Simulation(s.Snapshot())
	require.NotNil(t, v.Result)
	assert.True(t, v.CanProject)

	s.BeginRun()
	v = Simulation(s.Snapshot())
	assert.Nil(t, v.Result)
	assert.Equal(t, SimulationEmpty, v.Empty)
	assert.False(t, v.CanProject)
}

func TestHistory(t *testing.T) {
	assert.Equal(t, HistoryEmpty, History(nil).Empty)
	v := History([]domain.HistoryEntry{{RunID: "R1"}})
	assert.Empty(t, v.Empty)
	assert.Len(t, v.Rows, 1)
}
