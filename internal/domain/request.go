package domain

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Query string `json:"query"`
}

// SimulateRequest is the body of POST /simulate.
type SimulateRequest struct {
	RunID string       `json:"run_id"`
	Type  ScenarioType `json:"type"`
	Value float64      `json:"value"`
}

// OverrideRequest is the body of POST /override.
type OverrideRequest struct {
	RunID      string `json:"run_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	NewValue   string `json:"new_value"`
	Reason     string `json:"reason"`
}

// NewOverrideRequest builds the fixed-shape global override for a run.
func NewOverrideRequest(runID, reason string) OverrideRequest {
	return OverrideRequest{
		RunID:      runID,
		TargetType: OverrideTargetType,
		TargetID:   OverrideTargetID,
		NewValue:   OverrideNewValue,
		Reason:     reason,
	}
}

// BackendEvent is a message broadcast on the backend /ws channel.
type BackendEvent struct {
	Type   string  `json:"type"`
	RunID  string  `json:"run_id"`
	Query  string  `json:"query,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// Backend event types.
const (
	BackendEventRunStart    = "run_start"
	BackendEventRunComplete = "run_complete"
)
