package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Run is one completed invocation of the remote analysis pipeline.
type Run struct {
	RunID       string    `json:"run_id"`
	Query       string    `json:"query"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Result      Result    `json:"result"`
}

// Result is the document returned by POST /analyze. Every field is optional;
// a missing field renders as absent rather than failing the run.
type Result struct {
	RunID        string                 `json:"run_id"`
	Steps        []json.RawMessage      `json:"steps,omitempty"`
	Data         ResultData             `json:"data"`
	Insights     string                 `json:"insights,omitempty"`
	Decision     string                 `json:"decision,omitempty"`
	Debate       []string               `json:"debate,omitempty"`
	Explanations map[string]Explanation `json:"explanations,omitempty"`
	ReportPath   string                 `json:"report_path,omitempty"`
}

// ResultData holds the ingestion and cleaning sub-fields.
type ResultData struct {
	Log         string   `json:"log,omitempty"`
	CleaningLog string   `json:"cleaning_log,omitempty"`
	Charts      []string `json:"charts,omitempty"`
}

// Explanation is the explainability drill-down for one anomaly or score key.
type Explanation struct {
	PlainEnglish      string             `json:"plain_english"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	ConfidenceScore   *float64           `json:"confidence_score,omitempty"`
}

// Step returns the i-th step output as text. String entries are returned
// verbatim, anything else as compact JSON.
func (r *Result) Step(i int) string {
	if i < 0 || i >= len(r.Steps) {
		return ""
	}
	raw := r.Steps[i]
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// InsightSegment returns the i-th "|"-delimited segment of the insights,
// trimmed, or "" when absent.
func (r *Result) InsightSegment(i int) string {
	if r.Insights == "" {
		return ""
	}
	parts := strings.Split(r.Insights, "|")
	if i < 0 || i >= len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[i])
}

// HistoryEntry is an immutable snapshot of a past run.
type HistoryEntry struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
	Query     string `json:"query"`
	Decision  string `json:"decision"`
}

// TrendPoint is the aggregate risk figure of one historical run.
type TrendPoint struct {
	Timestamp  string  `json:"timestamp,omitempty"`
	AvgRisk    float64 `json:"avg_risk"`
	FraudCases int     `json:"fraud_cases"`
}

// SimulationResult is the projected impact of a what-if scenario.
type SimulationResult struct {
	RunID          string    `json:"run_id"`
	Parameter      string    `json:"parameter"`
	ValueBefore    float64   `json:"value_before"`
	ValueAfter     float64   `json:"value_after"`
	BusinessImpact string    `json:"business_impact"`
	CountBefore    *int      `json:"count_before,omitempty"`
	CountAfter     *int      `json:"count_after,omitempty"`
	Delta          *int      `json:"delta,omitempty"`
	VIPsAffected   *int      `json:"vips_affected,omitempty"`
	RequestedAt    time.Time `json:"requested_at"`
}

// Scenario is the what-if input chosen by the operator.
type Scenario struct {
	Type  ScenarioType `json:"type"`
	Value float64      `json:"value"`
}

// DefaultScenario is the scenario preselected in the simulation lab.
var DefaultScenario = Scenario{Type: ScenarioFraud, Value: 0.5}

// OverrideAck is the backend acknowledgement of an executive override.
type OverrideAck struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// ChatMessage is one line in the copilot conversation.
type ChatMessage struct {
	Role ChatRole  `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}
