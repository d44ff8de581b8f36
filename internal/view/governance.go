package view

import (
	"math"
	"sort"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

const (
	// ConfidenceLabel is the fixed confidence caption on each explanation.
	ConfidenceLabel = "Insight Confidence: 92%"
	// GovernanceEmpty is shown when the run has no explanations.
	GovernanceEmpty = "Execute strategy to view model traceability."
	maxBarWidth     = 100.0
)

// GovernanceView is the governance and compliance tab.
type GovernanceView struct {
	RunID        string            `json:"run_id"`
	Explanations []ExplanationCard `json:"explanations"`
	Empty        string            `json:"empty,omitempty"`
	AuditTrail   []AuditRow        `json:"audit_trail"`
	CanOverride  bool              `json:"can_override"`
	// OverridesLogged is the number of overrides persisted by this console.
	OverridesLogged int `json:"overrides_logged"`
}

// ExplanationCard renders one explanations entry.
type ExplanationCard struct {
	Key             string       `json:"key"`
	Label           string       `json:"label"`
	PlainEnglish    string       `json:"plain_english"`
	ConfidenceScore *float64     `json:"confidence_score,omitempty"`
	Features        []FeatureBar `json:"features"`
}

// FeatureBar is one feature-importance bar. Width is |Value| clamped to
// [0, 100]; Overflow records that clamping happened.
type FeatureBar struct {
	Feature  string  `json:"feature"`
	Value    float64 `json:"value"`
	Width    float64 `json:"width"`
	Overflow bool    `json:"overflow,omitempty"`
}

// AuditRow is one line of the audit trail.
type AuditRow struct {
	Time  string `json:"time"`
	Label string `json:"label"`
}

// Governance builds the governance tab from the state and recent local
// journal entries.
func Governance(snap state.Snapshot, journal []domain.JournalEntry) GovernanceView {
	v := GovernanceView{
		RunID:       "N/A",
		CanOverride: snap.Run != nil && snap.Run.RunID != "",
		AuditTrail:  AuditTrail(journal),
	}
	if snap.Run != nil {
		if snap.Run.RunID != "" {
			v.RunID = snap.Run.RunID
		}
		v.Explanations = Explanations(snap.Run.Result.Explanations)
	}
	if len(v.Explanations) == 0 {
		v.Empty = GovernanceEmpty
	}
	return v
}

// Explanations renders the explanations mapping ordered by key.
func Explanations(exps map[string]domain.Explanation) []ExplanationCard {
	keys := make([]string, 0, len(exps))
	for k := range exps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cards := make([]ExplanationCard, 0, len(keys))
	for _, k := range keys {
		exp := exps[k]
		cards = append(cards, ExplanationCard{
			Key:             k,
			Label:           ConfidenceLabel,
			PlainEnglish:    exp.PlainEnglish,
			ConfidenceScore: exp.ConfidenceScore,
			Features:        featureBars(exp.FeatureImportance),
		})
	}
	return cards
}

func featureBars(importance map[string]float64) []FeatureBar {
	names := make([]string, 0, len(importance))
	for n := range importance {
		names = append(names, n)
	}
	sort.Strings(names)

	bars := make([]FeatureBar, 0, len(names))
	for _, n := range names {
		val := importance[n]
		width := math.Abs(val)
		overflow := width > maxBarWidth
		if overflow {
			width = maxBarWidth
		}
		if math.IsNaN(width) {
			width = 0
		}
		bars = append(bars, FeatureBar{Feature: n, Value: val, Width: width, Overflow: overflow})
	}
	return bars
}

// AuditTrail renders journal entries oldest first.
func AuditTrail(entries []domain.JournalEntry) []AuditRow {
	rows := make([]AuditRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, AuditRow{
			Time:  e.Time().Format("2006-01-02 15:04"),
			Label: auditLabel(e),
		})
	}
	return rows
}

func auditLabel(e domain.JournalEntry) string {
	switch e.Kind {
	case domain.JournalRunStarted:
		return "Run Start: " + orNA(e.RunID)
	case domain.JournalRunCompleted:
		return "State Persisted: " + orNA(e.RunID)
	case domain.JournalRunFailed:
		return "Run Failed"
	case domain.JournalSimulationExecuted:
		return "Simulation Executed: " + orNA(e.RunID)
	case domain.JournalOverrideSubmitted:
		return "Executive Override: " + orNA(e.RunID)
	case domain.JournalOverrideFailed:
		return "Override Failed: " + orNA(e.RunID)
	case domain.JournalActionDenied:
		return "Action Denied"
	default:
		return string(e.Kind)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
