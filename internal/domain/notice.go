package domain

import "time"

// NoticeLevel grades a transient operator notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Operator-facing notice texts.
const (
	NoticeOverridePersisted = "Executive Override Persisted to Audit Log."
	NoticeOverrideFailed    = "Override Failed."
	NoticeSimulationFailed  = "Simulation failed"
	NoticeAnalysisFailed    = "Analysis failed"
)

// Notice is a transient message for the operator, such as the outcome of
// an override. Notices are not part of the persistent state.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	RunID   string      `json:"run_id,omitempty"`
	Ts      int64       `json:"ts"`
}

// NewNotice creates a notice stamped with the current time.
func NewNotice(level NoticeLevel, message, runID string) Notice {
	return Notice{Level: level, Message: message, RunID: runID, Ts: time.Now().UnixMilli()}
}
