// Package domain defines the core domain models for the decision console.
package domain

// ChatRole represents the author of a copilot chat line.
type ChatRole string

const (
	ChatRoleSystem ChatRole = "system"
	ChatRoleUser   ChatRole = "user"
	ChatRoleBot    ChatRole = "bot"
)

// JournalKind represents the type of a journal entry.
type JournalKind string

const (
	JournalRunStarted         JournalKind = "run_started"
	JournalRunCompleted       JournalKind = "run_completed"
	JournalRunFailed          JournalKind = "run_failed"
	JournalRunDiscarded       JournalKind = "run_discarded"
	JournalSimulationExecuted JournalKind = "simulation_executed"
	JournalSimulationFailed   JournalKind = "simulation_failed"
	JournalOverrideSubmitted  JournalKind = "override_submitted"
	JournalOverrideFailed     JournalKind = "override_failed"
	JournalActionDenied       JournalKind = "action_denied"

	// Backend broadcast events
	JournalBackendRunStart    JournalKind = "backend_run_start"
	JournalBackendRunComplete JournalKind = "backend_run_complete"
)

// ScenarioType represents the what-if variable being simulated.
type ScenarioType string

const (
	ScenarioFraud ScenarioType = "fraud"
	ScenarioRisk  ScenarioType = "risk"
)

// Override target constants. The console only ever issues the global
// low-risk override.
const (
	OverrideTargetType = "score"
	OverrideTargetID   = "GLOBAL"
	OverrideNewValue   = "Force Low-Risk"
)
