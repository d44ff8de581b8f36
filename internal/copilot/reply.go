// Package copilot selects the scripted executive-copilot replies.
package copilot

import (
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

const (
	// FallbackSummary is returned for a summary request when no run exists
	// or the run carries no decision.
	FallbackSummary = "The last run identified 12 high-priority anomalies, with a recommendation for automated flagging in the Retail sector."

	// Clarification is returned for anything the script does not recognise.
	Clarification = "I'm analyzing the historical baseline. Could you specify which sector you're most concerned about?"

	riskTemplate = "Analysis of %s indicates an average risk delta of 0.12. Cluster 4 is currently flagged for human-in-the-loop review."
	noRunSubject = "system state"
)

// Responder produces the bot reply to a user message given the active run.
// Implementations must be deterministic for a given (message, run) pair.
type Responder interface {
	Reply(message string, run *domain.Run) string
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(message string, run *domain.Run) string

// Reply implements Responder.
func (f ResponderFunc) Reply(message string, run *domain.Run) string {
	return f(message, run)
}

// Scripted is the built-in keyword responder.
var Scripted Responder = ResponderFunc(Reply)

// Reply matches the lowercased message against the script. "risk" wins over
// "summarize" when both appear.
func Reply(message string, run *domain.Run) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "risk"):
		subject := noRunSubject
		if run != nil && run.RunID != "" {
			subject = run.RunID
		}
		return fmt.Sprintf(riskTemplate, subject)
	case strings.Contains(msg, "summarize"):
		if run != nil && run.Result.Decision != "" {
			return run.Result.Decision
		}
		return FallbackSummary
	default:
		return Clarification
	}
}
