// Package view projects console state into the per-tab display models.
// Every function here is pure: same input, same output, no side effects.
package view

import (
	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// Placeholder is shown for a stage whose output is not available.
const Placeholder = "Standby..."

// StageOutput returns the display text for stage i of the run, or
// Placeholder when the run or the underlying field is absent.
func StageOutput(i int, run *domain.Run) string {
	if run == nil {
		return Placeholder
	}
	res := &run.Result
	var out string
	switch i {
	case 0:
		out = res.Step(0)
	case 1:
		out = res.Data.Log
	case 2:
		out = res.Data.CleaningLog
	case 3:
		out = res.InsightSegment(0)
	case 4:
		out = res.InsightSegment(1)
	case 5:
		out = res.Decision
	}
	if out == "" {
		return Placeholder
	}
	return out
}
