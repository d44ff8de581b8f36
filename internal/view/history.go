package view

import (
	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// HistoryEmpty is shown when the backend has no runs.
const HistoryEmpty = "No historical runs found."

// HistoryView is the run history tab.
type HistoryView struct {
	Rows  []domain.HistoryEntry `json:"rows"`
	Empty string                `json:"empty,omitempty"`
}

// History builds the history tab.
func History(entries []domain.HistoryEntry) HistoryView {
	if len(entries) == 0 {
		return HistoryView{Rows: []domain.HistoryEntry{}, Empty: HistoryEmpty}
	}
	return HistoryView{Rows: entries}
}
