package domain

import (
	"encoding/json"
	"time"
)

// JournalEntry is a locally recorded audit line: an action taken by this
// console or an event observed from the backend.
type JournalEntry struct {
	EntryID string          `json:"entry_id"`
	RunID   string          `json:"run_id,omitempty"`
	Kind    JournalKind     `json:"kind"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// Time returns the entry timestamp.
func (e JournalEntry) Time() time.Time {
	return time.UnixMilli(e.Ts)
}
