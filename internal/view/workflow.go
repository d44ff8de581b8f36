package view

import (
	"strings"
	"unicode/utf8"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

// IdleRunID is displayed when no run is active.
const IdleRunID = "IDLE"

// WorkflowView is the timeline and agent-card tab.
type WorkflowView struct {
	RunID      string        `json:"run_id"`
	Analyzing  bool          `json:"analyzing"`
	Step       int           `json:"step"`
	Stages     []StageCard   `json:"stages"`
	Debate     []DebateEntry `json:"debate,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	ButtonText string        `json:"button_text"`
}

// StageCard is one agent card on the workflow grid.
type StageCard struct {
	domain.Stage
	Reached bool   `json:"reached"`
	Active  bool   `json:"active"`
	Output  string `json:"output"`
}

// DebateEntry is one line of the consensus debate.
type DebateEntry struct {
	Speaker string `json:"speaker"`
	Avatar  string `json:"avatar"`
	Message string `json:"message"`
}

// Workflow builds the workflow tab.
func Workflow(snap state.Snapshot) WorkflowView {
	v := WorkflowView{
		RunID:      IdleRunID,
		Analyzing:  snap.Progress.InProgress,
		Step:       snap.Progress.Step,
		LastError:  snap.LastError,
		ButtonText: "Execute Strategy",
	}
	if v.Analyzing {
		v.ButtonText = "Orchestrating Agents..."
	}
	if snap.Run != nil && snap.Run.RunID != "" {
		v.RunID = snap.Run.RunID
	}

	v.Stages = make([]StageCard, len(domain.Stages))
	for i, st := range domain.Stages {
		v.Stages[i] = StageCard{
			Stage:   st,
			Reached: snap.Progress.Step >= i,
			Active:  snap.Progress.Step == i && snap.Progress.InProgress,
			Output:  StageOutput(i, snap.Run),
		}
	}

	if snap.Run != nil {
		for _, msg := range snap.Run.Result.Debate {
			v.Debate = append(v.Debate, debateEntry(msg))
		}
	}
	return v
}

func debateEntry(msg string) DebateEntry {
	speaker, _, _ := strings.Cut(msg, ":")
	speaker = strings.TrimSpace(speaker)
	var avatar string
	if r, size := utf8.DecodeRuneInString(speaker); size > 0 {
		avatar = string(r)
	}
	return DebateEntry{Speaker: speaker, Avatar: avatar, Message: msg}
}
