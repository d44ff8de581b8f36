package view

import (
	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

// SimulationEmpty is shown before a projection has been run.
const SimulationEmpty = "Adjust sensitivity to run a strategy projection."

// SimulationView is the what-if lab tab.
type SimulationView struct {
	Scenario   domain.Scenario          `json:"scenario"`
	Simulating bool                     `json:"simulating"`
	CanProject bool                     `json:"can_project"`
	Result     *domain.SimulationResult `json:"result,omitempty"`
	Empty      string                   `json:"empty,omitempty"`
}

// Simulation builds the what-if tab. A stored result is only shown while
// the run it was computed against is the active run.
func Simulation(snap state.Snapshot) SimulationView {
	v := SimulationView{
		Scenario:   snap.Scenario,
		Simulating: snap.Simulating,
		CanProject: snap.Run != nil && !snap.Simulating,
	}
	if snap.Run != nil && snap.Simulation != nil && snap.Simulation.RunID == snap.Run.RunID {
		v.Result = snap.Simulation
	} else {
		v.Empty = SimulationEmpty
	}
	return v
}
