// Package state holds the console's UI state container. Every mutation goes
// through a named transition; listeners observe a snapshot after each one.
package state

import (
	"slices"
	"sync"
	"time"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// WelcomeMessage seeds the copilot conversation.
const WelcomeMessage = "Executive Copilot Online. System ready for strategic inquiry."

// Snapshot is a point-in-time copy of the console state. Run and the
// elements of History, Trends and Chat are never mutated after being stored.
type Snapshot struct {
	Version    uint64                   `json:"version"`
	Run        *domain.Run              `json:"run"`
	Progress   domain.ProgressState     `json:"progress"`
	History    []domain.HistoryEntry    `json:"history"`
	Trends     []domain.TrendPoint      `json:"trends"`
	Simulation *domain.SimulationResult `json:"simulation"`
	Simulating bool                     `json:"simulating"`
	Scenario   domain.Scenario          `json:"scenario"`
	Chat       []domain.ChatMessage     `json:"chat"`
	LastError  string                   `json:"last_error,omitempty"`
}

// Listener is called with a fresh snapshot after every transition.
type Listener func(Snapshot)

// Store is the single owner of mutable console state.
type Store struct {
	mu        sync.RWMutex
	cur       Snapshot
	listeners []Listener
}

// New creates a store in the idle state.
func New() *Store {
	return &Store{
		cur: Snapshot{
			History:  []domain.HistoryEntry{},
			Trends:   []domain.TrendPoint{},
			Scenario: domain.DefaultScenario,
			Chat: []domain.ChatMessage{
				{Role: domain.ChatRoleSystem, Text: WelcomeMessage, At: time.Now()},
			},
		},
	}
}

// Subscribe registers a listener for state changes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Run returns the active run, or nil when idle.
func (s *Store) Run() *domain.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Run
}

// Progress returns the current progress state.
func (s *Store) Progress() domain.ProgressState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Progress
}

// Scenario returns the current what-if draft.
func (s *Store) Scenario() domain.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Scenario
}

// BeginRun clears the previous result and resets the timeline for a new
// run. History and trends are kept. It returns the generation tag the
// run's completions must present.
func (s *Store) BeginRun() uint64 {
	var gen uint64
	s.update(func(c *Snapshot) bool {
		c.Progress.Generation++
		c.Progress.Step = 0
		c.Progress.InProgress = true
		c.Run = nil
		c.LastError = ""
		gen = c.Progress.Generation
		return true
	})
	return gen
}

// AdvanceStep moves the timeline forward by one stage, stopping at the
// final stage. Ticks from a superseded generation are ignored.
func (s *Store) AdvanceStep(gen uint64) bool {
	return s.update(func(c *Snapshot) bool {
		if c.Progress.Generation != gen || !c.Progress.InProgress {
			return false
		}
		if c.Progress.Step >= domain.FinalStep() {
			return false
		}
		c.Progress.Step++
		return true
	})
}

// CompleteRun stores the run and forces the timeline to its final stage.
// It reports false when gen has been superseded and nothing changed.
func (s *Store) CompleteRun(gen uint64, run *domain.Run) bool {
	return s.update(func(c *Snapshot) bool {
		if c.Progress.Generation != gen {
			return false
		}
		c.Run = run
		c.Progress.Step = domain.FinalStep()
		c.Progress.InProgress = false
		return true
	})
}

// FailRun ends the in-progress state without a result. The step stays
// where the timer left it.
func (s *Store) FailRun(gen uint64, err error) bool {
	return s.update(func(c *Snapshot) bool {
		if c.Progress.Generation != gen {
			return false
		}
		c.Progress.InProgress = false
		if err != nil {
			c.LastError = err.Error()
		}
		return true
	})
}

// SetHistory replaces the history list.
func (s *Store) SetHistory(entries []domain.HistoryEntry) {
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	s.update(func(c *Snapshot) bool {
		c.History = entries
		return true
	})
}

// SetTrends replaces the trend series.
func (s *Store) SetTrends(points []domain.TrendPoint) {
	if points == nil {
		points = []domain.TrendPoint{}
	}
	s.update(func(c *Snapshot) bool {
		c.Trends = points
		return true
	})
}

// SetScenario replaces the what-if draft.
func (s *Store) SetScenario(sc domain.Scenario) {
	s.update(func(c *Snapshot) bool {
		c.Scenario = sc
		return true
	})
}

// SetSimulating toggles the simulation-in-flight flag.
func (s *Store) SetSimulating(v bool) {
	s.update(func(c *Snapshot) bool {
		if c.Simulating == v {
			return false
		}
		c.Simulating = v
		return true
	})
}

// ApplySimulation stores a simulation result if the run it was requested
// against is still the active run.
func (s *Store) ApplySimulation(result *domain.SimulationResult) bool {
	return s.update(func(c *Snapshot) bool {
		if c.Run == nil || result == nil || c.Run.RunID != result.RunID {
			return false
		}
		c.Simulation = result
		return true
	})
}

// AppendChat adds a line to the copilot conversation.
func (s *Store) AppendChat(msg domain.ChatMessage) {
	if msg.At.IsZero() {
		msg.At = time.Now()
	}
	s.update(func(c *Snapshot) bool {
		c.Chat = append(c.Chat, msg)
		return true
	})
}

// update applies fn under the lock and, if it changed anything, notifies
// listeners with the resulting snapshot outside the lock.
func (s *Store) update(fn func(c *Snapshot) bool) bool {
	s.mu.Lock()
	if !fn(&s.cur) {
		s.mu.Unlock()
		return false
	}
	s.cur.Version++
	var snap Snapshot
	listeners := s.listeners
	if len(listeners) > 0 {
		snap = s.copyLocked()
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return true
}

func (s *Store) copyLocked() Snapshot {
	snap := s.cur
	snap.Chat = slices.Clone(s.cur.Chat)
	return snap
}
