package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
	"github.com/xiaot623/gogo/nexus/internal/policy"
)

// RunSimulation requests a what-if projection for the active run. On
// failure the previous simulation result is kept.
func (s *Service) RunSimulation(ctx context.Context, sc domain.Scenario) (*domain.SimulationResult, error) {
	run := s.store.Run()
	in := policy.Input{
		Action:       policy.ActionSimulate,
		RunID:        activeRunID(run),
		ScenarioType: string(sc.Type),
		Value:        sc.Value,
	}
	if err := s.authorize(ctx, in); err != nil {
		return nil, err
	}

	s.store.SetScenario(sc)
	s.store.SetSimulating(true)
	defer s.store.SetSimulating(false)

	res, err := s.backend.Simulate(ctx, domain.SimulateRequest{
		RunID: run.RunID,
		Type:  sc.Type,
		Value: sc.Value,
	})
	if err != nil {
		s.record(run.RunID, domain.JournalSimulationFailed, map[string]interface{}{
			"type":  sc.Type,
			"value": sc.Value,
			"error": err.Error(),
		})
		s.notify(domain.NoticeError, domain.NoticeSimulationFailed, run.RunID)
		return nil, err
	}

	res.RunID = run.RunID
	res.RequestedAt = time.Now()
	if !s.store.ApplySimulation(res) {
		logger.Log.WithField("run_id", run.RunID).Debug("discarding simulation for inactive run")
	}
	s.record(run.RunID, domain.JournalSimulationExecuted, map[string]interface{}{
		"type":      sc.Type,
		"value":     sc.Value,
		"parameter": res.Parameter,
	})
	return res, nil
}

// SubmitOverride records an executive override of the active run's
// decision with the backend.
func (s *Service) SubmitOverride(ctx context.Context, reason string) (*domain.OverrideAck, error) {
	run := s.store.Run()
	in := policy.Input{
		Action: policy.ActionOverride,
		RunID:  activeRunID(run),
		Reason: reason,
	}
	if err := s.authorize(ctx, in); err != nil {
		return nil, err
	}

	ack, err := s.backend.Override(ctx, domain.NewOverrideRequest(run.RunID, reason))
	if err != nil {
		s.record(run.RunID, domain.JournalOverrideFailed, map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
		s.notify(domain.NoticeError, domain.NoticeOverrideFailed, run.RunID)
		return nil, err
	}

	s.record(run.RunID, domain.JournalOverrideSubmitted, map[string]interface{}{
		"reason":    reason,
		"new_value": domain.OverrideNewValue,
		"status":    ack.Status,
	})
	s.notify(domain.NoticeInfo, domain.NoticeOverridePersisted, run.RunID)
	return ack, nil
}

// SetScenario updates the what-if draft without running it.
func (s *Service) SetScenario(sc domain.Scenario) {
	s.store.SetScenario(sc)
}

// authorize evaluates the gate policy and maps violations onto the
// precondition errors. Denials are journaled.
func (s *Service) authorize(ctx context.Context, in policy.Input) error {
	decision, err := s.policyEngine.Evaluate(ctx, in)
	if err != nil {
		return fmt.Errorf("authorize %s: %w", in.Action, err)
	}
	if decision.Allow {
		return nil
	}

	s.record(in.RunID, domain.JournalActionDenied, map[string]interface{}{
		"action":     in.Action,
		"violations": decision.Violations,
	})
	logger.Log.WithField("action", in.Action).WithField("violations", decision.Violations).Debug("action denied")

	switch {
	case decision.Has(policy.ViolationNoActiveRun):
		return domain.ErrNoActiveRun
	case decision.Has(policy.ViolationReasonRequired):
		return domain.ErrReasonRequired
	case decision.Has(policy.ViolationUnsupportedType), decision.Has(policy.ViolationValueOutOfRange):
		return fmt.Errorf("%w (%s)", domain.ErrInvalidScenario, strings.Join(decision.Violations, ", "))
	default:
		return fmt.Errorf("%w: %s denied (%s)", domain.ErrPrecondition, in.Action, strings.Join(decision.Violations, ", "))
	}
}

func activeRunID(run *domain.Run) string {
	if run == nil {
		return ""
	}
	return run.RunID
}
