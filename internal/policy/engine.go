// Package policy authorizes dependent actions (simulation, override) with
// an OPA Rego policy.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Action names evaluated by the gate policy.
const (
	ActionSimulate = "simulate"
	ActionOverride = "override"
)

// Violation codes produced by the default policy.
const (
	ViolationNoActiveRun     = "no_active_run"
	ViolationReasonRequired  = "reason_required"
	ViolationUnsupportedType = "unsupported_scenario"
	ViolationValueOutOfRange = "value_out_of_range"
	ViolationUnknownAction   = "unknown_action"
)

// Input is the document the gate policy evaluates.
type Input struct {
	Action       string  `json:"action"`
	RunID        string  `json:"run_id"`
	Reason       string  `json:"reason,omitempty"`
	ScenarioType string  `json:"scenario_type,omitempty"`
	Value        float64 `json:"value,omitempty"`
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allow      bool
	Violations []string
}

// Has reports whether the decision carries the given violation.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v == code {
			return true
		}
	}
	return false
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.nexus.gate"),
		rego.Module("gate.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks an action against the policy. A policy that yields no
// result denies.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Violations: []string{"undefined"}}, nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	var d Decision
	d.Allow, _ = doc["allow"].(bool)
	if raw, ok := doc["violations"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				d.Violations = append(d.Violations, s)
			}
		}
	}
	sort.Strings(d.Violations)
	return d, nil
}

// DefaultPolicy gates dependent actions on a completed run and validates
// operator input. Scenario values follow the lab slider bounds.
const DefaultPolicy = `
package nexus.gate

default allow := false

allow if count(violations) == 0

violations contains "no_active_run" if {
	object.get(input, "run_id", "") == ""
}

violations contains "unknown_action" if {
	not input.action in {"simulate", "override"}
}

violations contains "reason_required" if {
	input.action == "override"
	object.get(input, "reason", "") == ""
}

violations contains "unsupported_scenario" if {
	input.action == "simulate"
	not object.get(input, "scenario_type", "") in {"fraud", "risk"}
}

violations contains "value_out_of_range" if {
	input.action == "simulate"
	not value_in_range
}

value_in_range if {
	v := object.get(input, "value", 0)
	v >= 0.1
	v <= 0.9
}
`
