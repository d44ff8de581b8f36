package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a backend request that failed to complete or parse.
	ErrTransport = errors.New("backend request failed")

	// ErrPrecondition marks an action invoked without its required context.
	ErrPrecondition = errors.New("precondition failed")

	ErrNoActiveRun     = fmt.Errorf("%w: no completed run", ErrPrecondition)
	ErrReasonRequired  = fmt.Errorf("%w: override reason is required", ErrPrecondition)
	ErrInvalidScenario = fmt.Errorf("%w: invalid scenario", ErrPrecondition)

	// ErrSuperseded is returned for a run whose result arrived after a newer
	// run was started. The result is discarded.
	ErrSuperseded = errors.New("run superseded by a newer request")
)
