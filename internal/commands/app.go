package commands

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/nexus/internal/adapter/backend"
	"github.com/xiaot623/gogo/nexus/internal/config"
	"github.com/xiaot623/gogo/nexus/internal/policy"
	"github.com/xiaot623/gogo/nexus/internal/repository"
	"github.com/xiaot623/gogo/nexus/internal/service"
	"github.com/xiaot623/gogo/nexus/internal/state"
)

// app bundles the components shared by the serve and run commands.
type app struct {
	cfg     *config.Config
	store   *state.Store
	backend backend.Backend
	journal *repository.SQLiteJournal
	svc     *service.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	journal, err := repository.NewSQLiteJournal(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	b := backend.New(backend.Options{
		BaseURL:        cfg.BackendURL,
		RequestTimeout: cfg.RequestTimeout,
		RateLimitQPS:   cfg.RateLimitQPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MockLatency:    4 * cfg.ProgressInterval,
	})

	store := state.New()
	return &app{
		cfg:     cfg,
		store:   store,
		backend: b,
		journal: journal,
		svc:     service.New(store, b, journal, cfg, policyEngine),
	}, nil
}

func (a *app) isMock() bool {
	_, ok := a.backend.(*backend.MockClient)
	return ok
}

func (a *app) Close() {
	a.svc.Close()
	a.journal.Close()
}
