package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
)

// StartRun begins a new analysis and returns its generation. Any run still
// in flight is cancelled and its result will be discarded. The request runs
// in the background; observe the store for its outcome.
func (s *Service) StartRun(query string) uint64 {
	gen, ctx, cancel := s.beginRun()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if _, err := s.executeRun(ctx, gen, query); err != nil && !errors.Is(err, domain.ErrSuperseded) {
			logger.Log.WithError(err).WithField("generation", gen).Warn("analysis run failed")
		}
	}()
	return gen
}

// RunAnalysis runs an analysis and waits for its outcome.
func (s *Service) RunAnalysis(ctx context.Context, query string) (*domain.Run, error) {
	gen, runCtx, cancel := s.beginRun()
	defer cancel()

	// Tie the run to the caller as well as to the service lifetime.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return s.executeRun(runCtx, gen, query)
}

func (s *Service) beginRun() (uint64, context.Context, context.CancelFunc) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancelRun != nil {
		s.cancelRun()
	}
	gen := s.store.BeginRun()

	var ctx context.Context
	var cancel context.CancelFunc
	if s.config.AnalyzeTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.config.AnalyzeTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	s.cancelRun = cancel
	return gen, ctx, cancel
}

func (s *Service) executeRun(ctx context.Context, gen uint64, query string) (*domain.Run, error) {
	stop := s.startProgress(gen)
	defer stop()

	log := logger.Log.WithField("generation", gen)
	log.WithField("query", query).Info("analysis run started")
	s.record("", domain.JournalRunStarted, map[string]interface{}{
		"query":      query,
		"generation": gen,
	})

	startedAt := time.Now()
	res, err := s.backend.Analyze(ctx, query)
	stop()

	if err != nil {
		if !s.store.FailRun(gen, err) {
			log.WithError(err).Debug("discarding failure of superseded run")
			s.record("", domain.JournalRunDiscarded, map[string]interface{}{
				"generation": gen,
				"error":      err.Error(),
			})
			return nil, fmt.Errorf("%w: %v", domain.ErrSuperseded, err)
		}
		s.record("", domain.JournalRunFailed, map[string]interface{}{
			"query":      query,
			"generation": gen,
			"error":      err.Error(),
		})
		s.notify(domain.NoticeError, domain.NoticeAnalysisFailed, "")
		return nil, err
	}

	run := &domain.Run{
		RunID:       res.RunID,
		Query:       query,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Result:      *res,
	}
	if !s.store.CompleteRun(gen, run) {
		log.WithField("run_id", run.RunID).Debug("discarding result of superseded run")
		s.record(run.RunID, domain.JournalRunDiscarded, map[string]interface{}{
			"generation": gen,
		})
		return nil, domain.ErrSuperseded
	}

	log.WithFields(logrus.Fields{
		"run_id":   run.RunID,
		"duration": run.CompletedAt.Sub(startedAt).String(),
	}).Info("analysis run completed")
	s.record(run.RunID, domain.JournalRunCompleted, map[string]interface{}{
		"query":    query,
		"decision": res.Decision,
	})

	s.refreshAsync()
	return run, nil
}
