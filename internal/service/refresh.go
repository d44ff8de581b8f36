package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/nexus/internal/logger"
)

// Refresh re-fetches history and trends concurrently. Each list is
// replaced as soon as its own fetch succeeds; a failed fetch leaves the
// previous list in place. The first error is returned.
func (s *Service) Refresh(ctx context.Context) error {
	// A plain group: one failed fetch must not cancel the other.
	var g errgroup.Group

	g.Go(func() error {
		entries, err := s.backend.History(ctx)
		if err != nil {
			logger.Log.WithError(err).Warn("history fetch failed")
			return err
		}
		s.store.SetHistory(entries)
		return nil
	})

	g.Go(func() error {
		points, err := s.backend.Trends(ctx)
		if err != nil {
			logger.Log.WithError(err).Warn("trends fetch failed")
			return err
		}
		s.store.SetTrends(points)
		return nil
	})

	return g.Wait()
}

func (s *Service) refreshAsync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Refresh(s.ctx)
	}()
}
