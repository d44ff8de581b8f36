package service

import (
	"sync"
	"time"
)

// startProgress advances the timeline of generation gen on every tick
// until the returned stop function is called. stop is idempotent.
func (s *Service) startProgress(gen uint64) (stop func()) {
	interval := s.config.ProgressInterval
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				// Ceiling and stale generations are enforced by the store.
				s.store.AdvanceStep(gen)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
