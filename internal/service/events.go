package service

import (
	"context"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
)

// HandleBackendEvent journals a backend broadcast and refreshes history
// and trends when a run completes anywhere.
func (s *Service) HandleBackendEvent(ctx context.Context, evt domain.BackendEvent) {
	log := logger.Log.WithField("type", evt.Type).WithField("run_id", evt.RunID)

	switch evt.Type {
	case domain.BackendEventRunStart:
		log.Debug("backend run started")
		s.record(evt.RunID, domain.JournalBackendRunStart, map[string]interface{}{
			"query": evt.Query,
		})
	case domain.BackendEventRunComplete:
		log.Debug("backend run completed")
		detail := map[string]interface{}{}
		if evt.Result != nil {
			detail["decision"] = evt.Result.Decision
		}
		s.record(evt.RunID, domain.JournalBackendRunComplete, detail)
		if err := s.Refresh(ctx); err != nil {
			log.WithError(err).Debug("refresh after backend event failed")
		}
	default:
		log.Debug("ignoring backend event")
	}
}
