package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
)

// recordEvent records an entry to the local journal.
func (s *Service) recordEvent(ctx context.Context, runID string, kind domain.JournalKind, detail interface{}) error {
	detailBytes, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to marshal detail: %w", err)
	}

	entry := &domain.JournalEntry{
		EntryID: "evt_" + uuid.New().String()[:8],
		RunID:   runID,
		Kind:    kind,
		Ts:      time.Now().UnixMilli(),
		Detail:  detailBytes,
	}

	return s.journal.CreateEntry(ctx, entry)
}

// record writes a journal entry, logging instead of failing the caller.
func (s *Service) record(runID string, kind domain.JournalKind, detail interface{}) {
	if s.journal == nil {
		return
	}
	if err := s.recordEvent(s.ctx, runID, kind, detail); err != nil {
		logger.Log.WithError(err).WithField("kind", kind).Warn("failed to record journal entry")
	}
}

// Journal lists local journal entries, oldest first.
func (s *Service) Journal(ctx context.Context, runID string, limit int) ([]domain.JournalEntry, error) {
	return s.journal.ListEntries(ctx, runID, limit)
}

// RecentJournal lists the newest limit journal entries, oldest first.
func (s *Service) RecentJournal(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	return s.journal.RecentEntries(ctx, limit)
}

// CountJournal counts journal entries of one kind.
func (s *Service) CountJournal(ctx context.Context, kind domain.JournalKind) (int, error) {
	return s.journal.CountEntries(ctx, kind)
}
