// Package repository persists the console's local audit journal.
package repository

import (
	"context"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// Journal records console actions and observed backend events.
type Journal interface {
	CreateEntry(ctx context.Context, entry *domain.JournalEntry) error
	// ListEntries returns entries oldest first. An empty runID lists all
	// runs; limit <= 0 means no limit.
	ListEntries(ctx context.Context, runID string, limit int) ([]domain.JournalEntry, error)
	// RecentEntries returns the newest limit entries, oldest first.
	RecentEntries(ctx context.Context, limit int) ([]domain.JournalEntry, error)
	CountEntries(ctx context.Context, kind domain.JournalKind) (int, error)
	Close() error
}
