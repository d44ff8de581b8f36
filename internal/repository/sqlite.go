package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

var _ Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal opens (and migrates) the journal database.
func NewSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS journal (
			entry_id TEXT PRIMARY KEY,
			run_id TEXT,
			kind TEXT NOT NULL,
			ts INTEGER NOT NULL,
			detail TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_run ON journal(run_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_kind ON journal(kind)`,
	}
	for _, m := range migrations {
		if _, err := j.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// CreateEntry inserts a journal entry.
func (j *SQLiteJournal) CreateEntry(ctx context.Context, entry *domain.JournalEntry) error {
	var detail sql.NullString
	if len(entry.Detail) > 0 {
		detail = sql.NullString{String: string(entry.Detail), Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal (entry_id, run_id, kind, ts, detail) VALUES (?, ?, ?, ?, ?)`,
		entry.EntryID, entry.RunID, string(entry.Kind), entry.Ts, detail,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ListEntries returns entries oldest first, optionally for one run.
func (j *SQLiteJournal) ListEntries(ctx context.Context, runID string, limit int) ([]domain.JournalEntry, error) {
	query := `SELECT entry_id, run_id, kind, ts, detail FROM journal`
	var args []interface{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// RecentEntries returns the newest limit entries across all runs, oldest
// first.
func (j *SQLiteJournal) RecentEntries(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT entry_id, run_id, kind, ts, detail FROM journal ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent journal: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}

func scanEntries(rows *sql.Rows) ([]domain.JournalEntry, error) {
	entries := []domain.JournalEntry{}
	for rows.Next() {
		var (
			e      domain.JournalEntry
			runCol sql.NullString
			kind   string
			detail sql.NullString
		)
		if err := rows.Scan(&e.EntryID, &runCol, &kind, &e.Ts, &detail); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.RunID = runCol.String
		e.Kind = domain.JournalKind(kind)
		if detail.Valid {
			e.Detail = []byte(detail.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountEntries counts entries of one kind.
func (j *SQLiteJournal) CountEntries(ctx context.Context, kind domain.JournalKind) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal WHERE kind = ?`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return n, nil
}
