package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
)

// EventStore persists provisioning events.
type EventStore interface {
	Record(ctx context.Context, ev Event) (int64, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// SQLiteEventStore keeps events in the provisioning_events table.
type SQLiteEventStore struct {
	db *database.DB
}

// NewSQLiteEventStore creates a store over an opened and migrated database.
func NewSQLiteEventStore(db *database.DB) *SQLiteEventStore {
	return &SQLiteEventStore{db: db}
}

// Record inserts ev and returns its row id.
func (s *SQLiteEventStore) Record(ctx context.Context, ev Event) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO provisioning_events (source, entered_at, expires_at) VALUES (?, ?, ?)",
		ev.Source,
		ev.EnteredAt.UTC().Format(time.RFC3339Nano),
		ev.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEventStore, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEventStore, err)
	}
	return id, nil
}

// Recent returns up to limit events, newest first. A non-positive limit
// returns everything.
func (s *SQLiteEventStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, entered_at, expires_at FROM provisioning_events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventStore, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev                 Event
			entered, expiresAt string
		)
		if err := rows.Scan(&ev.ID, &ev.Source, &entered, &expiresAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEventStore, err)
		}
		if ev.EnteredAt, err = time.Parse(time.RFC3339Nano, entered); err != nil {
			return nil, fmt.Errorf("%w: entered_at: %w", ErrEventStore, err)
		}
		if ev.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
			return nil, fmt.Errorf("%w: expires_at: %w", ErrEventStore, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventStore, err)
	}
	return events, nil
}
