package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteEventStore persists run events in a local SQLite database.
type SQLiteEventStore struct {
	db *sql.DB
}

// NewSQLiteEventStore opens (creating if needed) the database at path and
// runs migrations. WAL mode keeps concurrent readers off the writer's
// back.
func NewSQLiteEventStore(path string) (*SQLiteEventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	s := &SQLiteEventStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("event store migration: %w", err)
	}
	return s, nil
}

// NewSQLiteEventStoreFromDB wraps an existing handle. The caller owns the
// handle's lifecycle; Close on the returned store still closes it.
func NewSQLiteEventStoreFromDB(db *sql.DB) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("event store migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteEventStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload BLOB,
		payload_hash TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(tenant_id, run_id);
	`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteEventStore) Append(ctx context.Context, e Event) (int64, error) {
	if e.TenantID == "" || e.RunID == "" {
		return 0, ErrEmptyRun
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (tenant_id, run_id, type, payload, payload_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.TenantID, e.RunID, e.Type, e.Payload, e.PayloadHash,
		created.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append event id: %w", err)
	}
	return id, nil
}

func (s *SQLiteEventStore) History(ctx context.Context, tenantID, runID string, afterID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, run_id, type, payload, payload_hash, created_at
		FROM events
		WHERE tenant_id = ? AND run_id = ? AND id > ?
		ORDER BY id ASC`,
		tenantID, runID, afterID)
	if err != nil {
		return nil, fmt.Errorf("event history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			created string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.RunID, &e.Type, &e.Payload, &e.PayloadHash, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("event %d has bad timestamp %q: %w", e.ID, created, err)
		}
		e.CreatedAt = ts
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("event history: %w", err)
	}
	return out, nil
}

func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}
