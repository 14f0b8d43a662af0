// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sqlitesink stores telemetry payloads in a local SQLite database.
//
// It is meant for offline collection: events are kept as JSON next to a few
// indexed columns and can be read back with [Sink.Events].
package sqlitesink

import (
	"context"
	"database/sql"
	"fmt"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"

	"github.com/gogpu/g3d/telemetry"
)

// Sink writes payloads to a SQLite database. Safe for concurrent use.
type Sink struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitesink: ping database: %w", err)
	}

	s := &Sink{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitesink: initialize schema: %w", err)
	}
	return s, nil
}

func (s *Sink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS telemetry_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		backend_id TEXT,
		session_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_telemetry_events_type ON telemetry_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_telemetry_events_session ON telemetry_events(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Send implements telemetry.Sink. Re-sending an event id is a no-op.
func (s *Sink) Send(ctx context.Context, p telemetry.Payload) error {
	data, err := telemetry.Encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO telemetry_events (
			id, event_type, backend_id, session_id, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`, p.EventID, string(p.EventType), p.BackendID, p.SessionID, string(data), p.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlitesink: insert event: %w", err)
	}
	return nil
}

// Events returns up to limit stored payloads, oldest first. A limit of zero
// or less returns all of them. An empty eventType matches every type.
func (s *Sink) Events(ctx context.Context, eventType telemetry.EventType, limit int) ([]telemetry.Payload, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM telemetry_events
		WHERE (? = '' OR event_type = ?)
		ORDER BY rowid
		LIMIT ?
	`, string(eventType), string(eventType), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: query events: %w", err)
	}
	defer rows.Close()

	var out []telemetry.Payload
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlitesink: scan event: %w", err)
		}
		p, err := telemetry.Decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitesink: iterate events: %w", err)
	}
	return out, nil
}

// Count returns the number of stored events per type.
func (s *Sink) Count(ctx context.Context) (map[telemetry.EventType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM telemetry_events GROUP BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[telemetry.EventType]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("sqlitesink: scan count: %w", err)
		}
		counts[telemetry.EventType(t)] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}
