package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tbrennan/chronicle/pkg/types"
)

// Store is an append-only, time-indexed event store backed by SQLite in
// WAL mode. A Store is safe for concurrent use: writes arrive from every
// collector goroutine through the supervisor's sink and are serialized by
// SQLite's own locking (busy_timeout plus retryOnContention), and reads
// use their own connections from the pool.
type Store struct {
	db *sql.DB
}

var _ Interface = (*Store)(nil)

// Open connects to (creating if necessary) the SQLite file at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id                 TEXT PRIMARY KEY,
		event_type         TEXT NOT NULL,
		timestamp_ns       INTEGER NOT NULL,
		source             TEXT NOT NULL,
		subject            TEXT NOT NULL,
		subject_secondary  TEXT,
		description        TEXT,
		repository         TEXT,
		process_name       TEXT,
		metadata           TEXT,
		confidence         REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp_ns);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events (event_type);
	CREATE INDEX IF NOT EXISTS idx_events_source ON events (source);
	CREATE INDEX IF NOT EXISTS idx_events_subject ON events (subject);
	CREATE INDEX IF NOT EXISTS idx_events_repository ON events (repository);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends a single event. Inserting an event whose ID already
// exists is a no-op success. Collectors give every emitted event a fresh
// random UUID, so the same activity observed twice is stored twice.
func (s *Store) Insert(e types.Event) error {
	return retryOnContention(func() error {
		return s.insertOne(e)
	})
}

func (s *Store) insertOne(e types.Event) error {
	metadataJSON, err := marshalMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (
			id, event_type, timestamp_ns, source, subject, subject_secondary,
			description, repository, process_name, metadata, confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID, string(e.EventType), e.Timestamp.UnixNano(), e.Source, e.Subject, e.SubjectSecondary,
		e.Description, e.Repository, e.ProcessName, metadataJSON, e.Confidence,
	)
	return err
}

// InsertMany inserts a batch of events, continuing past individual
// failures (the same policy as the original collector backfill path: one
// bad row must not block the rest of the batch). Returns the number of
// events that inserted successfully.
func (s *Store) InsertMany(events []types.Event) (int, error) {
	inserted := 0
	var firstErr error
	for _, e := range events {
		if err := s.Insert(e); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		inserted++
	}
	return inserted, firstErr
}

// Range returns events with timestamp in [start, end], most recent first,
// optionally filtered by event type and source, capped at limit. A limit
// of 0 or less returns every matching event.
func (s *Store) Range(start, end time.Time, eventTypes []types.EventType, sources []string, limit int) ([]types.Event, error) {
	query := "SELECT id, event_type, timestamp_ns, source, subject, subject_secondary, description, repository, process_name, metadata, confidence FROM events WHERE timestamp_ns >= ? AND timestamp_ns <= ?"
	args := []any{start.UnixNano(), end.UnixNano()}

	if len(eventTypes) > 0 {
		query += " AND event_type IN (" + placeholders(len(eventTypes)) + ")"
		for _, t := range eventTypes {
			args = append(args, string(t))
		}
	}
	if len(sources) > 0 {
		query += " AND source IN (" + placeholders(len(sources)) + ")"
		for _, src := range sources {
			args = append(args, src)
		}
	}

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as no limit
	}
	query += " ORDER BY timestamp_ns DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// BySubject returns events whose subject or secondary subject contains the
// given substring, most recent first.
func (s *Store) BySubject(subject string, limit int) ([]types.Event, error) {
	like := "%" + subject + "%"
	rows, err := s.db.Query(`
		SELECT id, event_type, timestamp_ns, source, subject, subject_secondary, description, repository, process_name, metadata, confidence
		FROM events WHERE subject LIKE ? OR subject_secondary LIKE ?
		ORDER BY timestamp_ns DESC LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ByRepository returns events tied to the given repository root, most
// recent first.
func (s *Store) ByRepository(repository string, limit int) ([]types.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, event_type, timestamp_ns, source, subject, subject_secondary, description, repository, process_name, metadata, confidence
		FROM events WHERE repository = ?
		ORDER BY timestamp_ns DESC LIMIT ?
	`, repository, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent returns events from the last d, most recent first.
func (s *Store) Recent(d time.Duration, limit int) ([]types.Event, error) {
	end := time.Now()
	start := end.Add(-d)
	return s.Range(start, end, nil, nil, limit)
}

// Count returns the number of events in [start, end].
func (s *Store) Count(start, end time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM events WHERE timestamp_ns >= ? AND timestamp_ns <= ?",
		start.UnixNano(), end.UnixNano(),
	).Scan(&count)
	return count, err
}

// CountsByType returns the number of events of each type currently stored.
func (s *Store) CountsByType() (map[types.EventType]int64, error) {
	rows, err := s.db.Query("SELECT event_type, COUNT(*) FROM events GROUP BY event_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.EventType]int64)
	for rows.Next() {
		var et string
		var n int64
		if err := rows.Scan(&et, &n); err != nil {
			return nil, err
		}
		counts[types.EventType(et)] = n
	}
	return counts, rows.Err()
}

// Iterate calls visit for every event in ascending timestamp order,
// paging through the table rather than loading it whole. Iteration stops
// early if visit returns false.
func (s *Store) Iterate(batchSize int, visit func(types.Event) bool) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	offset := 0
	for {
		rows, err := s.db.Query(`
			SELECT id, event_type, timestamp_ns, source, subject, subject_secondary, description, repository, process_name, metadata, confidence
			FROM events ORDER BY timestamp_ns LIMIT ? OFFSET ?
		`, batchSize, offset)
		if err != nil {
			return err
		}
		batch, err := scanEvents(rows)
		rows.Close()
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, e := range batch {
			if !visit(e) {
				return nil
			}
		}
		offset += batchSize
	}
}

// Compact runs SQLite's VACUUM to reclaim space after large deletions.
func (s *Store) Compact() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

func placeholders(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}

func marshalMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanEvents(rows *sql.Rows) ([]types.Event, error) {
	var events []types.Event
	for rows.Next() {
		var (
			e                types.Event
			eventType        string
			timestampNS      int64
			subjectSecondary sql.NullString
			description      sql.NullString
			repository       sql.NullString
			processName      sql.NullString
			metadata         sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &eventType, &timestampNS, &e.Source, &e.Subject, &subjectSecondary,
			&description, &repository, &processName, &metadata, &e.Confidence,
		); err != nil {
			return nil, err
		}
		e.EventType = types.EventType(eventType)
		e.Timestamp = time.Unix(0, timestampNS).UTC()
		e.SubjectSecondary = subjectSecondary.String
		e.Description = description.String
		e.Repository = repository.String
		e.ProcessName = processName.String
		if metadata.Valid && metadata.String != "" {
			var m map[string]string
			if err := json.Unmarshal([]byte(metadata.String), &m); err == nil {
				e.Metadata = m
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
