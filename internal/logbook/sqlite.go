package logbook

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/sensor"
)

// DefaultDatabaseFile is the SQLite file name inside the data directory.
const DefaultDatabaseFile = "history.db"

const sqliteTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        TEXT    NOT NULL,
	device_id TEXT    NOT NULL,
	action    TEXT    NOT NULL CHECK (action IN ('ON', 'OFF')),
	origin    TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_actions_device ON actions(device_id);

CREATE TABLE IF NOT EXISTS readings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts          TEXT    NOT NULL,
	temperature REAL    NOT NULL
);
`

// SQLiteStore keeps action and reading history in a SQLite database.
// Unlike the CSV log it also records the origin of each action.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path in WAL mode and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendAction inserts one action row.
func (s *SQLiteStore) AppendAction(e ActionEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (ts, device_id, action, origin) VALUES (?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339), e.DeviceID, string(e.Action), string(e.Origin))
	if err != nil {
		return fmt.Errorf("%w: insert action: %w", ErrPersistence, err)
	}
	return nil
}

// AppendReading inserts one reading row.
func (s *SQLiteStore) AppendReading(r sensor.Reading) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (ts, temperature) VALUES (?, ?)`,
		r.Time.UTC().Format(time.RFC3339), r.Value)
	if err != nil {
		return fmt.Errorf("%w: insert reading: %w", ErrPersistence, err)
	}
	return nil
}

// RecentActions returns the last limit actions, oldest first.
// A non-positive limit returns all of them.
func (s *SQLiteStore) RecentActions(limit int) ([]ActionEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, device_id, action, origin FROM actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query actions: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []ActionEntry
	for rows.Next() {
		var ts, id, action, origin string
		if err := rows.Scan(&ts, &id, &action, &origin); err != nil {
			return nil, fmt.Errorf("%w: scan action: %w", ErrPersistence, err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedRecord, ts, err)
		}
		state, err := device.ParseState(action)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
		out = append(out, ActionEntry{Time: t.Local(), DeviceID: id, Action: state, Origin: Origin(origin)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate actions: %w", ErrPersistence, err)
	}

	reverse(out)
	return out, nil
}

// RecentReadings returns the last limit readings, oldest first.
func (s *SQLiteStore) RecentReadings(limit int) ([]sensor.Reading, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, temperature FROM readings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query readings: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []sensor.Reading
	for rows.Next() {
		var ts string
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("%w: scan reading: %w", ErrPersistence, err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedRecord, ts, err)
		}
		out = append(out, sensor.Reading{Time: t.Local(), Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate readings: %w", ErrPersistence, err)
	}

	reverse(out)
	return out, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
