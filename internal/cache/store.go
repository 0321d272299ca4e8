// Package cache persists the single dashboard snapshot. It mirrors the
// original single-key blob store: one fixed key, wholesale overwrites,
// last write wins.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"adpulse/internal/domain"
	"adpulse/pkg/logger"
	"adpulse/pkg/metrics"
)

const (
	snapshotKey   = "dashboard_snapshot"
	rangeLabelKey = "date_range_label"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

// Store is a sqlite-backed key-value blob store holding at most one
// snapshot and the last-selected range label.
type Store struct {
	db      *sql.DB
	ttl     time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func Open(path string, ttl time.Duration, log *logger.Logger, m *metrics.Metrics) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, ttl: ttl, logger: log, metrics: m, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot wholesale, stamping the write time
// in epoch milliseconds. Failures are logged and swallowed; the
// in-memory state the caller holds is unaffected.
func (s *Store) Save(ctx context.Context, snap *domain.DashboardSnapshot) {
	snap.Timestamp = s.now().UnixMilli()
	blob, err := json.Marshal(snap)
	if err != nil {
		s.metrics.RecordCacheWrite("failure")
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to serialize dashboard snapshot")
		return
	}
	if err := s.put(ctx, snapshotKey, string(blob)); err != nil {
		s.metrics.RecordCacheWrite("failure")
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to persist dashboard snapshot")
		return
	}
	s.metrics.RecordCacheWrite("success")
}

// Load returns the stored snapshot, or nil when absent or malformed.
// Malformed content is treated as a cache miss, not an error.
func (s *Store) Load(ctx context.Context) *domain.DashboardSnapshot {
	value, err := s.get(ctx, snapshotKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to read dashboard snapshot")
		}
		s.metrics.RecordCacheRead("miss")
		return nil
	}
	var snap domain.DashboardSnapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		s.metrics.RecordCacheRead("malformed")
		s.logger.WithContext(ctx).WithError(err).Warn("Malformed dashboard snapshot, treating as miss")
		return nil
	}
	// Only age can be judged here; the range tag is compared by callers
	// who know the currently selected window.
	if snap.Age(s.now()) < s.ttl {
		s.metrics.RecordCacheRead("hit")
	} else {
		s.metrics.RecordCacheRead("stale_hit")
	}
	return &snap
}

// IsValid reports whether the snapshot is younger than the TTL and was
// written for the given time-range tag. The read path deliberately
// serves snapshots that fail this check (stale-while-revalidate); the
// result only drives staleness accounting.
func (s *Store) IsValid(snap *domain.DashboardSnapshot, timeRangeTag string) bool {
	if snap == nil {
		return false
	}
	return snap.Age(s.now()) < s.ttl && snap.TimeRange == timeRangeTag
}

// SaveRangeLabel persists the last-selected date-range label.
func (s *Store) SaveRangeLabel(ctx context.Context, label string) error {
	return s.put(ctx, rangeLabelKey, label)
}

// LoadRangeLabel returns the persisted label, or "" when absent.
func (s *Store) LoadRangeLabel(ctx context.Context) (string, error) {
	value, err := s.get(ctx, rangeLabelKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Clear drops the stored snapshot (manual refresh / cache-clear action).
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, snapshotKey)
	return err
}

func (s *Store) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, unixepoch())
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	return value, err
}
