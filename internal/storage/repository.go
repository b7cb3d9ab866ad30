package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSessionSQL = `INSERT INTO sessions (
        id,
        started_at,
        status
    ) VALUES (
        $1,$2,$3
    )
    ON CONFLICT (id) DO NOTHING;`

	finalizeSessionSQL = `UPDATE sessions
    SET stopped_at       = $2,
        frames           = $3,
        avg_bpm          = $4,
        avg_spo2         = $5,
        heart_rate_label = $6,
        spo2_label       = $7,
        bp_label         = $8,
        status           = $9
    WHERE id = $1;`

	listRecentSessionsSQL = `SELECT
        id,
        started_at,
        stopped_at,
        frames,
        avg_bpm,
        avg_spo2,
        heart_rate_label,
        spo2_label,
        bp_label,
        status,
        created_at
    FROM sessions
    ORDER BY started_at DESC
    LIMIT $1;`

	insertVitalsSQL = `INSERT INTO vitals_samples (
        session_id,
        frame_ts,
        filtered_value,
        is_peak,
        bpm,
        confidence,
        spo2,
        resp_rate,
        resp_depth,
        resp_regularity,
        arrhythmia_label
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    );`

	listSessionSamplesSQL = `SELECT
        session_id,
        frame_ts,
        filtered_value,
        is_peak,
        bpm,
        confidence,
        spo2,
        resp_rate,
        resp_depth,
        resp_regularity,
        arrhythmia_label
    FROM vitals_samples
    WHERE session_id = $1
    ORDER BY frame_ts;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SessionStore persists session lifecycle records.
type SessionStore interface {
	CreateSession(ctx context.Context, record SessionRecord) error
	FinalizeSession(ctx context.Context, record SessionRecord) error
	ListRecentSessions(ctx context.Context, limit int) ([]SessionRecord, error)
}

// VitalsStore persists finalized per-frame snapshots.
type VitalsStore interface {
	InsertVitalsBatch(ctx context.Context, records []VitalsRecord) error
	ListSessionSamples(ctx context.Context, sessionID string) ([]VitalsRecord, error)
}

// AdvisoryLocker exposes PostgreSQL advisory locking so only one recorder
// writes at a time.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store is the PostgreSQL-backed implementation of the storage interfaces.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateSession inserts a session row at session start.
func (s *Store) CreateSession(ctx context.Context, record SessionRecord) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	_, err := s.pool.Exec(ctx, insertSessionSQL, record.ID, record.StartedAt, record.Status)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FinalizeSession records the final reading for a completed session.
func (s *Store) FinalizeSession(ctx context.Context, record SessionRecord) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	_, err := s.pool.Exec(ctx, finalizeSessionSQL,
		record.ID,
		record.StoppedAt,
		record.Frames,
		record.AvgBPM,
		record.AvgSpO2,
		record.HeartRateLabel,
		record.SpO2Label,
		record.BPLabel,
		record.Status,
	)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	return nil
}

// ListRecentSessions returns the most recent sessions, newest first.
func (s *Store) ListRecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.pool.Query(ctx, listRecentSessionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(
			&r.ID,
			&r.StartedAt,
			&r.StoppedAt,
			&r.Frames,
			&r.AvgBPM,
			&r.AvgSpO2,
			&r.HeartRateLabel,
			&r.SpO2Label,
			&r.BPLabel,
			&r.Status,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// InsertVitalsBatch writes a batch of per-frame records in one round trip.
// At 30 frames per second a row-per-statement insert would dominate the
// frame budget; callers buffer and flush periodically instead.
func (s *Store) InsertVitalsBatch(ctx context.Context, records []VitalsRecord) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertVitalsSQL,
			r.SessionID,
			r.FrameTS,
			r.FilteredValue,
			r.IsPeak,
			r.BPM,
			r.Confidence,
			r.SpO2,
			r.RespRate,
			r.RespDepth,
			r.RespRegularity,
			r.ArrhythmiaLabel,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert vitals batch: %w", err)
		}
	}
	return nil
}

// ListSessionSamples returns all persisted frames of one session in order.
func (s *Store) ListSessionSamples(ctx context.Context, sessionID string) ([]VitalsRecord, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.pool.Query(ctx, listSessionSamplesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session samples: %w", err)
	}
	defer rows.Close()

	var records []VitalsRecord
	for rows.Next() {
		var r VitalsRecord
		if err := rows.Scan(
			&r.SessionID,
			&r.FrameTS,
			&r.FilteredValue,
			&r.IsPeak,
			&r.BPM,
			&r.Confidence,
			&r.SpO2,
			&r.RespRate,
			&r.RespDepth,
			&r.RespRegularity,
			&r.ArrhythmiaLabel,
		); err != nil {
			return nil, fmt.Errorf("scan vitals record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// TryAdvisoryLock acquires a session-scoped advisory lock. The returned
// unlock function releases it with a background context so cancellation of
// the caller does not leak the lock.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if s.pool == nil {
		return nil, false, ErrNotConfigured
	}

	var acquired bool
	if err := s.pool.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	unlock := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var released bool
		_ = s.pool.QueryRow(releaseCtx, advisoryUnlockSQL, key).Scan(&released)
	}
	return unlock, true, nil
}

var (
	_ SessionStore   = (*Store)(nil)
	_ VitalsStore    = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
