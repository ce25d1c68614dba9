package database

import (
	"context"
	"fmt"
	"time"

	"imagestream/internal/logging"
	"imagestream/internal/metrics"
)

// RecordSession stores a finished session.
func (d *Database) RecordSession(ctx context.Context, rec SessionRecord) (err error) {
	start := time.Now()
	defer func() { recordQuery("record_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO stream_sessions
			(id, uri, mime_type, route, outcome, error_code, error_detail, chunks, bytes, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID, rec.URI, rec.MimeType, rec.Route, rec.Outcome, rec.ErrorCode, rec.ErrorDetail,
		rec.Chunks, rec.Bytes, rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", rec.ID, err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (d *Database) RecentSessions(ctx context.Context, limit int) (_ []SessionRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_sessions", start, err) }()

	if limit <= 0 || limit > MaxRecentSessions {
		limit = MaxRecentSessions
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, uri, mime_type, route, outcome, error_code, error_detail, chunks, bytes, started_at, duration_ms
		FROM stream_sessions
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SessionRecord, 0)
	for rows.Next() {
		var rec SessionRecord
		var startedMs int64
		if err = rows.Scan(&rec.ID, &rec.URI, &rec.MimeType, &rec.Route, &rec.Outcome,
			&rec.ErrorCode, &rec.ErrorDetail, &rec.Chunks, &rec.Bytes, &startedMs, &rec.DurationMs); err != nil {
			return nil, err
		}
		rec.StartedAt = time.UnixMilli(startedMs)
		rec.Duration = time.Duration(rec.DurationMs) * time.Millisecond
		out = append(out, rec)
	}
	err = rows.Err()
	return out, err
}

// SessionStats aggregates the history by route and outcome. It implements
// metrics.StatsProvider.
func (d *Database) SessionStats(ctx context.Context) (_ []metrics.HistoryCount, err error) {
	start := time.Now()
	defer func() { recordQuery("session_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT route, outcome, COUNT(*), COALESCE(SUM(bytes), 0)
		FROM stream_sessions
		GROUP BY route, outcome
		ORDER BY route, outcome
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]metrics.HistoryCount, 0)
	for rows.Next() {
		var hc metrics.HistoryCount
		if err = rows.Scan(&hc.Route, &hc.Outcome, &hc.Count, &hc.Bytes); err != nil {
			return nil, err
		}
		out = append(out, hc)
	}
	err = rows.Err()
	return out, err
}

// PruneSessions deletes sessions that started before cutoff.
func (d *Database) PruneSessions(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	start := time.Now()
	defer func() { recordQuery("prune_sessions", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM stream_sessions WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RunPruner deletes sessions older than retention every interval until ctx
// is done. A non-positive retention disables pruning.
func (d *Database) RunPruner(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		return
	}

	prune := func() {
		n, err := d.PruneSessions(ctx, time.Now().Add(-retention))
		if err != nil {
			logging.Warn("Failed to prune session history: %v", err)
			return
		}
		if n > 0 {
			logging.Info("Pruned %d sessions older than %v", n, retention)
		}
		if err := d.SetLastPrune(ctx, time.Now()); err != nil {
			logging.Warn("Failed to store last prune time: %v", err)
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-ctx.Done():
			return
		}
	}
}
