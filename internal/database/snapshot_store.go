// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/surgewatch/internal/metrics"
	"github.com/tomtom215/surgewatch/internal/models"
)

// AppendSnapshot appends one observation for a video. The append is
// idempotent on (video_id, observed_at): a duplicate is a no-op, not an
// error. ObservedAt is truncated to the minute so a retried poll lands
// on the same key even when the retry happens seconds later.
// Returns true if a row was inserted.
func (db *DB) AppendSnapshot(ctx context.Context, snap models.StatsSnapshot) (bool, error) {
	observedAt := snap.ObservedAt.UTC().Truncate(time.Minute)

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO video_stats_snapshots (video_id, observed_at, view_count, like_count, comment_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (video_id, observed_at) DO NOTHING`,
		snap.VideoID, observedAt, snap.ViewCount, snap.LikeCount, snap.CommentCount,
	)
	if err != nil {
		return false, fmt.Errorf("failed to append snapshot for %s: %w", snap.VideoID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		metrics.SnapshotsDuplicate.Inc()
		return false, nil
	}
	metrics.SnapshotsAppended.Inc()
	return true, nil
}

// LatestTwo returns the two most recent snapshots for a video, older
// first. Returns ErrInsufficientData when fewer than two exist.
func (db *DB) LatestTwo(ctx context.Context, videoID string) (older, newer models.StatsSnapshot, err error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT video_id, observed_at, view_count, like_count, comment_count
		FROM video_stats_snapshots
		WHERE video_id = ?
		ORDER BY observed_at DESC
		LIMIT 2`,
		videoID,
	)
	if err != nil {
		return older, newer, fmt.Errorf("failed to query snapshots for %s: %w", videoID, err)
	}
	defer rows.Close()

	snaps := make([]models.StatsSnapshot, 0, 2)
	for rows.Next() {
		var s models.StatsSnapshot
		if err := rows.Scan(&s.VideoID, &s.ObservedAt, &s.ViewCount, &s.LikeCount, &s.CommentCount); err != nil {
			return older, newer, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return older, newer, fmt.Errorf("snapshot rows error: %w", err)
	}

	if len(snaps) < 2 {
		return older, newer, ErrInsufficientData
	}
	// Query is newest-first; callers want chronological order.
	return snaps[1], snaps[0], nil
}

// LatestSnapshot returns the most recent snapshot for a video, or
// ErrNotFound when the video has no history yet.
func (db *DB) LatestSnapshot(ctx context.Context, videoID string) (models.StatsSnapshot, error) {
	var s models.StatsSnapshot
	err := db.conn.QueryRowContext(ctx, `
		SELECT video_id, observed_at, view_count, like_count, comment_count
		FROM video_stats_snapshots
		WHERE video_id = ?
		ORDER BY observed_at DESC
		LIMIT 1`,
		videoID,
	).Scan(&s.VideoID, &s.ObservedAt, &s.ViewCount, &s.LikeCount, &s.CommentCount)
	if err != nil {
		if isNoRows(err) {
			return s, ErrNotFound
		}
		return s, fmt.Errorf("failed to query latest snapshot for %s: %w", videoID, err)
	}
	return s, nil
}

// SnapshotCount returns the number of snapshots stored for a video.
func (db *DB) SnapshotCount(ctx context.Context, videoID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM video_stats_snapshots WHERE video_id = ?`, videoID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots for %s: %w", videoID, err)
	}
	return n, nil
}
