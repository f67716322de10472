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

// TryClaim atomically records that an alert for
// (watchlist_id, video_id, category) is being sent. Exactly one caller
// ever observes true for a given key; every other caller, concurrent or
// in a later cycle, observes false. Claims never expire and are never
// rolled back by the engine.
//
// The guarantee rides on the unique constraint plus insert-if-absent,
// so it holds across process restarts and multiple instances sharing
// the database file's store.
func (db *DB) TryClaim(ctx context.Context, alert models.SentAlert) (bool, error) {
	sentAt := alert.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO alerts_sent (watchlist_id, channel_id, video_id, category, rate_vph, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (watchlist_id, video_id, category) DO NOTHING`,
		alert.WatchlistID, alert.ChannelID, alert.VideoID, string(alert.Category), alert.RateVPH, sentAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim alert %s/%s/%s: %w",
			alert.WatchlistID, alert.VideoID, alert.Category, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		metrics.ClaimConflicts.Inc()
		return false, nil
	}
	return true, nil
}

// RecentAlerts returns the most recently sent alerts, newest first.
func (db *DB) RecentAlerts(ctx context.Context, limit int) ([]models.SentAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT watchlist_id, channel_id, video_id, category, rate_vph, sent_at
		FROM alerts_sent
		ORDER BY sent_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	defer rows.Close()

	var out []models.SentAlert
	for rows.Next() {
		var a models.SentAlert
		var cat string
		if err := rows.Scan(&a.WatchlistID, &a.ChannelID, &a.VideoID, &cat, &a.RateVPH, &a.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Category = models.VideoCategory(cat)
		out = append(out, a)
	}
	return out, rows.Err()
}
