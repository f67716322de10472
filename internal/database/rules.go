// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/surgewatch/internal/models"
)

// GetActiveRule returns the active rule for a (watchlist, category)
// pair, or ErrNotFound when none is stored. A stored rule with
// nonsensical values is returned as an error so the caller can skip
// that watchlist without blocking others.
func (db *DB) GetActiveRule(ctx context.Context, watchlistID string, category models.VideoCategory) (models.AlertRule, error) {
	var r models.AlertRule
	var cat string
	err := db.conn.QueryRowContext(ctx, `
		SELECT watchlist_id, category, multiplier, abs_floor_vph, min_age_minutes,
			max_age_hours, baseline_window_videos, baseline_hours, daily_cap_per_channel
		FROM alert_rules
		WHERE watchlist_id = ? AND category = ?`,
		watchlistID, string(category),
	).Scan(&r.WatchlistID, &cat, &r.Multiplier, &r.AbsFloorVPH, &r.MinAgeMinutes,
		&r.MaxAgeHours, &r.BaselineWindowVideos, &r.BaselineHours, &r.DailyCapPerChannel)
	if err != nil {
		if isNoRows(err) {
			return r, ErrNotFound
		}
		return r, fmt.Errorf("failed to query rule for %s/%s: %w", watchlistID, category, err)
	}
	r.Category = models.VideoCategory(cat)

	if !r.Category.Valid() || r.Multiplier < 0 || r.AbsFloorVPH < 0 || r.MaxAgeHours <= 0 {
		return r, fmt.Errorf("malformed rule for %s/%s: multiplier=%v floor=%v max_age=%v",
			watchlistID, category, r.Multiplier, r.AbsFloorVPH, r.MaxAgeHours)
	}
	return r, nil
}

// UpsertRule atomically replaces the active rule for the rule's
// (watchlist, category) key. There is never a transient state with zero
// or two active rules for the same key.
func (db *DB) UpsertRule(ctx context.Context, r models.AlertRule) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO alert_rules (watchlist_id, category, multiplier, abs_floor_vph,
			min_age_minutes, max_age_hours, baseline_window_videos, baseline_hours, daily_cap_per_channel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (watchlist_id, category) DO UPDATE SET
			multiplier = EXCLUDED.multiplier,
			abs_floor_vph = EXCLUDED.abs_floor_vph,
			min_age_minutes = EXCLUDED.min_age_minutes,
			max_age_hours = EXCLUDED.max_age_hours,
			baseline_window_videos = EXCLUDED.baseline_window_videos,
			baseline_hours = EXCLUDED.baseline_hours,
			daily_cap_per_channel = EXCLUDED.daily_cap_per_channel`,
		r.WatchlistID, string(r.Category), r.Multiplier, r.AbsFloorVPH,
		r.MinAgeMinutes, r.MaxAgeHours, r.BaselineWindowVideos, r.BaselineHours, r.DailyCapPerChannel,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rule for %s/%s: %w", r.WatchlistID, r.Category, err)
	}
	return nil
}

// AlertsSentToday counts ledger rows for a (watchlist, channel) pair
// since midnight UTC. Used to enforce the per-channel daily cap.
func (db *DB) AlertsSentToday(ctx context.Context, watchlistID, channelID string, now time.Time) (int, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT count(*)
		FROM alerts_sent
		WHERE watchlist_id = ? AND channel_id = ? AND sent_at >= ?`,
		watchlistID, channelID, dayStart,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count today's alerts for %s/%s: %w", watchlistID, channelID, err)
	}
	return n, nil
}
