// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package database

import "fmt"

// schemaStatements create all tables. Uniqueness keys are load-bearing:
// video_stats_snapshots(video_id, observed_at) makes snapshot appends
// idempotent, and alerts_sent(watchlist_id, video_id, category) is the
// dedup ledger's at-most-once guarantee.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS channels (
		channel_id          VARCHAR PRIMARY KEY,
		title               VARCHAR NOT NULL DEFAULT '',
		handle              VARCHAR NOT NULL DEFAULT '',
		uploads_playlist_id VARCHAR NOT NULL DEFAULT '',
		subscriber_count    BIGINT NOT NULL DEFAULT 0,
		video_count         BIGINT NOT NULL DEFAULT 0,
		view_count          BIGINT NOT NULL DEFAULT 0,
		resolved_at         TIMESTAMP,
		updated_at          TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS videos (
		video_id         VARCHAR PRIMARY KEY,
		channel_id       VARCHAR NOT NULL,
		title            VARCHAR NOT NULL DEFAULT '',
		published_at     TIMESTAMP NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		category         VARCHAR NOT NULL,
		updated_at       TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS video_stats_snapshots (
		video_id      VARCHAR NOT NULL,
		observed_at   TIMESTAMP NOT NULL,
		view_count    BIGINT NOT NULL,
		like_count    BIGINT NOT NULL DEFAULT 0,
		comment_count BIGINT NOT NULL DEFAULT 0,
		UNIQUE (video_id, observed_at)
	)`,

	`CREATE TABLE IF NOT EXISTS watchlists (
		watchlist_id VARCHAR PRIMARY KEY,
		enabled      BOOLEAN NOT NULL DEFAULT true,
		webhook_url  VARCHAR NOT NULL DEFAULT '',
		categories   VARCHAR NOT NULL DEFAULT 'long,short'
	)`,

	`CREATE TABLE IF NOT EXISTS watchlist_channels (
		watchlist_id VARCHAR NOT NULL,
		channel_id   VARCHAR NOT NULL,
		UNIQUE (watchlist_id, channel_id)
	)`,

	`CREATE TABLE IF NOT EXISTS alert_rules (
		watchlist_id           VARCHAR NOT NULL,
		category               VARCHAR NOT NULL,
		multiplier             DOUBLE NOT NULL,
		abs_floor_vph          DOUBLE NOT NULL,
		min_age_minutes        INTEGER NOT NULL,
		max_age_hours          DOUBLE NOT NULL,
		baseline_window_videos INTEGER NOT NULL,
		baseline_hours         DOUBLE NOT NULL,
		daily_cap_per_channel  INTEGER NOT NULL,
		UNIQUE (watchlist_id, category)
	)`,

	`CREATE TABLE IF NOT EXISTS alerts_sent (
		watchlist_id VARCHAR NOT NULL,
		channel_id   VARCHAR NOT NULL,
		video_id     VARCHAR NOT NULL,
		category     VARCHAR NOT NULL,
		rate_vph     DOUBLE NOT NULL DEFAULT 0,
		sent_at      TIMESTAMP NOT NULL,
		UNIQUE (watchlist_id, video_id, category)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_snapshots_video_observed
		ON video_stats_snapshots (video_id, observed_at)`,

	`CREATE INDEX IF NOT EXISTS idx_videos_channel_published
		ON videos (channel_id, published_at)`,

	`CREATE INDEX IF NOT EXISTS idx_alerts_sent_watchlist_channel
		ON alerts_sent (watchlist_id, channel_id, sent_at)`,
}

// initSchema creates tables and indexes if they do not exist.
func (db *DB) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
