// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/surgewatch/internal/models"
)

// isNoRows reports whether err is the empty-result sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// UpsertChannel creates or refreshes a channel row.
func (db *DB) UpsertChannel(ctx context.Context, ch models.Channel) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO channels (channel_id, title, handle, uploads_playlist_id,
			subscriber_count, video_count, view_count, resolved_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET
			title = EXCLUDED.title,
			handle = EXCLUDED.handle,
			uploads_playlist_id = EXCLUDED.uploads_playlist_id,
			subscriber_count = EXCLUDED.subscriber_count,
			video_count = EXCLUDED.video_count,
			view_count = EXCLUDED.view_count,
			resolved_at = EXCLUDED.resolved_at,
			updated_at = EXCLUDED.updated_at`,
		ch.ChannelID, ch.Title, ch.Handle, ch.UploadsPlaylistID,
		ch.SubscriberCount, ch.VideoCount, ch.ViewCount, ch.ResolvedAt.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert channel %s: %w", ch.ChannelID, err)
	}
	return nil
}

// GetChannel returns a channel by id, or ErrNotFound.
func (db *DB) GetChannel(ctx context.Context, channelID string) (models.Channel, error) {
	var ch models.Channel
	var resolvedAt sql.NullTime
	err := db.conn.QueryRowContext(ctx, `
		SELECT channel_id, title, handle, uploads_playlist_id,
			subscriber_count, video_count, view_count, resolved_at, updated_at
		FROM channels WHERE channel_id = ?`,
		channelID,
	).Scan(&ch.ChannelID, &ch.Title, &ch.Handle, &ch.UploadsPlaylistID,
		&ch.SubscriberCount, &ch.VideoCount, &ch.ViewCount, &resolvedAt, &ch.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return ch, ErrNotFound
		}
		return ch, fmt.Errorf("failed to query channel %s: %w", channelID, err)
	}
	if resolvedAt.Valid {
		ch.ResolvedAt = resolvedAt.Time
	}
	return ch, nil
}

// UpsertVideo creates a video or applies a category/duration correction.
func (db *DB) UpsertVideo(ctx context.Context, v models.Video) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO videos (video_id, channel_id, title, published_at, duration_seconds, category, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			title = EXCLUDED.title,
			published_at = EXCLUDED.published_at,
			duration_seconds = EXCLUDED.duration_seconds,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at`,
		v.VideoID, v.ChannelID, v.Title, v.PublishedAt.UTC(), v.DurationSeconds, string(v.Category), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert video %s: %w", v.VideoID, err)
	}
	return nil
}

// GetVideo returns a video by id, or ErrNotFound.
func (db *DB) GetVideo(ctx context.Context, videoID string) (models.Video, error) {
	var v models.Video
	var category string
	err := db.conn.QueryRowContext(ctx, `
		SELECT video_id, channel_id, title, published_at, duration_seconds, category, updated_at
		FROM videos WHERE video_id = ?`,
		videoID,
	).Scan(&v.VideoID, &v.ChannelID, &v.Title, &v.PublishedAt, &v.DurationSeconds, &category, &v.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return v, ErrNotFound
		}
		return v, fmt.Errorf("failed to query video %s: %w", videoID, err)
	}
	v.Category = models.VideoCategory(category)
	return v, nil
}

// ChannelVideosInWindow returns a channel's videos of the given
// category published within the last maxAgeHours, newest first.
func (db *DB) ChannelVideosInWindow(ctx context.Context, channelID string, category models.VideoCategory, maxAgeHours float64, now time.Time) ([]models.Video, error) {
	cutoff := now.UTC().Add(-time.Duration(maxAgeHours * float64(time.Hour)))
	rows, err := db.conn.QueryContext(ctx, `
		SELECT video_id, channel_id, title, published_at, duration_seconds, category, updated_at
		FROM videos
		WHERE channel_id = ? AND category = ? AND published_at >= ?
		ORDER BY published_at DESC`,
		channelID, string(category), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos for channel %s: %w", channelID, err)
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		var v models.Video
		var cat string
		if err := rows.Scan(&v.VideoID, &v.ChannelID, &v.Title, &v.PublishedAt, &v.DurationSeconds, &cat, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		v.Category = models.VideoCategory(cat)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListEnabledWatchlists returns all enabled watchlists.
func (db *DB) ListEnabledWatchlists(ctx context.Context) ([]models.Watchlist, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT watchlist_id, enabled, webhook_url, categories
		FROM watchlists
		WHERE enabled = true
		ORDER BY watchlist_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	var out []models.Watchlist
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// WatchersForChannel returns the enabled watchlists tracking a channel.
func (db *DB) WatchersForChannel(ctx context.Context, channelID string) ([]models.Watchlist, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT w.watchlist_id, w.enabled, w.webhook_url, w.categories
		FROM watchlists w
		JOIN watchlist_channels wc ON wc.watchlist_id = w.watchlist_id
		WHERE w.enabled = true AND wc.channel_id = ?
		ORDER BY w.watchlist_id`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchers for channel %s: %w", channelID, err)
	}
	defer rows.Close()

	var out []models.Watchlist
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// TrackedChannelIDs returns the distinct channels with at least one
// enabled watcher, in stable order.
func (db *DB) TrackedChannelIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT wc.channel_id
		FROM watchlist_channels wc
		JOIN watchlists w ON w.watchlist_id = wc.watchlist_id
		WHERE w.enabled = true
		ORDER BY wc.channel_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked channels: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan channel id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// scanWatchlist scans one watchlist row, splitting the comma-separated
// category list.
func scanWatchlist(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Watchlist, error) {
	var w models.Watchlist
	var categories string
	if err := scanner.Scan(&w.WatchlistID, &w.Enabled, &w.WebhookURL, &categories); err != nil {
		return w, fmt.Errorf("failed to scan watchlist: %w", err)
	}
	for _, c := range strings.Split(categories, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			w.Categories = append(w.Categories, models.VideoCategory(c))
		}
	}
	return w, nil
}

// UpsertWatchlist writes a watchlist row. The engine never calls this
// in production; it exists for tests and local seeding, matching the
// schema the external app maintains.
func (db *DB) UpsertWatchlist(ctx context.Context, w models.Watchlist) error {
	cats := make([]string, 0, len(w.Categories))
	for _, c := range w.Categories {
		cats = append(cats, string(c))
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO watchlists (watchlist_id, enabled, webhook_url, categories)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (watchlist_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			webhook_url = EXCLUDED.webhook_url,
			categories = EXCLUDED.categories`,
		w.WatchlistID, w.Enabled, w.WebhookURL, strings.Join(cats, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert watchlist %s: %w", w.WatchlistID, err)
	}
	return nil
}

// AddWatchlistChannel links a channel to a watchlist. Test/seed helper.
func (db *DB) AddWatchlistChannel(ctx context.Context, watchlistID, channelID string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO watchlist_channels (watchlist_id, channel_id)
		VALUES (?, ?)
		ON CONFLICT (watchlist_id, channel_id) DO NOTHING`,
		watchlistID, channelID,
	)
	if err != nil {
		return fmt.Errorf("failed to link channel %s to watchlist %s: %w", channelID, watchlistID, err)
	}
	return nil
}
