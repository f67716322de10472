// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package models defines the domain types shared across the engine:
// tracked channels and videos, view-count snapshots, watchlists, alert
// rules, and the sent-alert ledger rows.
package models

import "time"

// VideoCategory classifies a video by duration.
type VideoCategory string

const (
	// CategoryShort is a video of 60 seconds or less.
	CategoryShort VideoCategory = "short"
	// CategoryLong is any video longer than 60 seconds.
	CategoryLong VideoCategory = "long"
)

// Valid reports whether the category is one of the known values.
func (c VideoCategory) Valid() bool {
	return c == CategoryShort || c == CategoryLong
}

// Channel is a tracked YouTube channel. Created on first successful
// resolution, refreshed opportunistically during ingestion.
type Channel struct {
	ChannelID         string    `json:"channel_id"`
	Title             string    `json:"title"`
	Handle            string    `json:"handle,omitempty"`
	UploadsPlaylistID string    `json:"uploads_playlist_id,omitempty"`
	SubscriberCount   int64     `json:"subscriber_count"`
	VideoCount        int64     `json:"video_count"`
	ViewCount         int64     `json:"view_count"`
	ResolvedAt        time.Time `json:"resolved_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Video is a tracked upload. Immutable except for category corrections
// when a re-fetch reports a different duration.
type Video struct {
	VideoID         string        `json:"video_id"`
	ChannelID       string        `json:"channel_id"`
	Title           string        `json:"title"`
	PublishedAt     time.Time     `json:"published_at"`
	DurationSeconds int           `json:"duration_seconds"`
	Category        VideoCategory `json:"category"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// StatsSnapshot is one observation of a video's counters.
// Append-only; (VideoID, ObservedAt) is unique.
type StatsSnapshot struct {
	VideoID      string    `json:"video_id"`
	ObservedAt   time.Time `json:"observed_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
}

// Watchlist is one user's tracking configuration. Maintained by the
// external app; the engine reads it fresh at the start of each cycle.
type Watchlist struct {
	WatchlistID string          `json:"watchlist_id"`
	Enabled     bool            `json:"enabled"`
	WebhookURL  string          `json:"webhook_url,omitempty"`
	Categories  []VideoCategory `json:"categories"`
}

// WatchesCategory reports whether the watchlist tracks the given category.
func (w *Watchlist) WatchesCategory(c VideoCategory) bool {
	for _, cat := range w.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// AlertRule is the active rule for one (watchlist, category) pair.
// Exactly one active rule exists per pair; upserts replace atomically.
type AlertRule struct {
	WatchlistID          string        `json:"watchlist_id"`
	Category             VideoCategory `json:"category"`
	Multiplier           float64       `json:"multiplier"`
	AbsFloorVPH          float64       `json:"abs_floor_vph"`
	MinAgeMinutes        int           `json:"min_age_minutes"`
	MaxAgeHours          float64       `json:"max_age_hours"`
	BaselineWindowVideos int           `json:"baseline_window_videos"`
	BaselineHours        float64       `json:"baseline_hours"`
	DailyCapPerChannel   int           `json:"daily_cap_per_channel"`
}

// DefaultRule returns the built-in rule for a category. Shorts get a
// higher floor and a tighter age window because their view curves are
// front-loaded and noisier.
func DefaultRule(watchlistID string, category VideoCategory) AlertRule {
	rule := AlertRule{
		WatchlistID:          watchlistID,
		Category:             category,
		Multiplier:           2.5,
		AbsFloorVPH:          5000,
		MinAgeMinutes:        30,
		MaxAgeHours:          24,
		BaselineWindowVideos: 20,
		BaselineHours:        6,
		DailyCapPerChannel:   2,
	}
	if category == CategoryShort {
		rule.Multiplier = 3.0
		rule.AbsFloorVPH = 10000
		rule.MinAgeMinutes = 15
		rule.MaxAgeHours = 12
	}
	return rule
}

// SentAlert is a dedup ledger row. Presence of a row is the sole source
// of truth for "already alerted" on (WatchlistID, VideoID, Category).
type SentAlert struct {
	WatchlistID string        `json:"watchlist_id"`
	ChannelID   string        `json:"channel_id"`
	VideoID     string        `json:"video_id"`
	Category    VideoCategory `json:"category"`
	RateVPH     float64       `json:"rate_vph"`
	SentAt      time.Time     `json:"sent_at"`
}
