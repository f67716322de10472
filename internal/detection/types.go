// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package detection implements the core engine: views-per-hour velocity
// computation, baseline estimation, rule evaluation, and at-most-once
// alert dispatch through the dedup ledger.
package detection

import (
	"context"
	"time"

	"github.com/tomtom215/surgewatch/internal/models"
)

// RateResult is the outcome of a velocity computation for one video.
// HasSignal is false when there is not enough history, the time span
// between the two snapshots is not positive, or the view delta is
// negative (platform correction). A no-signal result is never an error.
type RateResult struct {
	HasSignal bool

	// RateVPH is the computed views-per-hour. Zero when no signal.
	RateVPH float64

	// VideoAge is the video's age at the newer snapshot, used for the
	// rule eligibility window.
	VideoAge time.Duration

	// ViewCount is the newer snapshot's view count, carried for alert
	// formatting.
	ViewCount int64

	// ObservedAt is the newer snapshot's timestamp.
	ObservedAt time.Time
}

// NoSignal is the zero-rate result.
func NoSignal() RateResult {
	return RateResult{}
}

// Crossing is one watcher-rule pair whose threshold the video's rate
// crossed. Evaluation produces crossings; dispatch consumes them.
type Crossing struct {
	WatchlistID string
	ChannelID   string
	VideoID     string
	Category    models.VideoCategory

	RateVPH   float64
	Threshold float64
	Baseline  float64

	// ViewCount is the newer snapshot's count, carried for the alert
	// text.
	ViewCount int64

	// Rule is the rule as evaluated, snapshotted so later config
	// changes don't retroactively alter the alert text.
	Rule models.AlertRule
}

// Outcome is the result of one dispatch attempt.
type Outcome string

const (
	// Delivered means the claim was won and the webhook accepted the
	// alert.
	Delivered Outcome = "delivered"

	// Skipped means no delivery was attempted: the key was already
	// claimed, the daily cap was reached, or the watchlist has no
	// destination.
	Skipped Outcome = "skipped"

	// DeliveryFailed means the claim was won but the webhook rejected
	// or timed out. The claim stays; the alert is dropped rather than
	// risking a duplicate.
	DeliveryFailed Outcome = "delivery_failed"
)

// Alert is the formatted notification handed to a notifier.
type Alert struct {
	WatchlistID  string               `json:"watchlist_id"`
	ChannelID    string               `json:"channel_id"`
	ChannelTitle string               `json:"channel_title"`
	VideoID      string               `json:"video_id"`
	VideoTitle   string               `json:"video_title"`
	VideoURL     string               `json:"video_url"`
	Category     models.VideoCategory `json:"category"`
	PublishedAt  time.Time            `json:"published_at"`
	ViewCount    int64                `json:"view_count"`
	RateVPH      float64              `json:"rate_vph"`
	Threshold    float64              `json:"threshold_vph"`
	Baseline     float64              `json:"baseline_vph"`
	Multiplier   float64              `json:"multiplier"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Notifier delivers a formatted alert to one destination URL.
type Notifier interface {
	Name() string
	Send(ctx context.Context, destination string, alert *Alert) error
}
