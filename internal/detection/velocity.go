// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/surgewatch/internal/database"
	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/metrics"
	"github.com/tomtom215/surgewatch/internal/models"
)

// SnapshotSource is the slice of the store the calculator reads.
// *database.DB implements it.
type SnapshotSource interface {
	LatestTwo(ctx context.Context, videoID string) (older, newer models.StatsSnapshot, err error)
}

// Calculator derives views-per-hour rates from stored snapshots.
type Calculator struct {
	store SnapshotSource
}

// NewCalculator creates a velocity calculator over the given store.
func NewCalculator(store SnapshotSource) *Calculator {
	return &Calculator{store: store}
}

// ComputeRate computes the video's current views-per-hour from its two
// most recent snapshots. Missing history, a non-positive time span, and
// a negative view delta all produce a no-signal result, never an error;
// only store failures are returned as errors.
func (c *Calculator) ComputeRate(ctx context.Context, video models.Video) (RateResult, error) {
	older, newer, err := c.store.LatestTwo(ctx, video.VideoID)
	if err != nil {
		if errors.Is(err, database.ErrInsufficientData) {
			c.noSignal(video.VideoID, "insufficient_data")
			return NoSignal(), nil
		}
		return NoSignal(), fmt.Errorf("failed to load snapshots for %s: %w", video.VideoID, err)
	}

	deltaViews := newer.ViewCount - older.ViewCount
	deltaHours := newer.ObservedAt.Sub(older.ObservedAt).Hours()

	if deltaHours <= 0 {
		c.noSignal(video.VideoID, "non_positive_span")
		return NoSignal(), nil
	}
	if deltaViews < 0 {
		c.noSignal(video.VideoID, "negative_delta")
		return NoSignal(), nil
	}

	metrics.RatesComputed.WithLabelValues("rate").Inc()
	return RateResult{
		HasSignal:  true,
		RateVPH:    float64(deltaViews) / deltaHours,
		VideoAge:   newer.ObservedAt.Sub(video.PublishedAt),
		ViewCount:  newer.ViewCount,
		ObservedAt: newer.ObservedAt,
	}, nil
}

// noSignal records a no-signal outcome. Data anomalies are expected;
// they are logged at debug only.
func (c *Calculator) noSignal(videoID, reason string) {
	metrics.RatesComputed.WithLabelValues(reason).Inc()
	logging.Debug().Str("video_id", videoID).Str("reason", reason).Msg("no velocity signal")
}
