// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/models"
)

// Default baseline rates when a channel has no young uploads to sample.
// Shorts start higher because their view curves are front-loaded.
const (
	defaultBaselineLongVPH  = 1000
	defaultBaselineShortVPH = 2000
)

// CatalogSource is the slice of the store the baseline estimator reads.
// *database.DB implements it.
type CatalogSource interface {
	ChannelVideosInWindow(ctx context.Context, channelID string, category models.VideoCategory, maxAgeHours float64, now time.Time) ([]models.Video, error)
}

// BaselineEstimator derives a per-(channel, category) reference rate:
// the median current views-per-hour across the channel's recent uploads
// still inside the rule's baseline window. The median resists the skew
// a single already-viral upload would put on a mean.
type BaselineEstimator struct {
	catalog CatalogSource
	calc    *Calculator
}

// NewBaselineEstimator creates a baseline estimator.
func NewBaselineEstimator(catalog CatalogSource, calc *Calculator) *BaselineEstimator {
	return &BaselineEstimator{catalog: catalog, calc: calc}
}

// Baseline estimates the reference rate for a channel and category.
// With no sampleable uploads it falls back to the category default, so
// the multiplier term always has something to work against.
func (b *BaselineEstimator) Baseline(ctx context.Context, channelID string, rule models.AlertRule, now time.Time) float64 {
	fallback := DefaultBaseline(rule.Category)

	videos, err := b.catalog.ChannelVideosInWindow(ctx, channelID, rule.Category, rule.BaselineHours, now)
	if err != nil {
		logging.Warn().Err(err).Str("channel_id", channelID).Msg("baseline lookup failed, using default")
		return fallback
	}
	if len(videos) > rule.BaselineWindowVideos && rule.BaselineWindowVideos > 0 {
		videos = videos[:rule.BaselineWindowVideos]
	}

	samples := make([]float64, 0, len(videos))
	for _, v := range videos {
		rate, err := b.calc.ComputeRate(ctx, v)
		if err != nil {
			logging.Warn().Err(err).Str("video_id", v.VideoID).Msg("baseline sample failed")
			continue
		}
		if rate.HasSignal {
			samples = append(samples, rate.RateVPH)
		}
	}
	if len(samples) == 0 {
		return fallback
	}
	return median(samples)
}

// DefaultBaseline returns the category fallback rate.
func DefaultBaseline(category models.VideoCategory) float64 {
	if category == models.CategoryShort {
		return defaultBaselineShortVPH
	}
	return defaultBaselineLongVPH
}

// median returns the middle value of the samples; the mean of the two
// middle values for even counts. Mutates its argument's order.
func median(samples []float64) float64 {
	sort.Float64s(samples)
	mid := len(samples) / 2
	if len(samples)%2 == 1 {
		return samples[mid]
	}
	return (samples[mid-1] + samples[mid]) / 2
}
