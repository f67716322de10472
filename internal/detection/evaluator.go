// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"time"

	"github.com/tomtom215/surgewatch/internal/metrics"
	"github.com/tomtom215/surgewatch/internal/models"
)

// WatcherRule pairs one watchlist with its active rule and the baseline
// rate to evaluate against.
type WatcherRule struct {
	Watchlist models.Watchlist
	Rule      models.AlertRule
	Baseline  float64
}

// Evaluate decides, for each watcher, whether the video's rate crosses
// that watcher's threshold. Pure: no store reads, no ledger writes.
//
// The eligibility window is the closed interval
// [MinAgeMinutes, MaxAgeHours]: a video exactly at either boundary is
// eligible. A rule fires when rate >= max(AbsFloorVPH,
// Baseline*Multiplier), again inclusive, so the floor is always a hard
// lower bound and the multiplier can only raise the bar.
func Evaluate(video models.Video, rate RateResult, watchers []WatcherRule) []Crossing {
	if !rate.HasSignal {
		return nil
	}

	var crossings []Crossing
	for _, w := range watchers {
		rule := w.Rule
		if rule.Category != video.Category || !w.Watchlist.WatchesCategory(video.Category) {
			continue
		}

		minAge := time.Duration(rule.MinAgeMinutes) * time.Minute
		maxAge := time.Duration(rule.MaxAgeHours * float64(time.Hour))
		if rate.VideoAge < minAge || rate.VideoAge > maxAge {
			continue
		}

		threshold := rule.AbsFloorVPH
		if t := w.Baseline * rule.Multiplier; t > threshold {
			threshold = t
		}
		if rate.RateVPH < threshold {
			continue
		}

		metrics.Crossings.Inc()
		crossings = append(crossings, Crossing{
			WatchlistID: w.Watchlist.WatchlistID,
			ChannelID:   video.ChannelID,
			VideoID:     video.VideoID,
			Category:    video.Category,
			RateVPH:     rate.RateVPH,
			Threshold:   threshold,
			Baseline:    w.Baseline,
			ViewCount:   rate.ViewCount,
			Rule:        rule,
		})
	}
	return crossings
}
