// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/surgewatch/internal/config"
	"github.com/tomtom215/surgewatch/internal/database"
	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/models"
)

// RuleSource is the slice of the store the engine reads rules from.
// *database.DB implements it.
type RuleSource interface {
	GetActiveRule(ctx context.Context, watchlistID string, category models.VideoCategory) (models.AlertRule, error)
}

// Engine runs the per-video pipeline: compute the rate, load each
// watcher's rule, estimate the baseline, evaluate, and dispatch the
// crossings. Rules and watchlists are read fresh on every call; the
// engine never caches them across cycles, so threshold edits made by
// the external app take effect on the next cycle at the latest.
type Engine struct {
	calc       *Calculator
	baseline   *BaselineEstimator
	dispatcher *Dispatcher
	rules      RuleSource

	longOverrides  config.RuleOverrides
	shortOverrides config.RuleOverrides

	now func() time.Time
}

// NewEngine creates a detection engine.
func NewEngine(calc *Calculator, baseline *BaselineEstimator, dispatcher *Dispatcher, rules RuleSource, alerts *config.AlertsConfig) *Engine {
	return &Engine{
		calc:           calc,
		baseline:       baseline,
		dispatcher:     dispatcher,
		rules:          rules,
		longOverrides:  alerts.Long,
		shortOverrides: alerts.Short,
		now:            time.Now,
	}
}

// ProcessVideo evaluates one video against all of its channel's
// watchers and dispatches any crossings. Returns the number of
// delivered alerts. A malformed rule skips that watchlist only; store
// failures for the video itself are returned as errors.
func (e *Engine) ProcessVideo(ctx context.Context, channel models.Channel, video models.Video, watchers []models.Watchlist) (int, error) {
	rate, err := e.calc.ComputeRate(ctx, video)
	if err != nil {
		return 0, err
	}
	if !rate.HasSignal {
		return 0, nil
	}

	watcherRules, byWatchlist := e.loadWatcherRules(ctx, video, watchers)
	if len(watcherRules) == 0 {
		return 0, nil
	}

	crossings := Evaluate(video, rate, watcherRules)
	if len(crossings) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, crossing := range crossings {
		watchlist, ok := byWatchlist[crossing.WatchlistID]
		if !ok {
			continue
		}
		outcome, err := e.dispatcher.MaybeSend(ctx, crossing, watchlist, video, channel)
		if err != nil {
			logging.Error().Err(err).
				Str("watchlist_id", crossing.WatchlistID).
				Str("video_id", crossing.VideoID).
				Msg("dispatch failed")
			continue
		}
		if outcome == Delivered {
			delivered++
		}
	}
	return delivered, nil
}

// loadWatcherRules resolves each watcher's active rule for the video's
// category, falling back to the (config-adjusted) default when none is
// stored. Baselines are computed once per distinct window shape rather
// than once per watcher.
func (e *Engine) loadWatcherRules(ctx context.Context, video models.Video, watchers []models.Watchlist) ([]WatcherRule, map[string]models.Watchlist) {
	type windowKey struct {
		hours  float64
		videos int
	}
	baselines := make(map[windowKey]float64)
	byWatchlist := make(map[string]models.Watchlist, len(watchers))
	now := e.now().UTC()

	var out []WatcherRule
	for _, w := range watchers {
		if !w.WatchesCategory(video.Category) {
			continue
		}

		rule, err := e.ruleFor(ctx, w.WatchlistID, video.Category)
		if err != nil {
			logging.Warn().Err(err).
				Str("watchlist_id", w.WatchlistID).
				Str("category", string(video.Category)).
				Msg("skipping watchlist with unusable rule")
			continue
		}

		key := windowKey{hours: rule.BaselineHours, videos: rule.BaselineWindowVideos}
		baseline, ok := baselines[key]
		if !ok {
			baseline = e.baseline.Baseline(ctx, video.ChannelID, rule, now)
			baselines[key] = baseline
		}

		byWatchlist[w.WatchlistID] = w
		out = append(out, WatcherRule{Watchlist: w, Rule: rule, Baseline: baseline})
	}
	return out, byWatchlist
}

// ruleFor returns the stored active rule, or the built-in default with
// config overrides applied when the watchlist has none.
func (e *Engine) ruleFor(ctx context.Context, watchlistID string, category models.VideoCategory) (models.AlertRule, error) {
	rule, err := e.rules.GetActiveRule(ctx, watchlistID, category)
	if err == nil {
		return rule, nil
	}
	if errors.Is(err, database.ErrNotFound) {
		return e.defaultRule(watchlistID, category), nil
	}
	return models.AlertRule{}, fmt.Errorf("failed to load rule: %w", err)
}

// defaultRule applies the config overrides for the category to the
// built-in defaults.
func (e *Engine) defaultRule(watchlistID string, category models.VideoCategory) models.AlertRule {
	rule := models.DefaultRule(watchlistID, category)
	overrides := e.longOverrides
	if category == models.CategoryShort {
		overrides = e.shortOverrides
	}

	if overrides.Multiplier > 0 {
		rule.Multiplier = overrides.Multiplier
	}
	if overrides.AbsFloorVPH > 0 {
		rule.AbsFloorVPH = overrides.AbsFloorVPH
	}
	// MinAgeMinutes uses -1 as the "no override" sentinel so the window
	// can be lowered to zero in development.
	if overrides.MinAgeMinutes >= 0 {
		rule.MinAgeMinutes = overrides.MinAgeMinutes
	}
	if overrides.MaxAgeHours > 0 {
		rule.MaxAgeHours = overrides.MaxAgeHours
	}
	return rule
}
