// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/surgewatch/internal/config"
	"github.com/tomtom215/surgewatch/internal/database"
	"github.com/tomtom215/surgewatch/internal/models"
)

type mockRules struct {
	rules map[string]models.AlertRule
	errs  map[string]error
}

func (m *mockRules) GetActiveRule(_ context.Context, watchlistID string, category models.VideoCategory) (models.AlertRule, error) {
	key := watchlistID + "|" + string(category)
	if err, ok := m.errs[key]; ok {
		return models.AlertRule{}, err
	}
	if rule, ok := m.rules[key]; ok {
		return rule, nil
	}
	return models.AlertRule{}, database.ErrNotFound
}

func defaultAlertsConfig() *config.AlertsConfig {
	return &config.AlertsConfig{
		Long:  config.RuleOverrides{MinAgeMinutes: -1},
		Short: config.RuleOverrides{MinAgeMinutes: -1},
	}
}

// engineFixture wires a full engine over in-memory mocks: one video
// published 3h ago, climbing 60000 views over the last hour.
type engineFixture struct {
	engine  *Engine
	ledger  *mockLedger
	webhook *mockNotifier
	rules   *mockRules
	video   models.Video
	channel models.Channel
}

func newEngineFixture(alerts *config.AlertsConfig) *engineFixture {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	video := models.Video{
		VideoID:     "vid1",
		ChannelID:   "UCchan",
		Title:       "Big Video",
		Category:    models.CategoryLong,
		PublishedAt: now.Add(-3 * time.Hour),
	}

	calc := NewCalculator(&mockSnapshots{pairs: map[string][2]models.StatsSnapshot{
		"vid1": {
			{VideoID: "vid1", ObservedAt: now.Add(-time.Hour), ViewCount: 100000},
			{VideoID: "vid1", ObservedAt: now, ViewCount: 160000},
		},
	}})
	baseline := NewBaselineEstimator(&mockCatalog{}, calc)

	ledger := newMockLedger()
	webhook := &mockNotifier{name: "webhook"}
	dispatcher := NewDispatcher(ledger, &mockNotifier{name: "discord"}, webhook, "")
	rules := &mockRules{rules: map[string]models.AlertRule{}, errs: map[string]error{}}

	return &engineFixture{
		engine:  NewEngine(calc, baseline, dispatcher, rules, alerts),
		ledger:  ledger,
		webhook: webhook,
		rules:   rules,
		video:   video,
		channel: models.Channel{ChannelID: "UCchan", Title: "Test Channel"},
	}
}

func engineWatchlist(id string) models.Watchlist {
	return models.Watchlist{
		WatchlistID: id,
		Enabled:     true,
		WebhookURL:  "https://hooks.example.com/" + id,
		Categories:  []models.VideoCategory{models.CategoryLong},
	}
}

func TestProcessVideoDeliversWithDefaultRule(t *testing.T) {
	f := newEngineFixture(defaultAlertsConfig())

	delivered, err := f.engine.ProcessVideo(context.Background(), f.channel, f.video, []models.Watchlist{engineWatchlist("user1")})
	if err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}

	alert := f.webhook.alerts[0]
	if alert.RateVPH != 60000 {
		t.Errorf("expected 60000 vph in alert, got %f", alert.RateVPH)
	}
	if alert.Baseline != 1000 {
		t.Errorf("expected fallback baseline 1000, got %f", alert.Baseline)
	}
}

func TestProcessVideoSecondRunDeliversNothing(t *testing.T) {
	f := newEngineFixture(defaultAlertsConfig())
	watchers := []models.Watchlist{engineWatchlist("user1")}

	if delivered, _ := f.engine.ProcessVideo(context.Background(), f.channel, f.video, watchers); delivered != 1 {
		t.Fatalf("first run: expected 1 delivery, got %d", delivered)
	}

	// Same video, no new snapshots: the crossing repeats but the ledger
	// already holds the claim.
	delivered, err := f.engine.ProcessVideo(context.Background(), f.channel, f.video, watchers)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("re-running with no new data must deliver nothing, got %d", delivered)
	}
	if f.webhook.sendCount() != 1 {
		t.Errorf("expected exactly one webhook send across both runs, got %d", f.webhook.sendCount())
	}
}

func TestProcessVideoMalformedRuleSkipsOnlyThatWatchlist(t *testing.T) {
	f := newEngineFixture(defaultAlertsConfig())
	f.rules.errs["user1|long"] = errors.New("malformed rule row")

	watchers := []models.Watchlist{engineWatchlist("user1"), engineWatchlist("user2")}
	delivered, err := f.engine.ProcessVideo(context.Background(), f.channel, f.video, watchers)
	if err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected the healthy watchlist to still deliver, got %d", delivered)
	}
	if f.webhook.destinations[0] != "https://hooks.example.com/user2" {
		t.Errorf("expected delivery to user2, got %s", f.webhook.destinations[0])
	}
}

func TestProcessVideoUsesStoredRule(t *testing.T) {
	f := newEngineFixture(defaultAlertsConfig())

	strict := models.DefaultRule("user1", models.CategoryLong)
	strict.AbsFloorVPH = 500000 // rate of 60000 must not fire
	f.rules.rules["user1|long"] = strict

	delivered, err := f.engine.ProcessVideo(context.Background(), f.channel, f.video, []models.Watchlist{engineWatchlist("user1")})
	if err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("stored rule with a high floor must suppress delivery, got %d", delivered)
	}
}

func TestProcessVideoConfigOverrides(t *testing.T) {
	alerts := defaultAlertsConfig()
	alerts.Long.AbsFloorVPH = 500000 // raise the default floor above the rate

	f := newEngineFixture(alerts)
	delivered, err := f.engine.ProcessVideo(context.Background(), f.channel, f.video, []models.Watchlist{engineWatchlist("user1")})
	if err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("overridden default floor must suppress delivery, got %d", delivered)
	}
}

func TestProcessVideoSkipsNonWatchingCategories(t *testing.T) {
	f := newEngineFixture(defaultAlertsConfig())

	shortsOnly := engineWatchlist("user1")
	shortsOnly.Categories = []models.VideoCategory{models.CategoryShort}

	delivered, err := f.engine.ProcessVideo(context.Background(), f.channel, f.video, []models.Watchlist{shortsOnly})
	if err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("a shorts-only watchlist must not get long-video alerts, got %d", delivered)
	}
}
