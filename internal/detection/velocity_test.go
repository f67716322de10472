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

	"github.com/tomtom215/surgewatch/internal/database"
	"github.com/tomtom215/surgewatch/internal/models"
)

// mockSnapshots serves a fixed (older, newer) pair per video id.
type mockSnapshots struct {
	pairs map[string][2]models.StatsSnapshot
	err   error
}

func (m *mockSnapshots) LatestTwo(_ context.Context, videoID string) (models.StatsSnapshot, models.StatsSnapshot, error) {
	if m.err != nil {
		return models.StatsSnapshot{}, models.StatsSnapshot{}, m.err
	}
	pair, ok := m.pairs[videoID]
	if !ok {
		return models.StatsSnapshot{}, models.StatsSnapshot{}, database.ErrInsufficientData
	}
	return pair[0], pair[1], nil
}

func testVideo(publishedAt time.Time) models.Video {
	return models.Video{
		VideoID:     "vid1",
		ChannelID:   "UCchan",
		Category:    models.CategoryLong,
		PublishedAt: publishedAt,
	}
}

func TestComputeRateSixtyThousandPerHour(t *testing.T) {
	published := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	t0 := published.Add(2 * time.Hour)

	calc := NewCalculator(&mockSnapshots{pairs: map[string][2]models.StatsSnapshot{
		"vid1": {
			{VideoID: "vid1", ObservedAt: t0, ViewCount: 100000},
			{VideoID: "vid1", ObservedAt: t0.Add(time.Hour), ViewCount: 160000},
		},
	}})

	rate, err := calc.ComputeRate(context.Background(), testVideo(published))
	if err != nil {
		t.Fatalf("ComputeRate failed: %v", err)
	}
	if !rate.HasSignal {
		t.Fatal("expected a signal")
	}
	if rate.RateVPH != 60000 {
		t.Errorf("expected 60000 vph, got %f", rate.RateVPH)
	}
	if rate.VideoAge != 3*time.Hour {
		t.Errorf("expected age 3h at the newer snapshot, got %s", rate.VideoAge)
	}
	if rate.ViewCount != 160000 {
		t.Errorf("expected view count 160000, got %d", rate.ViewCount)
	}
}

func TestComputeRateInsufficientHistory(t *testing.T) {
	calc := NewCalculator(&mockSnapshots{pairs: map[string][2]models.StatsSnapshot{}})

	rate, err := calc.ComputeRate(context.Background(), testVideo(time.Now().UTC()))
	if err != nil {
		t.Fatalf("insufficient history must not be an error, got %v", err)
	}
	if rate.HasSignal {
		t.Error("expected no signal with fewer than two snapshots")
	}
}

func TestComputeRateAnomalies(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		older models.StatsSnapshot
		newer models.StatsSnapshot
	}{
		{
			name:  "zero time span",
			older: models.StatsSnapshot{VideoID: "vid1", ObservedAt: t0, ViewCount: 100},
			newer: models.StatsSnapshot{VideoID: "vid1", ObservedAt: t0, ViewCount: 200},
		},
		{
			name:  "negative view delta",
			older: models.StatsSnapshot{VideoID: "vid1", ObservedAt: t0, ViewCount: 5000},
			newer: models.StatsSnapshot{VideoID: "vid1", ObservedAt: t0.Add(time.Hour), ViewCount: 4000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator(&mockSnapshots{pairs: map[string][2]models.StatsSnapshot{
				"vid1": {tt.older, tt.newer},
			}})
			rate, err := calc.ComputeRate(context.Background(), testVideo(t0.Add(-time.Hour)))
			if err != nil {
				t.Fatalf("anomaly must not be an error, got %v", err)
			}
			if rate.HasSignal {
				t.Error("expected no signal")
			}
		})
	}
}

func TestComputeRateZeroDeltaIsZeroRate(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	calc := NewCalculator(&mockSnapshots{pairs: map[string][2]models.StatsSnapshot{
		"vid1": {
			{VideoID: "vid1", ObservedAt: t0, ViewCount: 1000},
			{VideoID: "vid1", ObservedAt: t0.Add(time.Hour), ViewCount: 1000},
		},
	}})

	rate, err := calc.ComputeRate(context.Background(), testVideo(t0.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("ComputeRate failed: %v", err)
	}
	if !rate.HasSignal {
		t.Fatal("a flat view count is a valid zero rate, not an anomaly")
	}
	if rate.RateVPH != 0 {
		t.Errorf("expected 0 vph, got %f", rate.RateVPH)
	}
}

func TestComputeRateStoreError(t *testing.T) {
	calc := NewCalculator(&mockSnapshots{err: errors.New("disk gone")})

	_, err := calc.ComputeRate(context.Background(), testVideo(time.Now().UTC()))
	if err == nil {
		t.Fatal("expected store failures to surface as errors")
	}
}
