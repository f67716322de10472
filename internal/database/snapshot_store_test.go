// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/surgewatch/internal/models"
)

func TestAppendSnapshotIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	observedAt := time.Date(2026, 8, 1, 12, 15, 0, 0, time.UTC)

	snap := models.StatsSnapshot{
		VideoID:    "vid1",
		ObservedAt: observedAt,
		ViewCount:  100000,
	}

	inserted, err := db.AppendSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if !inserted {
		t.Error("first append should insert")
	}

	inserted, err = db.AppendSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("duplicate append should not error: %v", err)
	}
	if inserted {
		t.Error("duplicate append should be a no-op")
	}

	n, err := db.SnapshotCount(ctx, "vid1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("snapshot count = %d, want exactly 1", n)
	}
}

func TestAppendSnapshotMinuteTruncation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 15, 0, 0, time.UTC)

	// A retried poll lands seconds later but must hit the same key.
	first := models.StatsSnapshot{VideoID: "vid1", ObservedAt: base.Add(3 * time.Second), ViewCount: 100}
	retry := models.StatsSnapshot{VideoID: "vid1", ObservedAt: base.Add(42 * time.Second), ViewCount: 101}

	if _, err := db.AppendSnapshot(ctx, first); err != nil {
		t.Fatal(err)
	}
	inserted, err := db.AppendSnapshot(ctx, retry)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("retry within the same minute should dedupe to the same key")
	}
}

func TestLatestTwoInsufficientData(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, _, err := db.LatestTwo(ctx, "vid-none"); err != ErrInsufficientData {
		t.Errorf("no snapshots: err = %v, want ErrInsufficientData", err)
	}

	if _, err := db.AppendSnapshot(ctx, models.StatsSnapshot{
		VideoID: "vid1", ObservedAt: time.Now(), ViewCount: 10,
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := db.LatestTwo(ctx, "vid1"); err != ErrInsufficientData {
		t.Errorf("one snapshot: err = %v, want ErrInsufficientData", err)
	}
}

func TestLatestTwoOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Append three snapshots out of order; LatestTwo must return the
	// two newest, chronologically ordered.
	for _, snap := range []models.StatsSnapshot{
		{VideoID: "vid1", ObservedAt: t0.Add(30 * time.Minute), ViewCount: 130000},
		{VideoID: "vid1", ObservedAt: t0, ViewCount: 100000},
		{VideoID: "vid1", ObservedAt: t0.Add(15 * time.Minute), ViewCount: 115000},
	} {
		if _, err := db.AppendSnapshot(ctx, snap); err != nil {
			t.Fatal(err)
		}
	}

	older, newer, err := db.LatestTwo(ctx, "vid1")
	if err != nil {
		t.Fatalf("LatestTwo failed: %v", err)
	}
	if !older.ObservedAt.Equal(t0.Add(15 * time.Minute)) {
		t.Errorf("older observed_at = %v, want t0+15m", older.ObservedAt)
	}
	if !newer.ObservedAt.Equal(t0.Add(30 * time.Minute)) {
		t.Errorf("newer observed_at = %v, want t0+30m", newer.ObservedAt)
	}
	if older.ViewCount != 115000 || newer.ViewCount != 130000 {
		t.Errorf("views = %d/%d, want 115000/130000", older.ViewCount, newer.ViewCount)
	}
}

func TestLatestTwoIsolatedPerVideo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Minute)

	for i, vid := range []string{"a", "a", "b"} {
		if _, err := db.AppendSnapshot(ctx, models.StatsSnapshot{
			VideoID:    vid,
			ObservedAt: t0.Add(time.Duration(i) * time.Minute),
			ViewCount:  int64(i * 100),
		}); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := db.LatestTwo(ctx, "b"); err != ErrInsufficientData {
		t.Errorf("video b has one snapshot; err = %v, want ErrInsufficientData", err)
	}
	if _, _, err := db.LatestTwo(ctx, "a"); err != nil {
		t.Errorf("video a has two snapshots; err = %v, want nil", err)
	}
}
