// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/surgewatch/internal/models"
)

func notifierAlert() *Alert {
	return &Alert{
		WatchlistID:  "user1",
		ChannelID:    "UCchan",
		ChannelTitle: "Test Channel",
		VideoID:      "vid1",
		VideoTitle:   "Big Video",
		VideoURL:     "https://www.youtube.com/watch?v=vid1",
		Category:     models.CategoryLong,
		PublishedAt:  time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		ViewCount:    160000,
		RateVPH:      60000,
		Threshold:    25000,
		Baseline:     10000,
		Multiplier:   2.5,
		CreatedAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifierSendsPayload(t *testing.T) {
	var received WebhookPayload
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
	}))
	defer server.Close()

	n := NewWebhookNotifier(WebhookConfig{
		Headers:   map[string]string{"Authorization": "Bearer token"},
		RateLimit: time.Millisecond,
	})

	if err := n.Send(context.Background(), server.URL, notifierAlert()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotAuth != "Bearer token" {
		t.Errorf("expected custom header to be forwarded, got %q", gotAuth)
	}
	if received.EventType != "velocity_alert" || received.Source != "surgewatch" {
		t.Errorf("unexpected envelope: %+v", received)
	}
	if received.Alert == nil || received.Alert.VideoID != "vid1" {
		t.Errorf("alert not carried in payload: %+v", received.Alert)
	}
	if received.Alert.RateVPH != 60000 {
		t.Errorf("expected 60000 vph, got %f", received.Alert.RateVPH)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewWebhookNotifier(WebhookConfig{RateLimit: time.Millisecond})
	err := n.Send(context.Background(), server.URL, notifierAlert())
	if err == nil {
		t.Fatal("expected error on 400 response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestDiscordNotifierSendsContent(t *testing.T) {
	var received discordMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{RateLimit: time.Millisecond})
	if err := n.Send(context.Background(), server.URL, notifierAlert()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	for _, want := range []string{
		"Test Channel",
		"Big Video",
		"https://www.youtube.com/watch?v=vid1",
		"Category: long",
		"Views: 160000",
		"Rate: 60000 vph (threshold 25000)",
		"Baseline: 10000 vph × 2.5",
	} {
		if !strings.Contains(received.Content, want) {
			t.Errorf("message missing %q:\n%s", want, received.Content)
		}
	}
}

func TestDiscordNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{RateLimit: time.Millisecond})
	if err := n.Send(context.Background(), server.URL, notifierAlert()); err == nil {
		t.Fatal("expected error on 429 response")
	}
}

func TestBuildMessageFormat(t *testing.T) {
	msg := BuildMessage(notifierAlert())

	lines := strings.Split(msg, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), msg)
	}
	if !strings.HasPrefix(lines[0], "🚨 Velocity spike:") {
		t.Errorf("unexpected headline: %s", lines[0])
	}
	if lines[1] != "https://www.youtube.com/watch?v=vid1" {
		t.Errorf("expected video URL on its own line, got %s", lines[1])
	}
	if !strings.Contains(lines[2], "Published: 2026-08-30T09:00:00Z") {
		t.Errorf("expected published timestamp, got %s", lines[2])
	}
}
