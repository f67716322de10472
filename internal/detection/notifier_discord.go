// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/surgewatch/internal/metrics"
)

// DiscordNotifier posts alerts as plain-text messages to Discord
// webhook URLs.
type DiscordNotifier struct {
	client *http.Client

	mu        sync.Mutex
	lastSent  time.Time
	rateLimit time.Duration
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	// Timeout bounds a single POST.
	Timeout time.Duration

	// RateLimit is the minimum spacing between messages. Discord
	// throttles webhooks hard, so the default is a full second.
	RateLimit time.Duration
}

// NewDiscordNotifier creates a Discord notifier.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rateLimit := config.RateLimit
	if rateLimit == 0 {
		rateLimit = time.Second
	}

	return &DiscordNotifier{
		client:    &http.Client{Timeout: timeout},
		rateLimit: rateLimit,
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Send delivers one alert to a Discord webhook.
func (n *DiscordNotifier) Send(ctx context.Context, destination string, alert *Alert) error {
	n.mu.Lock()
	wait := n.rateLimit - time.Since(n.lastSent)
	n.mu.Unlock()
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	body, err := json.Marshal(discordMessage{Content: BuildMessage(alert)})
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := n.client.Do(req)
	metrics.WebhookDeliveryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	n.mu.Lock()
	n.lastSent = time.Now()
	n.mu.Unlock()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("discord webhook returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// BuildMessage renders the human-readable alert text: headline, video
// link, then the numbers behind the crossing.
func BuildMessage(alert *Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Velocity spike: %s — %s\n", alert.ChannelTitle, alert.VideoTitle)
	fmt.Fprintf(&b, "%s\n", alert.VideoURL)
	fmt.Fprintf(&b, "Category: %s | Published: %s\n",
		alert.Category, alert.PublishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Views: %d | Rate: %.0f vph (threshold %.0f)\n",
		alert.ViewCount, alert.RateVPH, alert.Threshold)
	fmt.Fprintf(&b, "Baseline: %.0f vph × %.1f", alert.Baseline, alert.Multiplier)
	return b.String()
}

type discordMessage struct {
	Content string `json:"content"`
}
