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
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/surgewatch/internal/metrics"
)

// WebhookNotifier posts alerts as JSON to a generic webhook endpoint.
type WebhookNotifier struct {
	client  *http.Client
	headers map[string]string

	mu        sync.Mutex
	lastSent  time.Time
	rateLimit time.Duration
}

// WebhookConfig configures the generic webhook notifier.
type WebhookConfig struct {
	// Headers are custom headers added to every request, e.g. auth.
	Headers map[string]string

	// Timeout bounds a single POST.
	Timeout time.Duration

	// RateLimit is the minimum spacing between messages.
	RateLimit time.Duration
}

// WebhookPayload is the JSON body sent to generic endpoints.
type WebhookPayload struct {
	Alert     *Alert    `json:"alert"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// NewWebhookNotifier creates a generic webhook notifier.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rateLimit := config.RateLimit
	if rateLimit == 0 {
		rateLimit = 500 * time.Millisecond
	}

	headers := make(map[string]string, len(config.Headers))
	for k, v := range config.Headers {
		headers[k] = v
	}

	return &WebhookNotifier{
		client:    &http.Client{Timeout: timeout},
		headers:   headers,
		rateLimit: rateLimit,
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Send delivers one alert to the destination URL.
func (n *WebhookNotifier) Send(ctx context.Context, destination string, alert *Alert) error {
	if err := n.waitRateLimit(ctx); err != nil {
		return err
	}

	payload := WebhookPayload{
		Alert:     alert,
		EventType: "velocity_alert",
		Timestamp: time.Now().UTC(),
		Source:    "surgewatch",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range n.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := n.client.Do(req)
	metrics.WebhookDeliveryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	n.markSent()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// waitRateLimit blocks until the notifier is allowed to send again.
func (n *WebhookNotifier) waitRateLimit(ctx context.Context) error {
	n.mu.Lock()
	wait := n.rateLimit - time.Since(n.lastSent)
	n.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *WebhookNotifier) markSent() {
	n.mu.Lock()
	n.lastSent = time.Now()
	n.mu.Unlock()
}
