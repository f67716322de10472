// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package youtube

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/metrics"
)

// CircuitBreakerClient wraps an API client with the circuit breaker
// pattern so a broken or throttling upstream fails fast instead of
// burning the cycle's fetch budget on doomed requests.
//
// The breaker uses real time for its interval and timeout calculations.
// Unit tests should exercise the wrapped client directly.
type CircuitBreakerClient struct {
	client API
	cb     *gobreaker.CircuitBreaker[interface{}]
}

// NewCircuitBreakerClient wraps client with a breaker tuned for the
// Data API: opens after a 60% failure rate over at least 10 requests,
// probes again after 2 minutes.
func NewCircuitBreakerClient(client API) *CircuitBreakerClient {
	cbName := "youtube-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3, // concurrent probes in half-open state
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb}
}

// GetChannel fetches channel metadata through the breaker.
func (c *CircuitBreakerClient) GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.GetChannel(ctx, channelID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*ChannelInfo), nil
}

// ListRecentUploads lists uploads through the breaker.
func (c *CircuitBreakerClient) ListRecentUploads(ctx context.Context, uploadsPlaylistID string, limit int) ([]UploadRef, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.ListRecentUploads(ctx, uploadsPlaylistID, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]UploadRef), nil
}

// GetVideos fetches video counters through the breaker.
func (c *CircuitBreakerClient) GetVideos(ctx context.Context, videoIDs []string) ([]VideoInfo, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.GetVideos(ctx, videoIDs)
	})
	if err != nil {
		return nil, err
	}
	return result.([]VideoInfo), nil
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
