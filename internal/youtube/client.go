// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package youtube implements the upstream Data API v3 client: channel
// and video metadata fetches, recent-upload listings, handle
// resolution, and the resilience layer around them (retry with backoff,
// a shared quota limiter, and a circuit breaker).
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/surgewatch/internal/config"
	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/metrics"
)

// ErrChannelNotFound is returned when the API knows nothing about the
// requested channel or handle.
var ErrChannelNotFound = errors.New("channel not found")

// maxIDsPerRequest is the API's cap on comma-joined ids per videos call.
const maxIDsPerRequest = 50

// API is the surface the scheduler consumes. *Client and
// *CircuitBreakerClient both implement it.
type API interface {
	GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error)
	ListRecentUploads(ctx context.Context, uploadsPlaylistID string, limit int) ([]UploadRef, error)
	GetVideos(ctx context.Context, videoIDs []string) ([]VideoInfo, error)
}

// ChannelInfo is the subset of channel metadata the engine tracks.
type ChannelInfo struct {
	ChannelID         string
	Title             string
	Handle            string
	UploadsPlaylistID string
	SubscriberCount   int64
	VideoCount        int64
	ViewCount         int64
}

// UploadRef identifies one recent upload from a channel's uploads
// playlist.
type UploadRef struct {
	VideoID     string
	PublishedAt time.Time
}

// VideoInfo is the per-video metadata and counters from a videos call.
type VideoInfo struct {
	VideoID      string
	Title        string
	PublishedAt  time.Time
	Duration     string // ISO-8601, e.g. PT1H3M
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
}

// Client talks to the YouTube Data API v3. All requests share one
// rate limiter so concurrent workers stay inside the quota budget.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	retryAttempts int
	retryDelay    time.Duration
}

// NewClient creates a Data API client from configuration.
func NewClient(cfg *config.YouTubeConfig) *Client {
	perSecond := rate.Limit(float64(cfg.QuotaPerMinute) / 60.0)
	burst := cfg.QuotaPerMinute / 6
	if burst < 1 {
		burst = 1
	}

	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		limiter:       rate.NewLimiter(perSecond, burst),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// GetChannel fetches channel metadata and statistics by channel id.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", channelID)

	var resp channelListResponse
	if err := c.get(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrChannelNotFound
	}
	return resp.Items[0].toInfo(), nil
}

// GetChannelByHandle fetches channel metadata by @handle.
func (c *Client) GetChannelByHandle(ctx context.Context, handle string) (*ChannelInfo, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("forHandle", handle)

	var resp channelListResponse
	if err := c.get(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrChannelNotFound
	}
	return resp.Items[0].toInfo(), nil
}

// ListRecentUploads returns up to limit recent uploads, newest first,
// paging through the channel's uploads playlist.
func (c *Client) ListRecentUploads(ctx context.Context, uploadsPlaylistID string, limit int) ([]UploadRef, error) {
	var out []UploadRef
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("part", "contentDetails,snippet")
		params.Set("maxResults", "50")
		params.Set("playlistId", uploadsPlaylistID)
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp playlistItemsResponse
		if err := c.get(ctx, "playlistItems", params, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			if item.ContentDetails.VideoID == "" || item.Snippet.PublishedAt.IsZero() {
				continue
			}
			out = append(out, UploadRef{
				VideoID:     item.ContentDetails.VideoID,
				PublishedAt: item.Snippet.PublishedAt,
			})
			if len(out) >= limit {
				return out, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

// GetVideos fetches metadata and counters for the given video ids,
// batching requests at the API's 50-id cap.
func (c *Client) GetVideos(ctx context.Context, videoIDs []string) ([]VideoInfo, error) {
	ids := make([]string, 0, len(videoIDs))
	for _, id := range videoIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var out []VideoInfo
	for start := 0; start < len(ids); start += maxIDsPerRequest {
		end := start + maxIDsPerRequest
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{}
		params.Set("part", "snippet,contentDetails,statistics")
		params.Set("id", strings.Join(ids[start:end], ","))

		var resp videoListResponse
		if err := c.get(ctx, "videos", params, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			out = append(out, item.toInfo())
		}
	}
	return out, nil
}

// get performs one API call with quota limiting and bounded retry.
// 429 and 5xx responses and transport errors are retried with
// exponential backoff; other HTTP errors fail immediately.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dst interface{}) error {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			metrics.UpstreamRetries.Inc()
			sleep := c.retryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.doOnce(ctx, endpoint, reqURL, dst)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		logging.Warn().Err(lastErr).Str("endpoint", endpoint).Int("attempt", attempt).Msg("upstream request failed")
	}
	return fmt.Errorf("%s: retries exhausted: %w", endpoint, lastErr)
}

// doOnce performs a single request/decode round trip.
func (c *Client) doOnce(ctx context.Context, endpoint, reqURL string, dst interface{}) error {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	metrics.QuotaWaitDuration.Observe(time.Since(waitStart).Seconds())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestErrors.WithLabelValues(endpoint, "network").Inc()
		return &retryableError{fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		metrics.UpstreamRequestErrors.WithLabelValues(endpoint, "http_5xx").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return &retryableError{fmt.Errorf("retryable status %d: %s", resp.StatusCode, body)}
	}
	if resp.StatusCode >= 400 {
		metrics.UpstreamRequestErrors.WithLabelValues(endpoint, "http_4xx").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		metrics.UpstreamRequestErrors.WithLabelValues(endpoint, "decode").Inc()
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// retryableError marks errors worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Wire types. Counter fields arrive as strings from the API.

type channelListResponse struct {
	Items []channelItem `json:"items"`
}

type channelItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title     string `json:"title"`
		CustomURL string `json:"customUrl"`
	} `json:"snippet"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
	Statistics struct {
		SubscriberCount string `json:"subscriberCount"`
		VideoCount      string `json:"videoCount"`
		ViewCount       string `json:"viewCount"`
	} `json:"statistics"`
}

func (c channelItem) toInfo() *ChannelInfo {
	return &ChannelInfo{
		ChannelID:         c.ID,
		Title:             c.Snippet.Title,
		Handle:            c.Snippet.CustomURL,
		UploadsPlaylistID: c.ContentDetails.RelatedPlaylists.Uploads,
		SubscriberCount:   parseCount(c.Statistics.SubscriberCount),
		VideoCount:        parseCount(c.Statistics.VideoCount),
		ViewCount:         parseCount(c.Statistics.ViewCount),
	}
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
		Snippet struct {
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string    `json:"title"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

func (v videoItem) toInfo() VideoInfo {
	return VideoInfo{
		VideoID:      v.ID,
		Title:        v.Snippet.Title,
		PublishedAt:  v.Snippet.PublishedAt,
		Duration:     v.ContentDetails.Duration,
		ViewCount:    parseCount(v.Statistics.ViewCount),
		LikeCount:    parseCount(v.Statistics.LikeCount),
		CommentCount: parseCount(v.Statistics.CommentCount),
	}
}

// parseCount parses a numeric counter string; missing or malformed
// counters become zero rather than failing the whole item.
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
