// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/surgewatch/internal/config"
)

func testClientConfig(baseURL string) *config.YouTubeConfig {
	return &config.YouTubeConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Millisecond,
		QuotaPerMinute: 6000,
	}
}

func TestGetChannelParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("expected api key in query, got %q", got)
		}
		if got := r.URL.Query().Get("id"); got != "UCabc" {
			t.Errorf("expected channel id UCabc, got %q", got)
		}
		fmt.Fprint(w, `{"items":[{
			"id":"UCabc",
			"snippet":{"title":"Test Channel","customUrl":"@testchannel"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UUabc"}},
			"statistics":{"subscriberCount":"1200","videoCount":"34","viewCount":"5600000"}
		}]}`)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	info, err := client.GetChannel(context.Background(), "UCabc")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}

	if info.ChannelID != "UCabc" {
		t.Errorf("expected channel id UCabc, got %s", info.ChannelID)
	}
	if info.Title != "Test Channel" {
		t.Errorf("expected title Test Channel, got %s", info.Title)
	}
	if info.UploadsPlaylistID != "UUabc" {
		t.Errorf("expected uploads playlist UUabc, got %s", info.UploadsPlaylistID)
	}
	if info.SubscriberCount != 1200 {
		t.Errorf("expected 1200 subscribers, got %d", info.SubscriberCount)
	}
	if info.ViewCount != 5600000 {
		t.Errorf("expected 5600000 views, got %d", info.ViewCount)
	}
}

func TestGetChannelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.GetChannel(context.Background(), "UCmissing")
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"UCabc","snippet":{"title":"Recovered"},"contentDetails":{"relatedPlaylists":{"uploads":"UUabc"}},"statistics":{}}]}`)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	info, err := client.GetChannel(context.Background(), "UCabc")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if info.Title != "Recovered" {
		t.Errorf("expected title Recovered, got %s", info.Title)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestGetRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.GetChannel(context.Background(), "UCabc")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.GetChannel(context.Background(), "UCabc")
	if err == nil {
		t.Fatal("expected error on 403")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt on 403, got %d", got)
	}
}

func TestGetVideosBatchesAtFifty(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		batchSizes = append(batchSizes, len(ids))

		fmt.Fprint(w, `{"items":[`)
		for i, id := range ids {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":%q,"snippet":{"title":"v"},"contentDetails":{"duration":"PT2M"},"statistics":{"viewCount":"100"}}`, id)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("vid%03d", i)
	}

	client := NewClient(testClientConfig(server.URL))
	videos, err := client.GetVideos(context.Background(), ids)
	if err != nil {
		t.Fatalf("GetVideos failed: %v", err)
	}

	if len(videos) != 120 {
		t.Fatalf("expected 120 videos, got %d", len(videos))
	}
	expected := []int{50, 50, 20}
	if len(batchSizes) != len(expected) {
		t.Fatalf("expected %d batches, got %v", len(expected), batchSizes)
	}
	for i, size := range expected {
		if batchSizes[i] != size {
			t.Errorf("batch %d: expected %d ids, got %d", i, size, batchSizes[i])
		}
	}
}

func TestGetVideosSkipsEmptyIDs(t *testing.T) {
	client := NewClient(testClientConfig("http://unused"))
	videos, err := client.GetVideos(context.Background(), []string{"", ""})
	if err != nil {
		t.Fatalf("expected no error for empty id list, got %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("expected no videos, got %d", len(videos))
	}
}

func TestListRecentUploadsPaginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"nextPageToken":"page2","items":[
				{"contentDetails":{"videoId":"a"},"snippet":{"publishedAt":"2026-08-30T10:00:00Z"}},
				{"contentDetails":{"videoId":"b"},"snippet":{"publishedAt":"2026-08-29T10:00:00Z"}}
			]}`)
		case "page2":
			fmt.Fprint(w, `{"items":[
				{"contentDetails":{"videoId":"c"},"snippet":{"publishedAt":"2026-08-28T10:00:00Z"}}
			]}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	uploads, err := client.ListRecentUploads(context.Background(), "UUabc", 10)
	if err != nil {
		t.Fatalf("ListRecentUploads failed: %v", err)
	}

	if len(uploads) != 3 {
		t.Fatalf("expected 3 uploads, got %d", len(uploads))
	}
	if uploads[0].VideoID != "a" || uploads[2].VideoID != "c" {
		t.Errorf("unexpected upload order: %+v", uploads)
	}
}

func TestListRecentUploadsRespectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") != "" {
			t.Error("limit reached on the first page; no second page should be requested")
		}
		fmt.Fprint(w, `{"nextPageToken":"more","items":[
			{"contentDetails":{"videoId":"a"},"snippet":{"publishedAt":"2026-08-30T10:00:00Z"}},
			{"contentDetails":{"videoId":"b"},"snippet":{"publishedAt":"2026-08-29T10:00:00Z"}},
			{"contentDetails":{"videoId":"c"},"snippet":{"publishedAt":"2026-08-28T10:00:00Z"}}
		]}`)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	uploads, err := client.ListRecentUploads(context.Background(), "UUabc", 2)
	if err != nil {
		t.Fatalf("ListRecentUploads failed: %v", err)
	}
	if len(uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploads))
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"12345", 12345},
		{"", 0},
		{"not-a-number", 0},
		{"0", 0},
	}
	for _, tt := range tests {
		if got := parseCount(tt.input); got != tt.expected {
			t.Errorf("parseCount(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}
