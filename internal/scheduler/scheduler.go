// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package scheduler drives the ingestion/evaluation cycle: on a fixed
// cadence it fans out over all tracked channels with bounded
// concurrency, ingests fresh snapshots, and runs detection per video.
// Cycles never overlap; a tick that arrives mid-cycle is skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/surgewatch/internal/config"
	"github.com/tomtom215/surgewatch/internal/database"
	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/metrics"
	"github.com/tomtom215/surgewatch/internal/models"
	"github.com/tomtom215/surgewatch/internal/youtube"
)

// State is the scheduler's externally visible state.
type State string

const (
	// Idle means no cycle is in flight.
	Idle State = "idle"
	// RunningCycle means a cycle is in flight; ticks arriving now are
	// skipped.
	RunningCycle State = "running_cycle"
)

// Store is the slice of the database the scheduler uses.
// *database.DB implements it.
type Store interface {
	TrackedChannelIDs(ctx context.Context) ([]string, error)
	GetChannel(ctx context.Context, channelID string) (models.Channel, error)
	UpsertChannel(ctx context.Context, ch models.Channel) error
	UpsertVideo(ctx context.Context, v models.Video) error
	AppendSnapshot(ctx context.Context, snap models.StatsSnapshot) (bool, error)
	WatchersForChannel(ctx context.Context, channelID string) ([]models.Watchlist, error)
}

// VideoProcessor evaluates one ingested video against its watchers.
// *detection.Engine implements it.
type VideoProcessor interface {
	ProcessVideo(ctx context.Context, channel models.Channel, video models.Video, watchers []models.Watchlist) (int, error)
}

// Scheduler owns the cycle cadence and the per-channel worker pool.
type Scheduler struct {
	store  Store
	yt     youtube.API
	engine VideoProcessor
	cfg    config.SchedulerConfig

	maxVideosPerChannel int

	mu      sync.Mutex
	running bool

	trigger chan struct{}
}

// New creates a scheduler.
func New(store Store, yt youtube.API, engine VideoProcessor, cfg config.SchedulerConfig, maxVideosPerChannel int) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Minute
	}
	if maxVideosPerChannel <= 0 {
		maxVideosPerChannel = 10
	}

	return &Scheduler{
		store:               store,
		yt:                  yt,
		engine:              engine,
		cfg:                 cfg,
		maxVideosPerChannel: maxVideosPerChannel,
		trigger:             make(chan struct{}, 1),
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return RunningCycle
	}
	return Idle
}

// TriggerNow requests one immediate cycle. Returns false when a cycle
// is already in flight or a trigger is already queued.
func (s *Scheduler) TriggerNow() bool {
	if s.State() == RunningCycle {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Serve runs the scheduling loop until the context is canceled. It is
// shaped for suture supervision: it blocks, and returns ctx.Err() on
// shutdown.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.cfg.Interval).
		Int("workers", s.cfg.Workers).
		Msg("scheduler started")

	if s.cfg.RunOnStartup {
		s.tryRunCycle(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tryRunCycle(ctx)
		case <-s.trigger:
			s.tryRunCycle(ctx)
		}
	}
}

// tryRunCycle starts a cycle unless one is already in flight.
func (s *Scheduler) tryRunCycle(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		metrics.CyclesSkipped.Inc()
		logging.Warn().Msg("previous cycle still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		s.RunCycle(ctx)
	}()
}

// RunCycle executes one full ingestion/evaluation cycle synchronously.
// A per-channel failure is logged and counted, never fatal to the
// cycle.
func (s *Scheduler) RunCycle(ctx context.Context) {
	cycleID := uuid.New().String()
	start := time.Now()
	metrics.CyclesStarted.Inc()

	log := logging.With().Str("cycle_id", cycleID).Logger()
	log.Info().Msg("cycle started")

	channelIDs, err := s.store.TrackedChannelIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to enumerate tracked channels")
		return
	}

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	var okCount, failCount int
	var countMu sync.Mutex

	for _, channelID := range channelIDs {
		wg.Add(1)
		sem <- struct{}{}

		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			chCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			err := s.processChannel(chCtx, id)
			countMu.Lock()
			if err != nil {
				failCount++
				metrics.ChannelsProcessed.WithLabelValues("failed").Inc()
				log.Error().Err(err).Str("channel_id", id).Msg("channel failed this cycle")
			} else {
				okCount++
				metrics.ChannelsProcessed.WithLabelValues("ok").Inc()
			}
			countMu.Unlock()
		}(channelID)
	}
	wg.Wait()

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Int("channels_ok", okCount).
		Int("channels_failed", failCount).
		Dur("duration", time.Since(start)).
		Msg("cycle finished")
}

// processChannel ingests one channel's recent uploads and evaluates
// each against the channel's watchers.
func (s *Scheduler) processChannel(ctx context.Context, channelID string) error {
	channel, err := s.refreshChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.UploadsPlaylistID == "" {
		return fmt.Errorf("channel %s has no uploads playlist", channelID)
	}

	uploads, err := s.yt.ListRecentUploads(ctx, channel.UploadsPlaylistID, s.maxVideosPerChannel)
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}
	if len(uploads) == 0 {
		return nil
	}

	ids := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ids = append(ids, u.VideoID)
	}
	infos, err := s.yt.GetVideos(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch video stats: %w", err)
	}

	videos := s.ingestVideos(ctx, channelID, infos)
	if len(videos) == 0 {
		return nil
	}

	watchers, err := s.store.WatchersForChannel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to load watchers: %w", err)
	}
	if len(watchers) == 0 {
		return nil
	}

	for _, video := range videos {
		if _, err := s.engine.ProcessVideo(ctx, channel, video, watchers); err != nil {
			logging.Error().Err(err).Str("video_id", video.VideoID).Msg("evaluation failed")
		}
	}
	return nil
}

// refreshChannel fetches fresh channel metadata and upserts it,
// falling back to the stored row when the API call fails but the
// channel is already known.
func (s *Scheduler) refreshChannel(ctx context.Context, channelID string) (models.Channel, error) {
	info, err := s.yt.GetChannel(ctx, channelID)
	if err != nil {
		stored, storeErr := s.store.GetChannel(ctx, channelID)
		if storeErr == nil {
			logging.Warn().Err(err).Str("channel_id", channelID).Msg("channel refresh failed, using stored metadata")
			return stored, nil
		}
		if errors.Is(storeErr, database.ErrNotFound) {
			return models.Channel{}, fmt.Errorf("failed to resolve channel %s: %w", channelID, err)
		}
		return models.Channel{}, storeErr
	}

	now := time.Now().UTC()
	channel := models.Channel{
		ChannelID:         info.ChannelID,
		Title:             info.Title,
		Handle:            info.Handle,
		UploadsPlaylistID: info.UploadsPlaylistID,
		SubscriberCount:   info.SubscriberCount,
		VideoCount:        info.VideoCount,
		ViewCount:         info.ViewCount,
		ResolvedAt:        now,
		UpdatedAt:         now,
	}
	if err := s.store.UpsertChannel(ctx, channel); err != nil {
		return models.Channel{}, fmt.Errorf("failed to upsert channel: %w", err)
	}
	return channel, nil
}

// ingestVideos upserts catalog rows and appends one snapshot per
// fetched video. A video with an unparseable duration is skipped; a
// duplicate snapshot append is counted, not an error.
func (s *Scheduler) ingestVideos(ctx context.Context, channelID string, infos []youtube.VideoInfo) []models.Video {
	observedAt := time.Now().UTC()
	videos := make([]models.Video, 0, len(infos))

	for _, info := range infos {
		seconds, err := youtube.ParseDuration(info.Duration)
		if err != nil {
			logging.Warn().Err(err).Str("video_id", info.VideoID).Str("duration", info.Duration).Msg("skipping video with unparseable duration")
			continue
		}

		video := models.Video{
			VideoID:         info.VideoID,
			ChannelID:       channelID,
			Title:           info.Title,
			PublishedAt:     info.PublishedAt,
			DurationSeconds: seconds,
			Category:        youtube.ClassifyDuration(seconds),
			UpdatedAt:       observedAt,
		}
		if err := s.store.UpsertVideo(ctx, video); err != nil {
			logging.Error().Err(err).Str("video_id", info.VideoID).Msg("failed to upsert video")
			continue
		}

		if _, err := s.store.AppendSnapshot(ctx, models.StatsSnapshot{
			VideoID:      info.VideoID,
			ObservedAt:   observedAt,
			ViewCount:    info.ViewCount,
			LikeCount:    info.LikeCount,
			CommentCount: info.CommentCount,
		}); err != nil {
			logging.Error().Err(err).Str("video_id", info.VideoID).Msg("failed to append snapshot")
			continue
		}

		videos = append(videos, video)
	}
	return videos
}
