// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package detection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/metrics"
	"github.com/tomtom215/surgewatch/internal/models"
)

// Ledger is the slice of the store the dispatcher consults.
// *database.DB implements it.
type Ledger interface {
	TryClaim(ctx context.Context, alert models.SentAlert) (bool, error)
	AlertsSentToday(ctx context.Context, watchlistID, channelID string, now time.Time) (int, error)
}

// Dispatcher turns crossings into at-most-once webhook deliveries.
// Claim order is fixed: the ledger row is written before the webhook is
// attempted, and a failed delivery never rolls the claim back. A
// transient webhook failure therefore drops that alert instead of ever
// risking a duplicate.
type Dispatcher struct {
	ledger            Ledger
	discord           Notifier
	webhook           Notifier
	defaultWebhookURL string

	now func() time.Time
}

// NewDispatcher creates a dispatcher. defaultWebhookURL is the fallback
// destination for watchlists without their own; empty means such
// watchlists are skipped.
func NewDispatcher(ledger Ledger, discord, webhook Notifier, defaultWebhookURL string) *Dispatcher {
	return &Dispatcher{
		ledger:            ledger,
		discord:           discord,
		webhook:           webhook,
		defaultWebhookURL: defaultWebhookURL,
		now:               time.Now,
	}
}

// MaybeSend attempts to deliver one crossing. Skipped covers every
// no-delivery outcome that is not an error: a lost claim race, a
// reached daily cap, or a watchlist with no destination. An error is
// returned only for store failures; the outcome is then Skipped and
// nothing was sent.
func (d *Dispatcher) MaybeSend(ctx context.Context, crossing Crossing, watchlist models.Watchlist, video models.Video, channel models.Channel) (Outcome, error) {
	destination := watchlist.WebhookURL
	if destination == "" {
		destination = d.defaultWebhookURL
	}
	if destination == "" {
		logging.Warn().Str("watchlist_id", watchlist.WatchlistID).Msg("watchlist has no webhook destination, skipping alert")
		return d.skipped(), nil
	}

	now := d.now().UTC()

	if limit := crossing.Rule.DailyCapPerChannel; limit > 0 {
		sent, err := d.ledger.AlertsSentToday(ctx, crossing.WatchlistID, crossing.ChannelID, now)
		if err != nil {
			return d.skipped(), fmt.Errorf("failed to check daily cap: %w", err)
		}
		if sent >= limit {
			logging.Debug().
				Str("watchlist_id", crossing.WatchlistID).
				Str("channel_id", crossing.ChannelID).
				Int("sent_today", sent).
				Msg("daily alert cap reached")
			return d.skipped(), nil
		}
	}

	claimed, err := d.ledger.TryClaim(ctx, models.SentAlert{
		WatchlistID: crossing.WatchlistID,
		ChannelID:   crossing.ChannelID,
		VideoID:     crossing.VideoID,
		Category:    crossing.Category,
		RateVPH:     crossing.RateVPH,
		SentAt:      now,
	})
	if err != nil {
		return d.skipped(), fmt.Errorf("failed to claim alert: %w", err)
	}
	if !claimed {
		metrics.ClaimConflicts.Inc()
		return d.skipped(), nil
	}

	alert := d.formatAlert(crossing, video, channel, now)
	notifier := d.notifierFor(destination)

	if err := notifier.Send(ctx, destination, alert); err != nil {
		logging.Error().Err(err).
			Str("watchlist_id", crossing.WatchlistID).
			Str("video_id", crossing.VideoID).
			Str("notifier", notifier.Name()).
			Msg("alert delivery failed, claim kept")
		metrics.AlertsDispatched.WithLabelValues(string(DeliveryFailed)).Inc()
		return DeliveryFailed, nil
	}

	logging.Info().
		Str("watchlist_id", crossing.WatchlistID).
		Str("video_id", crossing.VideoID).
		Str("category", string(crossing.Category)).
		Float64("rate_vph", crossing.RateVPH).
		Float64("threshold_vph", crossing.Threshold).
		Msg("alert delivered")
	metrics.AlertsDispatched.WithLabelValues(string(Delivered)).Inc()
	return Delivered, nil
}

func (d *Dispatcher) skipped() Outcome {
	metrics.AlertsDispatched.WithLabelValues(string(Skipped)).Inc()
	return Skipped
}

// notifierFor picks the Discord notifier for Discord webhook URLs and
// the generic JSON notifier for everything else.
func (d *Dispatcher) notifierFor(destination string) Notifier {
	if strings.Contains(destination, "discord.com/api/webhooks") ||
		strings.Contains(destination, "discordapp.com/api/webhooks") {
		return d.discord
	}
	return d.webhook
}

// formatAlert builds the notification payload for a crossing.
func (d *Dispatcher) formatAlert(crossing Crossing, video models.Video, channel models.Channel, now time.Time) *Alert {
	title := channel.Title
	if title == "" {
		title = channel.ChannelID
	}
	return &Alert{
		WatchlistID:  crossing.WatchlistID,
		ChannelID:    crossing.ChannelID,
		ChannelTitle: title,
		VideoID:      crossing.VideoID,
		VideoTitle:   video.Title,
		VideoURL:     "https://www.youtube.com/watch?v=" + crossing.VideoID,
		Category:     crossing.Category,
		PublishedAt:  video.PublishedAt,
		ViewCount:    crossing.ViewCount,
		RateVPH:      crossing.RateVPH,
		Threshold:    crossing.Threshold,
		Baseline:     crossing.Baseline,
		Multiplier:   crossing.Rule.Multiplier,
		CreatedAt:    now,
	}
}
