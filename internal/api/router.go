// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package api exposes the operational HTTP surface: health and
// readiness probes, Prometheus metrics, a manual cycle trigger, and a
// recent-alerts listing. All detection state flows through the
// scheduler and the store; the API never mutates either directly.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/surgewatch/internal/config"
	"github.com/tomtom215/surgewatch/internal/models"
	"github.com/tomtom215/surgewatch/internal/scheduler"
	"github.com/tomtom215/surgewatch/internal/youtube"
)

// CycleController is the scheduler surface the API needs: manual
// triggering and state inspection for readiness.
type CycleController interface {
	TriggerNow() bool
	State() scheduler.State
}

// AlertReader lists recently dispatched alerts from the ledger.
type AlertReader interface {
	RecentAlerts(ctx context.Context, limit int) ([]models.SentAlert, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChannelResolver turns a channel id, @handle, or channel URL into
// channel metadata.
type ChannelResolver interface {
	Resolve(ctx context.Context, input string) (*youtube.ChannelInfo, error)
}

// Router builds the HTTP handler tree.
type Router struct {
	cycles   CycleController
	alerts   AlertReader
	db       Pinger
	resolver ChannelResolver
	cfg      *config.ServerConfig
}

// NewRouter creates the API router over the given collaborators.
// resolver may be nil, in which case channel resolution returns 503.
func NewRouter(cycles CycleController, alerts AlertReader, db Pinger, resolver ChannelResolver, cfg *config.ServerConfig) *Router {
	return &Router{
		cycles:   cycles,
		alerts:   alerts,
		db:       db,
		resolver: resolver,
		cfg:      cfg,
	}
}

// Handler assembles the chi router with middleware and routes.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(rt.cfg.Timeout))

	r.Get("/health", rt.handleHealth)
	r.Get("/ready", rt.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(rt.triggerRateLimit(), time.Minute))
			r.Post("/cycle/run", rt.handleTriggerCycle)
		})
		r.Get("/alerts/recent", rt.handleRecentAlerts)
		r.Post("/channels/resolve", rt.handleResolveChannel)
	})

	return r
}

func (rt *Router) triggerRateLimit() int {
	if rt.cfg.TriggerRateLimit > 0 {
		return rt.cfg.TriggerRateLimit
	}
	return 6
}
