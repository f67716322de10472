// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/youtube"
)

const (
	defaultAlertsLimit = 50
	maxAlertsLimit     = 500
)

type healthResponse struct {
	Status string `json:"status"`
}

type readyResponse struct {
	Status    string `json:"status"`
	Scheduler string `json:"scheduler"`
	Database  string `json:"database"`
}

type triggerResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReady reports readiness: the store must be reachable. The
// scheduler state is informational; a running cycle is still ready.
func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := readyResponse{
		Status:    "ready",
		Scheduler: string(rt.cycles.State()),
		Database:  "ok",
	}

	status := http.StatusOK
	if err := rt.db.Ping(ctx); err != nil {
		logging.Err(err).Msg("readiness check failed: database unreachable")
		resp.Status = "not_ready"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, resp)
}

// handleTriggerCycle requests an out-of-band ingestion cycle. Returns
// 202 when the trigger is queued, 409 when a cycle is already running
// or a trigger is already pending.
func (rt *Router) handleTriggerCycle(w http.ResponseWriter, r *http.Request) {
	if rt.cycles.TriggerNow() {
		respondJSON(w, http.StatusAccepted, triggerResponse{
			Accepted: true,
			Message:  "cycle triggered",
		})
		return
	}

	respondJSON(w, http.StatusConflict, triggerResponse{
		Accepted: false,
		Message:  "cycle already running or trigger pending",
	})
}

func (rt *Router) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAlertsLimit)
	}

	alerts, err := rt.alerts.RecentAlerts(r.Context(), limit)
	if err != nil {
		logging.Err(err).Msg("failed to list recent alerts")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list recent alerts"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

type resolveRequest struct {
	Input string `json:"input"`
}

// handleResolveChannel resolves a channel id, @handle, or channel URL
// so the external app can store the canonical channel id.
func (rt *Router) handleResolveChannel(w http.ResponseWriter, r *http.Request) {
	if rt.resolver == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "channel resolution is not configured"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.Input = strings.TrimSpace(req.Input)
	if req.Input == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "input is required"})
		return
	}

	info, err := rt.resolver.Resolve(r.Context(), req.Input)
	if err != nil {
		if errors.Is(err, youtube.ErrUnrecognizedInput) {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		if errors.Is(err, youtube.ErrChannelNotFound) {
			respondJSON(w, http.StatusNotFound, errorResponse{Error: "channel not found"})
			return
		}
		logging.Err(err).Str("input", req.Input).Msg("channel resolution failed")
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: "channel resolution failed"})
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Err(err).Msg("failed to encode response")
	}
}
