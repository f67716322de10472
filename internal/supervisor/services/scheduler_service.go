// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package services

import (
	"context"
	"errors"
	"fmt"
)

// CycleRunner is the scheduler surface the service wraps.
type CycleRunner interface {
	Serve(ctx context.Context) error
}

// SchedulerService runs the ingestion cycle scheduler under
// supervision. A returned error other than context cancellation
// triggers a suture restart with backoff.
type SchedulerService struct {
	runner CycleRunner
}

// NewSchedulerService wraps the scheduler.
func NewSchedulerService(runner CycleRunner) *SchedulerService {
	return &SchedulerService{runner: runner}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.runner.Serve(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("scheduler failed: %w", err)
	}
	return nil
}

// String identifies the service in supervisor logs.
func (s *SchedulerService) String() string {
	return "cycle-scheduler"
}
