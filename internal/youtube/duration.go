// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package youtube

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tomtom215/surgewatch/internal/models"
)

// durationRe matches the ISO-8601 duration subset YouTube emits,
// e.g. PT15S, PT1M2S, PT1H3M, P1DT2H.
var durationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// shortMaxSeconds is the duration boundary between shorts and long-form
// videos. Inclusive: a 60-second video is a short.
const shortMaxSeconds = 60

// ParseDuration parses an ISO-8601 duration string to total seconds.
func ParseDuration(duration string) (int, error) {
	if duration == "" {
		return 0, fmt.Errorf("duration must be a non-empty string")
	}
	m := durationRe.FindStringSubmatch(duration)
	if m == nil {
		return 0, fmt.Errorf("invalid ISO-8601 duration: %q", duration)
	}

	days := atoiDefault(m[1])
	hours := atoiDefault(m[2])
	minutes := atoiDefault(m[3])
	seconds := atoiDefault(m[4])

	return (((days*24)+hours)*60+minutes)*60 + seconds, nil
}

// ClassifyDuration maps a duration in seconds to a video category.
func ClassifyDuration(durationSeconds int) models.VideoCategory {
	if durationSeconds <= shortMaxSeconds {
		return models.CategoryShort
	}
	return models.CategoryLong
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
