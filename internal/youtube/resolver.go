// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/surgewatch/internal/config"
	"github.com/tomtom215/surgewatch/internal/logging"
)

// ErrUnrecognizedInput is returned for references that are neither a
// channel id, an @handle, nor a channel URL.
var ErrUnrecognizedInput = errors.New("unrecognized channel reference")

// Resolver turns user-supplied channel references (@handle, channel
// URL, or raw UC… id) into ChannelInfo. Resolved handles are cached in
// badger so repeated lookups don't spend API quota; entries expire via
// TTL so renamed handles eventually re-resolve.
type Resolver struct {
	client API
	cache  *badger.DB
	ttl    time.Duration
}

// NewResolver creates a resolver. An empty CachePath disables the
// persistent cache; every lookup then goes to the API.
func NewResolver(client API, cfg *config.ResolverConfig) (*Resolver, error) {
	r := &Resolver{client: client, ttl: cfg.CacheTTL}
	if r.ttl <= 0 {
		r.ttl = 7 * 24 * time.Hour
	}

	if cfg.CachePath != "" {
		opts := badger.DefaultOptions(cfg.CachePath).WithLogger(nil)
		cache, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open resolver cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Close releases the cache.
func (r *Resolver) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

// Resolve resolves a channel reference. Returns ErrChannelNotFound when
// the platform knows nothing about it.
func (r *Resolver) Resolve(ctx context.Context, input string) (*ChannelInfo, error) {
	ref, isHandle := ParseChannelInput(input)
	if ref == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedInput, input)
	}

	if !isHandle {
		return r.client.GetChannel(ctx, ref)
	}

	if info, ok := r.cacheGet(ref); ok {
		return info, nil
	}

	info, err := r.resolveHandle(ctx, ref)
	if err != nil {
		return nil, err
	}
	r.cachePut(ref, info)
	return info, nil
}

// resolveHandle resolves an @handle through the API.
func (r *Resolver) resolveHandle(ctx context.Context, handle string) (*ChannelInfo, error) {
	type handleResolver interface {
		GetChannelByHandle(ctx context.Context, handle string) (*ChannelInfo, error)
	}
	hr, ok := r.client.(handleResolver)
	if !ok {
		return nil, fmt.Errorf("client does not support handle resolution")
	}
	return hr.GetChannelByHandle(ctx, handle)
}

// ParseChannelInput normalizes a user-supplied channel reference.
// Returns the reference and whether it is a handle (as opposed to a
// raw channel id). An empty reference means the input was not
// recognized.
func ParseChannelInput(input string) (ref string, isHandle bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}

	// Strip URL forms down to their last path segment.
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "www.")
	if strings.HasPrefix(s, "youtube.com/") {
		s = strings.TrimPrefix(s, "youtube.com/")
		s = strings.TrimPrefix(s, "channel/")
		if i := strings.IndexAny(s, "/?"); i >= 0 {
			s = s[:i]
		}
	}

	switch {
	case strings.HasPrefix(s, "UC") && len(s) == 24:
		return s, false
	case strings.HasPrefix(s, "@") && len(s) > 1:
		return s, true
	default:
		return "", false
	}
}

// cacheGet returns a cached resolution, if present and unexpired.
func (r *Resolver) cacheGet(handle string) (*ChannelInfo, bool) {
	if r.cache == nil {
		return nil, false
	}

	var info ChannelInfo
	err := r.cache.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(handle))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Debug().Err(err).Str("handle", handle).Msg("resolver cache read failed")
		}
		return nil, false
	}
	return &info, true
}

// cachePut stores a resolution with TTL. Cache failures are logged and
// otherwise ignored; the resolution itself already succeeded.
func (r *Resolver) cachePut(handle string, info *ChannelInfo) {
	if r.cache == nil {
		return
	}

	val, err := json.Marshal(info)
	if err != nil {
		return
	}
	err = r.cache.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(handle), val).WithTTL(r.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		logging.Debug().Err(err).Str("handle", handle).Msg("resolver cache write failed")
	}
}
