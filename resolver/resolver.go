// Package resolver turns a track query into lyrics by consulting the result
// cache and then each eligible provider in order.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/stats"

	log "github.com/sirupsen/logrus"
)

// Cache is the key-value store results are persisted in
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// ChainOrder is the order providers are consulted in under PreferenceAuto
var ChainOrder = []providers.Source{providers.SourceMusixmatch, providers.SourceLrcLib}

// Config configures a Resolver
type Config struct {
	Cache    Cache
	Registry *providers.Registry
	Timeout  time.Duration // per resolution; zero means none
	Stats    *stats.Stats  // defaults to stats.Get()
}

// Resolver runs cached, de-duplicated resolutions
type Resolver struct {
	cache    Cache
	registry *providers.Registry
	timeout  time.Duration
	stats    *stats.Stats

	inFlight sync.Map // cache key -> *call
}

// call is one in-progress resolution shared by every caller for its key
type call struct {
	done   chan struct{}
	result *providers.LyricsResult

	// abandoned is set when the leader's own context was cancelled, so its
	// placeholder says nothing to callers that are still waiting
	abandoned bool
}

// New creates a Resolver
func New(cfg Config) *Resolver {
	if cfg.Stats == nil {
		cfg.Stats = stats.Get()
	}
	if cfg.Registry == nil {
		cfg.Registry = providers.NewRegistry()
	}
	return &Resolver{
		cache:    cfg.Cache,
		registry: cfg.Registry,
		timeout:  cfg.Timeout,
		stats:    cfg.Stats,
	}
}

// Cached returns the stored result for a query without touching any provider
func (r *Resolver) Cached(q providers.TrackQuery, pref providers.Preference) (*providers.LyricsResult, bool) {
	if r.cache == nil {
		return nil, false
	}
	key := CacheKey(q, pref)
	raw, ok := r.cache.Get(key)
	if !ok {
		return nil, false
	}
	result, err := decodeResult(raw)
	if err != nil {
		log.Warnf("%s Ignoring unreadable entry %s: %v", logcolors.LogCacheLyrics, key, err)
		return nil, false
	}
	return result, true
}

// Resolve returns lyrics for q. It never fails: when no provider produces
// lines the result is a placeholder, which is not cached. Concurrent calls
// for the same cache key share one resolution.
func (r *Resolver) Resolve(ctx context.Context, q providers.TrackQuery, pref providers.Preference) *providers.LyricsResult {
	if result, ok := r.Cached(q, pref); ok {
		r.stats.RecordCacheHit()
		log.Debugf("%s Hit for %s - %s (%s)", logcolors.LogCacheLyrics, q.Artist, q.Name, pref)
		return result
	}
	r.stats.RecordCacheMiss()

	key := CacheKey(q, pref)
	for {
		c := &call{done: make(chan struct{})}
		existing, loaded := r.inFlight.LoadOrStore(key, c)
		if !loaded {
			return r.lead(ctx, c, key, q, pref)
		}

		r.stats.InFlightJoins.Add(1)
		log.Debugf("%s Joining resolution for %s", logcolors.LogInFlight, key)
		leader := existing.(*call)
		select {
		case <-leader.done:
			if leader.abandoned && ctx.Err() == nil {
				log.Debugf("%s Leader for %s was cancelled, retrying", logcolors.LogInFlight, key)
				continue
			}
			return leader.result
		case <-ctx.Done():
			return providers.NewPlaceholder(providers.LoadFailedText)
		}
	}
}

// lead runs the resolution for key on behalf of every caller joining c
func (r *Resolver) lead(ctx context.Context, c *call, key string, q providers.TrackQuery, pref providers.Preference) *providers.LyricsResult {
	defer func() {
		r.inFlight.Delete(key)
		close(c.done)
	}()

	// A previous leader may have stored its result after our cache miss
	if result, ok := r.Cached(q, pref); ok {
		c.result = result
		return result
	}
	c.result, c.abandoned = r.resolve(ctx, key, q, pref)
	return c.result
}

// resolve runs the provider chain. abandoned reports that ctx was cancelled
// before any provider produced lines.
func (r *Resolver) resolve(ctx context.Context, key string, q providers.TrackQuery, pref providers.Preference) (*providers.LyricsResult, bool) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.stats.Resolutions.Add(1)
	start := time.Now()
	log.Infof("%s Resolving %s - %s (preference: %s)", logcolors.LogResolver, q.Artist, q.Name, pref)

	failed, abandoned := false, false
	for _, src := range ChainOrder {
		if !pref.Allows(src) {
			continue
		}
		p, err := r.registry.Get(src)
		if err != nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		result, err := attempt(ctx, p, q)
		if err != nil {
			log.Errorf("%s %v", logcolors.LogResolver, err)
			failed = true
		}
		r.stats.RecordProviderAttempt(string(src), !result.Empty())

		if !result.Empty() {
			r.store(key, result)
			log.Infof("%s %s answered in %v (%d lines, synced: %v)",
				logcolors.LogResolver, p.Name(), time.Since(start).Round(time.Millisecond), len(result.Lines), result.Synced)
			return result, false
		}
		log.Infof("%s %s %s had nothing", logcolors.LogResolver, logcolors.LogFallback, p.Name())
	}

	r.stats.Placeholders.Add(1)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.stats.ResolveTimeouts.Add(1)
		failed = true
	case errors.Is(ctx.Err(), context.Canceled):
		r.stats.ResolveCancelled.Add(1)
		failed, abandoned = true, true
	}

	if failed {
		log.Warnf("%s Gave up on %s - %s: %v", logcolors.LogResolver, q.Artist, q.Name, ctx.Err())
		return providers.NewPlaceholder(providers.LoadFailedText), abandoned
	}
	log.Infof("%s %s No lyrics for %s - %s", logcolors.LogResolver, logcolors.LogNotFound, q.Artist, q.Name)
	return providers.NewPlaceholder(providers.NotFoundText), false
}

// attempt contains a panicking provider
func attempt(ctx context.Context, p providers.Provider, q providers.TrackQuery) (result *providers.LyricsResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("provider %s panicked: %v", p.Name(), rec)
		}
	}()
	return p.Attempt(ctx, q), nil
}

func (r *Resolver) store(key string, result *providers.LyricsResult) {
	if r.cache == nil {
		return
	}
	value, err := encodeResult(result)
	if err != nil {
		log.Errorf("%s Failed to encode %s: %v", logcolors.LogCacheLyrics, key, err)
		return
	}
	if err := r.cache.Set(key, value); err != nil {
		log.Errorf("%s Failed to write %s: %v", logcolors.LogCacheLyrics, key, err)
		return
	}
	log.Debugf("%s Stored %s", logcolors.LogCacheLyrics, key)
}
