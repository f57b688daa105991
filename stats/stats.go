package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests      atomic.Int64
	LyricsRequests     atomic.Int64
	NowPlayingRequests atomic.Int64
	CacheRequests      atomic.Int64
	OtherRequests      atomic.Int64

	// Cache performance
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	// Resolution outcomes
	Resolutions      atomic.Int64 // upstream resolutions actually started
	InFlightJoins    atomic.Int64 // callers that shared someone else's resolution
	Placeholders     atomic.Int64 // resolutions that ended in a placeholder
	StaleDiscards    atomic.Int64 // results dropped because the track changed
	ResolveTimeouts  atomic.Int64
	ResolveCancelled atomic.Int64

	// Rate limiting
	RateLimitNormal   atomic.Int64 // Requests served under normal rate limit
	RateLimitCached   atomic.Int64 // Requests served under cached-only tier
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Per-source provider counters, keyed by source name
	providers sync.Map // string -> *ProviderCounters
}

// ProviderCounters tracks one lyrics source
type ProviderCounters struct {
	Attempts  atomic.Int64
	Successes atomic.Int64
	Empty     atomic.Int64
}

const maxInt64 = int64(^uint64(0) >> 1)

// New returns a zeroed Stats starting now
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(maxInt64)
	return s
}

// Global stats instance
var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch endpoint {
	case "/getLyrics":
		s.LyricsRequests.Add(1)
	case "/now-playing":
		s.NowPlayingRequests.Add(1)
	case "/cache":
		s.CacheRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordCacheHit records a cache hit
func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

// RecordCacheMiss records a cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

func (s *Stats) provider(source string) *ProviderCounters {
	if c, ok := s.providers.Load(source); ok {
		return c.(*ProviderCounters)
	}
	c, _ := s.providers.LoadOrStore(source, &ProviderCounters{})
	return c.(*ProviderCounters)
}

// RecordProviderAttempt records the outcome of asking one source for lyrics
func (s *Stats) RecordProviderAttempt(source string, found bool) {
	c := s.provider(source)
	c.Attempts.Add(1)
	if found {
		c.Successes.Add(1)
	} else {
		c.Empty.Add(1)
	}
}

// Provider returns the counters for a source, or nil if it was never attempted
func (s *Stats) Provider(source string) *ProviderCounters {
	if c, ok := s.providers.Load(source); ok {
		return c.(*ProviderCounters)
	}
	return nil
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "cached":
		s.RateLimitCached.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == maxInt64 {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

func (s *Stats) providerSnapshot() map[string]interface{} {
	var names []string
	s.providers.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)

	out := make(map[string]interface{}, len(names))
	for _, name := range names {
		c := s.provider(name)
		out[name] = map[string]interface{}{
			"attempts":  c.Attempts.Load(),
			"successes": c.Successes.Load(),
			"empty":     c.Empty.Load(),
		}
	}
	return out
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":       s.TotalRequests.Load(),
			"lyrics":      s.LyricsRequests.Load(),
			"now_playing": s.NowPlayingRequests.Load(),
			"cache":       s.CacheRequests.Load(),
			"other":       s.OtherRequests.Load(),
		},
		"cache": map[string]interface{}{
			"hits":     s.CacheHits.Load(),
			"misses":   s.CacheMisses.Load(),
			"hit_rate": s.CacheHitRate(),
		},
		"resolver": map[string]interface{}{
			"resolutions":     s.Resolutions.Load(),
			"in_flight_joins": s.InFlightJoins.Load(),
			"placeholders":    s.Placeholders.Load(),
			"stale_discards":  s.StaleDiscards.Load(),
			"timeouts":        s.ResolveTimeouts.Load(),
			"cancelled":       s.ResolveCancelled.Load(),
		},
		"providers": s.providerSnapshot(),
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"cached_tier": s.RateLimitCached.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg": s.AvgResponseTime().String(),
			"min": s.MinResponseTime().String(),
			"max": s.MaxResponseTime().String(),
		},
	}
}
