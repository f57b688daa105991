package middleware

import (
	"context"
	"fmt"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/stats"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Tier names the rate limit bucket that admitted a request
type Tier string

const (
	TierBypass   Tier = "bypass"
	TierNormal   Tier = "normal"
	TierCached   Tier = "cached"
	TierExceeded Tier = "exceeded"
)

type tierKey struct{}

// LookupTier returns the tier stored by RateLimitMiddleware, if any
func LookupTier(ctx context.Context) (Tier, bool) {
	t, ok := ctx.Value(tierKey{}).(Tier)
	return t, ok
}

// TierFromContext returns the tier stored by RateLimitMiddleware, or
// TierNormal for requests that never went through it.
func TierFromContext(ctx context.Context) Tier {
	if t, ok := LookupTier(ctx); ok {
		return t
	}
	return TierNormal
}

// CacheOnly reports whether the request may only be answered from cache
func CacheOnly(ctx context.Context) bool {
	return TierFromContext(ctx) == TierCached
}

// LimiterPair holds both tier limiters for one client
type LimiterPair struct {
	Normal *rate.Limiter
	Cached *rate.Limiter

	lastSeen time.Time
}

// GetNormalTokens returns the whole tokens left in the normal tier
func (lp *LimiterPair) GetNormalTokens() int {
	return int(math.Floor(lp.Normal.Tokens()))
}

// GetCachedTokens returns the whole tokens left in the cached tier
func (lp *LimiterPair) GetCachedTokens() int {
	return int(math.Floor(lp.Cached.Tokens()))
}

// IPRateLimiter keeps a LimiterPair per client address. Requests that
// exhaust the normal tier fall through to the cached tier, which may only
// be served from the lyrics cache.
type IPRateLimiter struct {
	ips         map[string]*LimiterPair
	mu          sync.Mutex
	normalRate  rate.Limit
	normalBurst int
	cachedRate  rate.Limit
	cachedBurst int
}

func NewIPRateLimiter(normalRate rate.Limit, normalBurst int, cachedRate rate.Limit, cachedBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:         make(map[string]*LimiterPair),
		normalRate:  normalRate,
		normalBurst: normalBurst,
		cachedRate:  cachedRate,
		cachedBurst: cachedBurst,
	}
}

// GetNormalLimit returns the normal tier burst
func (i *IPRateLimiter) GetNormalLimit() int {
	return i.normalBurst
}

// GetCachedLimit returns the cached tier burst
func (i *IPRateLimiter) GetCachedLimit() int {
	return i.cachedBurst
}

// AddIP registers a fresh pair for ip, replacing any existing one
func (i *IPRateLimiter) AddIP(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.addLocked(ip)
}

func (i *IPRateLimiter) addLocked(ip string) *LimiterPair {
	pair := &LimiterPair{
		Normal:   rate.NewLimiter(i.normalRate, i.normalBurst),
		Cached:   rate.NewLimiter(i.cachedRate, i.cachedBurst),
		lastSeen: time.Now(),
	}
	i.ips[ip] = pair
	return pair
}

// GetLimiter returns the pair for ip, creating it on first use
func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	pair, ok := i.ips[ip]
	if !ok {
		return i.addLocked(ip)
	}
	pair.lastSeen = time.Now()
	return pair
}

// Len returns the number of tracked clients
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

// Cleanup forgets clients idle for longer than maxIdle and returns how many
// were removed.
func (i *IPRateLimiter) Cleanup(maxIdle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for ip, pair := range i.ips {
		if pair.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done
func (i *IPRateLimiter) RunCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := i.Cleanup(maxIdle); n > 0 {
				log.Debugf("%s Dropped %d idle client(s)", logcolors.LogRateLimit, n)
			}
		}
	}
}

// ClientIP strips the port from r.RemoteAddr so every connection from the
// same host shares one limiter.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware applies the two-tier limiter. A request carrying
// bypassKey in X-API-Key skips limiting entirely; an empty bypassKey
// disables the bypass.
func RateLimitMiddleware(limiter *IPRateLimiter, bypassKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serve := func(tier Tier) {
				ctx := context.WithValue(r.Context(), tierKey{}, tier)
				next.ServeHTTP(w, r.WithContext(ctx))
			}

			if ValidAPIKey(r.Header.Get("X-API-Key"), bypassKey) {
				w.Header().Set("X-RateLimit-Bypass", "true")
				serve(TierBypass)
				return
			}

			ip := ClientIP(r)
			pair := limiter.GetLimiter(ip)

			if pair.Normal.Allow() {
				stats.Get().RecordRateLimit(string(TierNormal))
				setLimitHeaders(w, TierNormal, limiter.GetNormalLimit(), pair.GetNormalTokens())
				serve(TierNormal)
				return
			}

			if pair.Cached.Allow() {
				stats.Get().RecordRateLimit(string(TierCached))
				setLimitHeaders(w, TierCached, limiter.GetCachedLimit(), pair.GetCachedTokens())
				log.Debugf("%s %s exceeded normal tier, serving from cache only", logcolors.LogRateLimit, ip)
				serve(TierCached)
				return
			}

			stats.Get().RecordRateLimit(string(TierExceeded))
			log.Warnf("%s %s exceeded both rate limit tiers", logcolors.LogRateLimit, ip)
			setLimitHeaders(w, TierExceeded, limiter.GetCachedLimit(), 0)
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}

func setLimitHeaders(w http.ResponseWriter, tier Tier, limit, remaining int) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	w.Header().Set("X-RateLimit-Type", string(tier))
}
