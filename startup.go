package main

import (
	"context"
	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/middleware"
	"lyrics-sync-go/playback"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/services/providers/lrclib"
	"lyrics-sync-go/services/providers/musixmatch"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/tracker"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// publicPaths never require an API key
var publicPaths = []string{"/", "/health", "/metrics"}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// newBreaker builds a circuit breaker for one upstream
func newBreaker(c config.Config, name string) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.New(circuitbreaker.Config{
		Name:      name,
		Threshold: c.Configuration.CircuitBreakerThreshold,
		Cooldown:  seconds(c.Configuration.CircuitBreakerCooldownSecs),
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			if to == circuitbreaker.StateOpen {
				log.Warnf("%s %s upstream unavailable, skipping it until cooldown ends", logcolors.Provider(name), name)
			}
		},
	})
}

// setupProviders builds both upstream clients behind their own breakers
// and registers the adapters.
func setupProviders(c config.Config) (*providers.Registry, []*circuitbreaker.CircuitBreaker) {
	timeout := seconds(c.Configuration.RequestTimeoutSecs)
	mxmBreaker := newBreaker(c, musixmatch.ProviderName)
	lrcBreaker := newBreaker(c, lrclib.ProviderName)

	reg := providers.NewRegistry()
	reg.Register(musixmatch.NewProvider(musixmatch.NewClient(musixmatch.ClientConfig{
		BaseURL:   c.Configuration.MusixmatchProxyURL,
		UserAgent: c.Configuration.UserAgent,
		Timeout:   timeout,
		Breaker:   mxmBreaker,
	})))
	var lrcOpts []lrclib.Option
	if c.FeatureFlags.RankLrcLibSearch {
		lrcOpts = append(lrcOpts, lrclib.WithRankedSearch())
	}
	reg.Register(lrclib.NewProvider(lrclib.NewClient(lrclib.ClientConfig{
		BaseURL:   c.Configuration.LrcLibBaseURL,
		UserAgent: c.Configuration.UserAgent,
		Timeout:   timeout,
		Breaker:   lrcBreaker,
	}), lrcOpts...))

	log.Infof("%s Registered providers: %v", logcolors.LogServer, reg.List())
	return reg, []*circuitbreaker.CircuitBreaker{mxmBreaker, lrcBreaker}
}

// newPlaybackSource returns the configured player, or nil when playback
// state is only pushed through POST /now-playing.
func newPlaybackSource(c config.Config) (playback.Source, error) {
	switch strings.ToLower(c.Configuration.PlaybackSource) {
	case "mpris":
		return playback.NewMPRIS(c.Configuration.MPRISService)
	case "spotify":
		if c.Configuration.SpotifyAccessToken == "" {
			log.Warnf("%s PLAYBACK_SOURCE=spotify but SPOTIFY_ACCESS_TOKEN is empty", logcolors.LogConfig)
		}
		return playback.NewSpotify(
			c.Configuration.SpotifyAPIURL,
			c.Configuration.SpotifyAccessToken,
			seconds(c.Configuration.RequestTimeoutSecs),
		), nil
	default:
		return nil, nil
	}
}

// setupPlayback starts polling the configured player into s
func setupPlayback(ctx context.Context, c config.Config, s *tracker.Session) {
	src, err := newPlaybackSource(c)
	if err != nil {
		log.Errorf("%s Unable to start %s source: %v", logcolors.LogPlayback, c.Configuration.PlaybackSource, err)
		return
	}
	if src == nil {
		log.Infof("%s No playback source configured, waiting for POST /now-playing", logcolors.LogPlayback)
		return
	}

	interval := time.Duration(c.Configuration.PlaybackPollIntervalMs) * time.Millisecond
	log.Infof("%s Polling %s every %v", logcolors.LogPlayback, src.Name(), interval)
	go func() {
		defer src.Close()
		playback.Run(ctx, src, interval, s)
	}()
}

// openCache opens the persistent cache described by c
func openCache(c config.Config) (*cache.PersistentCache, error) {
	return cache.NewPersistentCache(
		c.Configuration.CachePath,
		c.Configuration.CacheBackupPath,
		c.FeatureFlags.CacheCompression,
	)
}

// newRateLimiter builds the two-tier limiter from c
func newRateLimiter(c config.Config) *middleware.IPRateLimiter {
	return middleware.NewIPRateLimiter(
		rate.Limit(c.Configuration.RateLimitPerSecond),
		c.Configuration.RateLimitBurstLimit,
		rate.Limit(c.Configuration.CachedRateLimitPerSecond),
		c.Configuration.CachedRateLimitBurstLimit,
	)
}

// metricsHandler serves the server counters plus Go runtime and process
// metrics in the Prometheus text format.
func metricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		stats.NewCollector(stats.Get()),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// statsMiddleware feeds request counters, status classes and timings
func statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		s := stats.Get()
		s.RecordRequest(r.URL.Path)
		s.RecordStatusCode(rec.StatusCode)
		s.RecordResponseTime(time.Since(start))
	})
}

// buildHandler wraps the router in the middleware chain
func buildHandler(c config.Config, router http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   c.AllowedOriginList(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		ExposedHeaders:   []string{"X-Cache-Status", "X-Lyrics-Source", "X-RateLimit-Type", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	})

	var h http.Handler = router
	h = middleware.APIKeyMiddleware(c.Configuration.APIKey, c.Configuration.APIKeyRequired, publicPaths)(h)
	h = corsHandler.Handler(h)
	h = middleware.RateLimitMiddleware(limiter, c.Configuration.APIKey)(h)
	h = statsMiddleware(h)
	return middleware.LoggingMiddleware(h)
}
