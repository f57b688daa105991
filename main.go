package main

import (
	"context"
	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/resolver"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/tracker"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

var conf = config.Get()

var (
	persistentCache *cache.PersistentCache
	registry        *providers.Registry
	breakers        []*circuitbreaker.CircuitBreaker
	lyricsResolver  *resolver.Resolver
	session         *tracker.Session
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(conf.Configuration.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var err error
	persistentCache, err = openCache(conf)
	if err != nil {
		log.Fatalf("%s Failed to open cache: %v", logcolors.LogCacheInit, err)
	}
	defer persistentCache.Close()

	registry, breakers = setupProviders(conf)
	lyricsResolver = resolver.New(resolver.Config{
		Cache:    persistentCache,
		Registry: registry,
		Timeout:  time.Duration(conf.Configuration.ResolveTimeoutSecs) * time.Second,
	})

	session = tracker.NewSession(lyricsResolver, providers.ParsePreference(conf.Configuration.DefaultPreference))
	go session.Run(ctx)
	setupPlayback(ctx, conf, session)

	limiter := newRateLimiter(conf)
	go limiter.RunCleanup(ctx, 5*time.Minute, 30*time.Minute)

	handler := buildHandler(conf, newRouter(), limiter)

	log.Infof("%s Listening on port %s", logcolors.LogServer, conf.Configuration.Port)
	log.Fatal(http.ListenAndServe(":"+conf.Configuration.Port, handler))
}
