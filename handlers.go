package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/middleware"
	"lyrics-sync-go/resolver"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/tracker"
	"lyrics-sync-go/utils"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// queryParam returns the first non-empty value among the given names
func queryParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// trackFromRequest reads the track and preference from the query string.
// d is the duration in milliseconds.
func trackFromRequest(r *http.Request) (providers.TrackQuery, providers.Preference, error) {
	q := providers.TrackQuery{
		Name:   utils.CollapseSpaces(queryParam(r, "s", "song", "songName")),
		Artist: utils.CollapseSpaces(queryParam(r, "a", "artist", "artistName")),
		Album:  utils.CollapseSpaces(queryParam(r, "al", "album", "albumName")),
		ISRC:   queryParam(r, "isrc"),
	}

	if d := queryParam(r, "d", "duration"); d != "" {
		ms, err := strconv.Atoi(d)
		if err != nil || ms < 0 {
			return q, "", fmt.Errorf("invalid duration %q", d)
		}
		q.DurationMs = ms
	}

	pref := providers.ParsePreference(conf.Configuration.DefaultPreference)
	if src := queryParam(r, "source"); src != "" {
		pref = providers.ParsePreference(src)
	}
	return q, pref, nil
}

func getLyrics(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	query, pref, err := trackFromRequest(r)
	if err != nil {
		resp.Error(http.StatusBadRequest, err.Error())
		return
	}
	if !query.Valid() {
		resp.Error(http.StatusUnprocessableEntity, "Song name and artist name are required")
		return
	}

	var position *float64
	if t := queryParam(r, "t"); t != "" {
		secs, err := strconv.ParseFloat(t, 64)
		if err != nil {
			resp.Error(http.StatusBadRequest, fmt.Sprintf("invalid position %q", t))
			return
		}
		position = &secs
	}

	result, hit := lyricsResolver.Cached(query, pref)
	switch {
	case hit:
		stats.Get().RecordCacheHit()
		log.Infof("%s Found cached lyrics for %s - %s", logcolors.LogCacheLyrics, query.Artist, query.Name)
		resp.SetCacheStatus("HIT")

	case middleware.CacheOnly(r.Context()):
		stats.Get().RecordCacheMiss()
		log.Warnf("%s Cache-only tier but nothing cached for %s - %s", logcolors.LogRateLimit, query.Artist, query.Name)
		w.Header().Set("Retry-After", "60")
		resp.SetCacheStatus("MISS").Status(http.StatusTooManyRequests, map[string]string{
			"error":   "Rate limit exceeded. This request requires cached data, but no cache is available for this query.",
			"message": "Please try again later or reduce your request rate.",
		})
		return

	default:
		result = lyricsResolver.Resolve(r.Context(), query, pref)
		resp.SetCacheStatus("MISS")
	}

	body := newLyricsResponse(result)
	if position != nil {
		idx := tracker.ActiveLineIndex(result.Lines, *position)
		body.ActiveIndex = &idx
	}

	resp.SetSource(result.Source)
	if result.IsPlaceholder() {
		status := http.StatusNotFound
		if len(result.Lines) == 1 && result.Lines[0].Text == providers.LoadFailedText {
			status = http.StatusServiceUnavailable
		}
		resp.Status(status, body)
		return
	}
	resp.JSON(body)
}

func getNowPlaying(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	if r.Method == http.MethodGet {
		resp.JSON(session.Snapshot())
		return
	}

	var req NowPlayingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if req.Track != nil && !req.Track.Valid() {
		resp.Error(http.StatusUnprocessableEntity, "track needs a name and an artist")
		return
	}
	if !session.Observe(req.observation()) {
		resp.Error(http.StatusServiceUnavailable, "session is not running")
		return
	}
	resp.Status(http.StatusAccepted, map[string]bool{"accepted": true})
}

func setPreference(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	raw := queryParam(r, "source")
	if raw == "" {
		resp.Error(http.StatusBadRequest, "Missing 'source' query parameter (auto, musixmatch or lrclib)")
		return
	}

	pref := providers.ParsePreference(raw)
	if !session.SetPreference(pref) {
		resp.Error(http.StatusServiceUnavailable, "session is not running")
		return
	}
	resp.JSON(map[string]providers.Preference{"preference": pref})
}

// authorized checks the Authorization header against CACHE_ACCESS_TOKEN
func authorized(r *http.Request) bool {
	token := conf.Configuration.CacheAccessToken
	return token != "" && r.Header.Get("Authorization") == token
}

func requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	numKeys, sizeKB := persistentCache.Stats()
	s := stats.Get()

	Respond(w, r).JSON(CacheDumpResponse{
		NumberOfKeys: numKeys,
		SizeInKB:     sizeKB,
		SizeInMB:     float64(sizeKB) / 1024,
		Performance: CachePerformance{
			Hits:    s.CacheHits.Load(),
			Misses:  s.CacheMisses.Load(),
			HitRate: s.CacheHitRate(),
		},
		Entries: persistentCache.Entries(queryParam(r, "prefix")),
	})
}

func cacheLookup(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	query, pref, err := trackFromRequest(r)
	if err != nil {
		resp.Error(http.StatusBadRequest, err.Error())
		return
	}
	if !query.Valid() {
		resp.Error(http.StatusUnprocessableEntity, "Song name and artist name are required")
		return
	}

	key := resolver.CacheKey(query, pref)
	result, ok := lyricsResolver.Cached(query, pref)
	if !ok {
		resp.SetCacheStatus("MISS").Status(http.StatusNotFound, map[string]string{
			"error": "Not cached",
			"key":   key,
		})
		return
	}

	resp.SetCacheStatus("HIT").SetSource(result.Source).JSON(map[string]interface{}{
		"key":    key,
		"result": newLyricsResponse(result),
	})
}

func deleteCacheEntry(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	key := queryParam(r, "key")
	if key == "" {
		query, pref, err := trackFromRequest(r)
		if err != nil || !query.Valid() {
			resp.Error(http.StatusBadRequest, "Provide either 'key' or 's' and 'a' query parameters")
			return
		}
		key = resolver.CacheKey(query, pref)
	}

	if _, ok := persistentCache.Get(key); !ok {
		resp.Status(http.StatusNotFound, map[string]string{"error": cache.ErrKeyNotFound.Error(), "key": key})
		return
	}
	if err := persistentCache.Delete(key); err != nil {
		log.Errorf("%s Failed to delete %s: %v", logcolors.LogCache, key, err)
		resp.Error(http.StatusInternalServerError, fmt.Sprintf("Failed to delete entry: %v", err))
		return
	}

	log.Infof("%s Deleted %s", logcolors.LogCache, key)
	resp.JSON(map[string]string{"message": "Entry deleted", "key": key})
}

func backupCache(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	path, err := persistentCache.Backup()
	if err != nil {
		log.Errorf("%s Backup failed: %v", logcolors.LogCacheBackup, err)
		resp.Error(http.StatusInternalServerError, fmt.Sprintf("Failed to backup cache: %v", err))
		return
	}

	resp.JSON(map[string]string{"message": "Cache backed up successfully", "backup_path": path})
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	path, err := persistentCache.BackupAndClear()
	if err != nil {
		log.Errorf("%s Failed to clear cache: %v", logcolors.LogCacheClear, err)
		resp.Error(http.StatusInternalServerError, fmt.Sprintf("Failed to clear cache: %v", err))
		return
	}

	resp.JSON(map[string]string{"message": "Cache backed up and cleared successfully", "backup_path": path})
}

func listBackups(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	backups, err := persistentCache.ListBackups()
	if err != nil {
		log.Errorf("%s Failed to list backups: %v", logcolors.LogCacheBackups, err)
		resp.Error(http.StatusInternalServerError, fmt.Sprintf("Failed to list backups: %v", err))
		return
	}

	resp.JSON(map[string]interface{}{"count": len(backups), "backups": backups})
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	numKeys, _ := persistentCache.Stats()

	health := map[string]interface{}{
		"status":     "ok",
		"providers":  registry.List(),
		"cache_keys": numKeys,
		"session":    session.Snapshot().State,
	}

	var open []string
	for _, cb := range breakers {
		if cb.IsOpen() {
			open = append(open, cb.Name())
		}
	}
	if len(open) > 0 {
		health["status"] = "degraded"
		health["open_circuits"] = open
	}
	if len(registry.List()) == 0 {
		health["status"] = "unhealthy"
		health["error"] = "no lyrics providers registered"
	}

	if authorized(r) {
		statuses := make([]circuitbreaker.Status, 0, len(breakers))
		for _, cb := range breakers {
			statuses = append(statuses, cb.Status())
		}
		health["circuit_breakers"] = statuses
	}

	Respond(w, r).JSON(health)
}

func getStats(w http.ResponseWriter, r *http.Request) {
	snapshot := stats.Get().Snapshot()
	numKeys, sizeKB := persistentCache.Stats()
	snapshot["cache_storage"] = map[string]interface{}{
		"keys":    numKeys,
		"size_kb": sizeKB,
	}
	Respond(w, r).JSON(snapshot)
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	var body CircuitBreakerResponse
	for _, cb := range breakers {
		body.Breakers = append(body.Breakers, cb.Status())
	}
	body.Config.Threshold = conf.Configuration.CircuitBreakerThreshold
	body.Config.CooldownSec = conf.Configuration.CircuitBreakerCooldownSecs

	Respond(w, r).JSON(body)
}

var errUnknownBreaker = errors.New("unknown circuit breaker")

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	name := queryParam(r, "name")
	var reset []string
	for _, cb := range breakers {
		if name == "" || cb.Name() == name {
			cb.Reset()
			reset = append(reset, cb.Name())
		}
	}
	if len(reset) == 0 {
		resp.Error(http.StatusNotFound, fmt.Sprintf("%v: %s", errUnknownBreaker, name))
		return
	}

	resp.JSON(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
		"reset":   reset,
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /getLyrics to get time-synced lyrics. Example: /getLyrics?s=Never%20Gonna%20Give%20You%20Up&a=Rick%20Astley&d=213000&t=19.5",
		"endpoints": map[string]string{
			"GET /getLyrics":              "Resolve lyrics (s, a, al, d in ms, isrc, source, t in seconds)",
			"GET /now-playing":            "Current playback session",
			"POST /now-playing":           "Report playback state {track, position, playing}",
			"POST /preference":            "Change the session source preference (source=auto|musixmatch|lrclib)",
			"GET /cache":                  "Cache dump (auth)",
			"GET /cache/lookup":           "Look up a cached result (auth)",
			"POST /cache/delete":          "Delete a cached result by key or s/a/source (auth)",
			"POST /cache/backup":          "Back up the cache (auth)",
			"POST /cache/clear":           "Back up then clear the cache (auth)",
			"GET /cache/backups":          "List backups (auth)",
			"GET /health":                 "Health check",
			"GET /stats":                  "Counters",
			"GET /metrics":                "Prometheus metrics",
			"GET /circuit-breaker":        "Circuit breaker status (auth)",
			"POST /circuit-breaker/reset": "Reset circuit breakers, optionally ?name= (auth)",
		},
	})
}
