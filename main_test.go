package main

import (
	"context"
	"encoding/json"
	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/config"
	"lyrics-sync-go/middleware"
	"lyrics-sync-go/resolver"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/tracker"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

const testToken = "test-token"

type stubProvider struct {
	source providers.Source
	result *providers.LyricsResult
	calls  atomic.Int32
}

func (s *stubProvider) Name() string             { return string(s.source) }
func (s *stubProvider) Source() providers.Source { return s.source }
func (s *stubProvider) Attempt(ctx context.Context, q providers.TrackQuery) *providers.LyricsResult {
	s.calls.Add(1)
	return s.result
}

var rickLines = []providers.Line{
	{Time: 0.5, Text: "We're no strangers to love"},
	{Time: 4.2, Text: "You know the rules and so do I"},
	{Time: 8.9, Text: "A full commitment's what I'm thinking of"},
}

// setupTestEnvironment wires a temporary cache, the given providers and a
// running session into the package globals used by the handlers.
func setupTestEnvironment(t *testing.T, provs ...providers.Provider) {
	t.Helper()

	tmpDir := t.TempDir()
	var err error
	persistentCache, err = cache.NewPersistentCache(
		filepath.Join(tmpDir, "test_cache.db"),
		filepath.Join(tmpDir, "backups"),
		false,
	)
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}

	registry = providers.NewRegistry()
	for _, p := range provs {
		registry.Register(p)
	}
	breakers = []*circuitbreaker.CircuitBreaker{
		circuitbreaker.New(circuitbreaker.Config{Name: "Musixmatch", Threshold: 1, Cooldown: time.Minute}),
	}
	lyricsResolver = resolver.New(resolver.Config{
		Cache:    persistentCache,
		Registry: registry,
		Timeout:  5 * time.Second,
		Stats:    stats.New(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	session = tracker.NewSession(lyricsResolver, providers.PreferenceAuto)
	go session.Run(ctx)

	saved := conf
	conf.Configuration.CacheAccessToken = testToken
	conf.Configuration.DefaultPreference = "auto"
	conf.Configuration.APIKey = ""

	t.Cleanup(func() {
		cancel()
		persistentCache.Close()
		conf = saved
	})
}

func serve(t *testing.T, h http.Handler, method, target string, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if auth {
		r.Header.Set("Authorization", testToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeLyrics(t *testing.T, w *httptest.ResponseRecorder) LyricsResponse {
	t.Helper()
	var body LyricsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestGetLyrics_MissThenHit(t *testing.T) {
	mxm := &stubProvider{source: providers.SourceMusixmatch, result: providers.NewSynced(providers.SourceMusixmatch, rickLines)}
	setupTestEnvironment(t, mxm)
	router := newRouter()

	target := "/getLyrics?s=Never+Gonna+Give+You+Up&a=Rick+Astley&d=213000&t=5"

	first := serve(t, router, "GET", target, "", false)
	if first.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", first.Code, first.Body.String())
	}
	if first.Header().Get("X-Cache-Status") != "MISS" {
		t.Errorf("Expected MISS, got %q", first.Header().Get("X-Cache-Status"))
	}
	if first.Header().Get("X-Lyrics-Source") != "musixmatch" {
		t.Errorf("Expected musixmatch source header, got %q", first.Header().Get("X-Lyrics-Source"))
	}

	body := decodeLyrics(t, first)
	if !body.Synced || body.Source != providers.SourceMusixmatch || len(body.Lyrics) != 3 {
		t.Errorf("Unexpected body %+v", body)
	}
	if body.ActiveIndex == nil || *body.ActiveIndex != 1 {
		t.Errorf("Expected activeIndex 1 at 5s, got %v", body.ActiveIndex)
	}

	second := serve(t, router, "GET", target, "", false)
	if second.Header().Get("X-Cache-Status") != "HIT" {
		t.Errorf("Expected HIT, got %q", second.Header().Get("X-Cache-Status"))
	}
	if mxm.calls.Load() != 1 {
		t.Errorf("Expected one provider call, got %d", mxm.calls.Load())
	}
}

func TestGetLyrics_NoPositionOmitsActiveIndex(t *testing.T) {
	setupTestEnvironment(t, &stubProvider{source: providers.SourceMusixmatch, result: providers.NewSynced(providers.SourceMusixmatch, rickLines)})

	w := serve(t, newRouter(), "GET", "/getLyrics?s=Song&a=Artist", "", false)
	if strings.Contains(w.Body.String(), "activeIndex") {
		t.Errorf("Expected no activeIndex without t, got %s", w.Body.String())
	}
}

func TestGetLyrics_PlainLyricsActiveIndex(t *testing.T) {
	setupTestEnvironment(t, &stubProvider{source: providers.SourceMusixmatch, result: providers.NewPlain(providers.SourceMusixmatch, "plain words")})

	w := serve(t, newRouter(), "GET", "/getLyrics?s=Song&a=Artist&t=12", "", false)
	body := decodeLyrics(t, w)
	if body.Synced || body.ActiveIndex == nil || *body.ActiveIndex != 0 {
		t.Errorf("Expected the single plain line to be active, got %+v", body)
	}
}

func TestGetLyrics_Validation(t *testing.T) {
	setupTestEnvironment(t)
	router := newRouter()

	tests := []struct {
		name     string
		target   string
		expected int
	}{
		{name: "missing artist", target: "/getLyrics?s=Song", expected: http.StatusUnprocessableEntity},
		{name: "missing both", target: "/getLyrics", expected: http.StatusUnprocessableEntity},
		{name: "bad duration", target: "/getLyrics?s=Song&a=Artist&d=abc", expected: http.StatusBadRequest},
		{name: "negative duration", target: "/getLyrics?s=Song&a=Artist&d=-5", expected: http.StatusBadRequest},
		{name: "bad position", target: "/getLyrics?s=Song&a=Artist&t=soon", expected: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, router, "GET", tt.target, "", false)
			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetLyrics_PlaceholderIsNotCached(t *testing.T) {
	empty := &stubProvider{source: providers.SourceMusixmatch}
	setupTestEnvironment(t, empty, &stubProvider{source: providers.SourceLrcLib})
	router := newRouter()

	for i := 0; i < 2; i++ {
		w := serve(t, router, "GET", "/getLyrics?s=Unknown&a=Nobody", "", false)
		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", w.Code)
		}
		if w.Header().Get("X-Lyrics-Source") != "none" {
			t.Errorf("Expected source header none, got %q", w.Header().Get("X-Lyrics-Source"))
		}
		body := decodeLyrics(t, w)
		if body.Synced || len(body.Lyrics) != 1 || body.Lyrics[0].Text != providers.NotFoundText {
			t.Errorf("Expected the not-found placeholder, got %+v", body)
		}
	}

	if empty.calls.Load() != 2 {
		t.Errorf("Expected both requests to reach the provider, got %d calls", empty.calls.Load())
	}
}

func TestGetLyrics_SourcePreference(t *testing.T) {
	mxm := &stubProvider{source: providers.SourceMusixmatch, result: providers.NewSynced(providers.SourceMusixmatch, rickLines)}
	lrc := &stubProvider{source: providers.SourceLrcLib, result: providers.NewPlain(providers.SourceLrcLib, "plain words")}
	setupTestEnvironment(t, mxm, lrc)

	w := serve(t, newRouter(), "GET", "/getLyrics?s=Song&a=Artist&source=lrclib&t=3", "", false)

	body := decodeLyrics(t, w)
	if body.Source != providers.SourceLrcLib || body.Synced {
		t.Errorf("Expected plain LrcLib result, got %+v", body)
	}
	if body.ActiveIndex != nil {
		t.Errorf("Expected no activeIndex for plain lyrics, got %d", *body.ActiveIndex)
	}
	if mxm.calls.Load() != 0 {
		t.Errorf("Expected Musixmatch to be skipped, got %d calls", mxm.calls.Load())
	}
}

func TestGetLyrics_CacheOnlyTier(t *testing.T) {
	setupTestEnvironment(t, &stubProvider{source: providers.SourceMusixmatch, result: providers.NewSynced(providers.SourceMusixmatch, rickLines)})

	limiter := middleware.NewIPRateLimiter(rate.Limit(0.001), 1, rate.Limit(0.001), 5)
	h := middleware.RateLimitMiddleware(limiter, "")(newRouter())

	if w := serve(t, h, "GET", "/getLyrics?s=Cached&a=Artist", "", false); w.Header().Get("X-RateLimit-Type") != "normal" {
		t.Fatalf("Expected normal tier, got %q", w.Header().Get("X-RateLimit-Type"))
	}

	hit := serve(t, h, "GET", "/getLyrics?s=Cached&a=Artist", "", false)
	if hit.Code != http.StatusOK || hit.Header().Get("X-Cache-Status") != "HIT" {
		t.Errorf("Expected cached tier to serve the cached entry, got %d %q", hit.Code, hit.Header().Get("X-Cache-Status"))
	}
	if hit.Header().Get("X-RateLimit-Type") != "cached" {
		t.Errorf("Expected cached tier header, got %q", hit.Header().Get("X-RateLimit-Type"))
	}

	miss := serve(t, h, "GET", "/getLyrics?s=Fresh&a=Artist", "", false)
	if miss.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for an uncached query on the cached tier, got %d", miss.Code)
	}
	if miss.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After 60, got %q", miss.Header().Get("Retry-After"))
	}
}

func waitForSnapshot(t *testing.T, router http.Handler, cond func(tracker.Snapshot) bool) tracker.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := serve(t, router, "GET", "/now-playing", "", false)
		var raw struct {
			State      string                  `json:"state"`
			Preference providers.Preference    `json:"preference"`
			Result     *providers.LyricsResult `json:"result"`
			Position   float64                 `json:"position"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
			t.Fatalf("Failed to decode snapshot: %v", err)
		}
		snap := tracker.Snapshot{Preference: raw.Preference, Result: raw.Result, Position: raw.Position}
		switch raw.State {
		case "resolved":
			snap.State = tracker.StateResolved
		case "failed":
			snap.State = tracker.StateFailed
		case "loading":
			snap.State = tracker.StateLoading
		}
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for snapshot, last: %s", w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNowPlaying_PushedObservationResolves(t *testing.T) {
	setupTestEnvironment(t, &stubProvider{source: providers.SourceMusixmatch, result: providers.NewSynced(providers.SourceMusixmatch, rickLines)})
	router := newRouter()

	w := serve(t, router, "POST", "/now-playing",
		`{"track":{"name":"Never Gonna Give You Up","artist":"Rick Astley","durationMs":213000},"position":9.5,"playing":true}`, false)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}

	snap := waitForSnapshot(t, router, func(s tracker.Snapshot) bool { return s.State == tracker.StateResolved })
	if snap.Result == nil || snap.Result.Source != providers.SourceMusixmatch {
		t.Errorf("Expected a Musixmatch result, got %+v", snap.Result)
	}
	if snap.Position != 9.5 {
		t.Errorf("Expected position 9.5, got %v", snap.Position)
	}
}

func TestNowPlaying_RejectsBadBodies(t *testing.T) {
	setupTestEnvironment(t)
	router := newRouter()

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{name: "not json", body: "{", expected: http.StatusBadRequest},
		{name: "track without artist", body: `{"track":{"name":"Song"}}`, expected: http.StatusUnprocessableEntity},
		{name: "nothing playing", body: `{"playing":false}`, expected: http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(t, router, "POST", "/now-playing", tt.body, false); w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestSetPreference(t *testing.T) {
	setupTestEnvironment(t)
	router := newRouter()

	if w := serve(t, router, "POST", "/preference", "", false); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without source, got %d", w.Code)
	}

	w := serve(t, router, "POST", "/preference?source=LrcLib", "", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"lrclib"`) {
		t.Fatalf("Expected lrclib preference, got %d %s", w.Code, w.Body.String())
	}

	waitForSnapshot(t, router, func(s tracker.Snapshot) bool { return s.Preference == providers.PreferenceLrcLib })
}

func TestCacheEndpoints_RequireAuth(t *testing.T) {
	setupTestEnvironment(t)
	router := newRouter()

	routes := []struct{ method, path string }{
		{"GET", "/cache"},
		{"GET", "/cache/lookup?s=a&a=b"},
		{"POST", "/cache/delete?key=x"},
		{"POST", "/cache/backup"},
		{"POST", "/cache/clear"},
		{"GET", "/cache/backups"},
		{"GET", "/circuit-breaker"},
		{"POST", "/circuit-breaker/reset"},
	}
	for _, rt := range routes {
		if w := serve(t, router, rt.method, rt.path, "", false); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without auth: expected 401, got %d", rt.method, rt.path, w.Code)
		}
	}

	conf.Configuration.CacheAccessToken = ""
	if w := serve(t, router, "GET", "/cache", "", true); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected an unset token to lock the endpoint, got %d", w.Code)
	}
}

func TestCacheLookupAndDelete(t *testing.T) {
	setupTestEnvironment(t, &stubProvider{source: providers.SourceMusixmatch, result: providers.NewSynced(providers.SourceMusixmatch, rickLines)})
	router := newRouter()

	serve(t, router, "GET", "/getLyrics?s=Song&a=Artist", "", false)

	lookup := serve(t, router, "GET", "/cache/lookup?s=Song&a=Artist", "", true)
	if lookup.Code != http.StatusOK {
		t.Fatalf("Expected 200 from lookup, got %d", lookup.Code)
	}
	expectedKey := "lyrics_mxm_Song_Artist_auto"
	if !strings.Contains(lookup.Body.String(), expectedKey) {
		t.Errorf("Expected key %s in %s", expectedKey, lookup.Body.String())
	}

	dump := serve(t, router, "GET", "/cache", "", true)
	var dumpBody CacheDumpResponse
	json.Unmarshal(dump.Body.Bytes(), &dumpBody)
	if dumpBody.NumberOfKeys != 1 || len(dumpBody.Entries) != 1 || dumpBody.Entries[0].Key != expectedKey {
		t.Errorf("Unexpected dump %+v", dumpBody)
	}

	if w := serve(t, router, "POST", "/cache/delete?s=Song&a=Artist", "", true); w.Code != http.StatusOK {
		t.Errorf("Expected 200 from delete, got %d: %s", w.Code, w.Body.String())
	}
	if w := serve(t, router, "GET", "/cache/lookup?s=Song&a=Artist", "", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
	if w := serve(t, router, "POST", "/cache/delete?key="+expectedKey, "", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting a missing key, got %d", w.Code)
	}
	if w := serve(t, router, "POST", "/cache/delete", "", true); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without key or track, got %d", w.Code)
	}
}

func TestCacheBackupAndClear(t *testing.T) {
	setupTestEnvironment(t, &stubProvider{source: providers.SourceMusixmatch, result: providers.NewSynced(providers.SourceMusixmatch, rickLines)})
	router := newRouter()

	serve(t, router, "GET", "/getLyrics?s=Song&a=Artist", "", false)

	if w := serve(t, router, "POST", "/cache/backup", "", true); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "backup_path") {
		t.Fatalf("Expected backup to succeed, got %d %s", w.Code, w.Body.String())
	}

	time.Sleep(5 * time.Millisecond)
	if w := serve(t, router, "POST", "/cache/clear", "", true); w.Code != http.StatusOK {
		t.Fatalf("Expected clear to succeed, got %d %s", w.Code, w.Body.String())
	}
	if numKeys, _ := persistentCache.Stats(); numKeys != 0 {
		t.Errorf("Expected empty cache after clear, got %d keys", numKeys)
	}

	w := serve(t, router, "GET", "/cache/backups", "", true)
	var body struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Count != 2 {
		t.Errorf("Expected 2 backups, got %d", body.Count)
	}
}

func TestHealth_DegradedWhenCircuitOpen(t *testing.T) {
	setupTestEnvironment(t, &stubProvider{source: providers.SourceMusixmatch})
	router := newRouter()

	decode := func() map[string]interface{} {
		var body map[string]interface{}
		w := serve(t, router, "GET", "/health", "", false)
		json.Unmarshal(w.Body.Bytes(), &body)
		return body
	}

	if body := decode(); body["status"] != "ok" {
		t.Errorf("Expected ok, got %v", body["status"])
	}

	breakers[0].RecordFailure()
	body := decode()
	if body["status"] != "degraded" {
		t.Errorf("Expected degraded, got %v", body["status"])
	}
	if _, ok := body["circuit_breakers"]; ok {
		t.Error("Expected breaker details only for authorized callers")
	}

	w := serve(t, router, "POST", "/circuit-breaker/reset?name=Musixmatch", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected reset to succeed, got %d", w.Code)
	}
	if breakers[0].State() != circuitbreaker.StateClosed {
		t.Errorf("Expected CLOSED after reset, got %s", breakers[0].State())
	}
	if w := serve(t, router, "POST", "/circuit-breaker/reset?name=Genius", "", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown breaker, got %d", w.Code)
	}
}

func TestHealth_UnhealthyWithoutProviders(t *testing.T) {
	setupTestEnvironment(t)

	w := serve(t, newRouter(), "GET", "/health", "", false)
	if !strings.Contains(w.Body.String(), `"unhealthy"`) {
		t.Errorf("Expected unhealthy status, got %s", w.Body.String())
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	setupTestEnvironment(t)

	if w := serve(t, newRouter(), "GET", "/cache/clear", "", true); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /cache/clear, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	setupTestEnvironment(t)

	w := serve(t, newRouter(), "GET", "/metrics", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	for _, name := range []string{"lyrics_sync_requests_total", "lyrics_sync_cache_lookups_total", "go_goroutines"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("Expected %s in the exposition", name)
		}
	}
}

func TestTrackFromRequest(t *testing.T) {
	saved := conf
	defer func() { conf = saved }()
	conf.Configuration.DefaultPreference = "musixmatch"

	tests := []struct {
		name     string
		target   string
		expected providers.TrackQuery
		pref     providers.Preference
	}{
		{
			name:     "short names",
			target:   "/?s=Song&a=Artist&al=Album&d=213000&isrc=GBARL9300135",
			expected: providers.TrackQuery{Name: "Song", Artist: "Artist", Album: "Album", DurationMs: 213000, ISRC: "GBARL9300135"},
			pref:     providers.PreferenceMusixmatch,
		},
		{
			name:     "long names and whitespace",
			target:   "/?song=%20Long%20%20Song%20&artist=The%20Band&album=LP&duration=1000",
			expected: providers.TrackQuery{Name: "Long Song", Artist: "The Band", Album: "LP", DurationMs: 1000},
			pref:     providers.PreferenceMusixmatch,
		},
		{
			name:     "explicit source",
			target:   "/?s=Song&a=Artist&source=lrclib",
			expected: providers.TrackQuery{Name: "Song", Artist: "Artist"},
			pref:     providers.PreferenceLrcLib,
		},
		{
			name:     "unknown source falls back to auto",
			target:   "/?s=Song&a=Artist&source=genius",
			expected: providers.TrackQuery{Name: "Song", Artist: "Artist"},
			pref:     providers.PreferenceAuto,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, pref, err := trackFromRequest(httptest.NewRequest("GET", tt.target, nil))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if q != tt.expected {
				t.Errorf("Query = %+v, expected %+v", q, tt.expected)
			}
			if pref != tt.pref {
				t.Errorf("Preference = %q, expected %q", pref, tt.pref)
			}
		})
	}
}

func TestBuildHandler_Chain(t *testing.T) {
	setupTestEnvironment(t)

	var c config.Config
	c.Configuration.AllowedOrigins = "http://localhost:3000"
	c.Configuration.APIKey = "secret"
	c.Configuration.APIKeyRequired = true

	h := buildHandler(c, newRouter(), middleware.NewIPRateLimiter(10, 10, 10, 10))

	r := httptest.NewRequest("GET", "/health", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected public /health to pass, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Expected CORS header, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("X-RateLimit-Type") != "normal" {
		t.Errorf("Expected normal tier, got %q", w.Header().Get("X-RateLimit-Type"))
	}

	if w := serve(t, h, "GET", "/getLyrics?s=Song&a=Artist", "", false); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without API key, got %d", w.Code)
	}
}

func TestNewPlaybackSource(t *testing.T) {
	var c config.Config
	c.Configuration.PlaybackSource = "none"
	if src, err := newPlaybackSource(c); src != nil || err != nil {
		t.Errorf("Expected no source for none, got %v %v", src, err)
	}

	c.Configuration.PlaybackSource = "Spotify"
	c.Configuration.SpotifyAPIURL = "http://127.0.0.1:1/"
	src, err := newPlaybackSource(c)
	if err != nil || src == nil || src.Name() != "spotify" {
		t.Errorf("Expected a spotify source, got %v %v", src, err)
	}
}
