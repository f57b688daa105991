package main

import (
	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/tracker"
)

// LyricsResponse is the body of /getLyrics and /cache/lookup
type LyricsResponse struct {
	Lyrics      []providers.Line `json:"lyrics"`
	Synced      bool             `json:"synced"`
	Source      providers.Source `json:"source"`
	ActiveIndex *int             `json:"activeIndex,omitempty"`
}

func newLyricsResponse(result *providers.LyricsResult) LyricsResponse {
	return LyricsResponse{
		Lyrics: result.Lines,
		Synced: result.Synced,
		Source: result.Source,
	}
}

// NowPlayingRequest is the body accepted by POST /now-playing.
// A missing track means nothing is playing.
type NowPlayingRequest struct {
	Track    *providers.TrackQuery `json:"track"`
	Position float64               `json:"position"`
	Playing  bool                  `json:"playing"`
}

func (n NowPlayingRequest) observation() tracker.Observation {
	return tracker.Observation{
		Track:           n.Track,
		PositionSeconds: n.Position,
		Playing:         n.Playing,
	}
}

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache
type CacheDumpResponse struct {
	NumberOfKeys int               `json:"number_of_keys"`
	SizeInKB     int               `json:"size_kb"`
	SizeInMB     float64           `json:"size_mb"`
	Performance  CachePerformance  `json:"performance"`
	Entries      []cache.EntryInfo `json:"entries"`
}

// CircuitBreakerResponse is the response format for /circuit-breaker
type CircuitBreakerResponse struct {
	Breakers []circuitbreaker.Status `json:"breakers"`
	Config   struct {
		Threshold   int `json:"threshold"`
		CooldownSec int `json:"cooldown_sec"`
	} `json:"config"`
}
