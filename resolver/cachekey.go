package resolver

import (
	"encoding/json"
	"fmt"

	"lyrics-sync-go/services/providers"
)

// KeyPrefix starts every lyrics cache key
const KeyPrefix = "lyrics_mxm_"

// CacheKey derives the cache key for a query under a preference.
// Album, duration and ISRC are not part of the key, so two recordings
// sharing name and artist share an entry.
func CacheKey(q providers.TrackQuery, pref providers.Preference) string {
	return fmt.Sprintf("%s%s_%s_%s", KeyPrefix, q.Name, q.Artist, pref)
}

// encodeResult serializes a result in the persisted {lyrics, synced, source} shape
func encodeResult(r *providers.LyricsResult) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeResult parses a persisted entry. Entries written before the source
// tag existed carry none and are attributed to LrcLib.
func decodeResult(raw string) (*providers.LyricsResult, error) {
	var r providers.LyricsResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, err
	}
	if len(r.Lines) == 0 {
		return nil, fmt.Errorf("cached entry has no lines")
	}
	if r.Source == providers.SourceNone {
		r.Source = providers.SourceLrcLib
	}
	return &r, nil
}
