package providers

import (
	"errors"
	"strings"
)

// Source identifies the upstream that produced a LyricsResult
type Source string

const (
	SourceMusixmatch Source = "musixmatch"
	SourceLrcLib     Source = "lrclib"
	SourceNone       Source = ""
)

// Preference restricts which upstreams a resolution may consult
type Preference string

const (
	PreferenceAuto       Preference = "auto"
	PreferenceMusixmatch Preference = "musixmatch"
	PreferenceLrcLib     Preference = "lrclib"
)

// ParsePreference maps a user-supplied value onto a Preference.
// Anything unrecognised falls back to auto.
func ParsePreference(s string) Preference {
	switch Preference(strings.ToLower(strings.TrimSpace(s))) {
	case PreferenceMusixmatch:
		return PreferenceMusixmatch
	case PreferenceLrcLib:
		return PreferenceLrcLib
	default:
		return PreferenceAuto
	}
}

// Allows reports whether src may be consulted under p
func (p Preference) Allows(src Source) bool {
	switch src {
	case SourceMusixmatch:
		return p == PreferenceAuto || p == PreferenceMusixmatch
	case SourceLrcLib:
		return p == PreferenceAuto || p == PreferenceLrcLib
	default:
		return false
	}
}

// TrackQuery identifies the track to resolve lyrics for.
// An empty ISRC means the playback source did not report one.
type TrackQuery struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int    `json:"durationMs"`
	ISRC       string `json:"isrc,omitempty"`
}

// Valid reports whether the query carries enough to search with
func (q TrackQuery) Valid() bool {
	return q.Name != "" && q.Artist != ""
}

// Line is a single lyric line; Time is the offset from track start in seconds
type Line struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// LyricsResult is the standardized result of a resolution.
// When Synced is false Lines holds exactly one line at time 0.
type LyricsResult struct {
	Lines  []Line `json:"lyrics"`
	Synced bool   `json:"synced"`
	Source Source `json:"source"`
}

// Empty reports whether r carries no lines
func (r *LyricsResult) Empty() bool {
	return r == nil || len(r.Lines) == 0
}

// IsPlaceholder reports whether r is a terminal "nothing found" result
func (r *LyricsResult) IsPlaceholder() bool {
	return r != nil && r.Source == SourceNone
}

// Placeholder messages shown when no provider produced lines
const (
	NotFoundText   = "Lyrics not found."
	LoadFailedText = "Unable to load lyrics."
)

// NewPlaceholder builds the unsynced, sourceless result used when the chain is exhausted
func NewPlaceholder(text string) *LyricsResult {
	return &LyricsResult{
		Lines:  []Line{{Time: 0, Text: text}},
		Synced: false,
		Source: SourceNone,
	}
}

// NewSynced wraps parsed lines, returning nil when there are none
func NewSynced(src Source, lines []Line) *LyricsResult {
	if len(lines) == 0 {
		return nil
	}
	return &LyricsResult{Lines: lines, Synced: true, Source: src}
}

// NewPlain wraps a plain-text payload as a single unsynced line,
// returning nil when the text is blank
func NewPlain(src Source, text string) *LyricsResult {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &LyricsResult{
		Lines:  []Line{{Time: 0, Text: text}},
		Synced: false,
		Source: src,
	}
}

// ErrNoLyrics is returned by strategies that reached the upstream but got nothing usable
var ErrNoLyrics = errors.New("no lyrics in response")

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}
