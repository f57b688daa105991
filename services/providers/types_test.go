package providers

import (
	"errors"
	"testing"
)

func TestParsePreference(t *testing.T) {
	tests := []struct {
		input    string
		expected Preference
	}{
		{"auto", PreferenceAuto},
		{"musixmatch", PreferenceMusixmatch},
		{"MusixMatch", PreferenceMusixmatch},
		{" lrclib ", PreferenceLrcLib},
		{"", PreferenceAuto},
		{"genius", PreferenceAuto},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParsePreference(tt.input); got != tt.expected {
				t.Errorf("ParsePreference(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPreference_Allows(t *testing.T) {
	tests := []struct {
		pref       Preference
		musixmatch bool
		lrclib     bool
	}{
		{PreferenceAuto, true, true},
		{PreferenceMusixmatch, true, false},
		{PreferenceLrcLib, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.pref), func(t *testing.T) {
			if got := tt.pref.Allows(SourceMusixmatch); got != tt.musixmatch {
				t.Errorf("Allows(musixmatch) = %v, expected %v", got, tt.musixmatch)
			}
			if got := tt.pref.Allows(SourceLrcLib); got != tt.lrclib {
				t.Errorf("Allows(lrclib) = %v, expected %v", got, tt.lrclib)
			}
			if tt.pref.Allows(SourceNone) {
				t.Error("No preference should allow SourceNone")
			}
		})
	}
}

func TestTrackQuery_Valid(t *testing.T) {
	if !(TrackQuery{Name: "Song", Artist: "Artist"}).Valid() {
		t.Error("Expected query with name and artist to be valid")
	}
	if (TrackQuery{Name: "Song"}).Valid() {
		t.Error("Expected query without artist to be invalid")
	}
}

func TestNewPlaceholder(t *testing.T) {
	r := NewPlaceholder(NotFoundText)

	if r.Synced {
		t.Error("Placeholder must be unsynced")
	}
	if r.Source != SourceNone {
		t.Errorf("Placeholder source = %q, expected none", r.Source)
	}
	if len(r.Lines) != 1 || r.Lines[0].Time != 0 || r.Lines[0].Text != NotFoundText {
		t.Errorf("Unexpected placeholder lines: %+v", r.Lines)
	}
	if !r.IsPlaceholder() {
		t.Error("Expected IsPlaceholder() to be true")
	}
}

func TestNewSynced(t *testing.T) {
	if NewSynced(SourceLrcLib, nil) != nil {
		t.Error("Expected nil for empty lines")
	}

	r := NewSynced(SourceLrcLib, []Line{{Time: 1, Text: "a"}})
	if r == nil || !r.Synced || r.Source != SourceLrcLib {
		t.Errorf("Unexpected result: %+v", r)
	}
	if r.IsPlaceholder() {
		t.Error("Synced result must not be a placeholder")
	}
}

func TestNewPlain(t *testing.T) {
	if NewPlain(SourceMusixmatch, "  \n ") != nil {
		t.Error("Expected nil for blank text")
	}

	text := "first line\nsecond line"
	r := NewPlain(SourceMusixmatch, text)
	if r == nil {
		t.Fatal("Expected a result")
	}
	if r.Synced {
		t.Error("Plain result must be unsynced")
	}
	if len(r.Lines) != 1 || r.Lines[0].Time != 0 || r.Lines[0].Text != text {
		t.Errorf("Unexpected lines: %+v", r.Lines)
	}
}

func TestLyricsResult_Empty(t *testing.T) {
	var nilResult *LyricsResult
	if !nilResult.Empty() {
		t.Error("nil result should be empty")
	}
	if !(&LyricsResult{}).Empty() {
		t.Error("result without lines should be empty")
	}
	if (&LyricsResult{Lines: []Line{{Text: "x"}}}).Empty() {
		t.Error("result with lines should not be empty")
	}
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		message  string
		err      error
		expected string
	}{
		{
			name:     "Without wrapped error",
			provider: "LrcLib",
			message:  "search failed",
			expected: "LrcLib: search failed",
		},
		{
			name:     "With wrapped error",
			provider: "Musixmatch",
			message:  "richsync request failed",
			err:      errors.New("connection timeout"),
			expected: "Musixmatch: richsync request failed: connection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError(tt.provider, tt.message, tt.err)
			if err.Error() != tt.expected {
				t.Errorf("Error() = %q, expected %q", err.Error(), tt.expected)
			}
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewProviderError("LrcLib", "outer", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var pe *ProviderError
	if !errors.As(error(err), &pe) {
		t.Error("errors.As should match *ProviderError")
	}
}
