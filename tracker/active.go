// Package tracker keeps a playback session in sync with its lyrics: which
// track is playing, what lyrics resolved for it, and which line is active.
package tracker

import (
	"math"

	"lyrics-sync-go/services/providers"
)

// NoActiveLine is returned when no line has been reached yet
const NoActiveLine = -1

// ActiveLineIndex returns the index of the line that should be highlighted
// at currentSeconds: the first i with currentSeconds >= lines[i].Time and
// either i is last or currentSeconds < lines[i+1].Time. Line times must be
// non-decreasing. It does not allocate.
func ActiveLineIndex(lines []providers.Line, currentSeconds float64) int {
	if len(lines) == 0 || math.IsNaN(currentSeconds) || currentSeconds < lines[0].Time {
		return NoActiveLine
	}

	// Find the first line whose time is still ahead of currentSeconds;
	// the active line is the one before it.
	lo, hi := 0, len(lines)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if lines[mid].Time > currentSeconds {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo - 1
}
