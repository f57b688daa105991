// Package timedtext converts raw provider payloads into ordered lyric lines.
//
// Both parsers are total: malformed input yields fewer (possibly zero)
// lines, never an error, so callers can fall through to the next strategy.
package timedtext

import (
	"regexp"
	"strconv"
	"strings"

	"lyrics-sync-go/services/providers"
)

// lrcTagRegex matches a [MM:SS.ff] or [MM:SS.fff] timestamp tag
var lrcTagRegex = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\]`)

// ParseLRC parses LRC text into timed lines.
// Only the first timestamp tag of each input line is used; lines without a
// tag (metadata, blank lines, plain text) are ignored, as are tagged lines
// whose remaining text is blank. Output order equals input order.
func ParseLRC(lrc string) []providers.Line {
	var lines []providers.Line

	for _, raw := range strings.Split(lrc, "\n") {
		loc := lrcTagRegex.FindStringSubmatchIndex(raw)
		if loc == nil {
			continue
		}

		minutes, _ := strconv.Atoi(raw[loc[2]:loc[3]])
		seconds, _ := strconv.Atoi(raw[loc[4]:loc[5]])
		frac := raw[loc[6]:loc[7]]
		// 2 digits are centiseconds, 3 are milliseconds
		millis, _ := strconv.Atoi(frac + strings.Repeat("0", 3-len(frac)))

		text := strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
		if text == "" {
			continue
		}

		lines = append(lines, providers.Line{
			Time: float64(minutes*60+seconds) + float64(millis)/1000,
			Text: text,
		})
	}

	return lines
}
