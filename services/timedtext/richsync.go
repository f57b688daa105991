package timedtext

import (
	"encoding/json"
	"strconv"
	"strings"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

// richsyncLine is one entry of a Musixmatch richsync_body array
type richsyncLine struct {
	Start     *seconds           `json:"ts"`
	End       *seconds           `json:"te"`
	Fragments []richsyncFragment `json:"l"`
	Text      string             `json:"x"`
}

// seconds accepts both 12.5 and "12.5"
type seconds float64

func (s *seconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*s = seconds(v)
	return nil
}

// richsyncFragment is a word or syllable; Offset is relative to the line start
type richsyncFragment struct {
	Chars  string  `json:"c"`
	Offset float64 `json:"o"`
}

// ParseRichsync parses a word-level richsync body into line-level lyrics.
// Fragments are concatenated as-is since they already carry their own
// spacing. A body that is not a JSON array yields an empty result; a
// malformed entry is skipped.
func ParseRichsync(body string) []providers.Line {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		log.Debugf("%s Malformed richsync body: %v", logcolors.LogParser, err)
		return nil
	}

	var lines []providers.Line
	var sb strings.Builder
	for i, raw := range entries {
		var e richsyncLine
		if err := json.Unmarshal(raw, &e); err != nil {
			log.Debugf("%s Skipping richsync entry %d: %v", logcolors.LogParser, i, err)
			continue
		}
		if e.Start == nil || e.Fragments == nil {
			continue
		}

		sb.Reset()
		for _, f := range e.Fragments {
			sb.WriteString(f.Chars)
		}

		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		lines = append(lines, providers.Line{Time: float64(*e.Start), Text: text})
	}

	return lines
}
