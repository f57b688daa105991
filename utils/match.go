package utils

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gosimple/slug"
)

// Flatten lowercases s, transliterates it to ASCII and turns punctuation
// into single spaces, so "Café Del-Mar!" becomes "cafe del mar".
func Flatten(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", " ")
}

// UniqueFields flattens s and drops repeated words, keeping first occurrences
func UniqueFields(s string) string {
	seen := make(map[string]bool)
	var fields []string
	for _, f := range strings.Fields(Flatten(s)) {
		if seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return strings.Join(fields, " ")
}

// MatchDistance is the edit distance between a search hit and the track
// that was searched for, compared on their flattened "{name} {artist}" forms.
// Zero means an exact match up to case, accents and punctuation.
func MatchDistance(name, artist, hitName, hitArtist string) int {
	return levenshtein.ComputeDistance(
		UniqueFields(SearchQuery(name, artist)),
		UniqueFields(SearchQuery(hitName, hitArtist)),
	)
}
