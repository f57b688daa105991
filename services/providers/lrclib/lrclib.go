// Package lrclib resolves line-synced lyrics from the public LrcLib API.
package lrclib

import (
	"context"
	"errors"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/services/timedtext"
	"lyrics-sync-go/utils"

	log "github.com/sirupsen/logrus"
)

const ProviderName = "LrcLib"

// Provider runs the LrcLib fallback chain
type Provider struct {
	client     *Client
	strategies []providers.Strategy
	rank       bool
}

// Option configures a Provider
type Option func(*Provider)

// WithRankedSearch makes the search strategy pick the hit closest to the
// query instead of the first one.
func WithRankedSearch() Option {
	return func(p *Provider) { p.rank = true }
}

// NewProvider creates a Provider backed by client
func NewProvider(client *Client, opts ...Option) *Provider {
	p := &Provider{client: client}
	for _, opt := range opts {
		opt(p)
	}
	p.strategies = []providers.Strategy{
		{Name: "exact", Attempt: p.exact},
		{Name: "search", Attempt: p.search},
	}
	return p
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) Source() providers.Source {
	return providers.SourceLrcLib
}

// Strategies returns the ordered chain
func (p *Provider) Strategies() []providers.Strategy {
	return p.strategies
}

// Attempt runs the chain and returns the first non-empty result
func (p *Provider) Attempt(ctx context.Context, query providers.TrackQuery) *providers.LyricsResult {
	return providers.RunStrategies(ctx, ProviderName, p.strategies, query)
}

func (p *Provider) exact(ctx context.Context, q providers.TrackQuery) (*providers.LyricsResult, error) {
	record, err := p.client.Get(ctx, q.Name, q.Artist, q.Album, q.DurationMs)
	if errors.Is(err, ErrNotFound) {
		log.Debugf("%s %s No exact match for %s - %s", logcolors.Provider(ProviderName), logcolors.LogNotFound, q.Artist, q.Name)
		return nil, nil
	}
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "exact lookup", err)
	}
	return fromRecord(record), nil
}

func (p *Provider) search(ctx context.Context, q providers.TrackQuery) (*providers.LyricsResult, error) {
	records, err := p.client.Search(ctx, utils.SearchQuery(q.Name, q.Artist))
	if errors.Is(err, ErrNotFound) || (err == nil && len(records) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "search", err)
	}

	best := 0
	if p.rank {
		best = closest(records, q)
	}
	hit := &records[best]
	log.Debugf("%s %s Picked %q by %q (distance %d)", logcolors.Provider(ProviderName), logcolors.LogMatch,
		hit.TrackName, hit.ArtistName, utils.MatchDistance(q.Name, q.Artist, hit.TrackName, hit.ArtistName))
	return fromRecord(hit), nil
}

// closest returns the index of the record nearest to q; ties keep the
// earlier record.
func closest(records []Record, q providers.TrackQuery) int {
	best, bestDistance := 0, -1
	for i := range records {
		d := utils.MatchDistance(q.Name, q.Artist, records[i].TrackName, records[i].ArtistName)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best
}

// fromRecord prefers synced lyrics when they parse to at least one line
func fromRecord(r *Record) *providers.LyricsResult {
	if r.HasSyncedLyrics() {
		if result := providers.NewSynced(providers.SourceLrcLib, timedtext.ParseLRC(r.SyncedLyrics)); result != nil {
			return result
		}
	}
	if r.HasPlainLyrics() {
		return providers.NewPlain(providers.SourceLrcLib, r.PlainLyrics)
	}
	return nil
}
