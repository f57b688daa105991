// Package musixmatch resolves word-synced and plain lyrics through a backend
// proxy that holds the Musixmatch credentials.
package musixmatch

import (
	"context"
	"errors"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/services/timedtext"
	"lyrics-sync-go/utils"

	log "github.com/sirupsen/logrus"
)

const ProviderName = "Musixmatch"

// Provider runs the Musixmatch fallback chain
type Provider struct {
	client     *Client
	strategies []providers.Strategy
}

// NewProvider creates a Provider backed by client
func NewProvider(client *Client) *Provider {
	p := &Provider{client: client}
	p.strategies = []providers.Strategy{
		{Name: "richsync-isrc", Attempt: p.richsyncByISRC},
		{Name: "search", Attempt: p.search},
	}
	return p
}

// Name returns the provider display name
func (p *Provider) Name() string {
	return ProviderName
}

// Source returns the result tag
func (p *Provider) Source() providers.Source {
	return providers.SourceMusixmatch
}

// Strategies returns the ordered top-level chain
func (p *Provider) Strategies() []providers.Strategy {
	return p.strategies
}

// Attempt runs the chain and returns the first non-empty result
func (p *Provider) Attempt(ctx context.Context, query providers.TrackQuery) *providers.LyricsResult {
	return providers.RunStrategies(ctx, ProviderName, p.strategies, query)
}

func (p *Provider) richsyncByISRC(ctx context.Context, q providers.TrackQuery) (*providers.LyricsResult, error) {
	if q.ISRC == "" {
		return nil, nil
	}
	body, err := p.client.RichsyncByISRC(ctx, q.ISRC)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "richsync by ISRC", err)
	}
	return providers.NewSynced(providers.SourceMusixmatch, timedtext.ParseRichsync(body)), nil
}

// search resolves a track id and then runs a nested chain against it
func (p *Provider) search(ctx context.Context, q providers.TrackQuery) (*providers.LyricsResult, error) {
	track, err := p.client.SearchTrack(ctx, utils.SearchQuery(q.Name, q.Artist))
	if errors.Is(err, ErrNoTrack) {
		return nil, nil
	}
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "search", err)
	}
	log.Debugf("%s %s Picked %q by %q (distance %d)", logcolors.Provider(ProviderName), logcolors.LogMatch,
		track.TrackName, track.ArtistName, utils.MatchDistance(q.Name, q.Artist, track.TrackName, track.ArtistName))

	return providers.RunStrategies(ctx, ProviderName, p.byTrackID(track.TrackID), q), nil
}

func (p *Provider) byTrackID(trackID int64) []providers.Strategy {
	return []providers.Strategy{
		{
			Name: "richsync-id",
			Attempt: func(ctx context.Context, _ providers.TrackQuery) (*providers.LyricsResult, error) {
				body, err := p.client.RichsyncByTrackID(ctx, trackID)
				if errors.Is(err, ErrNotFound) {
					return nil, nil
				}
				if err != nil {
					return nil, providers.NewProviderError(ProviderName, "richsync by id", err)
				}
				return providers.NewSynced(providers.SourceMusixmatch, timedtext.ParseRichsync(body)), nil
			},
		},
		{
			Name: "plain-id",
			Attempt: func(ctx context.Context, _ providers.TrackQuery) (*providers.LyricsResult, error) {
				text, err := p.client.LyricsByTrackID(ctx, trackID)
				if errors.Is(err, ErrNotFound) {
					return nil, nil
				}
				if err != nil {
					return nil, providers.NewProviderError(ProviderName, "plain lyrics by id", err)
				}
				return providers.NewPlain(providers.SourceMusixmatch, text), nil
			},
		},
	}
}
