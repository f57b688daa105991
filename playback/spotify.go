package playback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lyrics-sync-go/services/providers"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// ErrSpotifyUnauthorized means the access token was rejected
var ErrSpotifyUnauthorized = errors.New("spotify rejected the access token")

// Spotify polls the Web API currently-playing endpoint with a pre-issued token
type Spotify struct {
	client *spotify.Client
}

// NewSpotify creates a Spotify source. An empty apiURL uses the public Web
// API; otherwise it is the base the endpoint paths are appended to.
func NewSpotify(apiURL, token string, timeout time.Duration) *Spotify {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}

	var opts []spotify.ClientOption
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, spotify.WithBaseURL(apiURL))
	}
	return &Spotify{client: spotify.New(httpClient, opts...)}
}

func (s *Spotify) Name() string {
	return "spotify"
}

func (s *Spotify) Close() error {
	return nil
}

// Poll asks Spotify what is playing. Nothing playing, or an episode or ad
// that carries no track, yields a nil Update.
func (s *Spotify) Poll(ctx context.Context) (*Update, error) {
	cp, err := s.client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, ErrSpotifyUnauthorized
		}
		return nil, fmt.Errorf("currently playing: %w", err)
	}
	if cp == nil || cp.Item == nil {
		return nil, nil
	}

	item := cp.Item
	track := providers.TrackQuery{
		Name:       item.Name,
		Album:      item.Album.Name,
		DurationMs: int(item.Duration),
		ISRC:       item.ExternalIDs["isrc"],
	}
	if len(item.Artists) > 0 {
		track.Artist = item.Artists[0].Name
	}

	return &Update{
		Track:           track,
		PositionSeconds: float64(cp.Progress) / 1000,
		Playing:         cp.Playing,
	}, nil
}
