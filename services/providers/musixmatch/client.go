package musixmatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "lyrics-sync-go/1.0"
)

var (
	// ErrNotFound is returned when the proxy reports no lyrics for the request
	ErrNotFound = errors.New("musixmatch: lyrics not found")
	// ErrNoTrack is returned when a search produced no usable track
	ErrNoTrack = errors.New("musixmatch: no track matched")
)

// Client talks to the backend proxy that fronts the Musixmatch API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Breaker   *circuitbreaker.CircuitBreaker // optional
}

// NewClient creates a proxy client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    cfg.Breaker,
	}
}

// Breaker returns the client's circuit breaker, which may be nil
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// countsAsFailure reports whether err says something about upstream health
func countsAsFailure(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNoTrack)
}

// get performs a GET and returns the envelope body once the envelope
// status has been checked.
func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	var body json.RawMessage
	do := func() error {
		var err error
		body, err = c.fetch(ctx, path, params)
		return err
	}

	var err error
	if c.breaker == nil {
		err = do()
	} else {
		err = c.breaker.Execute(do, countsAsFailure)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	requestURL := c.baseURL + path + "?" + params.Encode()
	log.Debugf("%s %s GET %s", logcolors.Provider(ProviderName), logcolors.LogRequest, requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	switch code := env.Message.Header.StatusCode; code {
	case http.StatusOK:
		return env.Message.Body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("API error: status %d %s", code, env.Message.Header.Hint)
	}
}

// RichsyncByISRC returns the raw richsync_body for a track ISRC
func (c *Client) RichsyncByISRC(ctx context.Context, isrc string) (string, error) {
	return c.richsync(ctx, url.Values{"track_isrc": {isrc}})
}

// RichsyncByTrackID returns the raw richsync_body for a track id
func (c *Client) RichsyncByTrackID(ctx context.Context, trackID int64) (string, error) {
	return c.richsync(ctx, url.Values{"track_id": {strconv.FormatInt(trackID, 10)}})
}

func (c *Client) richsync(ctx context.Context, params url.Values) (string, error) {
	body, err := c.get(ctx, "/richsync", params)
	if err != nil {
		return "", err
	}

	var rb richsyncBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return "", fmt.Errorf("failed to parse richsync body: %w", err)
	}
	if rb.Richsync.RichsyncBody == "" {
		return "", ErrNotFound
	}
	return rb.Richsync.RichsyncBody, nil
}

// SearchTrack returns the first track matching a free-text query
func (c *Client) SearchTrack(ctx context.Context, query string) (*Track, error) {
	log.Debugf("%s %s Searching: %s", logcolors.Provider(ProviderName), logcolors.LogSearch, query)

	body, err := c.get(ctx, "/search", url.Values{"q": {query}})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoTrack
	}
	if err != nil {
		return nil, err
	}

	var sb searchBody
	if err := json.Unmarshal(body, &sb); err != nil {
		return nil, fmt.Errorf("failed to parse search body: %w", err)
	}
	if len(sb.TrackList) == 0 || sb.TrackList[0].Track.TrackID == 0 {
		return nil, ErrNoTrack
	}

	track := sb.TrackList[0].Track
	log.Debugf("%s %s %q by %q (id %d)", logcolors.Provider(ProviderName), logcolors.LogMatch,
		track.TrackName, track.ArtistName, track.TrackID)
	return &track, nil
}

// LyricsByTrackID returns the plain lyrics_body for a track id
func (c *Client) LyricsByTrackID(ctx context.Context, trackID int64) (string, error) {
	body, err := c.get(ctx, "/lyrics", url.Values{"track_id": {strconv.FormatInt(trackID, 10)}})
	if err != nil {
		return "", err
	}

	var lb lyricsBody
	if err := json.Unmarshal(body, &lb); err != nil {
		return "", fmt.Errorf("failed to parse lyrics body: %w", err)
	}
	return lb.Lyrics.LyricsBody, nil
}
