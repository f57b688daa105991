package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned when LrcLib has no record for the request
var ErrNotFound = errors.New("lrclib: lyrics not found")

const (
	DefaultBaseURL   = "https://lrclib.net"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "lyrics-sync-go/1.0"
)

// Client is an lrclib.net API client
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

// NewClient creates an LrcLib client
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
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

func countsAsFailure(err error) bool {
	return !errors.Is(err, ErrNotFound)
}

// guarded runs fn through the breaker when one is configured
func (c *Client) guarded(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn, countsAsFailure)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	log.Debugf("%s %s GET %s", logcolors.Provider(ProviderName), logcolors.LogRequest, reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get fetches the record matching a track's signature.
// durationMs is sent as whole seconds; zero omits it.
func (c *Client) Get(ctx context.Context, name, artist, album string, durationMs int) (*Record, error) {
	params := url.Values{}
	params.Set("track_name", name)
	params.Set("artist_name", artist)
	if album != "" {
		params.Set("album_name", album)
	}
	if durationMs > 0 {
		params.Set("duration", strconv.Itoa(durationMs/1000))
	}

	var record Record
	err := c.guarded(func() error {
		return c.getJSON(ctx, "/api/get", params, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Search returns records matching a free-text query
func (c *Client) Search(ctx context.Context, query string) ([]Record, error) {
	log.Debugf("%s %s Searching: %s", logcolors.Provider(ProviderName), logcolors.LogSearch, query)

	params := url.Values{}
	params.Set("q", query)

	var records []Record
	err := c.guarded(func() error {
		return c.getJSON(ctx, "/api/search", params, &records)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
