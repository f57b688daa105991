package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port     string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`

		RateLimitPerSecond        int `envconfig:"RATE_LIMIT_PER_SECOND" default:"2" validate:"gt=0"`
		RateLimitBurstLimit       int `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5" validate:"gt=0"`
		CachedRateLimitPerSecond  int `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"10" validate:"gt=0"`
		CachedRateLimitBurstLimit int `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"20" validate:"gt=0"`

		CachePath         string `envconfig:"CACHE_PATH" default:"./data/lyrics_cache.db" validate:"required"`
		CacheBackupPath   string `envconfig:"CACHE_BACKUP_PATH" default:"./data/backups"`
		CacheAccessToken  string `envconfig:"CACHE_ACCESS_TOKEN" default:""`
		APIKey            string `envconfig:"API_KEY" default:""`
		APIKeyRequired    bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		AllowedOrigins    string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
		DefaultPreference string `envconfig:"DEFAULT_SOURCE_PREFERENCE" default:"auto" validate:"oneof=auto musixmatch lrclib"`

		// Upstream providers
		MusixmatchProxyURL string `envconfig:"MUSIXMATCH_PROXY_URL" default:"http://localhost:8000" validate:"required,url"`
		LrcLibBaseURL      string `envconfig:"LRCLIB_BASE_URL" default:"https://lrclib.net" validate:"required,url"`
		UserAgent          string `envconfig:"USER_AGENT" default:"lyrics-sync-go/1.0"`
		RequestTimeoutSecs int    `envconfig:"REQUEST_TIMEOUT_SECS" default:"10" validate:"gt=0"`
		ResolveTimeoutSecs int    `envconfig:"RESOLVE_TIMEOUT_SECS" default:"45" validate:"gt=0"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5" validate:"gt=0"`       // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300" validate:"gt=0"` // Seconds to wait before retrying

		// Playback state source: none, mpris or spotify
		PlaybackSource         string `envconfig:"PLAYBACK_SOURCE" default:"none" validate:"oneof=none mpris spotify"`
		PlaybackPollIntervalMs int    `envconfig:"PLAYBACK_POLL_INTERVAL_MS" default:"1000" validate:"min=100"`
		MPRISService           string `envconfig:"MPRIS_SERVICE" default:"org.mpris.MediaPlayer2.spotify"`
		SpotifyAccessToken     string `envconfig:"SPOTIFY_ACCESS_TOKEN" default:""`
		SpotifyAPIURL          string `envconfig:"SPOTIFY_API_URL" default:"https://api.spotify.com/v1/" validate:"omitempty,url"`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		RankLrcLibSearch bool `envconfig:"FF_RANK_LRCLIB_SEARCH" default:"false"`
	}
}

// AllowedOriginList splits ALLOWED_ORIGINS on commas, dropping blanks.
func (c Config) AllowedOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Configuration.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

// Validate checks the loaded values against their validate tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}
	if err := c.Validate(); err != nil {
		log.WithError(err).Warnf("Configuration has invalid values")
	}

	return c
}

func Get() Config {
	return conf
}

// Load re-reads the environment. Used by tests and by callers that change
// the environment after startup.
func Load() (Config, error) {
	return load()
}
