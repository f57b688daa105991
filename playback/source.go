// Package playback polls a player for the current track and position and
// forwards what it sees to a tracker session.
package playback

import (
	"context"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/tracker"

	log "github.com/sirupsen/logrus"
)

// Update is one reading from a player
type Update struct {
	Track           providers.TrackQuery
	PositionSeconds float64
	Playing         bool
}

// Source reports what a player is doing. Poll returns nil, nil when
// nothing is playing.
type Source interface {
	Name() string
	Poll(ctx context.Context) (*Update, error)
	Close() error
}

// Observer receives observations; *tracker.Session implements it
type Observer interface {
	Observe(obs tracker.Observation) bool
}

// Run polls src every interval until ctx is done and forwards each reading
// to obs. Poll errors are logged and the previous observation stands.
func Run(ctx context.Context, src Source, interval time.Duration, obs Observer) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("%s Polling %s every %v", logcolors.LogPlayback, src.Name(), interval)

	var lastErr string
	for {
		if !poll(ctx, src, interval, obs, &lastErr) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll performs one reading and reports whether polling should continue
func poll(ctx context.Context, src Source, timeout time.Duration, obs Observer, lastErr *string) bool {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	update, err := src.Poll(pollCtx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// Log each distinct failure once instead of every tick
		if msg := err.Error(); msg != *lastErr {
			log.Warnf("%s %s poll failed: %v", logcolors.LogPlayback, src.Name(), err)
			*lastErr = msg
		}
		return true
	}
	*lastErr = ""

	if update == nil {
		return obs.Observe(tracker.Observation{})
	}
	track := update.Track
	return obs.Observe(tracker.Observation{
		Track:           &track,
		PositionSeconds: update.PositionSeconds,
		Playing:         update.Playing,
	})
}
