package providers

import (
	"context"
	"fmt"
	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// AttemptFunc performs one lookup step. A nil result with a nil error means
// the step ran cleanly but found nothing.
type AttemptFunc func(ctx context.Context, query TrackQuery) (*LyricsResult, error)

// Strategy is one named step in a provider's fallback chain
type Strategy struct {
	Name    string
	Attempt AttemptFunc
}

// RunStrategies tries each strategy in order and returns the first result
// with at least one line. Errors and panics are logged and treated as
// "this step produced nothing". The chain stops early once ctx is done.
func RunStrategies(ctx context.Context, provider string, strategies []Strategy, query TrackQuery) *LyricsResult {
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			log.Debugf("%s %s Chain stopped before %q: %v", logcolors.Provider(provider), logcolors.LogStrategy, s.Name, err)
			return nil
		}

		result, err := runStep(ctx, s, query)
		if err != nil {
			log.Warnf("%s %s %s failed: %v", logcolors.Provider(provider), logcolors.LogStrategy, s.Name, err)
			continue
		}
		if result.Empty() {
			log.Debugf("%s %s %s produced no lines", logcolors.Provider(provider), logcolors.LogStrategy, s.Name)
			continue
		}

		log.Infof("%s %s %s produced %d line(s) (synced: %v)",
			logcolors.Provider(provider), logcolors.LogSuccess, s.Name, len(result.Lines), result.Synced)
		return result
	}
	return nil
}

func runStep(ctx context.Context, s Strategy, query TrackQuery) (result *LyricsResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic in strategy %s: %v", s.Name, r)
		}
	}()
	return s.Attempt(ctx, query)
}
