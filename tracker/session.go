package tracker

import (
	"context"
	"sync"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/stats"

	log "github.com/sirupsen/logrus"
)

// State is the lifecycle state of the session's current track
type State int

const (
	StateIdle     State = iota // nothing playing
	StateLoading               // resolution in flight
	StateResolved              // lyrics found
	StateFailed                // resolution ended in a placeholder
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resolver is what a Session uses to fetch lyrics
type Resolver interface {
	Resolve(ctx context.Context, q providers.TrackQuery, pref providers.Preference) *providers.LyricsResult
}

// Observation is one report from a playback source.
// A nil Track means nothing is playing.
type Observation struct {
	Track           *providers.TrackQuery
	PositionSeconds float64
	Playing         bool
}

// Snapshot is a consistent view of the session
type Snapshot struct {
	State       State                   `json:"state"`
	Track       *providers.TrackQuery   `json:"track,omitempty"`
	Preference  providers.Preference    `json:"preference"`
	Result      *providers.LyricsResult `json:"result,omitempty"`
	Position    float64                 `json:"position"`
	Playing     bool                    `json:"playing"`
	ActiveIndex int                     `json:"activeIndex"`
	Generation  uint64                  `json:"generation"`
}

type requestKind int

const (
	requestObserve requestKind = iota
	requestPreference
)

type request struct {
	kind        requestKind
	observation Observation
	preference  providers.Preference
}

// resolution is a finished Resolve call tagged with the generation it was started for
type resolution struct {
	generation uint64
	result     *providers.LyricsResult
}

// Session owns the lyrics state for one playback stream. All state changes
// happen on the goroutine running Run; other goroutines talk to it through
// Observe and SetPreference and read it through Snapshot and Subscribe.
type Session struct {
	resolver Resolver
	stats    *stats.Stats
	requests chan request
	results  chan resolution
	done     chan struct{}
	stopOnce sync.Once

	// owned by Run
	runCtx     context.Context
	cancel     context.CancelFunc
	generation uint64
	current    Snapshot

	mu        sync.RWMutex
	published Snapshot

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// NewSession creates an idle session using pref until told otherwise
func NewSession(resolver Resolver, pref providers.Preference) *Session {
	initial := Snapshot{State: StateIdle, Preference: pref, ActiveIndex: NoActiveLine}
	return &Session{
		resolver:  resolver,
		stats:     stats.Get(),
		requests:  make(chan request, 16),
		results:   make(chan resolution, 1),
		done:      make(chan struct{}),
		current:   initial,
		published: initial,
		subs:      make(map[int]chan Snapshot),
	}
}

// Run processes requests until ctx is done. Any in-flight resolution is
// cancelled on return. Run must be called at most once.
func (s *Session) Run(ctx context.Context) {
	s.runCtx = ctx
	defer func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.stopOnce.Do(func() { close(s.done) })
	}()

	log.Infof("%s Started (preference: %s)", logcolors.LogSession, s.current.Preference)
	for {
		select {
		case <-ctx.Done():
			log.Infof("%s Stopped", logcolors.LogSession)
			return
		case req := <-s.requests:
			switch req.kind {
			case requestObserve:
				s.handleObservation(req.observation)
			case requestPreference:
				s.handlePreference(req.preference)
			}
		case res := <-s.results:
			s.handleResolution(res)
		}
	}
}

// Observe reports the latest playback state. It returns false once the
// session has stopped.
func (s *Session) Observe(obs Observation) bool {
	return s.send(request{kind: requestObserve, observation: obs})
}

// SetPreference changes the source preference, re-resolving the current track
func (s *Session) SetPreference(pref providers.Preference) bool {
	return s.send(request{kind: requestPreference, preference: pref})
}

func (s *Session) send(req request) bool {
	select {
	case s.requests <- req:
		return true
	case <-s.done:
		return false
	}
}

// Snapshot returns the most recently published state
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// Subscribe returns a channel that receives every published snapshot,
// starting with the current one. Slow readers only see the latest
// snapshot. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subsMu.Lock()
	ch <- s.Snapshot()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) handleObservation(obs Observation) {
	if obs.Track == nil || !obs.Track.Valid() {
		if s.current.State != StateIdle {
			log.Infof("%s Playback stopped", logcolors.LogSession)
			s.supersede()
			s.current = Snapshot{State: StateIdle, Preference: s.current.Preference, ActiveIndex: NoActiveLine, Generation: s.generation}
			s.publish()
		}
		return
	}

	s.current.Position = obs.PositionSeconds
	s.current.Playing = obs.Playing

	if s.current.Track == nil || *s.current.Track != *obs.Track {
		track := *obs.Track
		log.Infof("%s Track changed: %s - %s", logcolors.LogSession, track.Artist, track.Name)
		s.current.Track = &track
		s.startResolution()
	}

	s.current.ActiveIndex = s.activeIndex()
	s.publish()
}

func (s *Session) handlePreference(pref providers.Preference) {
	if pref == s.current.Preference {
		return
	}
	log.Infof("%s Preference changed: %s -> %s", logcolors.LogSession, s.current.Preference, pref)
	s.current.Preference = pref
	if s.current.Track != nil {
		s.startResolution()
		s.current.ActiveIndex = NoActiveLine
	}
	s.publish()
}

func (s *Session) handleResolution(res resolution) {
	if res.generation != s.generation {
		s.stats.StaleDiscards.Add(1)
		log.Debugf("%s Discarding result for generation %d (current %d)", logcolors.LogStale, res.generation, s.generation)
		return
	}

	s.cancel = nil
	s.current.Result = res.result
	if res.result.Empty() || res.result.IsPlaceholder() {
		s.current.State = StateFailed
	} else {
		s.current.State = StateResolved
	}
	s.current.ActiveIndex = s.activeIndex()
	log.Infof("%s %s (generation %d)", logcolors.LogSession, s.current.State, res.generation)
	s.publish()
}

// supersede cancels the in-flight resolution and invalidates its result
func (s *Session) supersede() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}

func (s *Session) startResolution() {
	s.supersede()

	generation := s.generation
	ctx, cancel := context.WithCancel(s.runCtx)
	s.cancel = cancel

	s.current.State = StateLoading
	s.current.Result = nil
	s.current.Generation = generation

	query, pref := *s.current.Track, s.current.Preference
	go func() {
		result := s.resolver.Resolve(ctx, query, pref)
		select {
		case s.results <- resolution{generation: generation, result: result}:
		case <-s.done:
		}
	}()
}

func (s *Session) activeIndex() int {
	if s.current.Result == nil {
		return NoActiveLine
	}
	// Unsynced results hold one line at time 0, which is active from the start
	return ActiveLineIndex(s.current.Result.Lines, s.current.Position)
}

func (s *Session) publish() {
	snap := s.current
	if snap.Track != nil {
		track := *snap.Track
		snap.Track = &track
	}

	s.mu.Lock()
	s.published = snap
	s.mu.Unlock()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
