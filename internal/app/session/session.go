// Package session implements one media relationship with one remote
// participant.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrDiscarded is returned by a replacement that was in flight when the
// session closed. It is not a user-facing failure.
var ErrDiscarded = errors.New("replace discarded: session closed")

type Option func(*Session)

func WithObservers(obs ...Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, obs...) }
}

// WithOnTerminal sets the hook run once on Closed/Errored, before observers
// hear about it. Done is closed after observers have been told.
func WithOnTerminal(fn func(*Session)) Option {
	return func(s *Session) { s.onTerminal = fn }
}

// Session wraps one ConnectionHandle, which it owns exclusively.
type Session struct {
	peer domain.ParticipantID
	way  Direction
	conn core.ConnectionHandle

	// opMu serializes replace operations.
	opMu sync.Mutex
	// emitMu orders state transitions with event delivery.
	emitMu sync.Mutex

	mu             sync.RWMutex
	state          State
	slots          map[domain.TrackKind]core.Track
	remoteHasVideo bool
	remoteHasAudio bool
	cause          error

	observers  []Observer
	onTerminal func(*Session)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger zerolog.Logger
}

// New wraps conn. local is what was offered or will be answered and seeds the
// sender slots.
func New(peer domain.ParticipantID, way Direction, conn core.ConnectionHandle, local core.TrackBundle, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		peer: peer,
		way:  way,
		conn: conn,
		slots: map[domain.TrackKind]core.Track{
			domain.KindVideo: local.Video,
			domain.KindAudio: local.Audio,
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: log.With().Str("module", "session").Str("peer", string(peer)).Str("dir", way.String()).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start announces the session and begins consuming connection events.
func (s *Session) Start() {
	s.emitMu.Lock()
	if !s.State().Live() {
		s.emitMu.Unlock()
		return
	}
	s.emit(Event{Type: EventStarted, Peer: s.peer})
	s.emitMu.Unlock()

	go s.run()
}

func (s *Session) Peer() domain.ParticipantID  { return s.peer }
func (s *Session) Direction() Direction        { return s.way }
func (s *Session) Conn() core.ConnectionHandle { return s.conn }
func (s *Session) Done() <-chan struct{}       { return s.done }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err is the cause of an Errored session.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cause
}

func (s *Session) RemoteHasVideo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteHasVideo
}

// Outgoing returns the track currently bound to the sender slot of kind.
func (s *Session) Outgoing(kind domain.TrackKind) core.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[kind]
}

func (s *Session) ReplaceOutgoingVideo(ctx context.Context, track core.Track) error {
	return s.Replace(ctx, domain.KindVideo, track)
}

func (s *Session) ReplaceOutgoingAudio(ctx context.Context, track core.Track) error {
	return s.Replace(ctx, domain.KindAudio, track)
}

// Replace binds track to the sender slot of kind. Replacing with the track
// already bound succeeds without touching the connection.
func (s *Session) Replace(ctx context.Context, kind domain.TrackKind, track core.Track) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	state, current := s.state, s.slots[kind]
	s.mu.RUnlock()

	if !state.Live() {
		return fmt.Errorf("%w: session %s is %s", domain.ErrSenderNotReady, s.peer, state)
	}
	if core.SameTrack(current, track) {
		return nil
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	err := s.conn.ReplaceTrack(opCtx, kind, track)

	s.mu.Lock()
	closed := !s.state.Live()
	if !closed && err == nil {
		s.slots[kind] = track
	}
	s.mu.Unlock()

	if closed {
		s.logger.Debug().Str("kind", kind.String()).Msg("replace discarded, session closed")
		return ErrDiscarded
	}
	if err != nil {
		return fmt.Errorf("replace %s on %s: %w", kind, s.peer, err)
	}
	s.logger.Debug().Str("kind", kind.String()).Str("track", trackID(track)).Msg("sender track replaced")
	return nil
}

// Close releases the connection and moves to Closed.
func (s *Session) Close() {
	s.finish(StateClosed, nil)
}

// Fail releases the connection and moves to Errored.
func (s *Session) Fail(err error) {
	if err == nil {
		err = domain.ErrConnection
	}
	s.finish(StateErrored, err)
}

func (s *Session) run() {
	for ev := range s.conn.Events() {
		switch ev.Type {
		case core.EventStream:
			s.onStream(ev.Media)
		case core.EventClose:
			s.finish(StateClosed, nil)
			return
		case core.EventError:
			cause := domain.ErrConnection
			if ev.Err != nil {
				cause = fmt.Errorf("%w: %w", domain.ErrConnection, ev.Err)
			}
			s.finish(StateErrored, cause)
			return
		}
	}
	s.finish(StateClosed, nil)
}

func (s *Session) onStream(m core.RemoteMedia) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	var ev *Event
	switch s.state {
	case StateConnecting:
		s.state = StateActive
		ev = &Event{Type: EventRemoteMediaAvailable}
	case StateActive:
		if m.HasVideo != s.remoteHasVideo {
			ev = &Event{Type: EventRemoteMediaChanged}
		}
	}
	s.remoteHasVideo, s.remoteHasAudio = m.HasVideo, m.HasAudio
	s.mu.Unlock()

	if ev == nil {
		return
	}
	ev.Peer, ev.HasVideo, ev.HasAudio = s.peer, m.HasVideo, m.HasAudio
	s.logger.Info().Str("event", ev.Type.String()).Bool("has_video", m.HasVideo).Bool("has_audio", m.HasAudio).Msg("remote media")
	s.emit(*ev)
}

func (s *Session) finish(state State, cause error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.state.Live() {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.cause = cause
	s.mu.Unlock()

	s.cancel()
	if err := s.conn.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("connection close")
	}
	if s.onTerminal != nil {
		s.onTerminal(s)
	}

	ev := Event{Type: EventClosed, Peer: s.peer}
	if state == StateErrored {
		ev = Event{Type: EventErrored, Peer: s.peer, Err: cause}
		s.logger.Warn().Err(cause).Msg("session errored")
	} else {
		s.logger.Info().Msg("session closed")
	}
	s.emit(ev)
	close(s.done)
}

func (s *Session) emit(ev Event) {
	ev.Session = s
	for _, o := range s.observers {
		o.OnSessionEvent(ev)
	}
}

func trackID(t core.Track) string {
	if t == nil {
		return "none"
	}
	return t.ID()
}
