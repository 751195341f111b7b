package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Meet/internal/app/session"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Registry maps a remote participant to its single CallSession. It is the only
// place duplicate connections are detected.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[domain.ParticipantID]*session.Session
	observers []session.Observer
}

// NewRegistry returns a registry whose sessions report to observers.
func NewRegistry(observers ...session.Observer) *Registry {
	return &Registry{
		sessions:  make(map[domain.ParticipantID]*session.Session),
		observers: observers,
	}
}

// RegisterOutbound wraps a connection we placed. If peer already has a session,
// conn is closed and the existing session is returned with ErrDuplicateConnection.
func (r *Registry) RegisterOutbound(peer domain.ParticipantID, conn core.ConnectionHandle, local core.TrackBundle) (*session.Session, error) {
	return r.register(peer, session.Outbound, conn, local)
}

// RegisterInbound wraps a connection placed to us, with the same dedup rule.
func (r *Registry) RegisterInbound(peer domain.ParticipantID, conn core.ConnectionHandle, local core.TrackBundle) (*session.Session, error) {
	return r.register(peer, session.Inbound, conn, local)
}

func (r *Registry) register(
	peer domain.ParticipantID,
	dir session.Direction,
	conn core.ConnectionHandle,
	local core.TrackBundle,
) (*session.Session, error) {
	r.mu.Lock()
	if existing, ok := r.sessions[peer]; ok {
		r.mu.Unlock()
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").Str("peer", string(peer)).Msg("closing duplicate connection")
		}
		log.Info().Str("module", "app.registry").Str("peer", string(peer)).Str("dir", dir.String()).Msg("duplicate connection dropped")
		return existing, fmt.Errorf("%w: %s", domain.ErrDuplicateConnection, peer)
	}
	s := session.New(peer, dir, conn, local,
		session.WithObservers(r.observers...),
		session.WithOnTerminal(r.remove),
	)
	r.sessions[peer] = s
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Str("dir", dir.String()).Msg("registered session")
	s.Start()
	return s, nil
}

// Unregister drops peer's entry and closes its session, so observers see the
// terminal event. Idempotent.
func (r *Registry) Unregister(peer domain.ParticipantID) {
	r.mu.Lock()
	s, ok := r.sessions[peer]
	if ok {
		delete(r.sessions, peer)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("unregistered session")
	s.Close()
}

// remove is the sessions' terminal hook; it never drops a newer session that
// took the same key.
func (r *Registry) remove(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.Peer()]; ok && cur == s {
		delete(r.sessions, s.Peer())
		log.Info().Str("module", "app.registry").Str("peer", string(s.Peer())).Msg("unregistered session")
	}
}

func (r *Registry) Get(peer domain.ParticipantID) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[peer]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the sessions that are still live at call time.
func (r *Registry) Snapshot() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.State().Live() {
			out = append(out, s)
		}
	}
	return out
}

// CloseAll closes every session concurrently and waits for them or ctx.
func (r *Registry) CloseAll(ctx context.Context) error {
	var g errgroup.Group
	for _, s := range r.Snapshot() {
		g.Go(func() error {
			s.Close()
			return nil
		})
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
